package og

import "errors"

// Sentinel errors for preview generation. Each task failure wraps exactly one
// of these so callers can classify it with errors.Is.
var (
	ErrUpstreamData = errors.New("post source failed")
	ErrFontFetch    = errors.New("font fetch failed")
	ErrLayout       = errors.New("layout failed")
	ErrEncode       = errors.New("image encoding failed")
)
