package sitegen

import "errors"

var (
	// ErrNotFound is returned when a requested post or image does not exist.
	ErrNotFound = errors.New("not found")

	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("config parse failed")
	ErrConfigInvalid  = errors.New("invalid config")

	// ErrBuildRunning is returned when a batch is requested while another
	// one is still running.
	ErrBuildRunning = errors.New("build already running")
)
