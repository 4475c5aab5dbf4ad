package main

import (
	"errors"

	"github.com/utilitygods/sitegen"
)

// Exit codes follow Unix conventions: 0 success, 1 general, 2 usage.
const (
	ExitSuccess = 0 // every preview was produced
	ExitGeneral = 1 // a preview failed or the run broke
	ExitUsage   = 2 // invalid flags or config
)

// exitCodeFor maps an error to an exit code. Callers must wrap with %w.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, sitegen.ErrConfigNotFound) ||
		errors.Is(err, sitegen.ErrConfigParse) ||
		errors.Is(err, sitegen.ErrConfigInvalid) {
		return ExitUsage
	}
	return ExitGeneral
}
