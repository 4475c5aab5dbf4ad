package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/utilitygods/sitegen"
)

func TestExitCodeFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},

		{"usage", ErrUsage, ExitUsage},
		{"config not found", sitegen.ErrConfigNotFound, ExitUsage},
		{"config parse", sitegen.ErrConfigParse, ExitUsage},
		{"config invalid", sitegen.ErrConfigInvalid, ExitUsage},
		{"wrapped config parse", fmt.Errorf("site.yaml: %w", sitegen.ErrConfigParse), ExitUsage},

		{"previews failed", fmt.Errorf("%w: 1 of 3", errPreviewsFailed), ExitGeneral},
		{"build running", sitegen.ErrBuildRunning, ExitGeneral},
		{"unknown error", errors.New("something unexpected"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
