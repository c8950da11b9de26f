package plexus

import (
	"context"
	"fmt"
	"testing"

	"github.com/dan-solli/goplexus/pkg/adapter"
	"github.com/dan-solli/goplexus/pkg/engine"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, ErrTypeTimeout},
		{"wrapped deadline", fmt.Errorf("op: %w", context.DeadlineExceeded), ErrTypeTimeout},
		{"string timeout", fmt.Errorf("operation timeout"), ErrTypeTimeout},
		{"context missing", fmt.Errorf("%w: c9", engine.ErrContextNotFound), ErrTypeNotFound},
		{"adapter input", fmt.Errorf("%w: bad payload", adapter.ErrAdapterInput), ErrTypeAdapter},
		{"no adapter", fmt.Errorf("%w: audio", adapter.ErrNoAdapter), ErrTypeAdapter},
		{"nil emission", adapter.ErrNilEmission, ErrTypeValidation},
		{"sql failure", fmt.Errorf("failed to open database: locked"), ErrTypeDatabase},
		{"badger failure", fmt.Errorf("open badger database: no space"), ErrTypeDatabase},
		{"validation string", fmt.Errorf("invalid dimension name"), ErrTypeValidation},
		{"mystery", fmt.Errorf("something odd"), ErrTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}
