package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFailedExitsOnlyOnRealErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"clean stop", nil, false},
		{"signal", context.Canceled, false},
		{"wrapped signal", fmt.Errorf("placing quotes: %w", context.Canceled), false},
		{"price feed down", errors.New("all price sources failed"), true},
		{"rpc timeout", context.DeadlineExceeded, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, failed(tt.err))
		})
	}
}
