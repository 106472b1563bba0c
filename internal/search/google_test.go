package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewGoogleIndexUnconfigured(t *testing.T) {
	tests := []struct {
		name     string
		apiKey   string
		engineID string
	}{
		{"no key", "", "engine"},
		{"no engine", "key", ""},
		{"neither", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := NewGoogleIndex(context.Background(), tt.apiKey, tt.engineID, zap.NewNop())
			require.NoError(t, err)
			require.Nil(t, idx)
		})
	}
}
