package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionkit/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"cfg.json", "cfg.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := Default()
			cfg.Solver.MaxOuterIterations = 42
			cfg.Output.DefaultFormat = "json"
			cfg.Conversion.PartialOrderMode = "copy"

			require.NoError(t, cfg.Save(path))
			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		errType errors.Type
	}{
		{
			name:    "bad partial order mode",
			file:    "cfg.yaml",
			content: "conversion:\n  partial_order_mode: deep\n",
			errType: errors.TypeConfig,
		},
		{
			name:    "negative tolerance",
			file:    "cfg.json",
			content: `{"solver": {"tolerance": -1}}`,
			errType: errors.TypeConfig,
		},
		{
			name:    "malformed json",
			file:    "cfg.json",
			content: `{"solver": `,
			errType: errors.TypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
		})
	}
}
