package mep

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decisionkit/internal/errors"
)

func scenarioA() *Config {
	return &Config{
		JointDistributions: []string{"P00", "P01", "P10", "P11"},
		Assessments:        map[string]float64{"P0.": 0.6, "P.0": 0.5},
	}
}

func TestCompileDefaults(t *testing.T) {
	p, err := scenarioA().Compile()
	require.NoError(t, err)

	// two assessments plus normalization
	require.Len(t, p.Equality, 3)
	assert.Empty(t, p.Inequality)
	assert.Equal(t, "P.0 = 0.5", p.Equality[0].Source)
	assert.Equal(t, "P0. = 0.6", p.Equality[1].Source)
	assert.Equal(t, "P = 1", p.Equality[2].Source)

	assert.Equal(t, []float64{0, 0, 0, 0}, p.Lower)
	assert.Equal(t, []float64{1, 1, 1, 1}, p.Upper)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, p.Initial)
}

func TestCompileUserConstraints(t *testing.T) {
	cfg := scenarioA()
	cfg.Equality = []string{"P00 = P11 + 0.1"}
	cfg.Inequality = []string{"P10 <= 0.3", "P01 >= P10"}
	cfg.ConditionedVariables = []int{1}
	cfg.Minimization.Bounds = map[string][]float64{
		"P00": {0.1, 0.9}, "P01": {0, 1}, "P10": {0, 1}, "P11": {0, 0.5},
	}
	cfg.Minimization.InitialGuess = map[string]float64{
		"P00": 0.4, "P01": 0.2, "P10": 0.2, "P11": 0.2,
	}

	p, err := cfg.Compile()
	require.NoError(t, err)
	assert.Len(t, p.Equality, 4)
	assert.Len(t, p.Inequality, 2)
	assert.Equal(t, []int{1}, p.Conditioned)
	assert.Equal(t, []float64{0.1, 0, 0, 0}, p.Lower)
	assert.Equal(t, []float64{0.9, 1, 1, 0.5}, p.Upper)
	assert.Equal(t, []float64{0.4, 0.2, 0.2, 0.2}, p.Initial)
}

func TestCompileValidationGate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no joint cells", func(c *Config) { c.JointDistributions = nil }},
		{"gap in joint cells", func(c *Config) { c.JointDistributions = []string{"P00", "P01", "P10"} }},
		{"mixed widths", func(c *Config) { c.JointDistributions = []string{"P00", "P01", "P10", "P1"} }},
		{"assessment tag", func(c *Config) { c.Assessments["Q0."] = 0.2 }},
		{"assessment width", func(c *Config) { c.Assessments["P0"] = 0.2 }},
		{"assessment outcome out of range", func(c *Config) { c.Assessments["P2."] = 0.2 }},
		{"assessment above one", func(c *Config) { c.Assessments["P1."] = 1.4 }},
		{"conditioning out of range", func(c *Config) { c.ConditionedVariables = []int{2} }},
		{"conditioning negative", func(c *Config) { c.ConditionedVariables = []int{-1} }},
		{"conditioning repeated", func(c *Config) { c.ConditionedVariables = []int{0, 0} }},
		{"bounds missing a cell", func(c *Config) {
			c.Minimization.Bounds = map[string][]float64{"P00": {0, 1}, "P01": {0, 1}, "P10": {0, 1}}
		}},
		{"bounds unknown cell", func(c *Config) {
			c.Minimization.Bounds = map[string][]float64{"P00": {0, 1}, "P01": {0, 1}, "P10": {0, 1}, "P22": {0, 1}}
		}},
		{"bounds out of range", func(c *Config) {
			c.Minimization.Bounds = map[string][]float64{"P00": {0, 1.5}, "P01": {0, 1}, "P10": {0, 1}, "P11": {0, 1}}
		}},
		{"bounds inverted", func(c *Config) {
			c.Minimization.Bounds = map[string][]float64{"P00": {0.6, 0.2}, "P01": {0, 1}, "P10": {0, 1}, "P11": {0, 1}}
		}},
		{"bounds not a pair", func(c *Config) {
			c.Minimization.Bounds = map[string][]float64{"P00": {0}, "P01": {0, 1}, "P10": {0, 1}, "P11": {0, 1}}
		}},
		{"initial guess missing a cell", func(c *Config) {
			c.Minimization.InitialGuess = map[string]float64{"P00": 0.5, "P01": 0.5}
		}},
		{"initial guess out of range", func(c *Config) {
			c.Minimization.InitialGuess = map[string]float64{"P00": -0.1, "P01": 0.5, "P10": 0.3, "P11": 0.3}
		}},
		{"equality without operator", func(c *Config) { c.Equality = []string{"P00 + P01"} }},
		{"equality with two operators", func(c *Config) { c.Equality = []string{"P00 = P01 = 0.2"} }},
		{"equality using inequality operator", func(c *Config) { c.Equality = []string{"P00 >= 0.1"} }},
		{"inequality using equals", func(c *Config) { c.Inequality = []string{"P00 = 0.1"} }},
		{"empty inequality", func(c *Config) { c.Inequality = []string{""} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioA()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeConfig), "got %v", err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "mep.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"joint_distributions": ["P00", "P01", "P10", "P11"],
		"assessments": {"P0.": 0.6, "P.0": 0.5},
		"inequality": ["P11 <= 0.3"],
		"conditioned_variables": [0],
		"minimization": {"initial_guess": {"P00": 0.25, "P01": 0.25, "P10": 0.25, "P11": 0.25}}
	}`), 0o644))

	cfg, err := LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"P00", "P01", "P10", "P11"}, cfg.JointDistributions)
	assert.Equal(t, 0.6, cfg.Assessments["P0."])
	assert.Equal(t, []string{"P11 <= 0.3"}, cfg.Inequality)
	assert.Equal(t, []int{0}, cfg.ConditionedVariables)
	assert.Len(t, cfg.Minimization.InitialGuess, 4)
	require.NoError(t, cfg.Validate())

	yamlPath := filepath.Join(dir, "mep.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
joint_distributions: [P00, P01, P10, P11]
assessments:
  P0.: 0.6
  P.0: 0.5
minimization:
  bounds:
    P00: [0, 1]
    P01: [0, 1]
    P10: [0, 1]
    P11: [0, 0.4]
`), 0o644))

	cfg, err = LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.4}, cfg.Minimization.Bounds["P11"])
	require.NoError(t, cfg.Validate())

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"joint_distributions": "P00"}`), 0o644))
	_, err = LoadConfig(badPath)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
