// Package coreconfig holds the core's process-wide tunables in one
// explicit struct instead of the package-level globals the design notes
// (spec.md §9) flag as needing encapsulation: default term weights, index
// pruning thresholds, and the Limits counters the HO binding enumerator
// is bounded by. Default() supplies spec.md's stated defaults and Load
// fills every field left at zero with them; a zero-value Config is not
// filled in and carries zero weights and limits.
package coreconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is threaded explicitly into core.Context; nothing in the core
// reads process-wide state outside of one of these.
type Config struct {
	// DefaultVariableWeight and DefaultFunctionWeight are the V and F
	// constants of spec.md §8 invariant 2 ("weight law"). Spec default:
	// V=1, F=2.
	DefaultVariableWeight int `yaml:"default_variable_weight"`
	DefaultFunctionWeight int `yaml:"default_function_weight"`

	// PDT is the perfect discrimination tree's pruning configuration.
	PDT PDTConfig `yaml:"pdt"`

	// FV is the feature-vector index's feature selection.
	FV FVConfig `yaml:"feature_vector"`

	// FP is the fingerprint index's probe count.
	FP FPConfig `yaml:"fingerprint"`

	// Limits bounds the HO binding enumerator (spec.md §4.6 next_binding).
	Limits Limits `yaml:"limits"`
}

// PDTConfig configures perfect-discrimination-tree pruning.
type PDTConfig struct {
	MaxTermSize int `yaml:"max_term_size"` // 0 = unbounded
	MaxAge      int `yaml:"max_age"`       // 0 = unbounded
}

// FVConfig configures the feature-vector index's summarisation.
type FVConfig struct {
	// MaxSelectedCodes caps how many distinct function codes get their own
	// per-code count/depth coordinates; beyond this, codes are folded into
	// a shared "other" coordinate.
	MaxSelectedCodes int `yaml:"max_selected_codes"`
}

// FPConfig configures the fingerprint index.
type FPConfig struct {
	// ProbeCount is the number of sampled positions per term; spec.md §4.9
	// gives 7 as the example.
	ProbeCount int `yaml:"probe_count"`
}

// Limits bounds HO binding enumeration so runaway imitation/projection
// chains terminate (spec.md §4.6).
type Limits struct {
	MaxImitations    int `yaml:"max_imitations"`
	MaxProjections   int `yaml:"max_projections"`
	MaxEliminations  int `yaml:"max_eliminations"`
	MaxIdentifications int `yaml:"max_identifications"`
}

// Default returns the spec-stated defaults.
func Default() Config {
	return Config{
		DefaultVariableWeight: 1,
		DefaultFunctionWeight: 2,
		PDT:                   PDTConfig{MaxTermSize: 0, MaxAge: 0},
		FV:                    FVConfig{MaxSelectedCodes: 32},
		FP:                    FPConfig{ProbeCount: 7},
		Limits: Limits{
			MaxImitations:      64,
			MaxProjections:     64,
			MaxEliminations:    16,
			MaxIdentifications: 16,
		},
	}
}

// normalize fills any zero field left unset after a partial YAML load with
// the spec default, so a config file only needs to override what it cares
// about.
func (c *Config) normalize() {
	d := Default()
	if c.DefaultVariableWeight == 0 {
		c.DefaultVariableWeight = d.DefaultVariableWeight
	}
	if c.DefaultFunctionWeight == 0 {
		c.DefaultFunctionWeight = d.DefaultFunctionWeight
	}
	if c.FV.MaxSelectedCodes == 0 {
		c.FV.MaxSelectedCodes = d.FV.MaxSelectedCodes
	}
	if c.FP.ProbeCount == 0 {
		c.FP.ProbeCount = d.FP.ProbeCount
	}
	if c.Limits.MaxImitations == 0 {
		c.Limits.MaxImitations = d.Limits.MaxImitations
	}
	if c.Limits.MaxProjections == 0 {
		c.Limits.MaxProjections = d.Limits.MaxProjections
	}
	if c.Limits.MaxEliminations == 0 {
		c.Limits.MaxEliminations = d.Limits.MaxEliminations
	}
	if c.Limits.MaxIdentifications == 0 {
		c.Limits.MaxIdentifications = d.Limits.MaxIdentifications
	}
}

// Load reads a YAML config file, applying spec defaults to any field the
// file leaves unset.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, err
	}
	c.normalize()
	return c, nil
}
