package config

import "fmt"

// SolverConfig selects the solver adapter and the formulation variant.
type SolverConfig struct {
	// Adapter is "bridge" for an external solver process or "relaxation"
	// for the built-in continuous relaxation.
	Adapter string `json:"adapter"`
	// Command and Args define the bridge solver process.
	Command string   `json:"command"`
	Args    []string `json:"args"`
	// TimeLimitSeconds caps each vehicle's solve. Zero means no limit.
	TimeLimitSeconds float64 `json:"time_limit_seconds"`
	// Linearize replaces bilinear balance terms with big-M rows.
	Linearize bool `json:"linearize"`
	// SequenceConstraints adds the sequence-numbering subtour guard.
	SequenceConstraints bool `json:"sequence_constraints"`
	// Epsilon is the binary comparison tolerance during extraction.
	Epsilon float64 `json:"epsilon"`
	// Workers bounds the number of vehicles solved concurrently.
	Workers int `json:"workers"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Adapter == "" {
		c.Adapter = "bridge"
	}
	if c.Epsilon <= 0 {
		c.Epsilon = 1e-5
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// Validate checks mandatory fields.
func (c SolverConfig) Validate() error {
	switch c.Adapter {
	case "bridge":
		if c.Command == "" {
			return fmt.Errorf("solver.command is required for the bridge adapter")
		}
	case "relaxation":
		if !c.Linearize {
			return fmt.Errorf("the relaxation adapter requires solver.linearize")
		}
	default:
		return fmt.Errorf("unknown solver adapter %s", c.Adapter)
	}
	if c.TimeLimitSeconds < 0 {
		return fmt.Errorf("solver.time_limit_seconds must not be negative")
	}
	return nil
}
