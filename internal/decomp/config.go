// Package decomp composes the decompilation pipeline: reader, linker,
// call graph, prototype engine, simulator, structurer and emitter, over
// an explicit configuration value. The core holds no globals; an entire
// decompilation is a pure function of (bytecode, action table, config).
package decomp

import "ncsdec/internal/infer"

// Game profiles select which action-table source the CLI loads.
const (
	GameK1 = "k1"
	GameK2 = "k2"
)

// Config is the pipeline configuration record.
type Config struct {
	// StrictSignatures fails the run if any reachable subroutine keeps
	// an Any parameter or return slot.
	StrictSignatures bool

	// GameProfile names the action-table source (GameK1 or GameK2).
	// The core only records it; table loading happens in the CLI.
	GameProfile string

	// MaxIterations caps the per-component fixed-point passes.
	MaxIterations int

	// PreserveDeadSubroutines keeps subroutines unreachable from the
	// entry point in the output.
	PreserveDeadSubroutines bool

	// MaxDiagnostics bounds the diagnostics bag.
	MaxDiagnostics int
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = infer.DefaultMaxIterations
	}
	if c.MaxDiagnostics <= 0 {
		c.MaxDiagnostics = 100
	}
	if c.GameProfile == "" {
		c.GameProfile = GameK1
	}
	return c
}
