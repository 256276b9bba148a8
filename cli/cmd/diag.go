package cmd

import (
	"context"
	"os"
)

// Diag dumps the engine's package, symbol, and macro tables as YAML, for
// inspecting what an eval session leaves behind.
type Diag struct {
	Indent int `default:"2" help:"Indent width for YAML output" short:"i"`
}

// Run executes the diag command.
func (d *Diag) Run(ctx context.Context) error {
	engine := EngineFrom(ctx)
	if engine == nil {
		panic("internal error: engine not bound to context")
	}

	return engine.DumpDiagnostics(ctx, os.Stdout, d.Indent)
}
