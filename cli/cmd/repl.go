package cmd

import (
	"context"

	"github.com/ardnew/parembnet/cli/cmd/repl"
	"github.com/ardnew/parembnet/log"
)

// Repl starts the interactive read-eval-print loop.
type Repl struct{}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	engine := EngineFrom(ctx)
	if engine == nil {
		panic("internal error: engine not bound to context")
	}

	return repl.Run(ctx, engine, log.With())
}
