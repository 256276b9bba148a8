package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ardnew/parembnet/lisp"
)

// Eval reads one or more source files (or stdin) and compiles and executes
// every top-level form found in them against the shared engine.
type Eval struct {
	Source []string `arg:"" help:"Input source file(s) or '-' for stdin" name:"source" optional:""`
}

// Run executes the eval command.
func (e *Eval) Run(ctx context.Context) error {
	engine := EngineFrom(ctx)
	if engine == nil {
		panic("internal error: engine not bound to context")
	}

	sources := e.Source
	if len(sources) == 0 {
		sources = []string{"-"}
	}

	src := buildSourceFiles(sources)
	if src == nil || src.IsZero() {
		return nil
	}

	buf, err := io.ReadAll(src)
	if err != nil {
		return lisp.ErrReadInput.With(slog.String("command", "eval")).Wrap(err)
	}

	results, err := engine.CompileAndExecute(ctx, string(buf))
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Println(lisp.Print(r.Output))
	}

	return nil
}
