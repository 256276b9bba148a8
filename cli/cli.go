// Package cli wires the engine into a Kong-driven command-line interface:
// logging and profiling flags, source-file handling, and the eval/repl/diag
// subcommands.
package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/parembnet/cli/cmd"
	"github.com/ardnew/parembnet/lisp"
	"github.com/ardnew/parembnet/log"
	"github.com/ardnew/parembnet/pkg"
)

// CLI is the top-level command-line interface for the engine.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	NoStdLib bool `help:"Skip loading the bundled standard library"`

	Eval cmd.Eval `cmd:"" default:"withargs" help:"Compile and execute source files"`
	Repl cmd.Repl `cmd:""                    help:"Start the interactive read-eval-print loop"`
	Diag cmd.Diag `cmd:""                    help:"Dump package and symbol diagnostics as YAML"`
}

// Run executes the CLI with the given context and arguments. The exit
// function is called with the appropriate exit code upon completion.
func Run(ctx context.Context, exit func(code int), args ...string) error {
	var c CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	vars := kong.Vars{}.
		CloneWith(c.Log.vars()).
		CloneWith(c.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags so logging is configured correctly
	// regardless of where on the command line they appear.
	c.Log.scan(args)

	parser, err := kong.New(&c,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups([]kong.Group{c.Log.group(), c.Pprof.group()}),
		kong.BindSingletonProvider(func() context.Context { return ctx }),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			Tree:                true,
			NoExpandSubcommands: true,
		}),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	engine, err := lisp.NewContext(!c.NoStdLib, log.With())
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEngine(ctx, engine)

	defer c.Log.start(ctx)()
	defer c.Pprof.start(ctx)()

	return ktx.Run(ctx, &c)
}
