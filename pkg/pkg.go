// Package pkg holds project-identifying metadata shared by the CLI and its
// help/version output.
package pkg

import (
	_ "embed"
)

//go:embed VERSION
var Version string

const (
	// Name is the canonical command and module identifier.
	Name = "parembnet"
	// Description is a short, human-readable summary for help output.
	Description = "Compile-then-execute Lisp engine"
)
