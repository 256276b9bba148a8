package lisp

import (
	"context"
	"io"

	"github.com/goccy/go-yaml"
)

// packageDiag is the per-package slice of [Context.DumpDiagnostics]' YAML
// tree: symbol/value/macro counts and imported package names.
type packageDiag struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Symbols int      `yaml:"symbols"`
	Values  int      `yaml:"values"`
	Macros  int      `yaml:"macros"`
	Imports []string `yaml:"imports,omitempty"`
}

// diagnostics is the root of the YAML tree DumpDiagnostics renders, giving
// the diag command/tooling a snapshot of package and code-arena state.
type diagnostics struct {
	CodeBlocks int           `yaml:"code_blocks"`
	Packages   []packageDiag `yaml:"packages"`
}

func (k PackageKind) diagName() string {
	switch k {
	case GlobalPackage:
		return "global"
	case KeywordsPackage:
		return "keywords"
	default:
		return "named"
	}
}

// DumpDiagnostics renders the package registry and code arena as YAML,
// the way aenv's AST.FormatYAML renders a parsed tree, for diag-command
// introspection rather than for round-tripping.
func (c *Context) DumpDiagnostics(ctx context.Context, w io.Writer, indent int) error {
	diag := diagnostics{CodeBlocks: c.Arena.Len()}

	for _, pkg := range c.Packages.All() {
		imports := make([]string, 0, len(pkg.Imports()))
		for _, imp := range pkg.Imports() {
			imports = append(imports, imp.Name)
		}

		diag.Packages = append(diag.Packages, packageDiag{
			Name:    pkg.Name,
			Kind:    pkg.Kind.diagName(),
			Symbols: len(pkg.symbols),
			Values:  len(pkg.values),
			Macros:  len(pkg.macros),
			Imports: imports,
		})
	}

	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	out, err := yaml.MarshalContext(ctx, diag, opts...)
	if err != nil {
		return err
	}

	_, err = w.Write(out)

	return err
}
