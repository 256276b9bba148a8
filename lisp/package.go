package lisp

import "log/slog"

// PackageKind distinguishes the three well-known packages (spec section 3)
// from ordinary user packages; it is what makes the global and keywords
// packages (which both have an empty Name) tell their full-name printing
// apart in [Symbol.FullName].
type PackageKind uint8

const (
	// NamedPackage is an ordinary, named package (including "core").
	NamedPackage PackageKind = iota
	// GlobalPackage is the unnamed package new top-level forms compile in.
	GlobalPackage
	// KeywordsPackage holds symbols written as ":foo" in source.
	KeywordsPackage
)

// Package owns an interning table, value bindings, a macro table, and an
// ordered list of imported packages, per spec section 3.
type Package struct {
	Name    string
	Kind    PackageKind
	symbols map[string]*Symbol
	values  map[*Symbol]Val
	macros  map[*Symbol]*Macro
	imports []*Package
}

// newPackage allocates an empty package with the given name and kind.
func newPackage(name string, kind PackageKind) *Package {
	return &Package{
		Name:    name,
		Kind:    kind,
		symbols: make(map[string]*Symbol),
		values:  make(map[*Symbol]Val),
		macros:  make(map[*Symbol]*Macro),
	}
}

// Intern returns the unique symbol with the given name in p, creating it if
// necessary. A newly created symbol is exported (visible to importers).
func (p *Package) Intern(name string) *Symbol {
	if s, ok := p.symbols[name]; ok {
		return s
	}

	s := &Symbol{Name: name, Pkg: p, Exported: true}
	p.symbols[name] = s

	return s
}

// InternUnexported interns name as a non-exported symbol, unless it already
// exists (in which case its exported flag is left unchanged).
func (p *Package) InternUnexported(name string) *Symbol {
	if s, ok := p.symbols[name]; ok {
		return s
	}

	s := &Symbol{Name: name, Pkg: p, Exported: false}
	p.symbols[name] = s

	return s
}

// Find looks up name without interning it, returning (nil, false) when it
// does not exist in p (imports are not considered).
func (p *Package) Find(name string) (*Symbol, bool) {
	s, ok := p.symbols[name]

	return s, ok
}

// Import adds pkg to p's ordered import list, unless it is already present.
func (p *Package) Import(pkg *Package) {
	for _, imp := range p.imports {
		if imp == pkg {
			return
		}
	}

	p.imports = append(p.imports, pkg)
}

// Imports returns the ordered list of imported packages.
func (p *Package) Imports() []*Package { return append([]*Package(nil), p.imports...) }

// Symbols returns every symbol interned in p, own table only, for
// introspection and completion (e.g. the REPL's fuzzy completer).
func (p *Package) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(p.symbols))
	for _, s := range p.symbols {
		out = append(out, s)
	}

	return out
}

// Resolve looks up name, searching p's own table first, then the exported
// symbols of each imported package in import order, per spec section 3.
func (p *Package) Resolve(name string) (*Symbol, bool) {
	if s, ok := p.symbols[name]; ok {
		return s, true
	}

	for _, imp := range p.imports {
		if s, ok := imp.symbols[name]; ok && s.Exported {
			return s, true
		}
	}

	return nil, false
}

// Get returns the value bound to sym, walking imports the same way Resolve
// does. Unbound symbols yield (Nil, false).
func (p *Package) Get(sym *Symbol) (Val, bool) {
	if v, ok := p.values[sym]; ok {
		return v, true
	}

	if sym.Pkg != nil && sym.Pkg != p {
		if v, ok := sym.Pkg.values[sym]; ok {
			return v, true
		}
	}

	for _, imp := range p.imports {
		if s, ok := imp.symbols[sym.Name]; ok && s.Exported {
			if v, ok := imp.values[s]; ok {
				return v, true
			}
		}
	}

	return Nil, false
}

// Set binds sym to v in sym's home package. A nil (Val{Kind: KindNil})
// value deletes the binding, per the GLOBAL_SET opcode semantics in spec
// section 4.3.
func Set(sym *Symbol, v Val) {
	home := sym.Pkg
	if v.Kind == KindNil {
		delete(home.values, sym)

		return
	}

	home.values[sym] = v
}

// MacroOf looks up a macro bound to sym in sym's home package.
func MacroOf(sym *Symbol) (*Macro, bool) {
	if sym.Pkg == nil {
		return nil, false
	}

	m, ok := sym.Pkg.macros[sym]

	return m, ok
}

// DefineMacro installs m under sym in sym's home package.
func DefineMacro(sym *Symbol, m *Macro) {
	sym.Pkg.macros[sym] = m
}

// Packages is the registry of all packages known to a [Context], including
// the three well-known packages created at startup (spec section 3).
type Packages struct {
	byName  map[string]*Package
	Core    *Package
	Global  *Package
	Keyword *Package
}

// NewPackages constructs the registry with core, global, and keywords
// already created and core imported into global.
func NewPackages() *Packages {
	p := &Packages{byName: make(map[string]*Package)}

	p.Core = newPackage("core", NamedPackage)
	p.Global = newPackage("", GlobalPackage)
	p.Keyword = newPackage("", KeywordsPackage)

	p.byName["core"] = p.Core
	p.Global.Import(p.Core)

	return p
}

// Find looks up a named package by name (not including the unnamed global
// or keywords packages, which are reached via the Global/Keyword fields).
func (p *Packages) Find(name string) (*Package, bool) {
	pkg, ok := p.byName[name]

	return pkg, ok
}

// FindOrCreate returns the named package, creating a fresh one (which
// automatically imports core, per spec section 3) if it does not exist.
func (p *Packages) FindOrCreate(name string) *Package {
	if pkg, ok := p.byName[name]; ok {
		return pkg
	}

	pkg := newPackage(name, NamedPackage)
	pkg.Import(p.Core)
	p.byName[name] = pkg

	return pkg
}

// All returns every named package in the registry, plus global and
// keywords, for diagnostics/introspection.
func (p *Packages) All() []*Package {
	out := make([]*Package, 0, len(p.byName)+2)
	out = append(out, p.Global, p.Keyword)

	for _, pkg := range p.byName {
		out = append(out, pkg)
	}

	return out
}

// LogValue implements slog.LogValuer for structured diagnostics of the
// registry's shape.
func (p *Packages) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("package_count", len(p.byName)+2),
		slog.Int("core_symbol_count", len(p.Core.symbols)),
	)
}
