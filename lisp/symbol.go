package lisp

// Symbol is an interned identifier tied to a package. Two symbols with the
// same name and package are identical references; interning is the
// responsibility of [Package.Intern].
type Symbol struct {
	Name     string
	Pkg      *Package
	Exported bool
}

// FullName returns "package_name:name", or just "name" if the symbol's
// package is the unnamed global package, per spec section 3. Both the
// global and keywords packages have an empty Name (spec section 3); they
// are told apart by PackageKind so the keywords package still prints and
// round-trips as ":name".
func (s *Symbol) FullName() string {
	if s == nil {
		return "<nil-symbol>"
	}

	if s.Pkg == nil || s.Pkg.Kind == GlobalPackage {
		return s.Name
	}

	return s.Pkg.Name + ":" + s.Name
}

// reservedGlobalSymbols are the symbol names that always intern in the
// global package regardless of the current package, per spec section 4.1.
var reservedGlobalSymbols = map[string]bool{
	"quote": true, "begin": true, "set!": true, "if": true, "if*": true,
	"while": true, "lambda": true, "defmacro": true, ".": true,
}
