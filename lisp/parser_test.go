package lisp_test

import (
	"errors"
	"io"
	"testing"

	"github.com/ardnew/parembnet/lisp"
)

func newTestParser(t *testing.T) (*lisp.Parser, *lisp.Packages) {
	t.Helper()

	pkgs := lisp.NewPackages()

	return lisp.NewParser(pkgs, pkgs.Global), pkgs
}

// TestParseNext_RoundTrip checks parse(print(v)) == v for literal forms
// constructible from source syntax, per spec section 8's round-trip law.
func TestParseNext_RoundTrip(t *testing.T) {
	forms := []string{
		`()`,
		`#t`,
		`#f`,
		`42`,
		`3.5`,
		`"hello world"`,
		`foo`,
		`(1 2 3)`,
		`(1 . 2)`,
		`(a b . c)`,
	}

	for _, form := range forms {
		t.Run(form, func(t *testing.T) {
			p, _ := newTestParser(t)
			p.AddString(form)

			v, err := p.ParseNext()
			if err != nil {
				t.Fatalf("ParseNext(%q): %v", form, err)
			}

			printed := lisp.Print(v)

			p2, _ := newTestParser(t)
			p2.AddString(printed)

			v2, err := p2.ParseNext()
			if err != nil {
				t.Fatalf("ParseNext(%q) [re-parse of %q]: %v", form, printed, err)
			}

			if lisp.Print(v2) != printed {
				t.Errorf("parse(print(parse(%q))) = %q, want %q", form, lisp.Print(v2), printed)
			}
		})
	}
}

// TestParseNext_IncompleteReturnsEOF confirms an incomplete expression
// leaves the buffer untouched and reports io.EOF rather than an error, per
// spec section 4.1.
func TestParseNext_IncompleteReturnsEOF(t *testing.T) {
	p, _ := newTestParser(t)
	p.AddString(`(+ 1 2`)

	_, err := p.ParseNext()
	if !errors.Is(err, io.EOF) {
		t.Fatalf("ParseNext on incomplete input = %v, want io.EOF", err)
	}

	p.AddString(`)`)

	v, err := p.ParseNext()
	if err != nil {
		t.Fatalf("ParseNext after completing input: %v", err)
	}

	if got, want := lisp.Print(v), "(+ 1 2)"; got != want {
		t.Errorf("ParseNext after completing input = %q, want %q", got, want)
	}
}

// TestParseNext_Errors checks the documented parser failure modes.
func TestParseNext_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want *lisp.Error
	}{
		{"unexpected close paren", `)`, lisp.ErrUnexpectedCloseParen},
		{"unquote outside backquote", `,x`, lisp.ErrUnquoteOutsideBackquote},
		{"unquote-splicing outside backquote", `,@x`, lisp.ErrUnquoteOutsideBackquote},
		{"unknown package prefix", `nosuchpkg:x`, lisp.ErrUnknownPackagePrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestParser(t)
			p.AddString(tt.src)

			_, err := p.ParseNext()

			got, ok := lisp.AsError(err)
			if !ok {
				t.Fatalf("ParseNext(%q) error = %v, want a *lisp.Error", tt.src, err)
			}

			if !errors.Is(got, tt.want) {
				t.Errorf("ParseNext(%q) error = %v, want kind matching %v", tt.src, got, tt.want)
			}
		})
	}
}

// TestBackquote_ListCollapse checks the peephole pass that rewrites
// (append (list a) (list b) ...) into (list a b ...) when every bracketed
// element is a plain, non-splicing sub-form.
func TestBackquote_ListCollapse(t *testing.T) {
	p, pkgs := newTestParser(t)
	p.AddString("`(1 2 3)")

	v, err := p.ParseNext()
	if err != nil {
		t.Fatalf("ParseNext: %v", err)
	}

	items, ok := lisp.ListToSlice(v)
	if !ok || len(items) == 0 {
		t.Fatalf("expected a non-empty proper list, got %s", lisp.Print(v))
	}

	head := items[0]
	if head.Kind != lisp.KindSymbol || head.Symbol() != pkgs.Global.Intern("list") {
		t.Errorf("collapsed backquote head = %s, want list", lisp.Print(head))
	}
}

// TestBackquote_UnquoteSplicing mirrors spec section 8 scenario 4.
func TestBackquote_UnquoteSplicing(t *testing.T) {
	got := lisp.Print(evalLast(t, "`((list 1 2) ,(list 1 2) ,@(list 1 2))"))

	const want = "((list 1 2) (1 2) 1 2)"
	if got != want {
		t.Errorf("backquote/unquote-splicing = %q, want %q", got, want)
	}
}

// TestReservedSymbols_InternGlobally checks that reserved-keyword atoms
// always intern into the global package even when the current package is
// something else, per spec section 4.1.
func TestReservedSymbols_InternGlobally(t *testing.T) {
	pkgs := lisp.NewPackages()
	user := pkgs.FindOrCreate("user")
	p := lisp.NewParser(pkgs, user)

	p.AddString("if")

	v, err := p.ParseNext()
	if err != nil {
		t.Fatalf("ParseNext: %v", err)
	}

	if v.Kind != lisp.KindSymbol {
		t.Fatalf("expected a symbol, got %s", lisp.Print(v))
	}

	if v.Symbol().Pkg != pkgs.Global {
		t.Errorf("reserved symbol %q interned in %v, want the global package", "if", v.Symbol().Pkg)
	}
}
