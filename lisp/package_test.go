package lisp_test

import (
	"testing"

	"github.com/ardnew/parembnet/lisp"
)

// TestIntern_IsIdempotent checks that interning the same name in the same
// package twice yields the identical symbol reference, per spec section 3.
func TestIntern_IsIdempotent(t *testing.T) {
	pkgs := lisp.NewPackages()

	a := pkgs.Global.Intern("frob")
	b := pkgs.Global.Intern("frob")

	if a != b {
		t.Error("Intern of the same name twice returned distinct symbols")
	}
}

// TestPackageImport_OnlyExportedVisible checks that Resolve only sees
// exported symbols of an imported package, per spec section 3.
func TestPackageImport_OnlyExportedVisible(t *testing.T) {
	pkgs := lisp.NewPackages()

	lib := pkgs.FindOrCreate("lib")
	hidden := lib.InternUnexported("hidden")
	shown := lib.Intern("shown")

	user := pkgs.FindOrCreate("user")
	user.Import(lib)

	if _, ok := user.Resolve("hidden"); ok {
		t.Error("unexported symbol from an imported package should not resolve")
	}

	got, ok := user.Resolve("shown")
	if !ok || got != shown {
		t.Error("exported symbol from an imported package should resolve to the same reference")
	}

	_ = hidden
}

// TestFreshUserPackage_ImportsCore checks that a package created via
// FindOrCreate automatically imports core, per spec section 3.
func TestFreshUserPackage_ImportsCore(t *testing.T) {
	pkgs := lisp.NewPackages()
	plusSym := pkgs.Core.Intern("+")
	lisp.Set(plusSym, lisp.Bool(true))

	user := pkgs.FindOrCreate("user")

	if _, ok := user.Resolve("+"); !ok {
		t.Error("a fresh user package must import core and see its exported symbols")
	}
}

// TestGlobalSet_NilDeletesBinding checks the GLOBAL_SET opcode's
// documented "nil deletes" semantics from spec section 4.3.
func TestGlobalSet_NilDeletesBinding(t *testing.T) {
	pkgs := lisp.NewPackages()
	sym := pkgs.Global.Intern("x")

	lisp.Set(sym, lisp.Int64(1))

	if _, ok := pkgs.Global.Get(sym); !ok {
		t.Fatal("expected x to be bound after Set")
	}

	lisp.Set(sym, lisp.Nil)

	if _, ok := pkgs.Global.Get(sym); ok {
		t.Error("Set(sym, Nil) should delete the binding")
	}
}

// TestSymbolFullName checks the "package_name:name" / "name" printing rule
// from spec section 3.
func TestSymbolFullName(t *testing.T) {
	pkgs := lisp.NewPackages()

	globalSym := pkgs.Global.Intern("foo")
	if got, want := globalSym.FullName(), "foo"; got != want {
		t.Errorf("global symbol FullName() = %q, want %q", got, want)
	}

	coreSym := pkgs.Core.Intern("bar")
	if got, want := coreSym.FullName(), "core:bar"; got != want {
		t.Errorf("core symbol FullName() = %q, want %q", got, want)
	}
}
