package lisp_test

import (
	"context"
	"testing"

	"github.com/ardnew/parembnet/lisp"
	"github.com/ardnew/parembnet/log"
)

func newTestContext(t *testing.T) *lisp.Context {
	t.Helper()

	ctx, err := lisp.NewContext(true, log.Logger{})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	return ctx
}

func evalLast(t *testing.T, src string) lisp.Val {
	t.Helper()

	ctx := newTestContext(t)

	results, err := ctx.CompileAndExecute(context.Background(), src)
	if err != nil {
		t.Fatalf("CompileAndExecute(%q): %v", src, err)
	}

	if len(results) == 0 {
		t.Fatalf("CompileAndExecute(%q): no results", src)
	}

	return results[len(results)-1].Output
}

// TestEndToEnd_ConcreteScenarios exercises the six end-to-end scenarios.
func TestEndToEnd_ConcreteScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "arithmetic",
			src:  `(+ 1 2)`,
			want: "3",
		},
		{
			name: "while loop counter",
			src:  `(begin (set! x 0) (while (< x 5) (set! x (+ x 1))) x)`,
			want: "5",
		},
		{
			name: "dotted lambda rest arg",
			src:  `((lambda (a . b) b) 5 6 7 8)`,
			want: "(6 7 8)",
		},
		{
			name: "backquote unquote splice",
			src:  "`((list 1 2) ,(list 1 2) ,@(list 1 2))",
			want: "((list 1 2) (1 2) 1 2)",
		},
		{
			name: "defmacro",
			src:  "(begin (defmacro inc1 (x) `(+ ,x 1)) (inc1 (inc1 1)))",
			want: "3",
		},
		{
			name: "recursive factorial",
			src:  `(begin (set! fact (lambda (x) (if (<= x 1) 1 (* x (fact (- x 1)))))) (fact 5))`,
			want: "120",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lisp.Print(evalLast(t, tt.src))
			if got != tt.want {
				t.Errorf("eval(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

// TestTailCall_DoesNotGrowStack confirms that deep self-recursion via a
// tail-position call terminates instead of overflowing the host stack.
func TestTailCall_DoesNotGrowStack(t *testing.T) {
	const src = `
(begin
  (set! loop (lambda (n) (if (= n 0) 'ok (loop (- n 1)))))
  (loop 100000))`

	got := lisp.Print(evalLast(t, src))
	if got != "ok" {
		t.Errorf("deep tail loop = %q, want %q", got, "ok")
	}
}

// TestEvalQuote_Identity checks (eval (quote e)) = e for a representative
// sample of forms the compiler accepts.
func TestEvalQuote_Identity(t *testing.T) {
	tests := []string{
		`42`,
		`"hi"`,
		`foo`,
		`(list 1 2 3)`,
	}

	for _, form := range tests {
		src := `(eval (quote ` + form + `))`

		got := lisp.Print(evalLast(t, src))

		want := lisp.Print(evalLast(t, form))
		if got != want {
			t.Errorf("(eval (quote %s)) = %q, want %q", form, got, want)
		}
	}
}

// TestMacroexpand1_IdempotentOnNonMacro checks that macroexpand-1 is a
// no-op on a form whose head is not a macro.
func TestMacroexpand1_IdempotentOnNonMacro(t *testing.T) {
	const form = `(+ 1 2)`

	first := lisp.Print(evalLast(t, `(macroexpand-1 (quote `+form+`))`))
	second := lisp.Print(evalLast(t, `(macroexpand-1 (macroexpand-1 (quote `+form+`)))`))

	if first != second {
		t.Errorf("macroexpand-1 not idempotent: %q vs %q", first, second)
	}

	if first != form {
		t.Errorf("macroexpand-1 on non-macro changed the form: got %q", first)
	}
}

// TestErrorPropagation_AbortsOnlyThatExpression confirms a failing
// expression does not prevent earlier, already-evaluated side effects
// from sticking, and that subsequent independent calls still work.
func TestErrorPropagation_AbortsOnlyThatExpression(t *testing.T) {
	ctx := newTestContext(t)

	_, err := ctx.CompileAndExecute(context.Background(), `(set! x 1) (car 5)`)
	if err == nil {
		t.Fatalf("expected error from (car 5)")
	}

	results, err := ctx.CompileAndExecute(context.Background(), `x`)
	if err != nil {
		t.Fatalf("CompileAndExecute after error: %v", err)
	}

	if got := lisp.Print(results[0].Output); got != "1" {
		t.Errorf("x after aborted expression = %q, want %q", got, "1")
	}
}
