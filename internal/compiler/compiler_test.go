package compiler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/ir"
	"github.com/lyra-lang/lyra/internal/lexer"
	"github.com/lyra-lang/lyra/internal/parser"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/runtime"
)

func compileSource(t *testing.T, src string) (*ir.Module, *pipeline.PipelineContext) {
	t.Helper()
	ctx := pipeline.NewPipelineContext(src)
	ctx.TokenStream = lexer.New(src).Tokens()
	prog := parser.New(ctx.TokenStream, ctx).ParseProgram()
	if ctx.HasErrors() {
		t.Fatalf("parse errors: %v", ctx.Errors)
	}
	return Compile(prog, ctx), ctx
}

func run(t *testing.T, src string) runtime.Value {
	t.Helper()
	v, _ := runCapture(t, src)
	return v
}

func runCapture(t *testing.T, src string) (runtime.Value, string) {
	t.Helper()
	runtime.ClearError()
	mod, ctx := compileSource(t, src)
	if ctx.HasErrors() {
		t.Fatalf("compile errors: %v", ctx.Errors)
	}
	ex := ir.NewExecutor(mod, builtins.Table(nil))
	var out bytes.Buffer
	ex.SetOutput(&out)
	v := ex.Run()
	return v, out.String()
}

func compileError(t *testing.T, src string, code diagnostics.ErrorCode) {
	t.Helper()
	_, ctx := compileSource(t, src)
	if !ctx.HasErrors() {
		t.Fatalf("expected a %s diagnostic, got none", code)
	}
	for _, err := range ctx.Errors {
		if err.Code == code {
			return
		}
	}
	t.Fatalf("expected a %s diagnostic, got %v", code, ctx.Errors)
}

func testInt(t *testing.T, v runtime.Value, want int64) {
	t.Helper()
	if v.Tag != runtime.TagInt {
		t.Fatalf("got %s (%s), want int %d", v.Inspect(), v.Tag, want)
	}
	if v.AsInt() != want {
		t.Errorf("got %d, want %d", v.AsInt(), want)
	}
}

func testFloat(t *testing.T, v runtime.Value, want float64) {
	t.Helper()
	if v.Tag != runtime.TagFloat {
		t.Fatalf("got %s (%s), want float %g", v.Inspect(), v.Tag, want)
	}
	if v.AsFloat() != want {
		t.Errorf("got %g, want %g", v.AsFloat(), want)
	}
}

func testString(t *testing.T, v runtime.Value, want string) {
	t.Helper()
	if v.Tag != runtime.TagString {
		t.Fatalf("got %s (%s), want string %q", v.Inspect(), v.Tag, want)
	}
	if v.AsString() != want {
		t.Errorf("got %q, want %q", v.AsString(), want)
	}
}

func TestArithmetic(t *testing.T) {
	testInt(t, run(t, `(add 1 2 3)`), 6)
	testInt(t, run(t, `(subtract 10 4)`), 6)
	testInt(t, run(t, `(multiply 3 4)`), 12)
	testFloat(t, run(t, `(add 1 2.5)`), 3.5)
	testFloat(t, run(t, `(divide 7 2)`), 3.5)
	testInt(t, run(t, `(remainder 7 3)`), 1)
}

func TestStringBuiltins(t *testing.T) {
	testString(t, run(t, `(join "foo" "bar")`), "foobar")
	testString(t, run(t, `(repeat "ab" 3)`), "ababab")
	testInt(t, run(t, `(length "hello")`), 5)
}

func TestLocalsAndGlobals(t *testing.T) {
	testInt(t, run(t, `
		x = 4
		y = (add x 1)
		(multiply x y)
	`), 20)
}

func TestFibonacciEndToEnd(t *testing.T) {
	src := `
		fib = {n ->
			(if (less_than n 2) { <- n } {
				<- (add (fib (subtract n 1)) (fib (subtract n 2)))
			})
		}
		(fib 10)
	`
	testInt(t, run(t, src), 55)
}

func TestMutualRecursion(t *testing.T) {
	src := `
		even? = {n -> (if (is n 0) { <- 1 } { <- (odd? (subtract n 1)) }) }
		odd? = {n -> (if (is n 0) { <- 0 } { <- (even? (subtract n 1)) }) }
		(even? 10)
	`
	testInt(t, run(t, src), 1)
}

func TestIfMergePromotesIntToFloat(t *testing.T) {
	testFloat(t, run(t, `(if 1 { 1 } { 2.5 })`), 1)
	testFloat(t, run(t, `(if 0 { 1 } { 2.5 })`), 2.5)
}

func TestIfWithoutElseGivesZeroDefault(t *testing.T) {
	// A merged void side adopts the branch kind with its zero value.
	testInt(t, run(t, `(if 0 { 1 })`), 0)
	testFloat(t, run(t, `(if 0 { 1.5 })`), 0)
}

func TestVoidIsNotZero(t *testing.T) {
	testInt(t, run(t, `(is (print) 0)`), 0)
	testInt(t, run(t, `(is (print) (print))`), 1)
}

func TestIncompatibleMergeIsACompileError(t *testing.T) {
	compileError(t, `(if 1 { "a" } { 2 })`, diagnostics.ErrC001)
}

func TestWhenAndUnless(t *testing.T) {
	testInt(t, run(t, `(when 1 { 42 })`), 42)
	testInt(t, run(t, `(when 0 { 42 })`), 0)
	testInt(t, run(t, `(unless 0 { 42 })`), 42)
}

func TestCondChain(t *testing.T) {
	src := `
		classify = {n ->
			(cond
				(less_than n 0) { <- "negative" }
				(is n 0)        { <- "zero" }
				else            { <- "positive" })
		}
		(join (classify -5) (classify 0) (classify 5))
	`
	testString(t, run(t, src), "negativezeropositive")
}

func TestLoopRunsCountTimesWithIndex(t *testing.T) {
	src := `
		total = (ref 0)
		(loop 5 {i -> (set! total (add (deref total) i)) })
		(deref total)
	`
	testInt(t, run(t, src), 10)
}

func TestLoopZeroCountSkipsBody(t *testing.T) {
	_, out := runCapture(t, `(loop 0 { (println "never") })`)
	if out != "" {
		t.Errorf("body ran: %q", out)
	}
}

func TestLoopNegativeCountRaises(t *testing.T) {
	runtime.ClearError()
	mod, ctx := compileSource(t, `(loop -1 { 1 })`)
	if ctx.HasErrors() {
		t.Fatalf("compile errors: %v", ctx.Errors)
	}
	ir.NewExecutor(mod, builtins.Table(nil)).Run()
	if !runtime.ErrorActive() {
		t.Fatal("expected the error flag to be raised")
	}
	runtime.ClearError()
}

func TestWhileWithBreakValue(t *testing.T) {
	src := `
		i = 0
		(while 1 {
			i = (add i 1)
			(when (greater_than i 5) { (break (multiply i 10)) })
		})
	`
	testInt(t, run(t, src), 60)
}

func TestWhileContinueSkips(t *testing.T) {
	src := `
		i = 0
		evens = (ref 0)
		(while (less_than i 10) {
			i = (add i 1)
			(when (is (remainder i 2) 1) { (continue) })
			(set! evens (add (deref evens) i))
		})
		(deref evens)
	`
	testInt(t, run(t, src), 30)
}

func TestBreakOutsideLoopIsACompileError(t *testing.T) {
	compileError(t, `(break)`, diagnostics.ErrC003)
	compileError(t, `(continue)`, diagnostics.ErrC003)
}

func TestShortCircuitSuppressesSideEffects(t *testing.T) {
	_, out := runCapture(t, `(or 1 (println "skipped"))`)
	if strings.Contains(out, "skipped") {
		t.Errorf("or evaluated its second operand: %q", out)
	}
	_, out = runCapture(t, `(and 0 (println "skipped"))`)
	if strings.Contains(out, "skipped") {
		t.Errorf("and evaluated its second operand: %q", out)
	}
}

func TestLogicalResults(t *testing.T) {
	testInt(t, run(t, `(and 1 2)`), 1)
	testInt(t, run(t, `(and 1 0)`), 0)
	testInt(t, run(t, `(or 0 0)`), 0)
	testInt(t, run(t, `(or 0 3)`), 1)
}

func TestLogicalNeedsTwoOperands(t *testing.T) {
	compileError(t, `(and 1)`, diagnostics.ErrC004)
}

func TestClosureCapture(t *testing.T) {
	src := `
		make_adder = {n -> <- {x -> <- (add x n)} }
		add5 = (make_adder 5)
		(add5 37)
	`
	testInt(t, run(t, src), 42)
}

func TestDivideByZeroCaughtByTry(t *testing.T) {
	src := `(try { (divide 1 0) } {msg -> <- "caught" })`
	testString(t, run(t, src), "caught")
	if runtime.ErrorActive() {
		t.Fatal("flag should be cleared after the handler ran")
	}
}

func TestTryPassesThroughOnSuccess(t *testing.T) {
	testInt(t, run(t, `(try { (add 1 2) } { "unused" })`), 3)
}

func TestUncaughtErrorUnwinds(t *testing.T) {
	runtime.ClearError()
	mod, ctx := compileSource(t, `
		(divide 1 0)
		(println "unreachable")
	`)
	if ctx.HasErrors() {
		t.Fatalf("compile errors: %v", ctx.Errors)
	}
	ex := ir.NewExecutor(mod, builtins.Table(nil))
	var out bytes.Buffer
	ex.SetOutput(&out)
	v := ex.Run()
	if !v.IsVoid() {
		t.Errorf("got %s, want void", v.Inspect())
	}
	if !runtime.ErrorActive() {
		t.Fatal("expected the error flag to stay raised")
	}
	if out.Len() != 0 {
		t.Errorf("statements after the failure still ran: %q", out.String())
	}
	runtime.ClearError()
}

func TestUndefinedNameRaisesAtRuntime(t *testing.T) {
	testString(t, run(t, `(try { nope } {msg -> <- "caught" })`), "caught")
}

func TestListsAndBuiltins(t *testing.T) {
	testInt(t, run(t, `(length [1, 2, 3])`), 3)
	testInt(t, run(t, `(head [7, 8])`), 7)
	testInt(t, run(t, `(nth [10, 20, 30] 2)`), 30)
}

func TestPolymorphicEqualityInCompiledCode(t *testing.T) {
	testInt(t, run(t, `(is 1 1.0)`), 1)
	testInt(t, run(t, `(is "a" "a")`), 1)
	testInt(t, run(t, `(is "1" 1)`), 0)
}

func TestHigherOrderCallThroughRegister(t *testing.T) {
	src := `
		apply_twice = {f x -> <- (f (f x)) }
		(apply_twice {n -> <- (multiply n 3)} 2)
	`
	testInt(t, run(t, src), 18)
}

func TestPrintlnOutput(t *testing.T) {
	_, out := runCapture(t, `(println "hi" 1 2.5)`)
	if out != "hi12.5\n" {
		t.Errorf("output = %q", out)
	}
}
