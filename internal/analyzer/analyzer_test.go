package analyzer

import (
	"reflect"
	"testing"

	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/lexer"
	"github.com/lyra-lang/lyra/internal/parser"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/typesystem"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	ctx := pipeline.NewPipelineContext(src)
	tokens := lexer.New(src).Tokens()
	prog := parser.New(tokens, ctx).ParseProgram()
	if ctx.HasErrors() {
		t.Fatalf("parse errors: %v", ctx.Errors)
	}
	return prog
}

// firstFunction digs the first function literal out of a parsed
// program, whether it appears as an assignment value or bare.
func firstFunction(t *testing.T, src string) *ast.FunctionLiteral {
	t.Helper()
	prog := parseProgram(t, src)
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.Assignment:
			if fl, ok := s.Value.(*ast.FunctionLiteral); ok {
				return fl
			}
		case *ast.ExpressionStatement:
			if fl, ok := s.Expression.(*ast.FunctionLiteral); ok {
				return fl
			}
		}
	}
	t.Fatalf("no function literal in %q", src)
	return nil
}

func TestCapturesFreeVariable(t *testing.T) {
	fn := firstFunction(t, `f = {x -> (add x y)}`)
	got := Captures(fn)
	want := []string{"y"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestCapturesExcludesParamsLocalsAndBuiltins(t *testing.T) {
	src := `f = {x ->
		total = (add x 1)
		(println total free)
	}`
	fn := firstFunction(t, src)
	got := Captures(fn)
	want := []string{"free"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestCapturesAssignmentBindsBeforeUse(t *testing.T) {
	// A local assignment binds for the whole body, even when a use
	// textually precedes it.
	src := `f = {->
		(println v)
		v = 1
	}`
	fn := firstFunction(t, src)
	if got := Captures(fn); len(got) != 0 {
		t.Errorf("captures = %v, want none", got)
	}
}

func TestCapturesAssignmentTargetIsNotAUse(t *testing.T) {
	fn := firstFunction(t, `f = {-> v = 1}`)
	if got := Captures(fn); len(got) != 0 {
		t.Errorf("captures = %v, want none", got)
	}
}

func TestCapturesPropagateFromNestedFunctions(t *testing.T) {
	src := `f = {x ->
		inner = {y -> (add x y z)}
		inner
	}`
	fn := firstFunction(t, src)
	got := Captures(fn)
	want := []string{"z"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestCapturesFirstUseOrderDeduplicated(t *testing.T) {
	fn := firstFunction(t, `f = {-> (add b a b a)}`)
	got := Captures(fn)
	want := []string{"b", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("captures = %v, want %v", got, want)
	}
}

func TestCapturesMemoized(t *testing.T) {
	fn := firstFunction(t, `f = {-> (add p q)}`)
	first := Captures(fn)
	second := Captures(fn)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated analysis disagreed: %v vs %v", first, second)
	}
}

func TestInferReturnKinds(t *testing.T) {
	tests := []struct {
		src  string
		want typesystem.Kind
	}{
		{`f = {x -> <- (add x 1)}`, typesystem.Int},
		{`f = {x -> <- (add x 1.5)}`, typesystem.Float},
		{`f = {x -> <- (divide x 2)}`, typesystem.Float},
		{`f = {x -> <- (join x "!")}`, typesystem.String},
		{`f = {x -> <- (less_than x 3)}`, typesystem.Int},
		{`f = {x -> <- (sqrt x)}`, typesystem.Float},
		{`f = {x -> <- (floor x)}`, typesystem.Int},
		{`f = {x -> (println x)}`, typesystem.Void},
		{`f = {x -> <- x}`, typesystem.Unknown},
		{`f = {x -> <- (add x x)}`, typesystem.Unknown},
	}
	for _, tt := range tests {
		fn := firstFunction(t, tt.src)
		if got := InferFunction(fn).Return; got != tt.want {
			t.Errorf("%s: return kind = %s, want %s", tt.src, got, tt.want)
		}
	}
}

func TestInferLastStatementDecidesWithoutReturn(t *testing.T) {
	fn := firstFunction(t, `f = {->
		x = 1
		(multiply 2.0 3)
	}`)
	if got := InferFunction(fn).Return; got != typesystem.Float {
		t.Errorf("return kind = %s, want Float", got)
	}
}

func TestInferParamDefaultsFollowReturnKind(t *testing.T) {
	tests := []struct {
		src  string
		want typesystem.Kind
	}{
		{`f = {x -> <- (add x 1)}`, typesystem.Int},
		{`f = {x -> <- (divide x 2)}`, typesystem.Float},
		{`f = {x -> <- (join x "!")}`, typesystem.String},
		{`f = {x -> <- x}`, typesystem.Int},
	}
	for _, tt := range tests {
		fn := firstFunction(t, tt.src)
		ft := InferFunction(fn)
		if got := ft.Params[0]; got != tt.want {
			t.Errorf("%s: param kind = %s, want %s", tt.src, got, tt.want)
		}
	}
}

func TestInferParamRefinedByComparison(t *testing.T) {
	src := `f = {x ->
		(when (is x "quit") { (println "bye") })
		<- 0
	}`
	fn := firstFunction(t, src)
	ft := InferFunction(fn)
	if got := ft.Params[0]; got != typesystem.String {
		t.Errorf("param kind = %s, want String", got)
	}
	if got := ft.Return; got != typesystem.Int {
		t.Errorf("return kind = %s, want Int", got)
	}
}

func TestInferFloatComparisonUpgradesIntDefault(t *testing.T) {
	fn := firstFunction(t, `f = {x ->
		(if (is x 0.5) { <- 1 } { <- 2 })
	}`)
	ft := InferFunction(fn)
	if got := ft.Params[0]; got != typesystem.Float {
		t.Errorf("param kind = %s, want Float", got)
	}
}

func TestInferCalleeParamStaysUnknown(t *testing.T) {
	fn := firstFunction(t, `apply = {f x -> <- (f x)}`)
	ft := InferFunction(fn)
	if got := ft.Params[0]; got != typesystem.Unknown {
		t.Errorf("callee param kind = %s, want Unknown", got)
	}
	if got := ft.Params[1]; got != typesystem.Int {
		t.Errorf("argument param kind = %s, want Int", got)
	}
}

func TestInferDeterministic(t *testing.T) {
	src := `fib = {n ->
		(if (less_than n 2) { <- n } { <- (add (fib (subtract n 1)) (fib (subtract n 2))) })
	}`
	a := InferFunction(firstFunction(t, src))
	b := InferFunction(firstFunction(t, src))
	if a.Return != b.Return || !reflect.DeepEqual(a.Params, b.Params) {
		t.Errorf("inference not deterministic: %v vs %v", a, b)
	}
}

func TestInferIfBranchesMerge(t *testing.T) {
	fn := firstFunction(t, `f = {x ->
		(if (less_than x 0) { <- 1 } { <- 2.5 })
	}`)
	if got := InferFunction(fn).Return; got != typesystem.Float {
		t.Errorf("return kind = %s, want Float", got)
	}
}

func TestInferSurvivesMalformedBranchForms(t *testing.T) {
	for _, src := range []string{
		`f = {n -> (if)}`,
		`f = {n -> (when 1)}`,
		`f = {n -> (unless)}`,
		`f = {n -> (cond)}`,
	} {
		fn := firstFunction(t, src)
		if got := InferFunction(fn).Return; got != typesystem.Void {
			t.Errorf("%s: return kind = %s, want Void", src, got)
		}
	}
}
