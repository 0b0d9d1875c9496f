package parser

import (
	"testing"

	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/lexer"
	"github.com/lyra-lang/lyra/internal/pipeline"
)

func parse(t *testing.T, input string) (*ast.Program, *pipeline.PipelineContext) {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	prog := New(lexer.New(input).Tokens(), ctx).ParseProgram()
	return prog, ctx
}

func parseClean(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, ctx := parse(t, input)
	if ctx.HasErrors() {
		t.Fatalf("unexpected errors: %v", ctx.Errors)
	}
	return prog
}

func TestAssignmentStatement(t *testing.T) {
	prog := parseClean(t, `answer = 42`)
	if len(prog.Statements) != 1 {
		t.Fatalf("statements = %d, want 1", len(prog.Statements))
	}
	assign, ok := prog.Statements[0].(*ast.Assignment)
	if !ok {
		t.Fatalf("statement is %T, want assignment", prog.Statements[0])
	}
	if assign.Name.Value != "answer" {
		t.Errorf("name = %q", assign.Name.Value)
	}
	lit, ok := assign.Value.(*ast.IntegerLiteral)
	if !ok || lit.Value != 42 {
		t.Errorf("value = %v, want integer 42", assign.Value)
	}
}

func TestCallExpression(t *testing.T) {
	prog := parseClean(t, `(add 1 (multiply 2 3))`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expression is %T, want call", stmt.Expression)
	}
	if fn, ok := call.Function.(*ast.Identifier); !ok || fn.Value != "add" {
		t.Errorf("callee = %v, want add", call.Function)
	}
	if len(call.Arguments) != 2 {
		t.Fatalf("arguments = %d, want 2", len(call.Arguments))
	}
	if _, ok := call.Arguments[1].(*ast.CallExpression); !ok {
		t.Errorf("second argument is %T, want nested call", call.Arguments[1])
	}
}

func TestFunctionLiteralForms(t *testing.T) {
	tests := []struct {
		input      string
		params     int
		statements int
	}{
		{`f = {x y -> (add x y)}`, 2, 1},
		{`f = {-> 42}`, 0, 1},
		{`f = {(print 1) 2}`, 0, 2},
		{`f = {x -> a = 1 <- (add x a)}`, 1, 2},
	}
	for _, tt := range tests {
		prog := parseClean(t, tt.input)
		fn, ok := prog.Statements[0].(*ast.Assignment).Value.(*ast.FunctionLiteral)
		if !ok {
			t.Fatalf("%q: value is not a function literal", tt.input)
		}
		if len(fn.Params) != tt.params {
			t.Errorf("%q: params = %d, want %d", tt.input, len(fn.Params), tt.params)
		}
		if len(fn.Body) != tt.statements {
			t.Errorf("%q: body statements = %d, want %d", tt.input, len(fn.Body), tt.statements)
		}
	}
}

func TestBareBlockIdentifiersAreNotParams(t *testing.T) {
	// Leading identifiers without an arrow are body statements.
	prog := parseClean(t, `f = {x}`)
	fn := prog.Statements[0].(*ast.Assignment).Value.(*ast.FunctionLiteral)
	if len(fn.Params) != 0 {
		t.Errorf("params = %d, want 0", len(fn.Params))
	}
	if len(fn.Body) != 1 {
		t.Errorf("body = %d statements, want 1", len(fn.Body))
	}
}

func TestReturnStatement(t *testing.T) {
	prog := parseClean(t, `f = {x -> <- x}`)
	fn := prog.Statements[0].(*ast.Assignment).Value.(*ast.FunctionLiteral)
	ret, ok := fn.Body[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("body statement is %T, want return", fn.Body[0])
	}
	if ret.Value == nil {
		t.Error("return value missing")
	}
}

func TestBareReturn(t *testing.T) {
	prog := parseClean(t, `f = {-> <-}`)
	fn := prog.Statements[0].(*ast.Assignment).Value.(*ast.FunctionLiteral)
	ret := fn.Body[0].(*ast.ReturnStatement)
	if ret.Value != nil {
		t.Errorf("return value = %v, want none", ret.Value)
	}
}

func TestListLiteral(t *testing.T) {
	prog := parseClean(t, `xs = [1, 2.5, "three", (add 2 2)]`)
	list, ok := prog.Statements[0].(*ast.Assignment).Value.(*ast.ListLiteral)
	if !ok {
		t.Fatal("value is not a list literal")
	}
	if len(list.Elements) != 4 {
		t.Fatalf("elements = %d, want 4", len(list.Elements))
	}
	// Commas are optional separators.
	prog = parseClean(t, `xs = [1 2 3]`)
	list = prog.Statements[0].(*ast.Assignment).Value.(*ast.ListLiteral)
	if len(list.Elements) != 3 {
		t.Errorf("elements = %d, want 3", len(list.Elements))
	}
}

func TestNegativeLiterals(t *testing.T) {
	prog := parseClean(t, `x = -5`)
	lit := prog.Statements[0].(*ast.Assignment).Value.(*ast.IntegerLiteral)
	if lit.Value != -5 {
		t.Errorf("value = %d, want -5", lit.Value)
	}
}

func TestHexLiteral(t *testing.T) {
	prog := parseClean(t, `x = 0x1A`)
	lit := prog.Statements[0].(*ast.Assignment).Value.(*ast.IntegerLiteral)
	if lit.Value != 26 {
		t.Errorf("value = %d, want 26", lit.Value)
	}
}

func errorCodes(ctx *pipeline.PipelineContext) []diagnostics.ErrorCode {
	var codes []diagnostics.ErrorCode
	for _, err := range ctx.Errors {
		codes = append(codes, err.Code)
	}
	return codes
}

func TestErrorRecovery(t *testing.T) {
	tests := []struct {
		input string
		code  diagnostics.ErrorCode
	}{
		{`(add 1 2`, diagnostics.ErrP002},
		{`f = {x -> x`, diagnostics.ErrP003},
		{`x = `, diagnostics.ErrP004},
		{`x = ]`, diagnostics.ErrP001},
	}
	for _, tt := range tests {
		_, ctx := parse(t, tt.input)
		if !ctx.HasErrors() {
			t.Errorf("%q: no errors reported", tt.input)
			continue
		}
		found := false
		for _, code := range errorCodes(ctx) {
			if code == tt.code {
				found = true
			}
		}
		if !found {
			t.Errorf("%q: codes %v, want %s", tt.input, errorCodes(ctx), tt.code)
		}
	}
}

func TestParserKeepsGoingAfterError(t *testing.T) {
	prog, ctx := parse(t, "x = ]\ny = 2")
	if !ctx.HasErrors() {
		t.Fatal("expected an error for the first statement")
	}
	found := false
	for _, stmt := range prog.Statements {
		if assign, ok := stmt.(*ast.Assignment); ok && assign.Name.Value == "y" {
			found = true
		}
	}
	if !found {
		t.Error("second statement lost during recovery")
	}
}
