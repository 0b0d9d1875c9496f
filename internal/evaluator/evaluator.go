// Package evaluator is the tree-walking backend: it runs the AST
// directly over boxed runtime values, with no analysis or lowering.
// It and the compile backend implement the same language; the
// interpreter is the semantic reference, the compiler the fast path.
package evaluator

import (
	"io"

	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/runtime"
)

// signal is the non-local control outcome of evaluating a node.
type signal uint8

const (
	sigNone signal = iota
	sigReturn
	sigBreak
	sigContinue
)

// Closure is the interpreter's function value: the literal plus its
// defining environment.
type Closure struct {
	Fn  *ast.FunctionLiteral
	Env *Environment
}

type Evaluator struct {
	table   map[string]*builtins.Builtin
	bctx    *builtins.Context
	globals *Environment
}

// New builds an evaluator over a capability-filtered builtin table.
func New(table map[string]*builtins.Builtin) *Evaluator {
	ev := &Evaluator{
		table:   table,
		bctx:    builtins.NewContext(0),
		globals: NewEnvironment(),
	}
	ev.bctx.Apply = ev.applyValue
	return ev
}

func (ev *Evaluator) SetOutput(w io.Writer) {
	ev.bctx.Out = w
}

// SetImport installs the module loader hook used by the import
// builtin.
func (ev *Evaluator) SetImport(load func(spec string, line int) runtime.Value) {
	ev.bctx.Import = load
}

// Globals exposes the top-level bindings, for tests and the module
// loader.
func (ev *Evaluator) Globals() *Environment {
	return ev.globals
}

// Run evaluates the program and returns the value of its last
// top-level statement. A raised, uncaught error flag stops evaluation;
// the caller inspects the flag.
func (ev *Evaluator) Run(prog *ast.Program) runtime.Value {
	v, _ := ev.evalStatements(prog.Statements, ev.globals)
	return v
}

func (ev *Evaluator) evalStatements(stmts []ast.Statement, env *Environment) (runtime.Value, signal) {
	result := runtime.Void()
	for _, stmt := range stmts {
		v, sig := ev.evalStatement(stmt, env)
		if runtime.ErrorActive() {
			return runtime.Void(), sigNone
		}
		if sig != sigNone {
			return v, sig
		}
		result = v
	}
	return result, sigNone
}

func (ev *Evaluator) evalStatement(stmt ast.Statement, env *Environment) (runtime.Value, signal) {
	switch s := stmt.(type) {
	case *ast.Assignment:
		v, sig := ev.eval(s.Value, env)
		if sig != sigNone || runtime.ErrorActive() {
			return v, sig
		}
		env.Set(s.Name.Value, v)
		return v, sigNone
	case *ast.ReturnStatement:
		if s.Value == nil {
			return runtime.Void(), sigReturn
		}
		v, sig := ev.eval(s.Value, env)
		if sig != sigNone {
			return v, sig
		}
		return v, sigReturn
	case *ast.ExpressionStatement:
		return ev.eval(s.Expression, env)
	default:
		return runtime.Void(), sigNone
	}
}

func (ev *Evaluator) eval(expr ast.Expression, env *Environment) (runtime.Value, signal) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return runtime.IntVal(e.Value), sigNone
	case *ast.FloatLiteral:
		return runtime.FloatVal(e.Value), sigNone
	case *ast.StringLiteral:
		return runtime.StringVal(e.Value), sigNone
	case *ast.Identifier:
		return ev.evalIdentifier(e, env), sigNone
	case *ast.ListLiteral:
		return ev.evalListLiteral(e, env)
	case *ast.FunctionLiteral:
		return runtime.ClosureVal(&Closure{Fn: e, Env: env}), sigNone
	case *ast.CallExpression:
		return ev.evalCall(e, env)
	default:
		return runtime.Void(), sigNone
	}
}

func (ev *Evaluator) evalIdentifier(id *ast.Identifier, env *Environment) runtime.Value {
	if v, ok := env.Get(id.Value); ok {
		return v
	}
	runtime.RaiseError(runtime.ErrUndefinedName, id.Token.Line, "undefined name %q", id.Value)
	return runtime.Void()
}

func (ev *Evaluator) evalListLiteral(l *ast.ListLiteral, env *Environment) (runtime.Value, signal) {
	items := make([]runtime.Value, 0, len(l.Elements))
	for _, el := range l.Elements {
		v, sig := ev.eval(el, env)
		if sig != sigNone || runtime.ErrorActive() {
			return runtime.Void(), sig
		}
		items = append(items, v)
	}
	return runtime.ListVal(&runtime.List{Items: items}), sigNone
}

func (ev *Evaluator) evalCall(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	if id, ok := call.Function.(*ast.Identifier); ok {
		if _, bound := env.Get(id.Value); !bound {
			if isSpecialForm(id.Value) {
				return ev.evalSpecial(id.Value, call, env)
			}
			if b, ok := ev.table[id.Value]; ok && b.Fn != nil {
				return ev.evalBuiltinCall(b, call, env), sigNone
			}
		}
	}

	fn, sig := ev.eval(call.Function, env)
	if sig != sigNone || runtime.ErrorActive() {
		return runtime.Void(), sig
	}
	args, sig := ev.evalArgs(call.Arguments, env)
	if sig != sigNone || runtime.ErrorActive() {
		return runtime.Void(), sig
	}
	return ev.applyValue(fn, args, call.Token.Line), sigNone
}

func (ev *Evaluator) evalArgs(exprs []ast.Expression, env *Environment) ([]runtime.Value, signal) {
	args := make([]runtime.Value, 0, len(exprs))
	for _, a := range exprs {
		v, sig := ev.eval(a, env)
		if sig != sigNone || runtime.ErrorActive() {
			return nil, sig
		}
		args = append(args, v)
	}
	return args, sigNone
}

func (ev *Evaluator) evalBuiltinCall(b *builtins.Builtin, call *ast.CallExpression, env *Environment) runtime.Value {
	args, sig := ev.evalArgs(call.Arguments, env)
	if sig != sigNone || runtime.ErrorActive() {
		return runtime.Void()
	}
	if !b.CheckArity(len(args)) {
		runtime.RaiseError(runtime.ErrBadArity, call.Token.Line, "%s called with %d arguments", b.Name, len(args))
		return runtime.Void()
	}
	ev.bctx.Line = call.Token.Line
	return b.Fn(ev.bctx, args)
}

// applyValue applies a closure value to already-evaluated arguments.
func (ev *Evaluator) applyValue(fn runtime.Value, args []runtime.Value, line int) runtime.Value {
	if fn.Tag != runtime.TagClosure {
		runtime.RaiseError(runtime.ErrTypeMismatch, line, "cannot call %s", fn.Tag)
		return runtime.Void()
	}
	cl, ok := fn.Obj.(*Closure)
	if !ok {
		runtime.RaiseError(runtime.ErrTypeMismatch, line, "foreign closure")
		return runtime.Void()
	}
	if len(args) != len(cl.Fn.Params) {
		runtime.RaiseError(runtime.ErrBadArity, line, "function expects %d arguments, got %d", len(cl.Fn.Params), len(args))
		return runtime.Void()
	}
	frame := NewEnclosedEnvironment(cl.Env)
	for i, p := range cl.Fn.Params {
		frame.Set(p.Value, args[i])
	}
	v, sig := ev.evalStatements(cl.Fn.Body, frame)
	_ = sig // return unwinds here; break/continue never cross a call
	return v
}

func isSpecialForm(name string) bool {
	switch name {
	case config.IfFuncName, config.WhenFuncName, config.UnlessFuncName,
		config.CondFuncName, config.LoopFuncName, config.WhileFuncName,
		config.BreakFuncName, config.ContinueFuncName,
		config.AndFuncName, config.OrFuncName, config.TryFuncName:
		return true
	}
	return false
}
