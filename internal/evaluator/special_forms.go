package evaluator

import (
	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/runtime"
)

func (ev *Evaluator) evalSpecial(name string, call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	switch name {
	case config.IfFuncName:
		return ev.evalIf(call, env)
	case config.WhenFuncName:
		return ev.evalWhen(call, env, false)
	case config.UnlessFuncName:
		return ev.evalWhen(call, env, true)
	case config.CondFuncName:
		return ev.evalCond(call, env)
	case config.LoopFuncName:
		return ev.evalLoop(call, env)
	case config.WhileFuncName:
		return ev.evalWhile(call, env)
	case config.BreakFuncName:
		return ev.evalBreak(call, env)
	case config.ContinueFuncName:
		return ev.evalContinue(call, env)
	case config.AndFuncName:
		return ev.evalLogical(call, env, true)
	case config.OrFuncName:
		return ev.evalLogical(call, env, false)
	case config.TryFuncName:
		return ev.evalTry(call, env)
	}
	return runtime.Void(), sigNone
}

// evalBlock runs a branch operand: a zero-parameter literal shares the
// current frame, anything else evaluates as an expression.
func (ev *Evaluator) evalBlock(expr ast.Expression, env *Environment) (runtime.Value, signal) {
	if fl, ok := expr.(*ast.FunctionLiteral); ok && len(fl.Params) == 0 {
		return ev.evalStatements(fl.Body, env)
	}
	return ev.eval(expr, env)
}

func (ev *Evaluator) badForm(call *ast.CallExpression, format string, args ...any) (runtime.Value, signal) {
	runtime.RaiseError(runtime.ErrBadArity, call.Token.Line, format, args...)
	return runtime.Void(), sigNone
}

func (ev *Evaluator) evalIf(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	if len(call.Arguments) < 2 || len(call.Arguments) > 3 {
		return ev.badForm(call, "if needs a condition, a branch and an optional else branch")
	}
	cond, sig := ev.eval(call.Arguments[0], env)
	if sig != sigNone || runtime.ErrorActive() {
		return runtime.Void(), sig
	}
	if cond.Truthy() {
		return ev.evalBlock(call.Arguments[1], env)
	}
	if len(call.Arguments) == 3 {
		return ev.evalBlock(call.Arguments[2], env)
	}
	return runtime.Void(), sigNone
}

func (ev *Evaluator) evalWhen(call *ast.CallExpression, env *Environment, invert bool) (runtime.Value, signal) {
	if len(call.Arguments) != 2 {
		return ev.badForm(call, "%s needs a condition and a branch", call.Function.TokenLiteral())
	}
	cond, sig := ev.eval(call.Arguments[0], env)
	if sig != sigNone || runtime.ErrorActive() {
		return runtime.Void(), sig
	}
	if cond.Truthy() != invert {
		return ev.evalBlock(call.Arguments[1], env)
	}
	return runtime.Void(), sigNone
}

func (ev *Evaluator) evalCond(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	args := call.Arguments
	for len(args) > 0 {
		if id, ok := args[0].(*ast.Identifier); ok && id.Value == config.ElseClauseName {
			if len(args) != 2 {
				return ev.badForm(call, "else must be the final clause and carry exactly one branch")
			}
			return ev.evalBlock(args[1], env)
		}
		if len(args) == 1 {
			return ev.badForm(call, "cond clause is missing its branch")
		}
		cond, sig := ev.eval(args[0], env)
		if sig != sigNone || runtime.ErrorActive() {
			return runtime.Void(), sig
		}
		if cond.Truthy() {
			return ev.evalBlock(args[1], env)
		}
		args = args[2:]
	}
	return runtime.Void(), sigNone
}

func (ev *Evaluator) evalLoop(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	if len(call.Arguments) != 2 {
		return ev.badForm(call, "loop needs a count and a body")
	}
	count, sig := ev.eval(call.Arguments[0], env)
	if sig != sigNone || runtime.ErrorActive() {
		return runtime.Void(), sig
	}
	if count.Tag != runtime.TagInt {
		runtime.RaiseError(runtime.ErrTypeMismatch, call.Token.Line, "loop count must be an integer, got %s", count.Tag)
		return runtime.Void(), sigNone
	}
	n := count.AsInt()
	if n < 0 {
		runtime.RaiseError(runtime.ErrNegativeCount, call.Token.Line, "loop count is negative")
		return runtime.Void(), sigNone
	}

	body, indexName := loopBody(call.Arguments[1])
	for i := int64(0); i < n; i++ {
		if indexName != "" {
			env.Set(indexName, runtime.IntVal(i))
		}
		var v runtime.Value
		var sig signal
		if body != nil {
			v, sig = ev.evalStatements(body, env)
		} else {
			v, sig = ev.eval(call.Arguments[1], env)
		}
		if runtime.ErrorActive() {
			return runtime.Void(), sigNone
		}
		// A counted loop owns no break target: break and continue
		// pass through to the enclosing while.
		if sig != sigNone {
			return v, sig
		}
	}
	return runtime.Void(), sigNone
}

// loopBody unwraps a loop body literal with at most one (index)
// parameter. A non-literal body evaluates as an expression each
// iteration.
func loopBody(expr ast.Expression) ([]ast.Statement, string) {
	fl, ok := expr.(*ast.FunctionLiteral)
	if !ok {
		return nil, ""
	}
	if len(fl.Params) == 1 {
		return fl.Body, fl.Params[0].Value
	}
	return fl.Body, ""
}

func (ev *Evaluator) evalWhile(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	if len(call.Arguments) != 2 {
		return ev.badForm(call, "while needs a condition and a body")
	}
	for {
		cond, sig := ev.evalBlock(call.Arguments[0], env)
		if sig != sigNone || runtime.ErrorActive() {
			return runtime.Void(), sig
		}
		if !cond.Truthy() {
			return runtime.IntVal(0), sigNone
		}
		v, sig := ev.evalBlock(call.Arguments[1], env)
		if runtime.ErrorActive() {
			return runtime.Void(), sigNone
		}
		switch sig {
		case sigBreak:
			return v, sigNone
		case sigReturn:
			return v, sigReturn
		}
	}
}

func (ev *Evaluator) evalBreak(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	if len(call.Arguments) > 1 {
		return ev.badForm(call, "break takes at most one value")
	}
	v := runtime.IntVal(0)
	if len(call.Arguments) == 1 {
		var sig signal
		v, sig = ev.eval(call.Arguments[0], env)
		if sig != sigNone || runtime.ErrorActive() {
			return runtime.Void(), sig
		}
	}
	return v, sigBreak
}

func (ev *Evaluator) evalContinue(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	if len(call.Arguments) != 0 {
		return ev.badForm(call, "continue takes no value")
	}
	return runtime.Void(), sigContinue
}

func (ev *Evaluator) evalLogical(call *ast.CallExpression, env *Environment, isAnd bool) (runtime.Value, signal) {
	if len(call.Arguments) < 2 {
		return ev.badForm(call, "%s needs at least two operands", call.Function.TokenLiteral())
	}
	result := runtime.BoolVal(isAnd)
	for _, operand := range call.Arguments {
		v, sig := ev.eval(operand, env)
		if sig != sigNone || runtime.ErrorActive() {
			return runtime.Void(), sig
		}
		result = runtime.BoolVal(v.Truthy())
		if v.Truthy() != isAnd {
			break
		}
	}
	return result, sigNone
}

func (ev *Evaluator) evalTry(call *ast.CallExpression, env *Environment) (runtime.Value, signal) {
	if len(call.Arguments) < 1 || len(call.Arguments) > 2 {
		return ev.badForm(call, "try needs a body and an optional handler")
	}
	runtime.EnterCatch()
	v, sig := ev.evalBlock(call.Arguments[0], env)
	runtime.LeaveCatch()
	if !runtime.ErrorActive() {
		return v, sig
	}

	msg := runtime.StringVal(runtime.ErrorMessage())
	runtime.ClearError()
	if len(call.Arguments) == 1 {
		return runtime.Void(), sigNone
	}

	handler := call.Arguments[1]
	if fl, ok := handler.(*ast.FunctionLiteral); ok && len(fl.Params) <= 1 {
		if len(fl.Params) == 1 {
			env.Set(fl.Params[0].Value, msg)
		}
		return ev.evalStatements(fl.Body, env)
	}
	fn, hsig := ev.eval(handler, env)
	if hsig != sigNone || runtime.ErrorActive() {
		return runtime.Void(), hsig
	}
	return ev.applyValue(fn, []runtime.Value{msg}, call.Token.Line), sigNone
}
