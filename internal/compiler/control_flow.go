package compiler

import (
	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/ir"
	"github.com/lyra-lang/lyra/internal/runtime"
	"github.com/lyra-lang/lyra/internal/typesystem"
)

func (fc *funcCompiler) compileSpecial(name string, call *ast.CallExpression) ir.Reg {
	switch name {
	case config.IfFuncName:
		return fc.compileIf(call)
	case config.WhenFuncName:
		return fc.compileWhen(call, false)
	case config.UnlessFuncName:
		return fc.compileWhen(call, true)
	case config.CondFuncName:
		return fc.compileCond(call)
	case config.LoopFuncName:
		return fc.compileLoop(call)
	case config.WhileFuncName:
		return fc.compileWhile(call)
	case config.BreakFuncName:
		return fc.compileBreak(call)
	case config.ContinueFuncName:
		return fc.compileContinue(call)
	case config.AndFuncName:
		return fc.compileLogical(call, true)
	case config.OrFuncName:
		return fc.compileLogical(call, false)
	case config.TryFuncName:
		return fc.compileTry(call)
	}
	return fc.constVoid()
}

// inlineBlock lowers a branch operand into the current block. A
// zero-parameter literal is a block and its body shares this frame;
// anything else is an ordinary expression, evaluated only when the
// branch is taken.
func (fc *funcCompiler) inlineBlock(expr ast.Expression) ir.Reg {
	if fl, ok := expr.(*ast.FunctionLiteral); ok && len(fl.Params) == 0 {
		return fc.compileStatements(fl.Body)
	}
	return fc.compileExpr(expr)
}

// compileTwoWay lowers a condition plus two lazily compiled arms and
// merges their results with a phi. Arms that end in return or break do
// not reach the merge; if neither arm does, the merge block is dead.
// Incompatible result kinds at the merge are a compile error.
func (fc *funcCompiler) compileTwoWay(cond ir.Reg, node ast.Node, thenArm, elseArm func() ir.Reg) ir.Reg {
	thenB := fc.f.NewBlock()
	elseB := fc.f.NewBlock()
	fc.seal(ir.Terminator{Kind: ir.TermBranch, Cond: cond, Then: thenB.Index, Else: elseB.Index}, thenB)

	type arm struct {
		val  ir.Reg
		end  *ir.Block
		dead bool
	}
	run := func(b *ir.Block, f func() ir.Reg) arm {
		fc.cur = b
		fc.dead = false
		val := f()
		return arm{val: val, end: fc.cur, dead: fc.dead}
	}
	t := run(thenB, thenArm)
	e := run(elseB, elseArm)

	mergeB := fc.f.NewBlock()
	if t.dead && e.dead {
		fc.cur = mergeB
		fc.dead = true
		return fc.constVoid()
	}

	kindOfArm := func(a arm) typesystem.Kind {
		if a.val == ir.NoReg {
			return typesystem.Void
		}
		return fc.kindOf(a.val)
	}
	merged := typesystem.Void
	for _, a := range []arm{t, e} {
		if a.dead {
			continue
		}
		m, ok := typesystem.Merge(merged, kindOfArm(a))
		if !ok {
			fc.c.errorf(diagnostics.ErrC001, node, "branches produce %s and %s, which cannot merge", kindOfArm(t), kindOfArm(e))
		}
		merged = m
	}

	phi := ir.Phi{Dst: fc.f.NewReg(merged)}
	for _, a := range []arm{t, e} {
		if a.dead {
			continue
		}
		fc.cur = a.end
		fc.dead = false
		val := a.val
		if val == ir.NoReg {
			val = fc.constVoid()
		}
		val = fc.coerce(val, merged, node.GetToken().Line)
		src := ir.PhiSource{Pred: fc.cur.Index, Src: val}
		fc.seal(ir.Terminator{Kind: ir.TermJump, Then: mergeB.Index}, mergeB)
		phi.Sources = append(phi.Sources, src)
	}
	mergeB.Phis = append(mergeB.Phis, phi)
	fc.cur = mergeB
	fc.dead = false
	return phi.Dst
}

func (fc *funcCompiler) compileIf(call *ast.CallExpression) ir.Reg {
	if len(call.Arguments) < 2 || len(call.Arguments) > 3 {
		fc.c.errorf(diagnostics.ErrC002, call, "if needs a condition, a branch and an optional else branch")
		return fc.constVoid()
	}
	cond := fc.compileExpr(call.Arguments[0])
	elseArm := func() ir.Reg { return fc.constVoid() }
	if len(call.Arguments) == 3 {
		elseArm = func() ir.Reg { return fc.inlineBlock(call.Arguments[2]) }
	}
	return fc.compileTwoWay(cond, call, func() ir.Reg { return fc.inlineBlock(call.Arguments[1]) }, elseArm)
}

func (fc *funcCompiler) compileWhen(call *ast.CallExpression, invert bool) ir.Reg {
	if len(call.Arguments) != 2 {
		fc.c.errorf(diagnostics.ErrC002, call, "%s needs a condition and a branch", call.Function.TokenLiteral())
		return fc.constVoid()
	}
	cond := fc.compileExpr(call.Arguments[0])
	if invert {
		dst := fc.f.NewReg(typesystem.Int)
		fc.emit(ir.Instr{Op: ir.OpNot, Dst: dst, A: cond})
		cond = dst
	}
	return fc.compileTwoWay(cond, call,
		func() ir.Reg { return fc.inlineBlock(call.Arguments[1]) },
		func() ir.Reg { return fc.constVoid() })
}

func (fc *funcCompiler) compileCond(call *ast.CallExpression) ir.Reg {
	if len(call.Arguments) == 0 {
		fc.c.errorf(diagnostics.ErrC002, call, "cond needs at least one clause")
		return fc.constVoid()
	}
	return fc.compileCondClauses(call, call.Arguments)
}

func (fc *funcCompiler) compileCondClauses(call *ast.CallExpression, args []ast.Expression) ir.Reg {
	if len(args) == 0 {
		return fc.constVoid()
	}
	if id, ok := args[0].(*ast.Identifier); ok && id.Value == config.ElseClauseName {
		if len(args) != 2 {
			fc.c.errorf(diagnostics.ErrC002, call, "else must be the final clause and carry exactly one branch")
			return fc.constVoid()
		}
		return fc.inlineBlock(args[1])
	}
	if len(args) == 1 {
		fc.c.errorf(diagnostics.ErrC002, call, "cond clause is missing its branch")
		return fc.constVoid()
	}
	cond := fc.compileExpr(args[0])
	return fc.compileTwoWay(cond, call,
		func() ir.Reg { return fc.inlineBlock(args[1]) },
		func() ir.Reg { return fc.compileCondClauses(call, args[2:]) })
}

// compileLoop lowers (loop count body): a counted loop with a
// zero-based index. The count is checked for a negative value up
// front; the loop itself always runs to completion.
func (fc *funcCompiler) compileLoop(call *ast.CallExpression) ir.Reg {
	if len(call.Arguments) != 2 {
		fc.c.errorf(diagnostics.ErrC002, call, "loop needs a count and a body")
		return fc.constVoid()
	}
	line := call.Token.Line

	count := fc.compileExpr(call.Arguments[0])
	switch fc.kindOf(count) {
	case typesystem.Int:
	case typesystem.Unknown:
		count = fc.unbox(count, typesystem.Int, line)
	default:
		fc.c.errorf(diagnostics.ErrC001, call, "loop count must be an integer, not %s", fc.kindOf(count))
		return fc.constVoid()
	}

	zero := fc.constVal(runtime.IntVal(0), typesystem.Int)
	neg := fc.f.NewReg(typesystem.Int)
	fc.emit(ir.Instr{Op: ir.OpLessInt, Dst: neg, Args: []ir.Reg{count, zero}})

	raiseB := fc.f.NewBlock()
	preB := fc.f.NewBlock()
	exitB := fc.f.NewBlock()
	fc.seal(ir.Terminator{Kind: ir.TermBranch, Cond: neg, Then: raiseB.Index, Else: preB.Index}, raiseB)
	fc.emit(ir.Instr{Op: ir.OpRaise, Err: runtime.ErrNegativeCount, Name: "loop count is negative", Line: line})
	fc.seal(ir.Terminator{Kind: ir.TermJump, Then: exitB.Index}, preB)

	headerB := fc.f.NewBlock()
	idx := fc.f.NewReg(typesystem.Int)
	fc.jumpTo(headerB)

	bodyB := fc.f.NewBlock()
	cmp := fc.f.NewReg(typesystem.Int)
	fc.emit(ir.Instr{Op: ir.OpLessInt, Dst: cmp, Args: []ir.Reg{idx, count}})
	fc.seal(ir.Terminator{Kind: ir.TermBranch, Cond: cmp, Then: bodyB.Index, Else: exitB.Index}, bodyB)

	fc.dead = false
	if fl, ok := call.Arguments[1].(*ast.FunctionLiteral); ok {
		if len(fl.Params) > 1 {
			fc.c.errorf(diagnostics.ErrC002, call, "loop body takes at most the index parameter")
		} else {
			if len(fl.Params) == 1 {
				fc.vars[fl.Params[0].Value] = idx
			}
			fc.compileStatements(fl.Body)
		}
	} else {
		fc.compileExpr(call.Arguments[1])
	}

	phi := ir.Phi{Dst: idx, Sources: []ir.PhiSource{{Pred: preB.Index, Src: zero}}}
	if fc.dead {
		fc.dead = false
		fc.seal(ir.Terminator{Kind: ir.TermJump, Then: exitB.Index}, exitB)
	} else {
		one := fc.constVal(runtime.IntVal(1), typesystem.Int)
		idxNext := fc.f.NewReg(typesystem.Int)
		fc.emit(ir.Instr{Op: ir.OpAddInt, Dst: idxNext, Args: []ir.Reg{idx, one}})
		phi.Sources = append(phi.Sources, ir.PhiSource{Pred: fc.cur.Index, Src: idxNext})
		fc.seal(ir.Terminator{Kind: ir.TermJump, Then: headerB.Index}, exitB)
	}
	headerB.Phis = append(headerB.Phis, phi)

	fc.cur = exitB
	return fc.constVoid()
}

// compileWhile lowers (while cond body). The loop's value is the one
// a break carries, or 0 when the condition falls through.
func (fc *funcCompiler) compileWhile(call *ast.CallExpression) ir.Reg {
	if len(call.Arguments) != 2 {
		fc.c.errorf(diagnostics.ErrC002, call, "while needs a condition and a body")
		return fc.constVoid()
	}

	result := fc.f.NewReg(typesystem.Unknown)
	fc.emit(ir.Instr{Op: ir.OpConst, Dst: result, Val: runtime.IntVal(0)})

	headerB := fc.f.NewBlock()
	fc.jumpTo(headerB)

	// The condition re-evaluates every iteration, so its block lowers
	// inside the header.
	cond := fc.inlineBlock(call.Arguments[0])

	bodyB := fc.f.NewBlock()
	exitB := fc.f.NewBlock()
	fc.seal(ir.Terminator{Kind: ir.TermBranch, Cond: cond, Then: bodyB.Index, Else: exitB.Index}, bodyB)

	fc.loops = append(fc.loops, &loopFrame{
		contBlock:   headerB.Index,
		breakBlock:  exitB.Index,
		result:      result,
		openCatches: fc.openCatches,
	})
	fc.dead = false
	fc.compileStatements(bodyStatements(call.Arguments[1]))
	fc.loops = fc.loops[:len(fc.loops)-1]

	if fc.dead {
		fc.dead = false
		fc.seal(ir.Terminator{Kind: ir.TermJump, Then: exitB.Index}, exitB)
	} else {
		fc.seal(ir.Terminator{Kind: ir.TermJump, Then: headerB.Index}, exitB)
	}
	fc.cur = exitB
	return result
}

// bodyStatements unwraps a block literal; a bare expression becomes a
// single-statement body.
func bodyStatements(expr ast.Expression) []ast.Statement {
	if fl, ok := expr.(*ast.FunctionLiteral); ok && len(fl.Params) == 0 {
		return fl.Body
	}
	return []ast.Statement{&ast.ExpressionStatement{Token: expr.GetToken(), Expression: expr}}
}

func (fc *funcCompiler) compileBreak(call *ast.CallExpression) ir.Reg {
	frame := fc.innermostLoop()
	if frame == nil {
		fc.c.errorf(diagnostics.ErrC003, call, "break outside a while loop")
		return fc.constVoid()
	}
	if len(call.Arguments) > 1 {
		fc.c.errorf(diagnostics.ErrC002, call, "break takes at most one value")
		return fc.constVoid()
	}
	if len(call.Arguments) == 1 && frame.result != ir.NoReg {
		v := fc.box(fc.compileExpr(call.Arguments[0]))
		fc.emit(ir.Instr{Op: ir.OpMove, Dst: frame.result, A: v})
	}
	fc.leaveCatchesDownTo(frame.openCatches)
	fc.seal(ir.Terminator{Kind: ir.TermJump, Then: frame.breakBlock}, fc.f.NewBlock())
	fc.dead = true
	return fc.constVoid()
}

func (fc *funcCompiler) compileContinue(call *ast.CallExpression) ir.Reg {
	frame := fc.innermostLoop()
	if frame == nil {
		fc.c.errorf(diagnostics.ErrC003, call, "continue outside a while loop")
		return fc.constVoid()
	}
	if len(call.Arguments) != 0 {
		fc.c.errorf(diagnostics.ErrC002, call, "continue takes no value")
		return fc.constVoid()
	}
	fc.leaveCatchesDownTo(frame.openCatches)
	fc.seal(ir.Terminator{Kind: ir.TermJump, Then: frame.contBlock}, fc.f.NewBlock())
	fc.dead = true
	return fc.constVoid()
}

func (fc *funcCompiler) innermostLoop() *loopFrame {
	if len(fc.loops) == 0 {
		return nil
	}
	return fc.loops[len(fc.loops)-1]
}

func (fc *funcCompiler) leaveCatchesDownTo(depth int) {
	for i := fc.openCatches; i > depth; i-- {
		fc.emit(ir.Instr{Op: ir.OpLeaveCatch})
	}
}

// compileLogical lowers and/or as a short-circuit branch chain over
// integer truth values. Later operands only evaluate when the chain
// has not already decided.
func (fc *funcCompiler) compileLogical(call *ast.CallExpression, isAnd bool) ir.Reg {
	name := config.OrFuncName
	if isAnd {
		name = config.AndFuncName
	}
	if len(call.Arguments) < 2 {
		fc.c.errorf(diagnostics.ErrC004, call, "%s needs at least two operands", name)
		return fc.constVoid()
	}

	result := fc.f.NewReg(typesystem.Int)
	end := fc.f.NewBlock()
	for i, operand := range call.Arguments {
		v := fc.compileExpr(operand)
		switch fc.kindOf(v) {
		case typesystem.String, typesystem.Float:
			fc.c.errorf(diagnostics.ErrC001, call, "%s operand must have an integer representation, not %s", name, fc.kindOf(v))
		}
		t := fc.truth01(v)
		fc.emit(ir.Instr{Op: ir.OpMove, Dst: result, A: t})
		if i == len(call.Arguments)-1 {
			fc.seal(ir.Terminator{Kind: ir.TermJump, Then: end.Index}, end)
			break
		}
		next := fc.f.NewBlock()
		if isAnd {
			fc.seal(ir.Terminator{Kind: ir.TermBranch, Cond: t, Then: next.Index, Else: end.Index}, next)
		} else {
			fc.seal(ir.Terminator{Kind: ir.TermBranch, Cond: t, Then: end.Index, Else: next.Index}, next)
		}
	}
	fc.cur = end
	return result
}

// truth01 normalizes any register to integer 0/1 with a double not.
func (fc *funcCompiler) truth01(r ir.Reg) ir.Reg {
	inv := fc.f.NewReg(typesystem.Int)
	fc.emit(ir.Instr{Op: ir.OpNot, Dst: inv, A: r})
	dst := fc.f.NewReg(typesystem.Int)
	fc.emit(ir.Instr{Op: ir.OpNot, Dst: dst, A: inv})
	return dst
}

// compileTry lowers (try body handler). The body runs under a pushed
// catch handler; when the flag goes up, control transfers to the
// handler block with the error message bound to the handler's
// parameter.
func (fc *funcCompiler) compileTry(call *ast.CallExpression) ir.Reg {
	if len(call.Arguments) < 1 || len(call.Arguments) > 2 {
		fc.c.errorf(diagnostics.ErrC004, call, "try needs a body and an optional handler")
		return fc.constVoid()
	}

	result := fc.f.NewReg(typesystem.Unknown)
	handlerB := fc.f.NewBlock()
	mergeB := fc.f.NewBlock()

	fc.emit(ir.Instr{Op: ir.OpEnterCatch, Target: handlerB.Index})
	fc.openCatches++
	bodyVal := fc.inlineBlock(call.Arguments[0])
	fc.openCatches--

	bodyDead := fc.dead
	if !bodyDead {
		fc.emit(ir.Instr{Op: ir.OpLeaveCatch})
		if bodyVal == ir.NoReg {
			bodyVal = fc.constVoid()
		}
		fc.emit(ir.Instr{Op: ir.OpMove, Dst: result, A: fc.box(bodyVal)})
	}
	fc.dead = false
	fc.seal(ir.Terminator{Kind: ir.TermJump, Then: mergeB.Index}, handlerB)

	msg := fc.f.NewReg(typesystem.String)
	fc.emit(ir.Instr{Op: ir.OpFlagMessage, Dst: msg})
	fc.emit(ir.Instr{Op: ir.OpClearFlag})

	var handlerVal ir.Reg
	if len(call.Arguments) == 2 {
		handlerVal = fc.compileHandler(call.Arguments[1], msg, call.Token.Line)
	} else {
		handlerVal = fc.constVoid()
	}
	handlerDead := fc.dead
	if !handlerDead {
		if handlerVal == ir.NoReg {
			handlerVal = fc.constVoid()
		}
		fc.emit(ir.Instr{Op: ir.OpMove, Dst: result, A: fc.box(handlerVal)})
	}
	fc.dead = false
	fc.seal(ir.Terminator{Kind: ir.TermJump, Then: mergeB.Index}, mergeB)

	fc.cur = mergeB
	fc.dead = bodyDead && handlerDead
	return result
}

func (fc *funcCompiler) compileHandler(expr ast.Expression, msg ir.Reg, line int) ir.Reg {
	if fl, ok := expr.(*ast.FunctionLiteral); ok && len(fl.Params) <= 1 {
		if len(fl.Params) == 1 {
			fc.vars[fl.Params[0].Value] = msg
		}
		return fc.compileStatements(fl.Body)
	}
	// A handler that is not a literal is a closure value; apply it to
	// the message.
	fn := fc.box(fc.compileExpr(expr))
	dst := fc.f.NewReg(typesystem.Unknown)
	fc.emit(ir.Instr{Op: ir.OpCallClosure, Dst: dst, A: fn, Args: []ir.Reg{fc.box(msg)}, Line: line})
	return dst
}
