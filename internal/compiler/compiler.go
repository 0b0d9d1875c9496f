// Package compiler lowers the AST into the control-flow-graph form in
// internal/ir. Functions get typed virtual registers where inference
// found a kind, boxed registers everywhere else; control flow becomes
// blocks, branches and phi merges.
package compiler

import (
	"fmt"

	"github.com/lyra-lang/lyra/internal/analyzer"
	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/ir"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/runtime"
	"github.com/lyra-lang/lyra/internal/typesystem"
)

// EntryFuncName names the synthesized function holding the top-level
// statements.
const EntryFuncName = "<entry>"

type Compiler struct {
	ctx     *pipeline.PipelineContext
	module  *ir.Module
	statics map[string]int // top-level function name -> func ID
}

// Compile lowers prog into an ir.Module. Diagnostics go to ctx; the
// returned module is only runnable when ctx has no errors.
func Compile(prog *ast.Program, ctx *pipeline.PipelineContext) *ir.Module {
	c := &Compiler{
		ctx:     ctx,
		module:  &ir.Module{},
		statics: map[string]int{},
	}

	// Top-level functions are statically linked: register their IDs
	// first so bodies can call each other and themselves by ID.
	type staticDef struct {
		fn   *ir.Func
		lit  *ast.FunctionLiteral
		name string
	}
	var defs []staticDef
	for _, stmt := range prog.Statements {
		a, ok := stmt.(*ast.Assignment)
		if !ok {
			continue
		}
		fl, ok := a.Value.(*ast.FunctionLiteral)
		if !ok {
			continue
		}
		fn := &ir.Func{Name: a.Name.Value}
		c.module.AddFunc(fn)
		c.statics[a.Name.Value] = fn.ID
		defs = append(defs, staticDef{fn: fn, lit: fl, name: a.Name.Value})
	}

	// Signatures first, then bodies, so a body can call a function
	// defined after it.
	for _, def := range defs {
		ft := analyzer.InferFunction(def.lit)
		def.fn.NumParams = len(def.lit.Params)
		def.fn.ParamKinds = ft.Params
		def.fn.RetKind = ft.Return
	}
	for _, def := range defs {
		c.compileFunc(def.fn, def.lit, nil)
	}

	entry := &ir.Func{Name: EntryFuncName}
	c.module.AddFunc(entry)
	c.module.Entry = entry.ID
	c.compileEntry(entry, prog)

	return c.module
}

func (c *Compiler) errorf(code diagnostics.ErrorCode, node ast.Node, format string, args ...any) {
	err := diagnostics.NewError(code, node.GetToken(), fmt.Sprintf(format, args...))
	err.File = c.ctx.FilePath
	c.ctx.Errors = append(c.ctx.Errors, err)
}

// funcCompiler lowers one function body. Inlined blocks (branches,
// loop bodies, try arms) share the frame of the enclosing function.
type funcCompiler struct {
	c   *Compiler
	f   *ir.Func
	cur *ir.Block

	vars     map[string]ir.Reg
	captures map[string]int
	loops    []*loopFrame

	topLevel    bool
	dead        bool // current path ended in return/break/continue
	openCatches int
	lambdas     int // nested literals named so far, for stable names
}

type loopFrame struct {
	contBlock   int
	breakBlock  int
	result      ir.Reg // NoReg when the construct discards break values
	openCatches int
}

// compileFunc fills fn from the literal. Arguments arrive boxed; the
// entry block unboxes each parameter whose inferred kind is known.
func (c *Compiler) compileFunc(fn *ir.Func, fl *ast.FunctionLiteral, captures []string) {
	ft := analyzer.InferFunction(fl)
	fn.NumParams = len(fl.Params)
	fn.ParamKinds = ft.Params
	fn.RetKind = ft.Return
	fn.Captures = captures

	fc := &funcCompiler{
		c:        c,
		f:        fn,
		vars:     map[string]ir.Reg{},
		captures: map[string]int{},
	}
	for i, name := range captures {
		fc.captures[name] = i
	}

	for range fl.Params {
		fn.NewReg(typesystem.Unknown)
	}
	fc.cur = fn.NewBlock()

	for i, p := range fl.Params {
		in := ir.Reg(i)
		kind := ft.Params[i]
		if kind == typesystem.Unknown {
			fc.vars[p.Value] = in
			continue
		}
		fc.vars[p.Value] = fc.unbox(in, kind, p.Token.Line)
	}

	last := fc.compileStatements(fl.Body)
	fc.finishReturn(last)
}

func (c *Compiler) compileEntry(fn *ir.Func, prog *ast.Program) {
	fc := &funcCompiler{
		c:        c,
		f:        fn,
		vars:     map[string]ir.Reg{},
		captures: map[string]int{},
		topLevel: true,
	}
	fc.cur = fn.NewBlock()
	last := fc.compileStatements(prog.Statements)
	fc.finishReturn(last)
}

func (fc *funcCompiler) finishReturn(last ir.Reg) {
	if fc.dead {
		fc.cur.Term = ir.Terminator{Kind: ir.TermReturn, Val: ir.NoReg}
		return
	}
	if last == ir.NoReg {
		fc.cur.Term = ir.Terminator{Kind: ir.TermReturn, Val: ir.NoReg}
		return
	}
	fc.cur.Term = ir.Terminator{Kind: ir.TermReturn, Val: fc.box(last)}
}

func (fc *funcCompiler) emit(in ir.Instr) {
	fc.cur.Instrs = append(fc.cur.Instrs, in)
}

// seal terminates the current block and switches to next.
func (fc *funcCompiler) seal(t ir.Terminator, next *ir.Block) {
	fc.cur.Term = t
	fc.cur = next
}

func (fc *funcCompiler) jumpTo(next *ir.Block) {
	fc.seal(ir.Terminator{Kind: ir.TermJump, Then: next.Index}, next)
}

func (fc *funcCompiler) kindOf(r ir.Reg) typesystem.Kind {
	return fc.f.KindOf(r)
}

func (fc *funcCompiler) constVal(v runtime.Value, k typesystem.Kind) ir.Reg {
	dst := fc.f.NewReg(k)
	fc.emit(ir.Instr{Op: ir.OpConst, Dst: dst, Val: v})
	return dst
}

func (fc *funcCompiler) constVoid() ir.Reg {
	return fc.constVal(runtime.Void(), typesystem.Void)
}

// box moves r to the universal representation. The value layout does
// not change; the register loses its static kind.
func (fc *funcCompiler) box(r ir.Reg) ir.Reg {
	if fc.kindOf(r) == typesystem.Unknown {
		return r
	}
	dst := fc.f.NewReg(typesystem.Unknown)
	fc.emit(ir.Instr{Op: ir.OpBox, Dst: dst, A: r})
	return dst
}

// unbox narrows a boxed register to kind, with a run-time tag check.
func (fc *funcCompiler) unbox(r ir.Reg, kind typesystem.Kind, line int) ir.Reg {
	dst := fc.f.NewReg(kind)
	op := ir.OpUnboxInt
	switch kind {
	case typesystem.Float:
		op = ir.OpUnboxFloat
	case typesystem.String:
		op = ir.OpUnboxString
	}
	fc.emit(ir.Instr{Op: op, Dst: dst, A: r, Line: line})
	return dst
}

// coerce produces r's value in the target kind. Void coerces to the
// target's zero value; everything else goes through promotion, boxing
// or a checked unbox.
func (fc *funcCompiler) coerce(r ir.Reg, want typesystem.Kind, line int) ir.Reg {
	have := fc.kindOf(r)
	if have == want {
		return r
	}
	if have == typesystem.Void {
		switch want {
		case typesystem.Int:
			return fc.constVal(runtime.IntVal(0), typesystem.Int)
		case typesystem.Float:
			return fc.constVal(runtime.FloatVal(0), typesystem.Float)
		case typesystem.String:
			return fc.constVal(runtime.StringVal(""), typesystem.String)
		default:
			return fc.box(r)
		}
	}
	switch want {
	case typesystem.Unknown:
		return fc.box(r)
	case typesystem.Float:
		if have == typesystem.Int {
			dst := fc.f.NewReg(typesystem.Float)
			fc.emit(ir.Instr{Op: ir.OpIntToFloat, Dst: dst, A: r})
			return dst
		}
		return fc.unbox(fc.box(r), typesystem.Float, line)
	case typesystem.Void:
		return r
	default:
		return fc.unbox(fc.box(r), want, line)
	}
}

// compileStatements lowers a statement list and returns the register
// holding the last statement's value, or NoReg for an empty list.
func (fc *funcCompiler) compileStatements(stmts []ast.Statement) ir.Reg {
	last := ir.NoReg
	unreached := false
	for _, stmt := range stmts {
		if fc.dead {
			// Code after return/break still compiles, into a block
			// nothing jumps to.
			unreached = true
			fc.dead = false
			fc.cur = fc.f.NewBlock()
		}
		last = fc.compileStatement(stmt)
	}
	if unreached {
		fc.dead = true
	}
	if fc.dead {
		return ir.NoReg
	}
	return last
}

func (fc *funcCompiler) compileStatement(stmt ast.Statement) ir.Reg {
	switch s := stmt.(type) {
	case *ast.Assignment:
		return fc.compileAssignment(s)
	case *ast.ReturnStatement:
		fc.compileReturn(s)
		return ir.NoReg
	case *ast.ExpressionStatement:
		return fc.compileExpr(s.Expression)
	default:
		return fc.constVoid()
	}
}

func (fc *funcCompiler) compileAssignment(s *ast.Assignment) ir.Reg {
	name := s.Name.Value

	if fc.topLevel {
		if id, ok := fc.c.statics[name]; ok {
			if _, isFn := s.Value.(*ast.FunctionLiteral); isFn {
				// Already compiled as a statically linked function;
				// publish it as a global closure value too.
				dst := fc.f.NewReg(typesystem.Unknown)
				fc.emit(ir.Instr{Op: ir.OpMakeClosure, Dst: dst, FuncID: id})
				fc.emit(ir.Instr{Op: ir.OpStoreGlobal, Name: name, A: dst, Line: s.Token.Line})
				return dst
			}
		}
		val := fc.compileExpr(s.Value)
		boxed := fc.box(val)
		fc.emit(ir.Instr{Op: ir.OpStoreGlobal, Name: name, A: boxed, Line: s.Token.Line})
		return val
	}

	val := fc.compileExpr(s.Value)
	target, ok := fc.vars[name]
	if !ok {
		target = fc.f.NewReg(fc.kindOf(val))
		fc.vars[name] = target
	}
	coerced := fc.coerce(val, fc.kindOf(target), s.Token.Line)
	fc.emit(ir.Instr{Op: ir.OpMove, Dst: target, A: coerced})
	return target
}

func (fc *funcCompiler) compileReturn(s *ast.ReturnStatement) {
	val := ir.NoReg
	if s.Value != nil {
		val = fc.box(fc.compileExpr(s.Value))
	}
	// Unwind open try regions before leaving the frame.
	for i := 0; i < fc.openCatches; i++ {
		fc.emit(ir.Instr{Op: ir.OpLeaveCatch})
	}
	fc.seal(ir.Terminator{Kind: ir.TermReturn, Val: val}, fc.f.NewBlock())
	fc.dead = true
}

func (fc *funcCompiler) compileExpr(expr ast.Expression) ir.Reg {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return fc.constVal(runtime.IntVal(e.Value), typesystem.Int)
	case *ast.FloatLiteral:
		return fc.constVal(runtime.FloatVal(e.Value), typesystem.Float)
	case *ast.StringLiteral:
		return fc.constVal(runtime.StringVal(e.Value), typesystem.String)
	case *ast.Identifier:
		return fc.compileIdentifier(e)
	case *ast.ListLiteral:
		return fc.compileListLiteral(e)
	case *ast.FunctionLiteral:
		return fc.makeClosure(e)
	case *ast.CallExpression:
		return fc.compileCall(e)
	default:
		return fc.constVoid()
	}
}

// compileIdentifier resolves a name: locals, then captures, then the
// static function table, then a run-time global lookup.
func (fc *funcCompiler) compileIdentifier(id *ast.Identifier) ir.Reg {
	if r, ok := fc.vars[id.Value]; ok {
		return r
	}
	if idx, ok := fc.captures[id.Value]; ok {
		dst := fc.f.NewReg(typesystem.Unknown)
		fc.emit(ir.Instr{Op: ir.OpLoadCapture, Dst: dst, Idx: idx})
		return dst
	}
	if fid, ok := fc.c.statics[id.Value]; ok {
		dst := fc.f.NewReg(typesystem.Unknown)
		fc.emit(ir.Instr{Op: ir.OpMakeClosure, Dst: dst, FuncID: fid})
		return dst
	}
	dst := fc.f.NewReg(typesystem.Unknown)
	fc.emit(ir.Instr{Op: ir.OpLoadGlobal, Dst: dst, Name: id.Value, Line: id.Token.Line})
	return dst
}

func (fc *funcCompiler) compileListLiteral(l *ast.ListLiteral) ir.Reg {
	args := make([]ir.Reg, len(l.Elements))
	for i, el := range l.Elements {
		args[i] = fc.box(fc.compileExpr(el))
	}
	dst := fc.f.NewReg(typesystem.Unknown)
	fc.emit(ir.Instr{Op: ir.OpMakeList, Dst: dst, Args: args})
	return dst
}

// makeClosure compiles a nested literal and captures what it needs
// from this frame. Free names that resolve to statics or globals are
// not captured; the nested body reaches them directly.
func (fc *funcCompiler) makeClosure(fl *ast.FunctionLiteral) ir.Reg {
	var captured []string
	for _, name := range analyzer.Captures(fl) {
		if _, ok := fc.vars[name]; ok {
			captured = append(captured, name)
			continue
		}
		if _, ok := fc.captures[name]; ok {
			captured = append(captured, name)
		}
	}

	fn := &ir.Func{Name: fmt.Sprintf("%s.lambda%d", fc.f.Name, fc.lambdas)}
	fc.lambdas++
	fc.c.module.AddFunc(fn)
	fc.c.compileFunc(fn, fl, captured)

	args := make([]ir.Reg, len(captured))
	for i, name := range captured {
		if r, ok := fc.vars[name]; ok {
			args[i] = fc.box(r)
			continue
		}
		idx := fc.captures[name]
		dst := fc.f.NewReg(typesystem.Unknown)
		fc.emit(ir.Instr{Op: ir.OpLoadCapture, Dst: dst, Idx: idx})
		args[i] = dst
	}
	dst := fc.f.NewReg(typesystem.Unknown)
	fc.emit(ir.Instr{Op: ir.OpMakeClosure, Dst: dst, FuncID: fn.ID, Args: args})
	return dst
}

func (fc *funcCompiler) compileCall(call *ast.CallExpression) ir.Reg {
	id, isIdent := call.Function.(*ast.Identifier)
	if isIdent {
		if _, isLocal := fc.vars[id.Value]; !isLocal {
			if _, isCapture := fc.captures[id.Value]; !isCapture {
				if isSpecialForm(id.Value) {
					return fc.compileSpecial(id.Value, call)
				}
				if b := builtins.Lookup(id.Value); b != nil && b.Fn != nil {
					return fc.compileBuiltinCall(b, call)
				}
				if fid, ok := fc.c.statics[id.Value]; ok {
					return fc.compileStaticCall(fid, call)
				}
			}
		}
	}

	// Anything else is a closure value applied at run time.
	fn := fc.compileExpr(call.Function)
	args := make([]ir.Reg, len(call.Arguments))
	for i, a := range call.Arguments {
		args[i] = fc.box(fc.compileExpr(a))
	}
	dst := fc.f.NewReg(typesystem.Unknown)
	fc.emit(ir.Instr{Op: ir.OpCallClosure, Dst: dst, A: fc.box(fn), Args: args, Line: call.Token.Line})
	return dst
}

func (fc *funcCompiler) compileStaticCall(fid int, call *ast.CallExpression) ir.Reg {
	callee := fc.c.module.Funcs[fid]
	if len(call.Arguments) != callee.NumParams {
		fc.c.errorf(diagnostics.ErrC004, call, "%s expects %d arguments, got %d", callee.Name, callee.NumParams, len(call.Arguments))
		return fc.constVoid()
	}
	args := make([]ir.Reg, len(call.Arguments))
	for i, a := range call.Arguments {
		args[i] = fc.box(fc.compileExpr(a))
	}
	dst := fc.f.NewReg(callee.RetKind)
	fc.emit(ir.Instr{Op: ir.OpCallStatic, Dst: dst, FuncID: fid, Args: args, Line: call.Token.Line})
	return dst
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
