package compiler

import (
	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/ir"
	"github.com/lyra-lang/lyra/internal/typesystem"
)

// compileBuiltinCall lowers a call to a registered builtin. Arithmetic
// and comparisons over registers with known numeric kinds become typed
// instructions; everything else boxes its arguments and dispatches
// through the registry.
func (fc *funcCompiler) compileBuiltinCall(b *builtins.Builtin, call *ast.CallExpression) ir.Reg {
	if !b.CheckArity(len(call.Arguments)) {
		fc.c.errorf(diagnostics.ErrC004, call, "%s called with %d arguments", b.Name, len(call.Arguments))
		return fc.constVoid()
	}
	line := call.Token.Line

	args := make([]ir.Reg, len(call.Arguments))
	for i, a := range call.Arguments {
		args[i] = fc.compileExpr(a)
	}

	switch b.Name {
	case "add":
		if r, ok := fc.numericFold(args, ir.OpAddInt, ir.OpAddFloat); ok {
			return r
		}
	case "subtract":
		if r, ok := fc.numericFold(args, ir.OpSubInt, ir.OpSubFloat); ok {
			return r
		}
	case "multiply":
		if r, ok := fc.numericFold(args, ir.OpMulInt, ir.OpMulFloat); ok {
			return r
		}
	case "divide":
		if fc.allNumeric(args) {
			a := fc.coerce(args[0], typesystem.Float, line)
			bb := fc.coerce(args[1], typesystem.Float, line)
			dst := fc.f.NewReg(typesystem.Float)
			fc.emit(ir.Instr{Op: ir.OpDivFloat, Dst: dst, Args: []ir.Reg{a, bb}, Line: line})
			return dst
		}
	case "remainder":
		if fc.kindOf(args[0]) == typesystem.Int && fc.kindOf(args[1]) == typesystem.Int {
			dst := fc.f.NewReg(typesystem.Int)
			fc.emit(ir.Instr{Op: ir.OpRemInt, Dst: dst, Args: args, Line: line})
			return dst
		}
	case "less_than":
		if r, ok := fc.numericCompare(args, ir.OpLessInt, ir.OpLessFloat, line); ok {
			return r
		}
	case "greater_than":
		if r, ok := fc.numericCompare(args, ir.OpGreaterInt, ir.OpGreaterFloat, line); ok {
			return r
		}
	case "not":
		dst := fc.f.NewReg(typesystem.Int)
		fc.emit(ir.Instr{Op: ir.OpNot, Dst: dst, A: args[0]})
		return dst
	case "is":
		dst := fc.f.NewReg(typesystem.Int)
		fc.emit(ir.Instr{Op: ir.OpEquals, Dst: dst, Args: []ir.Reg{fc.box(args[0]), fc.box(args[1])}})
		return dst
	}

	boxed := make([]ir.Reg, len(args))
	for i, a := range args {
		boxed[i] = fc.box(a)
	}
	dst := fc.f.NewReg(builtinRetKind(b.Name))
	fc.emit(ir.Instr{Op: ir.OpCallBuiltin, Dst: dst, Name: b.Name, Args: boxed, Line: line})
	return dst
}

func (fc *funcCompiler) allNumeric(args []ir.Reg) bool {
	for _, a := range args {
		if !fc.kindOf(a).IsNumeric() {
			return false
		}
	}
	return true
}

// numericFold lowers a variadic arithmetic builtin to a chain of typed
// two-operand instructions when every operand kind is known numeric.
func (fc *funcCompiler) numericFold(args []ir.Reg, intOp, floatOp ir.Op) (ir.Reg, bool) {
	if !fc.allNumeric(args) {
		return ir.NoReg, false
	}
	anyFloat := false
	for _, a := range args {
		if fc.kindOf(a) == typesystem.Float {
			anyFloat = true
		}
	}
	op, kind := intOp, typesystem.Int
	if anyFloat {
		op, kind = floatOp, typesystem.Float
	}
	acc := fc.coerce(args[0], kind, 0)
	for _, a := range args[1:] {
		operand := fc.coerce(a, kind, 0)
		dst := fc.f.NewReg(kind)
		fc.emit(ir.Instr{Op: op, Dst: dst, Args: []ir.Reg{acc, operand}})
		acc = dst
	}
	return acc, true
}

func (fc *funcCompiler) numericCompare(args []ir.Reg, intOp, floatOp ir.Op, line int) (ir.Reg, bool) {
	if !fc.allNumeric(args) {
		return ir.NoReg, false
	}
	if fc.kindOf(args[0]) == typesystem.Int && fc.kindOf(args[1]) == typesystem.Int {
		dst := fc.f.NewReg(typesystem.Int)
		fc.emit(ir.Instr{Op: intOp, Dst: dst, Args: args})
		return dst, true
	}
	a := fc.coerce(args[0], typesystem.Float, line)
	b := fc.coerce(args[1], typesystem.Float, line)
	dst := fc.f.NewReg(typesystem.Int)
	fc.emit(ir.Instr{Op: floatOp, Dst: dst, Args: []ir.Reg{a, b}})
	return dst, true
}

// builtinRetKind is the static result kind of a boxed builtin call.
// Only builtins with a representation-independent result get a kind;
// everything else stays Unknown.
func builtinRetKind(name string) typesystem.Kind {
	switch name {
	case "divide", "power", "sqrt", "random", "float":
		return typesystem.Float
	case "remainder", "floor", "ceil", "round", "length", "integer",
		"is", "less_than", "greater_than", "not",
		"is_int", "is_float", "is_string", "is_list", "is_function",
		"rows", "columns", "is_terminal", "store_open", "store_exec",
		"dict_has":
		return typesystem.Int
	case "join", "concat", "string", "type", "repeat", "input",
		"variant_tag":
		return typesystem.String
	case "print", "println", "store_close":
		return typesystem.Void
	default:
		return typesystem.Unknown
	}
}
