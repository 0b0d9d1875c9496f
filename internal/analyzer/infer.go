package analyzer

import (
	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/typesystem"
)

// InferFunction computes the function type of fn: the structural
// return kind of its body plus one kind per parameter. The result is
// memoized on the node. Inference never fails; anything it cannot
// prove stays Unknown, which every backend handles by boxing.
func InferFunction(fn *ast.FunctionLiteral) *typesystem.FunctionType {
	if ft := fn.InferredType(); ft != nil {
		return ft
	}

	ret := BlockKind(fn.Body)

	// Parameter kinds come from comparison evidence in the body when
	// there is any; otherwise they default from the return kind. A
	// function returning Float almost always computes with Float
	// inputs, same for String, and everything else gets Int, the
	// cheapest unboxed guess. A parameter applied as a function stays
	// Unknown.
	def := typesystem.Int
	switch ret {
	case typesystem.Float:
		def = typesystem.Float
	case typesystem.String:
		def = typesystem.String
	}

	params := make([]typesystem.Kind, len(fn.Params))
	for i, p := range fn.Params {
		if usedAsCallee(fn.Body, p.Value) {
			params[i] = typesystem.Unknown
			continue
		}
		k := refineParam(fn, p.Value, typesystem.Unknown)
		if k == typesystem.Unknown {
			k = def
		}
		params[i] = k
	}

	ft := &typesystem.FunctionType{Params: params, Return: ret}
	fn.SetInferredType(ft)
	return ft
}

// refineParam scans the body for (is param x) comparisons and upgrades
// the default kind from what the parameter is compared against. String
// evidence always wins; Float upgrades Int and Unknown; Int only fills
// in Unknown.
func refineParam(fn *ast.FunctionLiteral, name string, kind typesystem.Kind) typesystem.Kind {
	for _, stmt := range fn.Body {
		kind = scanComparisons(stmt, name, kind)
	}
	return kind
}

// usedAsCallee reports whether name appears in call position anywhere
// in the statements, nested functions included.
func usedAsCallee(stmts []ast.Statement, name string) bool {
	for _, stmt := range stmts {
		if nodeCallsName(stmt, name) {
			return true
		}
	}
	return false
}

func nodeCallsName(node ast.Node, name string) bool {
	switch n := node.(type) {
	case *ast.Assignment:
		return nodeCallsName(n.Value, name)
	case *ast.ReturnStatement:
		return n.Value != nil && nodeCallsName(n.Value, name)
	case *ast.ExpressionStatement:
		return nodeCallsName(n.Expression, name)
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			if nodeCallsName(el, name) {
				return true
			}
		}
	case *ast.FunctionLiteral:
		return usedAsCallee(n.Body, name)
	case *ast.CallExpression:
		if id, ok := n.Function.(*ast.Identifier); ok && id.Value == name {
			return true
		}
		if nodeCallsName(n.Function, name) {
			return true
		}
		for _, arg := range n.Arguments {
			if nodeCallsName(arg, name) {
				return true
			}
		}
	}
	return false
}

func scanComparisons(node ast.Node, name string, kind typesystem.Kind) typesystem.Kind {
	switch n := node.(type) {
	case *ast.Assignment:
		return scanComparisons(n.Value, name, kind)
	case *ast.ReturnStatement:
		if n.Value != nil {
			return scanComparisons(n.Value, name, kind)
		}
	case *ast.ExpressionStatement:
		return scanComparisons(n.Expression, name, kind)
	case *ast.CallExpression:
		if id, ok := n.Function.(*ast.Identifier); ok && id.Value == "is" && len(n.Arguments) == 2 {
			if other, ok := comparisonEvidence(n.Arguments, name); ok {
				kind = upgradeKind(kind, other)
			}
		}
		kind = scanComparisons(n.Function, name, kind)
		for _, arg := range n.Arguments {
			kind = scanComparisons(arg, name, kind)
		}
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			kind = scanComparisons(el, name, kind)
		}
	}
	return kind
}

// comparisonEvidence checks whether one side of an (is a b) call is
// the parameter and the other side has a literal kind.
func comparisonEvidence(args []ast.Expression, name string) (typesystem.Kind, bool) {
	for i := 0; i < 2; i++ {
		id, ok := args[i].(*ast.Identifier)
		if !ok || id.Value != name {
			continue
		}
		switch other := args[1-i].(type) {
		case *ast.IntegerLiteral:
			return typesystem.Int, true
		case *ast.FloatLiteral:
			return typesystem.Float, true
		case *ast.StringLiteral:
			return typesystem.String, true
		default:
			_ = other
		}
	}
	return typesystem.Unknown, false
}

func upgradeKind(current, evidence typesystem.Kind) typesystem.Kind {
	switch evidence {
	case typesystem.String:
		return typesystem.String
	case typesystem.Float:
		if current == typesystem.Int || current == typesystem.Unknown {
			return typesystem.Float
		}
	case typesystem.Int:
		if current == typesystem.Unknown {
			return typesystem.Int
		}
	}
	return current
}

// BlockKind is the structural return kind of a statement sequence:
// explicit returns dominate (merged if there are several), otherwise
// the last statement decides, and an empty body is Void.
func BlockKind(stmts []ast.Statement) typesystem.Kind {
	ret := typesystem.Void
	sawReturn := false
	for _, stmt := range stmts {
		if rs, ok := stmt.(*ast.ReturnStatement); ok {
			k := typesystem.Void
			if rs.Value != nil {
				k = ExprKind(rs.Value)
			}
			if !sawReturn {
				ret, sawReturn = k, true
			} else {
				ret, _ = typesystem.Merge(ret, k)
			}
		}
	}
	if sawReturn {
		return ret
	}
	if len(stmts) == 0 {
		return typesystem.Void
	}
	return statementKind(stmts[len(stmts)-1])
}

func statementKind(stmt ast.Statement) typesystem.Kind {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return ExprKind(s.Expression)
	case *ast.Assignment:
		return ExprKind(s.Value)
	default:
		return typesystem.Void
	}
}

// ExprKind computes the kind of a single expression bottom-up. Names
// bound at run time give Unknown; Unknown is always a safe answer, it
// only costs a box.
func ExprKind(expr ast.Expression) typesystem.Kind {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return typesystem.Int
	case *ast.FloatLiteral:
		return typesystem.Float
	case *ast.StringLiteral:
		return typesystem.String
	case *ast.CallExpression:
		return callKind(e)
	default:
		return typesystem.Unknown
	}
}

func callKind(call *ast.CallExpression) typesystem.Kind {
	if fl, ok := call.Function.(*ast.FunctionLiteral); ok {
		return InferFunction(fl).Return
	}
	id, ok := call.Function.(*ast.Identifier)
	if !ok {
		return typesystem.Unknown
	}

	switch id.Value {
	case "add", "subtract", "multiply":
		return numericFold(call.Arguments)
	case "divide", "power", "sqrt", "random":
		return typesystem.Float
	case "remainder", "floor", "ceil", "round", "length":
		return typesystem.Int
	case "abs", "min", "max":
		if anyFloatArg(call.Arguments) {
			return typesystem.Float
		}
		return typesystem.Int
	case "join", "concat", "string", "type", "repeat":
		return typesystem.String
	case "integer":
		return typesystem.Int
	case "float":
		return typesystem.Float
	case "is", "less_than", "greater_than", "not",
		"is_int", "is_float", "is_string", "is_list", "is_function":
		return typesystem.Int
	case config.AndFuncName, config.OrFuncName:
		return typesystem.Int
	case config.IfFuncName, config.WhenFuncName, config.UnlessFuncName:
		// Malformed forms are reported during lowering; inference just
		// has to survive them.
		if len(call.Arguments) < 2 {
			return typesystem.Void
		}
		return mergedBranchKind(call.Arguments[1:])
	case config.CondFuncName:
		return condKind(call.Arguments)
	case "print", "println":
		return typesystem.Void
	case "input":
		return typesystem.String
	case "rows", "columns", "is_terminal":
		return typesystem.Int
	case config.LoopFuncName, config.BreakFuncName, config.ContinueFuncName:
		return typesystem.Void
	default:
		return typesystem.Unknown
	}
}

func numericFold(args []ast.Expression) typesystem.Kind {
	result := typesystem.Unknown
	for _, arg := range args {
		switch ExprKind(arg) {
		case typesystem.Float:
			return typesystem.Float
		case typesystem.Int:
			result = typesystem.Int
		}
	}
	return result
}

func anyFloatArg(args []ast.Expression) bool {
	for _, arg := range args {
		if ExprKind(arg) == typesystem.Float {
			return true
		}
	}
	return false
}

// branchKind treats a block argument as its body kind, so thunked
// branches of if/when/cond infer the same as inline expressions.
func branchKind(expr ast.Expression) typesystem.Kind {
	if fl, ok := expr.(*ast.FunctionLiteral); ok && len(fl.Params) == 0 {
		return BlockKind(fl.Body)
	}
	return ExprKind(expr)
}

func mergedBranchKind(branches []ast.Expression) typesystem.Kind {
	result := typesystem.Void
	for _, b := range branches {
		merged, ok := typesystem.Merge(result, branchKind(b))
		if !ok {
			return typesystem.Unknown
		}
		result = merged
	}
	return result
}

// condKind merges the result positions of cond clauses: arguments come
// in test/branch pairs, with an optional trailing else branch.
func condKind(args []ast.Expression) typesystem.Kind {
	result := typesystem.Void
	for i := 0; i < len(args); i++ {
		// Skip the test of each pair; an unpaired trailing argument is
		// the else branch.
		if i+1 < len(args) {
			i++
		}
		merged, ok := typesystem.Merge(result, branchKind(args[i]))
		if !ok {
			return typesystem.Unknown
		}
		result = merged
	}
	return result
}
