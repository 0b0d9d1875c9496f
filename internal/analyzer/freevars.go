// Package analyzer holds the static passes that run between parsing
// and lowering: free-variable (closure capture) analysis and return
// and parameter kind inference. Both passes are pure functions of the
// AST and memoize their results on the function node, so running them
// twice is free and order-independent.
package analyzer

import (
	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/builtins"
)

// Captures computes the free variables of fn: identifiers used inside
// the body that are neither parameters nor local assignment targets
// nor globally linked builtin names. Results come back in first-use
// order, deduplicated, and are memoized on the node. The pass never
// fails; malformed references surface later, at lowering or run time.
func Captures(fn *ast.FunctionLiteral) []string {
	if names, ok := fn.CaptureList(); ok {
		return names
	}

	bound := map[string]bool{}
	for _, p := range fn.Params {
		bound[p.Value] = true
	}
	// All local assignment targets bind for the whole body, regardless
	// of position relative to their uses. Nested functions get their
	// own scan, so they are skipped here.
	for _, stmt := range fn.Body {
		collectBound(stmt, bound)
	}

	var captured []string
	seen := map[string]bool{}
	capture := func(name string) {
		if bound[name] || seen[name] || builtins.IsGlobalBuiltin(name) {
			return
		}
		seen[name] = true
		captured = append(captured, name)
	}
	for _, stmt := range fn.Body {
		walkUses(stmt, capture)
	}

	fn.SetCaptureList(captured)
	return captured
}

// collectBound records assignment targets in node, without descending
// into nested function literals.
func collectBound(node ast.Node, bound map[string]bool) {
	switch n := node.(type) {
	case *ast.Assignment:
		bound[n.Name.Value] = true
		collectBound(n.Value, bound)
	case *ast.ReturnStatement:
		if n.Value != nil {
			collectBound(n.Value, bound)
		}
	case *ast.ExpressionStatement:
		collectBound(n.Expression, bound)
	case *ast.CallExpression:
		collectBound(n.Function, bound)
		for _, arg := range n.Arguments {
			collectBound(arg, bound)
		}
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			collectBound(el, bound)
		}
	}
}

// walkUses visits every identifier use in node. Assignment targets are
// bindings, not uses. A nested function literal contributes its own
// capture list: whatever it needs from the environment is a use at
// this level too, unless this level binds it.
func walkUses(node ast.Node, use func(name string)) {
	switch n := node.(type) {
	case *ast.Identifier:
		use(n.Value)
	case *ast.Assignment:
		walkUses(n.Value, use)
	case *ast.ReturnStatement:
		if n.Value != nil {
			walkUses(n.Value, use)
		}
	case *ast.ExpressionStatement:
		walkUses(n.Expression, use)
	case *ast.CallExpression:
		walkUses(n.Function, use)
		for _, arg := range n.Arguments {
			walkUses(arg, use)
		}
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			walkUses(el, use)
		}
	case *ast.FunctionLiteral:
		for _, name := range Captures(n) {
			use(name)
		}
	}
}
