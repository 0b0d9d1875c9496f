package builtins

import (
	"strings"

	"github.com/lyra-lang/lyra/internal/runtime"
)

// Higher-order list helpers. Callbacks run through the context's Apply
// hook, so the same implementation serves both backends. Following the
// calling convention of the rest of the registry, map and filter pass
// (item, index) to their callback and reduce passes (acc, item, index).
func registerList() {
	register(&Builtin{Name: "map", MinArgs: 2, MaxArgs: 2, Fn: builtinMap})
	register(&Builtin{Name: "filter", MinArgs: 2, MaxArgs: 2, Fn: builtinFilter})
	register(&Builtin{Name: "reduce", MinArgs: 2, MaxArgs: 3, Fn: builtinReduce})
	register(&Builtin{Name: "range", MinArgs: 1, MaxArgs: 1, Fn: builtinRange})
	register(&Builtin{Name: "find", MinArgs: 2, MaxArgs: 2, Fn: builtinFind})
}

// callback validates the fn operand and returns the Apply hook.
func callback(ctx *Context, name string, fn runtime.Value) (func([]runtime.Value) runtime.Value, bool) {
	if fn.Tag != runtime.TagClosure {
		typeError(ctx, name, fn)
		return nil, false
	}
	if ctx.Apply == nil {
		runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "%s is not available here", name)
		return nil, false
	}
	line := ctx.Line
	return func(args []runtime.Value) runtime.Value {
		return ctx.Apply(fn, args, line)
	}, true
}

func builtinMap(ctx *Context, args []runtime.Value) runtime.Value {
	if args[0].Tag != runtime.TagList {
		return typeError(ctx, "map", args[0])
	}
	apply, ok := callback(ctx, "map", args[1])
	if !ok {
		return runtime.Void()
	}
	items := args[0].AsList().Items
	out := make([]runtime.Value, len(items))
	for i, item := range items {
		out[i] = apply([]runtime.Value{item, runtime.IntVal(int64(i))})
		if runtime.ErrorActive() {
			return runtime.Void()
		}
	}
	return runtime.ListVal(&runtime.List{Items: out})
}

func builtinFilter(ctx *Context, args []runtime.Value) runtime.Value {
	if args[0].Tag != runtime.TagList {
		return typeError(ctx, "filter", args[0])
	}
	apply, ok := callback(ctx, "filter", args[1])
	if !ok {
		return runtime.Void()
	}
	items := args[0].AsList().Items
	out := make([]runtime.Value, 0, len(items))
	for i, item := range items {
		keep := apply([]runtime.Value{item, runtime.IntVal(int64(i))})
		if runtime.ErrorActive() {
			return runtime.Void()
		}
		if keep.Truthy() {
			out = append(out, item)
		}
	}
	return runtime.ListVal(&runtime.List{Items: out})
}

// builtinReduce folds the list left to right. The optional third
// argument seeds the accumulator; without it the fold starts from Void,
// which the first merge adopts.
func builtinReduce(ctx *Context, args []runtime.Value) runtime.Value {
	if args[0].Tag != runtime.TagList {
		return typeError(ctx, "reduce", args[0])
	}
	apply, ok := callback(ctx, "reduce", args[1])
	if !ok {
		return runtime.Void()
	}
	acc := runtime.Void()
	if len(args) == 3 {
		acc = args[2]
	}
	for i, item := range args[0].AsList().Items {
		acc = apply([]runtime.Value{acc, item, runtime.IntVal(int64(i))})
		if runtime.ErrorActive() {
			return runtime.Void()
		}
	}
	return acc
}

func builtinRange(ctx *Context, args []runtime.Value) runtime.Value {
	n := args[0]
	if n.Tag != runtime.TagInt {
		return typeError(ctx, "range", n)
	}
	if n.AsInt() < 0 {
		runtime.RaiseError(runtime.ErrNegativeCount, ctx.Line, "range count is negative")
		return runtime.Void()
	}
	items := make([]runtime.Value, n.AsInt())
	for i := range items {
		items[i] = runtime.IntVal(int64(i))
	}
	return runtime.ListVal(&runtime.List{Items: items})
}

// builtinFind locates a substring in a string or an equal item in a
// list, yielding the zero-based index or Void when absent.
func builtinFind(ctx *Context, args []runtime.Value) runtime.Value {
	haystack, needle := args[0], args[1]
	switch haystack.Tag {
	case runtime.TagString:
		if needle.Tag != runtime.TagString {
			return typeError(ctx, "find", needle)
		}
		idx := strings.Index(haystack.AsString(), needle.AsString())
		if idx < 0 {
			return runtime.Void()
		}
		return runtime.IntVal(int64(idx))
	case runtime.TagList:
		for i, item := range haystack.AsList().Items {
			if runtime.Equals(item, needle) {
				return runtime.IntVal(int64(i))
			}
		}
		return runtime.Void()
	default:
		return typeError(ctx, "find", haystack)
	}
}
