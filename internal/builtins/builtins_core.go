package builtins

import (
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/lyra-lang/lyra/internal/runtime"
)

func registerCore() {
	// Arithmetic
	register(&Builtin{Name: "add", MinArgs: 2, MaxArgs: -1, Fn: makeArith(func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })})
	register(&Builtin{Name: "subtract", MinArgs: 2, MaxArgs: -1, Fn: makeArith(func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })})
	register(&Builtin{Name: "multiply", MinArgs: 2, MaxArgs: -1, Fn: makeArith(func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })})
	register(&Builtin{Name: "divide", MinArgs: 2, MaxArgs: 2, Fn: builtinDivide})
	register(&Builtin{Name: "remainder", MinArgs: 2, MaxArgs: 2, Fn: builtinRemainder})
	register(&Builtin{Name: "power", MinArgs: 2, MaxArgs: 2, Fn: builtinPower})

	// Math
	register(&Builtin{Name: "abs", MinArgs: 1, MaxArgs: 1, Fn: builtinAbs})
	register(&Builtin{Name: "min", MinArgs: 2, MaxArgs: -1, Fn: makeArith(minInt, math.Min)})
	register(&Builtin{Name: "max", MinArgs: 2, MaxArgs: -1, Fn: makeArith(maxInt, math.Max)})
	register(&Builtin{Name: "floor", MinArgs: 1, MaxArgs: 1, Fn: makeRound(math.Floor)})
	register(&Builtin{Name: "ceil", MinArgs: 1, MaxArgs: 1, Fn: makeRound(math.Ceil)})
	register(&Builtin{Name: "round", MinArgs: 1, MaxArgs: 1, Fn: makeRound(math.Round)})
	register(&Builtin{Name: "sqrt", MinArgs: 1, MaxArgs: 1, Fn: builtinSqrt})
	register(&Builtin{Name: "random", MinArgs: 0, MaxArgs: 0, Fn: builtinRandom})

	// Comparison
	register(&Builtin{Name: "is", MinArgs: 2, MaxArgs: 2, Fn: builtinIs})
	register(&Builtin{Name: "less_than", MinArgs: 2, MaxArgs: 2, Fn: makeCompare(func(a, b float64) bool { return a < b })})
	register(&Builtin{Name: "greater_than", MinArgs: 2, MaxArgs: 2, Fn: makeCompare(func(a, b float64) bool { return a > b })})

	// Logic (and/or are special forms; not is an ordinary builtin)
	register(&Builtin{Name: "not", MinArgs: 1, MaxArgs: 1, Fn: builtinNot})

	// Type guards and conversion
	register(&Builtin{Name: "is_int", MinArgs: 1, MaxArgs: 1, Fn: makeGuard(runtime.TagInt)})
	register(&Builtin{Name: "is_float", MinArgs: 1, MaxArgs: 1, Fn: makeGuard(runtime.TagFloat)})
	register(&Builtin{Name: "is_string", MinArgs: 1, MaxArgs: 1, Fn: makeGuard(runtime.TagString)})
	register(&Builtin{Name: "is_list", MinArgs: 1, MaxArgs: 1, Fn: makeGuard(runtime.TagList)})
	register(&Builtin{Name: "is_function", MinArgs: 1, MaxArgs: 1, Fn: makeGuard(runtime.TagClosure)})
	register(&Builtin{Name: "integer", MinArgs: 1, MaxArgs: 1, Fn: builtinInteger})
	register(&Builtin{Name: "float", MinArgs: 1, MaxArgs: 1, Fn: builtinFloat})
	register(&Builtin{Name: "string", MinArgs: 1, MaxArgs: 1, Fn: builtinString})
	register(&Builtin{Name: "type", MinArgs: 1, MaxArgs: 1, Fn: builtinType})

	// Strings
	register(&Builtin{Name: "join", MinArgs: 2, MaxArgs: -1, Fn: builtinJoin})
	register(&Builtin{Name: "concat", MinArgs: 2, MaxArgs: -1, Fn: builtinJoin})
	register(&Builtin{Name: "repeat", MinArgs: 2, MaxArgs: 2, Fn: builtinRepeat})
	register(&Builtin{Name: "get", MinArgs: 2, MaxArgs: 2, Fn: builtinGet})

	// Lists
	register(&Builtin{Name: "list", MinArgs: 0, MaxArgs: -1, Fn: builtinList})
	register(&Builtin{Name: "head", MinArgs: 1, MaxArgs: 1, Fn: builtinHead})
	register(&Builtin{Name: "tail", MinArgs: 1, MaxArgs: 1, Fn: builtinTail})
	register(&Builtin{Name: "nth", MinArgs: 2, MaxArgs: 2, Fn: builtinNth})
	register(&Builtin{Name: "length", MinArgs: 1, MaxArgs: 1, Fn: builtinLength})

	// Dicts
	register(&Builtin{Name: "dict", MinArgs: 0, MaxArgs: -1, Fn: builtinDict})
	register(&Builtin{Name: "dict_get", MinArgs: 2, MaxArgs: 2, Fn: builtinDictGet})
	register(&Builtin{Name: "dict_set", MinArgs: 3, MaxArgs: 3, Fn: builtinDictSet})
	register(&Builtin{Name: "dict_has", MinArgs: 2, MaxArgs: 2, Fn: builtinDictHas})
	register(&Builtin{Name: "dict_keys", MinArgs: 1, MaxArgs: 1, Fn: builtinDictKeys})
	register(&Builtin{Name: "dict_values", MinArgs: 1, MaxArgs: 1, Fn: builtinDictValues})
	register(&Builtin{Name: "dict_merge", MinArgs: 2, MaxArgs: 2, Fn: builtinDictMerge})
	register(&Builtin{Name: "dict_remove", MinArgs: 2, MaxArgs: 2, Fn: builtinDictRemove})

	// Variants
	register(&Builtin{Name: "variant", MinArgs: 1, MaxArgs: -1, Fn: builtinVariant})
	register(&Builtin{Name: "variant_tag", MinArgs: 1, MaxArgs: 1, Fn: builtinVariantTag})
	register(&Builtin{Name: "variant_values", MinArgs: 1, MaxArgs: 1, Fn: builtinVariantValues})

	// Mutable references
	register(&Builtin{Name: "ref", MinArgs: 1, MaxArgs: 1, Fn: builtinRef})
	register(&Builtin{Name: "deref", MinArgs: 1, MaxArgs: 1, Fn: builtinDeref})
	register(&Builtin{Name: "set!", MinArgs: 2, MaxArgs: 2, Fn: builtinSetRef})
}

func typeError(ctx *Context, name string, v runtime.Value) runtime.Value {
	runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "%s cannot operate on %s", name, v.Tag)
	return runtime.Void()
}

func minInt(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// makeArith builds a variadic numeric fold that stays in integers
// until a float operand forces promotion.
func makeArith(intOp func(a, b int64) int64, floatOp func(a, b float64) float64) Func {
	return func(ctx *Context, args []runtime.Value) runtime.Value {
		allInt := true
		for _, v := range args {
			if !v.IsNumeric() {
				return typeError(ctx, "arithmetic", v)
			}
			if v.Tag == runtime.TagFloat {
				allInt = false
			}
		}
		if allInt {
			acc := args[0].AsInt()
			for _, v := range args[1:] {
				acc = intOp(acc, v.AsInt())
			}
			return runtime.IntVal(acc)
		}
		acc := args[0].NumericAsFloat()
		for _, v := range args[1:] {
			acc = floatOp(acc, v.NumericAsFloat())
		}
		return runtime.FloatVal(acc)
	}
}

func builtinDivide(ctx *Context, args []runtime.Value) runtime.Value {
	a, b := args[0], args[1]
	if !a.IsNumeric() || !b.IsNumeric() {
		return typeError(ctx, "divide", pickNonNumeric(a, b))
	}
	divisor := b.NumericAsFloat()
	if divisor == 0 {
		runtime.RaiseError(runtime.ErrDivisionByZero, ctx.Line, "divide by zero")
		return runtime.Void()
	}
	return runtime.FloatVal(a.NumericAsFloat() / divisor)
}

func builtinRemainder(ctx *Context, args []runtime.Value) runtime.Value {
	a, b := args[0], args[1]
	if a.Tag != runtime.TagInt || b.Tag != runtime.TagInt {
		return typeError(ctx, "remainder", pickNonInt(a, b))
	}
	if b.AsInt() == 0 {
		runtime.RaiseError(runtime.ErrDivisionByZero, ctx.Line, "remainder by zero")
		return runtime.Void()
	}
	return runtime.IntVal(a.AsInt() % b.AsInt())
}

func pickNonNumeric(a, b runtime.Value) runtime.Value {
	if !a.IsNumeric() {
		return a
	}
	return b
}

func pickNonInt(a, b runtime.Value) runtime.Value {
	if a.Tag != runtime.TagInt {
		return a
	}
	return b
}

func builtinPower(ctx *Context, args []runtime.Value) runtime.Value {
	a, b := args[0], args[1]
	if !a.IsNumeric() || !b.IsNumeric() {
		return typeError(ctx, "power", pickNonNumeric(a, b))
	}
	return runtime.FloatVal(math.Pow(a.NumericAsFloat(), b.NumericAsFloat()))
}

func builtinAbs(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	switch v.Tag {
	case runtime.TagInt:
		n := v.AsInt()
		if n < 0 {
			n = -n
		}
		return runtime.IntVal(n)
	case runtime.TagFloat:
		return runtime.FloatVal(math.Abs(v.AsFloat()))
	default:
		return typeError(ctx, "abs", v)
	}
}

func makeRound(op func(float64) float64) Func {
	return func(ctx *Context, args []runtime.Value) runtime.Value {
		v := args[0]
		switch v.Tag {
		case runtime.TagInt:
			return v
		case runtime.TagFloat:
			return runtime.IntVal(int64(op(v.AsFloat())))
		default:
			return typeError(ctx, "rounding", v)
		}
	}
}

func builtinSqrt(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	if !v.IsNumeric() {
		return typeError(ctx, "sqrt", v)
	}
	return runtime.FloatVal(math.Sqrt(v.NumericAsFloat()))
}

func builtinRandom(ctx *Context, args []runtime.Value) runtime.Value {
	return runtime.FloatVal(rand.Float64())
}

func builtinIs(ctx *Context, args []runtime.Value) runtime.Value {
	return runtime.BoolVal(runtime.Equals(args[0], args[1]))
}

func makeCompare(op func(a, b float64) bool) Func {
	return func(ctx *Context, args []runtime.Value) runtime.Value {
		a, b := args[0], args[1]
		if !a.IsNumeric() || !b.IsNumeric() {
			return typeError(ctx, "comparison", pickNonNumeric(a, b))
		}
		return runtime.BoolVal(op(a.NumericAsFloat(), b.NumericAsFloat()))
	}
}

func builtinNot(ctx *Context, args []runtime.Value) runtime.Value {
	return runtime.BoolVal(!args[0].Truthy())
}

func makeGuard(tag runtime.Tag) Func {
	return func(ctx *Context, args []runtime.Value) runtime.Value {
		return runtime.BoolVal(args[0].Tag == tag)
	}
}

func builtinInteger(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	switch v.Tag {
	case runtime.TagInt:
		return v
	case runtime.TagFloat:
		return runtime.IntVal(int64(v.AsFloat()))
	case runtime.TagString:
		n, err := strconv.ParseInt(strings.TrimSpace(v.AsString()), 0, 64)
		if err != nil {
			runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "cannot convert %q to integer", v.AsString())
			return runtime.Void()
		}
		return runtime.IntVal(n)
	default:
		return typeError(ctx, "integer", v)
	}
}

func builtinFloat(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	switch v.Tag {
	case runtime.TagFloat:
		return v
	case runtime.TagInt:
		return runtime.FloatVal(float64(v.AsInt()))
	case runtime.TagString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsString()), 64)
		if err != nil {
			runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "cannot convert %q to float", v.AsString())
			return runtime.Void()
		}
		return runtime.FloatVal(f)
	default:
		return typeError(ctx, "float", v)
	}
}

func builtinString(ctx *Context, args []runtime.Value) runtime.Value {
	return runtime.StringVal(args[0].Inspect())
}

func builtinType(ctx *Context, args []runtime.Value) runtime.Value {
	return runtime.StringVal(args[0].Tag.String())
}

func builtinJoin(ctx *Context, args []runtime.Value) runtime.Value {
	var sb strings.Builder
	for _, v := range args {
		if v.Tag != runtime.TagString {
			return typeError(ctx, "join", v)
		}
		sb.WriteString(v.AsString())
	}
	return runtime.StringVal(sb.String())
}

func builtinRepeat(ctx *Context, args []runtime.Value) runtime.Value {
	s, n := args[0], args[1]
	if s.Tag != runtime.TagString || n.Tag != runtime.TagInt {
		return typeError(ctx, "repeat", pickNonInt(n, s))
	}
	if n.AsInt() < 0 {
		runtime.RaiseError(runtime.ErrNegativeCount, ctx.Line, "repeat count is negative")
		return runtime.Void()
	}
	return runtime.StringVal(strings.Repeat(s.AsString(), int(n.AsInt())))
}

func builtinGet(ctx *Context, args []runtime.Value) runtime.Value {
	target, idx := args[0], args[1]
	if idx.Tag != runtime.TagInt {
		return typeError(ctx, "get", idx)
	}
	i := idx.AsInt()
	switch target.Tag {
	case runtime.TagString:
		s := target.AsString()
		if i < 0 || i >= int64(len(s)) {
			runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "index %d out of range", i)
			return runtime.Void()
		}
		return runtime.StringVal(string(s[i]))
	case runtime.TagList:
		items := target.AsList().Items
		if i < 0 || i >= int64(len(items)) {
			runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "index %d out of range", i)
			return runtime.Void()
		}
		return items[i]
	default:
		return typeError(ctx, "get", target)
	}
}

func builtinList(ctx *Context, args []runtime.Value) runtime.Value {
	items := make([]runtime.Value, len(args))
	copy(items, args)
	return runtime.ListVal(&runtime.List{Items: items})
}

func builtinHead(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	if v.Tag != runtime.TagList {
		return typeError(ctx, "head", v)
	}
	items := v.AsList().Items
	if len(items) == 0 {
		return runtime.Void()
	}
	return items[0]
}

func builtinTail(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	if v.Tag != runtime.TagList {
		return typeError(ctx, "tail", v)
	}
	items := v.AsList().Items
	if len(items) == 0 {
		return runtime.ListVal(&runtime.List{})
	}
	rest := make([]runtime.Value, len(items)-1)
	copy(rest, items[1:])
	return runtime.ListVal(&runtime.List{Items: rest})
}

func builtinNth(ctx *Context, args []runtime.Value) runtime.Value {
	return builtinGet(ctx, []runtime.Value{args[0], args[1]})
}

func builtinLength(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	switch v.Tag {
	case runtime.TagString:
		return runtime.IntVal(int64(len(v.AsString())))
	case runtime.TagList:
		return runtime.IntVal(int64(len(v.AsList().Items)))
	case runtime.TagDict:
		return runtime.IntVal(int64(v.AsDict().Len()))
	default:
		return typeError(ctx, "length", v)
	}
}

func builtinDict(ctx *Context, args []runtime.Value) runtime.Value {
	if len(args)%2 != 0 {
		runtime.RaiseError(runtime.ErrBadArity, ctx.Line, "dict requires key/value pairs")
		return runtime.Void()
	}
	d := runtime.NewDict()
	for i := 0; i < len(args); i += 2 {
		if args[i].Tag != runtime.TagString {
			return typeError(ctx, "dict key", args[i])
		}
		d.Set(args[i].AsString(), args[i+1])
	}
	return runtime.DictVal(d)
}

func builtinDictGet(ctx *Context, args []runtime.Value) runtime.Value {
	d, k := args[0], args[1]
	if d.Tag != runtime.TagDict || k.Tag != runtime.TagString {
		return typeError(ctx, "dict_get", d)
	}
	v, ok := d.AsDict().Get(k.AsString())
	if !ok {
		return runtime.Void()
	}
	return v
}

func builtinDictSet(ctx *Context, args []runtime.Value) runtime.Value {
	d, k := args[0], args[1]
	if d.Tag != runtime.TagDict || k.Tag != runtime.TagString {
		return typeError(ctx, "dict_set", d)
	}
	d.AsDict().Set(k.AsString(), args[2])
	return d
}

func builtinDictHas(ctx *Context, args []runtime.Value) runtime.Value {
	d, k := args[0], args[1]
	if d.Tag != runtime.TagDict || k.Tag != runtime.TagString {
		return typeError(ctx, "dict_has", d)
	}
	return runtime.BoolVal(d.AsDict().Has(k.AsString()))
}

func builtinDictKeys(ctx *Context, args []runtime.Value) runtime.Value {
	d := args[0]
	if d.Tag != runtime.TagDict {
		return typeError(ctx, "dict_keys", d)
	}
	keys := d.AsDict().Keys()
	items := make([]runtime.Value, len(keys))
	for i, k := range keys {
		items[i] = runtime.StringVal(k)
	}
	return runtime.ListVal(&runtime.List{Items: items})
}

func builtinDictValues(ctx *Context, args []runtime.Value) runtime.Value {
	d := args[0]
	if d.Tag != runtime.TagDict {
		return typeError(ctx, "dict_values", d)
	}
	keys := d.AsDict().Keys()
	items := make([]runtime.Value, len(keys))
	for i, k := range keys {
		items[i], _ = d.AsDict().Get(k)
	}
	return runtime.ListVal(&runtime.List{Items: items})
}

// builtinDictMerge builds a fresh dict with every entry of both
// operands; entries of the second win on key collision.
func builtinDictMerge(ctx *Context, args []runtime.Value) runtime.Value {
	a, b := args[0], args[1]
	if a.Tag != runtime.TagDict {
		return typeError(ctx, "dict_merge", a)
	}
	if b.Tag != runtime.TagDict {
		return typeError(ctx, "dict_merge", b)
	}
	merged := runtime.NewDict()
	for _, src := range []*runtime.Dict{a.AsDict(), b.AsDict()} {
		for _, k := range src.Keys() {
			v, _ := src.Get(k)
			merged.Set(k, v)
		}
	}
	return runtime.DictVal(merged)
}

func builtinDictRemove(ctx *Context, args []runtime.Value) runtime.Value {
	d, k := args[0], args[1]
	if d.Tag != runtime.TagDict || k.Tag != runtime.TagString {
		return typeError(ctx, "dict_remove", d)
	}
	out := runtime.NewDict()
	for _, key := range d.AsDict().Keys() {
		if key == k.AsString() {
			continue
		}
		v, _ := d.AsDict().Get(key)
		out.Set(key, v)
	}
	return runtime.DictVal(out)
}

func builtinVariant(ctx *Context, args []runtime.Value) runtime.Value {
	if args[0].Tag != runtime.TagString {
		return typeError(ctx, "variant", args[0])
	}
	values := make([]runtime.Value, len(args)-1)
	copy(values, args[1:])
	return runtime.VariantVal(&runtime.Variant{TagName: args[0].AsString(), Values: values})
}

func builtinVariantTag(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	if v.Tag != runtime.TagVariant {
		return typeError(ctx, "variant_tag", v)
	}
	return runtime.StringVal(v.AsVariant().TagName)
}

func builtinVariantValues(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	if v.Tag != runtime.TagVariant {
		return typeError(ctx, "variant_values", v)
	}
	values := v.AsVariant().Values
	items := make([]runtime.Value, len(values))
	copy(items, values)
	return runtime.ListVal(&runtime.List{Items: items})
}

func builtinRef(ctx *Context, args []runtime.Value) runtime.Value {
	return runtime.RefVal(&runtime.Ref{Value: args[0]})
}

func builtinDeref(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	if v.Tag != runtime.TagRef {
		return typeError(ctx, "deref", v)
	}
	return v.AsRef().Value
}

func builtinSetRef(ctx *Context, args []runtime.Value) runtime.Value {
	v := args[0]
	if v.Tag != runtime.TagRef {
		return typeError(ctx, "set!", v)
	}
	v.AsRef().Value = args[1]
	return args[1]
}
