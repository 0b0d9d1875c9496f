package builtins

import (
	"fmt"
	"strings"

	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/runtime"
)

func registerIO() {
	register(&Builtin{Name: "print", Capability: config.CapabilityIO, MinArgs: 0, MaxArgs: -1, Fn: builtinPrint})
	register(&Builtin{Name: "println", Capability: config.CapabilityIO, MinArgs: 0, MaxArgs: -1, Fn: builtinPrintln})
	register(&Builtin{Name: "input", Capability: config.CapabilityIO, MinArgs: 0, MaxArgs: 1, Fn: builtinInput})
}

func displayString(v runtime.Value) string {
	// Strings print bare; everything else uses its inspect form.
	if v.Tag == runtime.TagString {
		return v.AsString()
	}
	return v.Inspect()
}

func builtinPrint(ctx *Context, args []runtime.Value) runtime.Value {
	for _, v := range args {
		fmt.Fprint(ctx.Out, displayString(v))
	}
	return runtime.Void()
}

func builtinPrintln(ctx *Context, args []runtime.Value) runtime.Value {
	builtinPrint(ctx, args)
	fmt.Fprintln(ctx.Out)
	return runtime.Void()
}

func builtinInput(ctx *Context, args []runtime.Value) runtime.Value {
	if len(args) == 1 {
		if args[0].Tag != runtime.TagString {
			return typeError(ctx, "input", args[0])
		}
		fmt.Fprint(ctx.Out, args[0].AsString())
	}
	line, err := ctx.In.ReadString('\n')
	if err != nil && line == "" {
		return runtime.Void()
	}
	return runtime.StringVal(strings.TrimRight(line, "\r\n"))
}
