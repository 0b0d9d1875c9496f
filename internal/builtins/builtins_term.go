package builtins

import (
	"os"

	"github.com/mattn/go-isatty"

	"github.com/lyra-lang/lyra/internal/config"
	"github.com/lyra-lang/lyra/internal/runtime"
)

func registerTerm() {
	register(&Builtin{Name: "rows", Capability: config.CapabilityTerminal, MinArgs: 0, MaxArgs: 0, Fn: builtinRows})
	register(&Builtin{Name: "columns", Capability: config.CapabilityTerminal, MinArgs: 0, MaxArgs: 0, Fn: builtinColumns})
	register(&Builtin{Name: "is_terminal", Capability: config.CapabilityTerminal, MinArgs: 0, MaxArgs: 0, Fn: builtinIsTerminal})
}

func builtinRows(ctx *Context, args []runtime.Value) runtime.Value {
	rows, _ := getTerminalSize()
	return runtime.IntVal(int64(rows))
}

func builtinColumns(ctx *Context, args []runtime.Value) runtime.Value {
	_, cols := getTerminalSize()
	return runtime.IntVal(int64(cols))
}

func builtinIsTerminal(ctx *Context, args []runtime.Value) runtime.Value {
	fd := os.Stdout.Fd()
	return runtime.BoolVal(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}
