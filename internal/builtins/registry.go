package builtins

import (
	"bufio"
	"io"
	"os"

	"github.com/lyra-lang/lyra/internal/runtime"
)

// Context carries what a builtin needs besides its arguments: the call
// site line for error reporting, the output/input streams, and a
// callback for applying closure values (so list/variant helpers can
// stay backend-agnostic).
type Context struct {
	Line   int
	Out    io.Writer
	In     *bufio.Reader
	Apply  func(fn runtime.Value, args []runtime.Value, line int) runtime.Value
	Import func(spec string, line int) runtime.Value
}

func NewContext(line int) *Context {
	return &Context{Line: line, Out: os.Stdout, In: bufio.NewReader(os.Stdin)}
}

// Func is the implementation of a builtin over boxed values. Failures
// are signalled through the runtime error flag, never by panicking.
type Func func(ctx *Context, args []runtime.Value) runtime.Value

// Builtin describes one entry of the global builtin registry.
type Builtin struct {
	Name       string
	Capability string // "" = always available; otherwise io/terminal/storage
	MinArgs    int
	MaxArgs    int // -1 = variadic
	Fn         Func // nil for special forms lowered by the compiler
}

// registry is the fixed, process-wide, read-only builtin table. Names
// in it have static linkage: they are never subject to closure capture.
var registry = map[string]*Builtin{}

func register(b *Builtin) {
	registry[b.Name] = b
}

func init() {
	// Control flow: special forms, no runtime body. They live in the
	// registry so the free-variable analyzer never captures them.
	for _, name := range []string{
		"if", "when", "unless", "cond", "else",
		"loop", "while", "break", "continue",
		"and", "or", "try",
	} {
		register(&Builtin{Name: name, MinArgs: 0, MaxArgs: -1})
	}

	// import delegates to the module loader through the context hook,
	// so this package stays below the loader in the dependency graph.
	register(&Builtin{Name: "import", MinArgs: 1, MaxArgs: 1, Fn: builtinImport})

	registerCore()
	registerList()
	registerIO()
	registerTerm()
	registerStore()
}

func builtinImport(ctx *Context, args []runtime.Value) runtime.Value {
	if args[0].Tag != runtime.TagString {
		runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "import needs a path string")
		return runtime.Void()
	}
	if ctx.Import == nil {
		runtime.RaiseError(runtime.ErrTypeMismatch, ctx.Line, "import is not available here")
		return runtime.Void()
	}
	return ctx.Import(args[0].AsString(), ctx.Line)
}

// IsGlobalBuiltin is the pure classification used by the free-variable
// analyzer: builtins are globally linked and never captured.
func IsGlobalBuiltin(name string) bool {
	_, ok := registry[name]
	return ok
}

// Lookup returns the builtin for name, or nil.
func Lookup(name string) *Builtin {
	return registry[name]
}

// Table returns the registry filtered by a capability set. An empty
// set means unrestricted. Capability-free builtins are always present;
// the map is a fresh copy, callers may not mutate the registry through
// it.
func Table(capabilities []string) map[string]*Builtin {
	allowed := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		allowed[c] = true
	}
	out := make(map[string]*Builtin, len(registry))
	for name, b := range registry {
		if b.Capability == "" || len(capabilities) == 0 || allowed[b.Capability] {
			out[name] = b
		}
	}
	return out
}

// CheckArity reports whether n arguments are acceptable for b.
func (b *Builtin) CheckArity(n int) bool {
	if n < b.MinArgs {
		return false
	}
	if b.MaxArgs >= 0 && n > b.MaxArgs {
		return false
	}
	return true
}
