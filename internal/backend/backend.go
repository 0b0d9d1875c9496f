// Package backend selects how a parsed program is executed: walked
// directly by the evaluator or lowered by the compiler and run on the
// IR executor.
package backend

import (
	"fmt"
	"io"

	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/builtins"
	"github.com/lyra-lang/lyra/internal/compiler"
	"github.com/lyra-lang/lyra/internal/evaluator"
	"github.com/lyra-lang/lyra/internal/ir"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/runtime"
)

const (
	WalkBackend    = "walk"
	CompileBackend = "compile"
)

// Options carry per-run wiring that is not part of the program text.
type Options struct {
	Table  map[string]*builtins.Builtin
	Out    io.Writer                                 // nil = stdout
	Import func(spec string, line int) runtime.Value // nil = import unavailable
}

// Backend runs a parsed program. Diagnostics produced while running
// (the compile backend lowers first) are appended to ctx.
type Backend interface {
	Name() string
	Run(ctx *pipeline.PipelineContext, opts Options) (runtime.Value, error)
}

// Select maps a backend name from the CLI or manifest to an
// implementation.
func Select(name string) (Backend, error) {
	switch name {
	case WalkBackend:
		return walkBackend{}, nil
	case CompileBackend, "":
		return compileBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", name, WalkBackend, CompileBackend)
	}
}

func programOf(ctx *pipeline.PipelineContext) (*ast.Program, error) {
	prog, ok := ctx.AstRoot.(*ast.Program)
	if !ok || prog == nil {
		return nil, fmt.Errorf("backend: no parsed program on the pipeline context")
	}
	return prog, nil
}

type walkBackend struct{}

func (walkBackend) Name() string { return WalkBackend }

func (walkBackend) Run(ctx *pipeline.PipelineContext, opts Options) (runtime.Value, error) {
	prog, err := programOf(ctx)
	if err != nil {
		return runtime.Void(), err
	}
	ev := evaluator.New(opts.Table)
	if opts.Out != nil {
		ev.SetOutput(opts.Out)
	}
	ev.SetImport(opts.Import)
	return ev.Run(prog), nil
}

type compileBackend struct{}

func (compileBackend) Name() string { return CompileBackend }

func (compileBackend) Run(ctx *pipeline.PipelineContext, opts Options) (runtime.Value, error) {
	if _, err := programOf(ctx); err != nil {
		return runtime.Void(), err
	}
	ctx = pipeline.New(&compiler.CompilerProcessor{}).Run(ctx)
	if ctx.HasErrors() {
		return runtime.Void(), fmt.Errorf("compilation failed with %d diagnostics", len(ctx.Errors))
	}
	mod, ok := ctx.Compiled.(*ir.Module)
	if !ok || mod == nil {
		return runtime.Void(), fmt.Errorf("backend: no compiled module on the pipeline context")
	}
	ex := ir.NewExecutor(mod, opts.Table)
	if opts.Out != nil {
		ex.SetOutput(opts.Out)
	}
	ex.SetImport(opts.Import)
	return ex.Run(), nil
}
