package compiler

import (
	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/token"
)

type CompilerProcessor struct{}

func (cp *CompilerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.HasErrors() {
		// Lowering a broken AST only produces noise on top of the
		// parser's diagnostics.
		return ctx
	}
	prog, ok := ctx.AstRoot.(*ast.Program)
	if !ok || prog == nil {
		err := diagnostics.NewError("C000", token.Token{}, "compiler: AST root is nil")
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}

	ctx.Compiled = Compile(prog, ctx)

	for _, err := range ctx.Errors {
		if err.File == "" {
			err.File = ctx.FilePath
		}
	}

	return ctx
}
