package pipeline

import (
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/token"
)

// Processor is a single stage of the pipeline (lexer, parser, ...).
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries the program through the stages. Each stage
// reads the fields of the previous one and fills in its own.
type PipelineContext struct {
	Source   string
	FilePath string

	TokenStream []token.Token

	// AstRoot is *ast.Program after parsing. Declared as any to keep
	// this package free of upward dependencies.
	AstRoot any

	// Compiled is *ir.Module after lowering, for the compile backend.
	Compiled any

	Errors []*diagnostics.DiagnosticError
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{Source: source}
}

// HasErrors reports whether any stage recorded a diagnostic.
func (ctx *PipelineContext) HasErrors() bool {
	return len(ctx.Errors) > 0
}
