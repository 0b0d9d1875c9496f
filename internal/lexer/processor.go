package lexer

import (
	"fmt"

	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/token"
)

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	l := New(ctx.Source)
	tokens := l.Tokens()

	for _, tok := range tokens {
		if tok.Type == token.ILLEGAL {
			err := diagnostics.NewError(diagnostics.ErrL002, tok,
				fmt.Sprintf("illegal token %q", tok.Lexeme))
			err.File = ctx.FilePath
			ctx.Errors = append(ctx.Errors, err)
		}
	}

	ctx.TokenStream = tokens
	return ctx
}
