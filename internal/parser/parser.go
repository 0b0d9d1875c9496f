package parser

import (
	"fmt"
	"strconv"

	"github.com/lyra-lang/lyra/internal/ast"
	"github.com/lyra-lang/lyra/internal/diagnostics"
	"github.com/lyra-lang/lyra/internal/pipeline"
	"github.com/lyra-lang/lyra/internal/token"
)

// Parser turns a token stream into an AST. Errors are collected on the
// pipeline context; the parser keeps going after an error so a single
// run reports as much as possible.
type Parser struct {
	tokens []token.Token
	pos    int
	ctx    *pipeline.PipelineContext
}

func New(tokens []token.Token, ctx *pipeline.PipelineContext) *Parser {
	return &Parser{tokens: tokens, ctx: ctx}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() token.Token {
	if p.pos+1 >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() token.Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) errorf(code diagnostics.ErrorCode, tok token.Token, format string, args ...any) {
	err := diagnostics.NewError(code, tok, fmt.Sprintf(format, args...))
	err.File = p.ctx.FilePath
	p.ctx.Errors = append(p.ctx.Errors, err)
}

// ParseProgram parses the whole token stream.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	for p.cur().Type != token.EOF {
		stmt := p.parseStatement()
		if stmt == nil {
			// Skip the offending token so we make progress.
			p.advance()
			continue
		}
		program.Statements = append(program.Statements, stmt)
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	switch {
	case p.cur().Type == token.IDENT && p.peek().Type == token.ASSIGN:
		return p.parseAssignment()
	case p.cur().Type == token.RETURN:
		return p.parseReturn()
	default:
		tok := p.cur()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		return &ast.ExpressionStatement{Token: tok, Expression: expr}
	}
}

func (p *Parser) parseAssignment() ast.Statement {
	nameTok := p.advance()
	p.advance() // '='
	value := p.parseExpression()
	if value == nil {
		p.errorf(diagnostics.ErrP004, nameTok, "assignment to %q has no value", nameTok.Lexeme)
		return nil
	}
	return &ast.Assignment{
		Token: nameTok,
		Name:  &ast.Identifier{Token: nameTok, Value: nameTok.Lexeme},
		Value: value,
	}
}

func (p *Parser) parseReturn() ast.Statement {
	retTok := p.advance() // '<-'
	stmt := &ast.ReturnStatement{Token: retTok}
	if t := p.cur().Type; t != token.RBRACE && t != token.EOF {
		stmt.Value = p.parseExpression()
	}
	return stmt
}

func (p *Parser) parseExpression() ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case token.INT:
		return p.parseIntegerLiteral()
	case token.FLOAT:
		return p.parseFloatLiteral()
	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Token: tok, Value: tok.Lexeme}
	case token.IDENT:
		p.advance()
		return &ast.Identifier{Token: tok, Value: tok.Lexeme}
	case token.LPAREN:
		return p.parseCall()
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.LBRACE:
		return p.parseFunctionLiteral()
	default:
		p.errorf(diagnostics.ErrP001, tok, "unexpected token %q", tok.Lexeme)
		return nil
	}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	tok := p.advance()
	value, err := strconv.ParseInt(tok.Lexeme, 0, 64)
	if err != nil {
		p.errorf(diagnostics.ErrP001, tok, "malformed integer literal %q", tok.Lexeme)
		return nil
	}
	return &ast.IntegerLiteral{Token: tok, Value: value}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	tok := p.advance()
	value, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil {
		p.errorf(diagnostics.ErrP001, tok, "malformed float literal %q", tok.Lexeme)
		return nil
	}
	return &ast.FloatLiteral{Token: tok, Value: value}
}

func (p *Parser) parseCall() ast.Expression {
	lparen := p.advance() // '('

	fn := p.parseExpression()
	if fn == nil {
		return nil
	}

	call := &ast.CallExpression{Token: lparen, Function: fn}
	for p.cur().Type != token.RPAREN {
		if p.cur().Type == token.EOF {
			p.errorf(diagnostics.ErrP002, lparen, "unterminated application")
			return nil
		}
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		call.Arguments = append(call.Arguments, arg)
	}
	p.advance() // ')'
	return call
}

func (p *Parser) parseListLiteral() ast.Expression {
	lbracket := p.advance() // '['
	list := &ast.ListLiteral{Token: lbracket}
	for p.cur().Type != token.RBRACKET {
		if p.cur().Type == token.EOF {
			p.errorf(diagnostics.ErrP001, lbracket, "unterminated list literal")
			return nil
		}
		elem := p.parseExpression()
		if elem == nil {
			return nil
		}
		list.Elements = append(list.Elements, elem)
		if p.cur().Type == token.COMMA {
			p.advance()
		}
	}
	p.advance() // ']'
	return list
}

// parseFunctionLiteral handles both the parameterized form
// {x y -> stmts} and the bare block form {stmts}. Leading identifiers
// are parameters only when an arrow follows them, so the parser scans
// ahead before committing.
func (p *Parser) parseFunctionLiteral() ast.Expression {
	lbrace := p.advance() // '{'
	fn := &ast.FunctionLiteral{Token: lbrace}

	// Scan ahead: IDENT* ARROW means the identifiers are parameters.
	scan := p.pos
	for scan < len(p.tokens) && p.tokens[scan].Type == token.IDENT {
		scan++
	}
	if scan < len(p.tokens) && p.tokens[scan].Type == token.ARROW {
		for p.cur().Type == token.IDENT {
			tok := p.advance()
			fn.Params = append(fn.Params, &ast.Identifier{Token: tok, Value: tok.Lexeme})
		}
		p.advance() // '->'
	} else if p.cur().Type == token.ARROW {
		// Zero-parameter form: {-> stmts}
		p.advance()
	}

	for p.cur().Type != token.RBRACE {
		if p.cur().Type == token.EOF {
			p.errorf(diagnostics.ErrP003, lbrace, "unterminated function literal")
			return nil
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.advance()
			continue
		}
		fn.Body = append(fn.Body, stmt)
	}
	p.advance() // '}'
	return fn
}
