package ast

import (
	"github.com/lyra-lang/lyra/internal/token"
	"github.com/lyra-lang/lyra/internal/typesystem"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every AST our parser produces.
type Program struct {
	File       string // Source file path
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) GetToken() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].GetToken()
	}
	return token.Token{}
}

// Identifier represents an identifier, e.g. a variable name.
type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Token
}

// IntegerLiteral represents an integer literal.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Lexeme }
func (il *IntegerLiteral) GetToken() token.Token {
	if il == nil {
		return token.Token{}
	}
	return il.Token
}

// FloatLiteral represents a floating point literal.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Lexeme }
func (fl *FloatLiteral) GetToken() token.Token {
	if fl == nil {
		return token.Token{}
	}
	return fl.Token
}

// StringLiteral represents a string, e.g. "hello".
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Lexeme }
func (sl *StringLiteral) GetToken() token.Token {
	if sl == nil {
		return token.Token{}
	}
	return sl.Token
}

// ListLiteral represents a list literal, e.g. [1, 2, 3].
type ListLiteral struct {
	Token    token.Token // The '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Lexeme }
func (ll *ListLiteral) GetToken() token.Token {
	if ll == nil {
		return token.Token{}
	}
	return ll.Token
}

// CallExpression represents an application, e.g. (add x 1).
// Function is usually an Identifier but may be any expression that
// produces a closure.
type CallExpression struct {
	Token     token.Token // The '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token {
	if ce == nil {
		return token.Token{}
	}
	return ce.Token
}

// Assignment represents a local or top-level binding: name = expr.
type Assignment struct {
	Token token.Token // The identifier token
	Name  *Identifier
	Value Expression
}

func (a *Assignment) statementNode()       {}
func (a *Assignment) TokenLiteral() string { return a.Token.Lexeme }
func (a *Assignment) GetToken() token.Token {
	if a == nil {
		return token.Token{}
	}
	return a.Token
}

// ReturnStatement represents <- expr (Value may be nil for a bare <-).
type ReturnStatement struct {
	Token token.Token // The '<-' token
	Value Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReturnStatement) GetToken() token.Token {
	if rs == nil {
		return token.Token{}
	}
	return rs.Token
}

// ExpressionStatement wraps an expression used in statement position.
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token {
	if es == nil {
		return token.Token{}
	}
	return es.Token
}

// FunctionLiteral represents a function literal: {x y -> stmts}.
// Zero params with a body is a block: {stmt1 stmt2}.
//
// Analysis passes attach their memoized results here. Both results are
// computed lazily the first time the node is lowered, are idempotent,
// and are immutable for the rest of the compilation.
type FunctionLiteral struct {
	Token  token.Token // The '{' token
	Params []*Identifier
	Body   []Statement

	captures    []string
	capturesSet bool
	inferred    *typesystem.FunctionType
}

func (fl *FunctionLiteral) expressionNode()      {}
func (fl *FunctionLiteral) TokenLiteral() string { return fl.Token.Lexeme }
func (fl *FunctionLiteral) GetToken() token.Token {
	if fl == nil {
		return token.Token{}
	}
	return fl.Token
}

// CaptureList returns the memoized free-variable list and whether it
// has been computed. An empty capture list is a valid computed result.
func (fl *FunctionLiteral) CaptureList() ([]string, bool) {
	return fl.captures, fl.capturesSet
}

// SetCaptureList memoizes the analyzer result. The first write wins;
// re-analysis of an already-analyzed node is a no-op.
func (fl *FunctionLiteral) SetCaptureList(names []string) {
	if fl.capturesSet {
		return
	}
	fl.captures = names
	fl.capturesSet = true
}

// InferredType returns the memoized inference result, or nil if the
// node has not been inferred yet.
func (fl *FunctionLiteral) InferredType() *typesystem.FunctionType {
	return fl.inferred
}

// SetInferredType memoizes the inference result. The first write wins.
func (fl *FunctionLiteral) SetInferredType(ft *typesystem.FunctionType) {
	if fl.inferred != nil {
		return
	}
	fl.inferred = ft
}
