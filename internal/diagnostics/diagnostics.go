package diagnostics

import (
	"fmt"

	"github.com/lyra-lang/lyra/internal/token"
)

// ErrorCode is a stable identifier for a class of diagnostics.
// L = lexer, P = parser, C = compiler, A = analyzer, R = runtime.
type ErrorCode string

const (
	ErrL001 ErrorCode = "L001" // unterminated string
	ErrL002 ErrorCode = "L002" // illegal character
	ErrL003 ErrorCode = "L003" // malformed number literal

	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // unterminated application
	ErrP003 ErrorCode = "P003" // unterminated function literal
	ErrP004 ErrorCode = "P004" // malformed assignment

	ErrC001 ErrorCode = "C001" // incompatible kinds at merge point
	ErrC002 ErrorCode = "C002" // malformed clause
	ErrC003 ErrorCode = "C003" // break/continue outside loop
	ErrC004 ErrorCode = "C004" // wrong arity for builtin

	ErrA001 ErrorCode = "A001" // module loading failed
	ErrA002 ErrorCode = "A002" // circular import

	ErrR001 ErrorCode = "R001" // runtime failure surfaced at top level
)

// DiagnosticError carries a code, source location and message.
// It is collected on the pipeline context rather than aborting
// the stage that produced it.
type DiagnosticError struct {
	Code    ErrorCode
	Line    int
	Column  int
	File    string
	Message string
}

func NewError(code ErrorCode, tok token.Token, message string) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Line:    tok.Line,
		Column:  tok.Column,
		Message: message,
	}
}

func (d *DiagnosticError) Error() string {
	if d.File != "" {
		return fmt.Sprintf("%s:%d:%d: [%s] %s", d.File, d.Line, d.Column, d.Code, d.Message)
	}
	return fmt.Sprintf("line %d: [%s] %s", d.Line, d.Code, d.Message)
}
