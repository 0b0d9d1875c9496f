package lexer

import (
	"testing"

	"github.com/lyra-lang/lyra/internal/token"
)

func TestBasicTokens(t *testing.T) {
	input := `sum = (add 1 2.5)
greet = {name -> <- (concat "hi " name)}
nums = [1, -2, 0x1A]
`
	expected := []struct {
		typ    token.Type
		lexeme string
	}{
		{token.IDENT, "sum"},
		{token.ASSIGN, "="},
		{token.LPAREN, "("},
		{token.IDENT, "add"},
		{token.INT, "1"},
		{token.FLOAT, "2.5"},
		{token.RPAREN, ")"},
		{token.IDENT, "greet"},
		{token.ASSIGN, "="},
		{token.LBRACE, "{"},
		{token.IDENT, "name"},
		{token.ARROW, "->"},
		{token.RETURN, "<-"},
		{token.LPAREN, "("},
		{token.IDENT, "concat"},
		{token.STRING, "hi "},
		{token.IDENT, "name"},
		{token.RPAREN, ")"},
		{token.RBRACE, "}"},
		{token.IDENT, "nums"},
		{token.ASSIGN, "="},
		{token.LBRACKET, "["},
		{token.INT, "1"},
		{token.COMMA, ","},
		{token.INT, "-2"},
		{token.COMMA, ","},
		{token.INT, "0x1A"},
		{token.RBRACKET, "]"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want.typ {
			t.Fatalf("token %d: type %q, want %q (lexeme %q)", i, tok.Type, want.typ, tok.Lexeme)
		}
		if tok.Type != token.EOF && tok.Lexeme != want.lexeme {
			t.Fatalf("token %d: lexeme %q, want %q", i, tok.Lexeme, want.lexeme)
		}
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	input := `// leading comment
x = 1 // trailing comment
// another
y = 2`
	tokens := New(input).Tokens()
	var idents []string
	for _, tok := range tokens {
		if tok.Type == token.IDENT {
			idents = append(idents, tok.Lexeme)
		}
	}
	if len(idents) != 2 || idents[0] != "x" || idents[1] != "y" {
		t.Errorf("identifiers = %v, want [x y]", idents)
	}
}

func TestIdentifierCharacters(t *testing.T) {
	for _, name := range []string{"is_even?", "set!", "make-adder", "_private", "x2"} {
		tokens := New(name).Tokens()
		if len(tokens) != 2 || tokens[0].Type != token.IDENT || tokens[0].Lexeme != name {
			t.Errorf("%q lexed as %v, want single identifier", name, tokens[:len(tokens)-1])
		}
	}
}

func TestArrowTerminatesIdentifier(t *testing.T) {
	tokens := New("x-> y").Tokens()
	if tokens[0].Type != token.IDENT || tokens[0].Lexeme != "x" {
		t.Fatalf("first token = %v, want identifier x", tokens[0])
	}
	if tokens[1].Type != token.ARROW {
		t.Fatalf("second token = %v, want arrow", tokens[1])
	}
}

func TestNegativeNumberLexesAsOneToken(t *testing.T) {
	tokens := New("(add 0 -5)").Tokens()
	var nums []token.Token
	for _, tok := range tokens {
		if tok.Type == token.INT || tok.Type == token.FLOAT {
			nums = append(nums, tok)
		}
	}
	if len(nums) != 2 {
		t.Fatalf("number tokens = %v, want two", nums)
	}
	if nums[1].Lexeme != "-5" {
		t.Errorf("second number = %q, want -5", nums[1].Lexeme)
	}
}

func TestStringEscapes(t *testing.T) {
	tokens := New(`"a\nb\t\"c\\"`).Tokens()
	if tokens[0].Type != token.STRING {
		t.Fatalf("token = %v, want string", tokens[0])
	}
	if got := tokens[0].Lexeme; got != "a\nb\t\"c\\" {
		t.Errorf("lexeme = %q", got)
	}
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	tokens := New(`"abc`).Tokens()
	if tokens[0].Type != token.ILLEGAL {
		t.Errorf("token = %v, want illegal", tokens[0])
	}
}

func TestLoneAngleIsIllegal(t *testing.T) {
	tokens := New("<").Tokens()
	if tokens[0].Type != token.ILLEGAL {
		t.Errorf("token = %v, want illegal", tokens[0])
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	tokens := New("a\n  b").Tokens()
	if tokens[0].Line != 1 {
		t.Errorf("a on line %d, want 1", tokens[0].Line)
	}
	if tokens[1].Line != 2 || tokens[1].Column != 3 {
		t.Errorf("b at %d:%d, want 2:3", tokens[1].Line, tokens[1].Column)
	}
}
