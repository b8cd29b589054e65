package bf

import "fmt"

// TokenType is the kind of a recognized source symbol.
type TokenType string

const (
	INCREMENT  TokenType = "+"
	DECREMENT  TokenType = "-"
	MOVE_RIGHT TokenType = ">"
	MOVE_LEFT  TokenType = "<"
	OUTPUT     TokenType = "."
	INPUT      TokenType = ","
	LOOP_START TokenType = "["
	LOOP_END   TokenType = "]"
)

// Pos is a 1-based line and column in the source text.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is one recognized symbol and where it was found.
type Token struct {
	Type TokenType
	Pos  Pos
}
