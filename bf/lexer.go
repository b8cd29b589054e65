package bf

// symbols maps each recognized byte to its token type. Every other byte is a
// comment.
var symbols = [256]TokenType{
	'+': INCREMENT,
	'-': DECREMENT,
	'>': MOVE_RIGHT,
	'<': MOVE_LEFT,
	'.': OUTPUT,
	',': INPUT,
	'[': LOOP_START,
	']': LOOP_END,
}

// Lex scans src once, left to right, and returns the recognized symbols in
// source order. Lex never fails: unrecognized bytes are skipped.
func Lex(src []byte) []Token {
	var tokens []Token
	line, col := 1, 1

	for _, c := range src {
		if tt := symbols[c]; tt != "" {
			tokens = append(tokens, Token{Type: tt, Pos: Pos{Line: line, Column: col}})
		}

		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return tokens
}
