package sexy

import (
	"fmt"
	"strings"
	"unicode"
)

// NodeType represents the type of a Node
type NodeType int

const (
	NodeSymbol NodeType = iota
	NodeString
	NodeInteger
	NodeEllipsis
	NodeList
)

func (t NodeType) String() string {
	switch t {
	case NodeSymbol:
		return "symbol"
	case NodeString:
		return "string"
	case NodeInteger:
		return "integer"
	case NodeEllipsis:
		return "ellipsis"
	case NodeList:
		return "list"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

// Node represents any Sexy datum
type Node struct {
	Type NodeType

	// NodeSymbol, NodeString, NodeInteger
	Text string

	// NodeList
	Items []*Node
}

func (n *Node) String() string {
	switch n.Type {
	case NodeSymbol, NodeInteger:
		return n.Text
	case NodeString:
		escaped := strings.ReplaceAll(n.Text, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		return "\"" + escaped + "\""
	case NodeEllipsis:
		return "..."
	case NodeList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	default:
		return fmt.Sprintf("UNKNOWN_NODE_TYPE_%d", n.Type)
	}
}

// Helper constructors for common node types
func NewSymbol(name string) *Node {
	return &Node{Type: NodeSymbol, Text: name}
}

func NewString(value string) *Node {
	return &Node{Type: NodeString, Text: value}
}

func NewInteger(text string) *Node {
	return &Node{Type: NodeInteger, Text: text}
}

func NewEllipsis() *Node {
	return &Node{Type: NodeEllipsis}
}

func NewList(items ...*Node) *Node {
	return &Node{Type: NodeList, Items: items}
}

// IsAtom checks if the node is an atomic value
func (n *Node) IsAtom() bool {
	return n.Type != NodeList
}

// Parse parses exactly one datum from input.
func Parse(input string) (*Node, error) {
	p := &parser{lexer: &lexer{input: input}}
	p.next()

	node, err := p.parseDatum()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.tok.Type != tokenEOF {
		return nil, fmt.Errorf("offset %d: expected end of input but got %s", p.tok.Pos, p.tok.Type)
	}
	return node, nil
}

type parser struct {
	lexer *lexer
	tok   token
	err   error
}

func (p *parser) next() {
	p.tok, p.err = p.lexer.nextToken()
}

func (p *parser) parseDatum() (*Node, error) {
	if p.err != nil {
		return nil, p.err
	}

	tok := p.tok
	switch tok.Type {
	case tokenSymbol:
		p.next()
		return NewSymbol(tok.Value), nil
	case tokenString:
		p.next()
		return NewString(tok.Value), nil
	case tokenInteger:
		p.next()
		return NewInteger(tok.Value), nil
	case tokenEllipsis:
		p.next()
		return NewEllipsis(), nil
	case tokenLParen:
		return p.parseList()
	default:
		return nil, fmt.Errorf("offset %d: unexpected %s", tok.Pos, tok.Type)
	}
}

func (p *parser) parseList() (*Node, error) {
	open := p.tok.Pos
	p.next() // consume '('

	items := []*Node{}
	for p.err == nil && p.tok.Type != tokenRParen {
		if p.tok.Type == tokenEOF {
			return nil, fmt.Errorf("offset %d: unclosed '('", open)
		}
		item, err := p.parseDatum()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if p.err != nil {
		return nil, p.err
	}
	p.next() // consume ')'

	return NewList(items...), nil
}

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenSymbol
	tokenString
	tokenInteger
	tokenEllipsis
	tokenLParen
	tokenRParen
)

func (t tokenType) String() string {
	switch t {
	case tokenEOF:
		return "EOF"
	case tokenSymbol:
		return "symbol"
	case tokenString:
		return "string"
	case tokenInteger:
		return "integer"
	case tokenEllipsis:
		return "ellipsis"
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	default:
		return fmt.Sprintf("unknown token %d", int(t))
	}
}

type token struct {
	Type  tokenType
	Value string
	Pos   int
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) nextToken() (token, error) {
	for {
		// whitespace and ; comments
		for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
			l.pos++
		}
		if l.peek(0) != ';' {
			break
		}
		for l.pos < len(l.input) && l.input[l.pos] != '\n' {
			l.pos++
		}
	}

	start := l.pos
	if l.pos >= len(l.input) {
		return token{Type: tokenEOF, Pos: start}, nil
	}

	c := l.input[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{Type: tokenLParen, Value: "(", Pos: start}, nil
	case c == ')':
		l.pos++
		return token{Type: tokenRParen, Value: ")", Pos: start}, nil
	case c == '"':
		return l.readString()
	case c == '.':
		if l.peek(1) == '.' && l.peek(2) == '.' {
			l.pos += 3
			return token{Type: tokenEllipsis, Value: "...", Pos: start}, nil
		}
		return token{}, fmt.Errorf("offset %d: unexpected character '.'", start)
	case isDigit(c) || ((c == '-' || c == '+') && isDigit(l.peek(1))):
		l.pos++
		for isDigit(l.peek(0)) {
			l.pos++
		}
		return token{Type: tokenInteger, Value: l.input[start:l.pos], Pos: start}, nil
	case isSymbolChar(c):
		for isSymbolChar(l.peek(0)) {
			l.pos++
		}
		return token{Type: tokenSymbol, Value: l.input[start:l.pos], Pos: start}, nil
	default:
		return token{}, fmt.Errorf("offset %d: unexpected character '%c'", start, c)
	}
}

func (l *lexer) readString() (token, error) {
	start := l.pos
	l.pos++ // opening quote

	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return token{}, fmt.Errorf("offset %d: unterminated string", start)
		}
		c := l.input[l.pos]
		l.pos++
		switch c {
		case '"':
			return token{Type: tokenString, Value: sb.String(), Pos: start}, nil
		case '\\':
			esc := l.peek(0)
			if esc != '"' && esc != '\\' {
				return token{}, fmt.Errorf("offset %d: invalid escape sequence \\%c", l.pos-1, esc)
			}
			sb.WriteByte(esc)
			l.pos++
		default:
			sb.WriteByte(c)
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isSymbolChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c == '-' || c == '_' || c == '+'
}
