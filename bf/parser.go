package bf

import (
	"fmt"
	"os"
)

// frame is one in-progress sibling list on the builder stack.
type frame struct {
	instrs []Instruction
	open   Pos // position of the '[' that opened this frame
}

// Build turns a token stream into an instruction tree. Loop nesting is
// tracked with an explicit stack, so deeply nested input cannot overflow the
// call stack.
//
// On a structural error no partial tree is returned.
func Build(tokens []Token) (Program, error) {
	stack := []frame{{instrs: []Instruction{}}}

	for _, tok := range tokens {
		top := &stack[len(stack)-1]

		switch tok.Type {
		case INCREMENT:
			top.instrs = append(top.instrs, Add(1))
		case DECREMENT:
			top.instrs = append(top.instrs, Add(-1))
		case MOVE_RIGHT:
			top.instrs = append(top.instrs, Move(1))
		case MOVE_LEFT:
			top.instrs = append(top.instrs, Move(-1))
		case OUTPUT:
			top.instrs = append(top.instrs, Output())
		case INPUT:
			top.instrs = append(top.instrs, Input())

		case LOOP_START:
			stack = append(stack, frame{instrs: []Instruction{}, open: tok.Pos})

		case LOOP_END:
			if len(stack) <= 1 {
				return Program{}, &StructuralError{Err: ErrUnmatchedLoopEnd, Pos: tok.Pos}
			}
			body := stack[len(stack)-1].instrs
			stack[len(stack)-1] = frame{}
			stack = stack[:len(stack)-1]

			parent := &stack[len(stack)-1]
			parent.instrs = append(parent.instrs, Loop(body...))

		default:
			panic(fmt.Sprintf("unexpected token type %q", tok.Type))
		}
	}

	if len(stack) != 1 {
		return Program{}, &StructuralError{Err: ErrUnmatchedLoopStart, Pos: stack[len(stack)-1].open}
	}

	return Program{Instructions: stack[0].instrs}, nil
}

// Parse runs the recognizer and tree builder over src and, if optimize is
// set, the optimizer.
func Parse(src []byte, optimize bool) (Program, error) {
	program, err := Build(Lex(src))
	if err != nil {
		return Program{}, err
	}

	if optimize {
		program = program.Optimize()
	}
	return program, nil
}

// ParseFile reads and parses the file at path. Errors opening or reading the
// file are not *StructuralError.
func ParseFile(path string, optimize bool) (Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Program{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(src, optimize)
}
