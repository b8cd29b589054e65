package bf

import (
	"strconv"
	"strings"
)

// ToSExpr renders a program as an s-expression, e.g.
// "(program (add 2) (loop (move 1) (add -1)))".
func ToSExpr(p Program) string {
	var sb strings.Builder
	sb.WriteString("(program")
	for _, instr := range p.Instructions {
		sb.WriteByte(' ')
		writeSExpr(&sb, instr)
	}
	sb.WriteByte(')')
	return sb.String()
}

// InstrToSExpr renders a single instruction as an s-expression.
func InstrToSExpr(instr Instruction) string {
	var sb strings.Builder
	writeSExpr(&sb, instr)
	return sb.String()
}

func writeSExpr(sb *strings.Builder, instr Instruction) {
	switch instr.Kind {
	case InstrAdd:
		sb.WriteString("(add " + strconv.FormatInt(instr.Value, 10) + ")")
	case InstrMove:
		sb.WriteString("(move " + strconv.FormatInt(instr.Value, 10) + ")")
	case InstrSet:
		sb.WriteString("(set " + strconv.FormatInt(instr.Value, 10) + ")")
	case InstrInput:
		sb.WriteString("(input)")
	case InstrOutput:
		sb.WriteString("(output)")
	case InstrLoop:
		sb.WriteString("(loop")
		for _, child := range instr.Body {
			sb.WriteByte(' ')
			writeSExpr(sb, child)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString("(unknown " + strconv.Quote(string(instr.Kind)) + ")")
	}
}
