package wasm

import (
	"fmt"
	"strings"

	"github.com/strager/brainfxxck/bf"
)

// CompileToWAT renders the module CompileToWASM would produce in the
// WebAssembly text format.
func CompileToWAT(program bf.Program, opts Options) (string, error) {
	tapeSize, err := opts.tapeSize()
	if err != nil {
		return "", err
	}

	w := &watWriter{tapeSize: tapeSize}
	w.line(0, "(module")
	w.line(1, `(import "env" "putchar" (func $putchar (param i32)))`)
	w.line(1, `(import "env" "getchar" (func $getchar (result i32)))`)
	w.line(1, fmt.Sprintf(`(memory (export "memory") %d)`, pagesFor(tapeSize)))
	w.line(1, fmt.Sprintf(`(global (export "tape_size") i32 (i32.const %d))`, tapeSize))
	w.line(1, `(func (export "main") (result i32)`)
	w.line(2, "(local $p i32)")
	w.instructions(2, program.Instructions)
	w.line(2, "local.get $p)")
	w.line(0, ")")

	return w.sb.String(), nil
}

type watWriter struct {
	sb       strings.Builder
	tapeSize int64
}

func (w *watWriter) line(depth int, text string) {
	w.sb.WriteString(strings.Repeat("  ", depth))
	w.sb.WriteString(text)
	w.sb.WriteByte('\n')
}

func (w *watWriter) instructions(depth int, instrs []bf.Instruction) {
	for _, instr := range instrs {
		w.instruction(depth, instr)
	}
}

func (w *watWriter) instruction(depth int, instr bf.Instruction) {
	switch instr.Kind {
	case bf.InstrAdd:
		delta := cellValue(instr.Value)
		if delta == 0 {
			return
		}
		w.line(depth, fmt.Sprintf(";; add %d", instr.Value))
		w.line(depth, "local.get $p")
		w.line(depth, "local.get $p")
		w.line(depth, "i32.load8_u")
		w.line(depth, fmt.Sprintf("i32.const %d", delta))
		w.line(depth, "i32.add")
		w.line(depth, "i32.store8")

	case bf.InstrMove:
		offset := tapeOffset(instr.Value, w.tapeSize)
		if offset == 0 {
			return
		}
		w.line(depth, fmt.Sprintf(";; move %d", instr.Value))
		w.line(depth, "local.get $p")
		w.line(depth, fmt.Sprintf("i32.const %d", offset))
		w.line(depth, "i32.add")
		w.line(depth, fmt.Sprintf("i32.const %d", w.tapeSize))
		w.line(depth, "i32.rem_u")
		w.line(depth, "local.set $p")

	case bf.InstrSet:
		w.line(depth, fmt.Sprintf(";; set %d", instr.Value))
		w.line(depth, "local.get $p")
		w.line(depth, fmt.Sprintf("i32.const %d", cellValue(instr.Value)))
		w.line(depth, "i32.store8")

	case bf.InstrInput:
		w.line(depth, ";; input")
		w.line(depth, "local.get $p")
		w.line(depth, "call $getchar")
		w.line(depth, "i32.store8")

	case bf.InstrOutput:
		w.line(depth, ";; output")
		w.line(depth, "local.get $p")
		w.line(depth, "i32.load8_u")
		w.line(depth, "call $putchar")

	case bf.InstrLoop:
		w.line(depth, ";; loop")
		w.line(depth, "block")
		w.line(depth+1, "loop")
		w.line(depth+2, "local.get $p")
		w.line(depth+2, "i32.load8_u")
		w.line(depth+2, "i32.eqz")
		w.line(depth+2, "br_if 1")
		w.instructions(depth+2, instr.Body)
		w.line(depth+2, "br 0")
		w.line(depth+1, "end")
		w.line(depth, "end")

	default:
		panic("Unsupported instruction kind: " + string(instr.Kind))
	}
}
