package wasm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/strager/brainfxxck/bf"
)

const (
	// DefaultTapeSize is the number of cells when Options.TapeSize is zero.
	DefaultTapeSize = 30000
	// MaxTapeSize keeps cursor arithmetic inside an i32.
	MaxTapeSize = 1 << 24

	pageSize = 65536
)

// Function indices. Imports come first.
const (
	funcPutchar = 0
	funcGetchar = 1
	funcMain    = 2
)

// Type indices.
const (
	typeI32ToVoid = 0 // putchar
	typeVoidToI32 = 1 // getchar, main
)

// The cursor is main's only local.
const localCursor = 0

var ErrInvalidTapeSize = errors.New("invalid tape size")

// Options control code generation.
type Options struct {
	// TapeSize is the number of 8-bit cells. Zero means DefaultTapeSize.
	TapeSize int
}

func (o Options) tapeSize() (int64, error) {
	size := o.TapeSize
	if size == 0 {
		size = DefaultTapeSize
	}
	if size < 1 || size > MaxTapeSize {
		return 0, fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidTapeSize, o.TapeSize, MaxTapeSize)
	}
	return int64(size), nil
}

// pagesFor returns the number of 64 KiB memory pages holding size cells.
func pagesFor(size int64) uint32 {
	return uint32((size + pageSize - 1) / pageSize)
}

// cellValue reduces a value to the 8-bit cell it is stored in.
func cellValue(v int64) int64 {
	return int64(uint8(v))
}

// tapeOffset reduces a cursor offset to the equivalent forward move in
// [0, size).
func tapeOffset(offset, size int64) int64 {
	return ((offset % size) + size) % size
}

// WASM Section Emitters
func EmitWASMHeader(buf *bytes.Buffer) {
	// WASM magic number
	writeBytes(buf, []byte{0x00, 0x61, 0x73, 0x6D})
	// WASM version
	writeBytes(buf, []byte{0x01, 0x00, 0x00, 0x00})
}

func EmitTypeSection(buf *bytes.Buffer) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 2) // 2 function types

	// Type 0: putchar (i32) -> ()
	writeByte(&sectionBuf, TYPE_FUNC)
	writeLEB128(&sectionBuf, 1)
	writeByte(&sectionBuf, TYPE_I32)
	writeLEB128(&sectionBuf, 0)

	// Type 1: getchar and main () -> (i32)
	writeByte(&sectionBuf, TYPE_FUNC)
	writeLEB128(&sectionBuf, 0)
	writeLEB128(&sectionBuf, 1)
	writeByte(&sectionBuf, TYPE_I32)

	writeSection(buf, SECTION_TYPE, &sectionBuf)
}

func EmitImportSection(buf *bytes.Buffer) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 2) // 2 imports

	writeName(&sectionBuf, "env")
	writeName(&sectionBuf, "putchar")
	writeByte(&sectionBuf, EXTERNAL_FUNC)
	writeLEB128(&sectionBuf, typeI32ToVoid)

	writeName(&sectionBuf, "env")
	writeName(&sectionBuf, "getchar")
	writeByte(&sectionBuf, EXTERNAL_FUNC)
	writeLEB128(&sectionBuf, typeVoidToI32)

	writeSection(buf, SECTION_IMPORT, &sectionBuf)
}

func EmitFunctionSection(buf *bytes.Buffer) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 1) // 1 function
	writeLEB128(&sectionBuf, typeVoidToI32)

	writeSection(buf, SECTION_FUNCTION, &sectionBuf)
}

func EmitMemorySection(buf *bytes.Buffer, tapeSize int64) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 1)  // 1 memory
	writeByte(&sectionBuf, 0x00) // limits: min only
	writeLEB128(&sectionBuf, pagesFor(tapeSize))

	writeSection(buf, SECTION_MEMORY, &sectionBuf)
}

// EmitGlobalSection declares the immutable tape_size global so a runtime can
// tell how much of memory is tape.
func EmitGlobalSection(buf *bytes.Buffer, tapeSize int64) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 1) // 1 global
	writeByte(&sectionBuf, TYPE_I32)
	writeByte(&sectionBuf, 0x00) // immutable
	writeByte(&sectionBuf, I32_CONST)
	writeLEB128Signed(&sectionBuf, tapeSize)
	writeByte(&sectionBuf, END)

	writeSection(buf, SECTION_GLOBAL, &sectionBuf)
}

func EmitExportSection(buf *bytes.Buffer) {
	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 3) // 3 exports

	writeName(&sectionBuf, "main")
	writeByte(&sectionBuf, EXTERNAL_FUNC)
	writeLEB128(&sectionBuf, funcMain)

	writeName(&sectionBuf, "memory")
	writeByte(&sectionBuf, EXTERNAL_MEMORY)
	writeLEB128(&sectionBuf, 0)

	writeName(&sectionBuf, "tape_size")
	writeByte(&sectionBuf, EXTERNAL_GLOBAL)
	writeLEB128(&sectionBuf, 0)

	writeSection(buf, SECTION_EXPORT, &sectionBuf)
}

func EmitCodeSection(buf *bytes.Buffer, program bf.Program, tapeSize int64) {
	var bodyBuf bytes.Buffer

	writeLEB128(&bodyBuf, 1) // 1 local group
	writeLEB128(&bodyBuf, 1) // the cursor
	writeByte(&bodyBuf, TYPE_I32)

	EmitInstructions(&bodyBuf, program.Instructions, tapeSize)

	// main returns the final cursor
	writeByte(&bodyBuf, LOCAL_GET)
	writeLEB128(&bodyBuf, localCursor)
	writeByte(&bodyBuf, END)

	var sectionBuf bytes.Buffer
	writeLEB128(&sectionBuf, 1) // 1 function
	writeLEB128(&sectionBuf, uint32(bodyBuf.Len()))
	writeBytes(&sectionBuf, bodyBuf.Bytes())

	writeSection(buf, SECTION_CODE, &sectionBuf)
}

// emitCellAddress pushes the address of the current cell. The tape starts at
// address 0, so the address is the cursor itself.
func emitCellAddress(buf *bytes.Buffer) {
	writeByte(buf, LOCAL_GET)
	writeLEB128(buf, localCursor)
}

func emitLoadCell(buf *bytes.Buffer) {
	emitCellAddress(buf)
	writeByte(buf, I32_LOAD8_U)
	writeLEB128(buf, 0) // align
	writeLEB128(buf, 0) // offset
}

func emitStore8(buf *bytes.Buffer) {
	writeByte(buf, I32_STORE8)
	writeLEB128(buf, 0) // align
	writeLEB128(buf, 0) // offset
}

func emitI32Const(buf *bytes.Buffer, v int64) {
	writeByte(buf, I32_CONST)
	writeLEB128Signed(buf, v)
}

// EmitInstructions generates WASM bytecode for an instruction sequence.
func EmitInstructions(buf *bytes.Buffer, instrs []bf.Instruction, tapeSize int64) {
	for _, instr := range instrs {
		EmitInstruction(buf, instr, tapeSize)
	}
}

func EmitInstruction(buf *bytes.Buffer, instr bf.Instruction, tapeSize int64) {
	switch instr.Kind {
	case bf.InstrAdd:
		delta := cellValue(instr.Value)
		if delta == 0 {
			return
		}
		emitCellAddress(buf)
		emitLoadCell(buf)
		emitI32Const(buf, delta)
		writeByte(buf, I32_ADD)
		emitStore8(buf) // store8 wraps to 8 bits

	case bf.InstrMove:
		offset := tapeOffset(instr.Value, tapeSize)
		if offset == 0 {
			return
		}
		// cursor < tapeSize and offset < tapeSize, so the sum cannot overflow
		writeByte(buf, LOCAL_GET)
		writeLEB128(buf, localCursor)
		emitI32Const(buf, offset)
		writeByte(buf, I32_ADD)
		emitI32Const(buf, tapeSize)
		writeByte(buf, I32_REM_U)
		writeByte(buf, LOCAL_SET)
		writeLEB128(buf, localCursor)

	case bf.InstrSet:
		emitCellAddress(buf)
		emitI32Const(buf, cellValue(instr.Value))
		emitStore8(buf)

	case bf.InstrInput:
		emitCellAddress(buf)
		writeByte(buf, CALL)
		writeLEB128(buf, funcGetchar)
		emitStore8(buf)

	case bf.InstrOutput:
		emitLoadCell(buf)
		writeByte(buf, CALL)
		writeLEB128(buf, funcPutchar)

	case bf.InstrLoop:
		// block { loop { br_if (cell == 0) out; body; br loop } }
		writeByte(buf, BLOCK)
		writeByte(buf, BLOCKTYPE_EMPTY)
		writeByte(buf, LOOP)
		writeByte(buf, BLOCKTYPE_EMPTY)

		emitLoadCell(buf)
		writeByte(buf, I32_EQZ)
		writeByte(buf, BR_IF)
		writeLEB128(buf, 1)

		EmitInstructions(buf, instr.Body, tapeSize)

		writeByte(buf, BR)
		writeLEB128(buf, 0)
		writeByte(buf, END) // loop
		writeByte(buf, END) // block

	default:
		panic("Unsupported instruction kind: " + string(instr.Kind))
	}
}

// CompileToWASM lowers a program to a WebAssembly binary module.
func CompileToWASM(program bf.Program, opts Options) ([]byte, error) {
	tapeSize, err := opts.tapeSize()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	EmitWASMHeader(&buf)
	EmitTypeSection(&buf)
	EmitImportSection(&buf)
	EmitFunctionSection(&buf)
	EmitMemorySection(&buf, tapeSize)
	EmitGlobalSection(&buf, tapeSize)
	EmitExportSection(&buf)
	EmitCodeSection(&buf, program, tapeSize)

	return buf.Bytes(), nil
}
