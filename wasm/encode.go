package wasm

import "bytes"

// WASM Binary Encoding Utilities
func writeByte(buf *bytes.Buffer, b byte) {
	buf.WriteByte(b)
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
}

func writeLEB128(buf *bytes.Buffer, val uint32) {
	for val >= 0x80 {
		buf.WriteByte(byte(val&0x7F) | 0x80)
		val >>= 7
	}
	buf.WriteByte(byte(val & 0x7F))
}

func writeLEB128Signed(buf *bytes.Buffer, val int64) {
	for {
		b := byte(val & 0x7F)
		val >>= 7

		if (val == 0 && (b&0x40) == 0) || (val == -1 && (b&0x40) != 0) {
			buf.WriteByte(b)
			break
		}

		buf.WriteByte(b | 0x80)
	}
}

// writeName writes a length-prefixed UTF-8 name.
func writeName(buf *bytes.Buffer, name string) {
	writeLEB128(buf, uint32(len(name)))
	writeBytes(buf, []byte(name))
}

// writeSection writes a section id followed by the size-prefixed content.
func writeSection(buf *bytes.Buffer, id byte, content *bytes.Buffer) {
	writeByte(buf, id)
	writeLEB128(buf, uint32(content.Len()))
	writeBytes(buf, content.Bytes())
}

// WASM Opcode Constants
const (
	BLOCK       = 0x02
	LOOP        = 0x03
	END         = 0x0B
	BR          = 0x0C
	BR_IF       = 0x0D
	CALL        = 0x10
	LOCAL_GET   = 0x20
	LOCAL_SET   = 0x21
	I32_LOAD8_U = 0x2D
	I32_STORE8  = 0x3A
	I32_CONST   = 0x41
	I32_EQZ     = 0x45
	I32_ADD     = 0x6A
	I32_REM_U   = 0x70
)

// Types and kinds
const (
	TYPE_I32        = 0x7F
	TYPE_FUNC       = 0x60
	BLOCKTYPE_EMPTY = 0x40

	EXTERNAL_FUNC   = 0x00
	EXTERNAL_MEMORY = 0x02
	EXTERNAL_GLOBAL = 0x03
)

// Section ids
const (
	SECTION_TYPE     = 0x01
	SECTION_IMPORT   = 0x02
	SECTION_FUNCTION = 0x03
	SECTION_MEMORY   = 0x05
	SECTION_GLOBAL   = 0x06
	SECTION_EXPORT   = 0x07
	SECTION_CODE     = 0x0A
)
