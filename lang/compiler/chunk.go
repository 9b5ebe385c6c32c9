package compiler

import "fmt"

// maxConstants is the number of entries a Chunk's constant pool may hold;
// CONST and its relatives address a constant by a single byte index.
const maxConstants = 256

// A Chunk is a contiguous run of bytecode together with a parallel,
// byte-for-byte line table and the pool of constants the bytecode
// addresses by single-byte index.
//
// Constants are stored as their raw Go value (float64 and string literals,
// and *FunctionProto for nested functions) since the compiler has no notion
// of the machine package's runtime Value types; the machine package
// converts and interns a constant each time a CONST instruction loads it.
type Chunk struct {
	Code      []byte
	Lines     []int32
	Constants []any
}

func newChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 8),
		Lines:     make([]int32, 0, 8),
		Constants: make([]any, 0, 8),
	}
}

// writeByte appends a single raw byte to the chunk, tagging it with the
// source line it was compiled from, and returns the offset it was written
// at.
func (c *Chunk) writeByte(b byte, line int) int {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, int32(line))
	return len(c.Code) - 1
}

// writeOp appends a bare opcode (no operand) at line.
func (c *Chunk) writeOp(op Opcode, line int) int {
	return c.writeByte(byte(op), line)
}

// addConstant interns the value into the constant pool (reusing an
// identical existing entry for numbers/strings/bools, the cheap win the
// spec allows since the single-byte index budget is scarce) and returns its
// index. It returns a plain error, and adds nothing, if the pool would
// exceed 256 entries; the caller reports that error as a compile error.
func (c *Chunk) addConstant(v any) (uint8, error) {
	for i, existing := range c.Constants {
		if existing == v {
			return uint8(i), nil
		}
	}
	if len(c.Constants) >= maxConstants {
		return 0, fmt.Errorf("too many constants in one chunk")
	}
	c.Constants = append(c.Constants, v)
	return uint8(len(c.Constants) - 1), nil
}
