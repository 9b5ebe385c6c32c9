// Package disasm renders a compiled Chunk as human-readable text, one
// instruction per line, for the "wisp disasm" subcommand and for tests that
// want to assert on emitted bytecode without hand-decoding it.
package disasm

import (
	"fmt"
	"io"

	"github.com/mna/wisp/lang/compiler"
)

// Proto writes a disassembly of fn's chunk under the heading name, then
// recurses into every nested FunctionProto referenced by its constant pool
// so closures are fully visible in one pass.
func Proto(w io.Writer, fn *compiler.FunctionProto, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	chunk := fn.Chunk
	for offset := 0; offset < len(chunk.Code); {
		offset = instruction(w, chunk, offset)
	}
	for _, c := range chunk.Constants {
		if nested, ok := c.(*compiler.FunctionProto); ok {
			nestedName := nested.Name
			if nestedName == "" {
				nestedName = "script"
			}
			fmt.Fprintln(w)
			Proto(w, nested, nestedName)
		}
	}
}

func instruction(w io.Writer, chunk *compiler.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", chunk.Lines[offset])
	}

	op := compiler.Opcode(chunk.Code[offset])
	switch {
	case op == compiler.CLOSURE:
		return closureInstruction(w, chunk, offset)
	case compiler.IsJump(op):
		return jumpInstruction(w, chunk, op, offset)
	case compiler.HasByteOperand(op):
		return byteInstruction(w, chunk, op, offset)
	default:
		fmt.Fprintln(w, op.String())
		return offset + 1
	}
}

func byteInstruction(w io.Writer, chunk *compiler.Chunk, op compiler.Opcode, offset int) int {
	slot := chunk.Code[offset+1]
	if op == compiler.CONST || op == compiler.GET_GLOBAL || op == compiler.DEFINE_GLOBAL || op == compiler.SET_GLOBAL {
		fmt.Fprintf(w, "%-14s %4d '%v'\n", op, slot, chunk.Constants[slot])
	} else {
		fmt.Fprintf(w, "%-14s %4d\n", op, slot)
	}
	return offset + 2
}

func jumpInstruction(w io.Writer, chunk *compiler.Chunk, op compiler.Opcode, offset int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	dest := offset + 3 + jump
	if op == compiler.LOOP {
		dest = offset + 3 - jump
	}
	fmt.Fprintf(w, "%-14s %4d -> %d\n", op, offset, dest)
	return offset + 3
}

func closureInstruction(w io.Writer, chunk *compiler.Chunk, offset int) int {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(w, "%-14s %4d '%v'\n", compiler.CLOSURE, idx, chunk.Constants[idx])

	offset += 2
	proto, _ := chunk.Constants[idx].(*compiler.FunctionProto)
	if proto == nil {
		return offset
	}
	for i := 0; i < proto.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		index := chunk.Code[offset+1]
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset, kind, index)
		offset += 2
	}
	return offset
}
