package compiler

// UpvalueRef describes where a function's Nth upvalue comes from: either a
// local slot in the immediately enclosing function's frame (IsLocal true)
// or the enclosing function's own upvalue at index Index (IsLocal false).
// It is exactly the (is_local, index) pair spec.md §4.5.1 says follows a
// CLOSURE instruction in the bytecode stream.
type UpvalueRef struct {
	IsLocal bool
	Index   uint8
}

// FunctionProto is the compile-time representation of a function: its
// arity, name, compiled Chunk, and the recipe for capturing each of its
// upvalues. The machine package wraps a *FunctionProto to build the runtime
// *machine.ObjFunction heap object.
type FunctionProto struct {
	Name         string // "" for the implicit top-level script
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Upvalues     []UpvalueRef
}
