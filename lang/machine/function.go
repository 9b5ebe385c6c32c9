package machine

import (
	"fmt"

	"github.com/mna/wisp/lang/compiler"
)

// ObjFunction is the runtime wrapper around a compiled FunctionProto: a
// fixed arity, its bytecode Chunk, and the recipe for the upvalues its
// closures must capture (spec.md §3, "Function").
type ObjFunction struct {
	object
	Proto *compiler.FunctionProto
}

var _ Value = (*ObjFunction)(nil)

func (f *ObjFunction) String() string {
	if f.Proto.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Proto.Name)
}
func (f *ObjFunction) Type() string { return "function" }

func (f *ObjFunction) Arity() int            { return f.Proto.Arity }
func (f *ObjFunction) Name() string          { return f.Proto.Name }
func (f *ObjFunction) Chunk() *compiler.Chunk { return f.Proto.Chunk }
