// Package machine implements the stack-based virtual machine that executes
// bytecode produced by lang/compiler: the Value model, heap objects, string
// interning, call frames, and the fetch-decode-execute loop.
package machine

import "fmt"

// Value is the interface implemented by every value the machine can hold on
// its stack, in a global, in a constant pool, or in an upvalue. It mirrors
// the sum type of spec.md §3 (Nil, Bool, Number, Obj) as a small closed set
// of concrete Go types rather than a tagged union.
type Value interface {
	// String returns the canonical textual form written by PRINT (spec.md
	// §6, "Standard output format").
	String() string
	// Type returns a short name for the value's kind.
	Type() string
}

// NilType is the type of Nil. Represented as a defined byte type (rather
// than struct{}) so that Nil can be a package-level constant.
type NilType byte

// Nil is the sole value of kind NilType.
const Nil = NilType(0)

var _ Value = Nil

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }

// Bool is a boolean Value.
type Bool bool

var _ Value = Bool(false)

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

// Number is a double-precision Value.
type Number float64

var _ Value = Number(0)

func (n Number) String() string { return fmt.Sprintf("%g", float64(n)) }
func (Number) Type() string     { return "number" }

// IsFalsey reports whether v is one of the two falsey values, nil and
// false; every other value (including 0 and "") is truthy (spec.md §4.2).
func IsFalsey(v Value) bool {
	switch v := v.(type) {
	case NilType:
		return true
	case Bool:
		return !bool(v)
	default:
		return false
	}
}

// Equal implements value equality per spec.md §4.2: values of different
// tags are unequal, nil equals nil, booleans and numbers compare by
// content, and objects (including strings, thanks to interning) compare by
// handle identity.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case NilType:
		_, ok := b.(NilType)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Number:
		bb, ok := b.(Number)
		return ok && a == bb
	case *ObjString:
		bb, ok := b.(*ObjString)
		return ok && a == bb // interning makes identity comparison correct
	default:
		return a == b
	}
}
