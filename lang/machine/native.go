package machine

import "time"

// NativeFn is a host function exposed to scripts as a global. Per spec.md
// §4.6, native functions cannot themselves raise runtime errors in the
// baseline, so the signature has no error return.
type NativeFn func(args []Value) Value

// ObjNative wraps a NativeFn so it can live on the value stack and in
// globals alongside scripted values.
type ObjNative struct {
	object
	name string
	fn   NativeFn
}

var _ Value = (*ObjNative)(nil)

func (n *ObjNative) String() string { return "<native fn>" }
func (n *ObjNative) Type() string   { return "native" }

var processStart = time.Now()

// nativeClock implements the baseline's one required native global,
// clock(), returning seconds elapsed since process start (spec.md §6,
// "Native API").
func nativeClock(args []Value) Value {
	return Number(time.Since(processStart).Seconds())
}
