package machine

// callFrame records one call to a closure: its running closure, its
// program counter, and the base index into the thread's value stack where
// its locals begin (spec.md §3, "Frame").
type callFrame struct {
	closure *ObjClosure
	ip      int
	base    int
}
