package machine

// ObjClosure pairs a function with the upvalues its body captured at the
// point its CLOSURE instruction ran (spec.md §3, "Closure").
type ObjClosure struct {
	object
	Fn       *ObjFunction
	Upvalues []*ObjUpvalue
}

var _ Value = (*ObjClosure)(nil)

func (c *ObjClosure) String() string { return c.Fn.String() }
func (c *ObjClosure) Type() string   { return "closure" }
