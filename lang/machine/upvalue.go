package machine

// ObjUpvalue is either an open reference to a still-live slot on the value
// stack, or a closed value captured into the upvalue itself once its owning
// local goes out of scope (spec.md §3, §4.6, "Open upvalue management").
//
// While open, location points at the live stack slot; close copies the
// slot's current value into closed and repoints location at closed, so
// later reads/writes go through the same indirection either way.
type ObjUpvalue struct {
	object
	location *Value
	closed   Value
	openNext *ObjUpvalue // next entry in the thread's open-upvalue list
	slot     int         // stack index this upvalue was opened at
}

var _ Value = (*ObjUpvalue)(nil)

func (u *ObjUpvalue) String() string { return "upvalue" }
func (u *ObjUpvalue) Type() string   { return "upvalue" }

func (u *ObjUpvalue) get() Value  { return *u.location }
func (u *ObjUpvalue) set(v Value) { *u.location = v }

// close detaches the upvalue from the stack slot it referenced, copying
// the slot's current value into itself.
func (u *ObjUpvalue) close() {
	u.closed = *u.location
	u.location = &u.closed
}
