package machine

// objKind tags a heap object's concrete payload for diagnostics; each
// payload type is otherwise a distinct Go type and needs no tag to behave
// correctly, but the tag lets code walking the intrusive list (such as a
// mark-sweep pass, see spec.md §5) tell the kinds apart without a type
// switch.
type objKind uint8

const (
	objString objKind = iota
	objFunction
	objNative
	objClosure
	objUpvalue
)

// object is the header embedded in every heap-allocated value. It gives
// the value a place in the VM's intrusive allocation list, the sweep root
// described in spec.md §4.4 and §5.
type object struct {
	kind objKind
	next *object
}

// allocate links obj into the thread's object list. The baseline VM has no
// mark-sweep pass and frees nothing itself (spec.md §5); objects stay linked
// until Close drops the list.
func (t *Thread) allocate(obj *object, kind objKind) {
	obj.kind = kind
	obj.next = t.objects
	t.objects = obj
}
