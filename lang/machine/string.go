package machine

// ObjString is an immutable, interned byte sequence. Two ObjStrings with
// equal content are always the same handle (spec.md §3, §8), so equality
// and hashing are O(1) pointer comparisons once a string has been interned.
type ObjString struct {
	object
	chars string
	hash  uint32
}

var _ Value = (*ObjString)(nil)

func (s *ObjString) String() string { return s.chars }
func (s *ObjString) Type() string   { return "string" }
