package fieldtree

// Attr names one of the five parallel file attribute trees.
type Attr int

const (
	AttrName Attr = iota
	AttrType
	AttrTmpName
	AttrError
	AttrSize
)

// NumAttrs is the number of attribute trees in a Forest.
const NumAttrs = 5

var attrNames = [NumAttrs]string{"name", "type", "tmp_name", "error", "size"}

func (a Attr) String() string {
	if a < 0 || int(a) >= NumAttrs {
		return "unknown"
	}
	return attrNames[a]
}

// Forest holds uploaded file metadata as five trees (name, type, tmp_name,
// error, size) that are always extended at the same path in one step.
type Forest struct {
	roots [NumAttrs]*Value
}

// NewForest returns a forest of five empty nodes.
func NewForest() *Forest {
	f := &Forest{}
	for i := range f.roots {
		f.roots[i] = NewNode()
	}
	return f
}

// Assign writes one file's attributes at path, indexed by Attr.
func (f *Forest) Assign(path []Segment, attrs [NumAttrs]string) error {
	return AssignAll(f.roots[:], path, attrs[:])
}

// Tree returns the root of one attribute tree.
func (f *Forest) Tree(a Attr) *Value {
	if a < 0 || int(a) >= NumAttrs {
		return nil
	}
	return f.roots[a]
}

// IsEmpty reports whether no file has been assigned.
func (f *Forest) IsEmpty() bool {
	return f.roots[AttrName].IsEmpty()
}

// Lookup returns the five values found at keys. It fails unless every
// attribute tree holds a value there.
func (f *Forest) Lookup(keys ...string) ([NumAttrs]*Value, bool) {
	var out [NumAttrs]*Value
	for i, root := range f.roots {
		v, ok := root.Get(keys...)
		if !ok {
			return [NumAttrs]*Value{}, false
		}
		out[i] = v
	}
	return out, true
}

// Legacy renders the forest in the upload-table layout older consumers
// expect: the first path segment selects an entry, the attribute comes
// next, and the rest of the path follows under each attribute.
//
//	files[photo]        -> {photo: {name: .., type: .., tmp_name: .., error: .., size: ..}}
//	files[docs][a][]    -> {docs: {name: {a: [..]}, type: {a: [..]}, ...}}
//
// The result is a copy and may be modified freely.
func (f *Forest) Legacy() *Value {
	out := NewNode()
	for _, key := range f.roots[AttrName].keys {
		entry := NewNode()
		for i, root := range f.roots {
			entry.set(attrNames[i], root.node[key].Clone())
		}
		out.set(key, entry)
	}
	return out
}

// MarshalJSON encodes the forest in its Legacy layout.
func (f *Forest) MarshalJSON() ([]byte, error) {
	return f.Legacy().MarshalJSON()
}

// MarshalYAML encodes the forest in its Legacy layout.
func (f *Forest) MarshalYAML() (any, error) {
	return f.Legacy().MarshalYAML()
}
