package fieldtree

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindNode
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindNode:
		return "node"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a node of a field tree: a string leaf, a node mapping keys to
// values, or an ordered list of values. Node keys keep insertion order.
// The zero value is an empty leaf.
type Value struct {
	kind Kind
	leaf string
	keys []string
	node map[string]*Value
	list []*Value
}

// NewLeaf returns a leaf holding s.
func NewLeaf(s string) *Value {
	return &Value{kind: KindLeaf, leaf: s}
}

// NewNode returns an empty node.
func NewNode() *Value {
	return &Value{kind: KindNode, node: make(map[string]*Value)}
}

// NewList returns an empty list.
func NewList() *Value {
	return &Value{kind: KindList}
}

// Kind reports the value's kind. A nil Value reports KindLeaf.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindLeaf
	}
	return v.kind
}

// String returns the leaf text, or "" for containers.
func (v *Value) String() string {
	if v == nil || v.kind != KindLeaf {
		return ""
	}
	return v.leaf
}

// Len returns the number of children of a container, 0 for leaves.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindNode:
		return len(v.keys)
	case KindList:
		return len(v.list)
	default:
		return 0
	}
}

// IsEmpty reports whether v is nil or a container without children.
func (v *Value) IsEmpty() bool {
	return v == nil || (v.kind != KindLeaf && v.Len() == 0)
}

// Keys returns node keys in insertion order.
func (v *Value) Keys() []string {
	if v == nil || v.kind != KindNode {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Key returns the child stored under key in a node.
func (v *Value) Key(key string) (*Value, bool) {
	if v == nil || v.kind != KindNode {
		return nil, false
	}
	child, ok := v.node[key]
	return child, ok
}

// Index returns the i-th element of a list.
func (v *Value) Index(i int) (*Value, bool) {
	if v == nil || v.kind != KindList || i < 0 || i >= len(v.list) {
		return nil, false
	}
	return v.list[i], true
}

// Get walks keys from v. Node children are addressed by key, list
// elements by their decimal index.
//
//	form.Get("user", "tags", "0")
func (v *Value) Get(keys ...string) (*Value, bool) {
	cur := v
	for _, key := range keys {
		if cur == nil {
			return nil, false
		}
		var ok bool
		switch cur.kind {
		case KindNode:
			cur, ok = cur.node[key]
		case KindList:
			n, isIndex := listIndex(key)
			if !isIndex {
				return nil, false
			}
			cur, ok = cur.Index(n)
		}
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Interface converts v into plain Go values: string, map[string]any or []any.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.kind {
	case KindNode:
		m := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			m[k] = v.node[k].Interface()
		}
		return m
	case KindList:
		l := make([]any, len(v.list))
		for i, child := range v.list {
			l[i] = child.Interface()
		}
		return l
	default:
		return v.leaf
	}
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{kind: v.kind, leaf: v.leaf}
	switch v.kind {
	case KindNode:
		out.keys = make([]string, len(v.keys))
		copy(out.keys, v.keys)
		out.node = make(map[string]*Value, len(v.node))
		for k, child := range v.node {
			out.node[k] = child.Clone()
		}
	case KindList:
		out.list = make([]*Value, len(v.list))
		for i, child := range v.list {
			out.list[i] = child.Clone()
		}
	}
	return out
}

// MarshalJSON encodes nodes as objects in key insertion order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) writeJSON(buf *bytes.Buffer) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch v.kind {
	case KindNode:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.node[k].writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindList:
		buf.WriteByte('[')
		for i, child := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := child.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		s, err := json.Marshal(v.leaf)
		if err != nil {
			return err
		}
		buf.Write(s)
	}
	return nil
}

// MarshalYAML encodes v as a yaml.v3 node so mappings keep key order.
func (v *Value) MarshalYAML() (any, error) {
	return v.yamlNode(), nil
}

func (v *Value) yamlNode() *yaml.Node {
	if v == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	switch v.kind {
	case KindNode:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.keys {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				v.node[k].yamlNode(),
			)
		}
		return n
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, child := range v.list {
			n.Content = append(n.Content, child.yamlNode())
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.leaf}
	}
}

// set stores child under key, appending key to the order on first insert.
func (v *Value) set(key string, child *Value) {
	if _, ok := v.node[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.node[key] = child
}

// promote turns a list into a node keyed "0".."n-1".
func (v *Value) promote() {
	if v.kind != KindList {
		return
	}
	v.kind = KindNode
	v.node = make(map[string]*Value, len(v.list))
	v.keys = make([]string, 0, len(v.list))
	for i, child := range v.list {
		v.set(strconv.Itoa(i), child)
	}
	v.list = nil
}

// nextIndex returns one past the largest integer key of a node. It fails
// when that key is already math.MaxInt.
func (v *Value) nextIndex() (int, bool) {
	next := 0
	for _, k := range v.keys {
		n, ok := listIndex(k)
		if !ok || n < next {
			continue
		}
		if n == math.MaxInt {
			return 0, false
		}
		next = n + 1
	}
	return next, true
}

// listIndex parses a canonical non-negative decimal index ("0", "12", not "012").
func listIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return n, true
}
