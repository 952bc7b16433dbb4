package fieldtree

import "strconv"

// Assign writes value at path under root.
//
//	root := fieldtree.NewNode()
//	_ = fieldtree.Assign(root, []fieldtree.Segment{"a", "b"}, "v1")
//	_ = fieldtree.Assign(root, []fieldtree.Segment{"a", "b"}, "v2") // {a: {b: v2}}
func Assign(root *Value, path []Segment, value string) error {
	return AssignAll([]*Value{root}, path, []string{value})
}

// AssignAll writes leaves[i] at path under roots[i] for every i in one walk.
// Every slot decision (append index, key, list promotion) is resolved once
// per segment against roots[0] and replayed on the other roots, so trees
// that start with the same shape keep the same shape.
//
// Rules per segment:
//   - an append marker addresses the next free list index; on a node it
//     addresses one past the largest integer key;
//   - a named key on a node addresses that key; on a list it addresses the
//     element when the key is a decimal index not past the end, otherwise
//     the list is promoted to a node first;
//   - a scalar met where a container is needed is overwritten by a fresh
//     list (next segment is an append marker) or node;
//   - the last segment stores the leaf, overwriting whatever was there.
//
// An append on a node whose largest integer key is math.MaxInt fails with
// ErrIndexOverflow. Containers created for earlier segments are kept.
func AssignAll(roots []*Value, path []Segment, leaves []string) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	if len(roots) == 0 || len(roots) != len(leaves) {
		return ErrArity
	}
	cur := make([]*Value, len(roots))
	for i, root := range roots {
		if root == nil || root.kind == KindLeaf {
			return ErrNotContainer
		}
		cur[i] = root
	}

	for i, seg := range path {
		s, ok := resolve(cur[0], seg)
		if !ok {
			return ErrIndexOverflow
		}
		if i == len(path)-1 {
			for j := range cur {
				s.put(cur[j], NewLeaf(leaves[j]))
			}
			return nil
		}
		next := path[i+1]
		for j := range cur {
			cur[j] = s.descend(cur[j], next)
		}
	}
	return nil
}

// slot is a resolved position inside a container.
type slot struct {
	key   string
	index int // list position, -1 when addressing by key
}

func resolve(c *Value, seg Segment) (slot, bool) {
	if c.kind == KindList {
		if seg.IsAppend() {
			return slot{index: len(c.list)}, true
		}
		if n, ok := listIndex(string(seg)); ok && n <= len(c.list) {
			return slot{index: n}, true
		}
		return slot{key: string(seg), index: -1}, true
	}
	if seg.IsAppend() {
		n, ok := c.nextIndex()
		if !ok {
			return slot{}, false
		}
		return slot{key: strconv.Itoa(n), index: -1}, true
	}
	return slot{key: string(seg), index: -1}, true
}

func (s slot) nodeKey() string {
	if s.index >= 0 {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// fit promotes c when s addresses it by key.
func (s slot) fit(c *Value) {
	if c.kind == KindList && s.index < 0 {
		c.promote()
	}
}

func (s slot) get(c *Value) *Value {
	s.fit(c)
	if c.kind == KindList {
		if s.index < len(c.list) {
			return c.list[s.index]
		}
		return nil
	}
	return c.node[s.nodeKey()]
}

func (s slot) put(c *Value, v *Value) {
	s.fit(c)
	if c.kind == KindList {
		if s.index < len(c.list) {
			c.list[s.index] = v
		} else {
			c.list = append(c.list, v)
		}
		return
	}
	c.set(s.nodeKey(), v)
}

func (s slot) descend(c *Value, next Segment) *Value {
	child := s.get(c)
	if child == nil || child.kind == KindLeaf {
		if next.IsAppend() {
			child = NewList()
		} else {
			child = NewNode()
		}
		s.put(c, child)
	}
	return child
}
