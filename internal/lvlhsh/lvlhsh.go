// Package lvlhsh implements the layered hash backing every property map.
//
// The structure is a tree of 16-wide cells. A lookup consumes 4 bits of the
// 32-bit key hash per descent step; collisions below the deepest level chain
// at the final cell. Because descent is level-by-level, two hashes can alias
// the same upper cells: Fork returns a hash that shares every cell with its
// origin, and a later insert or delete clones only the cells on the touched
// path. That is what lets one prototype property table serve every instance
// without per-instance copies.
package lvlhsh

import "sort"

const (
	cellWidth = 16
	shiftBits = 4
	maxLevel  = 7 // 32-bit hash / 4 bits per level - 1
)

// Entry is a single key/value binding. Key identity is (Hash, Key) with
// bytewise key equality.
type Entry struct {
	Key   string
	Hash  uint32
	Value any

	next *Entry
	seq  uint64
}

type cell struct {
	slots  [cellWidth]slot
	shared bool
}

type slot struct {
	child *cell  // non-nil: descend
	chain *Entry // non-nil when child is nil: entry chain
}

// Hash is one layered hash. The zero value is an empty hash ready for use.
type Hash struct {
	root  *cell
	count int
	seq   uint64
}

// Len returns the number of stored entries.
func (h *Hash) Len() int { return h.count }

// Fork returns a hash containing the same entries as h. The two share all
// cells until one of them mutates; mutation clones the shared path only.
func (h *Hash) Fork() *Hash {
	f := &Hash{root: h.root, count: h.count, seq: h.seq}
	if h.root != nil {
		markShared(h.root)
	}
	return f
}

func markShared(c *cell) {
	if c.shared {
		return
	}
	c.shared = true
	for i := range c.slots {
		if child := c.slots[i].child; child != nil {
			markShared(child)
		}
	}
}

// own returns a privately owned copy of c, cloning lazily.
func (h *Hash) own(c *cell, parent *cell, idx int) *cell {
	if !c.shared {
		return c
	}
	d := &cell{slots: c.slots}
	if parent == nil {
		h.root = d
	} else {
		parent.slots[idx].child = d
	}
	return d
}

// Find returns the entry stored under (hash, key), or nil.
func (h *Hash) Find(key string, hash uint32) *Entry {
	c := h.root
	hv := hash
	for level := 0; c != nil; level++ {
		s := &c.slots[hv&(cellWidth-1)]
		if s.child != nil {
			c = s.child
			hv >>= shiftBits
			continue
		}
		for e := s.chain; e != nil; e = e.next {
			if e.Hash == hash && e.Key == key {
				return e
			}
		}
		return nil
	}
	return nil
}

// Insert stores value under (hash, key). With replace false an existing
// entry is left untouched and Insert reports false; with replace true the
// entry's value is overwritten in place (its enumeration position is kept).
func (h *Hash) Insert(key string, hash uint32, value any, replace bool) bool {
	if h.root == nil {
		h.root = &cell{}
	}

	c := h.own(h.root, nil, 0)
	hv := hash
	level := 0

	for {
		idx := int(hv & (cellWidth - 1))
		s := &c.slots[idx]

		if s.child != nil {
			c = h.own(s.child, c, idx)
			hv >>= shiftBits
			level++
			continue
		}

		for e := s.chain; e != nil; e = e.next {
			if e.Hash == hash && e.Key == key {
				if !replace {
					return false
				}
				// Shared chains are immutable: rebuild the chain with the
				// one entry replaced.
				s.chain = replaceInChain(s.chain, e, value)
				return true
			}
		}

		if s.chain != nil && level < maxLevel {
			// Collision with room to descend: push the resident chain one
			// level down, then retry at the child.
			child := &cell{}
			for e := s.chain; e != nil; {
				next := e.next
				ci := int((e.Hash >> (shiftBits * (level + 1))) & (cellWidth - 1))
				dup := &Entry{Key: e.Key, Hash: e.Hash, Value: e.Value, seq: e.seq}
				dup.next = child.slots[ci].chain
				child.slots[ci].chain = dup
				e = next
			}
			s.chain = nil
			s.child = child
			c = child
			hv >>= shiftBits
			level++
			continue
		}

		h.seq++
		s.chain = &Entry{Key: key, Hash: hash, Value: value, next: s.chain, seq: h.seq}
		h.count++
		return true
	}
}

func replaceInChain(head, target *Entry, value any) *Entry {
	if head == target {
		return &Entry{Key: target.Key, Hash: target.Hash, Value: value, next: target.next, seq: target.seq}
	}
	return &Entry{Key: head.Key, Hash: head.Hash, Value: head.Value, next: replaceInChain(head.next, target, value), seq: head.seq}
}

// Delete removes the entry stored under (hash, key), reporting whether it
// existed.
func (h *Hash) Delete(key string, hash uint32) bool {
	if h.root == nil {
		return false
	}

	c := h.own(h.root, nil, 0)
	hv := hash

	for {
		idx := int(hv & (cellWidth - 1))
		s := &c.slots[idx]

		if s.child != nil {
			c = h.own(s.child, c, idx)
			hv >>= shiftBits
			continue
		}

		var rebuilt *Entry
		found := false
		for e := s.chain; e != nil; e = e.next {
			if !found && e.Hash == hash && e.Key == key {
				found = true
				continue
			}
			rebuilt = &Entry{Key: e.Key, Hash: e.Hash, Value: e.Value, next: rebuilt, seq: e.seq}
		}
		if !found {
			return false
		}
		s.chain = reverseChain(rebuilt)
		h.count--
		return true
	}
}

func reverseChain(e *Entry) *Entry {
	var head *Entry
	for e != nil {
		next := e.next
		dup := *e
		dup.next = head
		head = &dup
		e = next
	}
	return head
}

// Cursor iterates a hash in insertion order. A cursor snapshots the entry
// set when created; mutations during iteration are not observed.
type Cursor struct {
	entries []*Entry
	pos     int
}

// Each returns a cursor positioned before the first entry.
func (h *Hash) Each() *Cursor {
	entries := make([]*Entry, 0, h.count)
	collect(h.root, &entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	return &Cursor{entries: entries}
}

func collect(c *cell, out *[]*Entry) {
	if c == nil {
		return
	}
	for i := range c.slots {
		s := &c.slots[i]
		if s.child != nil {
			collect(s.child, out)
			continue
		}
		for e := s.chain; e != nil; e = e.next {
			*out = append(*out, e)
		}
	}
}

// Next returns the next entry in insertion order, or nil when exhausted.
func (c *Cursor) Next() *Entry {
	if c.pos >= len(c.entries) {
		return nil
	}
	e := c.entries[c.pos]
	c.pos++
	return e
}
