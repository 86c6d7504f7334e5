package model

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// level is one step of the path from the document to a resolved position:
// the ancestor, the index of the child the position points into or before,
// and the absolute position where that child starts.
type level struct {
	node  *Node
	index int
	start int
}

// ResolvedPos is a document position with its context: the ancestors it
// lies in and its offsets inside them.
//
// Methods taking an optional depth default to the depth of the position
// itself and count back from it when the depth is negative.
type ResolvedPos struct {
	Pos int
	// Depth is 0 for a position directly in the document, 1 inside a
	// top-level block, and so on.
	Depth int
	// ParentOffset is the offset of the position inside its parent.
	ParentOffset int

	levels []level
}

func (r *ResolvedPos) depth(depth []int) int {
	switch {
	case len(depth) == 0:
		return r.Depth
	case depth[0] < 0:
		return r.Depth + depth[0]
	}
	return depth[0]
}

// Parent is the innermost non-text node holding the position.
func (r *ResolvedPos) Parent() *Node {
	return r.levels[r.Depth].node
}

// Doc is the document the position was resolved in.
func (r *ResolvedPos) Doc() *Node {
	return r.levels[0].node
}

// Node returns the ancestor at depth.
func (r *ResolvedPos) Node(depth ...int) *Node {
	return r.levels[r.depth(depth)].node
}

// Index returns the index of the child of the ancestor at depth that holds
// or follows the position.
func (r *ResolvedPos) Index(depth ...int) int {
	return r.levels[r.depth(depth)].index
}

// IndexAfter is like Index, but points past a child the position is inside
// of.
func (r *ResolvedPos) IndexAfter(depth ...int) int {
	d := r.depth(depth)
	if d == r.Depth && r.TextOffset() == 0 {
		return r.levels[d].index
	}
	return r.levels[d].index + 1
}

// Start is the position at the start of the content of the ancestor at
// depth.
func (r *ResolvedPos) Start(depth ...int) int {
	d := r.depth(depth)
	if d == 0 {
		return 0
	}
	return r.levels[d-1].start + 1
}

// End is the position at the end of the content of the ancestor at depth.
func (r *ResolvedPos) End(depth ...int) int {
	d := r.depth(depth)
	return r.Start(d) + r.levels[d].node.Content.Size
}

// Before is the position right before the ancestor at depth. One level
// below the parent, it is the position itself.
func (r *ResolvedPos) Before(depth ...int) (int, error) {
	d := r.depth(depth)
	switch {
	case d == 0:
		return 0, errors.New("There is no position before the top-level node")
	case d == r.Depth+1:
		return r.Pos, nil
	}
	return r.levels[d-1].start, nil
}

// After is the position right after the ancestor at depth. One level below
// the parent, it is the position itself.
func (r *ResolvedPos) After(depth ...int) (int, error) {
	d := r.depth(depth)
	switch {
	case d == 0:
		return 0, errors.New("There is no position after the top-level node")
	case d == r.Depth+1:
		return r.Pos, nil
	}
	return r.levels[d-1].start + r.levels[d].node.NodeSize(), nil
}

// TextOffset is the distance from the start of the text node the position
// is inside of, or 0 between nodes.
func (r *ResolvedPos) TextOffset() int {
	return r.Pos - r.levels[len(r.levels)-1].start
}

// NodeAfter returns the node right after the position, cut at the position
// when it is text. It is nil at the end of the parent.
func (r *ResolvedPos) NodeAfter() (*Node, error) {
	parent, index := r.Parent(), r.Index()
	if index == parent.ChildCount() {
		return nil, nil
	}
	child, err := parent.Child(index)
	if err != nil {
		return nil, err
	}
	if off := r.TextOffset(); off > 0 {
		return child.Cut(off), nil
	}
	return child, nil
}

// NodeBefore returns the node right before the position, cut at the
// position when it is text. It is nil at the start of the parent.
func (r *ResolvedPos) NodeBefore() (*Node, error) {
	index := r.Index()
	if off := r.TextOffset(); off > 0 {
		child, err := r.Parent().Child(index)
		if err != nil {
			return nil, err
		}
		return child.Cut(0, off), nil
	}
	if index == 0 {
		return nil, nil
	}
	return r.Parent().Child(index - 1)
}

// Marks returns the marks text typed at the position gets. They come from
// the node before, or the node after at the start of the parent. A
// non-inclusive mark only counts when the other neighbour carries it too.
func (r *ResolvedPos) Marks() []*Mark {
	parent, index := r.Parent(), r.Index()
	if parent.Content.Size == 0 {
		return NoMarks
	}
	if r.TextOffset() > 0 {
		if child := parent.MaybeChild(index); child != nil {
			return child.Marks
		}
		return NoMarks
	}

	main, other := parent.MaybeChild(index-1), parent.MaybeChild(index)
	if main == nil {
		main, other = other, nil
	}
	marks := main.Marks
	for _, m := range main.Marks {
		inclusive := m.Type.Spec.Inclusive == nil || *m.Type.Spec.Inclusive
		if !inclusive && (other == nil || !m.IsInSet(other.Marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// SharedDepth is the deepest level whose ancestor also contains pos.
func (r *ResolvedPos) SharedDepth(pos int) int {
	d := r.Depth
	for d > 0 && (pos < r.Start(d) || pos > r.End(d)) {
		d--
	}
	return d
}

// PosAtIndex returns the position before the child at index of the
// ancestor at depth.
func (r *ResolvedPos) PosAtIndex(index int, depth ...int) int {
	d := r.depth(depth)
	pos := r.Start(d)
	for i, child := range r.levels[d].node.Content.Content {
		if i >= index {
			break
		}
		pos += child.NodeSize()
	}
	return pos
}

// SameParent tells whether both positions lie directly in the same node.
func (r *ResolvedPos) SameParent(other *ResolvedPos) bool {
	return r.Depth == other.Depth && r.Start() == other.Start()
}

// BlockRange returns the range of blocks around both positions: the
// textblock when they share one, or the children of their closest common
// ancestor otherwise. The optional predicate can reject candidate parents.
// It returns nil when no ancestor qualifies.
func (r *ResolvedPos) BlockRange(other *ResolvedPos, pred ...func(*Node) bool) *NodeRange {
	if other == nil {
		other = r
	}
	if other.Pos < r.Pos {
		return other.BlockRange(r, pred...)
	}
	accept := func(*Node) bool { return true }
	if len(pred) > 0 {
		accept = pred[0]
	}
	d := r.Depth
	if r.Parent().InlineContent() || r.Pos == other.Pos {
		d--
	}
	for ; d >= 0; d-- {
		if other.Pos <= r.End(d) && accept(r.levels[d].node) {
			return NewNodeRange(r, other, d)
		}
	}
	return nil
}

// String renders the path as type_index segments followed by the parent
// offset, like "blockquote_1/paragraph_0:3".
func (r *ResolvedPos) String() string {
	parts := make([]string, 0, r.Depth)
	for d := 1; d <= r.Depth; d++ {
		parts = append(parts, fmt.Sprintf("%s_%d", r.levels[d].node.Type.Name, r.levels[d-1].index))
	}
	return fmt.Sprintf("%s:%d", strings.Join(parts, "/"), r.ParentOffset)
}

// NodeRange is a run of siblings inside the ancestor at Depth. From and To
// are the positions the range was computed from, and may lie deeper.
type NodeRange struct {
	From  *ResolvedPos
	To    *ResolvedPos
	Depth int
}

// NewNodeRange creates a NodeRange. Both positions must share the
// ancestors down to depth.
func NewNodeRange(from, to *ResolvedPos, depth int) *NodeRange {
	return &NodeRange{From: from, To: to, Depth: depth}
}

// Start is the position before the first node of the range.
func (nr *NodeRange) Start() int {
	pos, _ := nr.From.Before(nr.Depth + 1)
	return pos
}

// End is the position after the last node of the range.
func (nr *NodeRange) End() int {
	pos, _ := nr.To.After(nr.Depth + 1)
	return pos
}

func (nr *NodeRange) Parent() *Node {
	return nr.From.Node(nr.Depth)
}

func (nr *NodeRange) StartIndex() int {
	return nr.From.Index(nr.Depth)
}

func (nr *NodeRange) EndIndex() int {
	return nr.To.IndexAfter(nr.Depth)
}

// RangeError is returned when a position lies outside of a document.
type RangeError struct {
	Pos  int
	Size int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("position %d out of range (document size %d)", e.Pos, e.Size)
}

func resolvePos(doc *Node, pos int) (*ResolvedPos, error) {
	if pos < 0 || pos > doc.Content.Size {
		return nil, &RangeError{Pos: pos, Size: doc.Content.Size}
	}
	var levels []level
	node, base, rest := doc, 0, pos
	for {
		index, offset, err := node.Content.findIndex(rest)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level{node: node, index: index, start: base + offset})
		if rest == offset {
			break
		}
		if node, err = node.Child(index); err != nil {
			return nil, err
		}
		if node.IsText() {
			break
		}
		rest -= offset + 1
		base += offset + 1
	}
	return &ResolvedPos{
		Pos:          pos,
		Depth:        len(levels) - 1,
		ParentOffset: rest,
		levels:       levels,
	}, nil
}

// resolveCache remembers the last few resolved positions. Commands tend to
// resolve the same positions of the same document several times.
type resolveCache struct {
	mu      sync.Mutex
	entries [12]struct {
		doc *Node
		pos *ResolvedPos
	}
	next int
}

var resolved resolveCache

func (c *resolveCache) get(doc *Node, pos int) (*ResolvedPos, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.doc == doc && e.pos.Pos == pos {
			return e.pos, nil
		}
	}
	rp, err := resolvePos(doc, pos)
	if err != nil {
		return nil, err
	}
	c.entries[c.next].doc, c.entries[c.next].pos = doc, rp
	c.next = (c.next + 1) % len(c.entries)
	return rp, nil
}

func resolvePosCached(doc *Node, pos int) (*ResolvedPos, error) {
	return resolved.get(doc, pos)
}
