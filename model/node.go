package model

import (
	"fmt"
	"reflect"
	"unicode/utf8"
)

// Node is an element of a document tree. Nodes are immutable: edits build
// new nodes that share the untouched subtrees with the old ones.
//
// Text nodes have a non-nil Text and no content. Every other node has a
// non-nil Content, possibly EmptyFragment.
type Node struct {
	Type    *NodeType
	Attrs   map[string]interface{}
	Content *Fragment
	Text    *string
	Marks   []*Mark
}

func NewNode(typ *NodeType, attrs map[string]interface{}, content *Fragment, marks []*Mark) *Node {
	if content == nil {
		content = EmptyFragment
	}
	if marks == nil {
		marks = NoMarks
	}
	return &Node{Type: typ, Attrs: attrs, Content: content, Marks: marks}
}

func NewTextNode(typ *NodeType, attrs map[string]interface{}, text string, marks []*Mark) *Node {
	n := NewNode(typ, attrs, nil, marks)
	n.Text = &text
	return n
}

// NodeSize is the number of positions the node takes up in its parent: the
// runes of a text node, 1 for other leaves, and the content size plus the
// opening and closing tokens for the rest.
func (n *Node) NodeSize() int {
	switch {
	case n.IsText():
		return textLen(*n.Text)
	case n.IsLeaf():
		return 1
	}
	return n.Content.Size + 2
}

func (n *Node) ChildCount() int                { return n.Content.ChildCount() }
func (n *Node) Child(index int) (*Node, error) { return n.Content.Child(index) }
func (n *Node) MaybeChild(index int) *Node     { return n.Content.MaybeChild(index) }
func (n *Node) FirstChild() *Node              { return n.Content.FirstChild() }
func (n *Node) LastChild() *Node               { return n.Content.LastChild() }

// ForEach calls fn with every child, its offset and its index.
func (n *Node) ForEach(fn func(node *Node, offset, index int)) {
	n.Content.ForEach(fn)
}

// NodesBetween calls fn for every descendant overlapping from-to, which are
// positions inside the content of n. Positions passed to fn are counted
// from startPos, 0 by default. Returning false skips the children of a
// node.
func (n *Node) NodesBetween(from, to int, fn NBCallback, startPos ...int) {
	start := 0
	if len(startPos) > 0 {
		start = startPos[0]
	}
	n.Content.NodesBetween(from, to, fn, start, n)
}

// Descendants calls fn for every descendant, like NodesBetween over the
// whole content.
func (n *Node) Descendants(fn NBCallback) {
	n.NodesBetween(0, n.Content.Size, fn)
}

// TextContent concatenates the text of all descendants.
func (n *Node) TextContent() string {
	if n.IsText() {
		return *n.Text
	}
	return n.TextBetween(0, n.Content.Size)
}

// TextBetween returns the text between two positions. The optional
// arguments are a separator put between blocks and a replacement text for
// non-text leaves.
func (n *Node) TextBetween(from, to int, args ...string) string {
	if n.IsText() {
		return sliceRunes(*n.Text, from, to)
	}
	return n.Content.TextBetween(from, to, args...)
}

// Eq tells whether two nodes hold the same document piece.
func (n *Node) Eq(other *Node) bool {
	switch {
	case n == other:
		return true
	case other == nil || n.IsText() != other.IsText():
		return false
	case n.IsText() && *n.Text != *other.Text:
		return false
	}
	return n.SameMarkup(other) && n.Content.Eq(other.Content)
}

// SameMarkup tells whether both nodes have the same type, attributes and
// marks.
func (n *Node) SameMarkup(other *Node) bool {
	return n.HasMarkup(other.Type, other.Attrs, other.Marks)
}

// HasMarkup tells whether the node has the given type, attributes and
// marks. Nil attributes stand for the type defaults, and missing marks for
// none.
func (n *Node) HasMarkup(typ *NodeType, attrs map[string]interface{}, marks ...[]*Mark) bool {
	if n.Type != typ {
		return false
	}
	if attrs == nil {
		attrs = typ.DefaultAttrs
	}
	want := NoMarks
	if len(marks) > 0 && marks[0] != nil {
		want = marks[0]
	}
	return sameAttrs(n.Attrs, attrs) && SameMarkSet(n.Marks, want)
}

func sameAttrs(a, b map[string]interface{}) bool {
	return len(a) == 0 && len(b) == 0 || reflect.DeepEqual(a, b)
}

// Copy returns a node with the markup of n and the given content, or no
// content. It returns n itself when the content is unchanged.
func (n *Node) Copy(content ...*Fragment) *Node {
	c := EmptyFragment
	if len(content) > 0 && content[0] != nil {
		c = content[0]
	}
	if c == n.Content {
		return n
	}
	return NewNode(n.Type, n.Attrs, c, n.Marks)
}

// Mark returns n with its marks replaced.
func (n *Node) Mark(marks []*Mark) *Node {
	if SameMarkSet(n.Marks, marks) {
		return n
	}
	if n.IsText() {
		return NewTextNode(n.Type, n.Attrs, *n.Text, marks)
	}
	return NewNode(n.Type, n.Attrs, n.Content, marks)
}

// WithText returns the text node n with other text.
func (n *Node) WithText(text string) *Node {
	if text == *n.Text {
		return n
	}
	return NewTextNode(n.Type, n.Attrs, text, n.Marks)
}

// Cut returns n with only the content between from and to, which defaults
// to the end.
func (n *Node) Cut(from int, to ...int) *Node {
	size := n.Content.Size
	if n.IsText() {
		size = textLen(*n.Text)
	}
	end := size
	if len(to) > 0 {
		end = to[0]
	}
	switch {
	case from == 0 && end == size:
		return n
	case n.IsText():
		return n.WithText(sliceRunes(*n.Text, from, end))
	}
	return n.Copy(n.Content.Cut(from, end))
}

// Slice cuts from-to out of the document. The slice is open as deep as the
// positions lie below their shared ancestor, or below the document itself
// when includeParents is set.
func (n *Node) Slice(from, to int, includeParents ...bool) (*Slice, error) {
	if from == to {
		return EmptySlice, nil
	}
	start, end, err := n.resolveRange(from, to)
	if err != nil {
		return nil, err
	}
	depth := 0
	if len(includeParents) == 0 || !includeParents[0] {
		depth = start.SharedDepth(to)
	}
	base := start.Start(depth)
	content := start.Node(depth).Content.Cut(start.Pos-base, end.Pos-base)
	return NewSlice(content, start.Depth-depth, end.Depth-depth), nil
}

// Replace returns the document with from-to replaced by slice. It fails
// with a *ReplaceError when the open sides of the slice can not be joined
// to the content around the range, or the result would break the schema.
func (n *Node) Replace(from, to int, slice *Slice) (*Node, error) {
	start, end, err := n.resolveRange(from, to)
	if err != nil {
		return nil, err
	}
	return replace(start, end, slice)
}

func (n *Node) resolveRange(from, to int) (*ResolvedPos, *ResolvedPos, error) {
	start, err := n.Resolve(from)
	if err != nil {
		return nil, nil, err
	}
	end, err := n.Resolve(to)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// NodeAt returns the node starting at pos, or the text node pos is inside
// of. It returns nil when there is none.
func (n *Node) NodeAt(pos int) *Node {
	for node := n; ; {
		index, offset, err := node.Content.findIndex(pos)
		if err != nil {
			return nil
		}
		if node = node.MaybeChild(index); node == nil || offset == pos || node.IsText() {
			return node
		}
		pos -= offset + 1
	}
}

// Resolve returns the context of a position. Recent results are cached.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	return resolvePosCached(n, pos)
}

func (n *Node) resolveNoCache(pos int) (*ResolvedPos, error) {
	return resolvePos(n, pos)
}

// RangeHasMark tells whether a node between from and to carries the mark,
// given as a *Mark or a *MarkType.
func (n *Node) RangeHasMark(from, to int, mark interface{}) bool {
	has := func(marks []*Mark) bool { return false }
	switch m := mark.(type) {
	case *Mark:
		has = m.IsInSet
	case *MarkType:
		has = func(marks []*Mark) bool { return m.IsInSet(marks) != nil }
	}
	found := false
	if to > from {
		n.NodesBetween(from, to, func(node *Node, _ int, _ *Node, _ int) bool {
			found = found || has(node.Marks)
			return !found
		})
	}
	return found
}

func (n *Node) IsBlock() bool       { return n.Type.IsBlock() }
func (n *Node) IsTextblock() bool   { return n.Type.IsTextblock() }
func (n *Node) InlineContent() bool { return n.Type.InlineContent }
func (n *Node) IsInline() bool      { return n.Type.IsInline() }
func (n *Node) IsText() bool        { return n.Text != nil }
func (n *Node) IsLeaf() bool        { return n.Type.IsLeaf() }

// CanReplace tells whether the children from index from to index to can be
// replaced by the replacement fragment, empty by default.
func (n *Node) CanReplace(from, to int, replacement ...*Fragment) bool {
	var insert []*NodeType
	if len(replacement) > 0 && replacement[0] != nil {
		for _, child := range replacement[0].Content {
			if !n.Type.AllowsMarks(child.Marks) {
				return false
			}
			insert = append(insert, child.Type)
		}
	}
	return n.matchesWith(from, to, insert)
}

// CanReplaceWith tells whether the children from index from to index to
// can be replaced by one node of type typ, with marks when given.
func (n *Node) CanReplaceWith(from, to int, typ *NodeType, marks ...[]*Mark) bool {
	if len(marks) > 0 && !n.Type.AllowsMarks(marks[0]) {
		return false
	}
	return n.matchesWith(from, to, []*NodeType{typ})
}

func (n *Node) matchesWith(from, to int, insert []*NodeType) bool {
	children := n.Content.Content
	types := make([]*NodeType, 0, len(children)-(to-from)+len(insert))
	for _, child := range children[:from] {
		types = append(types, child.Type)
	}
	types = append(types, insert...)
	for _, child := range children[to:] {
		types = append(types, child.Type)
	}
	return n.Type.ContentMatch.MatchTypes(types)
}

// Check validates n and its descendants against the schema and returns a
// *ContentError for the first problem found.
func (n *Node) Check() error {
	if !n.Type.ValidContent(n.Content) {
		return NewContentError("Invalid content for node %s: %s", n.Type.Name, n.Content.String())
	}
	var normalized []*Mark
	for _, mark := range n.Marks {
		normalized = mark.AddToSet(normalized)
	}
	if !SameMarkSet(normalized, n.Marks) {
		return NewContentError("Invalid collection of marks for node %s: %v", n.Type.Name, n.Marks)
	}
	if n.IsText() && *n.Text == "" {
		return NewContentError("Empty text nodes are not allowed")
	}
	for _, child := range n.Content.Content {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the node for debugging, like
// doc(paragraph("a", bold("b"))).
func (n *Node) String() string {
	if n.Type.Spec.ToDebugString != nil {
		return n.Type.Spec.ToDebugString(n)
	}
	out := n.Type.Name
	if n.IsText() {
		out = fmt.Sprintf("%q", *n.Text)
	} else if n.Content.Size > 0 {
		out += "(" + n.Content.toStringInner() + ")"
	}
	for i := len(n.Marks) - 1; i >= 0; i-- {
		out = n.Marks[i].Type.Name + "(" + out + ")"
	}
	return out
}

// textLen is the size of a text node: positions inside text count runes.
func textLen(text string) int {
	return utf8.RuneCountInString(text)
}

// sliceRunes returns the runes from index from to index to of text.
func sliceRunes(text string, from, to int) string {
	if from <= 0 && to >= len(text) {
		return text
	}
	start, end, i := len(text), len(text), 0
	for offset := range text {
		if i == from {
			start = offset
		}
		if i == to {
			end = offset
			break
		}
		i++
	}
	if start > end {
		return ""
	}
	return text[start:end]
}
