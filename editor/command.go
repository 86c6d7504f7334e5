package editor

import (
	"fmt"
	"unicode/utf8"

	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/transform"
)

// Range is a span of document positions. From is never after To.
type Range struct {
	From int
	To   int
}

// Empty is true for a collapsed range.
func (r Range) Empty() bool {
	return r.From == r.To
}

// Size is the number of positions covered by the range.
func (r Range) Size() int {
	return r.To - r.From
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d]", r.From, r.To)
}

// Selection is the selected range of a document. StoredMarks, when not nil,
// are the marks the next typed text gets, set by toggling a mark on an empty
// selection.
type Selection struct {
	Range
	StoredMarks []*model.Mark
}

// Caret returns an empty selection at pos.
func Caret(pos int) Selection {
	return Selection{Range: Range{From: pos, To: pos}}
}

// State is a document with its selection.
type State struct {
	Doc       *model.Node
	Selection Selection
}

// Command is an editing command. Commands are applied with Apply.
type Command interface {
	apply(state State, tr *transform.Transform) (Selection, error)
}

// Apply runs the command on the state. It returns the new state and true
// when the command applied, or the given state and false when it could not.
func Apply(state State, cmd Command) (State, bool) {
	next, _, err := run(state, cmd)
	return next, err == nil
}

func run(state State, cmd Command) (State, *transform.Transform, error) {
	if err := checkRange(state.Doc, state.Selection.Range); err != nil {
		return state, nil, err
	}
	tr := transform.NewTransform(state.Doc)
	sel, err := cmd.apply(state, tr)
	if err != nil {
		return state, nil, err
	}
	if tr.DocChanged() {
		if err := tr.Doc.Check(); err != nil {
			return state, nil, err
		}
	}
	return State{Doc: tr.Doc, Selection: sel}, tr, nil
}

func checkRange(doc *model.Node, r Range) error {
	if r.From < 0 || r.From > r.To || r.To > doc.Content.Size {
		return fmt.Errorf("%w: %s in a document of size %d", ErrOutOfRange, r, doc.Content.Size)
	}
	return nil
}

func notApplicable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotApplicable, fmt.Sprintf(format, args...))
}

// mapSelection maps a selection through the steps of a transform. Stored
// marks do not survive a document change.
func mapSelection(sel Selection, mapping transform.Mappable) Selection {
	if sel.Empty() {
		pos := mapping.Map(sel.From, 1)
		return Caret(pos)
	}
	from := mapping.Map(sel.From, 1)
	to := max(mapping.Map(sel.To, -1), from)
	return Selection{Range: Range{From: from, To: to}}
}

// createMark builds a mark, failing instead of panicking when a required
// attribute is missing.
func createMark(typ *model.MarkType, attrs map[string]interface{}) (*model.Mark, error) {
	for name, spec := range typ.Spec.Attrs {
		if _, ok := attrs[name]; spec.Required && !ok {
			return nil, notApplicable("mark %s needs the %s attribute", typ.Name, name)
		}
	}
	return typ.Create(attrs), nil
}

// markAcross tells whether every text node between from and to carries the
// mark. When match is a *model.MarkType any mark of that type counts.
func markAcross(doc *model.Node, from, to int, match interface{}) bool {
	found, all := false, true
	doc.NodesBetween(from, to, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if !all {
			return false
		}
		if !node.IsText() {
			return true
		}
		found = true
		switch m := match.(type) {
		case *model.Mark:
			all = m.IsInSet(node.Marks)
		case *model.MarkType:
			all = m.IsInSet(node.Marks) != nil
		}
		return false
	})
	return found && all
}

// markApplies tells whether some inline content between from and to can
// carry marks of the given type.
func markApplies(doc *model.Node, from, to int, typ *model.MarkType) bool {
	applies := false
	doc.NodesBetween(from, to, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if applies {
			return false
		}
		if node.InlineContent() {
			applies = node.Type.AllowsMarkType(typ)
			return false
		}
		return true
	})
	return applies
}

// ToggleMark toggles a mark on the selection. When every text node of the
// selection already has it, it is removed, otherwise it is added. With Attrs
// set, only a mark with the same attributes counts as present, so a link or
// an alignment can be replaced by another one. On an empty selection the
// mark is toggled in the stored marks.
type ToggleMark struct {
	Type  *model.MarkType
	Attrs map[string]interface{}
}

func (c ToggleMark) apply(state State, tr *transform.Transform) (Selection, error) {
	sel := state.Selection
	if sel.Empty() {
		rp, err := state.Doc.Resolve(sel.From)
		if err != nil {
			return sel, err
		}
		parent := rp.Parent()
		if !parent.InlineContent() || !parent.Type.AllowsMarkType(c.Type) {
			return sel, notApplicable("%s can not hold %s marks", parent.Type.Name, c.Type.Name)
		}
		marks := sel.StoredMarks
		if marks == nil {
			marks = rp.Marks()
		}
		existing := c.Type.IsInSet(marks)
		if existing != nil && c.Attrs == nil {
			return Selection{Range: sel.Range, StoredMarks: c.Type.RemoveFromSet(marks)}, nil
		}
		mark, err := createMark(c.Type, c.Attrs)
		if err != nil {
			return sel, err
		}
		if existing != nil && existing.Eq(mark) {
			marks = c.Type.RemoveFromSet(marks)
		} else {
			marks = mark.AddToSet(marks)
		}
		return Selection{Range: sel.Range, StoredMarks: marks}, nil
	}

	if !markApplies(state.Doc, sel.From, sel.To, c.Type) {
		return sel, notApplicable("no content for %s marks", c.Type.Name)
	}
	var present interface{} = c.Type
	var mark *model.Mark
	if c.Attrs != nil {
		var err error
		if mark, err = createMark(c.Type, c.Attrs); err != nil {
			return sel, err
		}
		present = mark
	}
	var err error
	if markAcross(state.Doc, sel.From, sel.To, present) {
		err = tr.RemoveMark(sel.From, sel.To, c.Type)
	} else if mark, err = createMark(c.Type, c.Attrs); err == nil {
		err = tr.AddMark(sel.From, sel.To, mark)
	}
	if err != nil {
		return sel, err
	}
	if !tr.DocChanged() {
		return sel, notApplicable("%s marks left the document unchanged", c.Type.Name)
	}
	return Selection{Range: sel.Range}, nil
}

// RemoveMark strips every mark of a type from a range. An empty range means
// the selection.
type RemoveMark struct {
	Type  *model.MarkType
	Range Range
}

func (c RemoveMark) apply(state State, tr *transform.Transform) (Selection, error) {
	r := c.Range
	if r.Empty() {
		r = state.Selection.Range
	}
	if err := checkRange(state.Doc, r); err != nil {
		return state.Selection, err
	}
	if err := tr.RemoveMark(r.From, r.To, c.Type); err != nil {
		return state.Selection, err
	}
	if !tr.DocChanged() {
		return state.Selection, notApplicable("no %s mark in %s", c.Type.Name, r)
	}
	return mapSelection(state.Selection, tr.Mapping), nil
}

// SetBlockType turns the textblocks touched by the selection into the given
// type, for example a paragraph into a heading.
type SetBlockType struct {
	Type  *model.NodeType
	Attrs map[string]interface{}
}

func (c SetBlockType) apply(state State, tr *transform.Transform) (Selection, error) {
	sel := state.Selection
	if err := tr.SetBlockType(sel.From, sel.To, c.Type, c.Attrs); err != nil {
		return sel, err
	}
	if !tr.DocChanged() {
		return sel, notApplicable("no textblock to turn into %s", c.Type.Name)
	}
	return mapSelection(sel, tr.Mapping), nil
}

// InsertNode inserts a node at Pos, or at the end of the selection when Pos
// is negative. Block nodes inserted inside a textblock split it.
type InsertNode struct {
	Node *model.Node
	Pos  int
}

func (c InsertNode) apply(state State, tr *transform.Transform) (Selection, error) {
	pos := c.Pos
	if pos < 0 {
		pos = state.Selection.To
	}
	if pos > state.Doc.Content.Size {
		return state.Selection, fmt.Errorf("%w: %d", ErrOutOfRange, pos)
	}
	slice := model.NewSlice(model.NewFragment([]*model.Node{c.Node}), 0, 0)
	if err := tr.ReplaceRange(pos, pos, slice); err != nil {
		return state.Selection, err
	}
	if !tr.DocChanged() {
		return state.Selection, notApplicable("can not insert %s at %d", c.Node.Type.Name, pos)
	}
	return Caret(tr.Mapping.Map(pos, 1)), nil
}

// ReplaceRange replaces a range with a fragment. OpenStart and OpenEnd are
// the open depths of the fragment, as in model.Slice.
type ReplaceRange struct {
	Range     Range
	Content   *model.Fragment
	OpenStart int
	OpenEnd   int
}

func (c ReplaceRange) apply(state State, tr *transform.Transform) (Selection, error) {
	r := c.Range
	if err := checkRange(state.Doc, r); err != nil {
		return state.Selection, err
	}
	var slice *model.Slice
	if c.Content != nil {
		slice = model.NewSlice(c.Content, c.OpenStart, c.OpenEnd)
	}
	if err := tr.ReplaceRange(r.From, r.To, slice); err != nil {
		return state.Selection, err
	}
	if !tr.DocChanged() {
		return state.Selection, notApplicable("replacing %s changes nothing", r)
	}
	return Caret(tr.Mapping.Map(r.To, 1)), nil
}

// SetSelection moves the selection. It fails for ranges outside of the
// document.
type SetSelection struct {
	Range Range
}

func (c SetSelection) apply(state State, _ *transform.Transform) (Selection, error) {
	if err := checkRange(state.Doc, c.Range); err != nil {
		return state.Selection, err
	}
	return Selection{Range: c.Range}, nil
}

// InsertText types text over the selection. The text gets the stored marks,
// or the marks at the start of the selection.
type InsertText struct {
	Text string
}

func (c InsertText) apply(state State, tr *transform.Transform) (Selection, error) {
	sel := state.Selection
	if c.Text == "" {
		return sel, notApplicable("no text to insert")
	}
	rp, err := state.Doc.Resolve(sel.From)
	if err != nil {
		return sel, err
	}
	parent := rp.Parent()
	if !parent.InlineContent() {
		return sel, notApplicable("can not type text in %s", parent.Type.Name)
	}
	marks := sel.StoredMarks
	if marks == nil {
		marks = rp.Marks()
	}
	marks = parent.Type.AllowedMarks(marks)
	if err := tr.InsertText(c.Text, sel.From, sel.To, marks); err != nil {
		return sel, err
	}
	return Caret(sel.From + utf8.RuneCountInString(c.Text)), nil
}

// ToggleList wraps the selected blocks in a list of the given type, one item
// per paragraph. Inside a list of that type, the list is removed. Inside a
// list of another type, that list changes type.
type ToggleList struct {
	Type  *model.NodeType
	Attrs map[string]interface{}
}

func (c ToggleList) apply(state State, tr *transform.Transform) (Selection, error) {
	sel := state.Selection
	item := c.Type.ContentMatch.DefaultType()
	if item == nil || item.IsInline() || c.Type.IsTextblock() {
		return sel, notApplicable("%s is not a list", c.Type.Name)
	}
	isList := func(n *model.Node) bool {
		return n.Type != item && n.Type.ContentMatch.DefaultType() == item
	}
	pos, list, err := enclosing(state.Doc, sel.Range, isList)
	if err != nil {
		return sel, err
	}
	if list != nil {
		if list.Type == c.Type {
			err = tr.UnwrapList(pos)
		} else {
			err = tr.SetNodeMarkup(pos, c.Type, c.Attrs, nil)
		}
		if err != nil {
			return sel, err
		}
		return mapSelection(sel, tr.Mapping), nil
	}

	r, err := blockRange(state.Doc, sel.Range)
	if err != nil {
		return sel, err
	}
	wrappers := transform.FindWrapping(r, c.Type, c.Attrs)
	if wrappers == nil {
		return sel, notApplicable("can not wrap %s in %s", r.Parent().Type.Name, c.Type.Name)
	}
	if err := tr.Wrap(r, wrappers); err != nil {
		return sel, err
	}
	if len(wrappers) == 2 {
		if err := splitItems(tr, r, item); err != nil {
			return sel, err
		}
	}
	return mapSelection(sel, tr.Mapping), nil
}

// splitItems splits the single item created by wrapping a block range into
// one item per block that can start an item. It goes from the last block
// back so that the boundaries before it stay in place.
func splitItems(tr *transform.Transform, r *model.NodeRange, item *model.NodeType) error {
	parent := r.Parent()
	// The wrapped blocks now sit two tokens further, inside the list and item.
	boundary := r.End() + 2
	for i := r.EndIndex() - 1; i > r.StartIndex(); i-- {
		block := parent.Content.Content[i]
		boundary -= block.NodeSize()
		if !item.ContentMatch.ValidPrefix([]*model.NodeType{block.Type}) {
			continue
		}
		if err := tr.SplitAt(boundary, 1); err != nil {
			return err
		}
	}
	return nil
}

// ToggleBlockquote wraps the selected blocks in a blockquote, or lifts them
// out of the blockquote they are in.
type ToggleBlockquote struct{}

func (ToggleBlockquote) apply(state State, tr *transform.Transform) (Selection, error) {
	sel := state.Selection
	quote := state.Doc.Type.Schema.Nodes["blockquote"]
	if quote == nil {
		return sel, notApplicable("the schema has no blockquote")
	}
	pos, node, err := enclosing(state.Doc, sel.Range, func(n *model.Node) bool { return n.Type == quote })
	if err != nil {
		return sel, err
	}
	if node != nil {
		err = tr.Unwrap(pos)
	} else {
		var r *model.NodeRange
		if r, err = blockRange(state.Doc, sel.Range); err != nil {
			return sel, err
		}
		wrappers := transform.FindWrapping(r, quote, nil)
		if wrappers == nil {
			return sel, notApplicable("can not wrap %s in a blockquote", r.Parent().Type.Name)
		}
		err = tr.Wrap(r, wrappers)
	}
	if err != nil {
		return sel, err
	}
	return mapSelection(sel, tr.Mapping), nil
}

// enclosing finds the innermost ancestor of the range matching pred, and the
// position before it. It returns a nil node when there is none.
func enclosing(doc *model.Node, r Range, pred func(*model.Node) bool) (int, *model.Node, error) {
	rp, err := doc.Resolve(r.From)
	if err != nil {
		return 0, nil, err
	}
	for d := rp.Depth; d > 0; d-- {
		node := rp.Node(d)
		if pred(node) && rp.End(d) >= r.To {
			pos, err := rp.Before(d)
			return pos, node, err
		}
	}
	return 0, nil, nil
}

func blockRange(doc *model.Node, r Range) (*model.NodeRange, error) {
	from, err := doc.Resolve(r.From)
	if err != nil {
		return nil, err
	}
	to, err := doc.Resolve(r.To)
	if err != nil {
		return nil, err
	}
	br := from.BlockRange(to)
	if br == nil {
		return nil, notApplicable("no block range around %s", r)
	}
	return br, nil
}
