package transform

import (
	"fmt"

	"github.com/gamedesk/richedit/model"
)

// Wrapper is a node type, with its attributes, to wrap content in.
type Wrapper struct {
	Type  *model.NodeType
	Attrs map[string]interface{}
}

// SetNodeMarkup changes the type, attributes, and/or marks of the node at
// pos. When typ is nil, the existing node type is preserved. When marks is
// nil, the existing marks are kept.
func (tr *Transform) SetNodeMarkup(pos int, typ *model.NodeType, attrs map[string]interface{}, marks []*model.Mark) error {
	node := tr.Doc.NodeAt(pos)
	if node == nil || node.IsText() {
		return fmt.Errorf("no node at position %d", pos)
	}
	if typ == nil {
		typ = node.Type
	}
	if marks == nil {
		marks = node.Marks
	}
	newNode, err := typ.Create(attrs, nil, marks)
	if err != nil {
		return err
	}
	if node.IsLeaf() {
		return tr.ReplaceWith(pos, pos+node.NodeSize(), newNode)
	}
	if !typ.ValidContent(node.Content) {
		return model.NewReplaceError("Invalid content for node type %s", typ.Name)
	}
	slice := model.NewSlice(model.NewFragment([]*model.Node{newNode}), 0, 0)
	return tr.Step(NewReplaceAroundStep(pos, pos+node.NodeSize(), pos+1, pos+node.NodeSize()-1, slice, 1, true))
}

// SetBlockType sets the type of all textblocks (partly) between from and to
// to the given node type with the given attributes. Textblocks that already
// have that markup, or whose parent does not allow the new type, are left
// alone.
func (tr *Transform) SetBlockType(from, to int, typ *model.NodeType, attrs map[string]interface{}) error {
	if !typ.IsTextblock() {
		return fmt.Errorf("type given to SetBlockType should be a textblock")
	}
	mapFrom := len(tr.Steps)
	var err error
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, index int) bool {
		if err != nil {
			return false
		}
		if !node.IsTextblock() {
			return true
		}
		if node.HasMarkup(typ, attrs) || !parent.CanReplaceWith(index, index+1, typ) {
			return false
		}
		mapped := tr.Mapping.Slice(mapFrom).Map(pos, 1)
		err = tr.SetNodeMarkup(mapped, typ, attrs, nil)
		return false
	})
	if err != nil {
		tr.rollback(mapFrom)
	}
	return err
}

// FindWrapping tries to find a valid way to wrap the content in the given
// range in a node of the given type. May introduce an inner wrapper node
// (the default type of the wrapper's content) when the range's nodes can not
// be its direct children. Returns nil when no wrapping is possible.
func FindWrapping(r *model.NodeRange, typ *model.NodeType, attrs map[string]interface{}) []Wrapper {
	parent := r.Parent()
	if !parent.CanReplaceWith(r.StartIndex(), r.EndIndex(), typ) {
		return nil
	}
	var children []*model.NodeType
	for i := r.StartIndex(); i < r.EndIndex(); i++ {
		children = append(children, parent.Content.Content[i].Type)
	}
	if typ.ContentMatch.MatchTypes(children) {
		return []Wrapper{{Type: typ, Attrs: attrs}}
	}
	inner := typ.ContentMatch.DefaultType()
	if inner == nil || !inner.ContentMatch.MatchTypes(children) {
		return nil
	}
	if !typ.ContentMatch.MatchTypes([]*model.NodeType{inner}) {
		return nil
	}
	return []Wrapper{{Type: typ, Attrs: attrs}, {Type: inner}}
}

// Wrap the given range in the given set of wrappers. The wrappers are assumed
// to be valid in this position, and should probably be computed with
// FindWrapping.
func (tr *Transform) Wrap(r *model.NodeRange, wrappers []Wrapper) error {
	content := model.EmptyFragment
	for i := len(wrappers) - 1; i >= 0; i-- {
		node, err := wrappers[i].Type.Create(wrappers[i].Attrs, content, nil)
		if err != nil {
			return err
		}
		content = model.NewFragment([]*model.Node{node})
	}
	start, end := r.Start(), r.End()
	return tr.Step(NewReplaceAroundStep(start, end, start, end, model.NewSlice(content, 0, 0), len(wrappers), true))
}

// Unwrap removes the node at pos, putting its children in its place.
func (tr *Transform) Unwrap(pos int) error {
	node := tr.Doc.NodeAt(pos)
	if node == nil || node.IsLeaf() || node.IsText() {
		return fmt.Errorf("no wrapping node at position %d", pos)
	}
	end := pos + node.NodeSize()
	return tr.Step(NewReplaceAroundStep(pos, end, pos+1, end-1, model.EmptySlice, 0, true))
}

// UnwrapList replaces the list node at pos with the content of its items.
// The items are first joined into one, then the list and that item are
// lifted away, so positions inside the items survive the mapping.
func (tr *Transform) UnwrapList(pos int) error {
	list := tr.Doc.NodeAt(pos)
	if list == nil || list.IsLeaf() || list.IsText() || list.ChildCount() == 0 {
		return fmt.Errorf("no list at position %d", pos)
	}
	count := len(tr.Steps)
	// Join from the last item so the boundaries before it do not move.
	boundary := pos + list.NodeSize() - 1
	for i := list.ChildCount() - 1; i > 0; i-- {
		boundary -= list.Content.Content[i].NodeSize()
		if err := tr.Delete(boundary-1, boundary+1); err != nil {
			tr.rollback(count)
			return err
		}
	}
	end := pos + tr.Doc.NodeAt(pos).NodeSize()
	if err := tr.Step(NewReplaceAroundStep(pos, end, pos+2, end-2, model.EmptySlice, 0, true)); err != nil {
		tr.rollback(count)
		return err
	}
	return nil
}

// SplitAt splits the node at the given depth around pos into two nodes of
// the same type. The content after pos goes into the second node.
func (tr *Transform) SplitAt(pos, depth int) error {
	rp, err := tr.Doc.Resolve(pos)
	if err != nil {
		return err
	}
	if depth < 1 || depth > rp.Depth {
		return fmt.Errorf("can not split at depth %d of position %d", depth, pos)
	}
	before := model.EmptyFragment
	after := model.EmptyFragment
	for d := rp.Depth; d > rp.Depth-depth; d-- {
		node := rp.Node(d)
		before = model.NewFragment([]*model.Node{node.Copy(before)})
		after = model.NewFragment([]*model.Node{node.Copy(after)})
	}
	return tr.Step(NewReplaceStep(pos, pos, model.NewSlice(before.Append(after), depth, depth), true))
}
