package transform

import "github.com/gamedesk/richedit/model"

// AddMark adds the given mark to the inline content between from and to.
// Marks that the new mark excludes are removed from that content first.
func (tr *Transform) AddMark(from, to int, mark *model.Mark) error {
	var removed, added []Step
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		if !node.IsText() || mark.IsInSet(node.Marks) || !parent.Type.AllowsMarkType(mark.Type) {
			return false
		}
		start, end := max(pos, from), min(pos+node.NodeSize(), to)
		newSet := mark.AddToSet(node.Marks)
		for _, m := range node.Marks {
			if !m.IsInSet(newSet) {
				removed = appendMerged(removed, NewRemoveMarkStep(start, end, m))
			}
		}
		added = appendMerged(added, NewAddMarkStep(start, end, mark))
		return false
	})
	return tr.applyAll(append(removed, added...))
}

// RemoveMark removes marks from inline nodes between from and to. When mark
// is a *model.Mark, only that mark is removed. When it is a *model.MarkType,
// every mark of that type is removed. When it is nil, all marks are removed.
func (tr *Transform) RemoveMark(from, to int, mark interface{}) error {
	var steps []Step
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		var toRemove []*model.Mark
		switch m := mark.(type) {
		case *model.Mark:
			if m.IsInSet(node.Marks) {
				toRemove = []*model.Mark{m}
			}
		case *model.MarkType:
			for _, nm := range node.Marks {
				if nm.Type == m {
					toRemove = append(toRemove, nm)
				}
			}
		case nil:
			toRemove = node.Marks
		}
		start, end := max(pos, from), min(pos+node.NodeSize(), to)
		for _, rm := range toRemove {
			steps = appendMerged(steps, NewRemoveMarkStep(start, end, rm))
		}
		return false
	})
	return tr.applyAll(steps)
}

// appendMerged adds the step to the list, merging it into an earlier step
// when they touch.
func appendMerged(steps []Step, step Step) []Step {
	for i, s := range steps {
		if merged, ok := s.Merge(step); ok {
			steps[i] = merged
			return steps
		}
	}
	return append(steps, step)
}

// applyAll applies the steps in order. When one fails, the ones already
// applied are rolled back.
func (tr *Transform) applyAll(steps []Step) error {
	count := len(tr.Steps)
	for _, step := range steps {
		if err := tr.Step(step); err != nil {
			tr.rollback(count)
			return err
		}
	}
	return nil
}
