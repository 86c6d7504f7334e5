package transform

import "github.com/gamedesk/richedit/model"

// markRange is the range and mark shared by the add and remove mark steps.
type markRange struct {
	From int
	To   int
	Mark *model.Mark
}

// restyle replaces From-To with a copy in which every inline node went
// through f. parent is the node holding the inline content.
func (r markRange) restyle(doc *model.Node, f func(node, parent *model.Node) *model.Node) StepResult {
	old, err := doc.Slice(r.From, r.To)
	if err != nil {
		return Fail(err.Error())
	}
	start, err := doc.Resolve(r.From)
	if err != nil {
		return Fail(err.Error())
	}
	parent := start.Node(start.SharedDepth(r.To))
	content := restyleFragment(old.Content, parent, f)
	return FromReplace(doc, r.From, r.To, model.NewSlice(content, old.OpenStart, old.OpenEnd))
}

func restyleFragment(fragment *model.Fragment, parent *model.Node, f func(node, parent *model.Node) *model.Node) *model.Fragment {
	children := make([]*model.Node, len(fragment.Content))
	for i, child := range fragment.Content {
		if child.Content.Size > 0 {
			child = child.Copy(restyleFragment(child.Content, child, f))
		}
		if child.IsInline() {
			child = f(child, parent)
		}
		children[i] = child
	}
	return model.FragmentFromArray(children)
}

// mapped returns the range mapped through mapping, or false when nothing
// of it is left.
func (r markRange) mapped(mapping Mappable) (markRange, bool) {
	from := mapping.MapResult(r.From, 1)
	to := mapping.MapResult(r.To, -1)
	if from.Deleted && to.Deleted || from.Pos >= to.Pos {
		return r, false
	}
	return markRange{From: from.Pos, To: to.Pos, Mark: r.Mark}, true
}

// union returns the range covering both when they carry the same mark and
// overlap or touch.
func (r markRange) union(o markRange) (markRange, bool) {
	if !o.Mark.Eq(r.Mark) || r.From > o.To || r.To < o.From {
		return r, false
	}
	return markRange{From: min(r.From, o.From), To: max(r.To, o.To), Mark: r.Mark}, true
}

// AddMarkStep adds a mark to the text between From and To. Inline leaves
// such as images and text in parents that disallow the mark are skipped.
type AddMarkStep struct{ markRange }

func NewAddMarkStep(from, to int, mark *model.Mark) *AddMarkStep {
	return &AddMarkStep{markRange{From: from, To: to, Mark: mark}}
}

func (s *AddMarkStep) Apply(doc *model.Node) StepResult {
	return s.restyle(doc, func(node, parent *model.Node) *model.Node {
		if !node.IsText() || parent != nil && !parent.Type.AllowsMarkType(s.Mark.Type) {
			return node
		}
		return node.Mark(s.Mark.AddToSet(node.Marks))
	})
}

func (s *AddMarkStep) GetMap() *StepMap { return EmptyStepMap }

func (s *AddMarkStep) Invert(*model.Node) Step {
	return &RemoveMarkStep{s.markRange}
}

func (s *AddMarkStep) Map(mapping Mappable) Step {
	if r, ok := s.mapped(mapping); ok {
		return &AddMarkStep{r}
	}
	return nil
}

func (s *AddMarkStep) Merge(other Step) (Step, bool) {
	if o, ok := other.(*AddMarkStep); ok {
		if r, ok := s.union(o.markRange); ok {
			return &AddMarkStep{r}, true
		}
	}
	return nil, false
}

var _ Step = &AddMarkStep{}

// RemoveMarkStep removes a mark from all inline content between From and
// To.
type RemoveMarkStep struct{ markRange }

func NewRemoveMarkStep(from, to int, mark *model.Mark) *RemoveMarkStep {
	return &RemoveMarkStep{markRange{From: from, To: to, Mark: mark}}
}

func (s *RemoveMarkStep) Apply(doc *model.Node) StepResult {
	return s.restyle(doc, func(node, _ *model.Node) *model.Node {
		return node.Mark(s.Mark.RemoveFromSet(node.Marks))
	})
}

func (s *RemoveMarkStep) GetMap() *StepMap { return EmptyStepMap }

func (s *RemoveMarkStep) Invert(*model.Node) Step {
	return &AddMarkStep{s.markRange}
}

func (s *RemoveMarkStep) Map(mapping Mappable) Step {
	if r, ok := s.mapped(mapping); ok {
		return &RemoveMarkStep{r}
	}
	return nil
}

func (s *RemoveMarkStep) Merge(other Step) (Step, bool) {
	if o, ok := other.(*RemoveMarkStep); ok {
		if r, ok := s.union(o.markRange); ok {
			return &RemoveMarkStep{r}, true
		}
	}
	return nil, false
}

var _ Step = &RemoveMarkStep{}
