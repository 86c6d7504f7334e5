package transform

import (
	"maps"

	"github.com/gamedesk/richedit/model"
)

// SetAttrsStep changes attributes of the node at Pos without touching its
// content. Attributes missing from Attrs keep their value.
type SetAttrsStep struct {
	Pos   int
	Attrs map[string]interface{}
}

// NewSetAttrsStep creates a SetAttrsStep.
func NewSetAttrsStep(pos int, attrs map[string]interface{}) *SetAttrsStep {
	return &SetAttrsStep{Pos: pos, Attrs: attrs}
}

func mergeAttrs(base, changes map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(changes))
	maps.Copy(merged, base)
	maps.Copy(merged, changes)
	return merged
}

func (s *SetAttrsStep) Apply(doc *model.Node) StepResult {
	target := doc.NodeAt(s.Pos)
	if target == nil || target.IsText() {
		return Fail("No node at given position")
	}
	changed, err := target.Type.Create(mergeAttrs(target.Attrs, s.Attrs), target.Content, target.Marks)
	if err != nil {
		return Fail(err.Error())
	}
	slice := model.NewSlice(model.NewFragment([]*model.Node{changed}), 0, 0)
	return FromReplace(doc, s.Pos, s.Pos+target.NodeSize(), slice)
}

// GetMap returns the empty map: positions do not move.
func (s *SetAttrsStep) GetMap() *StepMap {
	return EmptyStepMap
}

// Invert restores every attribute of the node.
func (s *SetAttrsStep) Invert(doc *model.Node) Step {
	var attrs map[string]interface{}
	if target := doc.NodeAt(s.Pos); target != nil {
		attrs = target.Attrs
	}
	return NewSetAttrsStep(s.Pos, attrs)
}

func (s *SetAttrsStep) Map(mapping Mappable) Step {
	if moved := mapping.MapResult(s.Pos, 1); !moved.Deleted {
		return NewSetAttrsStep(moved.Pos, s.Attrs)
	}
	return nil
}

// Merge combines two attribute changes of the same node.
func (s *SetAttrsStep) Merge(other Step) (Step, bool) {
	if next, ok := other.(*SetAttrsStep); ok && next.Pos == s.Pos {
		return NewSetAttrsStep(s.Pos, mergeAttrs(s.Attrs, next.Attrs)), true
	}
	return nil, false
}

var _ Step = &SetAttrsStep{}
