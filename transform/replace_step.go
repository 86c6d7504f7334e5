package transform

import "github.com/gamedesk/richedit/model"

// ReplaceStep replaces From-To with a slice. The open sides of the slice
// must line up with the depths at From and To, and join the nodes there.
//
// A structure step only replaces node boundaries: it fails when From-To
// holds content, which keeps a mapped structural step from overwriting
// text typed in the meantime.
type ReplaceStep struct {
	From      int
	To        int
	Slice     *model.Slice
	Structure bool
}

// NewReplaceStep creates a ReplaceStep. The optional flag makes it a
// structure step.
func NewReplaceStep(from, to int, slice *model.Slice, structure ...bool) *ReplaceStep {
	return &ReplaceStep{From: from, To: to, Slice: slice, Structure: len(structure) > 0 && structure[0]}
}

func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	if s.Structure && hasContent(doc, s.From, s.To) {
		return Fail("Structure replace would overwrite content")
	}
	return FromReplace(doc, s.From, s.To, s.Slice)
}

func (s *ReplaceStep) GetMap() *StepMap {
	return NewStepMap([]int{s.From, s.To - s.From, s.Slice.Size()})
}

// Invert puts the replaced content back. It returns nil when From-To can
// not be cut from doc.
func (s *ReplaceStep) Invert(doc *model.Node) Step {
	replaced, err := doc.Slice(s.From, s.To)
	if err != nil {
		return nil
	}
	return NewReplaceStep(s.From, s.From+s.Slice.Size(), replaced)
}

func (s *ReplaceStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	if from.Deleted && to.Deleted {
		return nil
	}
	return NewReplaceStep(from.Pos, max(from.Pos, to.Pos), s.Slice)
}

// Merge joins two adjacent replaces, like consecutive typing or
// backspacing. Structure steps are never merged.
func (s *ReplaceStep) Merge(other Step) (Step, bool) {
	next, ok := other.(*ReplaceStep)
	if !ok || next.Structure || s.Structure {
		return nil, false
	}
	switch {
	case s.From+s.Slice.Size() == next.From && s.Slice.OpenStart == 0 && next.Slice.OpenEnd == 0:
		// next starts where this one's content ends
		return NewReplaceStep(s.From, s.To+next.To-next.From, concatSlices(s.Slice, next.Slice)), true
	case next.To == s.From && next.Slice.OpenStart == 0 && s.Slice.OpenEnd == 0:
		// next ends where this one starts
		return NewReplaceStep(next.From, s.To, concatSlices(next.Slice, s.Slice)), true
	}
	return nil, false
}

func concatSlices(first, second *model.Slice) *model.Slice {
	if first.Size()+second.Size() == 0 {
		return model.EmptySlice
	}
	return model.NewSlice(first.Content.Append(second.Content), first.OpenStart, second.OpenEnd)
}

var _ Step = &ReplaceStep{}

// ReplaceAroundStep replaces From-To with a slice, except for the gap
// GapFrom-GapTo, whose content is moved into the slice at Insert. It wraps
// and unwraps content without copying it.
type ReplaceAroundStep struct {
	From      int
	To        int
	GapFrom   int
	GapTo     int
	Slice     *model.Slice
	Insert    int
	Structure bool
}

// NewReplaceAroundStep creates a ReplaceAroundStep. Structure has the same
// meaning as for ReplaceStep, for both sides of the gap.
func NewReplaceAroundStep(from, to, gapFrom, gapTo int, slice *model.Slice, insert int, structure bool) *ReplaceAroundStep {
	return &ReplaceAroundStep{
		From: from, To: to,
		GapFrom: gapFrom, GapTo: gapTo,
		Slice: slice, Insert: insert,
		Structure: structure,
	}
}

func (s *ReplaceAroundStep) Apply(doc *model.Node) StepResult {
	if s.Structure && (hasContent(doc, s.From, s.GapFrom) || hasContent(doc, s.GapTo, s.To)) {
		return Fail("Structure gap-replace would overwrite content")
	}
	gap, err := doc.Slice(s.GapFrom, s.GapTo)
	if err != nil {
		return Fail(err.Error())
	}
	if gap.OpenStart != 0 || gap.OpenEnd != 0 {
		return Fail("Gap is not a flat range")
	}
	filled := s.Slice.InsertAt(s.Insert, gap.Content)
	if filled == nil {
		return Fail("Content does not fit in gap")
	}
	return FromReplace(doc, s.From, s.To, filled)
}

func (s *ReplaceAroundStep) GetMap() *StepMap {
	return NewStepMap([]int{
		s.From, s.GapFrom - s.From, s.Insert,
		s.GapTo, s.To - s.GapTo, s.Slice.Size() - s.Insert,
	})
}

// Invert cuts the gap content out of the replaced range and moves it back.
func (s *ReplaceAroundStep) Invert(doc *model.Node) Step {
	replaced, err := doc.Slice(s.From, s.To)
	if err != nil {
		return nil
	}
	around, err := replaced.RemoveBetween(s.GapFrom-s.From, s.GapTo-s.From)
	if err != nil {
		return nil
	}
	gap := s.GapTo - s.GapFrom
	return NewReplaceAroundStep(
		s.From, s.From+s.Slice.Size()+gap,
		s.From+s.Insert, s.From+s.Insert+gap,
		around, s.GapFrom-s.From, s.Structure)
}

// Map returns nil when the gap no longer lies inside the range.
func (s *ReplaceAroundStep) Map(mapping Mappable) Step {
	from := mapping.MapResult(s.From, 1)
	to := mapping.MapResult(s.To, -1)
	gapFrom := mapping.Map(s.GapFrom, -1)
	gapTo := mapping.Map(s.GapTo, 1)
	if from.Deleted && to.Deleted || gapFrom < from.Pos || gapTo > to.Pos {
		return nil
	}
	return NewReplaceAroundStep(from.Pos, to.Pos, gapFrom, gapTo, s.Slice, s.Insert, s.Structure)
}

func (s *ReplaceAroundStep) Merge(Step) (Step, bool) {
	return nil, false
}

var _ Step = &ReplaceAroundStep{}

// hasContent tells whether from-to holds more than the closing tokens of
// the nodes ending at from and the opening tokens of the nodes starting
// after them.
func hasContent(doc *model.Node, from, to int) bool {
	rp, err := doc.Resolve(from)
	if err != nil {
		return true
	}
	left := to - from
	depth := rp.Depth
	// close the nodes ending at from
	for ; left > 0 && depth > 0 && rp.IndexAfter(depth) == rp.Node(depth).ChildCount(); depth-- {
		left--
	}
	// open the first descendants of the next node
	for next := rp.Node(depth).MaybeChild(rp.IndexAfter(depth)); left > 0; left-- {
		if next == nil || next.IsLeaf() {
			return true
		}
		next = next.FirstChild()
	}
	return false
}
