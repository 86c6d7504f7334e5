package transform

import (
	"github.com/gamedesk/richedit/model"
)

// ReplaceRange replaces the range between from and to with the given slice,
// adjusting the slice's open depths, and splitting the surrounding nodes when
// the slice does not fit as given.
//
// Candidates are tried in order: the slice itself, the slice with its open
// depths lowered to line up with the positions, and finally the closed
// content placed between split halves of the surrounding nodes.
func (tr *Transform) ReplaceRange(from, to int, slice *model.Slice) error {
	if slice == nil || slice.Content.Size == 0 {
		return tr.Delete(from, to)
	}
	dFrom, err := tr.Doc.Resolve(from)
	if err != nil {
		return err
	}
	dTo, err := tr.Doc.Resolve(to)
	if err != nil {
		return err
	}
	var firstErr error
	for _, candidate := range fitCandidates(dFrom, dTo, slice) {
		if _, err := tr.Doc.Replace(from, to, candidate); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return tr.Replace(from, to, candidate)
	}
	return firstErr
}

func fitCandidates(dFrom, dTo *model.ResolvedPos, slice *model.Slice) []*model.Slice {
	candidates := []*model.Slice{slice}
	for openStart := slice.OpenStart; openStart >= 0; openStart-- {
		openEnd := dTo.Depth - (dFrom.Depth - openStart)
		if openEnd < 0 || openEnd > slice.OpenEnd {
			continue
		}
		if openStart == slice.OpenStart && openEnd == slice.OpenEnd {
			continue
		}
		candidates = append(candidates, model.NewSlice(slice.Content, openStart, openEnd))
	}
	if slice.Content.FirstChild() == nil || !slice.Content.FirstChild().IsBlock() {
		return candidates
	}
	shared := min(dFrom.Depth, dTo.Depth)
	for depth := shared; depth >= 1; depth-- {
		left := emptyChain(dFrom, depth)
		right := emptyChain(dTo, depth)
		if left == nil || right == nil {
			continue
		}
		content := model.NewFragment([]*model.Node{left}).
			Append(slice.Content).
			Append(model.NewFragment([]*model.Node{right}))
		candidates = append(candidates, model.NewSlice(content, dFrom.Depth-depth+1, dTo.Depth-depth+1))
	}
	return candidates
}

// emptyChain builds empty copies of the ancestors of pos from the given depth
// down to its parent, nested in each other.
func emptyChain(pos *model.ResolvedPos, depth int) *model.Node {
	var node *model.Node
	for d := pos.Depth; d >= depth; d-- {
		if node == nil {
			node = pos.Node(d).Copy(model.EmptyFragment)
		} else {
			node = pos.Node(d).Copy(model.NewFragment([]*model.Node{node}))
		}
	}
	return node
}
