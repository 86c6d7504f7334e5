package model

import (
	"errors"
	"fmt"
)

// Slice is a piece cut out of a document: a fragment, with the depth to
// which the nodes on each side are open (cut through).
type Slice struct {
	Content   *Fragment
	OpenStart int
	OpenEnd   int
}

// NewSlice creates a slice. An open side needs nodes at least that deep on
// that side of the fragment. Open nodes only need to be a valid start, end
// or middle of their type's content.
func NewSlice(content *Fragment, openStart, openEnd int) *Slice {
	return &Slice{Content: content, OpenStart: openStart, OpenEnd: openEnd}
}

// EmptySlice inserts nothing.
var EmptySlice = NewSlice(EmptyFragment, 0, 0)

// Size is the size the slice adds when inserted into a document.
func (s *Slice) Size() int {
	return s.Content.Size - s.OpenStart - s.OpenEnd
}

// Eq tells whether two slices have the same content and open depths.
func (s *Slice) Eq(other *Slice) bool {
	return s.OpenStart == other.OpenStart && s.OpenEnd == other.OpenEnd && s.Content.Eq(other.Content)
}

func (s *Slice) String() string {
	return fmt.Sprintf("%s(%d,%d)", s.Content, s.OpenStart, s.OpenEnd)
}

// MaxOpen makes a slice of the fragment, open as deep as its first and
// last nodes allow.
func MaxOpen(fragment *Fragment) *Slice {
	depth := func(next func(*Node) *Node, n *Node) int {
		d := 0
		for ; n != nil && !n.IsLeaf() && !n.IsText(); n = next(n) {
			d++
		}
		return d
	}
	return NewSlice(fragment,
		depth((*Node).FirstChild, fragment.FirstChild()),
		depth((*Node).LastChild, fragment.LastChild()))
}

// InsertAt inserts a fragment at a position of the slice. It returns nil
// when the fragment does not fit there.
func (s *Slice) InsertAt(pos int, fragment *Fragment) *Slice {
	content, err := insertInto(s.Content, pos+s.OpenStart, fragment, nil)
	if err != nil || content == nil {
		return nil
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd)
}

// RemoveBetween removes the content between two positions of the slice.
func (s *Slice) RemoveBetween(from, to int) (*Slice, error) {
	content, err := removeRange(s.Content, from+s.OpenStart, to+s.OpenStart)
	if err != nil {
		return nil, err
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd), nil
}

var errNonFlat = errors.New("removing non-flat range")

// removeRange cuts from-to out of content. The range must not cross node
// boundaries, except inside text.
func removeRange(content *Fragment, from, to int) (*Fragment, error) {
	index, offset, err := content.findIndex(from)
	if err != nil {
		return nil, err
	}
	indexTo, offsetTo, err := content.findIndex(to)
	if err != nil {
		return nil, err
	}
	if child := content.MaybeChild(index); offset != from && !child.IsText() {
		if index != indexTo {
			return nil, errNonFlat
		}
		inner, err := removeRange(child.Content, from-offset-1, to-offset-1)
		if err != nil {
			return nil, err
		}
		return content.ReplaceChild(index, child.Copy(inner)), nil
	}
	if offsetTo != to {
		if last := content.MaybeChild(indexTo); last == nil || !last.IsText() {
			return nil, errNonFlat
		}
	}
	return content.Cut(0, from).Append(content.Cut(to)), nil
}

// insertInto inserts a fragment at dist in content. With a parent, it
// returns nil when the parent can not hold the result.
func insertInto(content *Fragment, dist int, insert *Fragment, parent *Node) (*Fragment, error) {
	index, offset, err := content.findIndex(dist)
	if err != nil {
		return nil, err
	}
	if child := content.MaybeChild(index); offset != dist && !child.IsText() {
		inner, err := insertInto(child.Content, dist-offset-1, insert, nil)
		if err != nil || inner == nil {
			return nil, err
		}
		return content.ReplaceChild(index, child.Copy(inner)), nil
	}
	if parent != nil && !parent.CanReplace(index, index, insert) {
		return nil, nil
	}
	return content.Cut(0, dist).Append(insert).Append(content.Cut(dist)), nil
}
