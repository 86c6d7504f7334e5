package model

import (
	"fmt"
	"slices"
)

// Mark is inline formatting attached to a node: bold, a link, an
// alignment. A node keeps its marks as a set ordered by mark type rank.
type Mark struct {
	Type  *MarkType
	Attrs map[string]interface{}
}

// NoMarks is the empty mark set.
var NoMarks = []*Mark{}

// AddToSet returns set with m added in rank order. Marks that m excludes
// are dropped. The set is returned as is when it holds m already, or a mark
// that excludes m.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	out := make([]*Mark, 0, len(set)+1)
	placed := false
	for _, other := range set {
		switch {
		case m.Eq(other), other.Type.Excludes(m.Type) && !m.Type.Excludes(other.Type):
			return set
		case m.Type.Excludes(other.Type):
			continue
		}
		if !placed && other.Type.Rank > m.Type.Rank {
			out = append(out, m)
			placed = true
		}
		out = append(out, other)
	}
	if !placed {
		out = append(out, m)
	}
	return out
}

// RemoveFromSet returns a copy of set without m, or set itself when m is
// not in it.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	i := slices.IndexFunc(set, m.Eq)
	if i < 0 {
		return set
	}
	return slices.Delete(slices.Clone(set), i, i+1)
}

func (m *Mark) IsInSet(set []*Mark) bool {
	return slices.ContainsFunc(set, m.Eq)
}

// Eq tells whether both marks have the same type and attributes.
func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	return other != nil && m.Type == other.Type && sameAttrs(m.Attrs, other.Attrs)
}

// Attr returns an attribute as a string, or "" when unset.
func (m *Mark) Attr(name string) string {
	return attrString(m.Attrs, name)
}

func (m *Mark) String() string {
	if len(m.Attrs) == 0 {
		return m.Type.Name
	}
	return fmt.Sprintf("%s%v", m.Type.Name, m.Attrs)
}

// SameMarkSet tells whether two mark sets hold equal marks.
func SameMarkSet(a, b []*Mark) bool {
	return slices.EqualFunc(a, b, (*Mark).Eq)
}

// MarkSetFrom sorts marks into a mark set.
func MarkSetFrom(marks []*Mark) []*Mark {
	switch len(marks) {
	case 0:
		return NoMarks
	case 1:
		return marks
	}
	set := slices.Clone(marks)
	slices.SortStableFunc(set, func(a, b *Mark) int { return a.Type.Rank - b.Type.Rank })
	return set
}

func attrString(attrs map[string]interface{}, name string) string {
	switch v := attrs[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
