package model

// DiffEnd is the result of FindDiffEnd: the position of the last difference
// in each fragment.
type DiffEnd struct {
	A int
	B int
}

func commonPrefix(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func commonSuffix(a, b []rune) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-n-1] == b[len(b)-n-1] {
		n++
	}
	return n
}

func findDiffStart(a, b *Fragment, pos int) *int {
	for i := 0; i < a.ChildCount() && i < b.ChildCount(); i++ {
		x, y := a.Content[i], b.Content[i]
		switch {
		case x == y:
		case !x.SameMarkup(y):
			return &pos
		case x.IsText() && *x.Text != *y.Text:
			pos += commonPrefix([]rune(*x.Text), []rune(*y.Text))
			return &pos
		case x.Content.Size > 0 || y.Content.Size > 0:
			if inner := findDiffStart(x.Content, y.Content, pos+1); inner != nil {
				return inner
			}
		}
		pos += x.NodeSize()
	}
	if a.ChildCount() == b.ChildCount() {
		return nil
	}
	return &pos
}

func findDiffEnd(a, b *Fragment, posA, posB int) *DiffEnd {
	ia, ib := a.ChildCount(), b.ChildCount()
	for ia > 0 && ib > 0 {
		ia--
		ib--
		x, y := a.Content[ia], b.Content[ib]
		switch {
		case x == y:
		case !x.SameMarkup(y):
			return &DiffEnd{A: posA, B: posB}
		case x.IsText() && *x.Text != *y.Text:
			same := commonSuffix([]rune(*x.Text), []rune(*y.Text))
			return &DiffEnd{A: posA - same, B: posB - same}
		case x.Content.Size > 0 || y.Content.Size > 0:
			if inner := findDiffEnd(x.Content, y.Content, posA-1, posB-1); inner != nil {
				return inner
			}
		}
		size := x.NodeSize()
		posA -= size
		posB -= size
	}
	if ia == ib {
		return nil
	}
	return &DiffEnd{A: posA, B: posB}
}
