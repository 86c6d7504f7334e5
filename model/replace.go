package model

import "fmt"

// ReplaceError is returned by Node.Replace when the slice does not fit the
// replaced range.
type ReplaceError struct {
	Message string
}

// NewReplaceError formats a ReplaceError.
func NewReplaceError(message string, args ...interface{}) *ReplaceError {
	return &ReplaceError{Message: fmt.Sprintf(message, args...)}
}

func (e *ReplaceError) Error() string {
	return e.Message
}

func replace(from, to *ResolvedPos, slice *Slice) (*Node, error) {
	if slice.OpenStart > from.Depth {
		return nil, NewReplaceError("Inserted content deeper than insertion position")
	}
	if from.Depth-slice.OpenStart != to.Depth-slice.OpenEnd {
		return nil, NewReplaceError("Inconsistent open depths")
	}
	return replaceAt(from, to, slice, 0)
}

// replaceAt rebuilds the node at depth. Above the nodes the slice opens
// into, only the shared ancestor is copied.
func replaceAt(from, to *ResolvedPos, slice *Slice, depth int) (*Node, error) {
	node := from.Node(depth)
	index := from.Index(depth)
	switch {
	case index == to.Index(depth) && depth < from.Depth-slice.OpenStart:
		inner, err := replaceAt(from, to, slice, depth+1)
		if err != nil {
			return nil, err
		}
		return node.Copy(node.Content.ReplaceChild(index, inner)), nil

	case slice.Content.Size == 0:
		return rebuild(node, func(l *nodeList) error {
			return l.join(from, to, depth)
		})

	case slice.OpenStart == 0 && slice.OpenEnd == 0 && from.Depth == depth && to.Depth == depth:
		// a closed slice between two positions of the same parent
		content := node.Content.Cut(0, from.ParentOffset).
			Append(slice.Content).
			Append(node.Content.Cut(to.ParentOffset))
		return checkedCopy(node, content)
	}

	start, end, err := sliceBounds(slice, from)
	if err != nil {
		return nil, err
	}
	return rebuild(node, func(l *nodeList) error {
		return l.insert(from, start, end, to, depth)
	})
}

func checkedCopy(node *Node, content *Fragment) (*Node, error) {
	if !node.Type.ValidContent(content) {
		return nil, NewReplaceError("Invalid content for node %s", node.Type.Name)
	}
	return node.Copy(content), nil
}

// rebuild copies node with the children collected by fill.
func rebuild(node *Node, fill func(*nodeList) error) (*Node, error) {
	var children nodeList
	if err := fill(&children); err != nil {
		return nil, err
	}
	return checkedCopy(node, NewFragment(children))
}

// joinable returns the node at depth on the before side, after checking
// that the node on the after side can be joined to it.
func joinable(before, after *ResolvedPos, depth int) (*Node, error) {
	node := before.Node(depth)
	if err := checkJoin(node, after.Node(depth)); err != nil {
		return nil, err
	}
	return node, nil
}

func checkJoin(main, sub *Node) error {
	if !sub.Type.compatibleContent(main.Type) {
		return NewReplaceError("Cannot join %s onto %s", sub.Type.Name, main.Type.Name)
	}
	return nil
}

// nodeList collects the children of a rebuilt node. Adjacent text nodes
// with the same marks are merged.
type nodeList []*Node

func (l *nodeList) add(child *Node) {
	if n := len(*l); n > 0 && child.IsText() && child.SameMarkup((*l)[n-1]) {
		(*l)[n-1] = child.WithText(*(*l)[n-1].Text + *child.Text)
		return
	}
	*l = append(*l, child)
}

// addRange adds the children of the node at depth lying between start and
// end. A nil start is the beginning of the node, a nil end its end. Text
// cut by either position is added in part.
func (l *nodeList) addRange(start, end *ResolvedPos, depth int) error {
	var node *Node
	endIndex := 0
	if end != nil {
		node = end.Node(depth)
		endIndex = end.Index(depth)
	} else {
		node = start.Node(depth)
		endIndex = node.ChildCount()
	}

	startIndex := 0
	if start != nil {
		startIndex = start.Index(depth) + 1
		switch {
		case start.Depth > depth:
			// the child at the index is rebuilt by the caller
		case start.TextOffset() != 0:
			after, err := start.NodeAfter()
			if err != nil {
				return err
			}
			l.add(after)
		default:
			startIndex--
		}
	}
	for i := startIndex; i < endIndex; i++ {
		child, err := node.Child(i)
		if err != nil {
			return err
		}
		l.add(child)
	}
	if end != nil && end.Depth == depth && end.TextOffset() != 0 {
		before, err := end.NodeBefore()
		if err != nil {
			return err
		}
		l.add(before)
	}
	return nil
}

// addOpen rebuilds the open node at depth+1 with fill and adds it.
func (l *nodeList) addOpen(node *Node, fill func(*nodeList) error) error {
	child, err := rebuild(node, fill)
	if err != nil {
		return err
	}
	l.add(child)
	return nil
}

// join adds the content of the node at depth before from and after to,
// joining the nodes cut by both positions.
func (l *nodeList) join(from, to *ResolvedPos, depth int) error {
	if err := l.addRange(nil, from, depth); err != nil {
		return err
	}
	if from.Depth > depth {
		open, err := joinable(from, to, depth+1)
		if err != nil {
			return err
		}
		err = l.addOpen(open, func(inner *nodeList) error {
			return inner.join(from, to, depth+1)
		})
		if err != nil {
			return err
		}
	}
	return l.addRange(to, nil, depth)
}

// insert adds the content of the node at depth with start-end, positions
// in the prepared slice, put between from and to.
func (l *nodeList) insert(from, start, end, to *ResolvedPos, depth int) error {
	var openStart, openEnd *Node
	var err error
	if from.Depth > depth {
		if openStart, err = joinable(from, start, depth+1); err != nil {
			return err
		}
	}
	if to.Depth > depth {
		if openEnd, err = joinable(end, to, depth+1); err != nil {
			return err
		}
	}

	if err := l.addRange(nil, from, depth); err != nil {
		return err
	}
	if openStart != nil && openEnd != nil && start.Index(depth) == end.Index(depth) {
		// both sides of the slice open into the same node
		if err := checkJoin(openStart, openEnd); err != nil {
			return err
		}
		err = l.addOpen(openStart, func(inner *nodeList) error {
			return inner.insert(from, start, end, to, depth+1)
		})
		if err != nil {
			return err
		}
		return l.addRange(to, nil, depth)
	}

	if openStart != nil {
		err = l.addOpen(openStart, func(inner *nodeList) error {
			return inner.join(from, start, depth+1)
		})
		if err != nil {
			return err
		}
	}
	if err := l.addRange(start, end, depth); err != nil {
		return err
	}
	if openEnd != nil {
		err = l.addOpen(openEnd, func(inner *nodeList) error {
			return inner.join(end, to, depth+1)
		})
		if err != nil {
			return err
		}
	}
	return l.addRange(to, nil, depth)
}

// sliceBounds places the slice content inside copies of the ancestors of
// along, so that it can be resolved at the same depths, and returns the
// positions of its start and end.
func sliceBounds(slice *Slice, along *ResolvedPos) (*ResolvedPos, *ResolvedPos, error) {
	extra := along.Depth - slice.OpenStart
	node := along.Node(extra).Copy(slice.Content)
	for d := extra - 1; d >= 0; d-- {
		node = along.Node(d).Copy(NewFragment([]*Node{node}))
	}
	start, err := node.resolveNoCache(slice.OpenStart + extra)
	if err != nil {
		return nil, nil, err
	}
	end, err := node.resolveNoCache(node.Content.Size - slice.OpenEnd - extra)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
