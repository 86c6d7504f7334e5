package transform

import "fmt"

// Mappable maps positions of a document to the same positions after a
// change. assoc (-1 or 1, default 1) picks the side a position sticks to when
// content is inserted right at it.
type Mappable interface {
	Map(pos int, assoc ...int) int
	// MapResult also reports whether the position was deleted. A position
	// next to deleted content only counts as deleted when assoc points
	// into it.
	MapResult(pos int, assoc ...int) *MapResult
}

// MapResult is a mapped position.
type MapResult struct {
	Pos     int
	Deleted bool
}

// StepMap records the ranges changed by a step as triples of start, old
// size and new size. An inverted map maps back from the new document.
type StepMap struct {
	Ranges   []int
	Inverted bool
}

// NewStepMap creates a StepMap from start, old size, new size triples.
func NewStepMap(ranges []int, inverted ...bool) *StepMap {
	return &StepMap{Ranges: ranges, Inverted: len(inverted) > 0 && inverted[0]}
}

// EmptyStepMap maps every position to itself.
var EmptyStepMap = NewStepMap(nil)

// chunk is one changed range seen from the side positions are mapped from.
// diff is what the chunks before it add to positions.
type chunk struct {
	start, oldSize, newSize, diff int
}

func (c chunk) end() int { return c.start + c.oldSize }

// chunks yields the changed ranges in order.
func (sm *StepMap) chunks(yield func(chunk) bool) {
	oldAt, newAt := 1, 2
	if sm.Inverted {
		oldAt, newAt = 2, 1
	}
	diff := 0
	for i := 0; i+2 < len(sm.Ranges); i += 3 {
		c := chunk{start: sm.Ranges[i], oldSize: sm.Ranges[i+oldAt], newSize: sm.Ranges[i+newAt], diff: diff}
		if sm.Inverted {
			c.start -= diff
		}
		if !yield(c) {
			return
		}
		diff += c.newSize - c.oldSize
	}
}

func (sm *StepMap) Map(pos int, assoc ...int) int {
	return sm.MapResult(pos, assoc...).Pos
}

func (sm *StepMap) MapResult(pos int, assoc ...int) *MapResult {
	side := 1
	if len(assoc) > 0 {
		side = assoc[0]
	}
	diff := 0
	for c := range sm.chunks {
		if c.start > pos {
			break
		}
		if pos > c.end() {
			diff = c.diff + c.newSize - c.oldSize
			continue
		}
		// the edges of a replaced range stick to the outside
		stick := side
		if c.oldSize > 0 && pos == c.start {
			stick = -1
		} else if c.oldSize > 0 && pos == c.end() {
			stick = 1
		}
		mapped := c.start + c.diff
		if stick >= 0 {
			mapped += c.newSize
		}
		deleted := pos != c.end()
		if side < 0 {
			deleted = pos != c.start
		}
		return &MapResult{Pos: mapped, Deleted: deleted}
	}
	return &MapResult{Pos: pos + diff}
}

// Touches tells whether pos lies inside or at the edge of a changed range.
func (sm *StepMap) Touches(pos int) bool {
	for c := range sm.chunks {
		if c.start > pos {
			break
		}
		if pos <= c.end() {
			return true
		}
	}
	return false
}

// ForEach calls fn with the old and new bounds of every changed range.
func (sm *StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	for c := range sm.chunks {
		to := c.start + c.diff
		fn(c.start, c.end(), to, to+c.newSize)
	}
}

// Invert returns the map from the new document back to the old one.
func (sm *StepMap) Invert() *StepMap {
	return NewStepMap(sm.Ranges, !sm.Inverted)
}

func (sm *StepMap) String() string {
	if sm.Inverted {
		return fmt.Sprintf("-%v", sm.Ranges)
	}
	return fmt.Sprintf("%v", sm.Ranges)
}

var _ Mappable = &StepMap{}

// Mapping maps through a sequence of step maps.
type Mapping struct {
	Maps []*StepMap
}

func NewMapping(maps ...*StepMap) *Mapping {
	return &Mapping{Maps: maps}
}

// Slice returns the mapping through Maps[from:to]. to defaults to the end.
func (m *Mapping) Slice(from int, to ...int) *Mapping {
	end := len(m.Maps)
	if len(to) > 0 {
		end = to[0]
	}
	return NewMapping(m.Maps[from:end]...)
}

func (m *Mapping) AppendMap(sm *StepMap) {
	m.Maps = append(m.Maps, sm)
}

func (m *Mapping) AppendMapping(other *Mapping) {
	m.Maps = append(m.Maps, other.Maps...)
}

func (m *Mapping) Map(pos int, assoc ...int) int {
	for _, sm := range m.Maps {
		pos = sm.Map(pos, assoc...)
	}
	return pos
}

// MapResult reports the position as deleted when any of the maps deletes
// it.
func (m *Mapping) MapResult(pos int, assoc ...int) *MapResult {
	result := &MapResult{Pos: pos}
	for _, sm := range m.Maps {
		r := sm.MapResult(result.Pos, assoc...)
		result.Pos = r.Pos
		result.Deleted = result.Deleted || r.Deleted
	}
	return result
}

var _ Mappable = &Mapping{}
