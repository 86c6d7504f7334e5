package transform

import (
	"testing"

	"github.com/gamedesk/richedit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepSpec describes a step on "foobar": "+em" and "-em" add and remove
// italic, other values replace the range with that text.
type stepSpec struct {
	from, to int
	val      string
}

func (s stepSpec) step() Step {
	italic := schema.Marks["italic"].Create(nil)
	switch s.val {
	case "+em":
		return NewAddMarkStep(s.from, s.to, italic)
	case "-em":
		return NewRemoveMarkStep(s.from, s.to, italic)
	case "":
		return NewReplaceStep(s.from, s.to, model.EmptySlice)
	}
	return NewReplaceStep(s.from, s.to, model.NewSlice(model.NewFragment([]*model.Node{schema.Text(s.val)}), 0, 0))
}

func TestStepMerge(t *testing.T) {
	tests := []struct {
		name          string
		first, second stepSpec
		merges        bool
	}{
		{"typing", stepSpec{2, 2, "a"}, stepSpec{3, 3, "b"}, true},
		{"inverse typing", stepSpec{2, 2, "a"}, stepSpec{2, 2, "b"}, true},
		{"separated typing", stepSpec{2, 2, "a"}, stepSpec{4, 4, "b"}, false},
		{"inverted separated typing", stepSpec{3, 3, "a"}, stepSpec{2, 2, "b"}, false},
		{"adjacent backspaces", stepSpec{3, 4, ""}, stepSpec{2, 3, ""}, true},
		{"adjacent deletes", stepSpec{2, 3, ""}, stepSpec{2, 3, ""}, true},
		{"separate backspaces", stepSpec{1, 2, ""}, stepSpec{2, 3, ""}, false},
		{"backspace and type", stepSpec{2, 3, ""}, stepSpec{2, 2, "x"}, true},
		{"longer inserts", stepSpec{2, 2, "quux"}, stepSpec{6, 6, "baz"}, true},
		{"inverted longer inserts", stepSpec{2, 2, "quux"}, stepSpec{2, 2, "baz"}, true},
		{"longer deletes", stepSpec{2, 5, ""}, stepSpec{2, 4, ""}, true},
		{"inverted longer deletes", stepSpec{4, 6, ""}, stepSpec{2, 4, ""}, true},
		{"overwrites", stepSpec{3, 4, "x"}, stepSpec{4, 5, "y"}, true},
		{"adjacent styles", stepSpec{1, 2, "+em"}, stepSpec{2, 4, "+em"}, true},
		{"overlapping styles", stepSpec{1, 3, "+em"}, stepSpec{2, 4, "+em"}, true},
		{"separate styles", stepSpec{1, 2, "+em"}, stepSpec{3, 4, "+em"}, false},
		{"removing adjacent styles", stepSpec{1, 2, "-em"}, stepSpec{2, 4, "-em"}, true},
		{"removing overlapping styles", stepSpec{1, 3, "-em"}, stepSpec{2, 4, "-em"}, true},
		{"removing separate styles", stepSpec{1, 2, "-em"}, stepSpec{3, 4, "-em"}, false},
	}
	start := doc(p("foobar")).Node
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := tt.first.step(), tt.second.step()
			merged, ok := first.Merge(second)
			require.Equal(t, tt.merges, ok)
			if !ok {
				return
			}
			expected := second.Apply(first.Apply(start).Doc).Doc
			assert.True(t, merged.Apply(start).Doc.Eq(expected))
		})
	}
}

func TestSetAttrsStep(t *testing.T) {
	start := doc(p("a", img(map[string]interface{}{"alt": "old"}), "b")).Node
	step := NewSetAttrsStep(2, map[string]interface{}{"alt": "new"})
	result := step.Apply(start)
	require.Empty(t, result.Failed)
	image := result.Doc.NodeAt(2)
	assert.Equal(t, "new", image.Attr("alt"))
	assert.Equal(t, "img.png", image.Attr("src"))
	assert.Same(t, EmptyStepMap, step.GetMap())

	undone := step.Invert(start).Apply(result.Doc)
	require.Empty(t, undone.Failed)
	assert.True(t, undone.Doc.Eq(start))

	merged, ok := step.Merge(NewSetAttrsStep(2, map[string]interface{}{"title": "t"}))
	require.True(t, ok)
	both := merged.Apply(start).Doc.NodeAt(2)
	assert.Equal(t, "new", both.Attr("alt"))
	assert.Equal(t, "t", both.Attr("title"))
	_, ok = step.Merge(NewSetAttrsStep(1, nil))
	assert.False(t, ok)

	assert.NotEmpty(t, NewSetAttrsStep(1, nil).Apply(start).Failed)
	assert.Nil(t, step.Map(NewStepMap([]int{1, 3, 0})))
}
