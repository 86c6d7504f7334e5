package transform

import (
	"testing"

	"github.com/gamedesk/richedit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textSlice(text string) *model.Slice {
	if text == "" {
		return model.EmptySlice
	}
	return model.NewSlice(model.NewFragment([]*model.Node{schema.Text(text)}), 0, 0)
}

func TestReplaceAround(t *testing.T) {
	start := doc(p("Patch notes 1.2")).Node
	wrapper := model.NewSlice(model.NewFragment([]*model.Node{h1().Node}), 0, 0)
	step := NewReplaceAroundStep(0, 17, 1, 16, wrapper, 1, true)

	result := step.Apply(start)
	require.Empty(t, result.Failed)
	assert.True(t, result.Doc.Eq(doc(h1("Patch notes 1.2")).Node))

	undone := step.Invert(start).Apply(result.Doc)
	require.Empty(t, undone.Failed)
	assert.True(t, undone.Doc.Eq(start))
}

func TestStructureReplace(t *testing.T) {
	start := doc(p("ab"), p("cd")).Node
	// only the boundary between the paragraphs
	assert.Empty(t, NewReplaceStep(3, 5, model.EmptySlice, true).Apply(start).Failed)
	assert.NotEmpty(t, NewReplaceStep(2, 5, model.EmptySlice, true).Apply(start).Failed)
}

func TestReplaceTwice(t *testing.T) {
	tests := []struct {
		name   string
		first  stepSpec
		after  string
		second stepSpec
		final  string
	}{
		{"double backspace", stepSpec{6, 7, ""}, "Numér", stepSpec{5, 6, ""}, "Numé"},
		{"emoji count as one position", stepSpec{2, 2, "👥"}, "N👥uméro", stepSpec{3, 3, "🔎"}, "N👥🔎uméro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			textOf := func(d *model.Node) string {
				return d.FirstChild().TextContent()
			}
			result := NewReplaceStep(tt.first.from, tt.first.to, textSlice(tt.first.val)).Apply(doc(p("Numéro")).Node)
			require.Empty(t, result.Failed)
			assert.Equal(t, tt.after, textOf(result.Doc))

			result = NewReplaceStep(tt.second.from, tt.second.to, textSlice(tt.second.val)).Apply(result.Doc)
			require.Empty(t, result.Failed)
			assert.Equal(t, tt.final, textOf(result.Doc))
		})
	}
}
