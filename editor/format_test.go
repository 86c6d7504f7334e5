package editor

import (
	"testing"

	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
	"github.com/gamedesk/richedit/test/builder"
	"github.com/stretchr/testify/assert"
)

func TestComputeActiveFormats(t *testing.T) {
	check := func(d builder.NodeWithTag, expect ...FormatLabel) {
		t.Helper()
		state := stateOf(d)
		actual := ComputeActiveFormats(state.Doc, state.Selection)
		if len(expect) == 0 {
			assert.Empty(t, actual, "%s", d.Node)
			return
		}
		assert.Equal(t, FormatState(expect), actual, "%s", d.Node)
	}

	// marks over the whole selection
	check(doc(p(strong("<a>one<b>"))), LabelBold, LabelParagraph)

	// marks on part of the selection
	check(doc(p(strong("<a>one"), " two<b>")), LabelParagraph)

	// marks at the caret
	check(doc(p(strong("o<a>ne"))), LabelBold, LabelParagraph)
	check(doc(p(em(strong("x<a>")))), LabelBold, LabelItalic, LabelParagraph)

	// links do not continue after their end
	check(doc(p(a("link<a>"), " x")), LabelParagraph)
	check(doc(p(a("<a>link<b>"))), LabelLink, LabelParagraph)

	// images do not count for marks
	check(doc(p(strong("<a>a"), img(), strong("b<b>"))), LabelBold, LabelParagraph)

	// alignment needs a single value
	check(doc(p(align("<a>ab<b>"))), LabelAlignCenter, LabelParagraph)
	check(doc(p(align("<a>a"), align(attrs{"value": "left"}, "b<b>"))), LabelParagraph)

	// block kinds
	check(doc(h2("<a>x")), LabelH2)
	check(doc(h1("<a>x"), h1("y<b>")), LabelH1)
	check(doc(h1("<a>x"), p("y<b>")))

	// lists and quotes around every block
	check(doc(ul(li(p("<a>a")), li(p("b<b>")))), LabelBulletList, LabelParagraph)
	check(doc(ul(li(p("<a>a"))), p("b<b>")), LabelParagraph)
	check(doc(blockquote(ol(li(p("<a>x"))))), LabelBlockquote, LabelOrderedList, LabelParagraph)
	check(doc(ul(li(p("a"), ol(li(p("<a>b")))))), LabelBulletList, LabelOrderedList, LabelParagraph)
}

func TestComputeActiveFormatsStoredMarks(t *testing.T) {
	d := doc(p(strong("ab<a>")))
	sel := Caret(d.Tag["a"])
	sel.StoredMarks = []*model.Mark{cms.Italic.Create(nil)}
	assert.Equal(t, FormatState{LabelItalic, LabelParagraph}, ComputeActiveFormats(d.Node, sel))
}

func TestComputeActiveFormatsDeterministic(t *testing.T) {
	d := doc(blockquote(p(em("<a>a"), builder.Underline("b"), builder.Strike(strong("c<b>")))))
	state := stateOf(d)
	first := ComputeActiveFormats(state.Doc, state.Selection)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ComputeActiveFormats(state.Doc, state.Selection))
	}
	assert.Equal(t, FormatState{LabelBlockquote, LabelParagraph}, first)
	assert.True(t, first.Has(LabelBlockquote))
	assert.False(t, first.Has(LabelBold))
}

func TestComputeActiveFormatsOutOfRange(t *testing.T) {
	d := doc(p("ab"))
	assert.Empty(t, ComputeActiveFormats(d.Node, Caret(10)))
}
