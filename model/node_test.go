package model_test

import (
	"testing"

	. "github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeString(t *testing.T) {
	tests := []struct {
		node   builder.NodeWithTag
		expect string
	}{
		{doc(ul(li(p("patch"), p()), li(p("notes")))),
			`doc(bullet_list(list_item(paragraph("patch"), paragraph), list_item(paragraph("notes"))))`},
		{doc(p("boss", img, br, "fight")),
			`doc(paragraph("boss", image, hard_break, "fight"))`},
		{doc(p("raid ", em("night", strong("!")), code("/join"))),
			`doc(paragraph("raid ", italic("night"), bold(italic("!")), code("/join")))`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expect, tt.node.String())
	}
}

func TestNodeCut(t *testing.T) {
	tests := []struct {
		name   string
		doc    builder.NodeWithTag
		expect builder.NodeWithTag
	}{
		{"whole block",
			doc(p("intro"), "<a>", p("loot"), "<b>", p("outro")),
			doc(p("loot"))},
		{"inside text",
			doc(p("0"), p("pre<a>loot<b>post"), p("2")),
			doc(p("loot"))},
		{"across levels",
			doc(blockquote(ul(li(p("a"), p("b<a>c")), li(p("d")), "<b>", li(p("e"))), p("3"))),
			doc(blockquote(ul(li(p("c")), li(p("d")))))},
		{"to the end",
			doc(blockquote(p("map<a>pool"))),
			doc(blockquote(p("pool")))},
		{"keeps marks",
			doc(p("gg", em("we<a>ll", img, strong("played"), br), "re<b>match", code("x"))),
			doc(p(em("ll", img, strong("played"), br), "re"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cut *Node
			if b, ok := tt.doc.Tag["b"]; ok {
				cut = tt.doc.Cut(tt.doc.Tag["a"], b)
			} else {
				cut = tt.doc.Cut(tt.doc.Tag["a"])
			}
			assert.True(t, cut.Eq(tt.expect.Node), "%s != %s", cut, tt.expect.Node)
		})
	}

	// no end keeps the start
	d := doc(blockquote(p("map<b>pool")))
	assert.True(t, d.Cut(0, d.Tag["b"]).Eq(doc(blockquote(p("map"))).Node))
}

func TestNodesBetween(t *testing.T) {
	visit := func(d builder.NodeWithTag) []string {
		var seen []string
		d.NodesBetween(d.Tag["a"], d.Tag["b"], func(node *Node, pos int, _ *Node, _ int) bool {
			if node.IsText() {
				seen = append(seen, *node.Text)
				return true
			}
			assert.Same(t, node, d.NodeAt(pos))
			seen = append(seen, node.Type.Name)
			return true
		})
		return seen
	}

	assert.Equal(t, []string{"paragraph", "pregamepost"},
		visit(doc(p("pre<a>game<b>post"))))
	assert.Equal(t, []string{"blockquote", "bullet_list", "list_item", "paragraph", "tank", "paragraph", "h"},
		visit(doc(blockquote(ul(li(p("t<a>ank")), p("h"), "<b>"), p("dps")))))
	assert.Equal(t, []string{"paragraph", "lag", "spike", "image", "fix", "hard_break", "soon", "xyz"},
		visit(doc(p(em("x"), "l<a>ag", em("spike", img, strong("fix"), br), "soon", code("xy<b>z")))))

	// returning false skips the children
	var names []string
	d := doc(blockquote(p("a")), p("b"))
	d.Descendants(func(node *Node, _ int, _ *Node, _ int) bool {
		names = append(names, node.Type.Name)
		return node.Type.Name != "blockquote"
	})
	assert.Equal(t, []string{"blockquote", "paragraph", "text"}, names)
}

func TestNodeTextContent(t *testing.T) {
	assert.Equal(t, "season", doc(p("season")).TextContent())
	assert.Equal(t, "ladder", schema.Text("ladder").TextContent())
	assert.Equal(t, "hiab", doc(ul(li(p("hi")), li(p(em("a"), "b")))).TextContent())
}

func TestNodeTextPositions(t *testing.T) {
	// positions count runes, not bytes
	d := doc(p("héllo<a>"), p("wörld"))
	assert.Equal(t, 6, d.Tag["a"])
	assert.Equal(t, 14, d.Content.Size)
	assert.Equal(t, "llo", d.TextBetween(3, 6))
	assert.True(t, d.Cut(2, 4).Eq(doc(p("él")).Node), d.Cut(2, 4).String())
}

func TestNodeRangeHasMark(t *testing.T) {
	d := doc(p("gg<a>", strong("wp"), "<b>ez"))
	from, to := d.Tag["a"], d.Tag["b"]
	assert.True(t, d.RangeHasMark(from, to, schema.Marks["bold"]))
	assert.True(t, d.RangeHasMark(from, to, strong2))
	assert.False(t, d.RangeHasMark(from, to, em2))
	assert.False(t, d.RangeHasMark(0, from, schema.Marks["bold"]))
	assert.False(t, d.RangeHasMark(to, from, strong2))
}

func TestNodeCheck(t *testing.T) {
	assert.NoError(t, doc(p("fine"), ul(li(p("list")))).Check())

	// a list item must start with a paragraph
	nested, err := schema.Nodes["list_item"].Create(nil, CreateAndFill(schema.Nodes["bullet_list"]), nil)
	require.NoError(t, err)
	assert.Error(t, doc(ul(nested)).Check())

	_, err = schema.Nodes["heading"].CreateChecked(nil, schema.Text("x"), nil)
	assert.NoError(t, err)
	_, err = schema.Nodes["doc"].CreateChecked(nil, schema.Text("x"), nil)
	var contentErr *ContentError
	assert.ErrorAs(t, err, &contentErr)
}

func TestNodeHasMarkup(t *testing.T) {
	heading := doc(h2("Patch 1.2")).FirstChild()
	headingType := schema.Nodes["heading"]
	assert.True(t, heading.HasMarkup(headingType, map[string]interface{}{"level": 2}))
	assert.False(t, heading.HasMarkup(headingType, map[string]interface{}{"level": 1}))
	// nil attributes are the defaults
	assert.True(t, doc(h1("x")).FirstChild().HasMarkup(headingType, nil))
	assert.False(t, heading.HasMarkup(schema.Nodes["paragraph"], nil))
	assert.False(t, heading.HasMarkup(headingType, map[string]interface{}{"level": 2}, []*Mark{strong2}))
}

func TestNodeCanReplace(t *testing.T) {
	d := doc(p("gg"))
	assert.True(t, d.CanReplaceWith(0, 0, schema.Nodes["horizontal_rule"]))
	assert.False(t, d.CanReplaceWith(0, 0, schema.Nodes["list_item"]))
	// the document needs a block
	assert.False(t, d.CanReplace(0, 1))
	assert.True(t, d.CanReplace(0, 1, doc(p("a"), p("b")).Content))

	para := d.FirstChild()
	assert.True(t, para.CanReplaceWith(1, 1, schema.Nodes["image"]))
	assert.False(t, para.CanReplaceWith(1, 1, schema.Nodes["paragraph"]))
}
