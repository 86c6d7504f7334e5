package markdown

import (
	"testing"

	"github.com/gamedesk/richedit/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
)

var (
	schema     = builder.Schema
	doc        = builder.Doc
	blockquote = builder.Blockquote
	p          = builder.P
	h1         = builder.H1
	h2         = builder.H2
	h3         = builder.H3
	hr         = builder.Hr
	li         = builder.Li
	ol         = builder.Ol
	ul         = builder.Ul
	a          = builder.A
	br         = builder.Br
	img        = builder.Img
	em         = builder.Italic
	strong     = builder.Bold
	u          = builder.Underline
	strike     = builder.Strike
	code       = builder.Code
	align      = builder.Align
)

type attrs = map[string]interface{}

func parseDoc(t *testing.T, text string) builder.NodeWithTag {
	t.Helper()
	actual, err := ParseMarkdown(NewParser(), DefaultNodeMapper, []byte(text), schema)
	require.NoError(t, err)
	require.NoError(t, actual.Check())
	return builder.NodeWithTag{Node: actual}
}

type mdCase struct {
	name string
	md   string
	doc  builder.NodeWithTag
}

func TestMarkdownRoundTrip(t *testing.T) {
	tests := []mdCase{
		{"paragraph", "gg!", doc(p("gg!"))},
		{"headings", "# Patch notes\n\n## Balance\n\nchanges", doc(h1("Patch notes"), h2("Balance"), p("changes"))},
		{"blockquotes", "> once\n\n> > twice", doc(blockquote(p("once")), blockquote(blockquote(p("twice"))))},
		{"bullet list", "* tank\n\n  * warrior\n\n  * paladin\n\n* healer",
			doc(ul(li(p("tank"), ul(li(p("warrior")), li(p("paladin")))), li(p("healer"))))},
		{"ordered list start", "3. Bronze\n\n4. Silver", doc(ol(attrs{"order": 3}, li(p("Bronze")), li(p("Silver"))))},
		{"inline marks", "Buffs: *haste* now, **double XP** weekend, and `/reload`",
			doc(p("Buffs: ", em("haste"), " now, ", strong("double XP"), " weekend, and ", code("/reload")))},
		{"strikethrough", "Some ~~nerfed~~ items", doc(p("Some ", strike("nerfed"), " items"))},
		{"hard break", "line\\\nbreak", doc(p("line", br(), "break"))},
		{"link", "Read the [notes](foo) today", doc(p("Read the ", a("notes"), " today"))},
		{"autolink", "See <https://example.com>",
			doc(p("See ", a(attrs{"href": "https://example.com"}, "https://example.com")))},
		{"underscores in link", "[wiki](http://foo.com/a_b_c)", doc(p(a(attrs{"href": "http://foo.com/a_b_c"}, "wiki")))},
		{"image", "New map: ![x](img.png)", doc(p("New map: ", img(attrs{"alt": "x"})))},
		{"image title", `![x](img.png "the title")`, doc(p(img(attrs{"alt": "x", "title": "the title"})))},
		{"horizontal rule", "part one\n\n---\n\npart two", doc(p("part one"), hr(), p("part two"))},
		{"escaped emphasis", "Loot \\*drop", doc(p("Loot *drop"))},
		{"escaped list marker", "1\\. first", doc(p("1. first"))},
		{"code is not escaped", "cmd`*`", doc(p("cmd", code("*")))},
		{"inner underscores", "player_one", doc(p("player_one"))},
		{"outer underscores", "\\_afk\\_", doc(p("_afk_"))},
		{"list marker in list", "* 1\\. hi\n\n* x", doc(ul(li(p("1. hi")), li(p("x"))))},
		{"break after mark", "**MVP**\\\nnext", doc(p(strong("MVP"), br(), "next"))},
		{"underline as html", "some <u>underlined</u> text", doc(p("some ", u("underlined"), " text"))},
		{"backticks in code", "``` one backtick: ` two backticks: `` ```", doc(p(code("one backtick: ` two backticks: ``")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := parseDoc(t, tt.md)
			assert.True(t, parsed.Eq(tt.doc.Node), "%s != %s", parsed, tt.doc)
			assert.Equal(t, tt.md, DefaultSerializer.Serialize(tt.doc.Node))
		})
	}
}

func TestMarkdownParse(t *testing.T) {
	tests := []mdCase{
		{"no escapes in url", "[text](https://example.com/_file/#~anchor)",
			doc(p(a(attrs{"href": "https://example.com/_file/#~anchor"}, "text")))},
		{"soft breaks", "one\ntwo", doc(p("one two"))},
		{"entities", "caf&eacute; &amp; &#35;1", doc(p("café & #1"))},
		{"html blocks dropped", "<div>\nhidden\n</div>\n\nshown", doc(p("shown"))},
		{"deep headings lowered", "#### deep", doc(h3("deep"))},
		{"code block as code text", "```\nfirst\nsecond\n```", doc(p(code("first"), br(), code("second")))},
		{"empty document", "", doc(p())},
		{"list item starts with a paragraph", "* * nested", doc(ul(li(p(), ul(li(p("nested"))))))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := parseDoc(t, tt.md)
			assert.True(t, parsed.Eq(tt.doc.Node), "%s != %s", parsed, tt.doc)
		})
	}
}

func TestMarkdownSerialize(t *testing.T) {
	tests := []mdCase{
		{"trailing breaks dropped", "a", doc(p("a", br(), br()))},
		{"whitespace expelled from marks", "Some emphasized text with  ***whitespace***   surrounding the emphasis.",
			doc(p("Some emphasized text with", strong(em("  whitespace   ")), "surrounding the emphasis."))},
		{"whitespace-only mark dropped", "Text with an emphasized space",
			doc(p("Text with", em(" "), "an emphasized space"))},
		{"bang before link", "\\![text](foo)", doc(p("!", a("text")))},
		{"closing paren in href", "[link](foo\\):)", doc(p(a(attrs{"href": "foo):"}, "link")))},
		{"opening paren in href", "[link](\\(foo)", doc(p(a(attrs{"href": "(foo"}, "link")))},
		{"closing paren in src", "![x](foo\\):)", doc(p(img(attrs{"src": "foo):", "alt": "x"})))},
		{"opening paren in src", "![x](\\(foo)", doc(p(img(attrs{"src": "(foo", "alt": "x"})))},
		{"alignment dropped", "centered", doc(p(align("centered")))},
		{"link target dropped", "[out](foo)", doc(p(a(attrs{"target": "_blank"}, "out")))},
		{"whitespace code", "Three spaces: `   `", doc(p("Three spaces: ", code("   ")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.md, DefaultSerializer.Serialize(tt.doc.Node))
		})
	}
}

func TestHeadingMapper(t *testing.T) {
	mapper := DefaultNodeMapper.With(ast.KindHeading, HeadingMapper(2))
	actual, err := ParseMarkdown(NewParser(), mapper, []byte("# one\n\n### three"), schema)
	require.NoError(t, err)
	expected := doc(h1("one"), h2("three"))
	assert.True(t, actual.Eq(expected.Node), "%s != %s", actual.String(), expected.String())

	// The default mapper is left untouched
	actual, err = ParseMarkdown(NewParser(), DefaultNodeMapper, []byte("### three"), schema)
	require.NoError(t, err)
	assert.True(t, actual.Eq(doc(h3("three")).Node))
}
