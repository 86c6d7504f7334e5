package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gamedesk/richedit/model"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// NodeMapperFunc turns a node of the goldmark AST into document content,
// using the methods of the parser state. It is called when the walk enters
// and when it leaves the node.
type NodeMapperFunc func(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error)

// NodeMapper maps the kinds of the goldmark AST to the functions handling
// them. Nodes of a kind that is not in the mapper are skipped, but their
// children are still visited.
type NodeMapper map[ast.NodeKind]NodeMapperFunc

// With returns a copy of the mapper where kind is handled by fn.
func (m NodeMapper) With(kind ast.NodeKind, fn NodeMapperFunc) NodeMapper {
	result := make(NodeMapper, len(m)+1)
	for k, v := range m {
		result[k] = v
	}
	result[kind] = fn
	return result
}

// NewParser returns a goldmark parser with the extensions that the post
// schema can represent.
func NewParser() parser.Parser {
	return goldmark.New(goldmark.WithExtensions(extension.Strikethrough)).Parser()
}

// ParseMarkdown parses source with p and builds a document of the schema by
// walking the resulting AST with mapper.
func ParseMarkdown(p parser.Parser, mapper NodeMapper, source []byte, schema *model.Schema) (*model.Node, error) {
	root := p.Parse(text.NewReader(source))
	state := &ParserState{Schema: schema, Source: source, marks: model.NoMarks}
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		fn, ok := mapper[n.Kind()]
		if !ok {
			return ast.WalkContinue, nil
		}
		return fn(state, n, entering)
	})
	if err != nil {
		return nil, err
	}
	if len(state.stack) != 0 || state.doc == nil {
		return nil, fmt.Errorf("markdown: unbalanced document, %d nodes left open", len(state.stack))
	}
	return state.doc, nil
}

type openNode struct {
	typ     *model.NodeType
	attrs   map[string]interface{}
	content []*model.Node
}

// ParserState holds the nodes being built while walking a goldmark AST.
type ParserState struct {
	Schema *model.Schema
	Source []byte

	stack []*openNode
	marks []*model.Mark
	doc   *model.Node
}

func (s *ParserState) top() *openNode {
	return s.stack[len(s.stack)-1]
}

// OpenNode starts a node of the given type. Its content is added until the
// matching CloseNode.
func (s *ParserState) OpenNode(typ *model.NodeType, attrs map[string]interface{}) {
	s.stack = append(s.stack, &openNode{typ: typ, attrs: attrs})
}

// CloseNode finishes the innermost open node and adds it to its parent. The
// finished node is returned. Closing the outermost node ends the document.
func (s *ParserState) CloseNode() (*model.Node, error) {
	if len(s.stack) == 0 {
		return nil, fmt.Errorf("markdown: no open node")
	}
	info := s.top()
	s.stack = s.stack[:len(s.stack)-1]
	s.marks = model.NoMarks
	node, err := createFilled(info.typ, info.attrs, info.content)
	if err != nil {
		return nil, err
	}
	if len(s.stack) > 0 {
		s.push(node)
	} else {
		s.doc = node
	}
	return node, nil
}

// createFilled creates a node, putting a default node in front of the content
// when the content expression requires one, like the paragraph that starts a
// list item.
func createFilled(typ *model.NodeType, attrs map[string]interface{}, content []*model.Node) (*model.Node, error) {
	node, err := typ.CreateChecked(attrs, content, nil)
	if err == nil {
		return node, nil
	}
	first := typ.ContentMatch.DefaultType()
	if first == nil {
		return nil, err
	}
	filler := model.CreateAndFill(first)
	if filler == nil {
		return nil, err
	}
	return typ.CreateChecked(attrs, append([]*model.Node{filler}, content...), nil)
}

// AddNode adds a leaf or a complete node to the innermost open node. Only
// text carries the current marks.
func (s *ParserState) AddNode(typ *model.NodeType, attrs map[string]interface{}, content ...*model.Node) error {
	node, err := typ.Create(attrs, content, nil)
	if err != nil {
		return err
	}
	s.push(node)
	return nil
}

func (s *ParserState) push(node *model.Node) {
	if len(s.stack) == 0 {
		return
	}
	top := s.top()
	top.content = append(top.content, node)
}

// AddText adds text with the current marks, merging it with the previous
// text node when they carry the same marks.
func (s *ParserState) AddText(str string) {
	if str == "" {
		return
	}
	top := s.top()
	if n := len(top.content); n > 0 {
		last := top.content[n-1]
		if last.IsText() && model.SameMarkSet(last.Marks, s.marks) {
			top.content[n-1] = last.WithText(*last.Text + str)
			return
		}
	}
	top.content = append(top.content, s.Schema.Text(str, s.marks))
}

// OpenMark adds a mark to the set applied to the following text.
func (s *ParserState) OpenMark(mark *model.Mark) {
	s.marks = mark.AddToSet(s.marks)
}

// CloseMark removes a mark type from the set applied to the following text.
func (s *ParserState) CloseMark(typ *model.MarkType) {
	s.marks = typ.RemoveFromSet(s.marks)
}

func (s *ParserState) nodeType(name string) (*model.NodeType, error) {
	typ := s.Schema.Nodes[name]
	if typ == nil {
		return nil, fmt.Errorf("markdown: schema has no %s node", name)
	}
	return typ, nil
}

func (s *ParserState) markType(name string) (*model.MarkType, error) {
	typ := s.Schema.Marks[name]
	if typ == nil {
		return nil, fmt.Errorf("markdown: schema has no %s mark", name)
	}
	return typ, nil
}

// inlineText returns the text content of the inline children of n, with
// escapes and entities resolved.
func (s *ParserState) inlineText(n ast.Node) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := child.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(s.Source))
		}
		return ast.WalkContinue, nil
	})
	return unescape(buf.Bytes())
}

func unescape(value []byte) string {
	value = util.UnescapePunctuations(value)
	value = util.ResolveNumericReferences(value)
	value = util.ResolveEntityNames(value)
	return string(value)
}

func blockMapper(name string, attrs func(ast.Node) map[string]interface{}) NodeMapperFunc {
	return func(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			_, err := state.CloseNode()
			return ast.WalkContinue, err
		}
		typ, err := state.nodeType(name)
		if err != nil {
			return ast.WalkStop, err
		}
		var a map[string]interface{}
		if attrs != nil {
			a = attrs(node)
		}
		state.OpenNode(typ, a)
		return ast.WalkContinue, nil
	}
}

func markMapper(name string, attrs func(*ParserState, ast.Node) map[string]interface{}) NodeMapperFunc {
	return func(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
		typ, err := state.markType(name)
		if err != nil {
			return ast.WalkStop, err
		}
		if !entering {
			state.CloseMark(typ)
			return ast.WalkContinue, nil
		}
		var a map[string]interface{}
		if attrs != nil {
			a = attrs(state, node)
		}
		state.OpenMark(typ.Create(a))
		return ast.WalkContinue, nil
	}
}

// HeadingMapper maps headings, lowering the ones deeper than maxLevel to
// maxLevel.
func HeadingMapper(maxLevel int) NodeMapperFunc {
	return blockMapper("heading", func(n ast.Node) map[string]interface{} {
		level := n.(*ast.Heading).Level
		if level > maxLevel {
			level = maxLevel
		}
		return map[string]interface{}{"level": level}
	})
}

func mapText(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	t := node.(*ast.Text)
	value := t.Segment.Value(state.Source)
	if t.IsRaw() {
		state.AddText(string(value))
	} else {
		state.AddText(unescape(value))
	}
	switch {
	case t.HardLineBreak():
		typ, err := state.nodeType("hard_break")
		if err != nil {
			return ast.WalkStop, err
		}
		if err := state.AddNode(typ, nil); err != nil {
			return ast.WalkStop, err
		}
	case t.SoftLineBreak():
		state.AddText(" ")
	}
	return ast.WalkContinue, nil
}

func mapCodeSpan(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	typ, err := state.markType("code")
	if err != nil {
		return ast.WalkStop, err
	}
	var buf bytes.Buffer
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(bytes.ReplaceAll(t.Segment.Value(state.Source), []byte("\n"), []byte(" ")))
		}
	}
	state.OpenMark(typ.Create(nil))
	state.AddText(buf.String())
	state.CloseMark(typ)
	return ast.WalkSkipChildren, nil
}

// mapCodeBlock keeps the lines of a code block as a paragraph of code text
// separated by hard breaks.
func mapCodeBlock(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	paragraph, err := state.nodeType("paragraph")
	if err != nil {
		return ast.WalkStop, err
	}
	code, err := state.markType("code")
	if err != nil {
		return ast.WalkStop, err
	}
	br, err := state.nodeType("hard_break")
	if err != nil {
		return ast.WalkStop, err
	}
	state.OpenNode(paragraph, nil)
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		if i > 0 {
			if err := state.AddNode(br, nil); err != nil {
				return ast.WalkStop, err
			}
		}
		state.OpenMark(code.Create(nil))
		state.AddText(strings.TrimRight(string(line.Value(state.Source)), "\r\n"))
		state.CloseMark(code)
	}
	if _, err := state.CloseNode(); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}

func mapImage(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	img := node.(*ast.Image)
	typ, err := state.nodeType("image")
	if err != nil {
		return ast.WalkStop, err
	}
	attrs := map[string]interface{}{
		"src":   unescape(img.Destination),
		"alt":   state.inlineText(img),
		"title": unescape(img.Title),
	}
	if err := state.AddNode(typ, attrs); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}

func mapAutoLink(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	link := node.(*ast.AutoLink)
	typ, err := state.markType("link")
	if err != nil {
		return ast.WalkStop, err
	}
	state.OpenMark(typ.Create(map[string]interface{}{"href": string(link.URL(state.Source))}))
	state.AddText(string(link.Label(state.Source)))
	state.CloseMark(typ)
	return ast.WalkSkipChildren, nil
}

// mapRawHTML understands the inline HTML the serializer writes: <u> and </u>
// toggle the underline mark, <br> is a hard break. Other tags are dropped.
func mapRawHTML(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	raw := node.(*ast.RawHTML)
	tag := strings.ToLower(strings.TrimSpace(string(raw.Segments.Value(state.Source))))
	switch tag {
	case "<u>", "</u>":
		typ, err := state.markType("underline")
		if err != nil {
			return ast.WalkStop, err
		}
		if tag == "<u>" {
			state.OpenMark(typ.Create(nil))
		} else {
			state.CloseMark(typ)
		}
	case "<br>", "<br/>", "<br />":
		typ, err := state.nodeType("hard_break")
		if err != nil {
			return ast.WalkStop, err
		}
		if err := state.AddNode(typ, nil); err != nil {
			return ast.WalkStop, err
		}
	}
	return ast.WalkSkipChildren, nil
}

func skip(*ParserState, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkSkipChildren, nil
}

// DefaultNodeMapper maps CommonMark, plus strikethrough, to the post schema.
// Headings deeper than level 3 become level 3 headings and HTML blocks are
// dropped.
var DefaultNodeMapper = NodeMapper{
	ast.KindDocument:   blockMapper("doc", nil),
	ast.KindParagraph:  blockMapper("paragraph", nil),
	ast.KindTextBlock:  blockMapper("paragraph", nil),
	ast.KindHeading:    HeadingMapper(3),
	ast.KindBlockquote: blockMapper("blockquote", nil),
	ast.KindList: func(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
		list := node.(*ast.List)
		if list.IsOrdered() {
			return blockMapper("ordered_list", func(ast.Node) map[string]interface{} {
				return map[string]interface{}{"order": list.Start}
			})(state, node, entering)
		}
		return blockMapper("bullet_list", nil)(state, node, entering)
	},
	ast.KindListItem: blockMapper("list_item", nil),
	ast.KindThematicBreak: func(state *ParserState, _ ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		typ, err := state.nodeType("horizontal_rule")
		if err != nil {
			return ast.WalkStop, err
		}
		return ast.WalkSkipChildren, state.AddNode(typ, nil)
	},
	ast.KindCodeBlock:       mapCodeBlock,
	ast.KindFencedCodeBlock: mapCodeBlock,
	ast.KindHTMLBlock:       skip,
	ast.KindText:            mapText,
	ast.KindString: func(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			state.AddText(string(node.(*ast.String).Value))
		}
		return ast.WalkContinue, nil
	},
	ast.KindEmphasis: func(state *ParserState, node ast.Node, entering bool) (ast.WalkStatus, error) {
		if node.(*ast.Emphasis).Level >= 2 {
			return markMapper("bold", nil)(state, node, entering)
		}
		return markMapper("italic", nil)(state, node, entering)
	},
	extast.KindStrikethrough: markMapper("strike", nil),
	ast.KindCodeSpan:         mapCodeSpan,
	ast.KindLink: markMapper("link", func(_ *ParserState, n ast.Node) map[string]interface{} {
		return map[string]interface{}{"href": unescape(n.(*ast.Link).Destination)}
	}),
	ast.KindAutoLink: mapAutoLink,
	ast.KindImage:    mapImage,
	ast.KindRawHTML:  mapRawHTML,
}
