package model

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseRule describes how a DOM element maps to a node or a mark.
type ParseRule struct {
	// The tag name to match, lowercase.
	Tag string
	// A CSS property the element's style attribute must set, like
	// "text-align". Empty when the rule does not look at styles.
	Style string
	// Computes the attributes of the node or mark from the element. When it
	// returns false, the rule does not match.
	GetAttrs func(el *html.Node) (map[string]interface{}, bool)
	// Lenient rules are only used by lenient parsing, for elements that can
	// only be mapped by approximating them.
	Lenient bool
}

func (r *ParseRule) match(el *html.Node, strict bool) (map[string]interface{}, bool) {
	if r.Lenient && strict {
		return nil, false
	}
	if r.Tag != "" && r.Tag != el.Data {
		return nil, false
	}
	if r.Style != "" && StyleValue(el, r.Style) == "" {
		return nil, false
	}
	if r.GetAttrs == nil {
		return nil, true
	}
	return r.GetAttrs(el)
}

// ParseError is returned when raw markup can not be turned into a document.
type ParseError struct {
	// Byte offset in the markup of the offending token, or -1 when unknown.
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Offset < 0 {
		return "parse error: " + e.Message
	}
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

func newParseError(offset int, format string, args ...interface{}) *ParseError {
	return &ParseError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// ParseMode selects how forgiving a DOMParser is.
type ParseMode int

const (
	// ParseLenient drops or approximates whatever the schema can not
	// represent. It is used for pasted content.
	ParseLenient ParseMode = iota
	// ParseStrict rejects markup that is not well formed, and markup that
	// would lose content when turned into a document.
	ParseStrict
)

// A DOMParser turns HTML into documents, using the parse rules of a schema.
type DOMParser struct {
	Schema    *Schema
	nodeRules []nodeRule
	markRules []markRule
}

type nodeRule struct {
	rule *ParseRule
	typ  *NodeType
}

type markRule struct {
	rule *ParseRule
	typ  *MarkType
}

// DOMParserFromSchema builds a parser from the ParseDOM rules of the schema's
// node and mark specs. Rules are tried in schema order.
func DOMParserFromSchema(schema *Schema) *DOMParser {
	p := &DOMParser{Schema: schema}
	for _, typ := range schema.nodeList() {
		for _, rule := range typ.Spec.ParseDOM {
			p.nodeRules = append(p.nodeRules, nodeRule{rule: rule, typ: typ})
		}
	}
	for _, typ := range schema.markList() {
		for _, rule := range typ.Spec.ParseDOM {
			p.markRules = append(p.markRules, markRule{rule: rule, typ: typ})
		}
	}
	return p
}

// Parse parses raw HTML into a document of the schema's top node type.
func (p *DOMParser) Parse(raw string, mode ParseMode) (*Node, error) {
	strict := mode == ParseStrict
	if strict {
		if err := CheckWellFormed(raw); err != nil {
			return nil, err
		}
	}
	nodes, err := html.ParseFragment(strings.NewReader(raw), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, &ParseError{Offset: -1, Message: err.Error()}
	}
	st := &parseState{parser: p, strict: strict}
	st.stack = []*parseContext{{typ: p.Schema.TopNodeType, solid: true}}
	for _, n := range nodes {
		if err := st.addDOM(n); err != nil {
			return nil, err
		}
	}
	for len(st.stack) > 1 {
		if err := st.closeContext(); err != nil {
			return nil, err
		}
	}
	top := st.stack[0]
	content, ok := fillContent(top.typ, top.content)
	if !ok {
		return nil, newParseError(-1, "invalid content for %s", top.typ.Name)
	}
	doc, err := top.typ.Create(nil, NewFragment(content), nil)
	if err != nil {
		return nil, err
	}
	if err := doc.Check(); err != nil {
		return nil, &ParseError{Offset: -1, Message: err.Error()}
	}
	return doc, nil
}

// ParseSlice parses raw HTML leniently into a slice that is as open as its
// content allows, ready to be inserted into a document.
func (p *DOMParser) ParseSlice(raw string) (*Slice, error) {
	doc, err := p.Parse(raw, ParseLenient)
	if err != nil {
		return nil, err
	}
	return MaxOpen(doc.Content), nil
}

type parseContext struct {
	typ     *NodeType
	attrs   map[string]interface{}
	content []*Node
	// Contexts opened by DOM elements are solid. The others were opened to
	// hold stray content, and may be closed to find a place for a node.
	solid bool
}

func (cx *parseContext) types(extra ...*NodeType) []*NodeType {
	types := make([]*NodeType, 0, len(cx.content)+len(extra))
	for _, child := range cx.content {
		types = append(types, child.Type)
	}
	return append(types, extra...)
}

func (cx *parseContext) accepts(typ ...*NodeType) bool {
	return cx.typ.ContentMatch.ValidPrefix(cx.types(typ...))
}

// findWrapping returns the node types that must be opened inside this
// context to place a node of the given type, trying at most two levels.
func (cx *parseContext) findWrapping(typ *NodeType) ([]*NodeType, bool) {
	if cx.accepts(typ) {
		return nil, true
	}
	candidates := wrapperTypes(cx.typ.Schema)
	for _, outer := range candidates {
		if !cx.accepts(outer) {
			continue
		}
		if outer.ContentMatch.ValidPrefix([]*NodeType{typ}) {
			return []*NodeType{outer}, true
		}
	}
	for _, outer := range candidates {
		if !cx.accepts(outer) {
			continue
		}
		for _, inner := range candidates {
			if outer.ContentMatch.ValidPrefix([]*NodeType{inner}) && inner.ContentMatch.ValidPrefix([]*NodeType{typ}) {
				return []*NodeType{outer, inner}, true
			}
		}
	}
	return nil, false
}

func wrapperTypes(schema *Schema) []*NodeType {
	var result []*NodeType
	for _, typ := range schema.nodeList() {
		if !typ.IsText() && !typ.IsLeaf() && !typ.HasRequiredAttrs() && typ != schema.TopNodeType {
			result = append(result, typ)
		}
	}
	return result
}

type parseState struct {
	parser *DOMParser
	strict bool
	stack  []*parseContext
	marks  []*Mark
}

func (st *parseState) top() *parseContext {
	return st.stack[len(st.stack)-1]
}

func (st *parseState) addDOM(n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		return st.addText(n.Data)
	case html.ElementNode:
		return st.addElement(n)
	case html.DocumentNode:
		return st.addAll(n)
	}
	return nil
}

func (st *parseState) addAll(parent *html.Node) error {
	for child := parent.FirstChild; child != nil; child = child.NextSibling {
		if err := st.addDOM(child); err != nil {
			return err
		}
	}
	return nil
}

func (st *parseState) addText(text string) error {
	if text == "" {
		return nil
	}
	textType := st.parser.Schema.Nodes["text"]
	if !st.top().typ.InlineContent {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if !st.findPlace(textType) {
			if st.strict {
				return newParseError(-1, "text %q is not allowed in %s", text, st.top().typ.Name)
			}
			return nil
		}
	}
	cx := st.top()
	cx.content = append(cx.content, st.parser.Schema.Text(text, cx.typ.AllowedMarks(st.marks)))
	return nil
}

var ignoredTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true, "meta": true,
	"link": true, "noscript": true, "template": true, "iframe": true, "object": true,
}

func (st *parseState) addElement(el *html.Node) error {
	if ignoredTags[el.Data] {
		if st.strict {
			return newParseError(-1, "<%s> elements are not allowed", el.Data)
		}
		return nil
	}
	for _, nr := range st.parser.nodeRules {
		if attrs, ok := nr.rule.match(el, st.strict); ok {
			return st.addNodeElement(el, nr.typ, attrs)
		}
	}
	for _, mr := range st.parser.markRules {
		if attrs, ok := mr.rule.match(el, st.strict); ok {
			mark := mr.typ.Create(attrs)
			saved := st.marks
			st.marks = mark.AddToSet(st.marks)
			err := st.addAll(el)
			st.marks = saved
			return err
		}
	}
	if st.strict {
		return newParseError(-1, "unsupported element <%s>", el.Data)
	}
	return st.addAll(el)
}

func (st *parseState) addNodeElement(el *html.Node, typ *NodeType, attrs map[string]interface{}) error {
	if !st.findPlace(typ) {
		if st.strict {
			return newParseError(-1, "<%s> is not allowed in %s", el.Data, st.top().typ.Name)
		}
		if typ.IsLeaf() {
			return nil
		}
		return st.addAll(el)
	}
	if typ.IsLeaf() {
		node, err := typ.Create(attrs, nil, nil)
		if err != nil {
			if st.strict {
				return &ParseError{Offset: -1, Message: err.Error()}
			}
			return nil
		}
		cx := st.top()
		cx.content = append(cx.content, node)
		return nil
	}
	depth := len(st.stack)
	st.stack = append(st.stack, &parseContext{typ: typ, attrs: attrs, solid: true})
	if err := st.addAll(el); err != nil {
		return err
	}
	for len(st.stack) > depth {
		if err := st.closeContext(); err != nil {
			return err
		}
	}
	return nil
}

// findPlace makes sure the innermost context can take a node of the given
// type, closing non-solid contexts and opening wrappers as needed.
func (st *parseState) findPlace(typ *NodeType) bool {
	for depth := len(st.stack) - 1; depth >= 0; depth-- {
		cx := st.stack[depth]
		if wrappers, ok := cx.findWrapping(typ); ok {
			for len(st.stack) > depth+1 {
				if err := st.closeContext(); err != nil {
					return false
				}
			}
			for _, w := range wrappers {
				st.stack = append(st.stack, &parseContext{typ: w})
			}
			return true
		}
		if cx.solid {
			break
		}
	}
	return false
}

func (st *parseState) closeContext() error {
	cx := st.top()
	st.stack = st.stack[:len(st.stack)-1]
	parent := st.top()
	content, ok := fillContent(cx.typ, FragmentFromArray(cx.content).Content)
	if !ok {
		if st.strict {
			return newParseError(-1, "invalid content for %s", cx.typ.Name)
		}
		return nil
	}
	node, err := cx.typ.Create(cx.attrs, NewFragment(content), nil)
	if err != nil {
		if st.strict {
			return &ParseError{Offset: -1, Message: err.Error()}
		}
		return nil
	}
	parent.content = append(parent.content, node)
	return nil
}

// fillContent appends default nodes to content until it is valid for the
// given type. Returns false when that is not possible.
func fillContent(typ *NodeType, content []*Node) ([]*Node, bool) {
	for i := 0; i < 4; i++ {
		types := make([]*NodeType, len(content))
		for j, child := range content {
			types[j] = child.Type
		}
		if typ.ContentMatch.MatchTypes(types) {
			return content, true
		}
		var next *NodeType
		for _, candidate := range wrapperTypes(typ.Schema) {
			if typ.ContentMatch.ValidPrefix(append(types, candidate)) {
				next = candidate
				break
			}
		}
		if next == nil {
			return nil, false
		}
		child := CreateAndFill(next)
		if child == nil {
			return nil, false
		}
		content = append(content, child)
	}
	return nil, false
}

// CreateAndFill creates a node of the given type with default attributes,
// adding the children its content expression requires. Returns nil when no
// valid node can be built.
func CreateAndFill(typ *NodeType) *Node {
	content, ok := fillContent(typ, nil)
	if !ok {
		return nil
	}
	node, err := typ.Create(nil, NewFragment(content), nil)
	if err != nil {
		return nil
	}
	return node
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// CheckWellFormed scans raw HTML and returns a ParseError for the first tag
// that is not properly balanced.
func CheckWellFormed(raw string) error {
	z := html.NewTokenizer(strings.NewReader(raw))
	type open struct {
		name   string
		offset int
	}
	var stack []open
	offset := 0
	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				if len(stack) > 0 {
					last := stack[len(stack)-1]
					return newParseError(last.offset, "unclosed <%s>", last.name)
				}
				return nil
			}
			return newParseError(start, "%s", z.Err())
		case html.StartTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				stack = append(stack, open{name: string(name), offset: start})
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if !voidElements[string(name)] {
				return newParseError(start, "<%s/> can not be self-closing", name)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if voidElements[tag] {
				return newParseError(start, "unexpected closing tag </%s>", tag)
			}
			if len(stack) == 0 {
				return newParseError(start, "closing tag </%s> without opening tag", tag)
			}
			if last := stack[len(stack)-1]; last.name != tag {
				return newParseError(start, "closing tag </%s> does not match <%s>", tag, last.name)
			}
			stack = stack[:len(stack)-1]
		}
	}
}

// AttrValue returns the value of an attribute of a DOM element, or "".
func AttrValue(el *html.Node, key string) string {
	for _, attr := range el.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// HasAttr tells whether a DOM element has the given attribute.
func HasAttr(el *html.Node, key string) bool {
	for _, attr := range el.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}

// StyleValue returns the value of a CSS property in the style attribute of a
// DOM element, or "".
func StyleValue(el *html.Node, property string) string {
	for _, decl := range strings.Split(AttrValue(el, "style"), ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}
