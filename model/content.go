package model

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// ContentMatch is a compiled content expression, like "paragraph block*"
// or "(text | image)*". It checks sequences of child types against it.
type ContentMatch struct {
	expr *contentExpr
}

// EmptyContentMatch allows no children. Leaf types use it.
var EmptyContentMatch = &ContentMatch{}

// ParseContentMatch compiles a content expression. Names are node types or
// groups of them, and can be combined with sequences, "|", parentheses and
// the *, +, ?, {n}, {n,} and {n,m} repetitions.
func ParseContentMatch(source string, nodeTypes map[string]*NodeType) (*ContentMatch, error) {
	p := &exprParser{source: source, types: nodeTypes, tokens: exprToken.FindAllString(source, -1)}
	if p.peek() == "" {
		return EmptyContentMatch, nil
	}
	expr, err := p.choice()
	if err != nil {
		return nil, err
	}
	if p.peek() != "" {
		return nil, p.fail("Unexpected trailing text")
	}
	return &ContentMatch{expr: expr}, nil
}

// MatchTypes tells whether types is complete valid content.
func (cm *ContentMatch) MatchTypes(types []*NodeType) bool {
	if cm.expr == nil {
		return len(types) == 0
	}
	return cm.expr.advance(types, posSet{0: true})[len(types)]
}

// MatchFragment tells whether the children of frag are valid content.
func (cm *ContentMatch) MatchFragment(frag *Fragment) bool {
	types := make([]*NodeType, len(frag.Content))
	for i, child := range frag.Content {
		types[i] = child.Type
	}
	return cm.MatchTypes(types)
}

// ValidPrefix tells whether more children can be appended to types to make
// valid content.
func (cm *ContentMatch) ValidPrefix(types []*NodeType) bool {
	if cm.expr == nil {
		return len(types) == 0
	}
	return cm.expr.prefix(types, 0)
}

// DefaultType returns the first type that can start the content and be
// created without attributes, or nil.
func (cm *ContentMatch) DefaultType() *NodeType {
	for _, typ := range cm.firstTypes() {
		if !typ.IsText() && !typ.HasRequiredAttrs() {
			return typ
		}
	}
	return nil
}

func (cm *ContentMatch) firstTypes() []*NodeType {
	if cm.expr == nil {
		return nil
	}
	return cm.expr.first()
}

func (cm *ContentMatch) inlineContent() bool {
	first := cm.firstTypes()
	return len(first) > 0 && first[0].IsInline()
}

// compatible tells whether both expressions can start with a common type.
func (cm *ContentMatch) compatible(other *ContentMatch) bool {
	if cm.expr == nil || other.expr == nil {
		return cm.expr == other.expr
	}
	theirs := other.expr.first()
	return slices.ContainsFunc(cm.expr.first(), func(t *NodeType) bool {
		return slices.Contains(theirs, t)
	})
}

// ContentError is returned when a node gets content, marks or text its type
// does not allow.
type ContentError struct {
	Message string
}

func NewContentError(message string, args ...interface{}) *ContentError {
	return &ContentError{Message: fmt.Sprintf(message, args...)}
}

func (e *ContentError) Error() string {
	return e.Message
}

type exprKind int

const (
	exprName exprKind = iota
	exprChoice
	exprSeq
	exprStar
	exprPlus
	exprOpt
	exprRange
)

// contentExpr is a node of a parsed content expression. Names carry typ,
// choices and sequences carry subs, repetitions carry inner. A range
// repeats inner min to max times, with max -1 for no bound.
type contentExpr struct {
	kind     exprKind
	typ      *NodeType
	subs     []*contentExpr
	inner    *contentExpr
	min, max int
}

// posSet is a set of indexes into a list of child types.
type posSet map[int]bool

func (s posSet) addAll(other posSet) posSet {
	for p := range other {
		s[p] = true
	}
	return s
}

// advance returns the indexes reached by matching the expression once from
// any index of starts.
func (e *contentExpr) advance(types []*NodeType, starts posSet) posSet {
	switch e.kind {
	case exprName:
		out := posSet{}
		for s := range starts {
			if s < len(types) && types[s] == e.typ {
				out[s+1] = true
			}
		}
		return out
	case exprChoice:
		out := posSet{}
		for _, sub := range e.subs {
			out.addAll(sub.advance(types, starts))
		}
		return out
	case exprSeq:
		out := starts
		for _, sub := range e.subs {
			if out = sub.advance(types, out); len(out) == 0 {
				break
			}
		}
		return out
	case exprStar:
		return e.repeat(types, starts)
	case exprPlus:
		return e.repeat(types, e.inner.advance(types, starts))
	case exprOpt:
		return posSet{}.addAll(starts).addAll(e.inner.advance(types, starts))
	}

	out := posSet{}.addAll(starts)
	for range e.min {
		out = e.inner.advance(types, out)
	}
	if e.max == -1 {
		return e.repeat(types, out)
	}
	for i, reach := e.min, out; i < e.max && len(reach) > 0; i++ {
		reach = e.inner.advance(types, reach)
		out.addAll(reach)
	}
	return out
}

// repeat returns the indexes reached by matching inner any number of times
// from starts.
func (e *contentExpr) repeat(types []*NodeType, starts posSet) posSet {
	out := posSet{}.addAll(starts)
	for reach := starts; len(reach) > 0; {
		next := posSet{}
		for p := range e.inner.advance(types, reach) {
			if !out[p] {
				out[p] = true
				next[p] = true
			}
		}
		reach = next
	}
	return out
}

// prefix tells whether types[s:] is the start of a match.
func (e *contentExpr) prefix(types []*NodeType, s int) bool {
	if s == len(types) {
		return true
	}
	switch e.kind {
	case exprName:
		return s == len(types)-1 && types[s] == e.typ
	case exprChoice:
		return slices.ContainsFunc(e.subs, func(sub *contentExpr) bool { return sub.prefix(types, s) })
	case exprSeq:
		return seqPrefix(e.subs, types, s)
	case exprStar, exprPlus:
		for p := range e.repeat(types, posSet{s: true}) {
			if e.inner.prefix(types, p) {
				return true
			}
		}
		return false
	case exprOpt:
		return e.inner.prefix(types, s)
	}

	seen := posSet{s: true}
	for i, reach := 0, (posSet{s: true}); (e.max == -1 || i < e.max) && len(reach) > 0; i++ {
		for p := range reach {
			if e.inner.prefix(types, p) {
				return true
			}
		}
		next := posSet{}
		for p := range e.inner.advance(types, reach) {
			if !seen[p] {
				seen[p] = true
				next[p] = true
			}
		}
		reach = next
	}
	return false
}

func seqPrefix(subs []*contentExpr, types []*NodeType, s int) bool {
	if len(subs) == 0 {
		return s == len(types)
	}
	if subs[0].prefix(types, s) {
		return true
	}
	for p := range subs[0].advance(types, posSet{s: true}) {
		if seqPrefix(subs[1:], types, p) {
			return true
		}
	}
	return false
}

// first lists the types a match can start with, in schema order.
func (e *contentExpr) first() []*NodeType {
	seen := map[*NodeType]bool{}
	e.collectFirst(seen)
	out := make([]*NodeType, 0, len(seen))
	for typ := range seen {
		out = append(out, typ)
	}
	slices.SortFunc(out, func(a, b *NodeType) int { return a.Rank - b.Rank })
	return out
}

// collectFirst adds the types a match can start with to seen, and tells
// whether the expression matches nothing at all.
func (e *contentExpr) collectFirst(seen map[*NodeType]bool) bool {
	switch e.kind {
	case exprName:
		seen[e.typ] = true
		return false
	case exprChoice:
		empty := false
		for _, sub := range e.subs {
			empty = sub.collectFirst(seen) || empty
		}
		return empty
	case exprSeq:
		for _, sub := range e.subs {
			if !sub.collectFirst(seen) {
				return false
			}
		}
		return true
	case exprStar, exprOpt:
		e.inner.collectFirst(seen)
		return true
	case exprPlus:
		return e.inner.collectFirst(seen)
	}
	return e.inner.collectFirst(seen) || e.min == 0
}

// exprToken splits a content expression into names and single punctuation
// characters.
var exprToken = regexp.MustCompile(`[\p{L}\p{N}_]+|\S`)

// exprParser is a recursive descent parser over the tokens of a content
// expression. All the names of an expression must be inline, or all
// block.
type exprParser struct {
	source string
	types  map[string]*NodeType
	tokens []string
	pos    int

	inline    bool
	seenNames bool
}

// peek returns the next token, or "" at the end.
func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) accept(tok string) bool {
	if p.peek() != tok {
		return false
	}
	p.pos++
	return true
}

func (p *exprParser) fail(format string, args ...interface{}) error {
	return fmt.Errorf("%s (in content expression %q)", fmt.Sprintf(format, args...), p.source)
}

func oneOrMany(kind exprKind, exprs []*contentExpr) *contentExpr {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return &contentExpr{kind: kind, subs: exprs}
}

// choice parses seq ("|" seq)*.
func (p *exprParser) choice() (*contentExpr, error) {
	var alternatives []*contentExpr
	for {
		seq, err := p.sequence()
		if err != nil {
			return nil, err
		}
		alternatives = append(alternatives, seq)
		if !p.accept("|") {
			return oneOrMany(exprChoice, alternatives), nil
		}
	}
}

// sequence parses postfix expressions up to a ")", a "|" or the end.
func (p *exprParser) sequence() (*contentExpr, error) {
	var items []*contentExpr
	for {
		item, err := p.postfix()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if next := p.peek(); next == "" || next == ")" || next == "|" {
			return oneOrMany(exprSeq, items), nil
		}
	}
}

// postfix parses an atom with its repetition operators.
func (p *exprParser) postfix() (*contentExpr, error) {
	expr, err := p.atom()
	for err == nil {
		switch {
		case p.accept("*"):
			expr = &contentExpr{kind: exprStar, inner: expr}
		case p.accept("+"):
			expr = &contentExpr{kind: exprPlus, inner: expr}
		case p.accept("?"):
			expr = &contentExpr{kind: exprOpt, inner: expr}
		case p.accept("{"):
			expr, err = p.count(expr)
		default:
			return expr, nil
		}
	}
	return nil, err
}

// count parses the rest of a {n}, {n,} or {n,m} repetition.
func (p *exprParser) count(inner *contentExpr) (*contentExpr, error) {
	lo, err := p.number()
	if err != nil {
		return nil, err
	}
	hi := lo
	if p.accept(",") {
		hi = -1
		if p.peek() != "}" {
			if hi, err = p.number(); err != nil {
				return nil, err
			}
		}
	}
	if !p.accept("}") {
		return nil, p.fail("Unclosed braced range")
	}
	return &contentExpr{kind: exprRange, inner: inner, min: lo, max: hi}, nil
}

func (p *exprParser) number() (int, error) {
	tok := p.peek()
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, p.fail("Expected number, got %q", tok)
	}
	p.pos++
	return n, nil
}

// atom parses a parenthesized expression or a name.
func (p *exprParser) atom() (*contentExpr, error) {
	if p.accept("(") {
		expr, err := p.choice()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, p.fail("Missing closing paren")
		}
		return expr, nil
	}

	name := p.peek()
	if first, _ := utf8.DecodeRuneInString(name); name == "" || first != '_' && !unicode.IsLetter(first) && !unicode.IsDigit(first) {
		return nil, p.fail("Unexpected token %q", name)
	}
	types, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	names := make([]*contentExpr, len(types))
	for i, typ := range types {
		if p.seenNames && p.inline != typ.IsInline() {
			return nil, p.fail("Mixing inline and block content")
		}
		p.inline, p.seenNames = typ.IsInline(), true
		names[i] = &contentExpr{kind: exprName, typ: typ}
	}
	p.pos++
	return oneOrMany(exprChoice, names), nil
}

// lookup resolves a node type name, or a group name to its members in
// schema order.
func (p *exprParser) lookup(name string) ([]*NodeType, error) {
	if typ, ok := p.types[name]; ok {
		return []*NodeType{typ}, nil
	}
	var members []*NodeType
	for _, typ := range p.types {
		if typ.isInGroup(name) {
			members = append(members, typ)
		}
	}
	if len(members) == 0 {
		return nil, p.fail("No node type or group %q found", name)
	}
	slices.SortFunc(members, func(a, b *NodeType) int { return a.Rank - b.Rank })
	return members, nil
}
