// Package markdown converts post documents from and to CommonMark, for the
// previews and for pasted plain text.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/gamedesk/richedit/model"
)

// Serializer writes post documents as CommonMark. Alignment has no
// CommonMark syntax and is dropped, underline is written as inline HTML, and
// link targets are lost.
type Serializer struct {
	// TightLists renders list items without a blank line between them.
	TightLists bool
}

// DefaultSerializer renders loose lists, as ParseMarkdown reads them back.
var DefaultSerializer = &Serializer{}

// Serialize renders the content of node.
func (s *Serializer) Serialize(node *model.Node) string {
	w := &writer{tightLists: s.TightLists}
	w.renderContent(node)
	return string(w.out)
}

// delimFunc returns the syntax opening or closing a mark on the child at
// index of parent.
type delimFunc func(w *writer, mark *model.Mark, parent *model.Node, index int) string

func lit(s string) delimFunc {
	return func(*writer, *model.Mark, *model.Node, int) string { return s }
}

type markSyntax struct {
	open, close delimFunc
	// Mixable marks can be closed in another order than they were opened,
	// like **a *b*** and *a **b***.
	mixable bool
	// CommonMark does not allow whitespace just inside emphasis, so it is
	// moved outside the mark.
	expel bool
	// The content of a raw mark is not escaped. It must be the innermost
	// mark.
	raw bool
}

var markSyntaxes = map[string]markSyntax{
	"text_align": {},
	"italic":     {open: lit("*"), close: lit("*"), mixable: true, expel: true},
	"bold":       {open: lit("**"), close: lit("**"), mixable: true, expel: true},
	"strike":     {open: lit("~~"), close: lit("~~"), mixable: true, expel: true},
	"underline":  {open: lit("<u>"), close: lit("</u>")},
	"link":       {open: openLink, close: closeLink, mixable: true},
	"code":       {open: openCode, close: closeCode, raw: true},
}

func syntaxOf(mark *model.Mark) markSyntax {
	return markSyntaxes[mark.Type.Name]
}

func openLink(w *writer, mark *model.Mark, parent *model.Node, index int) string {
	w.autolink = isAutolink(mark, parent, index)
	if w.autolink {
		return "<"
	}
	return "["
}

func closeLink(w *writer, mark *model.Mark, _ *model.Node, _ int) string {
	if w.autolink {
		w.autolink = false
		return ">"
	}
	return "](" + escapeURL(mark.Attr("href"), true) + ")"
}

// isAutolink tells whether the link on the child at index can be written
// as <href>: its text is the URL and it spans that single text node.
func isAutolink(link *model.Mark, parent *model.Node, index int) bool {
	href := link.Attr("href")
	if !strings.Contains(href, ":") {
		return false
	}
	content, err := parent.Child(index)
	if err != nil {
		return true
	}
	if !content.IsText() || *content.Text != href || len(content.Marks) == 0 || content.Marks[len(content.Marks)-1] != link {
		return false
	}
	next, err := parent.Child(index + 1)
	if err != nil {
		return true
	}
	return !link.IsInSet(next.Marks)
}

func openCode(_ *writer, _ *model.Mark, parent *model.Node, index int) string {
	child, err := parent.Child(index)
	if err != nil {
		return "`"
	}
	return backticks(child, -1)
}

func closeCode(_ *writer, _ *model.Mark, parent *model.Node, index int) string {
	child, err := parent.Child(index - 1)
	if err != nil {
		return "`"
	}
	return backticks(child, 1)
}

// backticks makes a code span delimiter longer than the longest run of
// backticks in the text, padded with a space on the inner side.
func backticks(node *model.Node, side int) string {
	longest := 0
	if node.IsText() {
		run := 0
		for _, r := range *node.Text {
			if r == '`' {
				run++
				longest = max(longest, run)
			} else {
				run = 0
			}
		}
	}
	ticks := strings.Repeat("`", longest+1)
	switch {
	case longest == 0:
		return ticks
	case side > 0:
		return " " + ticks
	default:
		return ticks + " "
	}
}

func escapeURL(url string, quotes bool) string {
	url = strings.ReplaceAll(url, "(", `\(`)
	url = strings.ReplaceAll(url, ")", `\)`)
	if quotes {
		url = strings.ReplaceAll(url, `"`, `\"`)
	}
	return url
}

func attrInt(node *model.Node, name string, fallback int) int {
	switch v := node.Attrs[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// writer accumulates the output. A closed block is only separated from what
// follows when something is written after it, so the output never ends
// with blank lines.
type writer struct {
	out        []byte
	delim      string
	closed     *model.Node
	autolink   bool
	blockStart bool
	inTight    bool
	tightLists bool
}

func (w *writer) atBlank() bool {
	return len(w.out) == 0 || w.out[len(w.out)-1] == '\n'
}

func (w *writer) ensureNewline() {
	if !w.atBlank() {
		w.out = append(w.out, '\n')
	}
}

// flushClose ends the closed block with the given number of line breaks.
func (w *writer) flushClose(lines int) {
	if w.closed == nil {
		return
	}
	w.ensureNewline()
	prefix := strings.TrimRightFunc(w.delim, unicode.IsSpace)
	for i := 1; i < lines; i++ {
		w.out = append(w.out, prefix...)
		w.out = append(w.out, '\n')
	}
	w.closed = nil
}

// write separates the pending closed block, starts the line with the
// current delimiter and adds content as is.
func (w *writer) write(content string) {
	w.flushClose(2)
	if w.delim != "" && w.atBlank() {
		w.out = append(w.out, w.delim...)
	}
	w.out = append(w.out, content...)
}

// wrapBlock renders a block whose lines are prefixed with delim, except the
// first one which gets first.
func (w *writer) wrapBlock(delim, first string, node *model.Node, render func()) {
	outer := w.delim
	w.write(first)
	w.delim += delim
	render()
	w.delim = outer
	w.closed = node
}

var bangBefore = regexp.MustCompile(`(^|[^\\])!$`)

func (w *writer) text(text string, escape bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		w.write("")
		// ![ would start an image
		if !escape && strings.HasPrefix(line, "[") && bangBefore.Match(w.out) {
			w.out = append(w.out[:len(w.out)-1], `\!`...)
		}
		if escape {
			line = escapeText(line, w.blockStart)
		}
		w.out = append(w.out, line...)
		if i < len(lines)-1 {
			w.out = append(w.out, '\n')
		}
	}
}

var (
	specialChars = regexp.MustCompile("([`*\\\\~\\[\\]])")
	edgeUnder    = regexp.MustCompile(`(\b_)|(_\b)`)
	lineMarker   = regexp.MustCompile(`^([#\-*+>])`)
	listNumber   = regexp.MustCompile(`(\s*\d+)\.`)
)

// escapeText escapes the Markdown syntax characters of s. At the start of a
// line, block markers are escaped too.
func escapeText(s string, lineStart bool) string {
	s = specialChars.ReplaceAllString(s, `\$1`)
	s = edgeUnder.ReplaceAllString(s, `\_`)
	if lineStart {
		s = lineMarker.ReplaceAllString(s, `\$1`)
		s = listNumber.ReplaceAllString(s, `$1\.`)
	}
	return s
}

func (w *writer) renderContent(parent *model.Node) {
	parent.ForEach(func(child *model.Node, _ int, i int) {
		w.render(child, parent, i)
	})
}

func (w *writer) render(node, parent *model.Node, index int) {
	switch node.Type.Name {
	case "paragraph":
		w.renderInline(node)
		w.closed = node
	case "heading":
		w.write(strings.Repeat("#", attrInt(node, "level", 1)) + " ")
		w.renderInline(node)
		w.closed = node
	case "blockquote":
		w.wrapBlock("> ", "> ", node, func() { w.renderContent(node) })
	case "horizontal_rule":
		w.write("---")
		w.closed = node
	case "bullet_list":
		w.renderList(node, "  ", func(int) string { return "* " })
	case "ordered_list":
		start := attrInt(node, "order", 1)
		width := len(strconv.Itoa(start + node.ChildCount() - 1))
		w.renderList(node, strings.Repeat(" ", width+2), func(i int) string {
			return fmt.Sprintf("%*d. ", width, start+i)
		})
	case "list_item":
		w.renderContent(node)
	case "image":
		title := ""
		if t := node.Attr("title"); t != "" {
			title = ` "` + strings.ReplaceAll(t, `"`, `\"`) + `"`
		}
		w.write("![" + escapeText(node.Attr("alt"), false) + "](" + escapeURL(node.Attr("src"), false) + ")" + title)
	case "hard_break":
		// trailing breaks have no Markdown form
		for i := index + 1; i < parent.ChildCount(); i++ {
			if child, err := parent.Child(i); err == nil && child.Type != node.Type {
				w.write("\\\n")
				return
			}
		}
	case "text":
		w.text(*node.Text, !w.autolink)
	}
}

// renderList renders the items of a list. Lines of an item after its first
// are indented by delim; first gives the marker of the item at index i.
func (w *writer) renderList(node *model.Node, delim string, first func(i int) string) {
	if w.closed != nil && w.closed.Type == node.Type {
		// two lists of the same kind would merge
		w.flushClose(3)
	} else if w.inTight {
		w.flushClose(1)
	}

	tight := w.tightLists
	if t, ok := node.Attrs["tight"].(bool); ok {
		tight = t
	}
	outer := w.inTight
	w.inTight = tight
	node.ForEach(func(child *model.Node, _ int, i int) {
		if i > 0 && tight {
			w.flushClose(1)
		}
		w.wrapBlock(delim, first(i), node, func() { w.render(child, node, i) })
	})
	w.inTight = outer
}

// breakMarks are the marks kept on a hard break: those continuing on a next
// sibling with some content, so that no mark closes right after a line end.
func breakMarks(node, parent *model.Node, index int) []*model.Mark {
	next, err := parent.Child(index + 1)
	if err != nil || next.IsText() && strings.TrimSpace(*next.Text) == "" {
		return nil
	}
	var kept []*model.Mark
	for _, m := range node.Marks {
		if m.IsInSet(next.Marks) {
			kept = append(kept, m)
		}
	}
	return kept
}

// expels tells whether a mark opening on the text at index closes right
// after it and moves the enclosing whitespace out.
func expels(marks, active []*model.Mark, parent *model.Node, index int) bool {
	for _, mark := range marks {
		if !syntaxOf(mark).expel || mark.IsInSet(active) {
			continue
		}
		next, err := parent.Child(index + 1)
		if index >= parent.ChildCount()-1 || err == nil && !mark.IsInSet(next.Marks) {
			return true
		}
	}
	return false
}

// reorderMixable puts the mixable marks of a node in the order they are
// already open, so that fewer marks get closed and reopened.
func reorderMixable(marks, active []*model.Mark) []*model.Mark {
next:
	for i := 0; i < len(marks); i++ {
		mark := marks[i]
		if !syntaxOf(mark).mixable {
			break
		}
		for j, open := range active {
			if !syntaxOf(open).mixable {
				break
			}
			if !mark.Eq(open) {
				continue
			}
			if i != j {
				marks = moveMark(marks, i, j)
			}
			continue next
		}
	}
	return marks
}

func moveMark(marks []*model.Mark, from, to int) []*model.Mark {
	moved := make([]*model.Mark, 0, len(marks))
	if from > to {
		moved = append(moved, marks[:to]...)
		moved = append(moved, marks[from])
		moved = append(moved, marks[to:from]...)
		return append(moved, marks[from+1:]...)
	}
	moved = append(moved, marks[:from]...)
	moved = append(moved, marks[from+1:to]...)
	moved = append(moved, marks[from])
	return append(moved, marks[to:]...)
}

func (w *writer) markString(mark *model.Mark, open bool, parent *model.Node, index int) string {
	syntax := syntaxOf(mark)
	fn := syntax.close
	if open {
		fn = syntax.open
	}
	if fn == nil {
		return ""
	}
	return fn(w, mark, parent, index)
}

var edgeSpace = regexp.MustCompile(`^(\s*)(.*?)(\s*)$`)

// renderInline renders the inline content of a textblock, opening and
// closing the mark syntax between its children.
func (w *writer) renderInline(parent *model.Node) {
	w.blockStart = true
	var active []*model.Mark
	trailing := ""

	step := func(node *model.Node, index int) {
		var marks []*model.Mark
		if node != nil {
			marks = node.Marks
			if node.Type.Name == "hard_break" {
				marks = breakMarks(node, parent, index)
			}
		}

		leading := trailing
		trailing = ""
		if node != nil && node.IsText() && expels(marks, active, parent, index) {
			if parts := edgeSpace.FindStringSubmatch(*node.Text); parts != nil && (parts[1] != "" || parts[3] != "") {
				leading += parts[1]
				trailing = parts[3]
				if parts[2] != "" {
					node = node.WithText(parts[2])
				} else {
					node, marks = nil, active
				}
			}
		}

		var inner *model.Mark
		if len(marks) > 0 {
			inner = marks[len(marks)-1]
		}
		raw := inner != nil && syntaxOf(inner).raw
		opening := len(marks)
		if raw {
			opening--
		}

		marks = reorderMixable(marks, active)

		keep := 0
		for keep < min(len(marks), len(active)) && marks[keep].Eq(active[keep]) {
			keep++
		}
		for keep < len(active) {
			w.text(w.markString(active[len(active)-1], false, parent, index), false)
			active = active[:len(active)-1]
		}

		if leading != "" {
			w.text(leading, true)
		}

		if node == nil {
			return
		}
		for len(active) < opening {
			mark := marks[len(active)]
			active = append(active, mark)
			w.text(w.markString(mark, true, parent, index), false)
		}
		if raw && node.IsText() {
			w.text(w.markString(inner, true, parent, index)+*node.Text+w.markString(inner, false, parent, index+1), false)
		} else {
			w.render(node, parent, index)
		}
	}

	parent.ForEach(func(child *model.Node, _ int, i int) { step(child, i) })
	step(nil, parent.ChildCount())
	w.blockStart = false
}
