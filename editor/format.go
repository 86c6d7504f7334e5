package editor

import (
	"fmt"
	"slices"

	"github.com/gamedesk/richedit/model"
)

// FormatLabel names a formatting that can be active at the selection. The
// toolbar highlights the buttons of the active labels.
type FormatLabel string

// Format labels.
const (
	LabelBold         FormatLabel = "bold"
	LabelItalic       FormatLabel = "italic"
	LabelUnderline    FormatLabel = "underline"
	LabelStrike       FormatLabel = "strike"
	LabelCode         FormatLabel = "code"
	LabelLink         FormatLabel = "link"
	LabelAlignLeft    FormatLabel = "align-left"
	LabelAlignCenter  FormatLabel = "align-center"
	LabelAlignRight   FormatLabel = "align-right"
	LabelAlignJustify FormatLabel = "align-justify"
	LabelH1           FormatLabel = "h1"
	LabelH2           FormatLabel = "h2"
	LabelH3           FormatLabel = "h3"
	LabelParagraph    FormatLabel = "paragraph"
	LabelBulletList   FormatLabel = "bullet-list"
	LabelOrderedList  FormatLabel = "ordered-list"
	LabelBlockquote   FormatLabel = "blockquote"
)

// markLabels gives the label of the marks without attributes that matter.
var markLabels = map[string]FormatLabel{
	"bold":      LabelBold,
	"italic":    LabelItalic,
	"underline": LabelUnderline,
	"strike":    LabelStrike,
	"code":      LabelCode,
	"link":      LabelLink,
}

var wrapperLabels = map[string]FormatLabel{
	"bullet_list":  LabelBulletList,
	"ordered_list": LabelOrderedList,
	"blockquote":   LabelBlockquote,
}

// FormatState is the sorted set of active format labels.
type FormatState []FormatLabel

// Has tells whether the label is active.
func (s FormatState) Has(label FormatLabel) bool {
	_, found := slices.BinarySearch(s, label)
	return found
}

// ComputeActiveFormats returns the formats active for a selection of the
// document.
//
// A mark is active when every text node of the selection carries it. For an
// empty selection, the stored marks are used when set, otherwise the marks
// at the caret. An alignment is only active when all the text shares it.
//
// The block kind (paragraph or heading level) is active when all the
// textblocks touched by the selection are of that kind. Lists and
// blockquotes are active when every touched textblock is inside one.
func ComputeActiveFormats(doc *model.Node, sel Selection) FormatState {
	if checkRange(doc, sel.Range) != nil {
		return FormatState{}
	}
	labels := map[FormatLabel]bool{}
	for _, label := range activeMarks(doc, sel) {
		labels[label] = true
	}
	for _, label := range activeBlocks(doc, sel.Range) {
		labels[label] = true
	}
	state := make(FormatState, 0, len(labels))
	for label := range labels {
		state = append(state, label)
	}
	slices.Sort(state)
	return state
}

func markSetLabels(marks []*model.Mark) []FormatLabel {
	var labels []FormatLabel
	for _, m := range marks {
		if label, ok := markLabels[m.Type.Name]; ok {
			labels = append(labels, label)
		} else if m.Type.Name == "text_align" {
			labels = append(labels, FormatLabel("align-"+m.Attr("value")))
		}
	}
	return labels
}

func activeMarks(doc *model.Node, sel Selection) []FormatLabel {
	if sel.Empty() {
		if sel.StoredMarks != nil {
			return markSetLabels(sel.StoredMarks)
		}
		rp, err := doc.Resolve(sel.From)
		if err != nil {
			return nil
		}
		return markSetLabels(rp.Marks())
	}
	var common map[FormatLabel]bool
	doc.NodesBetween(sel.From, sel.To, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		if !node.IsText() {
			return true
		}
		own := map[FormatLabel]bool{}
		for _, label := range markSetLabels(node.Marks) {
			own[label] = true
		}
		if common == nil {
			common = own
			return false
		}
		for label := range common {
			if !own[label] {
				delete(common, label)
			}
		}
		return false
	})
	labels := make([]FormatLabel, 0, len(common))
	for label := range common {
		labels = append(labels, label)
	}
	return labels
}

// kindLabel is the label of a textblock's kind, or "" when it has none.
func kindLabel(block *model.Node) FormatLabel {
	switch block.Type.Name {
	case "paragraph":
		return LabelParagraph
	case "heading":
		if level, ok := block.Attrs["level"].(int); ok && level >= 1 && level <= 3 {
			return FormatLabel(fmt.Sprintf("h%d", level))
		}
	}
	return ""
}

// blockInfo describes a textblock touched by the selection.
type blockInfo struct {
	kind     FormatLabel
	wrappers map[FormatLabel]bool
}

func describeBlock(rp *model.ResolvedPos) blockInfo {
	info := blockInfo{kind: kindLabel(rp.Parent()), wrappers: map[FormatLabel]bool{}}
	for d := rp.Depth - 1; d > 0; d-- {
		if label, ok := wrapperLabels[rp.Node(d).Type.Name]; ok {
			info.wrappers[label] = true
		}
	}
	return info
}

func touchedBlocks(doc *model.Node, r Range) []blockInfo {
	if r.Empty() {
		rp, err := doc.Resolve(r.From)
		if err != nil || !rp.Parent().IsTextblock() {
			return nil
		}
		return []blockInfo{describeBlock(rp)}
	}
	var blocks []blockInfo
	doc.NodesBetween(r.From, r.To, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsTextblock() {
			return node.IsBlock()
		}
		if rp, err := doc.Resolve(pos + 1); err == nil {
			blocks = append(blocks, describeBlock(rp))
		}
		return false
	})
	return blocks
}

func activeBlocks(doc *model.Node, r Range) []FormatLabel {
	blocks := touchedBlocks(doc, r)
	if len(blocks) == 0 {
		return nil
	}
	var labels []FormatLabel
	kind := blocks[0].kind
	for _, b := range blocks[1:] {
		if b.kind != kind {
			kind = ""
			break
		}
	}
	if kind != "" {
		labels = append(labels, kind)
	}
	for _, label := range wrapperLabels {
		all := true
		for _, b := range blocks {
			if !b.wrappers[label] {
				all = false
				break
			}
		}
		if all {
			labels = append(labels, label)
		}
	}
	return labels
}
