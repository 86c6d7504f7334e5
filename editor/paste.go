package editor

import (
	"fmt"
	"strings"

	"github.com/gamedesk/richedit/markdown"
	"github.com/gamedesk/richedit/model"
	"github.com/gamedesk/richedit/schema/cms"
	"github.com/gamedesk/richedit/transform"
)

// Clipboard is the content of a paste. HTML wins over Text when both are
// given.
type Clipboard struct {
	HTML string
	Text string
}

// Upload is an image of the document that still has to be uploaded to the
// media service.
type Upload struct {
	ID  string
	Src string
	Pos int
}

// Paste inserts the clipboard content over the selection. Images that are
// inline data or come from outside the media hosts are tagged for upload;
// Paste returns their tags.
func (s *Session) Paste(clip Clipboard) ([]string, error) {
	if s.mode == Raw {
		return nil, ErrRawMode
	}
	slice, err := s.clipboardSlice(clip)
	if err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	if slice == nil || slice.Content.Size == 0 {
		return nil, nil
	}
	var ids []string
	content, err := s.tagImages(slice.Content, &ids)
	if err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	slice = model.NewSlice(content, slice.OpenStart, slice.OpenEnd)

	sel := s.state.Selection
	tr := transform.NewTransform(s.state.Doc)
	if err := tr.ReplaceRange(sel.From, sel.To, slice); err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	if err := tr.Doc.Check(); err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	s.logger.Debug("pasted", "size", slice.Size(), "uploads", len(ids))
	s.commit(tr, Caret(tr.Mapping.Map(sel.To, 1)))
	return ids, nil
}

func (s *Session) clipboardSlice(clip Clipboard) (*model.Slice, error) {
	if strings.TrimSpace(clip.HTML) != "" {
		return s.parser.ParseSlice(s.sanitizer.Sanitize(clip.HTML))
	}
	if strings.TrimSpace(clip.Text) == "" {
		return nil, nil
	}
	if s.cfg.Paste.Markdown {
		doc, err := markdown.ParseMarkdown(s.mdParser, s.mdMapper, []byte(clip.Text), cms.Schema)
		if err != nil {
			return nil, err
		}
		return model.MaxOpen(doc.Content), nil
	}
	return plainText(clip.Text)
}

// plainText makes one paragraph per block of lines, lines being separated
// by hard breaks.
func plainText(text string) (*model.Slice, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var paragraphs []*model.Node
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var inline []*model.Node
		for _, line := range strings.Split(strings.Trim(block, "\n"), "\n") {
			if len(inline) > 0 {
				br, err := cms.HardBreak.Create(nil, nil, nil)
				if err != nil {
					return nil, err
				}
				inline = append(inline, br)
			}
			if line != "" {
				inline = append(inline, cms.Schema.Text(line))
			}
		}
		p, err := cms.Paragraph.Create(nil, inline, nil)
		if err != nil {
			return nil, err
		}
		paragraphs = append(paragraphs, p)
	}
	return model.MaxOpen(model.NewFragment(paragraphs)), nil
}

// tagImages rebuilds the fragment with every image tagged for upload when
// it needs one, and untagged otherwise. The new tags are added to ids.
func (s *Session) tagImages(frag *model.Fragment, ids *[]string) (*model.Fragment, error) {
	nodes := make([]*model.Node, 0, frag.ChildCount())
	for _, child := range frag.Content {
		switch {
		case child.Type == cms.Image:
			tagged, err := s.tagImage(child, ids)
			if err != nil {
				return nil, err
			}
			child = tagged
		case child.Content.Size > 0:
			content, err := s.tagImages(child.Content, ids)
			if err != nil {
				return nil, err
			}
			child = child.Copy(content)
		}
		nodes = append(nodes, child)
	}
	return model.NewFragment(nodes), nil
}

func (s *Session) tagImage(image *model.Node, ids *[]string) (*model.Node, error) {
	upload := ""
	if !cms.IsMediaHost(image.Attr("src"), s.cfg.Media.Hosts) {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("upload id: %w", err)
		}
		upload = id
		*ids = append(*ids, id)
	}
	attrs := make(map[string]interface{}, len(image.Attrs))
	for k, v := range image.Attrs {
		attrs[k] = v
	}
	attrs["upload"] = upload
	return cms.Image.Create(attrs, nil, image.Marks)
}

// PendingUploads lists the images still tagged for upload, in document
// order.
func (s *Session) PendingUploads() []Upload {
	var uploads []Upload
	s.state.Doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if node.Type == cms.Image {
			if id := node.Attr("upload"); id != "" {
				uploads = append(uploads, Upload{ID: id, Src: node.Attr("src"), Pos: pos})
			}
		}
		return !node.IsInline()
	})
	return uploads
}

// CompleteUpload points the image tagged with id to its uploaded source and
// clears the tag.
func (s *Session) CompleteUpload(id, src string) error {
	if s.mode == Raw {
		return ErrRawMode
	}
	if src == "" {
		return errMissingSrc
	}
	pos := -1
	for _, upload := range s.PendingUploads() {
		if upload.ID == id {
			pos = upload.Pos
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownUpload, id)
	}
	tr := transform.NewTransform(s.state.Doc)
	if err := tr.SetAttrs(pos, map[string]interface{}{"src": src, "upload": ""}); err != nil {
		return fmt.Errorf("complete upload %s: %w", id, err)
	}
	s.logger.Debug("upload completed", "id", id, "src", src)
	s.commit(tr, s.state.Selection)
	return nil
}
