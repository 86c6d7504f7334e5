package editor

import (
	"regexp"

	"github.com/gamedesk/richedit/schema/cms"
	"github.com/microcosm-cc/bluemonday"
)

var linkTarget = regexp.MustCompile(`^_(blank|self|parent|top)$`)

// pastePolicy is the sanitizer applied to pasted HTML before it is parsed.
// It is the user generated content policy, extended with the attributes the
// post schema reads and with inline images, which get tagged for upload.
func pastePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowDataURIImages()
	p.AllowAttrs("target").Matching(linkTarget).OnElements("a")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowStyles("text-align").MatchingEnum(cms.Alignments...).OnElements("span")
	return p
}
