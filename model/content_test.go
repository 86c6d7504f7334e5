package model_test

import (
	"strings"
	"testing"

	. "github.com/gamedesk/richedit/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, expr string) *ContentMatch {
	t.Helper()
	cm, err := ParseContentMatch(expr, schema.Nodes)
	require.NoError(t, err)
	return cm
}

func typeList(names string) []*NodeType {
	var list []*NodeType
	for _, name := range strings.Fields(names) {
		list = append(list, schema.Nodes[name])
	}
	return list
}

func TestContentMatchTypes(t *testing.T) {
	tests := []struct {
		expr  string
		types string
		match bool
	}{
		{"", "", true},
		{"", "image", false},

		{"image*", "", true},
		{"image*", "image image image", true},
		{"image*", "image text", false},
		{"inline*", "image text hard_break", true},
		{"inline*", "paragraph", false},

		{"(paragraph | heading)", "heading", true},
		{"(paragraph | heading)", "image", false},

		{"heading paragraph blockquote", "heading paragraph blockquote", true},
		{"heading paragraph", "heading paragraph blockquote", false},
		{"heading paragraph blockquote", "heading paragraph", false},
		{"heading paragraph", "paragraph heading", false},

		{"heading paragraph*", "heading", true},
		{"heading paragraph+", "heading paragraph paragraph", true},
		{"heading paragraph+", "heading", false},
		{"heading paragraph+", "paragraph", false},

		{"image?", "", true},
		{"image?", "image", true},
		{"image?", "image image", false},

		{"(heading paragraph+)+", "heading paragraph heading paragraph paragraph", true},
		{"(heading paragraph+)+", "heading paragraph heading", false},

		{"hard_break{2}", "hard_break hard_break", true},
		{"hard_break{2}", "hard_break", false},
		{"hard_break{2}", "hard_break hard_break hard_break", false},
		{"hard_break{1, 3}", "hard_break", true},
		{"hard_break{1, 3}", "hard_break hard_break hard_break", true},
		{"hard_break{1, 3}", "hard_break hard_break hard_break hard_break", false},
		{"hard_break{1, 3} image?", "hard_break image", true},
		{"hard_break{1, 3} text*", "hard_break image", false},
		{"hard_break{2,}", "hard_break hard_break hard_break hard_break hard_break", true},
		{"hard_break{2,}", "hard_break", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr+" / "+tt.types, func(t *testing.T) {
			assert.Equal(t, tt.match, compile(t, tt.expr).MatchTypes(typeList(tt.types)))
		})
	}
}

func TestContentMatchValidPrefix(t *testing.T) {
	tests := []struct {
		expr   string
		types  string
		prefix bool
	}{
		{"heading block*", "", true},
		{"heading block*", "heading", true},
		{"heading block*", "heading blockquote paragraph", true},
		{"heading block*", "paragraph", false},
		{"hard_break{3}", "hard_break hard_break", true},
		{"hard_break{2}", "hard_break hard_break hard_break", false},
		{"(heading paragraph)+", "heading paragraph heading", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr+" / "+tt.types, func(t *testing.T) {
			assert.Equal(t, tt.prefix, compile(t, tt.expr).ValidPrefix(typeList(tt.types)))
		})
	}
}

func TestContentMatchDefaultType(t *testing.T) {
	assert.Equal(t, "paragraph", compile(t, "block+").DefaultType().Name)
	assert.Equal(t, "hard_break", compile(t, "(text | hard_break)*").DefaultType().Name)
	// images need a src
	assert.Nil(t, compile(t, "(text | image)*").DefaultType())
	assert.Nil(t, EmptyContentMatch.DefaultType())
}

func TestParseContentMatchErrors(t *testing.T) {
	tests := map[string]string{
		"paragraph |":       "Unexpected token",
		"(paragraph":        "Missing closing paren",
		"unknown_node":      "No node type or group",
		"paragraph{x}":      "Expected number",
		"hard_break{2":      "Unclosed braced range",
		"paragraph text":    "Mixing inline and block",
		"paragraph ) image": "Unexpected trailing text",
	}
	for expr, message := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseContentMatch(expr, schema.Nodes)
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), message)
			}
		})
	}
}
