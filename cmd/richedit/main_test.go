package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, command string, opts options, post string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(command, opts, strings.NewReader(post), &out, logger)
	return out.String(), err
}

func TestNormalize(t *testing.T) {
	out, err := runCommand(t, "normalize", options{}, "<p>a <b>bold</b> move</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>a <strong>bold</strong> move</p>\n", out)

	_, err = runCommand(t, "normalize", options{}, "<p>unclosed")
	assert.Error(t, err)
	_, err = runCommand(t, "normalize", options{}, "<table><tr><td>x</td></tr></table>")
	assert.Error(t, err)
}

func TestNormalizeMinify(t *testing.T) {
	full, err := runCommand(t, "normalize", options{}, "<p>a</p><p>b</p>")
	require.NoError(t, err)
	short, err := runCommand(t, "normalize", options{minify: true}, "<p>a</p><p>b</p>")
	require.NoError(t, err)
	assert.Less(t, len(short), len(full))
}

func TestMarkdown(t *testing.T) {
	out, err := runCommand(t, "markdown", options{}, "<h1>Patch</h1><p>new <em>maps</em></p>")
	require.NoError(t, err)
	assert.Equal(t, "# Patch\n\nnew *maps*\n", out)
}

func TestUploads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "editor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("media:\n  hosts: [cdn.gamedesk.example]\n"), 0o600))

	post := `<p><img src="https://cdn.gamedesk.example/a.png"><img src="https://elsewhere.example/b.png"></p>`
	out, err := runCommand(t, "uploads", options{configPath: path}, post)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 1)
	id, src, ok := strings.Cut(lines[0], "\t")
	require.True(t, ok)
	assert.Equal(t, "https://elsewhere.example/b.png", src)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRunErrors(t *testing.T) {
	_, err := runCommand(t, "publish", options{}, "<p>x</p>")
	assert.ErrorContains(t, err, "unknown command")
	_, err = runCommand(t, "normalize", options{configPath: "missing.yaml"}, "<p>x</p>")
	assert.Error(t, err)
}
