package markdown

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// WordsPerMinute is the reading speed used for read time estimates.
const WordsPerMinute = 200

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
		htmlrenderer.WithUnsafe(),
	),
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Render converts story content to sanitized HTML. Raw HTML in the source is
// passed through goldmark and then filtered by the UGC policy.
func Render(content string) string {
	text := strings.TrimSpace(content)
	if text == "" {
		return ""
	}

	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return html.EscapeString(text)
	}
	return sanitizer.Sanitize(out.String())
}

// PlainText returns content with all markup removed.
func PlainText(content string) string {
	rendered := Render(content)
	if rendered == "" {
		return ""
	}
	return html.UnescapeString(stripper.Sanitize(rendered))
}

// WordCount counts whitespace separated words of the visible text.
func WordCount(content string) int {
	return len(strings.Fields(PlainText(content)))
}

// ReadTime returns the estimated reading time in whole minutes, rounded down.
func ReadTime(content string) int {
	return WordCount(content) / WordsPerMinute
}
