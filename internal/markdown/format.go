package markdown

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/net/html"
)

// Body formats a content record may declare.
const (
	FormatMarkdown   = "markdown"
	FormatCommonMark = "commonmark"
	FormatHTML       = "html"
)

var (
	commonMark = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	sanitizer = newBodyPolicy()
)

func newBodyPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	policy.RequireNoFollowOnLinks(false)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// NormalizeFormat maps a declared format to a supported one.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCommonMark, "gfm", "md-full":
		return FormatCommonMark
	case FormatHTML:
		return FormatHTML
	default:
		return FormatMarkdown
	}
}

// ToHTML renders body according to format. The result is safe to embed in a page.
func ToHTML(body, format string) template.HTML {
	switch NormalizeFormat(format) {
	case FormatCommonMark:
		var buf bytes.Buffer
		if err := commonMark.Convert([]byte(body), &buf); err != nil {
			// goldmark only fails on writer errors; fall back to the plain dialect.
			return template.HTML(Render(body))
		}
		return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
	case FormatHTML:
		return template.HTML(sanitizer.Sanitize(body))
	default:
		return template.HTML(Render(body))
	}
}

// PlainText returns body as single-spaced text, for descriptions and previews.
func PlainText(body, format string) string {
	switch NormalizeFormat(format) {
	case FormatCommonMark, FormatHTML:
		return textContent(string(ToHTML(body, format)))
	default:
		return Strip(body)
	}
}

// Excerpt shortens PlainText output to at most limit runes, cutting at a word boundary.
func Excerpt(body, format string, limit int) string {
	text := PlainText(body, format)
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true, "tr": true, "td": true,
	"th": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "hr": true, "section": true, "article": true,
}

func textContent(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
			}
			if blockTags[tag] {
				sb.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		}
	}
}
