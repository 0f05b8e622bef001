// Package markdown renders content bodies. The site's own markdown dialect is deliberately
// small: headings, bullet lists, paragraphs, inline code, bold, italic and links.
package markdown

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	headingLine = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletLine  = regexp.MustCompile(`^[-*]\s+(.*)$`)

	inlineCode = regexp.MustCompile("`([^`]+)`")
	boldText   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicText = regexp.MustCompile(`\*([^*]+)\*`)
	linkText   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

	headingPrefix = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	bulletPrefix  = regexp.MustCompile(`(?m)^[-*]\s+`)
	renderedTag   = regexp.MustCompile(`</?(?:h[1-6]|p|ul|li|code|strong|em|a)(?:\s[^>]*)?>`)
	renderedBlock = regexp.MustCompile(`^(?:<(?:h[1-6]|p|li)>.*</(?:h[1-6]|p|li)>|</?ul>)$`)
	knownEntity   = regexp.MustCompile(`&(?:amp|lt|gt|quot|#39);`)

	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
)

// Render converts md to HTML. Source text is escaped before inline markup is applied, so
// raw HTML in the input is never emitted.
func Render(md string) string {
	if md == "" {
		return ""
	}

	var out []string
	inList := false
	closeList := func() {
		if inList {
			out = append(out, "</ul>")
			inList = false
		}
	}

	for _, raw := range strings.Split(normalizeNewlines(md), "\n") {
		line := strings.TrimRightFunc(raw, unicode.IsSpace)

		if m := headingLine.FindStringSubmatch(line); m != nil {
			closeList()
			level := string(rune('0' + len(m[1])))
			out = append(out, "<h"+level+">"+renderInline(strings.TrimSpace(escaper.Replace(m[2])))+"</h"+level+">")
			continue
		}
		if m := bulletLine.FindStringSubmatch(line); m != nil {
			if !inList {
				out = append(out, "<ul>")
				inList = true
			}
			out = append(out, "<li>"+renderInline(strings.TrimSpace(escaper.Replace(m[1])))+"</li>")
			continue
		}
		if strings.TrimSpace(line) == "" {
			closeList()
			continue
		}
		closeList()
		out = append(out, "<p>"+renderInline(escaper.Replace(line))+"</p>")
	}
	closeList()

	return strings.Join(out, "\n")
}

func renderInline(s string) string {
	s = inlineCode.ReplaceAllString(s, "<code>$1</code>")
	s = boldText.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicText.ReplaceAllString(s, "<em>$1</em>")
	return linkText.ReplaceAllString(s, `<a href="$2">$1</a>`)
}

// Strip returns single-spaced plain text. Input that is Render output has its markup
// removed and entities decoded; any other input is treated as markdown, so literal HTML
// and entities an author typed are kept as written.
func Strip(md string) string {
	if md == "" {
		return ""
	}
	s := normalizeNewlines(md)
	if isRendered(s) {
		return joinLines(html.UnescapeString(renderedTag.ReplaceAllString(s, "\n")))
	}
	s = inlineCode.ReplaceAllString(s, "$1")
	s = boldText.ReplaceAllString(s, "$1")
	s = italicText.ReplaceAllString(s, "$1")
	s = linkText.ReplaceAllString(s, "$1")
	s = headingPrefix.ReplaceAllString(s, "")
	s = bulletPrefix.ReplaceAllString(s, "")
	return joinLines(s)
}

// isRendered reports whether s has the exact shape Render emits: one block element per
// line, and text that is fully escaped once the tags are gone.
func isRendered(s string) bool {
	blocks := 0
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			continue
		}
		if !renderedBlock.MatchString(line) {
			return false
		}
		blocks++
	}
	if blocks == 0 {
		return false
	}
	text := knownEntity.ReplaceAllString(renderedTag.ReplaceAllString(s, ""), "")
	return !strings.ContainsAny(text, "<>&")
}

func joinLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
