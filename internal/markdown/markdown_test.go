package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "paragraph", in: "Hello world", want: "<p>Hello world</p>"},
		{
			name: "headings",
			in:   "# Title\n###### Small  \n####### not a heading",
			want: "<h1>Title</h1>\n<h6>Small</h6>\n<p>####### not a heading</p>",
		},
		{
			name: "list closes on blank line",
			in:   "- one\n* two\n\nafter",
			want: "<ul>\n<li>one</li>\n<li>two</li>\n</ul>\n<p>after</p>",
		},
		{
			name: "list closes on paragraph",
			in:   "- one\nnext",
			want: "<ul>\n<li>one</li>\n</ul>\n<p>next</p>",
		},
		{
			name: "list closes at end",
			in:   "- only",
			want: "<ul>\n<li>only</li>\n</ul>",
		},
		{
			name: "inline order",
			in:   "Use `x+y` with **bold** and *em* see [docs](https://example.com/a)",
			want: `<p>Use <code>x+y</code> with <strong>bold</strong> and <em>em</em> see <a href="https://example.com/a">docs</a></p>`,
		},
		{
			name: "escapes before styling",
			in:   "<script>alert('x')</script> & \"q\"",
			want: "<p>&lt;script&gt;alert(&#39;x&#39;)&lt;/script&gt; &amp; &quot;q&quot;</p>",
		},
		{
			name: "crlf and blank lines emit nothing",
			in:   "a\r\n\r\n\r\nb\rc",
			want: "<p>a</p>\n<p>b</p>\n<p>c</p>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"# Title\n\n- **one**\n- *two*\n\nSee [docs](/x) and `code`", "Title one two See docs and code"},
		{"  spaced  \n\n\n  lines ", "spaced lines"},
		{"plain text", "plain text"},
		{"<p>literal</p> &amp;", "<p>literal</p> &amp;"},
		{"Quote `<p>` and **&lt;b&gt;**", "Quote <p> and &lt;b&gt;"},
		{"<h2>Title</h2>\n<ul>\n<li>a &amp; b</li>\n</ul>", "Title a & b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Strip(tt.in), "Strip(%q)", tt.in)
	}
}

func TestStripRenderRoundTrip(t *testing.T) {
	for _, in := range []string{
		"Hello world",
		"Tom & Jerry's <favourite> \"shop\"",
		"Prices from 20 EUR, 3 stores a day",
		"Una tienda en Madrid",
		"<p>literal</p> &amp;",
	} {
		assert.Equal(t, in, Strip(Render(in)), "round trip of %q", in)
	}
}

func TestToHTMLFormats(t *testing.T) {
	got := string(ToHTML("# Hi\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<script>x()</script>", FormatCommonMark))
	assert.Contains(t, got, `<h1 id="hi">Hi</h1>`)
	assert.Contains(t, got, "<table>")
	assert.NotContains(t, got, "<script>")

	got = string(ToHTML(`<p onclick="x()">Hi <a href="https://example.com">x</a></p>`, FormatHTML))
	assert.NotContains(t, got, "onclick")
	assert.Contains(t, got, `target="_blank"`)

	assert.Equal(t, "<p>plain</p>", string(ToHTML("plain", "")))
	assert.Equal(t, "<p>plain</p>", string(ToHTML("plain", "unknown")))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Hi there friend", PlainText("<h2>Hi</h2><p>there <strong>friend</strong></p><script>x()</script>", FormatHTML))
	assert.Equal(t, "Title body", PlainText("# Title\n\nbody", FormatCommonMark))
	assert.Equal(t, "Title body", PlainText("# Title\n\nbody", FormatMarkdown))
}

func TestExcerpt(t *testing.T) {
	body := strings.Repeat("word ", 40)
	got := Excerpt(body, FormatMarkdown, 20)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), 21)
	assert.Equal(t, "short", Excerpt("short", FormatMarkdown, 20))
}
