package frontmatter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantFields Fields
		wantBody   string
	}{
		{
			name:       "no header",
			raw:        "no frontmatter here",
			wantFields: Fields{},
			wantBody:   "no frontmatter here",
		},
		{
			name:       "simple header",
			raw:        "---\ntitle: Hello\n---\nBody text",
			wantFields: Fields{"title": "Hello"},
			wantBody:   "Body text",
		},
		{
			name:       "unterminated header",
			raw:        "---\ntitle: Hello\nBody text",
			wantFields: Fields{},
			wantBody:   "---\ntitle: Hello\nBody text",
		},
		{
			name: "quotes booleans and dates",
			raw: "---\r\ntitle: \"Quoted: value\"\r\nsubtitle: 'single'\r\ndraft: true\r\n" +
				"featured: false\r\ndate: 2024-06-01\r\nlabel: \"true\"\r\nnot a field\r\n---\r\n\n  # Heading\n",
			wantFields: Fields{
				"title":    "Quoted: value",
				"subtitle": "single",
				"draft":    true,
				"featured": false,
				"date":     "2024-06-01",
				"label":    true,
			},
			wantBody: "# Heading\n",
		},
		{
			name:       "mismatched quotes kept",
			raw:        "---\nhref: \"/en/contact'\n---\n",
			wantFields: Fields{"href": "\"/en/contact'"},
			wantBody:   "",
		},
		{
			name:       "empty header",
			raw:        "---\n---\nBody",
			wantFields: Fields{},
			wantBody:   "Body",
		},
		{
			name:       "empty value",
			raw:        "---\nimage:\nslug-name: a_b\n---\nx",
			wantFields: Fields{"image": "", "slug-name": "a_b"},
			wantBody:   "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, body := Parse(tt.raw)
			if diff := cmp.Diff(tt.wantFields, fields); diff != "" {
				t.Errorf("fields mismatch (-want +got):\n%s", diff)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestFieldsAccessors(t *testing.T) {
	f := Fields{"title": "Hi", "draft": true, "count": 3}
	if f.String("title") != "Hi" || f.String("draft") != "" || f.String("missing") != "" {
		t.Errorf("unexpected String results")
	}
	if v, ok := f.Bool("draft"); !ok || !v {
		t.Errorf("expected draft=true")
	}
	if _, ok := f.Bool("title"); ok {
		t.Errorf("expected title not to be a bool")
	}
	var empty Fields
	if empty.String("x") != "" {
		t.Errorf("nil Fields should be safe")
	}
}
