package seo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"finitefield.org/shopper-web/internal/i18n"
)

func TestAlternates(t *testing.T) {
	got := Alternates("https://shopper.example", "/es/blog/summer/", i18n.ES)
	want := []Alternate{
		{Href: "https://shopper.example/en/blog/summer/", Hreflang: "en"},
		{Href: "https://shopper.example/es/blog/summer/", Hreflang: "es"},
		{Href: "https://shopper.example/fr/blog/summer/", Hreflang: "fr"},
		{Href: "https://shopper.example/en/blog/summer/", Hreflang: "x-default"},
	}
	assert.Equal(t, want, got)

	home := Alternates("", "/fr/", i18n.FR)
	assert.Equal(t, "/es/", home[1].Href)
}

func TestPageMeta(t *testing.T) {
	m := Page("https://shopper.example/", "Shopper", "/en/about/", i18n.EN, "About", "Who we are", "/images/og.jpg")
	assert.Equal(t, "About | Shopper", m.Title)
	assert.Equal(t, "https://shopper.example/en/about/", m.Canonical)
	assert.Equal(t, "https://shopper.example/images/og.jpg", m.OG.Image)
	assert.Equal(t, "summary_large_image", m.Twitter.Card)
	assert.Equal(t, "en_US", m.OG.Locale)

	bare := Page("", "Shopper", "/en/", i18n.EN, "", "", "")
	assert.Equal(t, "Shopper", bare.Title)
	assert.Equal(t, "summary", bare.Twitter.Card)
}

func TestScriptEscapesMarkup(t *testing.T) {
	js := string(Script(FAQPage([]Question{{Name: "</script>?", Answer: "a & b"}})))
	assert.NotContains(t, js, "</script>")
	assert.True(t, strings.Contains(js, `\u003c/script\u003e`))
	assert.Contains(t, js, `"@type":"FAQPage"`)
}
