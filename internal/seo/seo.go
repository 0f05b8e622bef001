package seo

import (
	"strings"

	"finitefield.org/shopper-web/internal/i18n"
)

type OpenGraph struct {
	Title       string
	Description string
	Image       string
	Type        string
	URL         string
	SiteName    string
	Locale      string
}

type Twitter struct {
	Card  string
	Image string
}

// Alternate is one hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

type Meta struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          OpenGraph
	Twitter     Twitter
	Alternates  []Alternate
}

// ogLocales maps site locales to og:locale values.
var ogLocales = map[i18n.Locale]string{
	i18n.EN: "en_US",
	i18n.ES: "es_ES",
	i18n.FR: "fr_FR",
}

// Absolute joins origin and a site path. Absolute URLs pass through.
func Absolute(origin, p string) string {
	if p == "" || strings.Contains(p, "://") || origin == "" {
		return p
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(p, "/")
}

// Alternates lists the same page in every supported locale plus x-default.
// currentPath must start with the locale prefix of loc.
func Alternates(origin, currentPath string, loc i18n.Locale) []Alternate {
	rest := strings.TrimPrefix(currentPath, "/"+loc.String())
	if rest == "" {
		rest = "/"
	}
	out := make([]Alternate, 0, len(i18n.Supported)+1)
	for _, l := range i18n.Supported {
		out = append(out, Alternate{Href: Absolute(origin, "/"+l.String()+rest), Hreflang: l.String()})
	}
	out = append(out, Alternate{Href: Absolute(origin, "/"+i18n.Default.String()+rest), Hreflang: "x-default"})
	return out
}

// Page assembles the meta block for a localized page.
func Page(origin, siteName, currentPath string, loc i18n.Locale, title, description, image string) Meta {
	canonical := Absolute(origin, currentPath)
	img := Absolute(origin, image)
	fullTitle := title
	if siteName != "" && title != "" && title != siteName {
		fullTitle = title + " | " + siteName
	} else if title == "" {
		fullTitle = siteName
	}
	card := "summary"
	if img != "" {
		card = "summary_large_image"
	}
	return Meta{
		Title:       fullTitle,
		Description: description,
		Canonical:   canonical,
		OG: OpenGraph{
			Title:       title,
			Description: description,
			Image:       img,
			Type:        "website",
			URL:         canonical,
			SiteName:    siteName,
			Locale:      ogLocales[loc],
		},
		Twitter:    Twitter{Card: card, Image: img},
		Alternates: Alternates(origin, currentPath, loc),
	}
}
