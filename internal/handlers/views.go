package handlers

import (
	"html/template"

	"finitefield.org/shopper-web/internal/cms"
	"finitefield.org/shopper-web/internal/i18n"
	"finitefield.org/shopper-web/internal/nav"
	"finitefield.org/shopper-web/internal/seo"
)

// Layout carries the fields every page template renders around its content.
type Layout struct {
	Lang        i18n.Locale
	Path        string
	SEO         seo.Meta
	JSONLD      []template.JS
	Analytics   Analytics
	Settings    cms.SiteSettings
	Nav         []nav.RenderedItem
	Footer      []FooterSection
	Breadcrumbs []nav.Crumb
	Languages   []LanguageLink
	Year        int
}

// FooterSection groups footer links under a heading, in first-seen order.
type FooterSection struct {
	Name  string
	Links []cms.FooterLink
}

// LanguageLink points at the current page in another locale.
type LanguageLink struct {
	Code   i18n.Locale
	Label  string
	Href   string
	Active bool
}

// PageData is the view model for every page using the shared layout. Only
// the payload matching the template is populated.
type PageData struct {
	Layout

	Title       string
	Description string
	FormAction  string

	Page         cms.Page
	Home         cms.HomePage
	NotFound     cms.NotFoundPage
	Service      cms.Service
	Services     []cms.Service
	Post         cms.BlogPost
	Posts        []cms.BlogPost
	FAQ          []cms.FAQ
	Testimonials []cms.Testimonial
	Steps        []cms.Step
}

func groupFooter(links []cms.FooterLink) []FooterSection {
	var sections []FooterSection
	index := map[string]int{}
	for _, l := range links {
		i, ok := index[l.Section]
		if !ok {
			i = len(sections)
			index[l.Section] = i
			sections = append(sections, FooterSection{Name: l.Section})
		}
		sections[i].Links = append(sections[i].Links, l)
	}
	return sections
}
