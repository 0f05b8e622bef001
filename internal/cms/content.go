package cms

import (
	"html/template"
	"time"

	"finitefield.org/shopper-web/internal/i18n"
	"finitefield.org/shopper-web/internal/markdown"
)

// Page is a resolved record for one locale. Frontmatter never carries locale
// suffixes.
type Page struct {
	Locale      i18n.Locale
	Path        string
	Slug        string
	Frontmatter Record
	Body        string
	Format      string
	Tier        string
}

func newPage(loc i18n.Locale, e Entry) Page {
	fm := e.Fields
	if fm == nil {
		fm = Record{}
	}
	return Page{
		Locale:      loc,
		Path:        e.Path,
		Slug:        e.Slug,
		Frontmatter: fm,
		Body:        e.Body,
		Format:      markdown.NormalizeFormat(fm.String("format")),
		Tier:        e.Tier,
	}
}

// HTML renders the body in its declared format.
func (p Page) HTML() template.HTML {
	return markdown.ToHTML(p.Body, p.Format)
}

// Excerpt is a plain-text preview of the body.
func (p Page) Excerpt(limit int) string {
	return markdown.Excerpt(p.Body, p.Format, limit)
}

// Field returns a frontmatter string.
func (p Page) Field(key string) string { return p.Frontmatter.String(key) }

// BlogPost is a normalised blog entry. Date is zero when missing or unparsable.
type BlogPost struct {
	Page
	Title       string
	Description string
	Image       string
	Author      string
	Date        time.Time
}

type Service struct {
	Page
	Title       string
	Description string
	Image       string
	Price       string
	Order       int
}

type FAQ struct {
	Page
	Question string
	Order    int
}

type Testimonial struct {
	Page
	Title  string
	Author string
	Role   string
	Avatar string
	Rating int
	Order  int
}

// Step is a how-it-works entry.
type Step struct {
	Page
	Title       string
	Description string
	Icon        string
	LinkText    string
	LinkHref    string
	Order       int
}

// MenuItem is one header menu link.
type MenuItem struct {
	Slug   string
	Order  int
	Parent string
	Text   string
	Href   string
}

// FooterLink is one footer link grouped by section.
type FooterLink struct {
	Slug    string
	Order   int
	Section string
	Text    string
	Href    string
}

// NavLink is a header link with its route resolved against known pages and
// services. Children hold links whose parent is this link's slug.
type NavLink struct {
	Slug     string
	Text     string
	Href     string
	Order    int
	Parent   string
	Route    bool
	Children []NavLink
}

type HomePage struct {
	Page
	Title                string
	Description          string
	HeroTitle            string
	HeroSubtitle         string
	HeroCTAText          string
	HeroCTAHref          string
	HeroSecondaryCTAText string
	HeroSecondaryCTAHref string
	HeroImage            string
	HeroImageAlt         string
	ServicesTitle        string
	ServicesDescription  string
	ServicesCTAText      string
	ServicesCTAHref      string
	StepsTitle           string
	CTAText              string
	CTADescription       string
	CTALinkText          string
	CTALinkHref          string
}

type NotFoundPage struct {
	Page
	Title       string
	Description string
	CTAText     string
	CTAHref     string
}

// SiteSettings holds the singleton site configuration record.
type SiteSettings struct {
	LogoSrc           string
	LogoHref          string
	LogoText          string
	LogoAlt           string
	OGImage           string
	HeaderCTAText     string
	HeaderCTAHref     string
	FooterDescription string
}

func normalizeHome(page Page) HomePage {
	fm := page.Frontmatter
	d := homeDefaults[page.Locale]
	return HomePage{
		Page:                 page,
		Title:                firstNonEmpty(fm.String("title"), d.String("title")),
		Description:          firstNonEmpty(fm.String("description"), d.String("description")),
		HeroTitle:            firstNonEmpty(fm.String("hero_title"), fm.String("title"), d.String("hero_title")),
		HeroSubtitle:         firstNonEmpty(fm.String("hero_subtitle"), fm.String("description"), d.String("hero_subtitle")),
		HeroCTAText:          firstNonEmpty(fm.String("hero_cta_text"), d.String("hero_cta_text")),
		HeroCTAHref:          firstNonEmpty(fm.String("hero_cta_href"), d.String("hero_cta_href")),
		HeroSecondaryCTAText: fm.String("hero_secondary_cta_text"),
		HeroSecondaryCTAHref: fm.String("hero_secondary_cta_href"),
		HeroImage:            fm.String("hero_image"),
		HeroImageAlt:         firstNonEmpty(fm.String("hero_image_alt"), d.String("hero_image_alt")),
		ServicesTitle:        fm.String("services_title"),
		ServicesDescription:  fm.String("services_description"),
		ServicesCTAText:      fm.String("services_cta_text"),
		ServicesCTAHref:      fm.String("services_cta_href"),
		StepsTitle:           fm.String("steps_title"),
		CTAText:              fm.String("cta_text"),
		CTADescription:       fm.String("cta_description"),
		CTALinkText:          fm.String("cta_link_text"),
		CTALinkHref:          fm.String("cta_link_href"),
	}
}

func normalizeNotFound(page Page) NotFoundPage {
	fm := page.Frontmatter
	d := notFoundDefaults[page.Locale]
	return NotFoundPage{
		Page:        page,
		Title:       firstNonEmpty(fm.String("title"), d.String("title")),
		Description: firstNonEmpty(fm.String("description"), d.String("description")),
		CTAText:     firstNonEmpty(fm.String("cta_text"), d.String("cta_text")),
		CTAHref:     firstNonEmpty(fm.String("cta_href"), d.String("cta_href")),
	}
}

func normalizePost(page Page) BlogPost {
	fm := page.Frontmatter
	return BlogPost{
		Page:        page,
		Title:       firstNonEmpty(fm.String("title"), page.Slug),
		Description: fm.String("description"),
		Image:       fm.String("image"),
		Author:      fm.String("author"),
		Date:        fm.Time("date"),
	}
}

func normalizeService(page Page) Service {
	fm := page.Frontmatter
	return Service{
		Page:        page,
		Title:       firstNonEmpty(fm.String("title"), page.Slug),
		Description: fm.String("description"),
		Image:       fm.String("image"),
		Price:       fm.String("price"),
		Order:       fm.Int("order"),
	}
}

func normalizeFAQ(page Page) FAQ {
	fm := page.Frontmatter
	return FAQ{
		Page:     page,
		Question: firstNonEmpty(fm.String("question"), page.Slug),
		Order:    fm.Int("order"),
	}
}

func normalizeTestimonial(page Page) Testimonial {
	fm := page.Frontmatter
	return Testimonial{
		Page:   page,
		Title:  firstNonEmpty(fm.String("title"), page.Slug),
		Author: fm.String("author"),
		Role:   fm.String("role"),
		Avatar: fm.String("avatar"),
		Rating: fm.Int("rating"),
		Order:  fm.Int("order"),
	}
}

func normalizeStep(page Page) Step {
	fm := page.Frontmatter
	return Step{
		Page:        page,
		Title:       firstNonEmpty(fm.String("title"), page.Slug),
		Description: fm.String("description"),
		Icon:        fm.String("icon"),
		LinkText:    fm.String("link_text"),
		LinkHref:    fm.String("link_href"),
		Order:       fm.Int("order"),
	}
}

func normalizeSettings(fm Record) SiteSettings {
	return SiteSettings{
		LogoSrc:           fm.String("logo_src"),
		LogoHref:          fm.String("logo_href"),
		LogoText:          fm.String("logo_text"),
		LogoAlt:           fm.String("logo_alt"),
		OGImage:           fm.String("og_image"),
		HeaderCTAText:     fm.String("header_cta_text"),
		HeaderCTAHref:     fm.String("header_cta_href"),
		FooterDescription: fm.String("footer_description"),
	}
}
