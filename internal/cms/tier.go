package cms

import (
	"context"
	"errors"

	"finitefield.org/shopper-web/internal/i18n"
)

var (
	// ErrNotFound is returned when no tier holds the requested record.
	ErrNotFound = errors.New("cms: not found")
	// ErrUnsupportedLocale is returned before any tier is consulted.
	ErrUnsupportedLocale = errors.New("cms: unsupported locale")
)

// Kind names a family of content records.
type Kind string

const (
	KindPage        Kind = "pages"
	KindBlog        Kind = "blog"
	KindService     Kind = "services"
	KindFAQ         Kind = "faq"
	KindTestimonial Kind = "testimonials"
	KindHowItWorks  Kind = "howitworks"
	KindMenu        Kind = "menus"
	KindSettings    Kind = "settings"
)

// Kinds lists every kind in resolution order.
var Kinds = []Kind{KindPage, KindBlog, KindService, KindFAQ, KindTestimonial, KindHowItWorks, KindMenu, KindSettings}

// Collection is the storage name of the kind in the collection and unified tiers.
func (k Kind) Collection() string {
	switch k {
	case KindBlog:
		return "blog_entries"
	case KindService:
		return "service_entries"
	case KindFAQ:
		return "faq_entries"
	case KindTestimonial:
		return "testimonial_entries"
	case KindHowItWorks:
		return "howitworks_entries"
	default:
		return string(k)
	}
}

// Listable reports whether the kind is a collection of items.
func (k Kind) Listable() bool {
	switch k {
	case KindBlog, KindService, KindFAQ, KindTestimonial, KindHowItWorks:
		return true
	}
	return false
}

// Page keys.
const (
	PageHome         = "home"
	PageAbout        = "about"
	PageServices     = "services"
	PageTestimonials = "testimonials"
	PageFAQ          = "faq"
	PageBlog         = "blog"
	PageContact      = "contact"
	PageNotFound     = "not-found"
)

// PageKeys lists the keys accepted by GetPage.
var PageKeys = []string{PageHome, PageAbout, PageServices, PageTestimonials, PageFAQ, PageBlog, PageContact, PageNotFound}

// Menu slugs.
const (
	MenuHeader   = "header"
	MenuFooter   = "footer"
	settingsSlug = "settings"
)

// Entry is a locale projection produced by a tier.
type Entry struct {
	Slug   string
	Path   string
	Fields Record
	Body   string
	Tier   string
}

// Tier is one storage strategy in the resolution chain.
type Tier interface {
	Name() string
	// Lookup returns ErrNotFound on a miss.
	Lookup(ctx context.Context, kind Kind, slug string, loc i18n.Locale) (Entry, error)
	List(ctx context.Context, kind Kind, loc i18n.Locale) ([]Entry, error)
}

func validPageKey(key string) bool {
	for _, k := range PageKeys {
		if k == key {
			return true
		}
	}
	return false
}

// project turns a raw record into an entry for loc.
func project(tier, path, fallbackSlug string, rec Record, loc i18n.Locale) Entry {
	fields, body, _ := Split(rec, loc)
	return Entry{
		Slug:   firstNonEmpty(fields.String("slug"), fallbackSlug),
		Path:   path,
		Fields: fields,
		Body:   body,
		Tier:   tier,
	}
}
