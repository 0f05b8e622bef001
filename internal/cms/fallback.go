package cms

import (
	"context"

	"finitefield.org/shopper-web/internal/i18n"
)

// homeDefaults and notFoundDefaults back the home and not-found pages when no
// storage tier holds them, and fill fields a stored record leaves empty.
var homeDefaults = map[i18n.Locale]Record{
	i18n.EN: {
		"title":          "Personal Shopper – EN",
		"description":    "Personal shopper services in Canada",
		"hero_title":     "Personal Shopper in Canada",
		"hero_subtitle":  "Personal shopping and styling services in Canada.",
		"hero_cta_text":  "Book a consult",
		"hero_cta_href":  "/en/contact",
		"hero_image_alt": "Personal Shopper",
	},
	i18n.ES: {
		"title":          "Personal Shopper – ES",
		"description":    "Servicios de personal shopper en Canadá",
		"hero_title":     "Personal Shopper en Canadá",
		"hero_subtitle":  "Servicios de personal shopper en Canadá.",
		"hero_cta_text":  "Reservar",
		"hero_cta_href":  "/es/contact",
		"hero_image_alt": "Personal Shopper",
	},
	i18n.FR: {
		"title":          "Personal Shopper – FR",
		"description":    "Services de personal shopper au Canada",
		"hero_title":     "Personal Shopper au Canada",
		"hero_subtitle":  "Services de personal shopper au Canada.",
		"hero_cta_text":  "Réserver",
		"hero_cta_href":  "/fr/contact",
		"hero_image_alt": "Personal Shopper",
	},
}

var notFoundDefaults = map[i18n.Locale]Record{
	i18n.EN: {
		"title":       "Page not found",
		"description": "The page you're looking for doesn’t exist or was moved.",
		"cta_text":    "Back to home",
		"cta_href":    "/en",
	},
	i18n.ES: {
		"title":       "Página no encontrada",
		"description": "La página que buscas no existe o se ha movido.",
		"cta_text":    "Volver al inicio",
		"cta_href":    "/es",
	},
	i18n.FR: {
		"title":       "Page introuvable",
		"description": "La page que vous cherchez n’existe pas ou a été déplacée.",
		"cta_text":    "Retour à l’accueil",
		"cta_href":    "/fr",
	},
}

func staticDefaults(key string, loc i18n.Locale) Record {
	switch key {
	case PageHome:
		return homeDefaults[loc]
	case PageNotFound:
		return notFoundDefaults[loc]
	}
	return nil
}

// StaticTier is the last tier of the chain: built-in records for the home and
// not-found pages.
type StaticTier struct{}

// NewStaticTier returns the built-in defaults tier.
func NewStaticTier() StaticTier { return StaticTier{} }

func (StaticTier) Name() string { return "static" }

func (t StaticTier) Lookup(_ context.Context, kind Kind, slug string, loc i18n.Locale) (Entry, error) {
	if kind != KindPage {
		return Entry{}, ErrNotFound
	}
	rec := staticDefaults(slug, loc)
	if rec == nil {
		return Entry{}, ErrNotFound
	}
	return Entry{
		Slug:   slug,
		Path:   "static://pages/" + slug,
		Fields: rec.Clone(),
		Tier:   t.Name(),
	}, nil
}

func (StaticTier) List(context.Context, Kind, i18n.Locale) ([]Entry, error) {
	return nil, ErrNotFound
}
