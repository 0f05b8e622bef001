package nav

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"finitefield.org/shopper-web/internal/cms"
	"finitefield.org/shopper-web/internal/i18n"
)

type dict map[string]string

func (d dict) T(_ i18n.Locale, key string) string {
	if v, ok := d[key]; ok {
		return v
	}
	return key
}

func TestBuildMarksActive(t *testing.T) {
	links := []cms.NavLink{
		{Slug: "home", Text: "Inicio", Href: "/es/"},
		{Slug: "services", Text: "Servicios", Href: "/es/services/", Children: []cms.NavLink{
			{Slug: "styling-service", Text: "Estilismo", Href: "/es/services/styling/"},
		}},
		{Slug: "shop", Text: "Tienda", Href: "https://shop.example.com/"},
	}

	got := Build(links, "/es/services/styling/")
	want := []RenderedItem{
		{Href: "/es/", Text: "Inicio", Children: []RenderedItem{}},
		{Href: "/es/services/", Text: "Servicios", Active: true, Children: []RenderedItem{
			{Href: "/es/services/styling/", Text: "Estilismo", Active: true, Children: []RenderedItem{}},
		}},
		{Href: "https://shop.example.com/", Text: "Tienda", Children: []RenderedItem{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Build mismatch (-want +got):\n%s", diff)
	}

	home := Build(links[:1], "/es/")
	if !home[0].Active {
		t.Fatalf("expected home active on /es/")
	}
}

func TestBreadcrumbs(t *testing.T) {
	tr := dict{"breadcrumb.home": "Inicio", "breadcrumb.blog": "Blog"}

	got := Breadcrumbs(tr, i18n.ES, "/es/blog/summer-capsule/", "")
	want := []Crumb{
		{Href: "/es/", Label: "Inicio"},
		{Href: "/es/blog/", Label: "Blog"},
		{Href: "/es/blog/summer-capsule/", Label: "Summer Capsule", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Breadcrumbs mismatch (-want +got):\n%s", diff)
	}

	titled := Breadcrumbs(tr, i18n.ES, "/es/blog/summer-capsule", "Cápsula de verano")
	if titled[2].Label != "Cápsula de verano" {
		t.Fatalf("expected title to label last crumb, got %q", titled[2].Label)
	}

	root := Breadcrumbs(tr, i18n.ES, "/es/", "")
	if len(root) != 1 || !root[0].Active {
		t.Fatalf("expected single active home crumb, got %+v", root)
	}

	unknown := Breadcrumbs(tr, i18n.FR, "/fr/gift_guide/", "")
	if unknown[1].Label != "Gift Guide" {
		t.Fatalf("expected title-cased fallback label, got %q", unknown[1].Label)
	}
}
