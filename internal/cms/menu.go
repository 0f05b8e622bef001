package cms

import (
	"context"
	"errors"
	"sort"
	"strings"

	"finitefield.org/shopper-web/internal/i18n"
)

// serviceLinkSuffix is stripped from a menu slug before matching it against
// service slugs ("personal-styling-service" links to "personal-styling").
const serviceLinkSuffix = "-service"

// topLevelRoutes are the page slugs with a fixed route under /<locale>/.
var topLevelRoutes = map[string]bool{
	PageHome:         true,
	PageAbout:        true,
	PageServices:     true,
	PageTestimonials: true,
	PageFAQ:          true,
	PageBlog:         true,
	PageContact:      true,
}

// RoutePath returns the path of a top-level page for loc.
func RoutePath(loc i18n.Locale, slug string) string {
	if slug == PageHome {
		return "/" + string(loc) + "/"
	}
	return "/" + string(loc) + "/" + slug + "/"
}

// ServicePath returns the detail path of a service.
func ServicePath(loc i18n.Locale, slug string) string {
	return "/" + string(loc) + "/services/" + slug + "/"
}

// PostPath returns the detail path of a blog post.
func PostPath(loc i18n.Locale, slug string) string {
	return "/" + string(loc) + "/blog/" + slug + "/"
}

func (r *Resolver) menuLinks(ctx context.Context, op, menu string, loc i18n.Locale) (links []Record, err error) {
	ctx, span := r.start(ctx, op, loc, KindMenu)
	defer func() { endSpan(span, err) }()

	if !loc.Valid() {
		return nil, ErrUnsupportedLocale
	}
	entry, err := r.lookup(ctx, KindMenu, menu, loc)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw := asRecords(entry.Fields["links"])
	links = make([]Record, 0, len(raw))
	for _, link := range raw {
		projected, _, _ := Split(link, loc)
		links = append(links, projected)
	}
	return links, nil
}

// HeaderMenu returns the header links by ascending order. A missing menu is
// empty.
func (r *Resolver) HeaderMenu(ctx context.Context, loc i18n.Locale) ([]MenuItem, error) {
	links, err := r.menuLinks(ctx, "HeaderMenu", MenuHeader, loc)
	if err != nil {
		return nil, err
	}
	items := make([]MenuItem, 0, len(links))
	for _, link := range links {
		items = append(items, MenuItem{
			Slug:   link.String("slug"),
			Order:  link.Int("order"),
			Parent: link.String("parent"),
			Text:   link.String("text"),
			Href:   link.String("url"),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, nil
}

// FooterLinks returns the footer links by ascending order. The section falls
// back to the parent field.
func (r *Resolver) FooterLinks(ctx context.Context, loc i18n.Locale) ([]FooterLink, error) {
	links, err := r.menuLinks(ctx, "FooterLinks", MenuFooter, loc)
	if err != nil {
		return nil, err
	}
	items := make([]FooterLink, 0, len(links))
	for _, link := range links {
		items = append(items, FooterLink{
			Slug:    link.String("slug"),
			Order:   link.Int("order"),
			Section: firstNonEmpty(link.String("section"), link.String("parent")),
			Text:    link.String("text"),
			Href:    link.String("url"),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, nil
}

// Navigation builds the generated header menu. Links naming a top-level page
// get that page's route, links under services whose slug matches a known
// service get the service route, and the rest keep their stored URL. Links
// are nested under the link named by their parent when it exists.
func (r *Resolver) Navigation(ctx context.Context, loc i18n.Locale) ([]NavLink, error) {
	items, err := r.HeaderMenu(ctx, loc)
	if err != nil {
		return nil, err
	}
	services := map[string]bool{}
	if hasServiceLinks(items) {
		list, err := r.ListServices(ctx, loc)
		if err != nil {
			return nil, err
		}
		for _, svc := range list {
			services[svc.Slug] = true
		}
	}

	links := make([]NavLink, 0, len(items))
	for _, item := range items {
		links = append(links, resolveNavLink(loc, item, services))
	}
	return nestLinks(links), nil
}

func hasServiceLinks(items []MenuItem) bool {
	for _, item := range items {
		if trimSlug(item.Parent) == PageServices {
			return true
		}
	}
	return false
}

func resolveNavLink(loc i18n.Locale, item MenuItem, services map[string]bool) NavLink {
	link := NavLink{
		Slug:   item.Slug,
		Text:   firstNonEmpty(item.Text, item.Slug),
		Href:   item.Href,
		Order:  item.Order,
		Parent: trimSlug(item.Parent),
	}
	slug := trimSlug(item.Slug)
	switch {
	case topLevelRoutes[slug]:
		link.Href = RoutePath(loc, slug)
		link.Route = true
	case link.Parent == PageServices:
		svc := strings.TrimSuffix(slug, serviceLinkSuffix)
		if services[svc] {
			link.Href = ServicePath(loc, svc)
			link.Route = true
		}
	}
	return link
}

// nestLinks moves links under their parent link, keeping order at each level.
func nestLinks(links []NavLink) []NavLink {
	index := map[string]int{}
	for i, link := range links {
		if link.Parent == "" {
			if _, seen := index[link.Slug]; !seen {
				index[link.Slug] = i
			}
		}
	}
	children := map[int][]NavLink{}
	var roots []int
	for i, link := range links {
		if p, ok := index[link.Parent]; ok && link.Parent != "" && p != i {
			children[p] = append(children[p], link)
			continue
		}
		roots = append(roots, i)
	}
	out := make([]NavLink, 0, len(roots))
	for _, i := range roots {
		link := links[i]
		link.Children = children[i]
		out = append(out, link)
	}
	return out
}
