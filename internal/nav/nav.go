package nav

import (
	"path"
	"strings"

	"golang.org/x/text/cases"

	"finitefield.org/shopper-web/internal/cms"
	"finitefield.org/shopper-web/internal/i18n"
)

// Translator looks up UI strings.
type Translator interface {
	T(l i18n.Locale, key string) string
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href     string
	Text     string
	Active   bool
	Children []RenderedItem
}

// Crumb represents a breadcrumb entry.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// Build renders navigation links with active state given the current path.
// A parent is active when any of its children is.
func Build(links []cms.NavLink, currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	items := make([]RenderedItem, 0, len(links))
	for _, l := range links {
		item := RenderedItem{
			Href:     l.Href,
			Text:     l.Text,
			Active:   isActive(l.Href, currentPath),
			Children: Build(l.Children, currentPath),
		}
		for _, c := range item.Children {
			if c.Active {
				item.Active = true
			}
		}
		items = append(items, item)
	}
	return items
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "" || strings.Contains(itemPath, "://") {
		return false
	}
	itemPath = strings.TrimSuffix(itemPath, "/")
	currentPath = strings.TrimSuffix(currentPath, "/")
	if itemPath == "" {
		return currentPath == ""
	}
	if currentPath == itemPath {
		return true
	}
	// the locale home only matches itself
	if _, ok := localeRoot(itemPath); ok {
		return false
	}
	return strings.HasPrefix(currentPath, itemPath+"/")
}

func localeRoot(p string) (i18n.Locale, bool) {
	loc := i18n.Locale(strings.Trim(p, "/"))
	return loc, loc.Valid()
}

// Breadcrumbs builds breadcrumb entries for a localized path such as
// /es/blog/summer-capsule/. Known sections use the breadcrumb.<section> keys,
// deeper segments are title-cased, and title (when set) labels the last crumb.
func Breadcrumbs(tr Translator, loc i18n.Locale, currentPath, title string) []Crumb {
	home := cms.RoutePath(loc, cms.PageHome)
	crumbs := []Crumb{{Href: home, Label: tr.T(loc, "breadcrumb.home")}}

	clean := path.Clean("/" + strings.Trim(currentPath, "/"))
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if len(parts) > 0 && parts[0] == loc.String() {
		parts = parts[1:]
	}
	if len(parts) == 0 || parts[0] == "" {
		crumbs[0].Active = true
		return crumbs
	}

	href := home
	caser := cases.Title(loc.Tag())
	for i, seg := range parts {
		href += seg + "/"
		label := ""
		if i == 0 {
			if v := tr.T(loc, "breadcrumb."+seg); v != "breadcrumb."+seg {
				label = v
			}
		}
		if label == "" {
			label = caser.String(strings.NewReplacer("-", " ", "_", " ").Replace(seg))
		}
		crumbs = append(crumbs, Crumb{Href: href, Label: label})
	}
	last := &crumbs[len(crumbs)-1]
	last.Active = true
	if title != "" {
		last.Label = title
	}
	return crumbs
}
