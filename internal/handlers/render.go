package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"finitefield.org/shopper-web/internal/cms"
	"finitefield.org/shopper-web/internal/format"
	"finitefield.org/shopper-web/internal/i18n"
	"finitefield.org/shopper-web/templates"
)

// Renderer executes the "base" layout around one page template. In dev mode
// templates are reparsed on each request.
type Renderer struct {
	fsys  fs.FS
	funcs template.FuncMap
	dev   bool
	cache map[string]*template.Template
}

// NewRenderer parses every page in fsys. Parsing happens eagerly even in dev
// mode so broken templates fail at startup.
func NewRenderer(fsys fs.FS, funcs template.FuncMap, dev bool) (*Renderer, error) {
	r := &Renderer{fsys: fsys, funcs: funcs, dev: dev}
	cache, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

func (r *Renderer) parse() (map[string]*template.Template, error) {
	files, err := fs.Glob(r.fsys, "*.tmpl")
	if err != nil {
		return nil, err
	}
	sets := map[string]*template.Template{}
	for _, file := range files {
		if file == templates.Layout {
			continue
		}
		name := strings.TrimSuffix(file, ".tmpl")
		t, err := template.New(name).Funcs(r.funcs).ParseFS(r.fsys, templates.Layout, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		sets[name] = t
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no page templates found")
	}
	return sets, nil
}

// Render writes page name with status. Output is buffered so a failing
// template never leaves a half-written 200.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	sets := r.cache
	if r.dev {
		reparsed, err := r.parse()
		if err != nil {
			return err
		}
		sets = reparsed
	}
	t, ok := sets[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// TemplateFuncs exposes translations, formatting and route helpers.
func TemplateFuncs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"t": func(l i18n.Locale, key string) string { return bundle.T(l, key) },
		"tf": func(l i18n.Locale, key string, args ...any) string {
			return bundle.Tf(l, key, args...)
		},
		"date":        format.FmtDate,
		"isodate":     format.ISODate,
		"stars":       format.Stars,
		"routePath":   cms.RoutePath,
		"servicePath": cms.ServicePath,
		"postPath":    cms.PostPath,
		"dict":        dict,
	}
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
