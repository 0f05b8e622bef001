package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed locales/*.json
var embedded embed.FS

// Bundle holds the UI dictionaries for every published locale.
type Bundle struct {
	dict     map[Locale]map[string]string
	fallback Locale
}

// DefaultBundle returns the bundle compiled into the binary.
func DefaultBundle() (*Bundle, error) {
	return Load(embedded, "locales")
}

// Load reads <dir>/<locale>.json for every supported locale. Only the default locale's
// dictionary is mandatory.
func Load(fsys fs.FS, dir string) (*Bundle, error) {
	b := &Bundle{
		dict:     map[Locale]map[string]string{},
		fallback: Default,
	}
	for _, l := range Supported {
		raw, err := fs.ReadFile(fsys, path.Join(dir, string(l)+".json"))
		if err != nil {
			if l == b.fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		b.dict[l] = m
	}
	return b, nil
}

// Fallback returns the locale used for missing keys.
func (b *Bundle) Fallback() Locale { return b.fallback }

// T returns the translation for key in l, falling back to the default locale and finally the key.
func (b *Bundle) T(l Locale, key string) string {
	if m, ok := b.dict[l]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Tf formats the translation with fmt.Sprintf verbs.
func (b *Bundle) Tf(l Locale, key string, args ...any) string {
	return fmt.Sprintf(b.T(l, key), args...)
}

// Missing lists keys present in the default dictionary but absent from l.
func (b *Bundle) Missing(l Locale) []string {
	var out []string
	target := b.dict[l]
	for key := range b.dict[b.fallback] {
		if _, ok := target[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
