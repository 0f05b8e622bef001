package cms

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"finitefield.org/shopper-web/internal/frontmatter"
	"finitefield.org/shopper-web/internal/i18n"
)

const legacySampleSize = 10

// LegacyTier reads per-locale markdown files with a frontmatter header:
// <root>/<locale>/<key>.md for pages and <root>/<kind>/<locale>/<slug>.md for
// collection items. Menus and settings have no legacy form.
type LegacyTier struct {
	root      string
	opts      tierOptions
	debugOnce sync.Once
}

// NewLegacyTier returns a tier rooted at root.
func NewLegacyTier(root string, opts ...TierOption) *LegacyTier {
	return &LegacyTier{root: root, opts: applyTierOptions(opts)}
}

func (t *LegacyTier) Name() string { return "legacy" }

func (t *LegacyTier) dir(kind Kind, loc i18n.Locale) string {
	if kind == KindPage {
		return filepath.Join(t.root, string(loc))
	}
	return filepath.Join(t.root, string(kind), string(loc))
}

func (t *LegacyTier) Lookup(ctx context.Context, kind Kind, slug string, loc i18n.Locale) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if kind == KindMenu || kind == KindSettings {
		return Entry{}, ErrNotFound
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Entry{}, ErrNotFound
	}
	file := filepath.Join(t.dir(kind, loc), slug+".md")
	entry, err := t.read(file, slug, loc)
	if errors.Is(err, fs.ErrNotExist) {
		if kind == KindPage {
			t.debugMiss(file)
		}
		return Entry{}, ErrNotFound
	}
	return entry, err
}

func (t *LegacyTier) List(ctx context.Context, kind Kind, loc i18n.Locale) ([]Entry, error) {
	if !kind.Listable() {
		return nil, ErrNotFound
	}
	dir := t.dir(kind, loc)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Entry
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := de.Name()
		if de.IsDir() || filepath.Ext(name) != ".md" {
			continue
		}
		entry, err := t.read(filepath.Join(dir, name), strings.TrimSuffix(name, ".md"), loc)
		if err != nil {
			t.opts.logger.Warn("cms: unreadable content file", zap.String("path", name), zap.Error(err))
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (t *LegacyTier) read(file, slug string, loc i18n.Locale) (Entry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Entry{}, err
	}
	fields, body := frontmatter.Parse(string(data))
	projected, _, _ := Split(Record(fields), loc)
	return Entry{
		Slug:   slug,
		Path:   relativePath(t.root, file),
		Fields: projected,
		Body:   body,
		Tier:   t.Name(),
	}, nil
}

// debugMiss logs a sample of the available files the first time a page is
// missing in development.
func (t *LegacyTier) debugMiss(path string) {
	if !t.opts.dev {
		return
	}
	t.debugOnce.Do(func() {
		t.opts.logger.Warn("cms: legacy content miss",
			zap.String("path", relativePath(t.root, path)),
			zap.Strings("sample", t.sample(legacySampleSize)),
		)
	})
}

func (t *LegacyTier) sample(limit int) []string {
	var files []string
	_ = filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && filepath.Ext(path) == ".md" {
			files = append(files, relativePath(t.root, path))
		}
		return nil
	})
	sort.Strings(files)
	if len(files) > limit {
		files = files[:limit]
	}
	return files
}
