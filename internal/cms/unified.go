package cms

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/shopper-web/internal/i18n"
)

const unifiedLoadConcurrency = 8

// UnifiedTier reads one YAML file per record with every locale inside it:
// <root>/<collection>/<slug>.yml, <root>/pages/<key>.yml,
// <root>/menus/<menu>.yml and <root>/settings.yml.
type UnifiedTier struct {
	root string
	opts tierOptions
}

// NewUnifiedTier returns a tier rooted at root.
func NewUnifiedTier(root string, opts ...TierOption) *UnifiedTier {
	return &UnifiedTier{root: root, opts: applyTierOptions(opts)}
}

func (t *UnifiedTier) Name() string { return "unified" }

func (t *UnifiedTier) file(kind Kind, slug string) string {
	if kind == KindSettings {
		return filepath.Join(t.root, "settings.yml")
	}
	return filepath.Join(t.root, kind.Collection(), slug+".yml")
}

func (t *UnifiedTier) Lookup(ctx context.Context, kind Kind, slug string, loc i18n.Locale) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if kind != KindSettings {
		slug = sanitizeSlug(slug)
		if slug == "" {
			return Entry{}, ErrNotFound
		}
	}
	file := t.file(kind, slug)
	rec, err := readRecordFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrNotFound
		}
		t.opts.logger.Warn("cms: unreadable content file", zap.String("path", file), zap.Error(err))
		return Entry{}, ErrNotFound
	}
	return project(t.Name(), relativePath(t.root, file), slug, rec, loc), nil
}

// List loads every file of the kind's directory concurrently. Entries keep
// file-name order; unreadable files are skipped.
func (t *UnifiedTier) List(ctx context.Context, kind Kind, loc i18n.Locale) ([]Entry, error) {
	if !kind.Listable() {
		return nil, ErrNotFound
	}
	files, err := listRecordFiles(filepath.Join(t.root, kind.Collection()))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	records := make([]Record, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(unifiedLoadConcurrency)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := readRecordFile(file)
			if err != nil {
				t.opts.logger.Warn("cms: unreadable content file", zap.String("path", file), zap.Error(err))
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(files))
	for i, rec := range records {
		if rec == nil {
			continue
		}
		out = append(out, project(t.Name(), relativePath(t.root, files[i]), recordID(files[i]), rec, loc))
	}
	return out, nil
}

// Check validates every unified file against its collection schema.
func (t *UnifiedTier) Check(ctx context.Context, validator *Validator) ([]error, error) {
	var failures []error
	for _, kind := range Kinds {
		collection := kind.Collection()
		var files []string
		if kind == KindSettings {
			files = []string{t.file(kind, "")}
		} else {
			var err error
			if files, err = listRecordFiles(filepath.Join(t.root, collection)); err != nil {
				return nil, err
			}
		}
		for _, file := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rec, err := readRecordFile(file)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err == nil {
				err = validator.Validate(collection, withSlug(collection, SourceRecord{ID: recordID(file), Record: rec}))
			}
			if err != nil {
				failures = append(failures, &RecordError{Path: relativePath(t.root, file), Err: err})
			}
		}
	}
	return failures, nil
}
