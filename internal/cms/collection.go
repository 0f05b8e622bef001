package cms

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"finitefield.org/shopper-web/internal/i18n"
)

// TierOption configures a tier.
type TierOption func(*tierOptions)

type tierOptions struct {
	logger *zap.Logger
	dev    bool
}

// WithTierLogger sets the logger used for skipped records and debug output.
func WithTierLogger(logger *zap.Logger) TierOption {
	return func(o *tierOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDevMode enables development diagnostics.
func WithDevMode(dev bool) TierOption {
	return func(o *tierOptions) { o.dev = dev }
}

func applyTierOptions(opts []TierOption) tierOptions {
	o := tierOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// CollectionTier serves schema-validated records from a CollectionSource.
// Records failing validation are skipped.
type CollectionTier struct {
	source    CollectionSource
	validator *Validator
	opts      tierOptions
}

// NewCollectionTier wraps source; a nil validator accepts every record.
func NewCollectionTier(source CollectionSource, validator *Validator, opts ...TierOption) *CollectionTier {
	return &CollectionTier{source: source, validator: validator, opts: applyTierOptions(opts)}
}

func (t *CollectionTier) Name() string { return "collection:" + t.source.Name() }

func (t *CollectionTier) Lookup(ctx context.Context, kind Kind, slug string, loc i18n.Locale) (Entry, error) {
	collection := kind.Collection()
	id := slug
	if kind == KindSettings {
		id = settingsSlug
	}
	rec, err := t.source.Get(ctx, collection, id)
	if err != nil {
		return Entry{}, err
	}
	if !t.accept(collection, &rec) {
		return Entry{}, ErrNotFound
	}
	return project(t.Name(), rec.Path, rec.ID, rec.Record, loc), nil
}

func (t *CollectionTier) List(ctx context.Context, kind Kind, loc i18n.Locale) ([]Entry, error) {
	if !kind.Listable() {
		return nil, ErrNotFound
	}
	collection := kind.Collection()
	recs, err := t.source.List(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(recs))
	for i := range recs {
		if !t.accept(collection, &recs[i]) {
			continue
		}
		out = append(out, project(t.Name(), recs[i].Path, recs[i].ID, recs[i].Record, loc))
	}
	return out, nil
}

// Check validates every record of every collection and returns the failures.
func (t *CollectionTier) Check(ctx context.Context) ([]error, error) {
	var failures []error
	for _, kind := range Kinds {
		collection := kind.Collection()
		recs, err := t.source.List(ctx, collection)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			if err := t.validator.Validate(collection, withSlug(collection, recs[i])); err != nil {
				failures = append(failures, &RecordError{Path: recs[i].Path, Err: err})
			}
		}
	}
	return failures, nil
}

func (t *CollectionTier) accept(collection string, rec *SourceRecord) bool {
	rec.Record = withSlug(collection, *rec)
	err := t.validator.Validate(collection, rec.Record)
	if err == nil {
		return true
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		t.opts.logger.Warn("cms: skipping invalid record",
			zap.String("path", rec.Path),
			zap.String("collection", collection),
			zap.Error(err),
		)
		return false
	}
	t.opts.logger.Warn("cms: record validation failed", zap.String("path", rec.Path), zap.Error(err))
	return false
}

// withSlug fills slug from the record ID for item collections.
func withSlug(collection string, rec SourceRecord) Record {
	switch collection {
	case "pages", "menus", "settings":
		return rec.Record
	}
	if rec.Record.String("slug") != "" || rec.ID == "" {
		return rec.Record
	}
	out := rec.Record.Clone()
	out["slug"] = rec.ID
	return out
}

// RecordError ties an error to the record it came from.
type RecordError struct {
	Path string
	Err  error
}

func (e *RecordError) Error() string { return e.Path + ": " + e.Err.Error() }

func (e *RecordError) Unwrap() error { return e.Err }
