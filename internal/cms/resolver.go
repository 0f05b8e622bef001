package cms

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/shopper-web/internal/i18n"
)

var tracer = otel.Tracer("finitefield.org/shopper-web/internal/cms")

// Resolver walks an ordered tier chain. The first tier that yields a record
// wins; tier failures other than ErrNotFound are logged and skipped. It keeps
// no state between calls and is safe for concurrent use.
type Resolver struct {
	tiers  []Tier
	logger *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the logger for tier failures.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a resolver over tiers in priority order.
func NewResolver(tiers []Tier, opts ...ResolverOption) *Resolver {
	r := &Resolver{logger: zap.NewNop()}
	for _, t := range tiers {
		if t != nil {
			r.tiers = append(r.tiers, t)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Tiers returns the tier names in resolution order.
func (r *Resolver) Tiers() []string {
	names := make([]string, 0, len(r.tiers))
	for _, t := range r.tiers {
		names = append(names, t.Name())
	}
	return names
}

func (r *Resolver) start(ctx context.Context, op string, loc i18n.Locale, kind Kind) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cms."+op, trace.WithAttributes(
		attribute.String("cms.locale", string(loc)),
		attribute.String("cms.kind", string(kind)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (r *Resolver) lookup(ctx context.Context, kind Kind, slug string, loc i18n.Locale) (Entry, error) {
	for _, t := range r.tiers {
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}
		entry, err := t.Lookup(ctx, kind, slug, loc)
		if err == nil {
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("cms.tier", t.Name()))
			return entry, nil
		}
		if !errors.Is(err, ErrNotFound) {
			r.logger.Warn("cms: tier lookup failed",
				zap.String("tier", t.Name()),
				zap.String("kind", string(kind)),
				zap.String("slug", slug),
				zap.String("locale", string(loc)),
				zap.Error(err),
			)
		}
	}
	return Entry{}, ErrNotFound
}

// list returns the entries of the first tier holding at least one item.
func (r *Resolver) list(ctx context.Context, kind Kind, loc i18n.Locale) ([]Entry, error) {
	for _, t := range r.tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := t.List(ctx, kind, loc)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.logger.Warn("cms: tier list failed",
					zap.String("tier", t.Name()),
					zap.String("kind", string(kind)),
					zap.String("locale", string(loc)),
					zap.Error(err),
				)
			}
			continue
		}
		if len(entries) > 0 {
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("cms.tier", t.Name()))
			return entries, nil
		}
	}
	return nil, nil
}

// GetPage resolves a page by key (home, about, services, testimonials, faq,
// blog, contact, not-found).
func (r *Resolver) GetPage(ctx context.Context, loc i18n.Locale, key string) (page Page, err error) {
	ctx, span := r.start(ctx, "GetPage", loc, KindPage)
	defer func() { endSpan(span, err) }()

	if !loc.Valid() {
		return Page{}, ErrUnsupportedLocale
	}
	if !validPageKey(key) {
		return Page{}, ErrNotFound
	}
	entry, err := r.lookup(ctx, KindPage, key, loc)
	if err != nil {
		return Page{}, err
	}
	if entry.Slug == "" {
		entry.Slug = key
	}
	return newPage(loc, entry), nil
}

// GetHome resolves the home page; missing fields fall back to built-in copy.
func (r *Resolver) GetHome(ctx context.Context, loc i18n.Locale) (HomePage, error) {
	page, err := r.GetPage(ctx, loc, PageHome)
	if errors.Is(err, ErrNotFound) {
		page, err = Page{Locale: loc, Slug: PageHome, Frontmatter: Record{}, Format: "markdown"}, nil
	}
	if err != nil {
		return HomePage{}, err
	}
	return normalizeHome(page), nil
}

// GetNotFound resolves the not-found page; missing fields fall back to
// built-in copy.
func (r *Resolver) GetNotFound(ctx context.Context, loc i18n.Locale) (NotFoundPage, error) {
	page, err := r.GetPage(ctx, loc, PageNotFound)
	if errors.Is(err, ErrNotFound) {
		page, err = Page{Locale: loc, Slug: PageNotFound, Frontmatter: Record{}, Format: "markdown"}, nil
	}
	if err != nil {
		return NotFoundPage{}, err
	}
	return normalizeNotFound(page), nil
}

func (r *Resolver) pages(ctx context.Context, op string, kind Kind, loc i18n.Locale) (pages []Page, err error) {
	ctx, span := r.start(ctx, op, loc, kind)
	defer func() { endSpan(span, err) }()

	if !loc.Valid() {
		return nil, ErrUnsupportedLocale
	}
	entries, err := r.list(ctx, kind, loc)
	if err != nil {
		return nil, err
	}
	pages = make([]Page, 0, len(entries))
	for _, e := range entries {
		if e.Slug == "" {
			continue
		}
		pages = append(pages, newPage(loc, e))
	}
	span.SetAttributes(attribute.Int("cms.count", len(pages)))
	return pages, nil
}

func (r *Resolver) item(ctx context.Context, op string, kind Kind, loc i18n.Locale, slug string) (page Page, err error) {
	ctx, span := r.start(ctx, op, loc, kind)
	defer func() { endSpan(span, err) }()

	if !loc.Valid() {
		return Page{}, ErrUnsupportedLocale
	}
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	span.SetAttributes(attribute.String("cms.slug", slug))
	entry, err := r.lookup(ctx, kind, slug, loc)
	if err != nil {
		return Page{}, err
	}
	if entry.Slug == "" {
		entry.Slug = slug
	}
	return newPage(loc, entry), nil
}

// ListPosts returns blog posts newest first; undated posts sort last.
func (r *Resolver) ListPosts(ctx context.Context, loc i18n.Locale) ([]BlogPost, error) {
	pages, err := r.pages(ctx, "ListPosts", KindBlog, loc)
	if err != nil {
		return nil, err
	}
	posts := make([]BlogPost, 0, len(pages))
	for _, p := range pages {
		posts = append(posts, normalizePost(p))
	}
	SortPosts(posts)
	return posts, nil
}

func (r *Resolver) GetPost(ctx context.Context, loc i18n.Locale, slug string) (BlogPost, error) {
	page, err := r.item(ctx, "GetPost", KindBlog, loc, slug)
	if err != nil {
		return BlogPost{}, err
	}
	return normalizePost(page), nil
}

// ListServices returns services by ascending order.
func (r *Resolver) ListServices(ctx context.Context, loc i18n.Locale) ([]Service, error) {
	pages, err := r.pages(ctx, "ListServices", KindService, loc)
	if err != nil {
		return nil, err
	}
	items := make([]Service, 0, len(pages))
	for _, p := range pages {
		items = append(items, normalizeService(p))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, nil
}

func (r *Resolver) GetService(ctx context.Context, loc i18n.Locale, slug string) (Service, error) {
	page, err := r.item(ctx, "GetService", KindService, loc, slug)
	if err != nil {
		return Service{}, err
	}
	return normalizeService(page), nil
}

func (r *Resolver) ListFAQ(ctx context.Context, loc i18n.Locale) ([]FAQ, error) {
	pages, err := r.pages(ctx, "ListFAQ", KindFAQ, loc)
	if err != nil {
		return nil, err
	}
	items := make([]FAQ, 0, len(pages))
	for _, p := range pages {
		items = append(items, normalizeFAQ(p))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, nil
}

func (r *Resolver) ListTestimonials(ctx context.Context, loc i18n.Locale) ([]Testimonial, error) {
	pages, err := r.pages(ctx, "ListTestimonials", KindTestimonial, loc)
	if err != nil {
		return nil, err
	}
	items := make([]Testimonial, 0, len(pages))
	for _, p := range pages {
		items = append(items, normalizeTestimonial(p))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, nil
}

func (r *Resolver) ListHowItWorks(ctx context.Context, loc i18n.Locale) ([]Step, error) {
	pages, err := r.pages(ctx, "ListHowItWorks", KindHowItWorks, loc)
	if err != nil {
		return nil, err
	}
	items := make([]Step, 0, len(pages))
	for _, p := range pages {
		items = append(items, normalizeStep(p))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items, nil
}

// SortPosts orders posts by date, newest first. Zero dates count as the epoch
// so undated posts end up last; ties keep their input order.
func SortPosts(posts []BlogPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return dateKey(posts[i]) > dateKey(posts[j])
	})
}

func dateKey(p BlogPost) int64 {
	if p.Date.IsZero() {
		return 0
	}
	return p.Date.UnixMilli()
}

// Settings returns the site settings; a missing record yields empty settings.
func (r *Resolver) Settings(ctx context.Context, loc i18n.Locale) (settings SiteSettings, err error) {
	ctx, span := r.start(ctx, "Settings", loc, KindSettings)
	defer func() { endSpan(span, err) }()

	if !loc.Valid() {
		return SiteSettings{}, ErrUnsupportedLocale
	}
	entry, err := r.lookup(ctx, KindSettings, settingsSlug, loc)
	if errors.Is(err, ErrNotFound) {
		return SiteSettings{}, nil
	}
	if err != nil {
		return SiteSettings{}, err
	}
	return normalizeSettings(entry.Fields), nil
}

func trimSlug(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}
