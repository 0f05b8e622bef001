package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/shopper-web/internal/cms"
	"finitefield.org/shopper-web/internal/format"
	"finitefield.org/shopper-web/internal/i18n"
	"finitefield.org/shopper-web/internal/markdown"
	mw "finitefield.org/shopper-web/internal/middleware"
	"finitefield.org/shopper-web/internal/nav"
	"finitefield.org/shopper-web/internal/platform/observability"
	"finitefield.org/shopper-web/internal/seo"
)

const defaultSiteName = "Personal Shopper"

// ContentResolver is the read side of the content layer used by the pages.
type ContentResolver interface {
	GetPage(ctx context.Context, loc i18n.Locale, key string) (cms.Page, error)
	GetHome(ctx context.Context, loc i18n.Locale) (cms.HomePage, error)
	GetNotFound(ctx context.Context, loc i18n.Locale) (cms.NotFoundPage, error)
	ListPosts(ctx context.Context, loc i18n.Locale) ([]cms.BlogPost, error)
	GetPost(ctx context.Context, loc i18n.Locale, slug string) (cms.BlogPost, error)
	ListServices(ctx context.Context, loc i18n.Locale) ([]cms.Service, error)
	GetService(ctx context.Context, loc i18n.Locale, slug string) (cms.Service, error)
	ListFAQ(ctx context.Context, loc i18n.Locale) ([]cms.FAQ, error)
	ListTestimonials(ctx context.Context, loc i18n.Locale) ([]cms.Testimonial, error)
	ListHowItWorks(ctx context.Context, loc i18n.Locale) ([]cms.Step, error)
	Navigation(ctx context.Context, loc i18n.Locale) ([]cms.NavLink, error)
	FooterLinks(ctx context.Context, loc i18n.Locale) ([]cms.FooterLink, error)
	Settings(ctx context.Context, loc i18n.Locale) (cms.SiteSettings, error)
}

// SiteHandlers serves the localized content pages.
type SiteHandlers struct {
	content   ContentResolver
	renderer  *Renderer
	bundle    *i18n.Bundle
	siteURL   string
	ogImage   string
	analytics Analytics
	clock     func() time.Time
}

// SiteOption customises SiteHandlers.
type SiteOption func(*SiteHandlers)

// WithSiteURL sets the public origin used for canonical and hreflang links.
func WithSiteURL(u string) SiteOption {
	return func(h *SiteHandlers) { h.siteURL = strings.TrimRight(u, "/") }
}

// WithDefaultOGImage sets the share image used when neither the page nor the
// settings provide one.
func WithDefaultOGImage(src string) SiteOption {
	return func(h *SiteHandlers) { h.ogImage = src }
}

// WithAnalytics sets the client instrumentation rendered in the layout.
func WithAnalytics(a Analytics) SiteOption {
	return func(h *SiteHandlers) { h.analytics = a }
}

// WithSiteClock overrides the time source.
func WithSiteClock(clock func() time.Time) SiteOption {
	return func(h *SiteHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewSiteHandlers wires the page handlers.
func NewSiteHandlers(content ContentResolver, renderer *Renderer, bundle *i18n.Bundle, opts ...SiteOption) *SiteHandlers {
	h := &SiteHandlers{
		content:  content,
		renderer: renderer,
		bundle:   bundle,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the page routes on a router already scoped to /{lang}.
func (h *SiteHandlers) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/about", h.About)
	r.Get("/services", h.Services)
	r.Get("/services/{slug}", h.Service)
	r.Get("/blog", h.Blog)
	r.Get("/blog/{slug}", h.Post)
	r.Get("/faq", h.FAQ)
	r.Get("/testimonials", h.Testimonials)
	r.Get("/contact", h.Contact)
	r.Get("/contact/success", h.ContactSuccess)
}

// Home renders the landing page.
func (h *SiteHandlers) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	home, err := h.content.GetHome(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	services, err := h.content.ListServices(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	steps, err := h.content.ListHowItWorks(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	testimonials, err := h.content.ListTestimonials(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := h.page(r, loc, home.Title, home.Description, home.HeroImage)
	data.Home = home
	data.Services = services
	data.Steps = steps
	data.Testimonials = testimonials
	origin := h.origin(r)
	data.JSONLD = append(data.JSONLD,
		seo.Script(seo.Organization(h.siteName(data.Settings), seo.Absolute(origin, "/"), seo.Absolute(origin, data.Settings.LogoSrc))),
		seo.Script(seo.WebSite(h.siteName(data.Settings), seo.Absolute(origin, data.Path), loc.String())),
	)
	h.render(w, r, http.StatusOK, "home", data)
}

// About renders the about page body.
func (h *SiteHandlers) About(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	page, err := h.content.GetPage(ctx, loc, cms.PageAbout)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := h.page(r, loc, h.title(page, loc, "nav.about"), page.Field("description"), page.Field("hero_image"))
	data.Page = page
	h.render(w, r, http.StatusOK, "page", data)
}

// Services lists the services with the optional intro page.
func (h *SiteHandlers) Services(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	intro, ok := h.intro(w, r, loc, cms.PageServices)
	if !ok {
		return
	}
	services, err := h.content.ListServices(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := h.page(r, loc, h.title(intro, loc, "nav.services"), intro.Field("description"), "")
	data.Page = intro
	data.Services = services
	h.render(w, r, http.StatusOK, "services", data)
}

// Service renders one service.
func (h *SiteHandlers) Service(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	svc, err := h.content.GetService(ctx, loc, chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := h.page(r, loc, svc.Title, svc.Description, svc.Image)
	data.Service = svc
	origin := h.origin(r)
	data.JSONLD = append(data.JSONLD, seo.Script(seo.Service(
		svc.Title, svc.Description, seo.Absolute(origin, data.Path), seo.Absolute(origin, svc.Image), h.siteName(data.Settings),
	)))
	h.render(w, r, http.StatusOK, "service", data)
}

// Blog lists posts newest first.
func (h *SiteHandlers) Blog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	intro, ok := h.intro(w, r, loc, cms.PageBlog)
	if !ok {
		return
	}
	posts, err := h.content.ListPosts(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := h.page(r, loc, h.title(intro, loc, "nav.blog"), intro.Field("description"), "")
	data.Page = intro
	data.Posts = posts
	h.render(w, r, http.StatusOK, "blog", data)
}

// Post renders one blog post.
func (h *SiteHandlers) Post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	post, err := h.content.GetPost(ctx, loc, chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	description := post.Description
	if description == "" {
		description = post.Excerpt(160)
	}
	data := h.page(r, loc, post.Title, description, post.Image)
	data.SEO.OG.Type = "article"
	data.Post = post
	origin := h.origin(r)
	data.JSONLD = append(data.JSONLD, seo.Script(seo.Article(
		post.Title, seo.Absolute(origin, data.Path), seo.Absolute(origin, post.Image), post.Author, format.ISODate(post.Date), loc.String(),
	)))
	h.render(w, r, http.StatusOK, "post", data)
}

// FAQ renders the questions with FAQPage structured data.
func (h *SiteHandlers) FAQ(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	intro, ok := h.intro(w, r, loc, cms.PageFAQ)
	if !ok {
		return
	}
	faqs, err := h.content.ListFAQ(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := h.page(r, loc, h.title(intro, loc, "nav.faq"), intro.Field("description"), "")
	data.Page = intro
	data.FAQ = faqs
	if len(faqs) > 0 {
		questions := make([]seo.Question, 0, len(faqs))
		for _, f := range faqs {
			questions = append(questions, seo.Question{Name: f.Question, Answer: markdown.PlainText(f.Body, f.Format)})
		}
		data.JSONLD = append(data.JSONLD, seo.Script(seo.FAQPage(questions)))
	}
	h.render(w, r, http.StatusOK, "faq", data)
}

// Testimonials renders client feedback.
func (h *SiteHandlers) Testimonials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc := mw.LocaleFrom(ctx)
	intro, ok := h.intro(w, r, loc, cms.PageTestimonials)
	if !ok {
		return
	}
	items, err := h.content.ListTestimonials(ctx, loc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := h.page(r, loc, h.title(intro, loc, "nav.testimonials"), intro.Field("description"), "")
	data.Page = intro
	data.Testimonials = items
	h.render(w, r, http.StatusOK, "testimonials", data)
}

// Contact renders the contact form. Labels come from the contact page record
// and fall back to the UI dictionary.
func (h *SiteHandlers) Contact(w http.ResponseWriter, r *http.Request) {
	loc := mw.LocaleFrom(r.Context())
	intro, ok := h.intro(w, r, loc, cms.PageContact)
	if !ok {
		return
	}
	data := h.page(r, loc, h.title(intro, loc, "nav.contact"), intro.Field("description"), "")
	data.Page = intro
	data.FormAction = cms.RoutePath(loc, cms.PageContact)
	h.render(w, r, http.StatusOK, "contact", data)
}

// ContactSuccess is the landing page after a form post without script.
func (h *SiteHandlers) ContactSuccess(w http.ResponseWriter, r *http.Request) {
	loc := mw.LocaleFrom(r.Context())
	data := h.page(r, loc, h.bundle.T(loc, "contact.success.title"), h.bundle.T(loc, "contact.success.description"), "")
	data.SEO.Robots = "noindex"
	h.render(w, r, http.StatusOK, "contact_success", data)
}

// NotFound renders the localized 404 page. The locale comes from the path
// prefix when there is a supported one.
func (h *SiteHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loc, ok := mw.PathLocale(r.URL.Path)
	if !ok {
		loc = i18n.Default
	}
	nf, err := h.content.GetNotFound(ctx, loc)
	if err != nil {
		observability.FromContext(ctx).Error("render not found page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	data := h.page(r, loc, nf.Title, nf.Description, "")
	data.SEO.Robots = "noindex"
	data.SEO.Alternates = nil
	data.Breadcrumbs = nil
	data.JSONLD = nil
	data.NotFound = nf
	h.render(w, r, http.StatusNotFound, "not_found", data)
}

// intro loads an optional list page record. A missing record yields an empty
// page; other failures are answered here and ok is false.
func (h *SiteHandlers) intro(w http.ResponseWriter, r *http.Request, loc i18n.Locale, key string) (cms.Page, bool) {
	page, err := h.content.GetPage(r.Context(), loc, key)
	if errors.Is(err, cms.ErrNotFound) {
		return cms.Page{Locale: loc, Slug: key, Frontmatter: cms.Record{}}, true
	}
	if err != nil {
		h.fail(w, r, err)
		return cms.Page{}, false
	}
	return page, true
}

func (h *SiteHandlers) title(page cms.Page, loc i18n.Locale, fallbackKey string) string {
	if t := page.Field("title"); t != "" {
		return t
	}
	return h.bundle.T(loc, fallbackKey)
}

// page builds the layout shared by every template. Navigation, footer and
// settings failures degrade to empty chrome.
func (h *SiteHandlers) page(r *http.Request, loc i18n.Locale, title, description, image string) PageData {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	settings, err := h.content.Settings(ctx, loc)
	if err != nil {
		logger.Warn("load site settings", zap.Error(err))
	}
	links, err := h.content.Navigation(ctx, loc)
	if err != nil {
		logger.Warn("load navigation", zap.Error(err))
	}
	footer, err := h.content.FooterLinks(ctx, loc)
	if err != nil {
		logger.Warn("load footer links", zap.Error(err))
	}

	current := canonicalPath(r.URL.Path)
	origin := h.origin(r)
	if image == "" {
		image = settings.OGImage
	}
	if image == "" {
		image = h.ogImage
	}
	crumbs := nav.Breadcrumbs(h.bundle, loc, current, title)

	data := PageData{
		Layout: Layout{
			Lang:        loc,
			Path:        current,
			SEO:         seo.Page(origin, h.siteName(settings), current, loc, title, description, image),
			Analytics:   h.analytics,
			Settings:    settings,
			Nav:         nav.Build(links, current),
			Footer:      groupFooter(footer),
			Breadcrumbs: crumbs,
			Languages:   h.languages(loc, current),
			Year:        h.clock().Year(),
		},
		Title:       title,
		Description: description,
	}
	if len(crumbs) > 1 {
		items := make([]seo.BreadcrumbItem, 0, len(crumbs))
		for _, c := range crumbs {
			items = append(items, seo.BreadcrumbItem{Name: c.Label, Item: seo.Absolute(origin, c.Href)})
		}
		data.JSONLD = []template.JS{seo.Script(seo.BreadcrumbList(items))}
	}
	return data
}

func (h *SiteHandlers) languages(loc i18n.Locale, current string) []LanguageLink {
	rest := strings.TrimPrefix(current, "/"+loc.String())
	if rest == "" {
		rest = "/"
	}
	out := make([]LanguageLink, 0, len(i18n.Supported))
	for _, l := range i18n.Supported {
		out = append(out, LanguageLink{
			Code:   l,
			Label:  h.bundle.T(loc, "lang."+l.String()),
			Href:   "/" + l.String() + rest,
			Active: l == loc,
		})
	}
	return out
}

func (h *SiteHandlers) siteName(settings cms.SiteSettings) string {
	if settings.LogoText != "" {
		return settings.LogoText
	}
	return defaultSiteName
}

func (h *SiteHandlers) origin(r *http.Request) string {
	if h.siteURL != "" {
		return h.siteURL
	}
	return requestOrigin(r)
}

func (h *SiteHandlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	if err := h.renderer.Render(w, status, name, data); err != nil {
		observability.FromContext(r.Context()).Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// fail maps resolver errors: misses become the localized 404, anything else
// is logged and answered with a bare 500.
func (h *SiteHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, cms.ErrNotFound) || errors.Is(err, cms.ErrUnsupportedLocale) {
		h.NotFound(w, r)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	observability.FromContext(r.Context()).Error("resolve content", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// canonicalPath renders paths with the trailing slash used by generated links.
func canonicalPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// requestOrigin rebuilds scheme://host from the request, honouring the
// proxy's X-Forwarded-Proto.
func requestOrigin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.ToLower(strings.TrimSpace(scheme))
	}
	host := r.Host
	if fh := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); fh != "" {
		host = fh
	}
	return scheme + "://" + host
}
