package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/shopper-web/internal/i18n"
)

func TestAssetsWithCacheETag(t *testing.T) {
	fsys := fstest.MapFS{"css/site.css": {Data: []byte("body{margin:0}")}}
	h := http.StripPrefix("/assets", AssetsWithCache(fsys))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/css/site.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, assetCacheControl, rec.Header().Get("Cache-Control"))
	assert.Equal(t, "body{margin:0}", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/assets/css/site.css", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLocaleMiddleware(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r := chi.NewRouter()
	r.With(Locale(notFound)).Get("/{lang}/about", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(LocaleFrom(r.Context())))
	})

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{"/es/about", http.StatusOK, "es"},
		{"/fr/about", http.StatusOK, "fr"},
		{"/EN/about", http.StatusNotFound, ""},
		{"/de/about", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, tc.path)
		assert.Equal(t, tc.body, rec.Body.String(), tc.path)
		if tc.status == http.StatusOK {
			assert.Equal(t, tc.body, rec.Header().Get("Content-Language"))
		}
	}
}

func TestPreferredLocale(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-CA,fr;q=0.9,en;q=0.5")
	loc, fromCookie := PreferredLocale(req)
	assert.Equal(t, i18n.FR, loc)
	assert.False(t, fromCookie)

	req.AddCookie(&http.Cookie{Name: LangCookie, Value: "es"})
	loc, fromCookie = PreferredLocale(req)
	assert.Equal(t, i18n.ES, loc)
	assert.True(t, fromCookie)

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.AddCookie(&http.Cookie{Name: LangCookie, Value: "de"})
	loc, fromCookie = PreferredLocale(bad)
	assert.Equal(t, i18n.EN, loc)
	assert.False(t, fromCookie)
}

func TestPathLocale(t *testing.T) {
	loc, ok := PathLocale("/es/blog/post/")
	assert.True(t, ok)
	assert.Equal(t, i18n.ES, loc)

	_, ok = PathLocale("/robots.txt")
	assert.False(t, ok)
	_, ok = PathLocale("/")
	assert.False(t, ok)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"first forwarded entry", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:1234", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"ipv6 remote", nil, "[2001:db8::1]:443", "2001:db8::1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(req))
		})
	}
}

func TestWantsHTML(t *testing.T) {
	form := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	form.Header.Set("Accept", "text/html,application/xhtml+xml")
	assert.True(t, WantsHTML(form))

	script := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	script.Header.Set("Accept", "text/html")
	script.Header.Set("X-Requested-With", "fetch")
	assert.False(t, WantsHTML(script))

	api := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	api.Header.Set("Accept", "application/json")
	assert.False(t, WantsHTML(api))
}
