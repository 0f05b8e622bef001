package cms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/shopper-web/internal/i18n"
	"finitefield.org/shopper-web/internal/platform/config"
	pfirestore "finitefield.org/shopper-web/internal/platform/firestore"
)

func newCMSServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collections/faq_entries", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{
			{"slug": "b", "order": 2, "question_en": "Second?", "question_es": "¿Segunda?", "question_fr": "Deuxième ?"},
			{"slug": "a", "order": 1, "question_en": "First?", "question_es": "¿Primera?", "question_fr": "Première ?"},
			{"order": 3, "question_en": "No slug"},
		}})
	})
	mux.HandleFunc("/api/collections/faq_entries/a", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"slug": "a", "question_en": "First?", "question_es": "¿Primera?", "question_fr": "Première ?"})
	})
	mux.HandleFunc("/api/collections/faq_entries/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteSource(t *testing.T) {
	srv := newCMSServer(t)
	src := NewRemoteSource(srv.URL+"/api/", nil)
	ctx := context.Background()

	recs, err := src.List(ctx, "faq_entries")
	require.NoError(t, err)
	require.Len(t, recs, 2, "records without an id are dropped")
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, srv.URL+"/api/collections/faq_entries/b", recs[0].Path)

	rec, err := src.Get(ctx, "faq_entries", "a")
	require.NoError(t, err)
	assert.Equal(t, "First?", rec.Record.String("question_en"))

	_, err = src.Get(ctx, "faq_entries", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = src.Get(ctx, "faq_entries", "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	empty, err := src.List(ctx, "blog_entries")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRemoteSourceBehindResolver(t *testing.T) {
	srv := newCMSServer(t)
	v, err := NewValidator()
	require.NoError(t, err)
	r := NewResolver(NewChain(ChainConfig{
		ContentDir:  fixtureDir("content"),
		Collections: NewRemoteSource(srv.URL+"/api", nil),
		Validator:   v,
	}))

	items, err := r.ListFAQ(context.Background(), i18n.FR)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Première ?", items[0].Question)
	assert.Equal(t, "collection:remote", items[0].Tier)

	// Records the CMS does not hold fall through to the next tier.
	_, err = r.GetPage(context.Background(), i18n.EN, PageAbout)
	require.NoError(t, err)
}

func TestFirestoreSourceEmulator(t *testing.T) {
	host := os.Getenv("FIRESTORE_EMULATOR_HOST")
	if host == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	provider := pfirestore.NewProvider(config.FirestoreConfig{ProjectID: "shopper-test", EmulatorHost: host})
	t.Cleanup(func() { _ = provider.Close() })

	ctx := context.Background()
	client, err := provider.Client(ctx)
	require.NoError(t, err)
	_, err = client.Collection("test_faq_entries").Doc("hours").Set(ctx, map[string]any{
		"order": 1, "question_en": "Hours?", "question_es": "¿Horario?", "question_fr": "Horaires ?",
	})
	require.NoError(t, err)

	src := NewFirestoreSource(provider, "test_")
	rec, err := src.Get(ctx, "faq_entries", "hours")
	require.NoError(t, err)
	assert.Equal(t, "hours", rec.ID)
	assert.Equal(t, 1, rec.Record.Int("order"))

	_, err = src.Get(ctx, "faq_entries", "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err := src.List(ctx, "faq_entries")
	require.NoError(t, err)
	assert.NotEmpty(t, recs)
}
