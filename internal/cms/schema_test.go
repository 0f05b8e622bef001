package cms

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCompilesEveryCollection(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	var want []string
	for _, kind := range Kinds {
		want = append(want, kind.Collection())
	}
	assert.ElementsMatch(t, want, v.Collections())
}

func TestValidatorValidate(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	valid := Record{
		"slug":     "summer",
		"date":     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		"image":    nil,
		"title_en": "Summer",
		"title_es": "Verano",
		"title_fr": "Été",
	}
	assert.NoError(t, v.Validate("blog_entries", valid))

	missing := valid.Clone()
	delete(missing, "title_fr")
	err = v.Validate("blog_entries", missing)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr), "expected SchemaError, got %v", err)
	assert.Equal(t, "blog_entries", schemaErr.Collection)
	assert.NotEmpty(t, schemaErr.Issues)
	assert.Contains(t, err.Error(), "title_fr")

	assert.NoError(t, v.Validate("unknown_collection", Record{}))
	var nilValidator *Validator
	assert.NoError(t, nilValidator.Validate("blog_entries", Record{}))
}

func TestValidatorPagesAreStrict(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	page := Record{"title_en": "A", "title_es": "B", "title_fr": "C", "hero_title_en": "Hero"}
	assert.NoError(t, v.Validate("pages", page))

	page["hero_tittle_en"] = "typo"
	assert.Error(t, v.Validate("pages", page))
}

func TestValidatorMenus(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	menu := Record{"links": []any{
		map[string]any{"slug": "home", "order": 1, "text_en": "Home", "text_es": "Inicio", "text_fr": "Accueil", "url_en": "/en", "url_es": "/es", "url_fr": "/fr"},
	}}
	assert.NoError(t, v.Validate("menus", menu))

	menu["links"] = []any{map[string]any{"slug": "home"}}
	assert.Error(t, v.Validate("menus", menu))
}

func TestCheckReportsInvalidRecords(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	failures, err := NewCollectionTier(NewDirSource(fixtureDir("collections")), v).Check(context.Background())
	require.NoError(t, err)
	require.Len(t, failures, 1)
	var recErr *RecordError
	require.ErrorAs(t, failures[0], &recErr)
	assert.Equal(t, filepath.ToSlash(filepath.Join("testdata", "collections", "blog_entries", "invalid.yml")), recErr.Path)

	unified, err := NewUnifiedTier(fixtureDir("content")).Check(context.Background(), v)
	require.NoError(t, err)
	paths := make([]string, 0, len(unified))
	for _, f := range unified {
		require.ErrorAs(t, f, &recErr)
		paths = append(paths, recErr.Path)
	}
	// The undated post lacks a date and the malformed testimonial does not parse.
	assert.Contains(t, paths, "/content/blog_entries/undated.yml")
	assert.Contains(t, paths, "/content/testimonial_entries/broken.yml")
	assert.NotContains(t, paths, "/content/blog_entries/summer-capsule.yml")
}
