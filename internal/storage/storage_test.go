package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newReview(title string) *models.Review {
	ts := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	price := 19.99
	return &models.Review{
		ID:              "id-" + slug.Generate(title),
		Slug:            slug.Generate(title),
		Title:           title,
		GameTitle:       title,
		FairPriceTier:   models.TierBudget,
		FairPriceAmount: &price,
		QuickVerdict:    "Solid.",
		Content:         "Body of " + title,
		Pros:            []string{"Fun", "Cheap"},
		Cons:            []string{"Short"},
		Status:          models.StatusPublished,
		CreatedAt:       ts,
		UpdatedAt:       ts,
		PublishedAt:     &ts,
	}
}

type storeFactory func(t *testing.T) Repository

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T) Repository {
			return NewFileStore(filepath.Join(t.TempDir(), "content", "reviews"))
		},
		"sqlite": func(t *testing.T) Repository {
			db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "reviews.db"))
			require.NoError(t, err)
			db.SetMaxOpenConns(1)
			t.Cleanup(func() { _ = db.Close() })

			store, err := NewSQLStore(context.Background(), db)
			require.NoError(t, err)
			return store
		},
	}
}

func TestRepositoryContract(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			t.Run("save then get round trips", func(t *testing.T) {
				ctx := context.Background()
				store := factory(t)
				review := newReview("Great Game: Part 2!")
				require.Equal(t, "great-game-part-2", review.Slug)

				require.NoError(t, store.Save(ctx, review))

				got, err := store.GetBySlug(ctx, "great-game-part-2")
				require.NoError(t, err)
				assert.Equal(t, review, got)
			})

			t.Run("save overwrites", func(t *testing.T) {
				ctx := context.Background()
				store := factory(t)
				review := newReview("Hollow Knight")
				require.NoError(t, store.Save(ctx, review))

				review.ViewCount = 42
				require.NoError(t, store.Save(ctx, review))

				got, err := store.GetBySlug(ctx, review.Slug)
				require.NoError(t, err)
				assert.Equal(t, 42, got.ViewCount)

				all, err := store.ListAll(ctx)
				require.NoError(t, err)
				assert.Len(t, all, 1)
			})

			t.Run("missing slug is not found", func(t *testing.T) {
				store := factory(t)
				_, err := store.GetBySlug(context.Background(), "nope")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("delete then get is not found", func(t *testing.T) {
				ctx := context.Background()
				store := factory(t)
				review := newReview("Celeste")
				require.NoError(t, store.Save(ctx, review))

				require.NoError(t, store.Delete(ctx, review.Slug))

				_, err := store.GetBySlug(ctx, review.Slug)
				assert.ErrorIs(t, err, ErrNotFound)
				assert.ErrorIs(t, store.Delete(ctx, review.Slug), ErrNotFound)
			})

			t.Run("list returns every saved review", func(t *testing.T) {
				ctx := context.Background()
				store := factory(t)

				empty, err := store.ListAll(ctx)
				require.NoError(t, err)
				assert.Empty(t, empty)

				const n = 7
				for i := 0; i < n; i++ {
					require.NoError(t, store.Save(ctx, newReview(fmt.Sprintf("Game %d", i))))
				}

				all, err := store.ListAll(ctx)
				require.NoError(t, err)
				assert.Len(t, all, n)
			})

			t.Run("rejects slugs that are not slug shaped", func(t *testing.T) {
				ctx := context.Background()
				store := factory(t)

				_, err := store.GetBySlug(ctx, "../secrets")
				assert.ErrorIs(t, err, ErrNotFound)
				assert.ErrorIs(t, store.Delete(ctx, "../secrets"), ErrNotFound)

				review := newReview("Bad")
				review.Slug = "../bad"
				err = store.Save(ctx, review)
				require.Error(t, err)
				assert.True(t, models.IsValidationError(err))
			})
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "reviews")
	store := NewFileStore(dir)

	require.NoError(t, store.Save(ctx, newReview("Stardew Valley")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files are left behind")
	assert.Equal(t, "stardew-valley.json", entries[0].Name())

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestFileStoreListSkipsBrokenDocuments(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.Save(ctx, newReview("Good One")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corrupt.json"), []byte("{not json"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(`{"slug":"legacy","pros":"a\nb"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".good-one.123.tmp"), []byte("partial"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0755))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "good-one", all[0].Slug)

	_, err = store.GetBySlug(ctx, "corrupt")
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "corrupt", ioErr.Slug)
}

func TestFileStoreMissingDirectoryListsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"))
	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStoreFileNameWinsOverDocumentSlug(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)

	review := newReview("Renamed")
	review.Slug = "old-name"
	require.NoError(t, store.Save(ctx, review))
	require.NoError(t, os.Rename(filepath.Join(dir, "old-name.json"), filepath.Join(dir, "renamed.json")))

	got, err := store.GetBySlug(ctx, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Slug)
}

func TestListHonoursCancelledContext(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save(context.Background(), newReview("One")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
