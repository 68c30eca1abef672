package reviews

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/fairprice/internal/cache"
	"github.com/bilgisen/fairprice/internal/images"
	"github.com/bilgisen/fairprice/internal/models"
	"github.com/bilgisen/fairprice/internal/query"
	"github.com/bilgisen/fairprice/internal/slug"
	"github.com/bilgisen/fairprice/internal/storage"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeImages struct {
	mu      sync.Mutex
	deleted []string
	failOn  string
}

func (f *fakeImages) Put(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*images.Upload, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeImages) Delete(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ref == f.failOn {
		return errors.New("bucket unavailable")
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *fakeImages) Owns(ref string) bool {
	return ref != "" && ref[0] == '/'
}

type brokenGuard struct{}

func (brokenGuard) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func (brokenGuard) Close() error { return nil }

type fixture struct {
	svc    *Service
	store  *storage.FileStore
	images *fakeImages
	now    *time.Time
}

func newFixture(t *testing.T, guard cache.ViewGuard) *fixture {
	t.Helper()
	now := baseTime
	f := &fixture{
		store:  storage.NewFileStore(t.TempDir()),
		images: &fakeImages{},
		now:    &now,
	}
	if guard == nil {
		guard = cache.NewMemoryGuard()
	}
	f.svc = NewService(f.store, f.images, guard, WithClock(func() time.Time { return *f.now }))
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func price(v float64) *float64 { return &v }

func input(title string) Input {
	return Input{
		Title:           title,
		GameTitle:       "Hollow Knight",
		FairPriceTier:   models.TierBudget,
		FairPriceAmount: price(15),
		QuickVerdict:    "Worth every cent.",
		Content:         "## Verdict\n\nGreat.",
		Pros:            []string{"Art", " ", "Music "},
		Cons:            []string{"Backtracking"},
	}
}

func published(title string) Input {
	in := input(title)
	in.Status = models.StatusPublished
	return in
}

func TestCreate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, input("Great Game: Part 2!"))
	require.NoError(t, err)

	assert.Equal(t, "great-game-part-2", r.Slug)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, models.StatusDraft, r.Status)
	assert.Nil(t, r.PublishedAt)
	assert.Equal(t, baseTime, r.CreatedAt)
	assert.Equal(t, baseTime, r.UpdatedAt)
	assert.Equal(t, []string{"Art", "Music"}, r.Pros)
	assert.Zero(t, r.ViewCount)

	stored, err := f.store.GetBySlug(ctx, "great-game-part-2")
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)
}

func TestCreatePublishedSetsPublishedAt(t *testing.T) {
	f := newFixture(t, nil)

	r, err := f.svc.Create(context.Background(), published("Celeste"))
	require.NoError(t, err)
	require.NotNil(t, r.PublishedAt)
	assert.Equal(t, baseTime, *r.PublishedAt)
}

func TestCreateRejects(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, input("!!!"))
	assert.True(t, models.IsValidationError(err), "title without slug characters")

	in := input("Celeste")
	in.FairPriceTier = "Cheap"
	_, err = f.svc.Create(ctx, in)
	require.True(t, models.IsValidationError(err))
	var verrs models.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Fields(), "fairPriceTier")

	in = input("Celeste")
	in.Status = models.StatusScheduled
	_, err = f.svc.Create(ctx, in)
	assert.True(t, models.IsValidationError(err), "scheduled without a date")

	_, err = f.svc.Create(ctx, input("Celeste"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, input("celeste"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestGetPublishedHidesDrafts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, input("Draft Game"))
	require.NoError(t, err)

	_, err = f.svc.GetPublished(ctx, "draft-game")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	r, err := f.svc.Get(ctx, "draft-game")
	require.NoError(t, err)
	assert.Equal(t, "Draft Game", r.Title)
}

func TestUpdateRenamesDocument(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, published("Old Name"))
	require.NoError(t, err)
	created.ViewCount = 7
	require.NoError(t, f.store.Save(ctx, created))

	f.advance(time.Hour)
	in := published("New Name")
	updated, err := f.svc.Update(ctx, "old-name", in)
	require.NoError(t, err)

	assert.Equal(t, "new-name", updated.Slug)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 7, updated.ViewCount)
	assert.Equal(t, baseTime, *updated.PublishedAt, "first publish time is kept")
	assert.Equal(t, baseTime.Add(time.Hour), updated.UpdatedAt)

	_, err = f.store.GetBySlug(ctx, "old-name")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	all, err := f.store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// failingDeletes fails the first n Delete calls.
type failingDeletes struct {
	storage.Repository
	n     int
	calls int
}

func (s *failingDeletes) Delete(ctx context.Context, key string) error {
	s.calls++
	if s.calls <= s.n {
		return &storage.IOError{Op: "delete", Slug: key, Err: errors.New("disk busy")}
	}
	return s.Repository.Delete(ctx, key)
}

func TestUpdateRenameRetriesOldDelete(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewFileStore(t.TempDir())
	store := &failingDeletes{Repository: fs, n: 1}
	svc := NewService(store, &fakeImages{}, cache.NewMemoryGuard(), WithClock(func() time.Time { return baseTime }))

	_, err := svc.Create(ctx, published("Old Name"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "old-name", published("New Name"))
	require.NoError(t, err)
	assert.Equal(t, "new-name", updated.Slug)
	assert.Equal(t, 2, store.calls)

	all, err := fs.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateRenameReportsBothSlugsWhenOldDocumentRemains(t *testing.T) {
	ctx := context.Background()
	store := &failingDeletes{Repository: storage.NewFileStore(t.TempDir()), n: 2}
	svc := NewService(store, &fakeImages{}, cache.NewMemoryGuard(), WithClock(func() time.Time { return baseTime }))

	_, err := svc.Create(ctx, published("Old Name"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "old-name", published("New Name"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"old-name"`)
	assert.Contains(t, err.Error(), `"new-name"`)
	assert.Equal(t, 2, store.calls)
}

func TestUpdateConflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, input("First"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, input("Second"))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "second", input("First"))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.Update(ctx, "missing", input("Whatever"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, published("Live"))
	require.NoError(t, err)

	in := published("Live")
	in.Status = models.StatusScheduled
	in.ScheduledPublishAt = ptrTime(baseTime.Add(24 * time.Hour))
	_, err = f.svc.Update(ctx, "live", in)
	assert.ErrorIs(t, err, ErrInvalidTransition, "published cannot go back to scheduled")

	in.Status = models.StatusDraft
	r, err := f.svc.Update(ctx, "live", in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, r.Status)
	assert.Nil(t, r.ScheduledPublishAt)

	in.Status = models.StatusScheduled
	in.ScheduledPublishAt = ptrTime(baseTime.Add(24 * time.Hour))
	r, err = f.svc.Update(ctx, "live", in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, r.Status)

	in.Status = models.StatusPublished
	_, err = f.svc.Update(ctx, "live", in)
	assert.ErrorIs(t, err, ErrInvalidTransition, "not due yet")

	f.advance(25 * time.Hour)
	r, err = f.svc.Update(ctx, "live", in)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, r.Status)
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestDeleteRemovesImageBestEffort(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	in := input("With Image")
	in.FeaturedImage = "/uploads/reviews/a.png"
	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	in = input("Broken Image")
	in.FeaturedImage = "/uploads/reviews/b.png"
	_, err = f.svc.Create(ctx, in)
	require.NoError(t, err)
	f.images.failOn = "/uploads/reviews/b.png"

	in = input("Foreign Image")
	in.FeaturedImage = "https://elsewhere.example/c.png"
	_, err = f.svc.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "with-image"))
	require.NoError(t, f.svc.Delete(ctx, "broken-image"), "image failures do not fail the delete")
	require.NoError(t, f.svc.Delete(ctx, "foreign-image"))

	assert.Equal(t, []string{"/uploads/reviews/a.png"}, f.images.deleted)
	assert.ErrorIs(t, f.svc.Delete(ctx, "with-image"), storage.ErrNotFound)
}

func TestRecordView(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, published("Viewed"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, input("Hidden"))
	require.NoError(t, err)

	f.advance(time.Minute)
	count, err := f.svc.RecordView(ctx, "viewed", "viewer-a")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = f.svc.RecordView(ctx, "viewed", "viewer-a")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "same viewer within the window")

	count, err = f.svc.RecordView(ctx, "viewed", "viewer-b")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored, err := f.store.GetBySlug(ctx, "viewed")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ViewCount)
	assert.Equal(t, baseTime, stored.UpdatedAt, "views do not touch updatedAt")

	_, err = f.svc.RecordView(ctx, "hidden", "viewer-a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRecordViewCountsWhenGuardFails(t *testing.T) {
	f := newFixture(t, brokenGuard{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, published("Viewed"))
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		count, err := f.svc.RecordView(ctx, "viewed", "viewer-a")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}
}

func TestPublishDue(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	due := input("Due")
	due.Status = models.StatusScheduled
	due.ScheduledPublishAt = ptrTime(baseTime.Add(time.Hour))
	_, err := f.svc.Create(ctx, due)
	require.NoError(t, err)

	later := input("Later")
	later.Status = models.StatusScheduled
	later.ScheduledPublishAt = ptrTime(baseTime.Add(48 * time.Hour))
	_, err = f.svc.Create(ctx, later)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, input("Draft"))
	require.NoError(t, err)

	f.advance(2 * time.Hour)
	report, err := f.svc.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"due"}, report.Published)
	assert.Empty(t, report.Failed)

	r, err := f.store.GetBySlug(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, r.Status)
	assert.Equal(t, baseTime.Add(time.Hour), *r.PublishedAt)
	assert.Nil(t, r.ScheduledPublishAt)
	assert.Equal(t, baseTime.Add(2*time.Hour), r.UpdatedAt)

	report, err = f.svc.PublishDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Published, "second run is a no-op")
}

func TestDuplicate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	src, err := f.svc.Create(ctx, published("Portal"))
	require.NoError(t, err)

	first, err := f.svc.Duplicate(ctx, "portal", "admin")
	require.NoError(t, err)
	assert.Equal(t, "portal-copy", first.Slug)
	assert.Equal(t, "Portal (Copy)", first.Title)
	assert.Equal(t, models.StatusDraft, first.Status)
	assert.NotEqual(t, src.ID, first.ID)
	assert.Nil(t, first.PublishedAt)
	assert.Equal(t, "admin", first.LastModifiedBy)

	second, err := f.svc.Duplicate(ctx, "portal", "admin")
	require.NoError(t, err)
	assert.Equal(t, "portal-copy-2", second.Slug)

	_, err = f.svc.Duplicate(ctx, "missing", "admin")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDuplicateLongTitle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	src, err := f.svc.Create(ctx, published(strings.Repeat("a", slug.MaxLength)))
	require.NoError(t, err)
	require.Len(t, src.Slug, slug.MaxLength)

	first, err := f.svc.Duplicate(ctx, src.Slug, "admin")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", slug.MaxLength-2)+"-2", first.Slug)

	second, err := f.svc.Duplicate(ctx, src.Slug, "admin")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", slug.MaxLength-2)+"-3", second.Slug)

	for _, key := range []string{src.Slug, first.Slug, second.Slug} {
		_, err := f.svc.Get(ctx, key)
		assert.NoError(t, err, key)
	}
}

func TestBatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, title := range []string{"One", "Two"} {
		_, err := f.svc.Create(ctx, input(title))
		require.NoError(t, err)
	}

	res, err := f.svc.Batch(ctx, BatchPublish, []string{"one", "two", "three"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Results[2].OK)

	list, err := f.svc.List(ctx, query.Default())
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	res, err = f.svc.Batch(ctx, BatchUnpublish, []string{"one"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	res, err = f.svc.Batch(ctx, BatchDelete, []string{"one", "two"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)

	_, err = f.svc.Batch(ctx, "archive", []string{"one"}, "admin")
	assert.True(t, models.IsValidationError(err))
}

func TestListAppliesQuery(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, published("Alpha"))
	require.NoError(t, err)
	f.advance(time.Hour)
	_, err = f.svc.Create(ctx, published("Beta"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, input("Gamma"))
	require.NoError(t, err)

	res, err := f.svc.List(ctx, query.Default())
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "beta", res.Items[0].Slug)

	res, err = f.svc.List(ctx, query.Query{Status: query.StatusAll})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
}
