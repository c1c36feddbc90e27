package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pych2536/rpca70/internal/auth"
	"github.com/pych2536/rpca70/internal/catalog"
	"github.com/pych2536/rpca70/internal/member/models"
	"github.com/pych2536/rpca70/internal/member/store"
	"github.com/pych2536/rpca70/internal/settings"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
)

type fixture struct {
	svc   *Service
	store *store.InMemory
	set   *settings.Store
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewInMemory(),
		set:   settings.NewStore(filepath.Join(t.TempDir(), "settings.json")),
		now:   time.Date(2024, 5, 20, 10, 30, 0, 0, time.UTC),
	}
	f.svc = New(f.store, f.set, slog.New(slog.NewTextHandler(io.Discard, nil)), nil,
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
	)
	return f
}

func (f *fixture) seed(t *testing.T, recs ...*models.Record) {
	t.Helper()
	require.NoError(t, f.store.ReplaceAll(context.Background(), recs))
}

func record(seq int, first, last string) *models.Record {
	rec := &models.Record{
		SequenceID:  seq,
		Status:      models.StatusUnconfirmed,
		LastUpdated: models.PlaceholderUpdatedAt,
	}
	rec.SetField("first_name", first)
	rec.SetField("last_name", last)
	return rec
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(5, "Somchai", "Jaidee"))
	ctx := context.Background()

	seq, err := f.svc.Search(ctx, "  somchai ", "JAIDEE")
	require.NoError(t, err)
	assert.Equal(t, 5, seq)

	_, err = f.svc.Search(ctx, "Nobody", "Here")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = f.svc.Search(ctx, "", "Jaidee")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestConfirm_StampsStatusAndTime(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(1, "A", "B"))
	ctx := context.Background()

	require.NoError(t, f.svc.Confirm(ctx, 1))

	rec, err := f.svc.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, rec.Status)
	assert.Equal(t, "20 May 2024, 10:30", rec.LastUpdated)

	// Re-confirming keeps the status but refreshes the stamp.
	f.now = f.now.Add(5 * time.Minute)
	require.NoError(t, f.svc.Confirm(ctx, 1))
	rec, err = f.svc.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, rec.Status)
	assert.Equal(t, "20 May 2024, 10:35", rec.LastUpdated)
}

func TestConfirm_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Confirm(context.Background(), 99)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestApplyEdit_PatchByExternalLabel(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(1, "A", "B"))
	ctx := context.Background()

	patch := map[string]string{
		"ชื่อเล่น":      "Beam",
		"เบอร์โทรศัพท์": "0812345678",
	}
	require.NoError(t, f.svc.ApplyEdit(ctx, 1, patch))

	rec, err := f.svc.View(ctx, 1)
	require.NoError(t, err)
	nick, _ := rec.Field("nickname")
	phone, _ := rec.Field("phone")
	assert.Equal(t, "Beam", nick)
	assert.Equal(t, "0812345678", phone)
	assert.Equal(t, models.StatusConfirmed, rec.Status)
	assert.Equal(t, "20 May 2024, 10:30", rec.LastUpdated)
}

func TestApplyEdit_EmptyPatchStillStamps(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(1, "A", "B"))
	ctx := context.Background()

	require.NoError(t, f.svc.ApplyEdit(ctx, 1, map[string]string{}))

	rec, err := f.svc.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, rec.Status)
	assert.Equal(t, "20 May 2024, 10:30", rec.LastUpdated)
	first, _ := rec.Field("first_name")
	assert.Equal(t, "A", first, "domain fields must be untouched")
}

func TestApplyEdit_IgnoresIdentifierAndUnknownKeys(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(1, "A", "B"))
	ctx := context.Background()

	patch := map[string]string{
		"ลำดับ": "999",
		"ไม่ใช่คอลัมน์จริง":                  "x",
		catalog.LabelOf(catalog.FieldStatus): "hacked",
	}
	require.NoError(t, f.svc.ApplyEdit(ctx, 1, patch))

	rec, err := f.svc.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.SequenceID, "identifier is immutable")
	_, err = f.svc.View(ctx, 999)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Equal(t, models.StatusConfirmed, rec.Status, "tracking fields only change via stamping")
}

func TestApplyEdit_NotFoundTouchesNothing(t *testing.T) {
	f := newFixture(t)
	err := f.svc.ApplyEdit(context.Background(), 42, map[string]string{"ชื่อเล่น": "x"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestApplyEdit_GatedBySettings(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(1, "A", "B"))
	ctx := context.Background()

	require.NoError(t, f.set.SetFlags(settings.Flags{UserEditingEnabled: false}))

	err := f.svc.ApplyEdit(ctx, 1, map[string]string{"ชื่อเล่น": "x"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	// An authenticated admin edits regardless of the flag.
	adminCtx := auth.WithAdminActor(ctx, "RPCA70-Admin")
	require.NoError(t, f.svc.ApplyEdit(adminCtx, 1, map[string]string{"ชื่อเล่น": "x"}))
}

func TestResetStatus(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(1, "A", "B"))
	ctx := context.Background()

	require.NoError(t, f.svc.Confirm(ctx, 1))
	require.NoError(t, f.svc.ResetStatus(ctx, 1))
	require.NoError(t, f.svc.ResetStatus(ctx, 1))

	rec, err := f.svc.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnconfirmed, rec.Status)
	assert.Equal(t, models.PlaceholderUpdatedAt, rec.LastUpdated)

	err = f.svc.ResetStatus(ctx, 99)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDirectory_GatedByFlag(t *testing.T) {
	f := newFixture(t)
	f.seed(t, record(1, "Somchai", "Jaidee"))
	ctx := context.Background()

	// Directory browsing is off by default.
	_, err := f.svc.Directory(ctx, "som")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	require.NoError(t, f.set.SetFlags(settings.Flags{UserEditingEnabled: true, DirectoryViewEnabled: true}))
	recs, err := f.svc.Directory(ctx, "som")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestListForAdmin_Stats(t *testing.T) {
	f := newFixture(t)
	a := record(1, "A", "a")
	b := record(2, "B", "b")
	c := record(3, "C", "c")
	a.Status = models.StatusConfirmed
	f.seed(t, a, b, c)

	recs, stats, err := f.svc.ListForAdmin(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, models.Stats{Total: 3, Confirmed: 1, Unconfirmed: 2, Percentage: 33.33}, stats)
}

func TestListForAdmin_EmptyStore(t *testing.T) {
	f := newFixture(t)

	recs, stats, err := f.svc.ListForAdmin(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, models.Stats{}, stats)
}
