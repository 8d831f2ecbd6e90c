package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caribook/internal/core"
	"caribook/internal/store"
)

func newRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caribook.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sample(date time.Time) core.Event {
	return core.Event{
		ClientName:     "Mehta Family",
		Date:           date,
		Status:         core.StatusOKOutdoor,
		InstagramID:    "@mehta",
		Artists:        []string{"Asha", "Ravi"},
		Price:          4500,
		AdvancePayment: 1500,
		PendingPayment: 3000,
		MarketingCosts: 800,
		OtherCosts:     core.OtherCosts{Materials: 500, Travel: 300, Misc: 200},
	}
}

func TestMigrations(t *testing.T) {
	_, path := newRepo(t)

	version, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, RollbackMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestEventRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	date := time.Date(2024, 3, 10, 13, 30, 0, 0, time.UTC)
	created, err := repo.InsertEvent(ctx, sample(date))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.True(t, created.Date.Equal(date))
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, []string{"Asha", "Ravi"}, got.Artists)
	assert.Equal(t, core.OtherCosts{Materials: 500, Travel: 300, Misc: 200}, got.OtherCosts)
	assert.Equal(t, core.StatusOKOutdoor, got.Status)

	got.ClientName = "Mehta & Sons"
	got.Artists = nil
	updated, err := repo.ReplaceEvent(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Mehta & Sons", updated.ClientName)
	assert.Equal(t, []string{}, updated.Artists)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	require.NoError(t, repo.DeleteEvent(ctx, created.ID))
	_, err = repo.GetEvent(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteEvent(ctx, created.ID), store.ErrNotFound)
	_, err = repo.ReplaceEvent(ctx, got)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListEventsBetweenBoundaries(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	w, err := core.MonthWindow(2024, "March", nil)
	require.NoError(t, err)

	dates := []time.Time{
		time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 3, 31, 23, 59, 59, 500_000_000, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
	}
	for _, d := range dates {
		_, err := repo.InsertEvent(ctx, sample(d))
		require.NoError(t, err)
	}
	_, err = repo.InsertEvent(ctx, core.Event{Status: core.StatusOK})
	require.NoError(t, err)

	events, err := repo.ListEventsBetween(ctx, w.Start, w.End)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.True(t, events[0].Date.Equal(dates[3]))
	assert.True(t, events[1].Date.Equal(dates[0]))
	assert.True(t, events[2].Date.Equal(dates[1]))

	all, err := repo.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.False(t, all[5].HasDate(), "undated events sort last")
}

func TestArtistsAndLabels(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	for _, name := range []string{"Ravi", " Asha ", "Meera"} {
		_, err := repo.InsertArtist(ctx, name)
		require.NoError(t, err)
	}
	_, err := repo.InsertArtist(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyArtist)

	artists, err := repo.ListArtists(ctx)
	require.NoError(t, err)
	require.Len(t, artists, 3)
	assert.Equal(t, "Asha", artists[0].Name)
	assert.Equal(t, "Ravi", artists[2].Name)

	require.NoError(t, repo.SaveStatusLabels(ctx, core.StatusLabels{core.StatusOK: "Confirmed", core.StatusOutdoor: "Open Air"}))
	require.NoError(t, repo.SaveStatusLabels(ctx, core.StatusLabels{core.StatusOK: "Booked"}))
	labels, err := repo.LoadStatusLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StatusLabels{core.StatusOK: "Booked"}, labels)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	u, err := repo.SaveUser(ctx, store.User{Email: "Owner@Example.com", PasswordHash: []byte("hash-1"), Role: "manager"})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", u.Email)

	again, err := repo.SaveUser(ctx, store.User{Email: "owner@example.com", PasswordHash: []byte("hash-2")})
	require.NoError(t, err)
	assert.Equal(t, u.UID, again.UID)
	assert.Equal(t, "manager", again.Role, "an empty role keeps the stored one")

	require.NoError(t, repo.UpdateRole(ctx, u.UID, "admin"))
	got, err := repo.UserByEmail(ctx, "OWNER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, []byte("hash-2"), got.PasswordHash)

	_, err = repo.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateRole(ctx, "missing", "admin"), store.ErrNotFound)
}

func TestSyncTracking(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	e, err := repo.InsertEvent(ctx, sample(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	pending, err := repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].Version)

	_, err = repo.ReplaceEvent(ctx, e)
	require.NoError(t, err)
	require.NoError(t, repo.MarkSynced(ctx, e.ID, 1))
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "a stale ack leaves the newer version pending")

	v, err := repo.EventVersion(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	require.NoError(t, repo.MarkSynced(ctx, e.ID, v))
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, repo.MarkSyncError(ctx, e.ID))
	pending, err = repo.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	assert.ErrorIs(t, repo.MarkSyncError(ctx, "missing"), store.ErrNotFound)
	_, err = repo.EventVersion(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
