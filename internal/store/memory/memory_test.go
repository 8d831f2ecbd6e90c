package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caribook/internal/core"
	"caribook/internal/store"
)

type tick struct{ t time.Time }

func (c *tick) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore() *Store {
	c := &tick{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	return New(nil, WithClock(c.now))
}

func day(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }

func TestEventLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	created, err := s.InsertEvent(ctx, core.Event{ClientName: "Acme", Date: day(10), Artists: []string{"Asha"}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	created.Artists[0] = "mutated"
	got, err := s.GetEvent(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Asha"}, got.Artists, "stored record must not alias caller slices")

	got.ClientName = "Acme Ltd"
	got.CreatedAt = time.Time{}
	replaced, err := s.ReplaceEvent(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", replaced.ClientName)
	assert.Equal(t, created.CreatedAt, replaced.CreatedAt)
	assert.True(t, replaced.UpdatedAt.After(created.UpdatedAt))

	require.NoError(t, s.DeleteEvent(ctx, created.ID))
	_, err = s.GetEvent(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEvent(ctx, created.ID), store.ErrNotFound)
	_, err = s.ReplaceEvent(ctx, got)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListEventsBetween(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	w := core.WindowOf(2024, time.March, nil)

	for _, d := range []time.Time{
		time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		day(15),
	} {
		_, err := s.InsertEvent(ctx, core.Event{Date: d})
		require.NoError(t, err)
	}

	events, err := s.ListEventsBetween(ctx, w.Start, w.End)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.True(t, w.Contains(e.Date), "event %d outside window: %v", i, e.Date)
		if i > 0 {
			assert.False(t, e.Date.Before(events[i-1].Date), "events must be ascending")
		}
	}

	all, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestArtists(t *testing.T) {
	ctx := context.Background()
	s := New([]string{"Ravi", "Asha", "Ravi", " "})

	_, err := s.InsertArtist(ctx, "  Meera ")
	require.NoError(t, err)
	_, err = s.InsertArtist(ctx, "   ")
	assert.ErrorIs(t, err, core.ErrEmptyArtist)

	artists, err := s.ListArtists(ctx)
	require.NoError(t, err)
	var names []string
	for _, a := range artists {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Asha", "Meera", "Ravi"}, names)
}

func TestNewFromFilesSeedsArtists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_artists.txt"), []byte("# artists\nAsha\n\nRavi\nAsha\n"), 0o644))

	artists, err := NewFromFiles(dir).ListArtists(context.Background())
	require.NoError(t, err)
	assert.Len(t, artists, 2)

	artists, err = NewFromFiles(t.TempDir()).ListArtists(context.Background())
	require.NoError(t, err)
	assert.Empty(t, artists)
}

func TestStatusLabels(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	labels, err := s.LoadStatusLabels(ctx)
	require.NoError(t, err)
	assert.Empty(t, labels)

	require.NoError(t, s.SaveStatusLabels(ctx, core.StatusLabels{core.StatusOutdoor: "Open Air"}))
	labels, err = s.LoadStatusLabels(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Open Air", labels.Label(core.StatusOutdoor))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	_, err := s.UserByEmail(ctx, "owner@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	u, err := s.SaveUser(ctx, store.User{Email: "Owner@Example.com", PasswordHash: []byte("h1")})
	require.NoError(t, err)
	require.NotEmpty(t, u.UID)

	again, err := s.SaveUser(ctx, store.User{Email: "owner@example.com", PasswordHash: []byte("h2")})
	require.NoError(t, err)
	assert.Equal(t, u.UID, again.UID, "saving by the same email keeps the uid")

	require.NoError(t, s.UpdateRole(ctx, u.UID, "admin"))
	got, err := s.UserByEmail(ctx, " OWNER@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, []byte("h2"), got.PasswordHash)

	assert.ErrorIs(t, s.UpdateRole(ctx, "missing", "admin"), store.ErrNotFound)
}

func TestSyncTracking(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	e, err := s.InsertEvent(ctx, core.Event{Date: day(1)})
	require.NoError(t, err)

	pending, err := s.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(1), pending[0].Version)

	// an edit lands between the read and the ack
	_, err = s.ReplaceEvent(ctx, e)
	require.NoError(t, err)
	require.NoError(t, s.MarkSynced(ctx, e.ID, 1))
	pending, err = s.PendingSync(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1, "stale ack must not clear a newer version")

	v, err := s.EventVersion(ctx, e.ID)
	require.NoError(t, err)
	require.NoError(t, s.MarkSynced(ctx, e.ID, v))
	pending, err = s.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, s.MarkSyncError(ctx, e.ID))
	pending, err = s.PendingSync(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1, "errored rows are retried")
}
