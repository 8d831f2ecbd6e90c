package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caribook/internal/amqp"
	"caribook/internal/core"
	"caribook/internal/store"
	"caribook/internal/store/memory"
)

type fakeMirror struct {
	mu      sync.Mutex
	rows    map[string]core.Event
	removed []string
	failFor map[string]bool
	before  func(core.Event)
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[string]core.Event{}, failFor: map[string]bool{}}
}

func (m *fakeMirror) UpsertEvent(_ context.Context, e core.Event) (string, error) {
	if m.before != nil {
		m.before(e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[e.ID] {
		return "", errors.New("quota exceeded")
	}
	m.rows[e.ID] = e
	return "Bookings!A2:S2", nil
}

func (m *fakeMirror) RemoveEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	m.removed = append(m.removed, id)
	return nil
}

func (m *fakeMirror) row(id string) (core.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	return e, ok
}

func seed(t *testing.T, st *memory.Store, clients ...string) []string {
	t.Helper()
	var ids []string
	for _, c := range clients {
		e, err := st.InsertEvent(context.Background(), core.Event{ClientName: c, Status: core.StatusOK})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}
	return ids
}

func pendingIDs(t *testing.T, st *memory.Store) []string {
	t.Helper()
	pending, err := st.PendingSync(context.Background(), 0)
	require.NoError(t, err)
	var ids []string
	for _, p := range pending {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	mirror := newFakeMirror()
	w := NewSyncWorker(st, mirror, 10, nil)
	ids := seed(t, st, "Asha")

	require.NoError(t, w.HandleMessage(ctx, amqp.NewEventSyncMessage(ids[0], 1)))

	row, ok := mirror.row(ids[0])
	require.True(t, ok)
	assert.Equal(t, "Asha", row.ClientName)
	assert.Empty(t, pendingIDs(t, st))
}

func TestHandleSyncMessageForDeletedEvent(t *testing.T) {
	w := NewSyncWorker(memory.New(nil), newFakeMirror(), 10, nil)
	assert.NoError(t, w.HandleSyncMessage(context.Background(), amqp.NewEventSyncMessage("gone", 3)))
}

func TestHandleSyncMessageMirrorFailure(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	mirror := newFakeMirror()
	w := NewSyncWorker(st, mirror, 10, nil)
	ids := seed(t, st, "Asha")
	mirror.failFor[ids[0]] = true

	err := w.HandleSyncMessage(ctx, amqp.NewEventSyncMessage(ids[0], 1))
	require.Error(t, err, "failures are returned so the message is requeued")
	assert.Equal(t, ids, pendingIDs(t, st), "errored events stay in the sweep")
}

func TestSyncDoesNotMarkNewerVersion(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	mirror := newFakeMirror()
	w := NewSyncWorker(st, mirror, 10, nil)
	ids := seed(t, st, "Asha")

	mirror.before = func(e core.Event) {
		mirror.before = nil
		e.ClientName = "Asha K"
		_, err := st.ReplaceEvent(ctx, e)
		require.NoError(t, err)
	}

	require.NoError(t, w.HandleSyncMessage(ctx, amqp.NewEventSyncMessage(ids[0], 1)))
	assert.Equal(t, ids, pendingIDs(t, st), "an edit during the write keeps the event pending")
}

func TestHandleDeleteMessage(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	w := NewSyncWorker(memory.New(nil), mirror, 10, nil)

	require.NoError(t, w.HandleMessage(ctx, amqp.NewEventDeleteMessage("evt-9")))
	assert.Equal(t, []string{"evt-9"}, mirror.removed)
}

func TestStartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	mirror := newFakeMirror()
	w := NewSyncWorker(st, mirror, 1, nil)
	ids := seed(t, st, "a", "b", "c")
	mirror.failFor[ids[1]] = true

	require.NoError(t, w.StartupSyncCheck(ctx))

	assert.Equal(t, []string{ids[1]}, pendingIDs(t, st))
	_, ok := mirror.row(ids[2])
	assert.True(t, ok)
}

func TestProcessPendingEventsBatch(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	w := NewSyncWorker(st, newFakeMirror(), 2, nil)
	seed(t, st, "a", "b", "c")

	require.NoError(t, w.ProcessPendingEvents(ctx))
	assert.Len(t, pendingIDs(t, st), 1)
	require.NoError(t, w.ProcessPendingEvents(ctx))
	assert.Empty(t, pendingIDs(t, st))
}

func TestPoller(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	w := NewSyncWorker(st, newFakeMirror(), 10, nil)
	p := NewPoller(w, 10*time.Millisecond)

	require.NoError(t, p.Start(ctx))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(ctx))

	seed(t, st, "late")
	assert.Eventually(t, func() bool {
		pending, err := st.PendingSync(ctx, 0)
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop(ctx))
	assert.False(t, p.IsRunning())
	require.NoError(t, p.Stop(ctx))
}

var _ Source = (*memory.Store)(nil)
var _ store.SyncStore = (*memory.Store)(nil)
