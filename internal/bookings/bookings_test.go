package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caribook/internal/core"
	"caribook/internal/store"
	"caribook/internal/store/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newRepo(t *testing.T) (*Repository, *memory.Store) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	st := memory.New(nil, memory.WithClock(clock))
	return NewRepository(st, WithClock(clock)), st
}

func sp(s string) *string { return &s }

func form(date, client string, price float64) core.EventForm {
	return core.EventForm{Date: sp(date), ClientName: sp(client), Price: core.NumberOf(price)}
}

func next(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "snapshot channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}

// waitFor reads snapshots until cond holds.
func waitFor(t *testing.T, ch <-chan Snapshot, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			require.True(t, ok, "snapshot channel closed")
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
			return Snapshot{}
		}
	}
}

func clients(events []core.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ClientName)
	}
	return out
}

func TestSubscribeInitialSnapshot(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	_, err := repo.Create(ctx, form("2024-03-20", "late", 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, form("2024-03-02", "early", 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, form("2024-04-01", "april", 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, form("2024-02-29T23:59:59Z", "february", 1))
	require.NoError(t, err)

	sub, err := repo.Subscribe(ctx, 2024, "March")
	require.NoError(t, err)
	defer sub.Close()

	snap := next(t, sub.Snapshots())
	require.NoError(t, snap.Err)
	assert.Equal(t, sub.Generation(), snap.Generation)
	assert.Equal(t, []string{"early", "late"}, clients(snap.Events))
	assert.Equal(t, "March", snap.Window.MonthName())
}

func TestSubscribeUnknownMonth(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repo.Subscribe(context.Background(), 2024, "march")
	assert.ErrorIs(t, err, core.ErrUnknownMonth)
	assert.Equal(t, 0, repo.Hub().Len())
}

func TestSubscriptionFollowsWrites(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	sub, err := repo.Subscribe(ctx, 2024, "March")
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, next(t, sub.Snapshots()).Events)

	id, err := repo.Create(ctx, form("2024-03-10", "Asha", 5000))
	require.NoError(t, err)
	waitFor(t, sub.Snapshots(), func(s Snapshot) bool { return len(s.Events) == 1 })

	require.NoError(t, repo.Update(ctx, id, core.EventForm{ClientName: sp("Asha K")}))
	waitFor(t, sub.Snapshots(), func(s Snapshot) bool {
		return len(s.Events) == 1 && s.Events[0].ClientName == "Asha K"
	})

	require.NoError(t, repo.Delete(ctx, id))
	waitFor(t, sub.Snapshots(), func(s Snapshot) bool { return len(s.Events) == 0 })
}

func TestSubscriptionClose(t *testing.T) {
	repo, _ := newRepo(t)
	sub, err := repo.Subscribe(context.Background(), 2024, "March")
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	for range sub.Snapshots() {
	}
	assert.Equal(t, 0, repo.Hub().Len())
}

func TestSubscriptionStopsWithContext(t *testing.T) {
	repo, _ := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := repo.Subscribe(ctx, 2024, "March")
	require.NoError(t, err)

	cancel()
	sub.Close()
	assert.Equal(t, 0, repo.Hub().Len())
}

func TestGenerationsIncrease(t *testing.T) {
	repo, _ := newRepo(t)
	a, err := repo.Subscribe(context.Background(), 2024, "March")
	require.NoError(t, err)
	defer a.Close()
	b, err := repo.Subscribe(context.Background(), 2024, "April")
	require.NoError(t, err)
	defer b.Close()

	assert.Greater(t, b.Generation(), a.Generation())
}

func TestCreateDefaults(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	id, err := repo.Create(ctx, core.EventForm{ClientName: sp("  Ravi  ")})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	e, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", e.ClientName)
	assert.Equal(t, core.StatusOK, e.Status)
	assert.True(t, e.Date.Equal(fixedNow))
	assert.Equal(t, core.OtherCosts{}, e.OtherCosts)
	assert.Equal(t, fixedNow, e.CreatedAt)
}

func TestCreateRejectsInvalidDate(t *testing.T) {
	repo, st := newRepo(t)
	_, err := repo.Create(context.Background(), core.EventForm{Date: sp("next tuesday")})
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	all, err := st.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

type anonymousStore struct{ store.EventStore }

func (anonymousStore) InsertEvent(_ context.Context, e core.Event) (core.Event, error) {
	e.ID = ""
	return e, nil
}

func TestCreateWithoutIdentity(t *testing.T) {
	repo := NewRepository(anonymousStore{})
	_, err := repo.Create(context.Background(), core.EventForm{})
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestUpdateMergesOntoStoredRecord(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	id, err := repo.Create(ctx, core.EventForm{
		Date:       sp("2024-03-10"),
		ClientName: sp("Asha"),
		Location:   sp("Pune"),
		Price:      core.NumberOf(3000),
		OtherCosts: &core.OtherCostsForm{Travel: core.NumberOf(200)},
	})
	require.NoError(t, err)
	before, err := repo.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, id, core.EventForm{Price: core.NumberOf(4500)}))

	after, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, after.ID)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, 4500.0, after.Price)
	assert.Equal(t, "Pune", after.Location)
	assert.Equal(t, 200.0, after.OtherCosts.Travel)
	assert.True(t, after.Date.Equal(before.Date))
}

func TestUpdateAndDeleteMissing(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	assert.True(t, errors.Is(repo.Update(ctx, "nope", core.EventForm{}), store.ErrNotFound))
	assert.True(t, errors.Is(repo.Delete(ctx, "nope"), store.ErrNotFound))
}

func TestListAll(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	for _, d := range []string{"2024-05-01", "2023-12-31", "2024-03-01"} {
		_, err := repo.Create(ctx, form(d, d, 0))
		require.NoError(t, err)
	}
	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-12-31", "2024-03-01", "2024-05-01"}, clients(all))
}

func TestHubCoalesces(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	h.Publish()
	h.Publish()
	h.Publish()

	<-ch
	select {
	case <-ch:
		t.Fatal("signals must coalesce")
	default:
	}

	cancel()
	cancel()
	assert.Equal(t, 0, h.Len())
}

func TestLocalDatesFallInRepositoryMonth(t *testing.T) {
	ctx := context.Background()
	ist := time.FixedZone("IST", 5*3600+1800)
	clock := func() time.Time { return fixedNow }
	repo := NewRepository(memory.New(nil, memory.WithClock(clock)), WithClock(clock), WithLocation(ist))

	_, err := repo.Create(ctx, form("2024-03-31T23:59:59", "late-march", 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, form("2024-03-31T20:00", "evening", 1))
	require.NoError(t, err)
	_, err = repo.Create(ctx, form("2024-04-01T00:00", "april", 1))
	require.NoError(t, err)

	march, err := repo.Window(2024, "March")
	require.NoError(t, err)
	got, err := repo.Query(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, []string{"evening", "late-march"}, clients(got))

	april, err := repo.Window(2024, "April")
	require.NoError(t, err)
	got, err = repo.Query(ctx, april)
	require.NoError(t, err)
	assert.Equal(t, []string{"april"}, clients(got))

	evening, err := repo.Query(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, 31, march.Pin(evening[0].Date.In(ist)).Day())
}
