package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"caribook/internal/core"
	"caribook/internal/store"
)

type record struct {
	event      core.Event
	version    int64
	syncStatus string
}

// Store keeps everything in process memory. It implements store.Store.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	events  map[string]*record
	artists []core.Artist
	labels  core.StatusLabels
	users   map[string]store.User // keyed by lower-cased email
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(artists []string, opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		events: map[string]*record{},
		users:  map[string]store.User{},
	}
	for _, o := range opts {
		o(s)
	}
	for _, name := range dedupe(artists) {
		s.artists = append(s.artists, core.Artist{ID: uuid.NewString(), Name: name, CreatedAt: s.now().UTC()})
	}
	return s
}

// NewFromFiles seeds the artist catalog from base/seed_artists.txt.
func NewFromFiles(base string, opts ...Option) *Store {
	return New(readLines(filepath.Join(base, "seed_artists.txt")), opts...)
}

func (s *Store) InsertEvent(_ context.Context, e core.Event) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Artists = append([]string{}, e.Artists...)
	s.events[e.ID] = &record{event: e, version: 1, syncStatus: store.SyncPending}
	return clone(e), nil
}

func (s *Store) GetEvent(_ context.Context, id string) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.events[id]
	if !ok {
		return core.Event{}, store.ErrNotFound
	}
	return clone(r.event), nil
}

// ReplaceEvent overwrites the stored record, keeping its identity and
// creation time and refreshing UpdatedAt.
func (s *Store) ReplaceEvent(_ context.Context, e core.Event) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.events[e.ID]
	if !ok {
		return core.Event{}, store.ErrNotFound
	}
	e.CreatedAt = r.event.CreatedAt
	e.UpdatedAt = s.now().UTC()
	e.Artists = append([]string{}, e.Artists...)
	r.event = e
	r.version++
	r.syncStatus = store.SyncPending
	return clone(e), nil
}

func (s *Store) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *Store) ListEventsBetween(_ context.Context, start, end time.Time) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Event, 0)
	for _, r := range s.events {
		d := r.event.Date
		if !d.Before(start) && d.Before(end) {
			out = append(out, clone(r.event))
		}
	}
	core.SortByDate(out)
	return out, nil
}

func (s *Store) ListEvents(_ context.Context) ([]core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Event, 0, len(s.events))
	for _, r := range s.events {
		out = append(out, clone(r.event))
	}
	core.SortByDate(out)
	return out, nil
}

func (s *Store) InsertArtist(_ context.Context, name string) (core.Artist, error) {
	a := core.Artist{Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return core.Artist{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = s.now().UTC()
	s.artists = append(s.artists, a)
	return a, nil
}

func (s *Store) ListArtists(_ context.Context) ([]core.Artist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]core.Artist(nil), s.artists...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) LoadStatusLabels(_ context.Context) (core.StatusLabels, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := core.StatusLabels{}
	for k, v := range s.labels {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SaveStatusLabels(_ context.Context, labels core.StatusLabels) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.labels = core.StatusLabels{}
	for k, v := range labels {
		s.labels[k] = v
	}
	return nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[emailKey(email)]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (s *Store) SaveUser(_ context.Context, u store.User) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	key := emailKey(u.Email)
	u.Email = key
	if prev, ok := s.users[key]; ok {
		u.UID = prev.UID
		u.CreatedAt = prev.CreatedAt
		if u.Role == "" {
			u.Role = prev.Role
		}
	} else {
		if u.UID == "" {
			u.UID = uuid.NewString()
		}
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[key] = u
	return u, nil
}

func (s *Store) UpdateRole(_ context.Context, uid, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, u := range s.users {
		if u.UID == uid {
			u.Role = role
			u.UpdatedAt = s.now().UTC()
			s.users[key] = u
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) PendingSync(_ context.Context, limit int) ([]store.PendingSync, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.PendingSync
	for id, r := range s.events {
		if r.syncStatus == store.SyncSynced {
			continue
		}
		out = append(out, store.PendingSync{ID: id, Version: r.version, UpdatedAt: r.event.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.events[id]
	if !ok {
		return store.ErrNotFound
	}
	if r.version == version {
		r.syncStatus = store.SyncSynced
	}
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.events[id]
	if !ok {
		return store.ErrNotFound
	}
	r.syncStatus = store.SyncError
	return nil
}

func (s *Store) EventVersion(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.events[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	return r.version, nil
}

func clone(e core.Event) core.Event {
	e.Artists = append([]string{}, e.Artists...)
	return e
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeated names, keeping first occurrences.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
