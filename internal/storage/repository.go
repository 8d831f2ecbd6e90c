package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"caribook/internal/core"
	"caribook/internal/store"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that stored text sorts like time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between the API and the worker's acks
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) InsertEvent(ctx context.Context, e core.Event) (core.Event, error) {
	now := formatTime(r.now())
	params, err := eventParams(e)
	if err != nil {
		return core.Event{}, err
	}
	params.ID = uuid.NewString()
	params.CreatedAt = now
	params.UpdatedAt = now

	row, err := r.queries.CreateEvent(ctx, params)
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", err)
	}

	slog.DebugContext(ctx, "Event saved to SQLite", "event_id", row.ID, "date", row.Date)
	return toCoreEvent(row)
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (core.Event, error) {
	row, err := r.queries.GetEvent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Event{}, store.ErrNotFound
	}
	if err != nil {
		return core.Event{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return toCoreEvent(row)
}

func (r *SQLiteRepository) ReplaceEvent(ctx context.Context, e core.Event) (core.Event, error) {
	params, err := eventParams(e)
	if err != nil {
		return core.Event{}, err
	}
	params.ID = e.ID
	params.UpdatedAt = formatTime(r.now())

	row, err := r.queries.UpdateEvent(ctx, params)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Event{}, store.ErrNotFound
	}
	if err != nil {
		return core.Event{}, fmt.Errorf("update event %s: %w", e.ID, err)
	}
	return toCoreEvent(row)
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id string) error {
	n, err := r.queries.DeleteEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListEventsBetween(ctx context.Context, start, end time.Time) ([]core.Event, error) {
	rows, err := r.queries.ListEventsBetween(ctx, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("list events between %s and %s: %w", start, end, err)
	}
	return toCoreEvents(rows)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context) ([]core.Event, error) {
	rows, err := r.queries.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return toCoreEvents(rows)
}

func (r *SQLiteRepository) InsertArtist(ctx context.Context, name string) (core.Artist, error) {
	a := core.Artist{Name: strings.TrimSpace(name)}
	if err := a.Validate(); err != nil {
		return core.Artist{}, err
	}
	row, err := r.queries.CreateArtist(ctx, uuid.NewString(), a.Name, formatTime(r.now()))
	if err != nil {
		return core.Artist{}, fmt.Errorf("create artist: %w", err)
	}
	return core.Artist{ID: row.ID, Name: row.Name, CreatedAt: parseTime(row.CreatedAt)}, nil
}

func (r *SQLiteRepository) ListArtists(ctx context.Context) ([]core.Artist, error) {
	rows, err := r.queries.ListArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	out := make([]core.Artist, len(rows))
	for i, a := range rows {
		out[i] = core.Artist{ID: a.ID, Name: a.Name, CreatedAt: parseTime(a.CreatedAt)}
	}
	return out, nil
}

func (r *SQLiteRepository) LoadStatusLabels(ctx context.Context) (core.StatusLabels, error) {
	rows, err := r.queries.ListStatusLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list status labels: %w", err)
	}
	out := core.StatusLabels{}
	for _, l := range rows {
		out[core.Status(l.Status)] = l.Label
	}
	return out, nil
}

// SaveStatusLabels replaces the stored labels in one transaction.
func (r *SQLiteRepository) SaveStatusLabels(ctx context.Context, labels core.StatusLabels) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteStatusLabels(ctx); err != nil {
		return fmt.Errorf("clear status labels: %w", err)
	}
	for s, label := range labels {
		if err := q.UpsertStatusLabel(ctx, string(s), label); err != nil {
			return fmt.Errorf("save status label %s: %w", s, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (store.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("get user: %w", err)
	}
	return toStoreUser(row), nil
}

func (r *SQLiteRepository) SaveUser(ctx context.Context, u store.User) (store.User, error) {
	now := formatTime(r.now())
	uid := u.UID
	if uid == "" {
		uid = uuid.NewString()
	}
	row, err := r.queries.UpsertUser(ctx, UpsertUserParams{
		UID:          uid,
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return store.User{}, fmt.Errorf("save user: %w", err)
	}
	return toStoreUser(row), nil
}

func (r *SQLiteRepository) UpdateRole(ctx context.Context, uid, role string) error {
	n, err := r.queries.UpdateUserRole(ctx, role, formatTime(r.now()), uid)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PendingSync returns events whose mirror row is missing or stale.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]store.PendingSync, error) {
	rows, err := r.queries.GetPendingSyncEvents(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync events: %w", err)
	}
	out := make([]store.PendingSync, len(rows))
	for i, p := range rows {
		out[i] = store.PendingSync{ID: p.ID, Version: p.Version, UpdatedAt: parseTime(p.UpdatedAt)}
	}
	return out, nil
}

// MarkSynced marks an event as successfully synced
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	if err := r.queries.MarkEventSynced(ctx, id, version); err != nil {
		return fmt.Errorf("mark event synced: %w", err)
	}
	slog.InfoContext(ctx, "Event marked as synced", "event_id", id, "version", version)
	return nil
}

// MarkSyncError marks an event as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	n, err := r.queries.MarkEventSyncError(ctx, id)
	if err != nil {
		return fmt.Errorf("mark event sync error: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	slog.WarnContext(ctx, "Event marked with sync error", "event_id", id)
	return nil
}

func (r *SQLiteRepository) EventVersion(ctx context.Context, id string) (int64, error) {
	v, err := r.queries.GetEventVersion(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get event version: %w", err)
	}
	return v, nil
}

func eventParams(e core.Event) (CreateEventParams, error) {
	artists := e.Artists
	if artists == nil {
		artists = []string{}
	}
	encoded, err := json.Marshal(artists)
	if err != nil {
		return CreateEventParams{}, fmt.Errorf("encode artists: %w", err)
	}
	date := ""
	if e.HasDate() {
		date = formatTime(e.Date)
	}
	return CreateEventParams{
		ClientName:     e.ClientName,
		Date:           date,
		Status:         string(e.Status),
		ContactNumber:  e.ContactNumber,
		InstagramID:    e.InstagramID,
		Location:       e.Location,
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		Artists:        string(encoded),
		MarketingCosts: e.MarketingCosts,
		Price:          e.Price,
		AdvancePayment: e.AdvancePayment,
		PendingPayment: e.PendingPayment,
		MaterialsCost:  e.OtherCosts.Materials,
		TravelCost:     e.OtherCosts.Travel,
		MiscCost:       e.OtherCosts.Misc,
	}, nil
}

func toCoreEvent(row Event) (core.Event, error) {
	var artists []string
	if err := json.Unmarshal([]byte(row.Artists), &artists); err != nil {
		return core.Event{}, fmt.Errorf("decode artists of event %s: %w", row.ID, err)
	}
	if artists == nil {
		artists = []string{}
	}
	return core.Event{
		ID:             row.ID,
		ClientName:     row.ClientName,
		Date:           parseTime(row.Date),
		Status:         core.Status(row.Status),
		ContactNumber:  row.ContactNumber,
		InstagramID:    row.InstagramID,
		Location:       row.Location,
		StartTime:      row.StartTime,
		EndTime:        row.EndTime,
		Artists:        artists,
		MarketingCosts: row.MarketingCosts,
		Price:          row.Price,
		AdvancePayment: row.AdvancePayment,
		PendingPayment: row.PendingPayment,
		OtherCosts: core.OtherCosts{
			Materials: row.MaterialsCost,
			Travel:    row.TravelCost,
			Misc:      row.MiscCost,
		},
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}, nil
}

func toCoreEvents(rows []Event) ([]core.Event, error) {
	out := make([]core.Event, 0, len(rows))
	for _, row := range rows {
		e, err := toCoreEvent(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func toStoreUser(row User) store.User {
	return store.User{
		UID:          row.UID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         row.Role,
		CreatedAt:    parseTime(row.CreatedAt),
		UpdatedAt:    parseTime(row.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime returns the zero time for empty or malformed values.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
