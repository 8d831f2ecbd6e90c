package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const eventColumns = `id, client_name, date, status, contact_number, instagram_id, location,
	start_time, end_time, artists, marketing_costs, price, advance_payment, pending_payment,
	materials_cost, travel_cost, misc_cost, created_at, updated_at, version, sync_status`

func scanEvent(row interface{ Scan(...interface{}) error }) (Event, error) {
	var i Event
	err := row.Scan(
		&i.ID,
		&i.ClientName,
		&i.Date,
		&i.Status,
		&i.ContactNumber,
		&i.InstagramID,
		&i.Location,
		&i.StartTime,
		&i.EndTime,
		&i.Artists,
		&i.MarketingCosts,
		&i.Price,
		&i.AdvancePayment,
		&i.PendingPayment,
		&i.MaterialsCost,
		&i.TravelCost,
		&i.MiscCost,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Version,
		&i.SyncStatus,
	)
	return i, err
}

func (q *Queries) scanEvents(ctx context.Context, query string, args ...interface{}) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Event{}
	for rows.Next() {
		i, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createEvent = `INSERT INTO events (
	id, client_name, date, status, contact_number, instagram_id, location,
	start_time, end_time, artists, marketing_costs, price, advance_payment, pending_payment,
	materials_cost, travel_cost, misc_cost, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + eventColumns

type CreateEventParams struct {
	ID             string
	ClientName     string
	Date           string
	Status         string
	ContactNumber  string
	InstagramID    string
	Location       string
	StartTime      string
	EndTime        string
	Artists        string
	MarketingCosts float64
	Price          float64
	AdvancePayment float64
	PendingPayment float64
	MaterialsCost  float64
	TravelCost     float64
	MiscCost       float64
	CreatedAt      string
	UpdatedAt      string
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.ID,
		arg.ClientName,
		arg.Date,
		arg.Status,
		arg.ContactNumber,
		arg.InstagramID,
		arg.Location,
		arg.StartTime,
		arg.EndTime,
		arg.Artists,
		arg.MarketingCosts,
		arg.Price,
		arg.AdvancePayment,
		arg.PendingPayment,
		arg.MaterialsCost,
		arg.TravelCost,
		arg.MiscCost,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanEvent(row)
}

const getEvent = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

func (q *Queries) GetEvent(ctx context.Context, id string) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEvent, id))
}

const updateEvent = `UPDATE events SET
	client_name = ?, date = ?, status = ?, contact_number = ?, instagram_id = ?, location = ?,
	start_time = ?, end_time = ?, artists = ?, marketing_costs = ?, price = ?,
	advance_payment = ?, pending_payment = ?, materials_cost = ?, travel_cost = ?, misc_cost = ?,
	updated_at = ?, version = version + 1, sync_status = 'pending'
WHERE id = ?
RETURNING ` + eventColumns

// UpdateEventParams reuses the insert shape; ID selects the row and
// CreatedAt is ignored.
type UpdateEventParams = CreateEventParams

func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, updateEvent,
		arg.ClientName,
		arg.Date,
		arg.Status,
		arg.ContactNumber,
		arg.InstagramID,
		arg.Location,
		arg.StartTime,
		arg.EndTime,
		arg.Artists,
		arg.MarketingCosts,
		arg.Price,
		arg.AdvancePayment,
		arg.PendingPayment,
		arg.MaterialsCost,
		arg.TravelCost,
		arg.MiscCost,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanEvent(row)
}

const deleteEvent = `DELETE FROM events WHERE id = ?`

func (q *Queries) DeleteEvent(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEvent, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listEventsBetween = `SELECT ` + eventColumns + ` FROM events
WHERE date >= ? AND date < ?
ORDER BY date ASC, created_at ASC`

func (q *Queries) ListEventsBetween(ctx context.Context, start, end string) ([]Event, error) {
	return q.scanEvents(ctx, listEventsBetween, start, end)
}

const listEvents = `SELECT ` + eventColumns + ` FROM events
ORDER BY date = '' ASC, date ASC, created_at ASC`

func (q *Queries) ListEvents(ctx context.Context) ([]Event, error) {
	return q.scanEvents(ctx, listEvents)
}

const getPendingSyncEvents = `SELECT id, version, updated_at FROM events
WHERE sync_status != 'synced'
ORDER BY updated_at ASC
LIMIT ?`

func (q *Queries) GetPendingSyncEvents(ctx context.Context, limit int64) ([]PendingSyncRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PendingSyncRow{}
	for rows.Next() {
		var i PendingSyncRow
		if err := rows.Scan(&i.ID, &i.Version, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markEventSynced = `UPDATE events SET sync_status = 'synced' WHERE id = ? AND version = ?`

func (q *Queries) MarkEventSynced(ctx context.Context, id string, version int64) error {
	_, err := q.db.ExecContext(ctx, markEventSynced, id, version)
	return err
}

const markEventSyncError = `UPDATE events SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkEventSyncError(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markEventSyncError, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getEventVersion = `SELECT version FROM events WHERE id = ?`

func (q *Queries) GetEventVersion(ctx context.Context, id string) (int64, error) {
	var version int64
	err := q.db.QueryRowContext(ctx, getEventVersion, id).Scan(&version)
	return version, err
}

const createArtist = `INSERT INTO artists (id, name, created_at) VALUES (?, ?, ?)
RETURNING id, name, created_at`

func (q *Queries) CreateArtist(ctx context.Context, id, name, createdAt string) (Artist, error) {
	var i Artist
	err := q.db.QueryRowContext(ctx, createArtist, id, name, createdAt).Scan(&i.ID, &i.Name, &i.CreatedAt)
	return i, err
}

const listArtists = `SELECT id, name, created_at FROM artists ORDER BY name ASC, created_at ASC`

func (q *Queries) ListArtists(ctx context.Context) ([]Artist, error) {
	rows, err := q.db.QueryContext(ctx, listArtists)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Artist{}
	for rows.Next() {
		var i Artist
		if err := rows.Scan(&i.ID, &i.Name, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStatusLabels = `SELECT status, label FROM status_labels`

func (q *Queries) ListStatusLabels(ctx context.Context) ([]StatusLabel, error) {
	rows, err := q.db.QueryContext(ctx, listStatusLabels)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StatusLabel{}
	for rows.Next() {
		var i StatusLabel
		if err := rows.Scan(&i.Status, &i.Label); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteStatusLabels = `DELETE FROM status_labels`

func (q *Queries) DeleteStatusLabels(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteStatusLabels)
	return err
}

const upsertStatusLabel = `INSERT INTO status_labels (status, label) VALUES (?, ?)
ON CONFLICT(status) DO UPDATE SET label = excluded.label`

func (q *Queries) UpsertStatusLabel(ctx context.Context, status, label string) error {
	_, err := q.db.ExecContext(ctx, upsertStatusLabel, status, label)
	return err
}

const getUserByEmail = `SELECT uid, email, password_hash, role, created_at, updated_at
FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var i User
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(
		&i.UID, &i.Email, &i.PasswordHash, &i.Role, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const upsertUser = `INSERT INTO users (uid, email, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(email) DO UPDATE SET
	password_hash = excluded.password_hash,
	role = CASE WHEN excluded.role = '' THEN users.role ELSE excluded.role END,
	updated_at = excluded.updated_at
RETURNING uid, email, password_hash, role, created_at, updated_at`

type UpsertUserParams struct {
	UID          string
	Email        string
	PasswordHash []byte
	Role         string
	CreatedAt    string
	UpdatedAt    string
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) (User, error) {
	var i User
	err := q.db.QueryRowContext(ctx, upsertUser,
		arg.UID, arg.Email, arg.PasswordHash, arg.Role, arg.CreatedAt, arg.UpdatedAt,
	).Scan(&i.UID, &i.Email, &i.PasswordHash, &i.Role, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const updateUserRole = `UPDATE users SET role = ?, updated_at = ? WHERE uid = ?`

func (q *Queries) UpdateUserRole(ctx context.Context, role, updatedAt, uid string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserRole, role, updatedAt, uid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
