// Package store declares the persistence ports the booking domain writes
// through. Adapters live in store/memory and storage.
package store

import (
	"context"
	"errors"
	"time"

	"caribook/internal/core"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Sync states of an event's spreadsheet mirror row.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type (
	// EventStore persists event records. Insert and Replace assign the
	// identity and timestamps and return the stored record.
	EventStore interface {
		InsertEvent(ctx context.Context, e core.Event) (core.Event, error)
		GetEvent(ctx context.Context, id string) (core.Event, error)
		ReplaceEvent(ctx context.Context, e core.Event) (core.Event, error)
		DeleteEvent(ctx context.Context, id string) error
		// ListEventsBetween returns events dated in [start, end) ordered by
		// date ascending.
		ListEventsBetween(ctx context.Context, start, end time.Time) ([]core.Event, error)
		// ListEvents returns every event ordered by date ascending.
		ListEvents(ctx context.Context) ([]core.Event, error)
	}

	ArtistStore interface {
		InsertArtist(ctx context.Context, name string) (core.Artist, error)
		// ListArtists returns the catalog ordered by name ascending.
		ListArtists(ctx context.Context) ([]core.Artist, error)
	}

	// LabelStore keeps the editable status display names.
	LabelStore interface {
		LoadStatusLabels(ctx context.Context) (core.StatusLabels, error)
		SaveStatusLabels(ctx context.Context, labels core.StatusLabels) error
	}

	// UserStore keeps sign-in credentials and profile roles.
	UserStore interface {
		UserByEmail(ctx context.Context, email string) (User, error)
		// SaveUser inserts or updates the user keyed by email.
		SaveUser(ctx context.Context, u User) (User, error)
		UpdateRole(ctx context.Context, uid, role string) error
	}

	// SyncStore tracks which events still need to reach the spreadsheet
	// mirror. Every write bumps the event's version and marks it pending.
	SyncStore interface {
		PendingSync(ctx context.Context, limit int) ([]PendingSync, error)
		// MarkSynced only applies when version is still current, so an edit
		// racing the worker stays pending.
		MarkSynced(ctx context.Context, id string, version int64) error
		MarkSyncError(ctx context.Context, id string) error
		EventVersion(ctx context.Context, id string) (int64, error)
	}

	// Store is everything a backend provides.
	Store interface {
		EventStore
		ArtistStore
		LabelStore
		UserStore
		SyncStore
	}
)

// User is a sign-in account with its profile role.
type User struct {
	UID          string
	Email        string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PendingSync is the minimal data a sync message needs.
type PendingSync struct {
	ID        string
	Version   int64
	UpdatedAt time.Time
}
