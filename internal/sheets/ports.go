// Package sheets holds the ports of the spreadsheet mirror.
package sheets

import (
	"context"

	"caribook/internal/core"
)

// EventMirror keeps one spreadsheet row per event, keyed by event id.
type EventMirror interface {
	// UpsertEvent writes e to its row, appending one if the id is new.
	UpsertEvent(ctx context.Context, e core.Event) (rowRef string, err error)
	// RemoveEvent clears the row of id. Unknown ids are not an error.
	RemoveEvent(ctx context.Context, id string) error
}
