// Package google mirrors events into a Google Sheet through the Sheets v4
// API, authenticated with a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"caribook/internal/core"
	ports "caribook/internal/sheets"
)

var _ ports.EventMirror = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// Location is the zone event dates are written in. UTC when nil.
	Location *time.Location
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	loc           *time.Location

	// held from row lookup to write
	mu sync.Mutex
}

// New creates a mirror client. Without options the service account
// credentials in credentialsJSON are used.
func New(ctx context.Context, cfg Config, credentialsJSON []byte, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	if len(opts) == 0 {
		if len(credentialsJSON) == 0 {
			return nil, errors.New("missing service account credentials")
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheet: cfg.SheetName, loc: loc}, nil
}

// LoadCredentials returns the inline JSON when set, else the content of
// file.
func LoadCredentials(inlineJSON, file string) ([]byte, error) {
	if s := strings.TrimSpace(inlineJSON); s != "" {
		return []byte(s), nil
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (c *Client) UpsertEvent(ctx context.Context, e core.Event) (string, error) {
	if e.ID == "" {
		return "", errors.New("event without id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	colA, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(colA) == 0 {
		if err := c.write(ctx, rowRange(c.sheet, 1), Header); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		colA = [][]any{{Header[0]}}
	}

	row, free := locateRow(colA, e.ID)
	if row == 0 {
		row = free
	}
	ref := rowRange(c.sheet, row)
	if err := c.write(ctx, ref, eventRow(e, c.loc)); err != nil {
		return "", fmt.Errorf("write %s: %w", ref, err)
	}

	slog.DebugContext(ctx, "Event mirrored", "id", e.ID, "range", ref)
	return ref, nil
}

func (c *Client) RemoveEvent(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	colA, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row, _ := locateRow(colA, id)
	if row == 0 {
		slog.DebugContext(ctx, "Event not in mirror, nothing to remove", "id", id)
		return nil
	}

	ref := rowRange(c.sheet, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, ref, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", ref, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}
