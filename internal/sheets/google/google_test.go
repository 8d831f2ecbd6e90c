package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"caribook/internal/core"
)

const testSpreadsheet = "sheet-123"

// fakeSheets is an in-memory stand-in for the values endpoints of the
// Sheets API, enough for the mirror's get, update and clear calls.
type fakeSheets struct {
	mu   sync.Mutex
	rows [][]string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := "/v4/spreadsheets/" + testSpreadsheet + "/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case r.Method == http.MethodGet:
		var values [][]string
		last := -1
		for i, row := range f.rows {
			if len(row) > 0 && row[0] != "" {
				last = i
			}
		}
		for _, row := range f.rows[:last+1] {
			if len(row) == 0 || row[0] == "" {
				values = append(values, []string{})
				continue
			}
			values = append(values, []string{row[0]})
		}
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "majorDimension": "ROWS", "values": values})

	case r.Method == http.MethodPut:
		row := rowOf(rng)
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || row == 0 || len(body.Values) != 1 {
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		for len(f.rows) < row {
			f.rows = append(f.rows, nil)
		}
		cells := make([]string, len(body.Values[0]))
		for i, v := range body.Values[0] {
			cells[i] = fmt.Sprint(v)
		}
		f.rows[row-1] = cells
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})

	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":clear"):
		row := rowOf(strings.TrimSuffix(rng, ":clear"))
		if row > 0 && row <= len(f.rows) {
			f.rows[row-1] = nil
		}
		json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func rowOf(rng string) int {
	var row int
	i := strings.Index(rng, "!A")
	if i < 0 {
		return 0
	}
	fmt.Sscanf(rng[i+2:], "%d", &row)
	return row
}

func (f *fakeSheets) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		if len(row) > 0 {
			out[i] = row[0]
		}
	}
	return out
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(),
		Config{SpreadsheetID: testSpreadsheet, SheetName: "Bookings"},
		nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func event(id, client string) core.Event {
	return core.Event{
		ID:         id,
		ClientName: client,
		Date:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:     core.StatusOK,
		Price:      5000,
	}
}

func TestClient_UpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	c, fake := newTestClient(t)

	ref, err := c.UpsertEvent(ctx, event("a", "Asha"))
	if err != nil {
		t.Fatalf("UpsertEvent(a) error = %v", err)
	}
	if ref != "Bookings!A2:S2" {
		t.Errorf("ref = %q, want Bookings!A2:S2", ref)
	}
	if _, err := c.UpsertEvent(ctx, event("b", "Ravi")); err != nil {
		t.Fatalf("UpsertEvent(b) error = %v", err)
	}
	if got := strings.Join(fake.ids(), ","); got != "ID,a,b" {
		t.Fatalf("rows = %s, want ID,a,b", got)
	}

	ref, err = c.UpsertEvent(ctx, event("a", "Asha K"))
	if err != nil {
		t.Fatalf("UpsertEvent(a) again error = %v", err)
	}
	if ref != "Bookings!A2:S2" {
		t.Errorf("update went to %q, want the existing row", ref)
	}
	if got := fake.rows[1][2]; got != "Asha K" {
		t.Errorf("client cell = %q, want Asha K", got)
	}

	if err := c.RemoveEvent(ctx, "a"); err != nil {
		t.Fatalf("RemoveEvent(a) error = %v", err)
	}
	if err := c.RemoveEvent(ctx, "missing"); err != nil {
		t.Fatalf("RemoveEvent(missing) error = %v", err)
	}
	if got := strings.Join(fake.ids(), ","); got != "ID,,b" {
		t.Fatalf("rows after remove = %s, want ID,,b", got)
	}

	ref, err = c.UpsertEvent(ctx, event("c", "Meera"))
	if err != nil {
		t.Fatalf("UpsertEvent(c) error = %v", err)
	}
	if ref != "Bookings!A2:S2" {
		t.Errorf("new event went to %q, want the cleared row", ref)
	}
}

func TestClient_UpsertRequiresID(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.UpsertEvent(context.Background(), core.Event{}); err == nil {
		t.Fatal("expected an error for an event without id")
	}
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "missing spreadsheet", cfg: Config{SheetName: "Bookings"}, want: "missing spreadsheet id"},
		{name: "missing sheet", cfg: Config{SpreadsheetID: "x"}, want: "missing sheet name"},
		{name: "missing credentials", cfg: Config{SpreadsheetID: "x", SheetName: "Bookings"}, want: "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(ctx, tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestLoadCredentials(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0600); err != nil {
		t.Fatal(err)
	}

	if b, err := LoadCredentials(` {"inline":true} `, file); err != nil || string(b) != `{"inline":true}` {
		t.Errorf("inline JSON should win, got %q, %v", b, err)
	}
	if b, err := LoadCredentials("", file); err != nil || !strings.Contains(string(b), "service_account") {
		t.Errorf("file credentials not read, got %q, %v", b, err)
	}
	if _, err := LoadCredentials("", ""); err == nil {
		t.Error("expected an error without credentials")
	}
	if _, err := LoadCredentials("", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
