package google

import (
	"fmt"
	"strings"
	"time"

	"caribook/internal/core"
)

// Header is the first row of the mirror sheet. Column A holds the event id.
var Header = []any{
	"ID", "Date", "Client", "Status", "Contact", "Instagram", "Location",
	"Start", "End", "Artists", "Price", "Advance", "Pending", "Marketing",
	"Materials", "Travel", "Misc", "Net Earnings", "Updated At",
}

// lastColumn is the letter of the last header column.
var lastColumn = columnName(len(Header))

// columnName returns the A1 column letters of the 1-based column n.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// eventRow renders e as a sheet row. Dates are written in loc.
func eventRow(e core.Event, loc *time.Location) []any {
	date := ""
	if e.HasDate() {
		date = e.Date.In(loc).Format("2006-01-02")
	}
	return []any{
		e.ID,
		date,
		e.ClientName,
		string(e.Status),
		e.ContactNumber,
		e.InstagramID,
		e.Location,
		e.StartTime,
		e.EndTime,
		strings.Join(e.Artists, ", "),
		e.Price,
		e.AdvancePayment,
		core.PendingAmount(e),
		e.MarketingCosts,
		e.OtherCosts.Materials,
		e.OtherCosts.Travel,
		e.OtherCosts.Misc,
		core.NetEarnings(e),
		e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// locateRow scans column A values for id. It returns the 1-based row of id,
// or 0, and the row a new event should go to: the first cleared row after
// the header, else the row after the last one.
func locateRow(colA [][]any, id string) (found, free int) {
	for i, row := range colA {
		if i == 0 {
			continue
		}
		v := ""
		if len(row) > 0 {
			v = strings.TrimSpace(fmt.Sprint(row[0]))
		}
		if v == id {
			return i + 1, 0
		}
		if v == "" && free == 0 {
			free = i + 1
		}
	}
	if free == 0 {
		free = len(colA) + 1
		if free < 2 {
			free = 2
		}
	}
	return 0, free
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}
