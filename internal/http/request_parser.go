package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"caribook/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests, as opposed to invalid values.
var errBadRequest = errors.New("bad request")

// MonthParams holds the selected year and month name.
type MonthParams struct {
	Year  int
	Month string
}

// ParseMonthParams reads year and month from the query. Missing values
// default to now, an unparseable year is an error. Month names are
// checked later by the window lookup.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: now.Month().String(),
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		params.Month = v
	}
	return params, nil
}

// ParseWindowParams returns the window named by year and month, or nil
// when neither is given.
func ParseWindowParams(query url.Values, now time.Time) (*core.Window, error) {
	if strings.TrimSpace(query.Get("year")) == "" && strings.TrimSpace(query.Get("month")) == "" {
		return nil, nil
	}
	p, err := ParseMonthParams(query, now)
	if err != nil {
		return nil, err
	}
	w, err := core.MonthWindow(p.Year, p.Month, now.Location())
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ParseStatusParam reads the optional status filter.
func ParseStatusParam(query url.Values) (core.Status, error) {
	v := strings.TrimSpace(query.Get("status"))
	if v == "" || strings.EqualFold(v, "all") {
		return "", nil
	}
	return core.ParseStatus(v)
}

// DecodeJSON decodes a bounded JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// bearerToken extracts the session token from the Authorization header.
// EventSource cannot set headers, so the stream may pass access_token in
// the query instead.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
