// Package http provides the HTTP server and handlers.
//
// This file implements utilities for parsing and validating request data.
// Form-encoded bodies (htmx) and JSON bodies (API clients) go through the
// same RequestBodyParser so handlers read fields one way.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/services"
)

// maxBodyBytes caps request bodies; purchase forms are tiny.
const maxBodyBytes = 64 << 10

// ViewQuery selects what the summary views show.
type ViewQuery struct {
	Ref      core.Period // reference month, always "today"
	Year     int         // year filter for the monthly table
	Selected core.Period // a future period to itemise; zero means none
}

// HasSelection reports whether a future period was requested.
func (q ViewQuery) HasSelection() bool { return q.Selected != (core.Period{}) }

// ParseViewQuery reads ?year=&period=. The year defaults to the reference
// year. period is a "MM/YYYY" key and only counts when it falls after the
// reference month. Invalid values are ignored.
func ParseViewQuery(query url.Values, ref core.Period) ViewQuery {
	q := ViewQuery{Ref: ref, Year: ref.Year}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			q.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("period")); v != "" {
		if p, err := core.ParsePeriodKey(v); err == nil && p.After(ref) {
			q.Selected = p
		}
	}
	return q
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once (up to maxBodyBytes) and keeps
// it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParsePurchase builds a registration from the body fields date, reason,
// payee, method, total and count. A blank date means today. Field parse
// failures are reported as validation errors; semantic checks are left to
// the generator.
func ParsePurchase(p *RequestBodyParser, today core.Date) (core.Purchase, error) {
	date, err := parseDateField(p.Get("date"), today)
	if err != nil {
		return core.Purchase{}, err
	}
	total, err := parseTotalField(p.Get("total"))
	if err != nil {
		return core.Purchase{}, err
	}
	count, err := parseCountField(p.Get("count"))
	if err != nil {
		return core.Purchase{}, err
	}
	return core.Purchase{
		Date:   date,
		Reason: p.Get("reason"),
		Payee:  p.Get("payee"),
		Method: p.Get("method"),
		Total:  total,
		Count:  count,
	}, nil
}

// ParseSimulation builds the what-if purchase. Only total and count are
// required; the text fields default to services.SimulationLabel.
func ParseSimulation(p *RequestBodyParser, today core.Date) (core.Purchase, error) {
	date, err := parseDateField(p.Get("date"), today)
	if err != nil {
		return core.Purchase{}, err
	}
	total, err := parseTotalField(p.Get("total"))
	if err != nil {
		return core.Purchase{}, err
	}
	count, err := parseCountField(p.Get("count"))
	if err != nil {
		return core.Purchase{}, err
	}

	sim := services.SimulationPurchase(total, count, date)
	if v := p.Get("reason"); v != "" {
		sim.Reason = v
	}
	if v := p.Get("payee"); v != "" {
		sim.Payee = v
	}
	if v := p.Get("method"); v != "" {
		sim.Method = v
	}
	return sim, nil
}

func parseDateField(v string, today core.Date) (core.Date, error) {
	if v == "" {
		return today, nil
	}
	d, err := parseDate(v)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: "date", Err: core.ErrInvalidDate}
	}
	return d, nil
}

func parseTotalField(v string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(v)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: "total", Err: core.ErrInvalidAmount}
	}
	return core.Money{Cents: cents}, nil
}

func parseCountField(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &core.ValidationError{Field: "count", Err: core.ErrInvalidCount}
	}
	return n, nil
}
