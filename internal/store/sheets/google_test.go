package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
)

// fakeSheets keeps one tab worth of values and answers the handful of
// Values endpoints the client uses.
type fakeSheets struct {
	mu     sync.Mutex
	values [][]any
	calls  []string
	// failUpdate makes every PUT answer 503.
	failUpdate bool
}

// clearFrom returns the 0-based first row a ":clear" path covers; a range
// without a row number clears the whole tab.
func clearFrom(path string) int {
	rng := strings.TrimSuffix(path[strings.Index(path, "/values/")+len("/values/"):], ":clear")
	if i := strings.Index(rng, "!A"); i >= 0 {
		digits := rng[i+2:]
		if j := strings.IndexByte(digits, ':'); j >= 0 {
			digits = digits[:j]
		}
		if n, err := strconv.Atoi(digits); err == nil && n > 0 {
			return n - 1
		}
	}
	return 0
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		if from := clearFrom(path); from < len(f.values) {
			f.values = f.values[:from]
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.calls = append(f.calls, "append")
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		f.values = append(f.values, vr.Values...)
		w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		if f.failUpdate {
			http.Error(w, `{"error":{"code":503,"message":"backend unavailable"}}`, http.StatusServiceUnavailable)
			return
		}
		var vr struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		// Update from A1 overwrites the leading rows and keeps the rest.
		for i, row := range vr.Values {
			if i < len(f.values) {
				f.values[i] = row
			} else {
				f.values = append(f.values, row)
			}
		}
		w.Write([]byte(`{}`))
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		vals := f.values
		if strings.Contains(path, "A1:K1") && len(vals) > 1 {
			vals = vals[:1]
		}
		json.NewEncoder(w).Encode(map[string]any{"majorDimension": "ROWS", "values": vals})
	default:
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	}
}

func (f *fakeSheets) setFailUpdate(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failUpdate = v
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), Options{
		SpreadsheetID: "sheet-id",
		ClientOptions: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func sampleRecords() []core.Installment {
	return []core.Installment{
		{PurchaseDate: core.NewDate(2024, 5, 2), Reason: "TV", Payee: "Loja", Method: "Pix",
			Count: 2, Total: core.Money{Cents: 1001}, Index: 1, Amount: core.Money{Cents: 501}, Due: core.Period{Year: 2024, Month: 6}},
		{PurchaseDate: core.NewDate(2024, 5, 2), Reason: "TV", Payee: "Loja", Method: "Pix",
			Count: 2, Total: core.Money{Cents: 1001}, Index: 2, Amount: core.Money{Cents: 500}, Due: core.Period{Year: 2024, Month: 7}},
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	ctx := context.Background()

	if err := c.Save(ctx, sampleRecords()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(f.calls) != 2 || f.calls[0] != "update" || f.calls[1] != "clear" {
		t.Fatalf("unexpected call sequence %v", f.calls)
	}
	if len(f.values) != 3 || f.values[0][2] != "Destinatário" {
		t.Fatalf("unexpected sheet contents %v", f.values)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := sampleRecords()
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSaveShrinksTab(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	ctx := context.Background()
	recs := sampleRecords()

	if err := c.Save(ctx, recs); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := c.Save(ctx, recs[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != recs[0] {
		t.Fatalf("stale rows left behind: %+v", got)
	}
}

func TestFailedSaveKeepsPreviousRows(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	ctx := context.Background()
	recs := sampleRecords()

	if err := c.Save(ctx, recs[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}

	f.setFailUpdate(true)
	err := c.Save(ctx, recs)
	if !errors.Is(err, store.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	f.setFailUpdate(false)

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != recs[0] {
		t.Fatalf("failed save lost persisted rows: %+v", got)
	}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)
	ctx := context.Background()
	recs := sampleRecords()

	if err := c.Append(ctx, recs[:1]); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.Append(ctx, recs[1:]); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(f.values) != 3 || f.values[0][0] != "Data" || f.values[1][0] == "Data" || f.values[2][0] == "Data" {
		t.Fatalf("unexpected sheet contents %v", f.values)
	}
}

func TestDecodeValuesNumericCells(t *testing.T) {
	values := [][]any{
		toRow(store.Header),
		{"2024-01-02", "Sofá", "Loja", "Pix", float64(3), float64(300), float64(1), "abc", "02/2024", float64(2024), float64(2)},
		{},
	}
	got, err := decodeValues(values)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	r := got[0]
	if r.Count != 3 || r.Total.Cents != 30000 || r.Amount.Cents != 0 || r.Due != (core.Period{Year: 2024, Month: 2}) {
		t.Fatalf("unexpected record %+v", r)
	}

	if _, err := decodeValues([][]any{{"nope"}}); !errors.Is(err, store.ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
}
