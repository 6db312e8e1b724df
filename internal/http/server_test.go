package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	applog "github.com/felipesemedo05/parcelas-servico/internal/log"
	"github.com/felipesemedo05/parcelas-servico/internal/schedule"
	"github.com/felipesemedo05/parcelas-servico/internal/services"
	"github.com/felipesemedo05/parcelas-servico/internal/store/memory"
)

var testNow = time.Date(2024, 10, 15, 9, 0, 0, 0, time.UTC)

// seedTV is a 300.00 purchase in September 2024 paid in 3x: Oct, Nov, Dec.
func seedTV(t *testing.T) []core.Installment {
	t.Helper()
	recs, err := schedule.Generator{}.Generate(core.Purchase{
		Date:   core.NewDate(2024, 9, 20),
		Reason: "TV",
		Payee:  "Magalu",
		Method: "Nubank",
		Total:  core.Money{Cents: 30000},
		Count:  3,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return recs
}

type fixture struct {
	srv    *Server
	store  *memory.Store
	ledger *services.Ledger
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	st := memory.New(seedTV(t)...)
	ledger := services.NewLedger(st, schedule.Generator{}, nil)
	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	opts.Now = func() time.Time { return testNow }
	opts.Logger = applog.NewText(io.Discard, slog.LevelError, applog.ComponentHTTP)
	srv := NewServer(":0", ledger, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return fixture{srv: srv, store: st, ledger: ledger}
}

func (f fixture) do(method, path, body, contentType string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (f fixture) form(path, body string) *httptest.ResponseRecorder {
	return f.do(http.MethodPost, path, body, "application/x-www-form-urlencoded")
}

func (f fixture) summary(t *testing.T, path string) summaryView {
	t.Helper()
	rr := f.do(http.MethodGet, path, "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
	}
	var v summaryView
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return v
}

func TestIndexAndHealth(t *testing.T) {
	f := newFixture(t, Options{})

	rr := f.do(http.MethodGet, "/", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Registrar compra", "Simulador", "TV - Parcela 1/3", "10/2024"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
	if rr.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := f.do(http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = f.do(http.MethodGet, "/static/app.css", "", "")
	if rr.Code != http.StatusOK || rr.Header().Get("Cache-Control") == "" {
		t.Fatalf("static status=%d cache=%q", rr.Code, rr.Header().Get("Cache-Control"))
	}
}

func TestIndexShowsHistoryAndFuturePeriods(t *testing.T) {
	f := newFixture(t, Options{})
	if rr := f.form("/purchases", "date=2023-03-10&reason=Fone&payee=Amazon&method=Pix&total=50&count=1"); rr.Code != http.StatusOK {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr := f.do(http.MethodGet, "/?year=2024&period=12/2024", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()

	start := strings.Index(body, "Resumo geral por mês")
	end := strings.Index(body, "Total por mês em 2024")
	if start < 0 || end < start {
		t.Fatalf("all-history section missing or misplaced")
	}
	history := body[start:end]
	for _, key := range []string{"04/2023", "10/2024", "12/2024"} {
		if !strings.Contains(history, key) {
			t.Errorf("all-history view missing %s", key)
		}
	}

	for _, want := range []string{`<option value="11/2024">`, `<option value="12/2024" selected>`} {
		if !strings.Contains(body, want) {
			t.Errorf("future selector missing %q", want)
		}
	}
	for _, past := range []string{`<option value="04/2023"`, `<option value="10/2024"`, `<option value="01/2024"`} {
		if strings.Contains(body, past) {
			t.Errorf("future selector offers non-future period %q", past)
		}
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	f := newFixture(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rr, req)
	if got := rr.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestCreatePurchaseValidationAndSuccess(t *testing.T) {
	f := newFixture(t, Options{})

	if rr := f.do(http.MethodGet, "/purchases", "", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	invalid := []struct {
		name string
		body string
		want string
	}{
		{"bad total", "reason=x&payee=p&method=m&total=abc&count=2", "Valor total"},
		{"bad count", "reason=x&payee=p&method=m&total=10&count=x", "parcelas"},
		{"zero count", "reason=x&payee=p&method=m&total=10&count=0", "parcelas"},
		{"missing reason", "reason=&payee=p&method=m&total=10&count=2", "motivo"},
		{"missing method", "reason=x&payee=p&method=&total=10&count=2", "método"},
		{"long reason", "reason=" + strings.Repeat("a", core.MaxReasonLength+1) + "&payee=p&method=m&total=10&count=2", "no máximo 200 caracteres"},
		{"bad date", "date=15/10/2024&reason=x&payee=p&method=m&total=10&count=2", "Data"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.form("/purchases", tc.body)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tc.want) {
				t.Fatalf("body %q missing %q", rr.Body.String(), tc.want)
			}
		})
	}
	if f.store.Saves() != 0 || f.ledger.Len() != 3 {
		t.Fatalf("invalid input must not persist: saves=%d len=%d", f.store.Saves(), f.ledger.Len())
	}

	rr := f.form("/purchases", "date=2024-10-15&reason=Fone&payee=Amazon&method=Nubank&total=100,00&count=2")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "success") || !strings.Contains(rr.Body.String(), "11/2024 - Fone - Parcela 1/2") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, part := range []string{`"purchase:registered"`, `"month":11`, `"installments":2`, `"form:reset"`} {
		if !strings.Contains(trigger, part) {
			t.Errorf("HX-Trigger missing %s: %s", part, trigger)
		}
	}
	if f.store.Saves() != 1 || f.ledger.Len() != 5 {
		t.Fatalf("saves=%d len=%d", f.store.Saves(), f.ledger.Len())
	}
}

func TestCreatePurchaseJSON(t *testing.T) {
	f := newFixture(t, Options{})
	rr := f.do(http.MethodPost, "/purchases",
		`{"date":"2024-10-01","reason":"Sofá","payee":"Loja","method":"Itaú","total":"100.00","count":3}`,
		"application/json")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out struct {
		Installments []installmentView `json:"installments"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Installments) != 3 {
		t.Fatalf("got %d installments", len(out.Installments))
	}
	var sum int64
	for _, i := range out.Installments {
		sum += i.Amount.Cents
	}
	if sum != 10000 || out.Installments[2].Amount.Cents != 3334 {
		t.Fatalf("amounts %+v", out.Installments)
	}

	rr = f.do(http.MethodPost, "/purchases", `{"reason":"x"}`, "application/json")
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("expected JSON 422, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCreatePurchaseStoreFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.FailSave = errors.New("disk full")

	rr := f.form("/purchases", "reason=Fone&payee=Amazon&method=Nubank&total=50&count=1")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	if strings.Contains(trigger, "purchase:registered") {
		t.Fatal("failed save must not trigger a refresh")
	}
	if !strings.Contains(trigger, "show-notification") || !strings.Contains(trigger, `"error"`) {
		t.Fatalf("expected an error notification, got %q", trigger)
	}
	if !strings.Contains(rr.Body.String(), `<div class="error">`) {
		t.Fatalf("expected error fragment, got %s", rr.Body.String())
	}
	if f.ledger.Len() != 3 {
		t.Fatalf("ledger changed on failed save: %d", f.ledger.Len())
	}
}

func TestSimulateDoesNotPersist(t *testing.T) {
	f := newFixture(t, Options{})

	rr := f.form("/simulate", "total=100&count=3")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), services.SimulationLabel) {
		t.Fatalf("simulation body missing label: %s", rr.Body.String())
	}

	rr = f.do(http.MethodPost, "/simulate", `{"total":"90","count":3}`, "application/json")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var v simulationView
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// TV pays 100.00 in Nov and Dec; the simulation adds 30.00 in Nov, Dec and Jan.
	want := map[string][2]int64{
		"10/2024": {10000, 0},
		"11/2024": {10000, 3000},
		"12/2024": {10000, 3000},
		"01/2025": {0, 3000},
	}
	if len(v.Months) != len(want) {
		t.Fatalf("months %+v", v.Months)
	}
	for _, m := range v.Months {
		w, ok := want[m.Key]
		if !ok || m.Real.Cents != w[0] || m.Simulated.Cents != w[1] || m.Total.Cents != w[0]+w[1] {
			t.Errorf("%s: real=%d sim=%d total=%d", m.Key, m.Real.Cents, m.Simulated.Cents, m.Total.Cents)
		}
	}

	if rr := f.form("/simulate", "total=0&count=3"); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	if f.store.Saves() != 0 || f.ledger.Len() != 3 {
		t.Fatalf("simulation persisted: saves=%d len=%d", f.store.Saves(), f.ledger.Len())
	}
}

func TestSummaryViews(t *testing.T) {
	f := newFixture(t, Options{})

	v := f.summary(t, "/api/summary")
	if v.Ref != "10/2024" || v.Year != 2024 {
		t.Fatalf("ref=%s year=%d", v.Ref, v.Year)
	}
	if v.Current.Total.Cents != 10000 || len(v.Current.Items) != 1 {
		t.Fatalf("current %+v", v.Current)
	}
	if strings.Join(v.Forecast.Periods, ",") != "11/2024,12/2024" || v.Forecast.Total.Cents != 20000 {
		t.Fatalf("forecast %+v", v.Forecast)
	}
	if v.Forecast.Selected != nil {
		t.Fatal("no period was selected")
	}
	if len(v.Purchases) != 1 || v.Purchases[0].PaidCount != 1 || v.Purchases[0].Remaining.Cents != 20000 {
		t.Fatalf("purchases %+v", v.Purchases)
	}
	if v.GrandTotal.Cents != 30000 || len(v.Records) != 3 {
		t.Fatalf("grand=%d records=%d", v.GrandTotal.Cents, len(v.Records))
	}

	sel := f.summary(t, "/api/summary?year=2024&period=12/2024")
	if sel.Forecast.Selected == nil || sel.Forecast.Selected.Key != "12/2024" || sel.Forecast.Selected.Total.Cents != 10000 {
		t.Fatalf("selected %+v", sel.Forecast.Selected)
	}

	other := f.summary(t, "/api/summary?year=2025")
	if len(other.YearMonthly) != 0 {
		t.Fatalf("2025 should be empty, got %+v", other.YearMonthly)
	}
}

func TestRegistrationInvalidatesCachedViews(t *testing.T) {
	f := newFixture(t, Options{})

	before := f.summary(t, "/api/summary")
	if again := f.summary(t, "/api/summary"); again.GrandTotal != before.GrandTotal {
		t.Fatal("cached summary differs")
	}
	if f.srv.views.Len() != 1 {
		t.Fatalf("cache entries = %d", f.srv.views.Len())
	}

	if rr := f.form("/purchases", "date=2024-10-01&reason=Fone&payee=Amazon&method=Pix&total=10&count=1"); rr.Code != http.StatusOK {
		t.Fatalf("register status=%d", rr.Code)
	}
	after := f.summary(t, "/api/summary")
	if after.GrandTotal.Cents != before.GrandTotal.Cents+1000 {
		t.Fatalf("stale summary: before=%d after=%d", before.GrandTotal.Cents, after.GrandTotal.Cents)
	}
	if len(after.Forecast.Periods) != 2 || after.Forecast.Totals[0].Total.Cents != 11000 {
		t.Fatalf("forecast %+v", after.Forecast.Totals)
	}
}

func TestMethodsEndpoint(t *testing.T) {
	f := newFixture(t, Options{})
	if rr := f.form("/purchases", "date=2024-10-01&reason=Fone&payee=Amazon&method=Pix&total=10&count=1"); rr.Code != http.StatusOK {
		t.Fatalf("register status=%d", rr.Code)
	}

	rr := f.do(http.MethodGet, "/api/methods", "", "")
	var all methodPivotView
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(all.Methods, ",") != "Nubank,Pix" || len(all.Periods) != 3 {
		t.Fatalf("pivot %+v", all)
	}
	// Pix only has November; the other cells are zero-filled.
	if got := all.Series["Pix"]; len(got) != 3 || got[0].Cents != 0 || got[1].Cents != 1000 {
		t.Fatalf("Pix series %+v", got)
	}

	rr = f.do(http.MethodGet, "/api/methods?scope=current", "", "")
	var cur methodPivotView
	if err := json.Unmarshal(rr.Body.Bytes(), &cur); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(cur.Periods, ",") != "10/2024" || strings.Join(cur.Methods, ",") != "Nubank" {
		t.Fatalf("current pivot %+v", cur)
	}

	if rr := f.do(http.MethodGet, "/api/methods?scope=weekly", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestWriteRateLimit(t *testing.T) {
	f := newFixture(t, Options{WritesPerMinute: 1})
	body := "reason=Fone&payee=Amazon&method=Pix&total=10&count=1"
	if rr := f.form("/purchases", body); rr.Code != http.StatusOK {
		t.Fatalf("first status=%d", rr.Code)
	}
	rr := f.form("/purchases", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}
	// Reads are not limited.
	if rr := f.do(http.MethodGet, "/api/summary", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
}
