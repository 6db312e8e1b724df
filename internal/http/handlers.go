package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/felipesemedo05/parcelas-servico/internal/aggregate"
	"github.com/felipesemedo05/parcelas-servico/internal/core"
	applog "github.com/felipesemedo05/parcelas-servico/internal/log"
)

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// render executes a template into a buffer so a failure never leaves a
// half-written page.
func (s *Server) render(name string, data any) ([]byte, error) {
	if s.templates == nil {
		return nil, fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := s.today()
	q := ParseViewQuery(r.URL.Query(), today.Period())

	data := struct {
		Today           string
		MaxInstallments int
		Views           summaryView
	}{
		Today:           today.String(),
		MaxInstallments: core.MaxInstallments,
		Views:           s.summary(ctx, q),
	}

	body, err := s.render("index.html", data)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Index render failed", "error", err)
		InternalServerError("Erro ao renderizar a página").Write(w)
		return
	}
	NewHTMXResponse().BodyBytes("text/html; charset=utf-8", body).Write(w)
}

// handleViewsPartial re-renders the views block for htmx refreshes.
func (s *Server) handleViewsPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := ParseViewQuery(r.URL.Query(), s.today().Period())

	body, err := s.render("views.html", s.summary(ctx, q))
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Views render failed", "error", err)
		InternalServerError("Erro ao renderizar as visões").Write(w)
		return
	}
	NewHTMXResponse().BodyBytes("text/html; charset=utf-8", body).Write(w)
}

func (s *Server) handleCreatePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		errorFor(wantsJSON(r), http.StatusBadRequest, "Formato de requisição inválido").Write(w)
		return
	}
	asJSON := parser.IsJSON() || wantsJSON(r)

	p, err := ParsePurchase(parser, s.today())
	if err != nil {
		errorFor(asJSON, http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
		return
	}

	recs, err := s.ledger.Register(ctx, p)
	if err != nil {
		if core.IsValidation(err) {
			errorFor(asJSON, http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
			return
		}
		applog.NewStructuredLogger(logger).LogError(ctx, "Purchase registration failed", err,
			applog.ComponentHTTP, applog.OpRegister,
			applog.NewFields().WithErrorType(applog.ErrorTypeStoreWrite))
		const failed = "Erro ao salvar a compra. Nada foi registrado."
		errorFor(asJSON, http.StatusInternalServerError, failed).
			TriggerErrorNotification(failed).
			Write(w)
		return
	}

	first := recs[0]
	applog.NewStructuredLogger(logger).LogPurchaseRegistered(ctx,
		first.Reason, first.Payee, first.Method, p.Total.Cents, len(recs), first.Due.Key())

	msg := fmt.Sprintf("Compra registrada: %s em %dx (primeira parcela em %s)", first.Reason, len(recs), first.Due.Key())
	resp := NewHTMXResponse().
		TriggerPurchaseRegistered(first.Due.Year, first.Due.Month, len(recs)).
		TriggerFormReset().
		TriggerSuccessNotification(msg)
	if asJSON {
		resp.JSON(map[string]any{"installments": installmentsOf(recs, true)}).Write(w)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="success"><p>`)
	b.WriteString(templateEscape(msg))
	b.WriteString(`</p><ul class="lines">`)
	for _, rec := range recs {
		b.WriteString("<li>" + templateEscape(rec.ForecastLine()) + "</li>")
	}
	b.WriteString(`</ul></div>`)
	resp.BodyHTML(b.String()).Write(w)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		errorFor(wantsJSON(r), http.StatusBadRequest, "Formato de requisição inválido").Write(w)
		return
	}
	asJSON := parser.IsJSON() || wantsJSON(r)

	p, err := ParseSimulation(parser, s.today())
	if err != nil {
		errorFor(asJSON, http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
		return
	}
	sim, err := s.ledger.Simulate(p)
	if err != nil {
		errorFor(asJSON, http.StatusUnprocessableEntity, validationMessage(err)).Write(w)
		return
	}
	view := simulationOf(sim)
	applog.FromContext(ctx).DebugContext(ctx, "Simulation computed",
		applog.FieldOperation, applog.OpSimulate,
		applog.FieldAmountCents, p.Total.Cents,
		applog.FieldInstallments, p.Count)

	if asJSON {
		NewHTMXResponse().JSON(view).Write(w)
		return
	}
	body, err := s.render("simulation.html", view)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Simulation render failed", "error", err)
		InternalServerError("Erro ao renderizar a simulação").Write(w)
		return
	}
	NewHTMXResponse().BodyBytes("text/html; charset=utf-8", body).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := ParseViewQuery(r.URL.Query(), s.today().Period())
	NewHTMXResponse().JSON(s.summary(r.Context(), q)).Write(w)
}

// handleMethods returns the per-method pivot; ?scope=current restricts it
// to the reference month.
func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	recs := s.ledger.Snapshot()
	var pivot aggregate.MethodPivot
	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "all":
		pivot = aggregate.ByMethod(recs)
	case "current":
		pivot = aggregate.CurrentByMethod(recs, s.today().Period())
	default:
		ErrorJSON(http.StatusBadRequest, "scope must be 'all' or 'current'").Write(w)
		return
	}
	NewHTMXResponse().JSON(pivotOf(pivot)).Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

// handleReady reports whether the page can be served.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		code = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	hits, misses := s.views.Stats()
	checks["ledger"] = map[string]any{"records": s.ledger.Len()}
	checks["cache"] = map[string]any{"entries": s.views.Len(), "hits": hits, "misses": misses}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	NewHTMXResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
