// Package services holds the ledger: the single owner of the installment
// records between a store load and the next save.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/felipesemedo05/parcelas-servico/internal/aggregate"
	"github.com/felipesemedo05/parcelas-servico/internal/amqp"
	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/schedule"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
)

// SimulationLabel fills the text fields of a simulated purchase.
const SimulationLabel = "Simulação"

// Publisher announces persisted registrations.
type Publisher interface {
	PublishInstallmentsRegistered(ctx context.Context, msg *amqp.InstallmentsRegisteredMessage) error
}

// Ledger orchestrates registration across the store and the event bus.
// The store is the source of truth; publishing is best effort.
type Ledger struct {
	mu        sync.RWMutex
	store     store.Store
	generator schedule.Generator
	publisher Publisher
	records   []core.Installment
	listeners []func()
}

func NewLedger(st store.Store, gen schedule.Generator, pub Publisher) *Ledger {
	return &Ledger{store: st, generator: gen, publisher: pub}
}

// Load replaces the in-memory records with the store contents.
func (l *Ledger) Load(ctx context.Context) error {
	recs, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	l.mu.Lock()
	l.records = recs
	l.mu.Unlock()
	slog.InfoContext(ctx, "Ledger loaded", "records", len(recs))
	l.notify()
	return nil
}

// Snapshot returns a copy of every record.
func (l *Ledger) Snapshot() []core.Installment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Installment{}, l.records...)
}

// Len reports the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// OnChange registers fn to run after every successful load or registration.
func (l *Ledger) OnChange(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Register generates the purchase's installments and writes the full record
// set through to the store. On a failed save the ledger is left exactly as
// it was and the error wraps store.ErrWrite.
func (l *Ledger) Register(ctx context.Context, p core.Purchase) ([]core.Installment, error) {
	recs, err := l.generator.Generate(p)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	next := make([]core.Installment, 0, len(l.records)+len(recs))
	next = append(next, l.records...)
	next = append(next, recs...)
	if err := l.store.Save(ctx, next); err != nil {
		l.mu.Unlock()
		if !errors.Is(err, store.ErrWrite) {
			err = store.WriteError("save ledger", err)
		}
		return nil, fmt.Errorf("register purchase: %w", err)
	}
	l.records = next
	l.mu.Unlock()

	slog.DebugContext(ctx, "Installments saved",
		"added", len(recs),
		"records", len(next))

	l.publish(ctx, recs)
	l.notify()
	return recs, nil
}

func (l *Ledger) publish(ctx context.Context, recs []core.Installment) {
	if l.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping registration event")
		return
	}
	msg, err := amqp.NewInstallmentsRegisteredMessage(recs)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build registration event", "error", err)
		return
	}
	if err := l.publisher.PublishInstallmentsRegistered(ctx, msg); err != nil {
		// The records are already saved.
		slog.ErrorContext(ctx, "Failed to publish registration event", "id", msg.ID, "error", err)
	}
}

func (l *Ledger) notify() {
	l.mu.RLock()
	fns := append([]func(){}, l.listeners...)
	l.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// Simulation is the outcome of a what-if purchase.
type Simulation struct {
	Installments []core.Installment
	Projection   aggregate.Projection
}

// Simulate runs the generator on p and merges the result with a snapshot
// of the real records. Neither the ledger nor the store is touched.
func (l *Ledger) Simulate(p core.Purchase) (Simulation, error) {
	recs, err := l.generator.Generate(p)
	if err != nil {
		return Simulation{}, err
	}
	return Simulation{
		Installments: recs,
		Projection:   aggregate.Combine(l.Snapshot(), recs),
	}, nil
}

// SimulationPurchase builds a purchase for the simulator, which only asks
// for the amount and installment count.
func SimulationPurchase(total core.Money, count int, date core.Date) core.Purchase {
	return core.Purchase{
		Date:   date,
		Reason: SimulationLabel,
		Payee:  SimulationLabel,
		Method: SimulationLabel,
		Total:  total,
		Count:  count,
	}
}
