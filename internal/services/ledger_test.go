package services

import (
	"context"
	"errors"
	"testing"

	"github.com/felipesemedo05/parcelas-servico/internal/amqp"
	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/schedule"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
	"github.com/felipesemedo05/parcelas-servico/internal/store/memory"
)

type recordingPublisher struct {
	msgs []*amqp.InstallmentsRegisteredMessage
	err  error
}

func (p *recordingPublisher) PublishInstallmentsRegistered(_ context.Context, msg *amqp.InstallmentsRegisteredMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func purchase(cents int64, count int) core.Purchase {
	return core.Purchase{
		Date:   core.NewDate(2024, 3, 10),
		Reason: "Geladeira",
		Payee:  "Loja",
		Method: "Cartão",
		Total:  core.Money{Cents: cents},
		Count:  count,
	}
}

func newLedger(t *testing.T, st store.Store, pub Publisher) *Ledger {
	t.Helper()
	l := NewLedger(st, schedule.Generator{}, pub)
	if err := l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return l
}

func TestRegisterAppendsSavesAndPublishes(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	pub := &recordingPublisher{}
	l := newLedger(t, st, pub)

	changes := 0
	l.OnChange(func() { changes++ })

	recs, err := l.Register(ctx, purchase(10000, 3))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(recs) != 3 || l.Len() != 3 {
		t.Fatalf("expected 3 records, got %d / %d", len(recs), l.Len())
	}
	saved, _ := st.Load(ctx)
	if len(saved) != 3 || st.Saves() != 1 {
		t.Fatalf("store not written through: %d records, %d saves", len(saved), st.Saves())
	}
	if len(pub.msgs) != 1 || len(pub.msgs[0].Installments) != 3 {
		t.Fatalf("expected one event with 3 installments, got %+v", pub.msgs)
	}
	if changes != 1 {
		t.Fatalf("expected one change notification, got %d", changes)
	}

	if _, err := l.Register(ctx, purchase(5000, 2)); err != nil {
		t.Fatalf("second register: %v", err)
	}
	saved, _ = st.Load(ctx)
	if len(saved) != 5 || saved[0].Reason != "Geladeira" {
		t.Fatalf("full rewrite lost records: %+v", saved)
	}
}

func TestRegisterValidationHasNoSideEffects(t *testing.T) {
	st := memory.New()
	pub := &recordingPublisher{}
	l := newLedger(t, st, pub)

	p := purchase(10000, 3)
	p.Method = " "
	_, err := l.Register(context.Background(), p)
	if !errors.Is(err, core.ErrEmptyMethod) || !core.IsValidation(err) {
		t.Fatalf("expected method validation error, got %v", err)
	}
	if l.Len() != 0 || st.Saves() != 0 || len(pub.msgs) != 0 {
		t.Fatalf("validation failure had side effects")
	}
}

func TestRegisterRollsBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	seed := []core.Installment{{Reason: "old", Index: 1, Count: 1, Due: core.Period{Year: 2024, Month: 1}}}
	st := memory.New(seed...)
	pub := &recordingPublisher{}
	l := newLedger(t, st, pub)

	st.FailSave = errors.New("disk full")
	_, err := l.Register(ctx, purchase(10000, 3))
	if !errors.Is(err, store.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("ledger kept unsaved records: %d", l.Len())
	}
	if len(pub.msgs) != 0 {
		t.Fatalf("published after failed save")
	}

	st.FailSave = nil
	if _, err := l.Register(ctx, purchase(10000, 3)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if l.Len() != 4 {
		t.Fatalf("expected 4 records after retry, got %d", l.Len())
	}
}

func TestRegisterSurvivesPublishFailure(t *testing.T) {
	st := memory.New()
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	l := newLedger(t, st, pub)

	if _, err := l.Register(context.Background(), purchase(10000, 3)); err != nil {
		t.Fatalf("publish failure should not fail registration: %v", err)
	}
	if st.Saves() != 1 || l.Len() != 3 {
		t.Fatalf("registration not persisted")
	}
}

func TestSimulateLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	l := newLedger(t, st, nil)
	if _, err := l.Register(ctx, purchase(10000, 3)); err != nil {
		t.Fatalf("register: %v", err)
	}
	before, _ := st.Load(ctx)

	sim, err := l.Simulate(SimulationPurchase(core.Money{Cents: 6000}, 2, core.NewDate(2024, 4, 1)))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if len(sim.Installments) != 2 || sim.Installments[0].Reason != SimulationLabel {
		t.Fatalf("unexpected simulated installments %+v", sim.Installments)
	}
	if len(sim.Projection.Items) != 5 {
		t.Fatalf("expected 5 projected items, got %d", len(sim.Projection.Items))
	}

	after, _ := st.Load(ctx)
	if len(before) != len(after) || st.Saves() != 1 || l.Len() != 3 {
		t.Fatalf("simulation changed persisted state")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("record %d changed", i)
		}
	}

	if _, err := l.Simulate(SimulationPurchase(core.Money{}, 2, core.NewDate(2024, 4, 1))); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected amount validation error, got %v", err)
	}
}

type failingLoad struct{ memory.Store }

func (*failingLoad) Load(context.Context) ([]core.Installment, error) {
	return nil, store.ReadError("load", errors.New("permission denied"))
}

func TestLoadFailure(t *testing.T) {
	l := NewLedger(&failingLoad{}, schedule.Generator{}, nil)
	if err := l.Load(context.Background()); !errors.Is(err, store.ErrRead) {
		t.Fatalf("expected ErrRead, got %v", err)
	}
}
