// Package worker holds the background side of the service: mirroring
// registration events into a spreadsheet and mailing the monthly digest.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felipesemedo05/parcelas-servico/internal/amqp"
	"github.com/felipesemedo05/parcelas-servico/internal/cache"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
)

// Mirror appends the installments of every registration event to a sink,
// normally the Google Sheets mirror tab.
type Mirror struct {
	sink store.Appender
	// seen holds recently mirrored event ids so broker redeliveries do not
	// append the same rows twice.
	seen *cache.LRU[string, struct{}]
}

func NewMirror(sink store.Appender) *Mirror {
	return &Mirror{
		sink: sink,
		seen: cache.NewLRU[string, struct{}](1024, 24*time.Hour),
	}
}

// HandleInstallmentsRegistered is an amqp.Handler. Returning an error
// makes the consumer requeue the event.
func (m *Mirror) HandleInstallmentsRegistered(ctx context.Context, msg *amqp.InstallmentsRegisteredMessage) error {
	if _, dup := m.seen.Get(msg.ID); dup {
		slog.InfoContext(ctx, "Skipping already mirrored event", "id", msg.ID)
		return nil
	}

	recs, err := msg.Records()
	if err != nil {
		return fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	if err := m.sink.Append(ctx, recs); err != nil {
		return fmt.Errorf("mirror event %s: %w", msg.ID, err)
	}
	m.seen.Set(msg.ID, struct{}{})

	slog.InfoContext(ctx, "Installments mirrored",
		"id", msg.ID,
		"reason", msg.Reason,
		"installments", len(recs),
		"due", msg.DueKeys())
	return nil
}
