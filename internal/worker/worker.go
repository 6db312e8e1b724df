package worker

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/felipesemedo05/parcelas-servico/internal/amqp"
)

// Consumer delivers registration events; *amqp.Client implements it.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// Worker runs the event mirror and the digest scheduler side by side.
// Either part may be nil.
type Worker struct {
	consumer  Consumer
	mirror    *Mirror
	scheduler *Scheduler
}

func New(consumer Consumer, mirror *Mirror, scheduler *Scheduler) *Worker {
	return &Worker{consumer: consumer, mirror: mirror, scheduler: scheduler}
}

// Run blocks until ctx is cancelled or one part fails; a failure stops the
// other part too. Cancellation is not an error.
func (w *Worker) Run(ctx context.Context) error {
	mirroring := w.consumer != nil && w.mirror != nil
	if !mirroring && w.scheduler == nil {
		return errors.New("worker has nothing to run: configure AMQP and Google Sheets, or a digest schedule")
	}

	g, gctx := errgroup.WithContext(ctx)
	if mirroring {
		g.Go(func() error {
			slog.InfoContext(gctx, "Consuming registration events")
			return w.consumer.Consume(gctx, w.mirror.HandleInstallmentsRegistered)
		})
	} else {
		slog.InfoContext(ctx, "Sheets mirror disabled")
	}
	if w.scheduler != nil {
		g.Go(func() error { return w.scheduler.Run(gctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
