// internal/app/system/mailer/dispatcher.go
package mailer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsRecorder receives the outcome of each delivery attempt.
type MetricsRecorder interface {
	RecordMail(kind string, err error)
}

// Dispatcher sends notifications in the background. Failures are logged and
// counted but never reach the request that triggered them.
type Dispatcher struct {
	sender  Sender
	log     *zap.Logger
	metrics MetricsRecorder
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a Dispatcher. metrics may be nil.
func NewDispatcher(sender Sender, log *zap.Logger, metrics MetricsRecorder, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		log:     log,
		metrics: metrics,
		timeout: timeout,
	}
}

// Deliver sends e synchronously, logging and counting the outcome.
func (d *Dispatcher) Deliver(ctx context.Context, e Email) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.sender.Send(ctx, e)
	if d.metrics != nil {
		d.metrics.RecordMail(e.Kind, err)
	}
	if err != nil {
		d.log.Warn("email delivery failed",
			zap.String("kind", e.Kind),
			zap.String("to", e.To),
			zap.Error(err))
		return err
	}
	d.log.Debug("email sent", zap.String("kind", e.Kind), zap.String("to", e.To))
	return nil
}

// Dispatch sends e in the background, detached from the request context.
func (d *Dispatcher) Dispatch(e Email) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.Deliver(context.Background(), e)
	}()
}

// Wait blocks until every dispatched email has been attempted.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
