// internal/app/system/mailer/batch.go
package mailer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Batch defaults.
const (
	DefaultBatchSize  = 50
	DefaultBatchPause = time.Second
)

// Failure records one recipient that could not be sent to.
type Failure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// BatchResult is the outcome of a bulk send.
type BatchResult struct {
	Delivered []string
	Failed    []Failure
}

// BatchSender sends one message per recipient in fixed-size batches,
// concurrently within a batch, pausing between batches.
type BatchSender struct {
	Dispatcher *Dispatcher
	Size       int
	Pause      time.Duration
}

// Send builds and delivers one email per recipient. Individual failures are
// collected, not returned; the error is non-nil only when ctx ends, in which
// case the result covers the batches that ran.
func (b *BatchSender) Send(ctx context.Context, recipients []string, build func(to string) Email) (BatchResult, error) {
	size := b.Size
	if size <= 0 {
		size = DefaultBatchSize
	}

	res := BatchResult{Delivered: []string{}, Failed: []Failure{}}
	var mu sync.Mutex

	for start := 0; start < len(recipients); start += size {
		if start > 0 && b.Pause > 0 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(b.Pause):
			}
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}

		var g errgroup.Group
		for _, to := range recipients[start:end] {
			to := to
			g.Go(func() error {
				err := b.Dispatcher.Deliver(ctx, build(to))
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Failed = append(res.Failed, Failure{Email: to, Error: err.Error()})
				} else {
					res.Delivered = append(res.Delivered, to)
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return res, nil
}
