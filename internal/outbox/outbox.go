// Package outbox moves relayed chat messages into the message store without
// holding up live delivery. Messages are first appended to a durable local
// buffer and then written to the store by a single worker, in order, retrying
// with exponential backoff until the store accepts them.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"alumconnect/internal/models"
)

const defaultBatchSize = 64

// Entry is a queued message and its position in the buffer.
type Entry struct {
	Seq     uint64
	Message models.ChatMessage
}

// Buffer is the durable local queue.
type Buffer interface {
	AppendOutbox(msg models.ChatMessage) error
	PendingOutbox(limit int) ([]Entry, error)
	AckOutbox(seq uint64) error
}

// MessageStore is the destination of queued messages. InsertMessage must be
// idempotent by message id: an entry is redelivered if its ack is lost.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg models.ChatMessage) error
}

type Config struct {
	RetryBase    time.Duration
	RetryMax     time.Duration
	StoreTimeout time.Duration
	BatchSize    int
}

type Outbox struct {
	cfg   Config
	buf   Buffer
	store MessageStore
	log   *slog.Logger
	wake  chan struct{}
}

func New(cfg Config, buf Buffer, store MessageStore, log *slog.Logger) *Outbox {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMax < cfg.RetryBase {
		cfg.RetryMax = cfg.RetryBase
	}
	if log == nil {
		log = slog.Default()
	}
	return &Outbox{
		cfg:   cfg,
		buf:   buf,
		store: store,
		log:   log.With("component", "outbox"),
		wake:  make(chan struct{}, 1),
	}
}

// Enqueue durably records msg and wakes the worker. It does not wait for the
// message store.
func (o *Outbox) Enqueue(msg models.ChatMessage) error {
	if err := o.buf.AppendOutbox(msg); err != nil {
		return fmt.Errorf("failed to append to outbox: %w", err)
	}
	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run drains the buffer until ctx is cancelled. Entries left over from a
// previous process are delivered first.
func (o *Outbox) Run(ctx context.Context) error {
	attempt := 0
	for {
		entries, err := o.buf.PendingOutbox(o.cfg.BatchSize)
		if err != nil {
			attempt++
			o.log.Error("failed to read outbox", "attempt", attempt, "error", err)
			if !o.sleep(ctx, o.Backoff(attempt)) {
				return nil
			}
			continue
		}

		if len(entries) == 0 {
			select {
			case <-o.wake:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		for _, e := range entries {
			if err := o.deliver(ctx, e.Message); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				attempt++
				o.log.Warn("failed to persist message",
					"message_id", e.Message.ID,
					"channel", e.Message.Channel,
					"attempt", attempt,
					"error", err,
				)
				if !o.sleep(ctx, o.Backoff(attempt)) {
					return nil
				}
				break
			}
			attempt = 0

			if err := o.buf.AckOutbox(e.Seq); err != nil {
				attempt++
				o.log.Error("failed to ack outbox entry", "seq", e.Seq, "attempt", attempt, "error", err)
				if !o.sleep(ctx, o.Backoff(attempt)) {
					return nil
				}
				break
			}
		}
	}
}

func (o *Outbox) deliver(ctx context.Context, msg models.ChatMessage) error {
	if o.cfg.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.StoreTimeout)
		defer cancel()
	}
	return o.store.InsertMessage(ctx, msg)
}

// Backoff returns the delay before retry number attempt (starting at 1).
func (o *Outbox) Backoff(attempt int) time.Duration {
	d := o.cfg.RetryBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.cfg.RetryMax {
			return o.cfg.RetryMax
		}
	}
	return d
}

func (o *Outbox) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
