package submit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/status"
)

// Delivery defaults.
const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 10 * time.Second
	DefaultInitialBackoff = time.Second
)

// Options tunes delivery.
type Options struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = DefaultInitialBackoff
	}
	return o
}

// Receipt describes a delivered document.
type Receipt struct {
	Key        string
	DocumentID string
	ChapterID  string
	Version    string
	Attempts   int
}

// Pipeline persists and delivers export documents.
type Pipeline struct {
	storage Storage
	sink    Sink
	opts    Options
	ids     IDGenerator
	now     func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithNow sets the clock used for pending keys and export timestamps.
func WithNow(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator sets the export document id generator.
func WithIDGenerator(g IDGenerator) PipelineOption {
	return func(p *Pipeline) { p.ids = g }
}

// NewPipeline creates a pipeline. A nil sink disables delivery.
func NewPipeline(storage Storage, sink Sink, opts Options, options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		storage: storage,
		sink:    sink,
		opts:    opts.withDefaults(),
		ids:     UUIDv7Generator{},
		now:     time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Submit exports the chapter, stores the document as pending, then
// delivers it. On success the pending record is removed. On failure a
// DeliveryError carrying the pending key is returned and the record stays.
func (p *Pipeline) Submit(ctx context.Context, profile model.Profile, def *model.ChapterDefinition, progress *model.ChapterProgress) (*Receipt, error) {
	if p.sink == nil {
		return nil, ErrDisabled
	}
	if def == nil || progress == nil || !status.CanSubmitWork(def, progress) {
		return nil, ErrNotSubmittable
	}

	now := p.now()
	doc, err := Export(p.ids.Generate(), profile, def, progress, now)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", def.ID, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("submit %s: marshal: %w", def.ID, err)
	}

	// Persisted before any network attempt. A key already taken by an
	// earlier record of the same millisecond moves to the next one.
	at := now
	key := PendingKey(at, def.ID)
	for {
		ok, err := p.storage.PutIfAbsent(ctx, key, string(data))
		if err != nil {
			return nil, fmt.Errorf("submit %s: persist pending: %w", def.ID, err)
		}
		if ok {
			break
		}
		at = at.Add(time.Millisecond)
		key = PendingKey(at, def.ID)
	}

	return p.deliver(ctx, key, doc)
}

// Retry re-delivers a pending record.
func (p *Pipeline) Retry(ctx context.Context, key string) (*Receipt, error) {
	if p.sink == nil {
		return nil, ErrDisabled
	}
	doc, err := loadPending(ctx, p.storage, key)
	if err != nil {
		return nil, err
	}
	return p.deliver(ctx, key, doc)
}

// Pending lists the undelivered records.
func (p *Pipeline) Pending(ctx context.Context) ([]model.PendingSubmission, error) {
	return ListPending(ctx, p.storage)
}

func (p *Pipeline) deliver(ctx context.Context, key string, doc *Document) (*Receipt, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.InitialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.opts.AttemptTimeout)
		defer cancel()

		err := p.sink.Deliver(attemptCtx, doc)
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Warn("submission attempt failed",
				"chapter", doc.ChapterID, "attempt", attempts, "retry_in", wait, "error", err)
		}),
	)
	if err != nil {
		slog.Error("submission not delivered", "chapter", doc.ChapterID, "key", key, "attempts", attempts, "error", err)
		return nil, &DeliveryError{
			Code:      ErrCodeDeliveryFailed,
			Key:       key,
			ChapterID: doc.ChapterID,
			Attempts:  attempts,
			Err:       err,
		}
	}

	if err := p.storage.Delete(ctx, key); err != nil {
		// Delivered; a leftover record is re-sent with the same idempotency key.
		slog.Warn("delivered submission left pending", "key", key, "error", err)
	}
	slog.Info("submission delivered", "chapter", doc.ChapterID, "version", doc.Version, "attempts", attempts)

	return &Receipt{
		Key:        key,
		DocumentID: doc.ID,
		ChapterID:  doc.ChapterID,
		Version:    doc.Version,
		Attempts:   attempts,
	}, nil
}
