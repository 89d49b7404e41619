package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/pedago/internal/catalog"
	"github.com/roach88/pedago/internal/model"
	"github.com/roach88/pedago/internal/notify"
	"github.com/roach88/pedago/internal/reconcile"
	"github.com/roach88/pedago/internal/status"
	"github.com/roach88/pedago/internal/store"
	"github.com/roach88/pedago/internal/submit"
)

// Engine is the single-writer reducer owning the student's state.
//
// CRITICAL: state and catalog are only read or written by the Run
// goroutine. Every other method goes through the command queue.
//
// Thread-safety model:
//   - Dispatch, Snapshot, Sync, SubmitWork...: safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	store    *store.Store
	loader   catalog.Loader
	notifier *notify.Notifier
	pipeline *submit.Pipeline
	clock    Clock
	seq      *Sequence
	queue    *commandQueue

	done     chan struct{}
	doneOnce sync.Once

	// Owned by the Run goroutine.
	state   *model.AppState
	catalog *model.Catalog
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithNotifier sets the notification generator and log.
func WithNotifier(n *notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPipeline sets the submission pipeline. Without one, submission is
// disabled.
func WithPipeline(p *submit.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// New creates an engine over s. Call Load before Run to restore the
// persisted state.
func New(s *store.Store, loader catalog.Loader, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		loader: loader,
		clock:  SystemClock{},
		seq:    NewSequence(),
		queue:  newCommandQueue(),
		done:   make(chan struct{}),
		state:  model.NewAppState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = notify.NewNotifier(notify.NewLog(s, notify.WithNow(e.clock.Now)), nil)
	}
	if e.pipeline == nil {
		e.pipeline = submit.NewPipeline(s, nil, submit.Options{}, submit.WithNow(e.clock.Now))
	}
	return e
}

// Load restores the persisted state and catalog snapshot.
// Must be called before Run. A corrupt state blob is replaced by defaults.
func (e *Engine) Load(ctx context.Context) error {
	st, discarded, err := e.store.LoadState(ctx)
	if err != nil {
		return err
	}
	if discarded {
		slog.Warn("stored state was corrupt, starting from defaults")
	}
	cat, err := e.store.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	if cat != nil && cat.ClassID != st.Profile.ClassID {
		cat = nil
	}
	e.state, e.catalog = st, cat
	return nil
}

// Run starts the single-writer command loop.
// Blocks until ctx is cancelled or Stop is called; queued commands are
// drained before a Stop returns.
func (e *Engine) Run(ctx context.Context) error {
	slog.Debug("engine starting")
	defer e.doneOnce.Do(func() { close(e.done) })

	for {
		if cmd, ok := e.queue.TryDequeue(); ok {
			e.process(cmd)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Debug("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.IsClosed() && e.queue.Len() == 0 {
				slog.Debug("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the command queue; Run returns once it is drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// process runs one command.
// CRITICAL: Called only from Run() goroutine.
func (e *Engine) process(cmd command) {
	seq := e.seq.Next()
	err := cmd.run()
	if err != nil {
		slog.Debug("command rejected", "seq", seq, "command", cmd.name, "error", err)
	} else {
		slog.Debug("command applied", "seq", seq, "command", cmd.name)
	}
	cmd.reply <- err
}

// do runs fn on the Run goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, name string, fn func() error) error {
	cmd := command{name: name, run: fn, reply: make(chan error, 1)}
	if !e.queue.Enqueue(cmd) {
		return ErrStopped
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrStopped
		}
	}
}

// Dispatch applies an action. The action sees the state left by every
// previously dispatched action; on error nothing changes.
func (e *Engine) Dispatch(ctx context.Context, a Action) error {
	return e.do(ctx, a.Name(), func() error {
		return e.apply(ctx, a)
	})
}

// apply derives the next state from the current in-memory state, flushes
// it to storage, then installs it. A failed flush leaves the in-memory
// state untouched.
// CRITICAL: Called only from Run() goroutine.
func (e *Engine) apply(ctx context.Context, a Action) error {
	next := e.state.Clone()
	v := &env{catalog: e.catalog, now: e.clock.Now()}
	if err := a.apply(next, v); err != nil {
		return fmt.Errorf("%s: %w", a.Name(), err)
	}

	// The update lands even if the caller gave up waiting.
	ctx = context.WithoutCancel(ctx)
	if v.catalog != e.catalog {
		if err := e.store.SaveCatalog(ctx, v.catalog); err != nil {
			return fmt.Errorf("%s: %w", a.Name(), err)
		}
	}
	if err := e.store.SaveState(ctx, next); err != nil {
		return fmt.Errorf("%s: %w", a.Name(), err)
	}

	e.state, e.catalog = next, v.catalog
	e.notifier.Log.Invalidate()
	return nil
}

// Snapshot is a consistent copy of the engine's state.
type Snapshot struct {
	State   *model.AppState
	Catalog *model.Catalog
}

// Snapshot returns a deep copy of the state with the current catalog.
// The catalog is shared and must not be modified.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, "snapshot", func() error {
		snap = Snapshot{State: e.state.Clone(), Catalog: e.catalog}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// SyncReport summarizes a successful sync.
type SyncReport struct {
	ClassID       string
	Added         []string
	Updated       []string
	Removed       []string
	Events        []reconcile.Event
	Notifications []model.Notification
	Redirected    bool
}

// Sync fetches the catalog of the logged-in class and reconciles the
// state against it. A fetch failure returns a SyncError and leaves the
// state untouched.
func (e *Engine) Sync(ctx context.Context) (*SyncReport, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	profile := snap.State.Profile
	if profile.IsZero() {
		return nil, ErrNotLoggedIn
	}

	cat, err := e.loader.Load(ctx, profile.ClassID)
	if err != nil {
		slog.Warn("catalog fetch failed", "class", profile.ClassID, "error", err)
		return nil, &SyncError{Code: ErrCodeCatalogUnavailable, ClassID: profile.ClassID, Err: err}
	}

	action := &ApplySync{Catalog: cat}
	if err := e.Dispatch(ctx, action); err != nil {
		return nil, err
	}
	res := action.Result

	logged, err := e.notifier.Log.Merge(ctx, res.Notifications())
	if err != nil {
		slog.Warn("sync notifications not logged", "error", err)
	}

	slog.Info("catalog synced",
		"class", profile.ClassID,
		"chapters", len(res.Order),
		"added", len(res.Added),
		"updated", len(res.Updated),
		"removed", len(res.Removed),
	)
	return &SyncReport{
		ClassID:       profile.ClassID,
		Added:         res.Added,
		Updated:       res.Updated,
		Removed:       res.Removed,
		Events:        res.Events,
		Notifications: logged,
		Redirected:    res.Redirect,
	}, nil
}

// Dashboard summarizes every chapter in class order.
func (e *Engine) Dashboard(ctx context.Context) ([]status.Summary, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.State.Profile.IsZero() {
		return nil, ErrNotLoggedIn
	}
	if snap.Catalog == nil {
		return nil, ErrNoCatalog
	}
	order := snap.State.ChapterOrder
	if len(order) == 0 {
		order = snap.Catalog.Order
	}
	out := make([]status.Summary, 0, len(order))
	for _, id := range order {
		def := snap.Catalog.Chapters[id]
		if def == nil {
			continue
		}
		out = append(out, status.Summarize(def, snap.State.Progress[id]))
	}
	return out, nil
}

// Notifications generates, logs and returns the visible notifications.
func (e *Engine) Notifications(ctx context.Context) ([]model.Notification, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := e.pipeline.Pending(ctx)
	if err != nil {
		return nil, err
	}
	return e.notifier.Refresh(ctx, notify.Input{
		Profile:  snap.State.Profile,
		Catalog:  snap.Catalog,
		Progress: snap.State.Progress,
		Pending:  pending,
		Now:      e.clock.Now(),
	})
}

// SubmitWork exports and delivers a chapter's work, then marks it
// submitted. On delivery failure the state is unchanged and the returned
// error is a submit.DeliveryError naming the pending record.
func (e *Engine) SubmitWork(ctx context.Context, chapterID string) (*submit.Receipt, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	v := &env{catalog: snap.Catalog}
	def, p, err := v.chapter(snap.State, chapterID)
	if err != nil {
		return nil, fmt.Errorf("submit work: %w", err)
	}

	receipt, err := e.pipeline.Submit(ctx, snap.State.Profile, def, p)
	if err != nil {
		e.notifier.Log.Invalidate()
		return nil, err
	}
	if err := e.Dispatch(ctx, MarkWorkSubmitted{ChapterID: receipt.ChapterID, Version: receipt.Version}); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// RetryPending re-delivers a pending submission. The chapter is marked
// submitted if it is still part of the catalog.
func (e *Engine) RetryPending(ctx context.Context, key string) (*submit.Receipt, error) {
	receipt, err := e.pipeline.Retry(ctx, key)
	if err != nil {
		return nil, err
	}
	err = e.Dispatch(ctx, MarkWorkSubmitted{ChapterID: receipt.ChapterID, Version: receipt.Version})
	if err != nil {
		slog.Warn("delivered pending submission not recorded", "key", key, "chapter", receipt.ChapterID, "error", err)
	}
	return receipt, nil
}

// Pending lists undelivered submissions.
func (e *Engine) Pending(ctx context.Context) ([]model.PendingSubmission, error) {
	return e.pipeline.Pending(ctx)
}
