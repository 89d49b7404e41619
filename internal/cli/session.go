package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/roach88/pedago/internal/catalog"
	"github.com/roach88/pedago/internal/config"
	"github.com/roach88/pedago/internal/engine"
	"github.com/roach88/pedago/internal/notify"
	"github.com/roach88/pedago/internal/store"
	"github.com/roach88/pedago/internal/submit"
)

// session is an engine running over the configured store for the
// duration of one command.
type session struct {
	cfg    *config.Config
	store  *store.Store
	engine *engine.Engine
	out    *OutputFormatter

	cancel context.CancelFunc
	done   chan struct{}
}

// openSession loads the configuration, opens the store and starts the
// engine. The caller must Close the session.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	var clock engine.Clock = engine.SystemClock{}
	if opts.Clock != nil {
		clock = opts.Clock
	}

	slog.Debug("opening database", "path", cfg.DB)
	st, err := store.Open(cfg.DB, store.WithNow(clock.Now))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	loader := catalog.NewLoader(cfg.Catalog.Source, &http.Client{Timeout: cfg.Catalog.Timeout})

	var sink submit.Sink
	switch {
	case opts.Sink != nil:
		sink = opts.Sink
	case cfg.Submission.Endpoint != "":
		sink = submit.NewHTTPSink(cfg.Submission.Endpoint, nil)
	}
	pipeline := submit.NewPipeline(st, sink, submit.Options{
		MaxAttempts:    cfg.Submission.MaxAttempts,
		AttemptTimeout: cfg.Submission.Timeout,
		InitialBackoff: cfg.Submission.InitialBackoff,
	}, submit.WithNow(clock.Now))

	log := notify.NewLog(st,
		notify.WithNow(clock.Now),
		notify.WithRetention(cfg.Notifications.Retention),
		notify.WithCacheTTL(cfg.Notifications.CacheTTL),
	)
	notifier := notify.NewNotifier(log, &notify.Generator{Lookahead: cfg.Notifications.Lookahead})

	eng := engine.New(st, loader,
		engine.WithClock(clock),
		engine.WithNotifier(notifier),
		engine.WithPipeline(pipeline),
	)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	if err := eng.Load(parentCtx); err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load state", err)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s := &session{
		cfg:    cfg,
		store:  st,
		engine: eng,
		out:    formatter(cmd, opts),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("engine stopped with error", "error", err)
		}
	}()
	return s, nil
}

// Close stops the engine, draining queued commands, and closes the store.
func (s *session) Close() {
	s.engine.Stop()
	<-s.done
	s.cancel()
	if err := s.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}

// withSession runs fn inside an open session.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, s)
}
