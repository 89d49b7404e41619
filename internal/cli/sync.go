package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pedago/internal/engine"
	"github.com/roach88/pedago/internal/scheduler"
)

// SyncEvent is one reconciliation event in a sync report.
type SyncEvent struct {
	Kind    string `json:"kind"`
	Chapter string `json:"chapter"`
	Version string `json:"version"`
	Added   int    `json:"added,omitempty"`
}

// SyncResult is the output of the sync command.
type SyncResult struct {
	Class      string      `json:"class"`
	Added      []string    `json:"added"`
	Updated    []string    `json:"updated"`
	Removed    []string    `json:"removed"`
	Events     []SyncEvent `json:"events"`
	Redirected bool        `json:"redirected"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the class catalog and reconcile progress",
		Long: `Fetch the catalog of the logged-in student's class and reconcile the
stored progress with it.

New chapters are announced, updated chapters keep their answers, and a
chapter that gained questions after being submitted must be submitted
again. When the catalog cannot be fetched nothing changes.

Exit codes:
  0 - Catalog synced
  1 - Catalog unavailable or no student logged in
  2 - Command error (invalid configuration, etc.)`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				report, err := s.engine.Sync(ctx)
				if err != nil {
					return s.out.Fail("sync failed", err)
				}
				result := syncResult(report)
				return s.out.Emit(result, formatSync(result))
			})
		},
	}
}

func syncResult(report *engine.SyncReport) SyncResult {
	result := SyncResult{
		Class:      report.ClassID,
		Added:      orEmpty(report.Added),
		Updated:    orEmpty(report.Updated),
		Removed:    orEmpty(report.Removed),
		Events:     make([]SyncEvent, 0, len(report.Events)),
		Redirected: report.Redirected,
	}
	for _, ev := range report.Events {
		result.Events = append(result.Events, SyncEvent{
			Kind:    string(ev.Kind),
			Chapter: ev.ChapterID,
			Version: ev.Version,
			Added:   ev.Added,
		})
	}
	return result
}

func formatSync(r SyncResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Synced class %s: %d added, %d updated, %d removed.",
		r.Class, len(r.Added), len(r.Updated), len(r.Removed))
	for _, ev := range r.Events {
		fmt.Fprintf(&b, "\n  %s %s (v%s)", ev.Kind, ev.Chapter, ev.Version)
	}
	if r.Redirected {
		b.WriteString("\nThe chapter on display was removed; back to the dashboard.")
	}
	return b.String()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync and refresh notifications periodically",
		Long: `Sync the catalog and refresh notifications every interval until
interrupted. A failed run is logged and retried at the next tick.

Example:
  pedago watch --interval 5m`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "time between runs (default 15m)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	return withSession(cmd, opts.RootOptions, func(ctx context.Context, s *session) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case sig := <-sigChan:
				slog.Info("received signal, shutting down", "signal", sig)
				cancel()
			case <-ctx.Done():
			}
		}()

		w := cmd.OutOrStdout()
		job := scheduler.New("sync", s.cfg.Watch.Interval, func(ctx context.Context) error {
			report, err := s.engine.Sync(ctx)
			if err != nil {
				return err
			}
			notes, err := s.engine.Notifications(ctx)
			if err != nil {
				return err
			}
			if s.out.Format == "json" {
				return s.out.Success(map[string]interface{}{
					"sync":          syncResult(report),
					"notifications": len(notes),
				})
			}
			fmt.Fprintf(w, "%s\n%d notification(s)\n", formatSync(syncResult(report)), len(notes))
			return nil
		})

		slog.Info("watch starting", "interval", s.cfg.Watch.Interval)
		if err := job.Run(ctx); err != nil {
			return WrapExitError(ExitCommandError, "watch failed", err)
		}
		slog.Info("watch stopped", "runs", job.Runs())
		return nil
	})
}
