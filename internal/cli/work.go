package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pedago/internal/submit"
)

// SubmitOptions holds flags for the submit and retry commands.
type SubmitOptions struct {
	*RootOptions
	Endpoint string
}

// ReceiptOutput describes a delivered submission.
type ReceiptOutput struct {
	Chapter  string `json:"chapter"`
	Version  string `json:"version"`
	Document string `json:"document"`
	Attempts int    `json:"attempts"`
}

func receiptOutput(r *submit.Receipt) ReceiptOutput {
	return ReceiptOutput{Chapter: r.ChapterID, Version: r.Version, Document: r.DocumentID, Attempts: r.Attempts}
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <chapter>",
		Short: "Export and deliver a chapter's work",
		Long: `Export a chapter's work and deliver it to the submission endpoint.

The export is stored locally before the first attempt. When every attempt
fails it stays pending and can be sent later with "pedago retry".

Exit codes:
  0 - Work delivered
  1 - Work not ready, or delivery failed (kept as pending)
  2 - Command error (no endpoint configured, etc.)`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts.RootOptions, func(ctx context.Context, s *session) error {
				receipt, err := s.engine.SubmitWork(ctx, args[0])
				if err != nil {
					return s.out.Fail("submission failed", err)
				}
				out := receiptOutput(receipt)
				return s.out.Emit(out, fmt.Sprintf("Chapter %s (v%s) delivered as %s after %d attempt(s).",
					out.Chapter, out.Version, out.Document, out.Attempts))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "submission endpoint URL")

	return cmd
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List submissions waiting to be delivered",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				pending, err := s.engine.Pending(ctx)
				if err != nil {
					return s.out.Fail("cannot list pending submissions", err)
				}
				if len(pending) == 0 {
					return s.out.Emit(pending, "No pending submission.")
				}
				var b strings.Builder
				for i, p := range pending {
					if i > 0 {
						b.WriteByte('\n')
					}
					created := time.UnixMilli(p.CreatedAt).Format(time.DateTime)
					fmt.Fprintf(&b, "%s  chapter %s (v%s), created %s", p.Key, p.ChapterID, p.Version, created)
				}
				return s.out.Emit(pending, b.String())
			})
		},
	}
}

// RetryOutput is the output of the retry command.
type RetryOutput struct {
	Delivered []ReceiptOutput `json:"delivered"`
	Failed    []string        `json:"failed"`
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "retry [key...]",
		Short: "Deliver pending submissions again",
		Long: `Deliver pending submissions again, oldest first. Without arguments
every pending submission is retried.

Exit codes:
  0 - Every retried submission was delivered
  1 - At least one submission is still pending
  2 - Command error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts.RootOptions, func(ctx context.Context, s *session) error {
				keys := args
				if len(keys) == 0 {
					pending, err := s.engine.Pending(ctx)
					if err != nil {
						return s.out.Fail("cannot list pending submissions", err)
					}
					for _, p := range pending {
						keys = append(keys, p.Key)
					}
				}
				return retryAll(ctx, s, keys)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "submission endpoint URL")

	return cmd
}

func retryAll(ctx context.Context, s *session, keys []string) error {
	out := RetryOutput{Delivered: []ReceiptOutput{}, Failed: []string{}}
	var lastErr error
	for _, key := range keys {
		receipt, err := s.engine.RetryPending(ctx, key)
		if err != nil {
			slog.Warn("retry failed", "key", key, "error", err)
			out.Failed = append(out.Failed, key)
			lastErr = err
			continue
		}
		out.Delivered = append(out.Delivered, receiptOutput(receipt))
	}

	if lastErr != nil {
		_, exit := Classify(lastErr)
		if s.out.Format == "json" {
			_ = s.out.Error(string(submit.ErrCodeDeliveryFailed), "some submissions are still pending", out)
		}
		return WrapExitError(exit, fmt.Sprintf("%d of %d submission(s) still pending", len(out.Failed), len(keys)), lastErr)
	}

	if len(keys) == 0 {
		return s.out.Emit(out, "Nothing to retry.")
	}
	var b strings.Builder
	for i, r := range out.Delivered {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "Chapter %s (v%s) delivered as %s.", r.Chapter, r.Version, r.Document)
	}
	return s.out.Emit(out, b.String())
}
