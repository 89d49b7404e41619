package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var markup = regexp.MustCompile(`<[^>]*>`)

// NewNotificationsCommand creates the notifications command.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "notifications",
		Short: "Show the current notifications, newest first",
		Long: `Generate the notifications the current progress warrants, add the new
ones to the local log and show every notification of the retention window.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				notes, err := s.engine.Notifications(ctx)
				if err != nil {
					return s.out.Fail("notifications unavailable", err)
				}
				if len(notes) == 0 {
					return s.out.Emit(notes, "No notifications.")
				}
				var b strings.Builder
				for i, n := range notes {
					if i > 0 {
						b.WriteByte('\n')
					}
					at := time.UnixMilli(n.Timestamp).Format(time.DateTime)
					fmt.Fprintf(&b, "[%s] %s  %s: %s", n.Type, at, n.Title, markup.ReplaceAllString(n.Message, ""))
				}
				return s.out.Emit(notes, b.String())
			})
		},
	}
}
