package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pedago/internal/engine"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Class string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <name> --class <class>",
		Short: "Open a session for a student",
		Long: `Open a session for a student of a class.

Logging in as another student, or into another class, clears the stored
progress of the previous one.

Example:
  pedago login Amina --class tcs`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts.RootOptions, func(ctx context.Context, s *session) error {
				if err := s.engine.Dispatch(ctx, engine.Login{Student: args[0], ClassID: opts.Class}); err != nil {
					return s.out.Fail("login failed", err)
				}
				return s.out.Emit(map[string]string{"student": args[0], "class": opts.Class},
					fmt.Sprintf("Logged in as %s (%s).", args[0], opts.Class))
			})
		},
	}

	cmd.Flags().StringVar(&opts.Class, "class", "", "class id (required)")
	_ = cmd.MarkFlagRequired("class")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Close the session and clear local progress",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.engine.Dispatch(ctx, engine.Logout{}); err != nil {
					return s.out.Fail("logout failed", err)
				}
				return s.out.Emit(map[string]bool{"logged_out": true}, "Logged out.")
			})
		},
	}
}
