package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lizz/gcal-mcp/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar",
		Long: `Authorize gcal-mcp to access your Google Calendar.

If a refresh token is stored for the current scopes it is exchanged for an
access token. Otherwise the Google consent page opens in your browser and
the new refresh token is saved to the credential file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(globalOpts, newLogger(globalOpts.Debug), nil)
			if err != nil {
				return err
			}
			return runAuth(ctx, cmd.OutOrStdout(), a)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether stored credentials match the current scopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(globalOpts, newLogger(globalOpts.Debug), nil)
			if err != nil {
				return err
			}
			return runAuthStatus(cmd.OutOrStdout(), a)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Delete the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(globalOpts, newLogger(globalOpts.Debug), nil)
			if err != nil {
				return err
			}
			return runAuthLogout(cmd.OutOrStdout(), a)
		},
	})

	return cmd
}

func runAuth(ctx context.Context, out io.Writer, a *app) error {
	if _, err := a.credentials.Acquire(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Credentials are stored in %s\n", green("Google Calendar access authorized."), bold(a.store.Path()))
	return nil
}

func runAuthStatus(out io.Writer, a *app) error {
	stored, err := a.store.Peek()
	if err != nil {
		return err
	}

	switch {
	case stored == nil:
		fmt.Fprintf(out, "%s at %s. Run 'gcal-mcp auth' to authorize.\n", yellow("No stored credentials"), a.store.Path())
	case stored.ScopeHash != a.credentials.ScopeHash():
		fmt.Fprintf(out, "Stored credentials at %s %s. Run 'gcal-mcp auth' to re-authorize.\n", a.store.Path(), yellow("were granted for different scopes"))
	default:
		fmt.Fprintf(out, "Stored credentials at %s %s.\n", a.store.Path(), green("match the current scopes"))
	}
	fmt.Fprintf(out, "Scopes: %v\n", google.CalendarScopes)
	return nil
}

func runAuthLogout(out io.Writer, a *app) error {
	if err := a.store.Delete(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed stored credentials at %s\n", a.store.Path())
	return nil
}
