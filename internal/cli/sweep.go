package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// SweepOptions holds flags shared by the sweep subcommands.
type SweepOptions struct {
	*RootOptions
	ClientID string
	At       string // RFC3339; defaults to now
}

// NewSweepCommand creates the sweep command group.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the expiry and cleanup passes by hand",
	}
	cmd.PersistentFlags().StringVar(&opts.ClientID, "client", "", "limit the pass to one client id")
	cmd.PersistentFlags().StringVar(&opts.At, "at", "", "evaluate windows at this RFC3339 time instead of now")

	cmd.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Clear pending updates older than the expiry window",
		Example: `  programmectl sweep expire
  programmectl sweep expire --client 65f1c0ffee00000000000001 --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpire(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Purge rejected assignments past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(opts, cmd)
		},
	})

	return cmd
}

func (o *SweepOptions) parse() (time.Time, error) {
	if o.At == "" {
		return time.Now().UTC(), nil
	}
	at, err := time.Parse(time.RFC3339, o.At)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, "invalid --at", err)
	}
	return at.UTC(), nil
}

func runExpire(opts *SweepOptions, cmd *cobra.Command) error {
	at, err := opts.parse()
	if err != nil {
		return err
	}
	clientID, err := parseOptionalID("client", opts.ClientID)
	if err != nil {
		return err
	}

	return opts.withBackend(cmd.Context(), func(b *Backend) error {
		report, err := b.Sweeper.ExpireStalePendingUpdates(cmd.Context(), at, clientID)
		if err != nil {
			return WrapExitError(ExitFailure, "expiry pass failed", err)
		}
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d expired=%d conflicts=%d failed=%d\n",
			report.Scanned, report.Expired, report.Conflicts, report.Failed)
		return nil
	})
}

func runCleanup(opts *SweepOptions, cmd *cobra.Command) error {
	at, err := opts.parse()
	if err != nil {
		return err
	}
	clientID, err := parseOptionalID("client", opts.ClientID)
	if err != nil {
		return err
	}

	return opts.withBackend(cmd.Context(), func(b *Backend) error {
		report, err := b.Sweeper.CleanupOldRejected(cmd.Context(), at, clientID)
		if err != nil {
			return WrapExitError(ExitFailure, "cleanup pass failed", err)
		}
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d purged=%d skipped=%d archive_failures=%d\n",
			report.Scanned, report.Purged, report.Skipped, report.ArchiveFailure)
		return nil
	})
}
