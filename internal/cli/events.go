package cli

import (
	"alcyxob/coaching-programmes/internal/domain"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	AssignmentID string
	ClientID     string
	Since        string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the event log of an assignment or a client",
		Example: `  programmectl events --assignment 65f1c0ffee00000000000001
  programmectl events --client 65f1c0ffee00000000000002 --since 2026-01-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.AssignmentID, "assignment", "", "assignment id")
	cmd.Flags().StringVar(&opts.ClientID, "client", "", "client id")
	cmd.Flags().StringVar(&opts.Since, "since", "", "RFC3339 lower bound (client feed only)")
	cmd.MarkFlagsMutuallyExclusive("assignment", "client")
	cmd.MarkFlagsOneRequired("assignment", "client")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	assignmentID, err := parseOptionalID("assignment", opts.AssignmentID)
	if err != nil {
		return err
	}
	clientID, err := parseOptionalID("client", opts.ClientID)
	if err != nil {
		return err
	}
	var since *time.Time
	if opts.Since != "" {
		t, err := time.Parse(time.RFC3339, opts.Since)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --since", err)
		}
		since = &t
	}

	return opts.withBackend(cmd.Context(), func(b *Backend) error {
		var events []domain.AssignmentEvent
		var err error
		if assignmentID != nil {
			events, err = b.EventLog.GetByAssignmentID(cmd.Context(), *assignmentID)
		} else {
			events, err = b.EventLog.GetByClientID(cmd.Context(), *clientID, since)
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read events", err)
		}

		if opts.Format == "json" {
			if events == nil {
				events = []domain.AssignmentEvent{}
			}
			return writeJSON(cmd.OutOrStdout(), events)
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events found.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tASSIGNMENT\tEVENT\tSTATUS\tNOTES")
		for _, e := range events {
			status := ""
			if e.OldStatus != "" || e.NewStatus != "" {
				status = fmt.Sprintf("%s -> %s", e.OldStatus, e.NewStatus)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.Format(time.RFC3339), e.AssignmentID.Hex(), e.EventType, status, e.Notes)
		}
		return w.Flush()
	})
}
