// Package cli implements programmectl, the operator tool for sweeps, event
// inspection and archive retrieval.
package cli

import (
	"alcyxob/coaching-programmes/internal/repository"
	"alcyxob/coaching-programmes/internal/service"
	"alcyxob/coaching-programmes/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the operation ran and failed
	ExitCommandError = 2 // bad flags or unreachable backend
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, ExitFailure by default.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Backend is what the commands operate on.
type Backend struct {
	Sweeper  service.Sweeper
	EventLog repository.EventRepository
	Archive  storage.ArchiveStore // nil when archiving is disabled
	Close    func()
}

// Opener builds a Backend from the global flags.
type Opener func(ctx context.Context, opts *RootOptions) (*Backend, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"

	open Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for programmectl.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "programmectl",
		Short: "Operate the coaching programmes service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", ".", "directory holding config.yaml")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewArchiveCommand(opts))

	return cmd
}

// withBackend opens the backend, runs fn and closes it.
func (o *RootOptions) withBackend(ctx context.Context, fn func(*Backend) error) error {
	b, err := o.open(ctx, o)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open backend", err)
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(b)
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseOptionalID parses a hex id flag; empty means unset.
func parseOptionalID(flag, raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", flag), err)
	}
	return &id, nil
}
