package cli

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"
)

var errArchiveDisabled = errors.New("archiving is disabled (ARCHIVE_ENABLED=false)")

// ArchiveOptions holds flags for the archive commands.
type ArchiveOptions struct {
	*RootOptions
	Key     string
	Client  string
	ID      string
	Prefix  string
	Expires time.Duration
}

// NewArchiveCommand creates the archive command group.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Retrieve or remove archived assignments",
	}
	cmd.PersistentFlags().StringVar(&opts.Key, "key", "", "full object key")
	cmd.PersistentFlags().StringVar(&opts.Client, "client", "", "client id (with --assignment, instead of --key)")
	cmd.PersistentFlags().StringVar(&opts.ID, "assignment", "", "assignment id (with --client, instead of --key)")
	cmd.PersistentFlags().StringVar(&opts.Prefix, "prefix", "archive/assignments", "archive key prefix")

	url := &cobra.Command{
		Use:   "url",
		Short: "Print a presigned download URL for an archived assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveURL(opts, cmd)
		},
	}
	url.Flags().DurationVar(&opts.Expires, "expires", 15*time.Minute, "URL lifetime")
	cmd.AddCommand(url)

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print an archived assignment document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveGet(opts, cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove an archived assignment document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchiveDelete(opts, cmd)
		},
	})

	return cmd
}

// objectKey resolves --key, or builds it the way the sweeper writes it.
func (o *ArchiveOptions) objectKey() (string, error) {
	if o.Key != "" {
		return o.Key, nil
	}
	if o.Client == "" || o.ID == "" {
		return "", WrapExitError(ExitCommandError, "either --key or both --client and --assignment are required", nil)
	}
	return path.Join(o.Prefix, o.Client, o.ID+".json"), nil
}

func runArchiveURL(opts *ArchiveOptions, cmd *cobra.Command) error {
	key, err := opts.objectKey()
	if err != nil {
		return err
	}
	return opts.withBackend(cmd.Context(), func(b *Backend) error {
		if b.Archive == nil {
			return WrapExitError(ExitCommandError, "cannot presign", errArchiveDisabled)
		}
		u, err := b.Archive.GeneratePresignedDownloadURL(cmd.Context(), key, opts.Expires)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to presign "+key, err)
		}
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"key": key, "url": u})
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	})
}

func runArchiveGet(opts *ArchiveOptions, cmd *cobra.Command) error {
	key, err := opts.objectKey()
	if err != nil {
		return err
	}
	return opts.withBackend(cmd.Context(), func(b *Backend) error {
		if b.Archive == nil {
			return WrapExitError(ExitCommandError, "cannot read archive", errArchiveDisabled)
		}
		body, err := b.Archive.GetObject(cmd.Context(), key)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read "+key, err)
		}
		_, err = cmd.OutOrStdout().Write(body)
		return err
	})
}

func runArchiveDelete(opts *ArchiveOptions, cmd *cobra.Command) error {
	key, err := opts.objectKey()
	if err != nil {
		return err
	}
	return opts.withBackend(cmd.Context(), func(b *Backend) error {
		if b.Archive == nil {
			return WrapExitError(ExitCommandError, "cannot delete from archive", errArchiveDisabled)
		}
		if err := b.Archive.DeleteObject(cmd.Context(), key); err != nil {
			return WrapExitError(ExitFailure, "failed to delete "+key, err)
		}
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": key})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
		return nil
	})
}
