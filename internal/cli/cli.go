// Package cli is the command-line surface of the uploader: flag parsing,
// the human readable report on stdout and the process exit code.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"artifact-uploader/internal/config"
	"artifact-uploader/internal/logger"
	"artifact-uploader/internal/uploader"
	apperrors "artifact-uploader/pkg/errors"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const (
	commandName  = "uploader"
	commandShort = "Upload a file to a generic artifact repository with HTTP PUT"
	commandUse   = commandName + " --base-url URL --repo NAME --file PATH --target-path PATH --username USER --password PASS"

	errFlagRequiredFmt  = "failed to mark flag %q required: %v"
	errLoggerSetupFmt   = "failed to set up logging: %v"
	errLogCloseFmt      = "failed to close log file: %v\n"
	usageErrorPrefixFmt = "Error: %v\n"
)

// Exit codes returned by Execute.
const (
	ExitOK        = 0
	ExitRejected  = 1
	ExitLocalFile = 2
	ExitUsage     = 2
	ExitTransport = 3
)

// CLI runs the uploader command against the given output streams.
type CLI struct {
	stdout  io.Writer
	stderr  io.Writer
	version string
	// extra uploader options applied after the flag-derived ones
	options []uploader.Option
}

// New returns a CLI writing its report to stdout and diagnostics to stderr.
func New(stdout, stderr io.Writer, opts ...uploader.Option) *CLI {
	return &CLI{stdout: stdout, stderr: stderr, options: opts}
}

// WithVersion sets the string printed by --version.
func (c *CLI) WithVersion(version string) *CLI {
	c.version = version
	return c
}

// Execute parses args, runs one upload and returns the process exit code.
func (c *CLI) Execute(ctx context.Context, args []string) int {
	cmd := c.command()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	code := ExitCode(err)

	// Errors that never reached the upload are usage problems.
	if err != nil && apperrors.CodeOf(err) == "" && !errors.Is(err, apperrors.ErrServerRejected) {
		fmt.Fprintf(c.stderr, usageErrorPrefixFmt, err)
		fmt.Fprint(c.stderr, cmd.UsageString())
	}
	return code
}

func (c *CLI) command() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:           commandUse,
		Short:         commandShort,
		Args:          cobra.NoArgs,
		Version:       c.version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd.Context(), cfg)
		},
	}
	cmd.SetOut(c.stdout)
	cmd.SetErr(c.stderr)

	cfg.BindFlags(cmd.Flags())
	for _, name := range config.RequiredFlags {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf(errFlagRequiredFmt, name, err))
		}
	}

	return cmd
}

func (c *CLI) run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(c.stderr, usageErrorPrefixFmt, err)
		return err
	}

	logCfg := cfg.Logger()
	logCfg.Output = c.stderr
	log, closeLog, err := logger.New(logCfg)
	if err != nil {
		invalid := apperrors.InvalidInput(fmt.Sprintf(errLoggerSetupFmt, err))
		fmt.Fprintf(c.stderr, usageErrorPrefixFmt, invalid)
		return invalid
	}
	defer func() {
		if err := closeLog(); err != nil {
			fmt.Fprintf(c.stderr, errLogCloseFmt, err)
		}
	}()

	log = log.With("upload_id", uuid.NewString())
	log.Debug("configuration loaded", "config", cfg.String())

	opts := append([]uploader.Option{
		uploader.WithLogger(log),
		uploader.WithTimeout(cfg.Timeout),
	}, c.options...)
	up := uploader.New(opts...)

	prepared, err := up.Prepare(cfg.Upload)
	if err != nil {
		reportPrepareError(c.stdout, c.stderr, cfg.Upload.LocalFilePath, err)
		return err
	}

	fmt.Fprintf(c.stdout, uploadingFmt, prepared.TargetURL)

	result, err := up.Send(ctx, prepared)
	if result != nil {
		reportResult(c.stdout, result)
	}
	if err != nil && !errors.Is(err, apperrors.ErrServerRejected) {
		reportSendError(c.stderr, err)
	}
	return err
}

// ExitCode maps an upload outcome to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, apperrors.ErrServerRejected):
		return ExitRejected
	case errors.Is(err, apperrors.ErrFileNotFound), errors.Is(err, apperrors.ErrFileUnreadable):
		return ExitLocalFile
	case errors.Is(err, apperrors.ErrTransport):
		return ExitTransport
	default:
		return ExitUsage
	}
}
