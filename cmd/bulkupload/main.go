package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bulkimport/internal/application"
	"github.com/JonMunkholm/bulkimport/internal/config"
	"github.com/JonMunkholm/bulkimport/internal/core"
	"github.com/JonMunkholm/bulkimport/internal/logging"
)

// Exit codes beyond cobra's default of 1 for any error.
const (
	exitHardFailure    = 1
	exitPartialFailure = 2
)

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

var (
	apiURL   string
	apiToken string
	logLevel string
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bulkupload: %s\n", describe(err))
		code := exitHardFailure
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		os.Exit(code)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulkupload",
		Short: "Validate and bulk upload product CSV files",
		Long: `bulkupload checks a product CSV the same way the seller dashboard does and
submits the valid rows to the marketplace, batching large files automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Marketplace API base URL (overrides IMPORT_API_URL)")
	cmd.PersistentFlags().StringVar(&apiToken, "token", "", "Bearer token (overrides IMPORT_API_TOKEN)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.AddCommand(
		newTemplateCmd(),
		newPreviewCmd(),
		newUploadCmd(),
	)
	return cmd
}

// loadConfig reads the environment and applies command line overrides.
// Logs go to stderr so stdout carries only command output.
func loadConfig() (*config.Config, error) {
	if apiURL != "" {
		os.Setenv("IMPORT_API_URL", apiURL)
	}
	if apiToken != "" {
		os.Setenv("IMPORT_API_TOKEN", apiToken)
	}
	if logLevel != "" {
		os.Setenv("LOG_LEVEL", logLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func newTemplateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the sample CSV template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(core.SampleTemplate())
				return err
			}
			if err := os.WriteFile(output, core.SampleTemplate(), 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "template written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (defaults to stdout)")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "preview <file.csv>",
		Short: "Validate a CSV file without uploading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := previewFile(cfg, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			printPreview(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full preview as JSON")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Validate a CSV file and upload its valid rows",
		Long: `upload previews the file, then submits every valid row. Invalid rows are
reported and skipped. The exit code is 1 when nothing was created and 2 when
some products failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			p, err := previewFile(cfg, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !asJSON {
				printPreview(out, p)
			}

			submitter := core.NewSubmitter(application.NewClient(cfg), application.SubmitConfig(cfg))
			result, err := submitter.Submit(cmd.Context(), p.ValidProducts())
			if result == nil {
				return err
			}

			if asJSON {
				if jerr := writeJSON(out, result); jerr != nil {
					return jerr
				}
			} else {
				printResult(out, result)
			}
			return outcomeError(result, err)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the upload result as JSON")
	return cmd
}

// previewFile reads and validates path the same way the server does.
func previewFile(cfg *config.Config, path string) (*core.Preview, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil, core.ErrInvalidFileType
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if info.Size() > cfg.Upload.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", core.ErrFileTooLarge, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return application.NewImporter(cfg).Preview(data)
}

// outcomeError maps a finished upload onto the process exit code.
func outcomeError(result *core.UploadResult, err error) error {
	switch result.Outcome() {
	case core.StateHardFailure:
		if err == nil {
			err = errors.New("no products were created")
		}
		return &exitError{code: exitHardFailure, err: err}
	case core.StatePartialFailure:
		return &exitError{
			code: exitPartialFailure,
			err:  fmt.Errorf("%d of %d products failed", result.FailedCount(), result.Total),
		}
	}
	return nil
}

// describe prefers the catalogue message for known errors.
func describe(err error) string {
	if core.IsUserFacing(err) {
		return core.FormatUserError(err)
	}
	return err.Error()
}

func printPreview(w io.Writer, p *core.Preview) {
	fmt.Fprintf(w, "Rows: %d total, %d valid, %d with errors\n",
		p.Summary.TotalRows, p.Summary.ValidRows, p.Summary.InvalidRows)
	if len(p.UnknownColumns) > 0 {
		fmt.Fprintf(w, "Extra columns kept as attributes: %s\n", strings.Join(p.UnknownColumns, ", "))
	}
	for _, e := range p.ErrorPanel {
		label := fmt.Sprintf("Row %d", e.RowIndex)
		if e.Name != "" {
			label += " (" + e.Name + ")"
		}
		fmt.Fprintf(w, "  %s:\n", label)
		for _, msg := range e.Errors {
			fmt.Fprintf(w, "    - %s\n", msg)
		}
	}
	if p.MoreErrors != "" {
		fmt.Fprintf(w, "  %s\n", p.MoreErrors)
	}
}

func printResult(w io.Writer, r *core.UploadResult) {
	fmt.Fprintf(w, "Uploaded %d of %d products (%s)\n", r.Uploaded, r.Total, r.Outcome())
	for _, b := range r.Batches {
		status := "ok"
		if b.Error != "" {
			status = b.Error
		}
		fmt.Fprintf(w, "  batch %d: %d/%d created, %s\n", b.Index, b.Succeeded, b.Size, status)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  failed row %d (%s): %s\n", f.RowIndex, f.Name, strings.Join(f.Errors, "; "))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
