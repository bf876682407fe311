// Package main provides the Invoice Extractor CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kvsharma13/Invoice-extractor/internal/config"
	"github.com/kvsharma13/Invoice-extractor/internal/ingest"
	"github.com/kvsharma13/Invoice-extractor/pkg/extractor"
)

const version = "1.0.0"

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool

	cfg *config.Config
	ui  *UI
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "invoice-extractor",
	Short: "Extract structured invoices from images and PDFs",
	Long: `Invoice Extractor reads an invoice image or PDF, extracts its fields with
an AI vision model and stores the result as a row in Airtable or Postgres.

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui = NewUI(outputJSON)
		if cmd.Name() == "version" {
			return nil
		}

		_ = godotenv.Load() // Ignore error if .env doesn't exist

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		switch {
		case verbose:
			cfg.Observability.LogLevel = "debug"
		case cfg.Observability.LogLevel == "info":
			// Keep pipeline logs out of the way of CLI output
			cfg.Observability.LogLevel = "warn"
		}
		cfg.Observability.LogFormat = "console"
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// extractionOutput is the JSON shape printed for one processed invoice.
type extractionOutput struct {
	Source     string             `json:"source"`
	Success    bool               `json:"success"`
	RunID      string             `json:"run_id,omitempty"`
	RecordID   string             `json:"record_id,omitempty"`
	DurationMS int64              `json:"duration_ms,omitempty"`
	Invoice    *extractor.Invoice `json:"invoice,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func isURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func process(ctx context.Context, client *extractor.Client, source string) extractionOutput {
	var (
		res *extractor.Result
		err error
	)
	if isURL(source) {
		res, err = client.ProcessURL(ctx, source)
	} else {
		res, err = client.ProcessFile(ctx, source)
	}
	if err != nil {
		return extractionOutput{Source: source, Error: err.Error()}
	}
	return extractionOutput{
		Source:     source,
		Success:    true,
		RunID:      res.RunID,
		RecordID:   res.RecordID,
		DurationMS: res.Duration.Milliseconds(),
		Invoice:    res.Invoice,
	}
}

// newExtractCmd creates the extract subcommand.
func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file-or-url>",
		Short: "Extract one invoice and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := extractor.NewClientWithConfig(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			stop := ui.Spin("Extracting " + args[0])
			out := process(cmd.Context(), client, args[0])
			stop()

			if outputJSON {
				if err := printJSON(out); err != nil {
					return err
				}
			} else {
				printHuman(out)
			}

			if !out.Success {
				return fmt.Errorf("extraction failed")
			}
			return nil
		},
	}
}

// newBatchCmd creates the batch subcommand.
func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <dir>",
		Short: "Extract every supported invoice file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := supportedFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported invoice files in %s", args[0])
			}

			client, err := extractor.NewClientWithConfig(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			bar := ui.Progress(len(files), "Extracting")
			results := make([]extractionOutput, 0, len(files))
			failed := 0
			start := time.Now()

			for _, path := range files {
				if cmd.Context().Err() != nil {
					break
				}
				out := process(cmd.Context(), client, path)
				if !out.Success {
					failed++
				}
				results = append(results, out)
				if bar != nil {
					_ = bar.Add(1)
				}
			}

			if outputJSON {
				if err := printJSON(results); err != nil {
					return err
				}
			} else {
				for _, out := range results {
					if out.Success {
						ui.Success("%s -> %s", filepath.Base(out.Source), out.RecordID)
					} else {
						ui.Error("%s: %s", filepath.Base(out.Source), out.Error)
					}
				}
				ui.Success("Processed %d of %d files in %s", len(results)-failed, len(files), time.Since(start).Round(time.Millisecond))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}
}

// supportedFiles lists the invoice files directly inside dir, sorted by name.
// Files without an extension are skipped.
func supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) == "" || !ingest.AllowedExtension(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if outputJSON {
				_ = printJSON(map[string]string{"version": version})
				return
			}
			fmt.Printf("invoice-extractor version %s\n", version)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHuman(out extractionOutput) {
	if !out.Success {
		ui.Error("%s", out.Error)
		return
	}
	ui.Success("Stored record %s (%dms)", out.RecordID, out.DurationMS)

	inv := out.Invoice
	ui.Field("Invoice Number", deref(inv.InvoiceNumber))
	ui.Field("Invoice Date", deref(inv.InvoiceDate))
	ui.Field("Vendor", deref(inv.VendorName))
	ui.Field("Customer", deref(inv.CustomerName))
	ui.Field("Total", strings.TrimSpace(number(inv.TotalAmount)+" "+deref(inv.Currency)))
	ui.Field("Line Items", strconv.Itoa(len(inv.LineItems)))
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
