package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/workbook"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a budget workbook",
	Long:  "Detects headers, extracts discipline blocks, allocates add-ons and prints the normalized result. With --save the result is also persisted as an import.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		path, _ := cmd.Flags().GetString("file")
		save, _ := cmd.Flags().GetBool("save")
		format, _ := cmd.Flags().GetString("format")
		mappingsPath, _ := cmd.Flags().GetString("mappings")
		blockSheets, _ := cmd.Flags().GetStringSlice("block-sheet")
		outPath, _ := cmd.Flags().GetString("output")

		mode := "analyze"
		if save {
			mode = "store"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}
		if !validFormat(format) {
			return eris.Errorf("analyze: unsupported format %q (json, yaml, csv)", format)
		}

		wb, err := workbook.Open(path)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		opts := analyzerOptions(cfg.Budget)
		opts.CustomMappings, err = loadMappings(mappingsPath)
		if err != nil {
			return err
		}
		if len(blockSheets) > 0 {
			opts.BlockSheets = blockSheets
		}
		an := budget.NewAnalyzer(opts, zap.L())

		var res *budget.Result
		if save {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			res, _, err = importWorkbook(ctx, st, an, wb, filepath.Base(path))
			if err != nil {
				return err
			}
		} else {
			res, err = an.Analyze(wb)
			if err != nil {
				return eris.Wrap(err, "analyze")
			}
		}

		out := io.Writer(os.Stdout)
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrap(err, "analyze: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if err := writeResult(out, res, format); err != nil {
			return err
		}
		writeValidationSummary(os.Stderr, res)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("file", "", "path to the .xlsx workbook")
	analyzeCmd.Flags().Bool("save", false, "persist the result as an import")
	analyzeCmd.Flags().String("format", "json", "output format: json, yaml or csv (line items only)")
	analyzeCmd.Flags().String("mappings", "", "YAML file of per-sheet column overrides")
	analyzeCmd.Flags().StringSlice("block-sheet", nil, "sheet holding discipline blocks (repeatable; default detects them)")
	analyzeCmd.Flags().String("output", "", "write the result to this file instead of stdout")
	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}

func validFormat(format string) bool {
	switch format {
	case "json", "yaml", "csv":
		return true
	}
	return false
}

// writeResult encodes res in the requested format. CSV carries only the
// line items in workbook order.
func writeResult(w io.Writer, res *budget.Result, format string) error {
	switch format {
	case "json", "yaml":
		return writeValue(w, res, format)
	case "csv":
		cw := csv.NewWriter(w)
		enc := csvutil.NewEncoder(cw)
		var err error
		if items := res.AllLineItems(); len(items) > 0 {
			err = enc.Encode(items)
		} else {
			err = enc.EncodeHeader(budget.LineItem{})
		}
		if err != nil {
			return eris.Wrap(err, "encode csv")
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "write csv")
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

// writeValue encodes v as indented JSON or YAML.
func writeValue(w io.Writer, v any, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode json")
}

func writeValidationSummary(w io.Writer, res *budget.Result) {
	v := res.Validation
	_, _ = fmt.Fprintf(w, "%d line items, grand total %s, %d errors, %d warnings\n",
		len(res.AllLineItems()), res.Totals.GrandTotal.StringFixed(2), len(v.Errors), len(v.Warnings))
	for _, e := range v.Errors {
		_, _ = fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, warn := range v.Warnings {
		_, _ = fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	if res.ImportID != "" {
		_, _ = fmt.Fprintf(w, "saved as import %s\n", res.ImportID)
	}
}
