package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/budget-cli/internal/budget"
	"github.com/sells-group/budget-cli/internal/model"
	"github.com/sells-group/budget-cli/internal/store"
)

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List persisted workbook imports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		fileName, _ := cmd.Flags().GetString("file")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.ImportFilter{FileName: fileName, Limit: limit, Offset: offset}
		if status != "" {
			st, err := model.ParseImportStatus(status)
			if err != nil {
				return err
			}
			filter.Status = st
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		imports, err := st.ListImports(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "imports list")
		}
		if len(imports) == 0 {
			fmt.Fprintln(os.Stderr, "No imports found.")
			return nil
		}

		formatImportsList(os.Stdout, imports)
		return nil
	},
}

// -- imports show --

var importsShowCmd = &cobra.Command{
	Use:   "show <import-id>",
	Short: "Show an import with its WBS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		imp, err := st.GetImport(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "imports show")
		}
		nodes, err := st.ListWBSNodes(ctx, imp.ID)
		if err != nil {
			return eris.Wrap(err, "imports show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*model.Import
			WBS []budget.WBSNode `json:"wbs"`
		}{imp, nodes})
	},
}

// -- imports items --

var importsItemsCmd = &cobra.Command{
	Use:   "items <import-id>",
	Short: "Print the line items of an import",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if !validFormat(format) {
			return eris.Errorf("imports items: unsupported format %q (json, yaml, csv)", format)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		items, err := st.ListLineItems(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "imports items")
		}
		res := &budget.Result{LineItems: map[string][]budget.LineItem{}}
		for _, li := range items {
			if _, ok := res.LineItems[li.Sheet]; !ok {
				res.Sheets = append(res.Sheets, li.Sheet)
			}
			res.LineItems[li.Sheet] = append(res.LineItems[li.Sheet], li)
		}
		if format == "csv" {
			return writeResult(os.Stdout, res, format)
		}
		return writeValue(os.Stdout, items, format)
	},
}

func init() {
	importsCmd.Flags().String("status", "", "filter by status (analyzing, complete, failed)")
	importsCmd.Flags().String("file", "", "filter by workbook file name")
	importsCmd.Flags().Int("limit", 50, "max number of imports to display")
	importsCmd.Flags().Int("offset", 0, "skip this many imports")

	importsItemsCmd.Flags().String("format", "csv", "output format: json, yaml or csv")

	importsCmd.AddCommand(importsShowCmd)
	importsCmd.AddCommand(importsItemsCmd)
	rootCmd.AddCommand(importsCmd)
}

// formatImportsList writes a tabular list of imports to w.
func formatImportsList(out io.Writer, imports []model.Import) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILE\tSTATUS\tITEMS\tGRAND_TOTAL\tERRORS\tWARNINGS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-----\t-----------\t------\t--------\t-------")

	for _, imp := range imports {
		name := imp.FileName
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%d\t%d\t%s\n",
			truncateID(imp.ID),
			name,
			imp.Status,
			imp.LineItemCount,
			imp.GrandTotal.StringFixed(2),
			imp.ErrorCount,
			imp.WarningCount,
			imp.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
