package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"backoffice/internal/core/id"
	"backoffice/internal/infrastructure/tabular"
)

var (
	transferSession string
	transferFormat  string
	exportOut       string
	importFile      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a session's items to a CSV or XLSX count sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := id.Parse(transferSession)
		if err != nil {
			return fmt.Errorf("invalid --session: %w", err)
		}
		format, err := pickFormat(transferFormat, exportOut)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return tabular.Encode(w, format, a.Opname.ExportRows(cmd.Context(), sessionID))
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Add the lines of a count sheet to a DRAFT session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := id.Parse(transferSession)
		if err != nil {
			return fmt.Errorf("invalid --session: %w", err)
		}
		format, err := pickFormat(transferFormat, importFile)
		if err != nil {
			return err
		}

		f, err := os.Open(importFile)
		if err != nil {
			return err
		}
		defer f.Close()

		lines, err := tabular.Decode(f, format)
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Opname.ImportLines(cmd.Context(), sessionID, lines)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "accepted: %d\nrejected: %d\n", len(report.Accepted), len(report.Rejected))
		if len(report.Rejected) > 0 {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LINE\tSKU\tCODE\tREASON")
			for _, r := range report.Rejected {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Line, r.Row.ProductSKU, r.Code, r.Reason)
			}
			return tw.Flush()
		}
		return nil
	},
}

// pickFormat prefers an explicit --format, then the file extension.
func pickFormat(flag, path string) (tabular.Format, error) {
	if flag != "" || path == "-" {
		return tabular.ParseFormat(flag)
	}
	return tabular.FormatFromFilename(path)
}

func init() {
	exportCmd.Flags().StringVar(&transferSession, "session", "", "session id (required)")
	exportCmd.Flags().StringVar(&transferFormat, "format", "", "csv or xlsx (default: from --out)")
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "output file, - for stdout")
	_ = exportCmd.MarkFlagRequired("session")

	importCmd.Flags().StringVar(&transferSession, "session", "", "session id (required)")
	importCmd.Flags().StringVar(&transferFormat, "format", "", "csv or xlsx (default: from --file)")
	importCmd.Flags().StringVar(&importFile, "file", "", "count sheet to import (required)")
	_ = importCmd.MarkFlagRequired("session")
	_ = importCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(exportCmd, importCmd)
}
