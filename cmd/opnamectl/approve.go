package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"backoffice/internal/core/id"
)

var (
	approveSession  string
	approveReviewer string
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a submitted session and apply its differences to branch stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := id.Parse(approveSession)
		if err != nil {
			return fmt.Errorf("invalid --session: %w", err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sess, err := a.Opname.Approve(cmd.Context(), sessionID, approveReviewer)
		if err != nil {
			return err
		}

		t := sess.Totals()
		fmt.Fprintf(cmd.OutOrStdout(), "%s approved: %d items, +%d / -%d units, value %s\n",
			sess.Code, t.TotalItems, t.TotalPositiveAdjustment, t.TotalNegativeAdjustment, t.TotalAdjustmentValue.StringFixed(2))
		return nil
	},
}

func init() {
	approveCmd.Flags().StringVar(&approveSession, "session", "", "session id (required)")
	approveCmd.Flags().StringVar(&approveReviewer, "reviewer", "", "reviewer user id recorded on the session (required)")
	_ = approveCmd.MarkFlagRequired("session")
	_ = approveCmd.MarkFlagRequired("reviewer")
	rootCmd.AddCommand(approveCmd)
}
