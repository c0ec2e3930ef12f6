// Package main is opnamectl, the operator CLI for stock opname: schema
// migrations, count sheet export/import and approvals.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"backoffice/internal/app"
	"backoffice/internal/config"
	"backoffice/pkg/logger"
)

var (
	cfg     config.Config
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "opnamectl",
	Short:         "Operate the stock opname subsystem",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		loaded, err := config.Load(files...)
		if err != nil {
			return err
		}
		cfg = loaded

		log, err := logger.New(logger.Config{
			Level:       cfg.LogLevel,
			Development: true,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger.SetDefault(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load variables from this file instead of .env")
}

// openApp wires the configured backend.
func openApp(cmd *cobra.Command) (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
