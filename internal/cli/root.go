// Package cli implements the trustscan command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trustscan/internal/config"
	"trustscan/internal/logger"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trustscan",
		Short:         "Domain trust and risk scanner",
		Long:          "trustscan checks a website's TLS, security headers, reputation, age and brand impersonation and reports a weighted trust score.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("log-level", "", "Override LOG_LEVEL")

	root.AddCommand(newScanCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, colorRed("error: ")+err.Error())
		os.Exit(1)
	}
}

// setup loads configuration and a stderr logger so stdout stays clean for results.
func setup(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	cfg, cerr := config.Load()
	if cerr != nil && !errors.Is(cerr, config.ErrNoDatabase) {
		return cfg, nil, cerr
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		cfg.Log.Output = "stderr"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	if cerr != nil {
		log.Debug(cerr.Error())
	}
	return cfg, log, nil
}
