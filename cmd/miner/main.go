// Command miner is a CPU RandomX miner speaking the Stratum JSON protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opd-ai/go-randomx/internal/control"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "miner",
		Short: "RandomX CPU miner speaking the Stratum mining protocol",
		RunE:  runMine,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "mithril.toml", "path to the TOML config file")
	return cmd
}

func runMine(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("miner: building logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := control.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("miner: loading config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	return control.Run(ctx, cfg, logger)
}
