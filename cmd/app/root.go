package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ipcam-vision/internal/config"
)

var (
	debugMode  bool
	configPath string

	// cfg and logger are set up in the root PersistentPreRunE for every subcommand.
	cfg    config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:          "ipcam-vision",
	Short:        "Grayscale, edge, face and color processing for cameras, videos and images",
	Version:      AppVersion,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = initLogger(debugMode)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logger.WithFields(logrus.Fields{
			"version":    AppVersion,
			"command":    cmd.Name(),
			"config":     configPath,
			"debug_mode": debugMode,
		}).Info("Starting " + AppName)
		return nil
	},
}

func Execute() {
	// Ctrl+C cancels the command context, which the processing loop treats as a stop request.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (default: built-in settings)")
}
