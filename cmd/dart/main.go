// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command dart publishes local capture devices and remote cameras as RTSP mounts.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/daemon"
	"github.com/ManuGH/dart/internal/log"
	"github.com/ManuGH/dart/internal/version"
)

const defaultConfigPath = "/etc/dart/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	root := &cobra.Command{
		Use:          "dart",
		Short:        "RTSP server for V4L2 devices and IP cameras",
		Version:      version.String(),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon(resolveConfigPath(configPath), envFile)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML); defaults to $DART_CONFIG or "+defaultConfigPath)
	root.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env next to the config file)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the streaming daemon",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDaemon(resolveConfigPath(configPath), envFile)
		},
	}
	runCmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env next to the config file)")

	root.AddCommand(
		runCmd,
		newConfigCmd(&configPath),
		newHealthcheckCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath picks --config, then $DART_CONFIG, then the system path if present.
func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(config.ParseString("DART_CONFIG", "")); p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

func runDaemon(configPath, envFile string) error {
	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	app, err := daemon.Bootstrap(ctx, daemon.Options{
		ConfigPath: configPath,
		EnvFile:    envFile,
		Version:    version.Version,
	})
	logger := log.WithComponent("daemon")
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "daemon.bootstrap_failed").
			Str(log.FieldPath, configPath).
			Msg("failed to start dart")
		return err
	}

	if err := app.Run(ctx); err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "daemon.exit_error").
			Msg("dart stopped with error")
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", filepath.Base(os.Args[0]), version.String())
		},
	}
}
