// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/dart/internal/config"
	"github.com/ManuGH/dart/internal/version"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create configuration files",
	}
	cmd.AddCommand(
		newConfigValidateCmd(configPath),
		newConfigInitCmd(configPath),
		newConfigDumpCmd(configPath),
	)
	return cmd
}

func requireConfigPath(configPath *string) (string, error) {
	path := resolveConfigPath(*configPath)
	if path == "" {
		return "", errors.New("--config is required (no $DART_CONFIG and no " + defaultConfigPath + ")")
	}
	return path, nil
}

func newConfigValidateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := requireConfigPath(configPath)
			if err != nil {
				return err
			}
			loader := config.NewLoader(path, version.Version)
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("configuration error in %s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			for _, s := range loader.Skipped() {
				fmt.Fprintf(out, "skipped source #%d (%s): %v\n", s.Index, s.Name, s.Err)
			}
			if len(cfg.Sources) == 0 {
				return fmt.Errorf("%s defines no usable sources", path)
			}
			fmt.Fprintf(out, "%s is valid (%d sources)\n", path, len(cfg.Sources))
			return nil
		},
	}
}

func newConfigInitCmd(configPath *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated starter configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := *configPath
			if path == "" {
				path = defaultConfigPath
			}
			if err := config.WriteTemplate(path, force); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigDumpCmd(configPath *string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration (file, environment and defaults merged)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewLoader(resolveConfigPath(*configPath), version.Version).Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer func() { _ = enc.Close() }()
				return enc.Encode(redact(cfg))
			default:
				return fmt.Errorf("unsupported format %q (yaml|json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or json")
	return cmd
}

// redact blanks secrets the yaml encoder would otherwise print.
func redact(cfg config.Config) config.Config {
	sources := make([]config.Source, len(cfg.Sources))
	for i, s := range cfg.Sources {
		if s.Password != "" {
			s.Password = "***"
		}
		if s.Auth != nil {
			auth := *s.Auth
			if auth.Password != "" {
				auth.Password = "***"
			}
			s.Auth = &auth
		}
		sources[i] = s
	}
	cfg.Sources = sources
	return cfg
}
