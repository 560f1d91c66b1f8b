package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, check or create configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configCheckCmd())
	cmd.AddCommand(configInitCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with API keys masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(configPath)
			if err != nil {
				return err
			}
			return cfg.WriteTOML(cmd.OutOrStdout())
		},
	}
}

// configCheckCmd verifies the configuration and that the RAG service
// answers.
func configCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and RAG connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Configuration valid\nRAG service: %s\n", a.cfg.FileIntel.URL)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			ok, err := a.ragClient.Health(ctx)
			if err != nil {
				return fmt.Errorf("RAG service unreachable: %w", err)
			}
			if !ok {
				return fmt.Errorf("RAG service reports unhealthy")
			}
			fmt.Fprintln(w, "RAG service reachable")

			cols, err := a.ragClient.ListCollections(ctx)
			if err != nil {
				return fmt.Errorf("list collections: %w", err)
			}
			for _, c := range cols {
				marker := " "
				if c.Name == a.cfg.FileIntel.Collection || c.ID == a.cfg.FileIntel.Collection {
					marker = "*"
				}
				fmt.Fprintf(w, " %s %s (%s)\n", marker, c.Name, c.Status)
			}

			if a.cfg.LLMEnabled() {
				fmt.Fprintf(w, "LLM: %s at %s\n", a.cfg.LLM.Model, a.cfg.LLM.BaseURL)
			} else {
				fmt.Fprintln(w, "LLM: not configured (clarity and contradict unavailable)")
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write a config file with the default settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			if err := config.Default().Encode(f); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", path, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
