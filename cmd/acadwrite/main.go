package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"

	configPath string
	verbose    bool
)

func versionString() string {
	return fmt.Sprintf("acadwrite %s (commit: %s)", version, commit)
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "acadwrite",
		Short: "Academic writing assistant",
		Long: `acadwrite fills drafts with cited prose from a document collection.

Mark regions of a markdown draft with <!-- ACADWRITE: op --> ... <!-- END ACADWRITE -->
and run "acadwrite expand", or process a whole file, analyse a claim, generate
sections and chapters, and check citations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	})
	root.AddCommand(expandCmd())
	root.AddCommand(processCmd())
	root.AddCommand(contraCmd())
	root.AddCommand(generateCmd())
	root.AddCommand(chapterCmd())
	root.AddCommand(citationsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(configCmd())
	return root
}
