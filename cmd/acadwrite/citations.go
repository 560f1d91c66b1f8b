package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/citation"
)

// citationsCmd groups the offline citation tools. None of them needs the
// RAG service or an LLM.
func citationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "citations",
		Short: "Inspect, check and export citations in a document",
	}
	cmd.AddCommand(citationsExtractCmd())
	cmd.AddCommand(citationsCheckCmd())
	cmd.AddCommand(citationsExportCmd())
	return cmd
}

func citationsExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract FILE",
		Short: "List inline citations and footnote definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			printCitations(cmd.OutOrStdout(), citation.ExtractFromText(text))
			return nil
		},
	}
}

func printCitations(w io.Writer, cites []citation.Citation) {
	if len(cites) == 0 {
		fmt.Fprintln(w, "No citations found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAUTHOR\tYEAR\tPAGE")
	for _, c := range cites {
		page := "-"
		if c.Page > 0 {
			page = fmt.Sprint(c.Page)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Author, c.Year, page)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d citations\n", len(cites))
}

func citationsCheckCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Validate citations; exits non-zero when any is invalid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			res := citation.Check(text, strict)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Total citations: %d\nValid citations: %d\n", res.Total, res.Valid)
			report := func(title string, items []string) {
				if len(items) == 0 {
					return
				}
				fmt.Fprintf(w, "\n%s (%d):\n", title, len(items))
				for _, it := range items {
					fmt.Fprintln(w, "  - "+it)
				}
			}
			report("Invalid", res.Invalid)
			report("Missing pages", res.MissingPages)
			report("Warnings", res.Warnings)
			if !res.OK() {
				return fmt.Errorf("%d invalid citations", len(res.Invalid))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat missing page numbers as invalid")
	return cmd
}

func citationsExportCmd() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export the citations of a document as a bibliography",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			cites, _ := citation.Deduplicate(citation.ExtractFromText(text))
			out, err := citation.Export(cites, format)
			if err != nil {
				return err
			}
			if !strings.HasSuffix(out, "\n") {
				out += "\n"
			}
			return emit(cmd, output, out, false)
		},
	}
	cmd.Flags().StringVar(&format, "format", "bibtex", "output format: "+strings.Join(citation.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file")
	return cmd
}
