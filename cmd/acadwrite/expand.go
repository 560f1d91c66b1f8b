package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/marker"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

func expandCmd() *cobra.Command {
	var (
		collection    string
		output        string
		dryRun        bool
		strict        bool
		concurrency   int
		citationStyle string
		render        bool
	)

	cmd := &cobra.Command{
		Use:   "expand FILE",
		Short: "Resolve ACADWRITE markers in a markdown draft",
		Long: `Resolve every <!-- ACADWRITE: op --> marker in FILE and print the rewritten
document. Operations: expand, evidence, citations, clarity, contradict.
Failed markers keep their original text. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if dryRun {
				markers, warnings := marker.ParseWithOptions(text, marker.Options{Strict: strict})
				printMarkers(cmd.OutOrStdout(), args[0], markers, warnings)
				return nil
			}

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			coll, err := a.collection(collection)
			if err != nil {
				return err
			}
			if citationStyle == "" {
				citationStyle = a.cfg.Writing.CitationStyle
			}
			style, err := citation.ParseStyle(citationStyle)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("strict") {
				strict = a.cfg.Writing.StrictMarkers
			}
			if concurrency <= 0 {
				concurrency = a.cfg.Writing.MarkerConcurrency
			}

			stderr := cmd.ErrOrStderr()
			e := &workflow.Expander{
				RAG:           a.rag,
				LLM:           a.completer(),
				Log:           a.log,
				Collection:    coll,
				ContextLines:  a.cfg.Writing.ContextLines,
				Concurrency:   concurrency,
				Strict:        strict,
				CitationStyle: style,
				Temperature:   a.cfg.LLM.Temperature,
				Progress: func(done, total int, ec workflow.ExpandedContent) {
					status := "ok"
					if !ec.Success {
						status = "failed: " + ec.Error
					}
					fmt.Fprintf(stderr, "[%d/%d] %s (line %d) %s\n", done, total, ec.Marker.Operation, ec.Marker.StartLine+1, status)
				},
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			res, err := e.ExpandText(ctx, text)
			if err != nil {
				return err
			}

			total := len(res.Expansions)
			fmt.Fprintf(stderr, "Expanded %d of %d markers\n", res.Succeeded(), total)
			if err := emit(cmd, output, res.Text, render); err != nil {
				return err
			}
			if total > 0 && res.Succeeded() == 0 {
				return fmt.Errorf("all %d markers failed", total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "RAG collection (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list markers without calling any service")
	cmd.Flags().BoolVar(&strict, "strict", false, "warn about unclosed and stray directives")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "markers resolved at once (default from config)")
	cmd.Flags().StringVar(&citationStyle, "citation-style", "", "inline or footnote (default from config)")
	cmd.Flags().BoolVar(&render, "preview", false, "render the result for the terminal")
	return cmd
}

func printMarkers(w io.Writer, name string, markers []marker.Marker, warnings []marker.Warning) {
	fmt.Fprintf(w, "Found %d markers in %s\n\n", len(markers), name)
	if len(markers) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "LINES\tOPERATION\tHEADING\tPARAMS")
		for _, m := range markers {
			op := string(m.Operation)
			if m.Remapped() {
				op += " (from " + m.RawOperation + ")"
			}
			var params []string
			for _, p := range m.Params {
				params = append(params, p.Key+"="+p.Value)
			}
			fmt.Fprintf(tw, "%d-%d\t%s\t%s\t%s\n", m.StartLine+1, m.EndLine+1, op, m.Heading, strings.Join(params, " "))
		}
		tw.Flush()
	}
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
