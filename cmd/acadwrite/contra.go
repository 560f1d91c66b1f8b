package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/workflow"
)

func contraCmd() *cobra.Command {
	var (
		collection string
		output     string
		depth      string
		synthesis  bool
		maxSources int
		format     string
		render     bool
	)

	cmd := &cobra.Command{
		Use:   "contra CLAIM",
		Short: "Find evidence for and against a claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := workflow.ParseDepth(depth)
			if err != nil {
				return err
			}
			if format != "markdown" && format != "json" {
				return fmt.Errorf("unsupported format %q (want markdown or json)", format)
			}

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.llm == nil {
				return fmt.Errorf("contra: %w", workflow.ErrLLMRequired)
			}
			coll, err := a.collection(collection)
			if err != nil {
				return err
			}

			gen := workflow.Counterarguments{
				RAG:         a.rag,
				LLM:         a.llm,
				Temperature: a.cfg.LLM.Temperature,
				Log:         a.log,
			}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			report, err := gen.Generate(ctx, args[0], workflow.CounterOptions{
				Collection:        coll,
				Depth:             d,
				Synthesis:         synthesis,
				MaxSourcesPerSide: maxSources,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				b, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				return emit(cmd, output, string(b)+"\n", false)
			}
			return emit(cmd, output, workflow.FormatReport(report), render)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "RAG collection (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this file")
	cmd.Flags().StringVar(&depth, "depth", "standard", "quick, standard or deep")
	cmd.Flags().BoolVar(&synthesis, "synthesis", false, "add an LLM synthesis of both sides")
	cmd.Flags().IntVar(&maxSources, "max-sources", 5, "sources per side before depth scaling")
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown or json")
	cmd.Flags().BoolVar(&render, "preview", false, "render the report for the terminal")
	return cmd
}
