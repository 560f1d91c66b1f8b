package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

func generateCmd() *cobra.Command {
	var (
		collection    string
		output        string
		sectionCtx    string
		maxWords      int
		maxSources    int
		citationStyle string
		render        bool
	)

	cmd := &cobra.Command{
		Use:   "generate HEADING",
		Short: "Generate one cited section for a heading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			gen := &workflow.SectionGenerator{RAG: a.rag, Collection: coll, Log: a.log}
			ctx, cancel := signalContext(cmd)
			defer cancel()
			section, err := gen.Generate(ctx, workflow.SectionRequest{
				Heading:    args[0],
				Context:    sectionCtx,
				MaxWords:   maxWords,
				MaxSources: maxSources,
			})
			if err != nil {
				return err
			}

			text := section.Markdown(style)
			if style == citation.StyleInline && len(section.Citations) > 0 {
				text += "\n## References\n\n" + citation.Bibliography(section.Citations) + "\n"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Word count: %d | Citations: %d\n", section.WordCount(), len(section.Citations))
			return emit(cmd, output, text, render)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "RAG collection (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the section to this file")
	cmd.Flags().StringVar(&sectionCtx, "context", "", "context from the previous section")
	cmd.Flags().IntVar(&maxWords, "max-words", 1000, "maximum section length in words")
	cmd.Flags().IntVar(&maxSources, "max-sources", 0, "maximum number of sources (0 lets the service decide)")
	cmd.Flags().StringVar(&citationStyle, "citation-style", "", "inline or footnote (default from config)")
	cmd.Flags().BoolVar(&render, "preview", false, "render the section for the terminal")
	return cmd
}
