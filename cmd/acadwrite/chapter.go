package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/parser"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

func chapterCmd() *cobra.Command {
	var (
		collection    string
		outputDir     string
		singleFile    bool
		stopOnError   bool
		maxWords      int
		citationStyle string
	)

	cmd := &cobra.Command{
		Use:   "chapter OUTLINE",
		Short: "Generate a chapter from an outline",
		Long: `Generate every section of OUTLINE (.md, .yaml or .html) and write one file
per section, or a single chapter file, plus bibliography.bib and metadata.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parser.ForFile(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open outline: %w", err)
			}
			outline, err := p.Parse(f, filepath.Base(args[0]))
			f.Close()
			if err != nil {
				return err
			}
			if outline.Len() == 0 {
				return fmt.Errorf("outline %s has no sections", args[0])
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
			if outputDir == "" {
				outputDir = workflow.Slug(outline.Title)
			}

			stderr := cmd.ErrOrStderr()
			proc := &workflow.ChapterProcessor{
				Generator: &workflow.SectionGenerator{RAG: a.rag, Collection: coll, Log: a.log},
				Log:       a.log,
				Progress: func(done, total int, heading string) {
					fmt.Fprintf(stderr, "[%d/%d] %s\n", done, total, heading)
				},
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			ch, err := proc.Process(ctx, outline, workflow.ChapterOptions{
				MaxWords:    maxWords,
				StopOnError: stopOnError,
			})
			if err != nil {
				return err
			}

			saved, err := workflow.SaveChapter(outputDir, ch, style, singleFile)
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(saved))
			for k := range saved {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), saved[k])
			}
			fmt.Fprintf(stderr, "Sections: %d | Words: %d | Citations: %d (%d unique)\n",
				ch.Metadata.TotalSections, ch.Metadata.TotalWordCount, ch.Metadata.TotalCitations, ch.Metadata.UniqueCitations)
			return nil
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "RAG collection (default from config)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory (default: slug of the chapter title)")
	cmd.Flags().BoolVar(&singleFile, "single-file", false, "write one chapter file instead of one per section")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "abort on the first failed section")
	cmd.Flags().IntVar(&maxWords, "max-words", 0, "maximum words per section (0 for no limit)")
	cmd.Flags().StringVar(&citationStyle, "citation-style", "", "inline or footnote (default from config)")
	return cmd
}
