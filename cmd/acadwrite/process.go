package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/acadwrite/internal/chunker"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

func processCmd() *cobra.Command {
	var (
		collection  string
		output      string
		operations  []string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "process FILE",
		Short: "Run document-wide operations over every paragraph",
		Long: `Split FILE into chunks and apply each operation in turn:
find_citations, add_evidence, improve_clarity, find_contradictions.
The last two need an LLM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := make([]workflow.DocOperation, 0, len(operations))
			for _, name := range operations {
				op, err := workflow.ParseDocOperation(name)
				if err != nil {
					return err
				}
				ops = append(ops, op)
			}

			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
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
			if concurrency <= 0 {
				concurrency = a.cfg.Writing.MarkerConcurrency
			}

			stderr := cmd.ErrOrStderr()
			p := &workflow.Processor{
				RAG:        a.rag,
				LLM:        a.completer(),
				Log:        a.log,
				Collection: coll,
				Chunking: chunker.Config{
					TargetTokens: a.cfg.Writing.ChunkTargetTokens,
					MaxTokens:    a.cfg.Writing.ChunkMaxTokens,
				},
				Concurrency: concurrency,
				Temperature: a.cfg.LLM.Temperature,
				Progress: func(done, total int, pc workflow.ProcessedChunk) {
					fmt.Fprintf(stderr, "\r[%s] chunk %d/%d", pc.Operation, done, total)
					if done == total {
						fmt.Fprintln(stderr)
					}
				},
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()
			doc, err := p.Process(ctx, text, ops...)
			if err != nil {
				return err
			}

			fmt.Fprintf(stderr, "Chunks processed: %d (failed: %d)\n", doc.ChunksProcessed, doc.ChunksFailed)
			fmt.Fprintf(stderr, "Citations added: %d, evidence added: %d, improvements: %d, contradictions: %d\n",
				doc.CitationsAdded, doc.EvidenceAdded, doc.Improvements, doc.ContradictionsFound)
			return emit(cmd, output, doc.Text, false)
		},
	}

	cmd.Flags().StringVarP(&collection, "collection", "c", "", "RAG collection (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to this file")
	cmd.Flags().StringSliceVar(&operations, "operations", nil, "comma-separated operations to apply in order")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "chunks processed at once (default from config)")
	_ = cmd.MarkFlagRequired("operations")
	return cmd
}
