package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/acadwrite/internal/chunker"
	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/marker"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

// Defaults fill in job settings the submitter left empty.
type Defaults struct {
	Collection    string
	CitationStyle citation.Style
	ContextLines  int
	Concurrency   int
	Strict        bool
	Temperature   float64
	Chunking      chunker.Config
}

// Worker runs expand and process jobs.
type Worker struct {
	rag      workflow.RAG
	llm      workflow.Completer
	log      *slog.Logger
	defaults Defaults
}

// NewWorker returns a worker. llm may be nil; jobs that need it then fail
// per marker or, for process jobs, up front.
func NewWorker(rag workflow.RAG, llm workflow.Completer, log *slog.Logger, defaults Defaults) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{rag: rag, llm: llm, log: log, defaults: defaults}
}

// Process runs a job to a terminal status.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", string(job.Kind))

	job.SetStatus(StatusParsing, "parsing")
	input := job.Input()
	if err := validateInput(input); err != nil {
		log.Error("invalid input", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.ensureCollection(w.defaults.Collection) == "" {
		job.AddError("collection is required")
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	var err error
	switch job.Kind {
	case KindExpand:
		err = w.expand(ctx, log, job, string(input))
	case KindProcess:
		err = w.process(ctx, log, job, string(input))
	default:
		err = fmt.Errorf("unknown job kind %q", job.Kind)
	}
	if err != nil {
		log.Error("job failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, job.Snapshot().Phase)
		return
	}

	succeeded, failed := job.Counts()
	switch {
	case failed == 0:
		job.SetStatus(StatusCompleted, "done")
	case succeeded > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "done")
	}
	log.Info("job finished", "succeeded", succeeded, "failed", failed)
}

func validateInput(input []byte) error {
	if len(strings.TrimSpace(string(input))) == 0 {
		return fmt.Errorf("document is empty")
	}
	if !utf8.Valid(input) {
		return fmt.Errorf("document is not valid UTF-8")
	}
	return nil
}

func (w *Worker) expand(ctx context.Context, log *slog.Logger, job *Job, text string) error {
	style := w.defaults.CitationStyle
	if job.CitationStyle != "" {
		s, err := citation.ParseStyle(job.CitationStyle)
		if err != nil {
			return err
		}
		style = s
	}

	e := &workflow.Expander{
		RAG:           w.rag,
		LLM:           w.llm,
		Log:           log,
		Collection:    job.collection(),
		ContextLines:  w.defaults.ContextLines,
		Concurrency:   w.defaults.Concurrency,
		Strict:        w.defaults.Strict,
		CitationStyle: style,
		Temperature:   w.defaults.Temperature,
		Progress: func(_, _ int, ec workflow.ExpandedContent) {
			msg := ""
			if !ec.Success {
				msg = fmt.Sprintf("line %d (%s): %s", ec.Marker.StartLine+1, ec.Marker.Operation, ec.Error)
			}
			job.RecordUnit(ec.Success, msg)
		},
	}

	job.AddTotal(len(marker.Parse(text)))
	job.SetStatus(StatusExpanding, "expanding")
	res, err := e.ExpandText(ctx, text)
	if err != nil {
		return fmt.Errorf("expand: %w", err)
	}
	for _, warn := range res.Warnings {
		job.AddError(warn.String())
	}

	job.SetStatus(StatusAssembling, "assembling")
	job.SetResult(res.Text, res.Expansions)
	return nil
}

func (w *Worker) process(ctx context.Context, log *slog.Logger, job *Job, text string) error {
	if len(job.Operations) == 0 {
		return fmt.Errorf("at least one operation is required")
	}
	ops := make([]workflow.DocOperation, 0, len(job.Operations))
	for _, name := range job.Operations {
		op, err := workflow.ParseDocOperation(name)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	p := &workflow.Processor{
		RAG:         w.rag,
		LLM:         w.llm,
		Log:         log,
		Collection:  job.collection(),
		Chunking:    w.defaults.Chunking,
		Concurrency: w.defaults.Concurrency,
		Temperature: w.defaults.Temperature,
		Progress: func(done, total int, pc workflow.ProcessedChunk) {
			if done == 1 {
				job.AddTotal(total)
			}
			job.RecordUnit(len(pc.Errors) == 0, strings.Join(pc.Errors, "; "))
		},
	}

	job.SetStatus(StatusExpanding, "processing")
	doc, err := p.Process(ctx, text, ops...)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}

	job.SetStatus(StatusAssembling, "assembling")
	job.SetResult(doc.Text, doc)
	return nil
}
