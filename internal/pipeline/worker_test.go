package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/acadwrite/internal/citation"
	"github.com/dgallion1/acadwrite/internal/rag"
	"github.com/dgallion1/acadwrite/internal/workflow"
)

type fakeRAG struct {
	fn func(req rag.QueryRequest) (*rag.QueryResponse, error)
}

func (f fakeRAG) Query(_ context.Context, req rag.QueryRequest) (*rag.QueryResponse, error) {
	return f.fn(req)
}

func answer(text string) fakeRAG {
	return fakeRAG{fn: func(rag.QueryRequest) (*rag.QueryResponse, error) {
		return &rag.QueryResponse{Answer: text}, nil
	}}
}

const twoMarkers = "# Doc\n\n<!-- ACADWRITE: citations -->\nfirst\n<!-- END ACADWRITE -->\n\n<!-- ACADWRITE: citations -->\nsecond\n<!-- END ACADWRITE -->\n"

func newTestWorker(r workflow.RAG) *Worker {
	return NewWorker(r, nil, nil, Defaults{Collection: "thesis", CitationStyle: citation.StyleInline})
}

func TestWorker_ExpandCompleted(t *testing.T) {
	job := NewJob(KindExpand, "doc.md", []byte(twoMarkers))
	newTestWorker(answer("cited")).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (errors %v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Total != 2 || snap.Progress.Succeeded != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if snap.Collection != "thesis" {
		t.Errorf("expected default collection, got %q", snap.Collection)
	}
	text, details, done := job.Result()
	if !done {
		t.Fatal("expected result to be available")
	}
	if strings.Contains(text, "ACADWRITE") || strings.Count(text, "cited") != 2 {
		t.Errorf("unexpected result %q", text)
	}
	if exp, ok := details.([]workflow.ExpandedContent); !ok || len(exp) != 2 {
		t.Errorf("unexpected details %#v", details)
	}
}

func TestWorker_ExpandPartialAndFailed(t *testing.T) {
	partial := fakeRAG{fn: func(req rag.QueryRequest) (*rag.QueryResponse, error) {
		if req.Question == "second" {
			return nil, rag.ErrTimeout
		}
		return &rag.QueryResponse{Answer: "ok"}, nil
	}}
	job := NewJob(KindExpand, "", []byte(twoMarkers))
	newTestWorker(partial).Process(context.Background(), job)
	if got := job.Snapshot(); got.Status != StatusPartial || got.Progress.Failed != 1 {
		t.Errorf("expected partial with one failure, got %+v", got)
	}

	failing := fakeRAG{fn: func(rag.QueryRequest) (*rag.QueryResponse, error) { return nil, errors.New("down") }}
	job = NewJob(KindExpand, "", []byte(twoMarkers))
	newTestWorker(failing).Process(context.Background(), job)
	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected failed, got %q", snap.Status)
	}
	if len(snap.Progress.Errors) != 2 || !strings.Contains(snap.Progress.Errors[0], "down") {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestWorker_NoMarkersCompletes(t *testing.T) {
	job := NewJob(KindExpand, "", []byte("# Nothing to do\n"))
	newTestWorker(answer("x")).Process(context.Background(), job)
	if job.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed, got %q", job.Snapshot().Status)
	}
	if text, _, _ := job.Result(); text != "# Nothing to do\n" {
		t.Errorf("expected unchanged text, got %q", text)
	}
}

func TestWorker_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{"empty", []byte("  \n"), "document is empty"},
		{"binary", []byte{0xff, 0xfe, 'a'}, "not valid UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob(KindExpand, "", tt.input)
			newTestWorker(answer("x")).Process(context.Background(), job)
			snap := job.Snapshot()
			if snap.Status != StatusFailed || snap.Phase != "parsing" {
				t.Errorf("expected failed in parsing, got %q/%q", snap.Status, snap.Phase)
			}
			if len(snap.Progress.Errors) == 0 || !strings.Contains(snap.Progress.Errors[0], tt.want) {
				t.Errorf("unexpected errors %v", snap.Progress.Errors)
			}
		})
	}
}

func TestWorker_MissingCollection(t *testing.T) {
	job := NewJob(KindExpand, "", []byte(twoMarkers))
	NewWorker(answer("x"), nil, nil, Defaults{}).Process(context.Background(), job)
	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Progress.Errors[0] != "collection is required" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestWorker_Process(t *testing.T) {
	r := fakeRAG{fn: func(rag.QueryRequest) (*rag.QueryResponse, error) {
		return &rag.QueryResponse{Sources: []rag.Source{{
			DocumentMetadata: rag.DocumentMetadata{AuthorSurnames: []string{"Smith"}, PublicationDate: "2020"},
		}}}, nil
	}}
	job := NewJob(KindProcess, "", []byte("# H\n\nSales rose 45% last year.\n\nPlain text.\n"))
	job.Operations = []string{"find_citations"}
	newTestWorker(r).Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%v)", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.Total != 2 || snap.Progress.Processed != 2 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	text, details, _ := job.Result()
	if !strings.Contains(text, "Sales rose 45% last year. [Smith, 2020]") {
		t.Errorf("unexpected text %q", text)
	}
	if doc, ok := details.(*workflow.ProcessedDocument); !ok || doc.CitationsAdded != 1 {
		t.Errorf("unexpected details %#v", details)
	}
}

func TestWorker_ProcessRejectsBadOperations(t *testing.T) {
	for _, ops := range [][]string{nil, {"rewrite"}, {"improve_clarity"}} {
		job := NewJob(KindProcess, "", []byte("Some text."))
		job.Operations = ops
		newTestWorker(answer("x")).Process(context.Background(), job)
		if got := job.Snapshot().Status; got != StatusFailed {
			t.Errorf("ops %v: expected failed, got %q", ops, got)
		}
	}
}

func TestOrchestrator_RunsJobs(t *testing.T) {
	o := NewOrchestrator(Options{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Hour}, newTestWorker(answer("cited")), nil)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(KindExpand, "", []byte(twoMarkers))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Terminal() {
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish, status %q", job.Snapshot().Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job.Snapshot().Status != StatusCompleted {
		t.Errorf("expected completed, got %q", job.Snapshot().Status)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	o := NewOrchestrator(Options{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Hour}, newTestWorker(answer("x")), nil)

	first := NewJob(KindExpand, "", []byte("a"))
	if err := o.Submit(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := NewJob(KindExpand, "", []byte("b"))
	err := o.Submit(second)
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected rejected job to be failed, got %q", second.Snapshot().Status)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}
