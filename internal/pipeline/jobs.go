package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobKind selects what a worker does with the submitted markdown.
type JobKind string

const (
	KindExpand  JobKind = "expand"
	KindProcess JobKind = "process"
)

// JobStatus represents the state of a job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusExpanding  JobStatus = "expanding"
	StatusAssembling JobStatus = "assembling"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions will happen.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Job tracks one submitted document.
type Job struct {
	mu sync.Mutex

	ID     string    `json:"job_id"`
	Kind   JobKind   `json:"kind"`
	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Filename      string   `json:"filename"`
	Collection    string   `json:"collection"`
	CitationStyle string   `json:"citation_style,omitempty"`
	Operations    []string `json:"operations,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	input   []byte
	result  string
	details any
	errors  []string
}

// Progress counts units: markers for expand jobs, chunks for process jobs.
type Progress struct {
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors"`
}

// NewJob returns a queued job with a fresh ID.
func NewJob(kind JobKind, filename string, input []byte) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Status:      StatusQueued,
		Phase:       "queued",
		Filename:    filename,
		ContentHash: ContentHashHex(input),
		CreatedAt:   now,
		UpdatedAt:   now,
		input:       input,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs not updated within the TTL and returns how many
// were removed.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddTotal grows the unit count; process jobs learn it one pass at a time.
func (j *Job) AddTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Total += n
	j.UpdatedAt = time.Now()
}

// RecordUnit counts one finished unit. A non-empty errMsg marks it failed
// and is kept in the error list.
func (j *Job) RecordUnit(ok bool, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Processed++
	if ok {
		j.Progress.Succeeded++
	} else {
		j.Progress.Failed++
	}
	if errMsg != "" {
		j.errors = append(j.errors, errMsg)
		j.Progress.Errors = j.errors
	}
	j.UpdatedAt = time.Now()
}

// ensureCollection sets the collection to def when none was given and
// returns the result.
func (j *Job) ensureCollection(def string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Collection == "" {
		j.Collection = def
	}
	return j.Collection
}

func (j *Job) collection() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Collection
}

// Input returns the submitted markdown.
func (j *Job) Input() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.input
}

// SetResult stores the rewritten markdown and the per-unit details and
// releases the input.
func (j *Job) SetResult(text string, details any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = text
	j.details = details
	j.input = nil
	j.UpdatedAt = time.Now()
}

// Result returns the output once the job is terminal.
func (j *Job) Result() (text string, details any, done bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.details, j.Status.Terminal()
}

// Counts returns succeeded and failed unit counts.
func (j *Job) Counts() (succeeded, failed int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Progress.Succeeded, j.Progress.Failed
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Kind        JobKind   `json:"kind"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename,omitempty"`
	Collection  string    `json:"collection"`
	Operations  []string  `json:"operations,omitempty"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Collection:  j.Collection,
		Operations:  append([]string(nil), j.Operations...),
		Progress:    p,
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
