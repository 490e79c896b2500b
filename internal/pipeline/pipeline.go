package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nicudesk/labsync/internal/docsource"
	"github.com/nicudesk/labsync/internal/extract"
	"github.com/nicudesk/labsync/internal/match"
	"github.com/nicudesk/labsync/internal/sanitize"
)

// lockName is the mutual-exclusion lease shared by all invocations.
const lockName = "pipeline"

// PhaseError marks which orchestration phase a run failed in.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Config is the orchestrator's slice of the runtime configuration.
type Config struct {
	// Query selects unprocessed report threads; the processed label is
	// excluded in the query itself (e.g. "has:attachment -label:X").
	Query string
	// ProcessedLabel marks a thread as fully handled.
	ProcessedLabel string
	// MaxThreads caps document retrieval per run.
	MaxThreads int
	// SubBatchSize caps documents per extraction call.
	SubBatchSize int
	// RunBudget is the wall-clock budget checked before each unit of
	// top-level work.
	RunBudget time.Duration
	// LockTTL bounds how long a crashed run can hold the lease.
	LockTTL time.Duration
}

// Extractor turns a sub-batch of documents into reports.
type Extractor interface {
	ExtractBatch(ctx context.Context, docs []extract.Document, extraInstructions string) ([]extract.Report, error)
}

// Merger applies accepted values to a patient chart.
type Merger interface {
	Apply(ctx context.Context, patientID, baseDate string, values, static map[string]string) error
}

// DocStore is the document-store surface the orchestrator needs: registry
// and instruction reads, review/notification writes, and the run lock.
type DocStore interface {
	Get(ctx context.Context, path string, out any) error
	Upsert(ctx context.Context, path string, v any) error
	List(ctx context.Context, prefix string, each func(path string, raw []byte) error) error
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (release func() error, ok bool, err error)
}

// Pauser is the rate-courtesy delay between extraction sub-batches,
// injectable so tests run without real time passing.
type Pauser interface {
	Pause(ctx context.Context)
}

// SleepPauser waits a fixed duration or until the context ends.
type SleepPauser struct {
	D time.Duration
}

func (p SleepPauser) Pause(ctx context.Context) {
	t := time.NewTimer(p.D)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Pipeline drives one end-to-end ingestion run.
type Pipeline struct {
	cfg       Config
	source    docsource.Source
	extractor Extractor
	matcher   *match.Matcher
	sanitizer *sanitize.Sanitizer
	tables    sanitize.Tables
	merger    Merger
	store     DocStore
	pauser    Pauser
	now       func() time.Time
	log       zerolog.Logger
	tracer    trace.Tracer
}

// Option overrides a pipeline collaborator; used by tests.
type Option func(*Pipeline)

func WithPauser(p Pauser) Option {
	return func(pl *Pipeline) { pl.pauser = p }
}

func WithClock(now func() time.Time) Option {
	return func(pl *Pipeline) { pl.now = now }
}

func New(cfg Config, source docsource.Source, extractor Extractor, merger Merger,
	st DocStore, tables sanitize.Tables, log zerolog.Logger, opts ...Option) *Pipeline {

	p := &Pipeline{
		cfg:       cfg,
		source:    source,
		extractor: extractor,
		matcher:   match.New(log),
		sanitizer: sanitize.NewSanitizer(tables),
		tables:    tables,
		merger:    merger,
		store:     st,
		pauser:    SleepPauser{D: 2 * time.Second},
		now:       time.Now,
		log:       log.With().Str("component", "pipeline").Logger(),
		tracer:    otel.Tracer("labsync/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
