package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nicudesk/labsync/internal/docsource"
	"github.com/nicudesk/labsync/internal/extract"
	"github.com/nicudesk/labsync/internal/match"
	"github.com/nicudesk/labsync/internal/registry"
)

// threadState tracks how many queued documents a thread still owes before
// it can be marked processed.
type threadState struct {
	id        string
	remaining int
	failed    bool
}

// queuedDoc is one deduplicated attachment awaiting extraction, together
// with the match decision from the pre-extraction passes.
type queuedDoc struct {
	thread   *threadState
	doc      extract.Document
	preMatch match.Result
	// matched means a subject or filename pass cleared the short-circuit
	// bar, so the content-name pass is skipped.
	matched bool
}

// Run executes one orchestration: acquire the lock, scan the mailbox,
// queue deduplicated documents, extract in sub-batches, and merge or hand
// off each report. Lock contention is a silent no-op. The wall-clock
// budget defers remaining work to the next scheduled invocation.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	release, ok, lockErr := p.store.AcquireLock(ctx, lockName, p.cfg.LockTTL)
	if lockErr != nil {
		return &PhaseError{Phase: "acquire run lock", Err: lockErr}
	}
	if !ok {
		p.log.Debug().Msg("another run holds the lock, skipping")
		return nil
	}
	defer func() {
		if rerr := release(); rerr != nil {
			p.log.Error().Err(rerr).Msg("release run lock")
		}
	}()

	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	deadline := p.now().Add(p.cfg.RunBudget)

	patients, err := registry.Load(ctx, p.store, func(raw []byte, v any) error {
		return json.Unmarshal(raw, v)
	})
	if err != nil {
		return &PhaseError{Phase: "load patient registry", Err: err}
	}

	instructions := p.instructionOverride(ctx)

	threads, err := p.source.QueryThreads(ctx, p.cfg.Query, p.cfg.MaxThreads)
	if err != nil {
		return &PhaseError{Phase: "query threads", Err: err}
	}
	p.log.Info().Int("threads", len(threads)).Msg("scan complete")

	queue := p.scanAndQueue(ctx, threads, patients, deadline)
	if len(queue) == 0 {
		return nil
	}
	p.log.Info().Int("documents", len(queue)).Msg("documents queued")

	for start := 0; start < len(queue); start += p.cfg.SubBatchSize {
		if start > 0 {
			p.pauser.Pause(ctx)
		}
		if p.now().After(deadline) {
			p.log.Warn().
				Int("deferred", len(queue)-start).
				Msg("run budget exhausted, deferring remaining documents")
			break
		}
		end := start + p.cfg.SubBatchSize
		if end > len(queue) {
			end = len(queue)
		}
		p.processSubBatch(ctx, queue[start:end], patients, instructions)
	}
	return nil
}

// scanAndQueue flattens threads into deduplicated queued documents,
// fetching attachment bodies and running the subject and filename match
// passes. Duplicate attachments across a reply thread (same name and size)
// are queued once.
func (p *Pipeline) scanAndQueue(ctx context.Context, threads []docsource.Thread,
	patients []registry.Patient, deadline time.Time) []*queuedDoc {

	ctx, span := p.tracer.Start(ctx, "pipeline.scan")
	defer span.End()

	var queue []*queuedDoc
	seen := map[string]bool{}

	for ti := range threads {
		if p.now().After(deadline) {
			p.log.Warn().Msg("run budget exhausted during scan, deferring remaining threads")
			break
		}
		thread := &threads[ti]
		state := &threadState{id: thread.ID}

		for _, msg := range thread.Messages {
			for _, att := range msg.Attachments {
				sig := fmt.Sprintf("%s|%d", strings.ToLower(att.Name), att.Size)
				if seen[sig] {
					continue
				}
				seen[sig] = true

				data, err := p.source.FetchAttachment(ctx, att)
				if err != nil {
					p.log.Error().Err(err).Str("attachment", att.Name).Msg("fetch failed")
					state.failed = true
					continue
				}

				qd := &queuedDoc{
					thread: state,
					doc: extract.Document{
						Filename:  att.Name,
						MediaType: att.MimeType,
						Data:      data,
					},
				}
				qd.preMatch, qd.matched = p.preExtractionMatch(thread.Subject, att.Name, patients)
				state.remaining++
				queue = append(queue, qd)
			}
		}
	}
	return queue
}

// preExtractionMatch runs the subject pass then the filename pass; the
// first pass scoring above the short-circuit bar wins outright, otherwise
// the better of the two is kept for comparison with the content-name pass.
func (p *Pipeline) preExtractionMatch(subject, filename string, patients []registry.Patient) (match.Result, bool) {
	res := p.matcher.FindBestMatch(subject, patients, match.AutoSaveThreshold)
	if res.Score > match.AutoSaveThreshold {
		return res, true
	}
	fres := p.matcher.FindBestMatch(filename, patients, match.AutoSaveThreshold)
	if fres.Score > match.AutoSaveThreshold {
		return fres, true
	}
	if fres.Score > res.Score {
		res = fres
	}
	return res, false
}

// instructionOverride reads the optional extraction-instruction document;
// any failure means no override.
func (p *Pipeline) instructionOverride(ctx context.Context) string {
	var doc struct {
		Instructions string `json:"instructions"`
	}
	if err := p.store.Get(ctx, "settings/extraction", &doc); err != nil {
		return ""
	}
	return doc.Instructions
}
