package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nicudesk/labsync/internal/extract"
	"github.com/nicudesk/labsync/internal/match"
	"github.com/nicudesk/labsync/internal/registry"
	"github.com/nicudesk/labsync/internal/sanitize"
)

// ReviewItem is one report awaiting human confirmation. It is never
// applied to a chart by this system.
type ReviewItem struct {
	ID               string            `json:"id"`
	PatientNameHint  string            `json:"patientNameHint"`
	ReceivedAt       time.Time         `json:"receivedAt"`
	ReportDate       string            `json:"reportDate"`
	Values           map[string]string `json:"values"`
	StaticUpdates    map[string]string `json:"staticUpdates"`
	SuggestedMatchID string            `json:"suggestedMatchId,omitempty"`
	MatchScore       float64           `json:"matchScore"`
	Status           string            `json:"status"`
	Reason           string            `json:"reason"`
}

// Notification is a best-effort event for the ward dashboard.
type Notification struct {
	PatientName string       `json:"patientName"`
	Type        match.Action `json:"type"`
	Details     string       `json:"details"`
	Timestamp   time.Time    `json:"timestamp"`
}

// processSubBatch extracts one sub-batch and post-processes each report.
// An extraction failure leaves every thread in the sub-batch unlabeled for
// the next run; a post-processing panic degrades the whole sub-batch to a
// review hand-off so no data is lost and later sub-batches still run.
func (p *Pipeline) processSubBatch(ctx context.Context, batch []*queuedDoc,
	patients []registry.Patient, instructions string) {

	ctx, span := p.tracer.Start(ctx, "pipeline.subbatch")
	defer span.End()

	docs := make([]extract.Document, len(batch))
	for i, qd := range batch {
		docs[i] = qd.doc
	}

	reports, err := p.extractor.ExtractBatch(ctx, docs, instructions)
	if err != nil {
		p.log.Error().Err(err).Int("docs", len(batch)).
			Msg("extraction failed, sub-batch deferred to next run")
		for _, qd := range batch {
			qd.thread.failed = true
		}
		return
	}

	p.postProcess(ctx, batch, reports, patients)

	for _, qd := range batch {
		qd.thread.remaining--
		if qd.thread.remaining == 0 && !qd.thread.failed {
			if err := p.source.AddLabel(ctx, qd.thread.id, p.cfg.ProcessedLabel); err != nil {
				p.log.Error().Err(err).Str("thread", qd.thread.id).Msg("label failed")
			}
		}
	}
}

func (p *Pipeline) postProcess(ctx context.Context, batch []*queuedDoc,
	reports []extract.Report, patients []registry.Patient) {

	handled := 0
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("post-processing panic: %v", r)
			p.log.Error().Err(err).Msg("sub-batch degraded to review")
			for i := handled; i < len(batch); i++ {
				p.fallbackToReview(ctx, reports[i], err)
			}
		}
	}()

	for i, qd := range batch {
		if err := p.processDocument(ctx, qd, reports[i], patients); err != nil {
			p.log.Error().Err(err).Str("document", qd.doc.Filename).
				Msg("document degraded to review")
			p.fallbackToReview(ctx, reports[i], err)
		}
		handled++
	}
}

// processDocument sanitizes, classifies, finishes the match, and either
// merges into the chart or hands the report to the review queue.
func (p *Pipeline) processDocument(ctx context.Context, qd *queuedDoc,
	rep extract.Report, patients []registry.Patient) error {

	values, static := p.sanitizer.Sanitize(rep.Values)
	for k, v := range rep.StaticUpdates {
		if _, ok := static[k]; !ok && v != "" {
			static[k] = v
		}
	}
	part := sanitize.Classify(p.tables, values)

	res := qd.preMatch
	if !qd.matched && rep.PatientNameHint != "" {
		hres := p.matcher.FindBestMatch(rep.PatientNameHint, patients, match.HintFloor)
		if hres.Score > res.Score {
			res = hres
		}
	}

	if rep.ForceInbox || res.Action != match.ActionAutoSave {
		reason := "patient match below threshold"
		if rep.ForceInbox {
			reason = "extraction flagged report for review"
		}
		p.enqueueReview(ctx, rep, values, static, res, reason)
		p.notify(ctx, rep.PatientNameHint, match.ActionInbox, qd.doc.Filename)
		return nil
	}

	date := baseDate(rep, p.now())
	if len(part.General) > 0 || len(static) > 0 {
		if err := p.merger.Apply(ctx, res.Patient.ID, date, part.General, static); err != nil {
			return fmt.Errorf("merge general panel: %w", err)
		}
	}
	if len(part.Culture) > 0 {
		if err := p.merger.Apply(ctx, res.Patient.ID, date, part.Culture, nil); err != nil {
			return fmt.Errorf("merge culture results: %w", err)
		}
	}
	if len(part.Novel) > 0 {
		novel := ReviewItem{
			Values:     part.Novel,
			MatchScore: res.Score,
		}
		p.writeReview(ctx, rep, novel, res, "unfamiliar parameters need confirmation")
	}
	p.notify(ctx, res.Patient.Name, match.ActionAutoSave, qd.doc.Filename)
	return nil
}

// fallbackToReview hands a document's entire sanitized payload to the
// review queue after a processing failure.
func (p *Pipeline) fallbackToReview(ctx context.Context, rep extract.Report, cause error) {
	values, static := p.sanitizer.Sanitize(rep.Values)
	for k, v := range rep.StaticUpdates {
		if _, ok := static[k]; !ok && v != "" {
			static[k] = v
		}
	}
	p.enqueueReview(ctx, rep, values, static, match.Result{Action: match.ActionInbox},
		fmt.Sprintf("processing failed: %v", cause))
}

func (p *Pipeline) enqueueReview(ctx context.Context, rep extract.Report,
	values, static map[string]string, res match.Result, reason string) {

	item := ReviewItem{
		Values:        values,
		StaticUpdates: static,
		MatchScore:    res.Score,
	}
	p.writeReview(ctx, rep, item, res, reason)
}

func (p *Pipeline) writeReview(ctx context.Context, rep extract.Report,
	item ReviewItem, res match.Result, reason string) {

	item.ID = uuid.NewString()
	item.PatientNameHint = rep.PatientNameHint
	item.ReceivedAt = p.now()
	item.ReportDate = baseDate(rep, p.now())
	item.Status = "Pending"
	item.Reason = reason
	if res.Patient != nil {
		item.SuggestedMatchID = res.Patient.ID
	}
	if item.Values == nil {
		item.Values = map[string]string{}
	}
	if item.StaticUpdates == nil {
		item.StaticUpdates = map[string]string{}
	}

	if err := p.store.Upsert(ctx, "review/"+item.ID, item); err != nil {
		p.log.Error().Err(err).Str("document", rep.Filename).Msg("review enqueue failed")
	}
}

// notify writes a best-effort notification; failures are swallowed.
func (p *Pipeline) notify(ctx context.Context, patientName string, action match.Action, details string) {
	n := Notification{
		PatientName: patientName,
		Type:        action,
		Details:     details,
		Timestamp:   p.now(),
	}
	if err := p.store.Upsert(ctx, "notifications/"+uuid.NewString(), n); err != nil {
		p.log.Warn().Err(err).Msg("notification dropped")
	}
}

// baseDate picks the chart column date for a report: collection date,
// then report date, then today.
func baseDate(rep extract.Report, now time.Time) string {
	if rep.CollectionDate != "" {
		return rep.CollectionDate
	}
	if rep.ReportDate != "" {
		return rep.ReportDate
	}
	return now.Format("2006-01-02")
}
