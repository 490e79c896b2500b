package chart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nicudesk/labsync/internal/store"
)

// staticEmptySentinel marks "no value" in extraction output; it must not
// erase a known static entry.
const staticEmptySentinel = "-"

// Store is the slice of the document store the merger uses.
type Store interface {
	Get(ctx context.Context, path string, out any) error
	Upsert(ctx context.Context, path string, v any) error
}

// Merger applies accepted report values to patient charts. The merge is a
// read-modify-write with no transaction of its own; the pipeline's run
// lock excludes concurrent writers.
type Merger struct {
	store Store
	log   zerolog.Logger
}

func NewMerger(st Store, log zerolog.Logger) *Merger {
	return &Merger{store: st, log: log.With().Str("component", "chart").Logger()}
}

func chartPath(patientID string) string {
	return "charts/" + patientID
}

// Apply merges values at baseDate into the patient's chart, creating the
// chart on first write and persisting the result as one upsert.
func (m *Merger) Apply(ctx context.Context, patientID, baseDate string, values, static map[string]string) error {
	doc := NewDocument()
	if err := m.store.Get(ctx, chartPath(patientID), doc); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load chart: %w", err)
		}
		doc = NewDocument()
	}

	resolved := doc.Merge(baseDate, values, static)
	if resolved != baseDate {
		m.log.Info().
			Str("patient", patientID).
			Str("date", baseDate).
			Str("column", resolved).
			Msg("collision resolved to alternate date column")
	}

	if err := m.store.Upsert(ctx, chartPath(patientID), doc); err != nil {
		return fmt.Errorf("persist chart: %w", err)
	}
	return nil
}

// Merge writes values into the column for baseDate, allocating or reusing a
// suffixed same-day column when the base column holds differing data. It
// returns the resolved date key. Re-applying identical values is a no-op:
// no new column is allocated and no cell changes.
func (d *Document) Merge(baseDate string, values, static map[string]string) string {
	resolved := d.resolveDateKey(baseDate, values)

	if len(values) > 0 {
		d.addDate(resolved)
	}
	for label, value := range values {
		row := d.row(label)
		if row == nil {
			d.Rows = append(d.Rows, Row{
				Label:    label,
				Category: DefaultCategory,
				Data:     map[string]string{},
			})
			row = &d.Rows[len(d.Rows)-1]
		}
		if row.Data == nil {
			row.Data = map[string]string{}
		}
		row.Data[resolved] = value
	}

	if d.Static == nil {
		d.Static = map[string]string{}
	}
	for key, value := range static {
		if value == "" || value == staticEmptySentinel {
			continue
		}
		d.Static[key] = value
	}
	return resolved
}

// resolveDateKey returns baseDate unless that column exists and conflicts
// with the incoming values, in which case it probes "<date> (2)", "(3)", …
// and takes the first candidate that is absent or conflict-free. Suffixes
// are allocated densely from 2, so an existing alternate column is reused
// across reports whenever it does not itself conflict.
func (d *Document) resolveDateKey(baseDate string, values map[string]string) string {
	if !d.hasDate(baseDate) || !d.conflictsAt(baseDate, values) {
		return baseDate
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", baseDate, n)
		if !d.hasDate(candidate) || !d.conflictsAt(candidate, values) {
			return candidate
		}
	}
}

// conflictsAt reports whether any incoming value differs from a non-empty
// existing cell in that date column.
func (d *Document) conflictsAt(dateKey string, values map[string]string) bool {
	for label, value := range values {
		row := d.row(label)
		if row == nil {
			continue
		}
		if existing, ok := row.Data[dateKey]; ok && existing != "" && existing != value {
			return true
		}
	}
	return false
}
