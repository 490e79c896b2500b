package match

import (
	"github.com/rs/zerolog"

	"github.com/nicudesk/labsync/internal/registry"
)

// Action classifies how a match decision should be applied.
type Action string

const (
	// ActionAutoSave means the match cleared the acceptance threshold and
	// the report may be written to the patient's chart without review.
	ActionAutoSave Action = "AUTO_SAVE"
	// ActionInbox routes the report to the manual review queue.
	ActionInbox Action = "INBOX"
)

const (
	// AutoSaveThreshold is the minimum score for an automatic save.
	AutoSaveThreshold = 75
	// HintFloor is the lowered keep floor for the extracted in-document
	// name pass, whose hints are noisier than subjects or filenames.
	HintFloor = 50
	// nearMissFloor is diagnostic only; see the debug log in FindBestMatch.
	nearMissFloor = 50
)

// Result is a classified match decision. Action is ActionAutoSave iff
// Patient is non-nil and Score >= AutoSaveThreshold.
type Result struct {
	Action  Action
	Patient *registry.Patient
	Score   float64
}

// Matcher scores a query name against registry candidates.
type Matcher struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Matcher {
	return &Matcher{log: log.With().Str("component", "match").Logger()}
}

// FindBestMatch normalizes the query name and every candidate name,
// discards candidates whose birth ordinal differs from the query's
// (ordinals must be equal, or absent on both sides), and keeps the
// highest-scoring survivor, first seen winning ties. Candidates scoring
// below minScore are not suggested; ordinal-filtered candidates never
// influence the returned score or patient.
func (m *Matcher) FindBestMatch(name string, candidates []registry.Patient, minScore float64) Result {
	query := Normalize(name)

	var best *registry.Patient
	bestScore := 0.0
	for i := range candidates {
		cand := Normalize(candidates[i].Name)
		if cand.Ordinal != query.Ordinal {
			if s := Score(query.Canonical, cand.Canonical); s >= nearMissFloor {
				m.log.Debug().
					Str("query", query.Canonical).
					Str("candidate", cand.Canonical).
					Float64("score", s).
					Msg("near match rejected on ordinal mismatch")
			}
			continue
		}
		s := Score(query.Canonical, cand.Canonical)
		if best == nil || s > bestScore {
			best = &candidates[i]
			bestScore = s
		}
	}

	if best == nil || bestScore < minScore {
		keep := 0.0
		if best != nil {
			keep = bestScore
		}
		return Result{Action: ActionInbox, Score: keep}
	}
	action := ActionInbox
	if bestScore >= AutoSaveThreshold {
		action = ActionAutoSave
	}
	return Result{Action: action, Patient: best, Score: bestScore}
}
