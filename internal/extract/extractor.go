package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Extractor turns a sub-batch of documents into structured reports with a
// single model call.
type Extractor struct {
	caller LLMCaller
	log    zerolog.Logger
}

func NewExtractor(caller LLMCaller, log zerolog.Logger) *Extractor {
	return &Extractor{caller: caller, log: log.With().Str("component", "extract").Logger()}
}

const promptSchema = `For every attached document, produce one JSON object:
{
  "filename": "the document's filename, copied exactly",
  "patient_name": "patient name as printed, or empty string",
  "collection_date": "sample collection date, YYYY-MM-DD, or empty string",
  "report_date": "report date, YYYY-MM-DD, or empty string",
  "force_inbox": "boolean; true when the patient cannot be identified",
  "values": {"parameter name as printed": "value as printed"},
  "static_updates": {}
}
Respond with a JSON array containing exactly one object per document, in
document order. Do not invent parameters that are not printed.`

func buildPrompt(docs []Document, extraInstructions string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are given %d laboratory report document(s):\n", len(docs))
	for i, doc := range docs {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, doc.Filename)
	}
	sb.WriteString("\n")
	sb.WriteString(promptSchema)
	if s := strings.TrimSpace(extraInstructions); s != "" {
		sb.WriteString("\n\nAdditional instructions:\n")
		sb.WriteString(s)
	}
	return sb.String()
}

// ExtractBatch sends docs in one call and returns exactly one report per
// input document, bound by filename. It never retries: a transport failure
// leaves the sub-batch unlabeled for the next scheduled run.
func (e *Extractor) ExtractBatch(ctx context.Context, docs []Document, extraInstructions string) ([]Report, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	raw, err := e.caller.GenerateJSON(ctx, buildPrompt(docs, extraInstructions), docs)
	if err != nil {
		e.log.Error().
			Err(err).
			Stringer("class", ClassifyTransportError(err)).
			Int("docs", len(docs)).
			Msg("extraction call failed")
		return nil, fmt.Errorf("extraction call: %w", err)
	}

	parsed, err := parseReports(raw)
	if err != nil {
		return nil, err
	}
	return MatchResponses(docs, parsed), nil
}

// parseReports decodes the model's JSON array. gjson tolerates values that
// arrive as bare numbers or booleans; everything is read back as a string.
func parseReports(raw string) ([]Report, error) {
	clean := stripCodeFences(raw)
	root := gjson.Parse(clean)
	if !root.IsArray() {
		return nil, fmt.Errorf("extraction response is not a JSON array")
	}
	var reports []Report
	root.ForEach(func(_, item gjson.Result) bool {
		rep := Report{
			Filename:        item.Get("filename").String(),
			PatientNameHint: item.Get("patient_name").String(),
			CollectionDate:  item.Get("collection_date").String(),
			ReportDate:      item.Get("report_date").String(),
			ForceInbox:      item.Get("force_inbox").Bool(),
			Values:          map[string]string{},
			StaticUpdates:   map[string]string{},
		}
		item.Get("values").ForEach(func(k, v gjson.Result) bool {
			rep.Values[k.String()] = v.String()
			return true
		})
		item.Get("static_updates").ForEach(func(k, v gjson.Result) bool {
			rep.StaticUpdates[k.String()] = v.String()
			return true
		})
		reports = append(reports, rep)
		return true
	})
	return reports, nil
}

// MatchResponses binds parsed reports back to their input documents by
// filename, exact first, then case-insensitive. First match wins and is
// consumed, so two queued documents with case-insensitively equal names
// cannot both bind to one response. A document with no response gets a
// zero-value report flagged ForceInbox so its data still reaches review.
func MatchResponses(docs []Document, parsed []Report) []Report {
	used := make([]bool, len(parsed))

	find := func(name string, fold bool) int {
		for i := range parsed {
			if used[i] {
				continue
			}
			if parsed[i].Filename == name || (fold && strings.EqualFold(parsed[i].Filename, name)) {
				return i
			}
		}
		return -1
	}

	out := make([]Report, len(docs))
	for i, doc := range docs {
		idx := find(doc.Filename, false)
		if idx < 0 {
			idx = find(doc.Filename, true)
		}
		if idx < 0 {
			out[i] = Report{
				Filename:      doc.Filename,
				ForceInbox:    true,
				Values:        map[string]string{},
				StaticUpdates: map[string]string{},
			}
			continue
		}
		used[idx] = true
		out[i] = parsed[idx]
		out[i].Filename = doc.Filename
	}
	return out
}
