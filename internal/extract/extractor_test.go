package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeCaller struct {
	response string
	err      error
	prompts  []string
	batches  [][]Document
}

func (f *fakeCaller) GenerateJSON(_ context.Context, prompt string, docs []Document) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.batches = append(f.batches, docs)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestExtractBatchParsesFencedArray(t *testing.T) {
	caller := &fakeCaller{response: "```json\n" + `[
		{"filename":"cbc_john.pdf","patient_name":"Baby of Sunita","collection_date":"2026-08-20",
		 "report_date":"2026-08-21","force_inbox":false,
		 "values":{"Hb":11.2,"WBC":"5.2 x10^3"},"static_updates":{"bloodGroup":"B +ve"}}
	]` + "\n```"}
	e := NewExtractor(caller, zerolog.Nop())

	docs := []Document{{Filename: "cbc_john.pdf", MediaType: "application/pdf"}}
	reports, err := e.ExtractBatch(context.Background(), docs, "")
	if err != nil {
		t.Fatalf("ExtractBatch: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d", len(reports))
	}
	rep := reports[0]
	if rep.PatientNameHint != "Baby of Sunita" {
		t.Fatalf("hint = %q", rep.PatientNameHint)
	}
	// Numeric JSON values come back as strings.
	if rep.Values["Hb"] != "11.2" {
		t.Fatalf("Hb = %q", rep.Values["Hb"])
	}
	if rep.StaticUpdates["bloodGroup"] != "B +ve" {
		t.Fatalf("static = %v", rep.StaticUpdates)
	}
}

func TestExtractBatchTransportError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("status code: 500")}
	e := NewExtractor(caller, zerolog.Nop())
	_, err := e.ExtractBatch(context.Background(), []Document{{Filename: "a.pdf"}}, "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractBatchInstructionSuffix(t *testing.T) {
	caller := &fakeCaller{response: `[]`}
	e := NewExtractor(caller, zerolog.Nop())
	_, _ = e.ExtractBatch(context.Background(), []Document{{Filename: "a.pdf"}}, "Ward 3 reports use DD/MM/YYYY dates.")
	if len(caller.prompts) != 1 {
		t.Fatalf("prompts = %d", len(caller.prompts))
	}
	if want := "Ward 3 reports use DD/MM/YYYY dates."; !strings.Contains(caller.prompts[0], want) {
		t.Fatalf("prompt missing instruction suffix: %q", caller.prompts[0])
	}
}

func TestMatchResponsesCaseInsensitiveFallback(t *testing.T) {
	docs := []Document{{Filename: "CBC_John.PDF"}}
	parsed := []Report{{Filename: "cbc_john.pdf", PatientNameHint: "John"}}
	out := MatchResponses(docs, parsed)
	if out[0].PatientNameHint != "John" {
		t.Fatalf("out = %+v", out[0])
	}
	if out[0].Filename != "CBC_John.PDF" {
		t.Fatalf("filename = %q, want queued name preserved", out[0].Filename)
	}
}

func TestMatchResponsesFirstMatchWinsAndIsConsumed(t *testing.T) {
	docs := []Document{{Filename: "report.pdf"}, {Filename: "REPORT.pdf"}}
	parsed := []Report{{Filename: "report.pdf", PatientNameHint: "A"}}
	out := MatchResponses(docs, parsed)
	if out[0].PatientNameHint != "A" {
		t.Fatalf("first doc = %+v", out[0])
	}
	// The single response is consumed; the second document degrades to a
	// force-inbox placeholder instead of binding twice.
	if !out[1].ForceInbox {
		t.Fatalf("second doc = %+v, want ForceInbox", out[1])
	}
}

func TestMatchResponsesUnmatchedDocForceInbox(t *testing.T) {
	docs := []Document{{Filename: "a.pdf"}}
	out := MatchResponses(docs, nil)
	if !out[0].ForceInbox || out[0].Filename != "a.pdf" {
		t.Fatalf("out = %+v", out[0])
	}
}

func TestParseReportsRejectsNonArray(t *testing.T) {
	if _, err := parseReports(`{"filename":"a.pdf"}`); err == nil {
		t.Fatal("expected error for non-array response")
	}
}
