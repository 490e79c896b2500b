package chart

import (
	"testing"
)

func TestMergeCollisionAllocatesAlternateColumn(t *testing.T) {
	doc := NewDocument()

	if got := doc.Merge("2026-08-01", map[string]string{"Hb": "12"}, nil); got != "2026-08-01" {
		t.Fatalf("first merge column = %q", got)
	}
	if got := doc.Merge("2026-08-01", map[string]string{"Hb": "14"}, nil); got != "2026-08-01 (2)" {
		t.Fatalf("conflicting merge column = %q", got)
	}
	// Identical values reuse the base column; no new column appears.
	if got := doc.Merge("2026-08-01", map[string]string{"Hb": "12"}, nil); got != "2026-08-01" {
		t.Fatalf("idempotent merge column = %q", got)
	}
	if len(doc.Dates) != 2 {
		t.Fatalf("dates = %v", doc.Dates)
	}
}

func TestMergeReusesAlternateColumnWhenCompatible(t *testing.T) {
	doc := NewDocument()
	doc.Merge("2026-08-01", map[string]string{"Hb": "12"}, nil)
	doc.Merge("2026-08-01", map[string]string{"Hb": "14"}, nil)

	// A third differing Hb conflicts with both existing columns and takes (3).
	if got := doc.Merge("2026-08-01", map[string]string{"Hb": "15"}, nil); got != "2026-08-01 (3)" {
		t.Fatalf("column = %q, want (3)", got)
	}
	// A value matching the (2) column reuses it.
	if got := doc.Merge("2026-08-01", map[string]string{"Hb": "14"}, nil); got != "2026-08-01 (2)" {
		t.Fatalf("column = %q, want reuse of (2)", got)
	}
}

func TestMergeDataKeysSubsetOfDates(t *testing.T) {
	doc := NewDocument()
	doc.Merge("2026-08-01", map[string]string{"Hb": "12", "Ferritin": "90"}, nil)
	doc.Merge("2026-08-02", map[string]string{"Hb": "13"}, nil)
	doc.Merge("2026-08-01", map[string]string{"Hb": "11"}, nil)

	dates := map[string]bool{}
	for _, dk := range doc.Dates {
		dates[dk] = true
	}
	for _, row := range doc.Rows {
		for dk := range row.Data {
			if !dates[dk] {
				t.Fatalf("row %q has orphan date key %q", row.Label, dk)
			}
		}
	}
}

func TestMergeNewRowDefaultsToInvestigations(t *testing.T) {
	doc := NewDocument()
	doc.Merge("2026-08-01", map[string]string{"Ferritin": "90"}, nil)
	row := doc.row("Ferritin")
	if row == nil || row.Category != DefaultCategory {
		t.Fatalf("row = %+v", row)
	}
}

func TestMergeRowLabelsStayUnique(t *testing.T) {
	doc := NewDocument()
	doc.Merge("2026-08-01", map[string]string{"Hb": "12"}, nil)
	doc.Merge("2026-08-02", map[string]string{"Hb": "13"}, nil)
	seen := map[string]bool{}
	for _, row := range doc.Rows {
		if seen[row.Label] {
			t.Fatalf("duplicate row label %q", row.Label)
		}
		seen[row.Label] = true
	}
}

func TestMergeStaticSentinelDoesNotErase(t *testing.T) {
	doc := NewDocument()
	doc.Merge("2026-08-01", nil, map[string]string{"bloodGroup": "B +ve"})
	doc.Merge("2026-08-02", nil, map[string]string{"bloodGroup": "-", "g6pd": ""})
	if doc.Static["bloodGroup"] != "B +ve" {
		t.Fatalf("bloodGroup = %q", doc.Static["bloodGroup"])
	}
	if _, ok := doc.Static["g6pd"]; ok {
		t.Fatal("empty static value was written")
	}
}

func TestMergeNoValuesAddsNoColumn(t *testing.T) {
	doc := NewDocument()
	doc.Merge("2026-08-01", nil, map[string]string{"bloodGroup": "O +ve"})
	if len(doc.Dates) != 0 {
		t.Fatalf("dates = %v, want none for static-only merge", doc.Dates)
	}
}

func TestMergeDatesStaySorted(t *testing.T) {
	doc := NewDocument()
	doc.Merge("2026-08-03", map[string]string{"Hb": "12"}, nil)
	doc.Merge("2026-08-01", map[string]string{"Hb": "11"}, nil)
	doc.Merge("2026-08-02", map[string]string{"Hb": "10"}, nil)
	want := []string{"2026-08-01", "2026-08-02", "2026-08-03"}
	for i, dk := range want {
		if doc.Dates[i] != dk {
			t.Fatalf("dates = %v", doc.Dates)
		}
	}
}
