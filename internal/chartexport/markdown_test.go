package chartexport

import (
	"strings"
	"testing"

	"github.com/nicudesk/labsync/internal/chart"
	"github.com/nicudesk/labsync/internal/registry"
)

func testChart() *chart.Document {
	doc := chart.NewDocument()
	doc.Merge("2026-08-20", map[string]string{"Hb": "11.2", "CRP": "4"}, map[string]string{"bloodGroup": "B+"})
	doc.Merge("2026-08-22", map[string]string{"Hb": "10.8", "Blood Culture": "no growth"}, nil)
	return doc
}

func TestRenderMarkdownHeadingAndStatics(t *testing.T) {
	p := registry.Patient{ID: "p1", Name: "Ramesh Kumar", Ward: "NICU-2", Serial: "14"}
	md := RenderMarkdown(p, testChart())

	if !strings.HasPrefix(md, "# Ramesh Kumar\n") {
		t.Fatalf("heading missing:\n%s", md)
	}
	for _, want := range []string{"**Ward:** NICU-2", "**Serial:** 14", "**Blood Group:** B+"} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q", want)
		}
	}
	if strings.Contains(md, "G6PD") {
		t.Error("empty static field rendered")
	}
}

func TestRenderMarkdownTableColumns(t *testing.T) {
	md := RenderMarkdown(registry.Patient{Name: "X"}, testChart())

	if !strings.Contains(md, "| Parameter | 2026-08-20 | 2026-08-22 |") {
		t.Fatalf("date header missing:\n%s", md)
	}
	if !strings.Contains(md, "| Hb | 11.2 | 10.8 |") {
		t.Errorf("Hb series missing:\n%s", md)
	}
	// CRP has no value on the second date; its cell stays empty.
	if !strings.Contains(md, "| CRP | 4 |  |") {
		t.Errorf("CRP series missing:\n%s", md)
	}
}

func TestRenderMarkdownSeparatesCategories(t *testing.T) {
	doc := testChart()
	// Charts edited outside the pipeline may carry custom categories.
	for i := range doc.Rows {
		if doc.Rows[i].Label == "Blood Culture" {
			doc.Rows[i].Category = "Cultures"
		}
	}
	md := RenderMarkdown(registry.Patient{Name: "X"}, doc)

	inv := strings.Index(md, "## Investigations")
	if inv < 0 {
		t.Fatalf("default category section missing:\n%s", md)
	}
	cultures := strings.Index(md, "## Cultures")
	if cultures < inv {
		t.Fatalf("custom category section missing or misordered:\n%s", md)
	}
	if culture := strings.Index(md, "| Blood Culture |"); culture < cultures {
		t.Error("culture row rendered inside the default section")
	}
}

func TestRenderMarkdownEscapesPipes(t *testing.T) {
	doc := chart.NewDocument()
	doc.Merge("2026-08-20", map[string]string{"Sensitivity": "amikacin|gentamicin"}, nil)
	md := RenderMarkdown(registry.Patient{Name: "X"}, doc)

	if !strings.Contains(md, `amikacin\|gentamicin`) {
		t.Fatalf("pipe not escaped:\n%s", md)
	}
}

func TestRenderHTMLProducesTable(t *testing.T) {
	r := NewChromiumPDFRenderer("")
	out, err := r.RenderHTML(registry.Patient{Name: "Ramesh Kumar"}, testChart())
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if !strings.Contains(out, "<table>") {
		t.Fatal("GFM table extension did not render a table")
	}
	if !strings.Contains(out, "Ramesh Kumar") {
		t.Fatal("patient name missing from document")
	}
}
