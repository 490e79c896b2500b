package chartexport

import (
	"fmt"
	"strings"

	"github.com/nicudesk/labsync/internal/chart"
	"github.com/nicudesk/labsync/internal/registry"
)

// staticFieldOrder fixes the rendering order of the chart's static
// demographics block.
var staticFieldOrder = []string{"bloodGroup", "g6pd"}

var staticFieldTitles = map[string]string{
	"bloodGroup": "Blood Group",
	"g6pd":       "G6PD",
}

// RenderMarkdown renders a patient chart as a GFM document: a heading
// with the static demographics, then one table per row category with
// parameters down the side and date columns across.
func RenderMarkdown(p registry.Patient, doc *chart.Document) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.Name)
	if p.Ward != "" {
		fmt.Fprintf(&b, "**Ward:** %s  \n", p.Ward)
	}
	if p.Serial != "" {
		fmt.Fprintf(&b, "**Serial:** %s  \n", p.Serial)
	}
	for _, key := range staticFieldOrder {
		if v := doc.Static[key]; v != "" {
			fmt.Fprintf(&b, "**%s:** %s  \n", staticFieldTitles[key], v)
		}
	}
	b.WriteString("\n")

	for _, cat := range categories(doc) {
		rows := rowsInCategory(doc, cat)
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", cat)
		writeTable(&b, doc.Dates, rows)
	}
	return b.String()
}

// categories returns the distinct row categories in first-appearance
// order, the default category first when present.
func categories(doc *chart.Document) []string {
	var out []string
	seen := map[string]bool{}
	add := func(cat string) {
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
	}
	for _, r := range doc.Rows {
		if r.Category == chart.DefaultCategory {
			add(r.Category)
		}
	}
	for _, r := range doc.Rows {
		add(r.Category)
	}
	return out
}

// rowsInCategory preserves document order, which is the chart's own
// display order.
func rowsInCategory(doc *chart.Document, cat string) []chart.Row {
	var out []chart.Row
	for _, r := range doc.Rows {
		if r.Category == cat {
			out = append(out, r)
		}
	}
	return out
}

func writeTable(b *strings.Builder, dates []string, rows []chart.Row) {
	b.WriteString("| Parameter |")
	for _, d := range dates {
		fmt.Fprintf(b, " %s |", d)
	}
	b.WriteString("\n|---|")
	for range dates {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(b, "| %s |", escapeCell(r.Label))
		for _, d := range dates {
			fmt.Fprintf(b, " %s |", escapeCell(r.Data[d]))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// escapeCell keeps pipe characters in values from breaking table cells.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
