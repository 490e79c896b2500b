package chart

import "sort"

// DefaultCategory is the row category for parameters first seen in a
// merged report.
const DefaultCategory = "Investigations"

// Row is one parameter's time series: a label, a display category, and a
// value per date column.
type Row struct {
	Label    string            `json:"label"`
	Category string            `json:"category"`
	Data     map[string]string `json:"data"`
}

// Document is a patient's longitudinal chart. Dates is the ordered set of
// date columns; every Data key in every row is a member of Dates. Row
// labels are unique. A chart is created lazily on first write and never
// deleted by this subsystem.
//
// A date column is either an ISO date or a same-day alternate "<date> (n)",
// n >= 2, allocated when a write would otherwise overwrite differing data.
type Document struct {
	Dates  []string          `json:"dates"`
	Rows   []Row             `json:"rows"`
	Static map[string]string `json:"static"`
}

// defaultRowLabels seed a fresh chart so the common panel renders in a
// stable order before any report arrives for it.
var defaultRowLabels = []string{
	"Hb", "TLC", "Platelet Count", "CRP",
	"Total Bilirubin", "Sodium", "Potassium", "Creatinine",
}

// NewDocument returns an empty chart with the default row set.
func NewDocument() *Document {
	rows := make([]Row, len(defaultRowLabels))
	for i, label := range defaultRowLabels {
		rows[i] = Row{Label: label, Category: DefaultCategory, Data: map[string]string{}}
	}
	return &Document{Rows: rows, Static: map[string]string{}}
}

func (d *Document) row(label string) *Row {
	for i := range d.Rows {
		if d.Rows[i].Label == label {
			return &d.Rows[i]
		}
	}
	return nil
}

func (d *Document) hasDate(key string) bool {
	for _, k := range d.Dates {
		if k == key {
			return true
		}
	}
	return false
}

func (d *Document) addDate(key string) {
	if d.hasDate(key) {
		return
	}
	d.Dates = append(d.Dates, key)
	sort.Strings(d.Dates)
}
