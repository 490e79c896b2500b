package extract

// Document is one attachment queued for extraction.
type Document struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Report is the extraction service's best-effort structured guess for one
// document. Values keys are free text until sanitized.
type Report struct {
	Filename        string
	PatientNameHint string
	CollectionDate  string
	ReportDate      string
	// ForceInbox is set by the model when it cannot identify the patient,
	// and by us when a response could not be bound to its document.
	ForceInbox    bool
	Values        map[string]string
	StaticUpdates map[string]string
}
