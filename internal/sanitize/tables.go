package sanitize

// Tables holds the fixed vocabularies the sanitizer and classifier operate
// on. All lookups are case-insensitive: set members and map keys are stored
// lower-cased. The defaults cover the panels our partner labs report;
// callers may substitute their own tables in tests.
type Tables struct {
	// MetadataKeys are dropped outright before any other step.
	MetadataKeys map[string]bool
	// BloodGroupKeys relocate to the chart's static bloodGroup field.
	BloodGroupKeys map[string]bool
	// G6PDKeys relocate to the chart's static g6pd field.
	G6PDKeys map[string]bool
	// JunkKeys are extraction artifacts with no clinical content.
	JunkKeys map[string]bool
	// JunkKeySubstrings drop any key containing one of them.
	JunkKeySubstrings []string
	// InvalidPhrases drop an entry when its value contains one of them.
	InvalidPhrases []string
	// NumericKeys are strictly numeric fields whose values are stripped
	// down to digits, dots, and commas.
	NumericKeys map[string]bool
	// Aliases map synonym keys to their canonical report key.
	Aliases map[string]string
	// CultureKeys route to the culture bucket.
	CultureKeys map[string]bool
	// GeneralKeys route to the general panel bucket.
	GeneralKeys map[string]bool
	// IgnoredKeys are routine hematology indices dropped entirely.
	IgnoredKeys map[string]bool
}

func set(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

// DefaultTables returns the production vocabularies.
func DefaultTables() Tables {
	return Tables{
		MetadataKeys: set("sample type", "specimen"),

		BloodGroupKeys: set(
			"blood group", "blood group (abo)", "abo group",
			"abo & rh typing", "blood group & rh type", "blood group and rh type",
		),
		G6PDKeys: set(
			"g6pd", "g-6-pd", "g6pd screening", "g6pd (qualitative)",
			"glucose 6 phosphate dehydrogenase",
		),

		JunkKeys: set(
			"test", "test name", "parameter", "investigation", "result",
			"value", "units", "reference range", "remark", "remarks",
		),
		JunkKeySubstrings: []string{"anyother", "placeholder"},

		InvalidPhrases: []string{
			"not found", "not available", "not provided", "pending",
			"awaited", "see below", "see above", "as per report", "n/a",
		},

		NumericKeys: set(
			"hb", "hgb", "hemoglobin", "haemoglobin",
			"tlc", "wbc", "total leucocyte count", "total leukocyte count",
			"platelet count", "platelets", "plt",
			"esr", "crp", "rbs", "blood sugar",
			"total bilirubin", "direct bilirubin", "indirect bilirubin",
			"sgot", "sgpt", "alkaline phosphatase",
			"urea", "blood urea", "creatinine", "serum creatinine",
			"sodium", "potassium", "calcium", "magnesium", "phosphorus",
			"retic count", "reticulocyte count",
		),

		Aliases: map[string]string{
			"wbc":                   "TLC",
			"total leucocyte count": "TLC",
			"total leukocyte count": "TLC",
			"hgb":                   "Hb",
			"hemoglobin":            "Hb",
			"haemoglobin":           "Hb",
			"platelets":             "Platelet Count",
			"plt":                   "Platelet Count",
			"blood sugar":           "RBS",
			"blood urea":            "Urea",
			"serum creatinine":      "Creatinine",
			"reticulocyte count":    "Retic Count",
		},

		CultureKeys: set(
			"blood culture", "urine culture", "csf culture", "pus culture",
			"et culture", "culture", "organism", "sensitivity", "colony count",
		),
		GeneralKeys: set(
			"hb", "tlc", "platelet count", "esr", "crp", "rbs",
			"total bilirubin", "direct bilirubin", "indirect bilirubin",
			"sgot", "sgpt", "alkaline phosphatase",
			"urea", "creatinine", "sodium", "potassium", "calcium",
			"magnesium", "phosphorus", "retic count",
		),
		IgnoredKeys: set(
			"mcv", "mch", "mchc", "rdw", "rdw-cv", "rdw-sd",
			"pcv", "hct", "hematocrit", "mpv", "pdw",
			"rbc count", "total rbc count",
		),
	}
}
