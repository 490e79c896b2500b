package sanitize

import "strings"

// StaticBloodGroup and StaticG6PD are the chart static-field keys that
// relocated entries land under.
const (
	StaticBloodGroup = "bloodGroup"
	StaticG6PD       = "g6pd"
)

// Sanitizer cleans the free-text key/value map produced by the extraction
// service. The step order is load-bearing: alias resolution runs last
// because every earlier step keys off the original, pre-alias names.
type Sanitizer struct {
	t Tables
}

func NewSanitizer(t Tables) *Sanitizer {
	return &Sanitizer{t: t}
}

// Sanitize returns the cleaned values map and the static updates pulled out
// of it (blood group, G6PD). The input maps are not mutated. Running
// Sanitize on its own output is a no-op.
func (s *Sanitizer) Sanitize(values map[string]string) (map[string]string, map[string]string) {
	cleaned := make(map[string]string, len(values))
	static := map[string]string{}

	for key, value := range values {
		lk := strings.ToLower(strings.TrimSpace(key))

		if s.t.MetadataKeys[lk] {
			continue
		}
		if s.t.BloodGroupKeys[lk] {
			static[StaticBloodGroup] = strings.TrimSpace(value)
			continue
		}
		if s.t.G6PDKeys[lk] {
			static[StaticG6PD] = strings.TrimSpace(value)
			continue
		}
		if s.t.JunkKeys[lk] || containsAny(lk, s.t.JunkKeySubstrings) {
			continue
		}

		lv := strings.ToLower(strings.TrimSpace(value))
		if lv == "value" || containsAny(lv, s.t.InvalidPhrases) {
			continue
		}
		if s.t.NumericKeys[lk] {
			if stripped, ok := stripToNumeric(value); ok {
				value = stripped
			}
		}

		cleaned[key] = value
	}

	// Alias resolution last; on collision the later-iterated entry wins.
	resolved := make(map[string]string, len(cleaned))
	for key, value := range cleaned {
		if canonical, ok := s.t.Aliases[strings.ToLower(strings.TrimSpace(key))]; ok {
			key = canonical
		}
		resolved[key] = value
	}
	return resolved, static
}

// stripToNumeric reduces a value to its leading numeric reading: the first
// contiguous run of digits, dots, and commas that contains at least one
// digit. Trailing unit noise ("5.2 x10^3", "140 mmol/L") is discarded. It
// reports false when the value holds no digits at all, so qualitative
// values like "Positive" on misflagged fields keep their original text.
func stripToNumeric(v string) (string, bool) {
	isNumeric := func(r byte) bool {
		return (r >= '0' && r <= '9') || r == '.' || r == ','
	}
	for i := 0; i < len(v); i++ {
		if !isNumeric(v[i]) {
			continue
		}
		j := i
		hasDigit := false
		for j < len(v) && isNumeric(v[j]) {
			if v[j] >= '0' && v[j] <= '9' {
				hasDigit = true
			}
			j++
		}
		if hasDigit {
			return v[i:j], true
		}
		i = j
	}
	return "", false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
