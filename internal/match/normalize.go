package match

import "strings"

// NormalizedName is the canonical form of a free-text patient name plus the
// multiples-birth ordinal (first/second/third twin) when one was present.
type NormalizedName struct {
	Canonical string
	Ordinal   int // 1..3, or 0 when absent
}

const noisePhrase = "laboratory report"

// ordinalTokens is scanned in order; the first token found in the name wins
// and at most one ordinal is recognized per name.
var ordinalTokens = []struct {
	token   string
	ordinal int
}{
	{"first", 1},
	{"1st", 1},
	{"(1)", 1},
	{"second", 2},
	{"2nd", 2},
	{"(2)", 2},
	{"third", 3},
	{"3rd", 3},
	{"(3)", 3},
}

// relationalPrefixes are "baby of" style markers that name the mother, not
// the patient.
var relationalPrefixes = []string{"b/o", "baby of"}

// droppedTokens are honorifics and fillers that carry no identity.
var droppedTokens = map[string]bool{
	"baby": true,
	"mast": true,
	"miss": true,
}

// Normalize canonicalizes a raw name string from a mail subject, an
// attachment filename, or an extracted in-document hint. It is a pure
// function and never fails; empty input yields an empty canonical form.
func Normalize(raw string) NormalizedName {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, noisePhrase, "")

	ordinal := 0
	for _, ot := range ordinalTokens {
		if idx := strings.Index(s, ot.token); idx >= 0 {
			ordinal = ot.ordinal
			s = s[:idx] + " " + s[idx+len(ot.token):]
			break
		}
	}

	for _, prefix := range relationalPrefixes {
		s = strings.ReplaceAll(s, prefix, " ")
	}

	s = replaceNonAlpha(s)

	parts := strings.Fields(s)
	kept := parts[:0]
	for _, p := range parts {
		if !droppedTokens[p] {
			kept = append(kept, p)
		}
	}

	return NormalizedName{Canonical: strings.Join(kept, " "), Ordinal: ordinal}
}

func replaceNonAlpha(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
