package match

import "testing"

func TestScoreDroppedMiddleName(t *testing.T) {
	if got := Score("john smith", "john q smith"); got != 100 {
		t.Fatalf("score = %v, want 100", got)
	}
	// Reduction applies in either direction.
	if got := Score("john q smith", "john smith"); got != 100 {
		t.Fatalf("score = %v, want 100", got)
	}
}

func TestScoreNoReductionForEqualPartCounts(t *testing.T) {
	if got := Score("john q smith", "john r smith"); got == 100 {
		t.Fatal("expected penalty for differing middle names")
	}
}

func TestScoreBothEmpty(t *testing.T) {
	if got := Score("", ""); got != 100 {
		t.Fatalf("score = %v, want 100", got)
	}
}

func TestScoreDisjointNames(t *testing.T) {
	got := Score("aaaa", "zzzz")
	if got != 0 {
		t.Fatalf("score = %v, want 0", got)
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"john", "john", 0},
		{"jon", "john", 1},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q,%q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
