package match

import "strings"

// Score returns a similarity in [0,100] between two canonicalized names.
//
// Local convention often drops the middle (father's) name, so when one side
// has exactly three parts and the other exactly two, the three-part side is
// reduced to {first, last} before the edit-distance comparison. The
// reduction applies in either direction and only for the exact 3-vs-2 case.
func Score(a, b string) float64 {
	pa := strings.Fields(a)
	pb := strings.Fields(b)
	switch {
	case len(pa) == 3 && len(pb) == 2:
		a = pa[0] + " " + pa[2]
	case len(pb) == 3 && len(pa) == 2:
		b = pb[0] + " " + pb[2]
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}
	d := levenshtein(a, b)
	return (1 - float64(d)/float64(maxLen)) * 100
}

// levenshtein computes the edit distance between two strings using a
// two-row dynamic programming table.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = minInt(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

func minInt(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
