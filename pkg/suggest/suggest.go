// Package suggest proposes likely intended command names for unresolved
// lookups using bounded edit distance.
package suggest

import "strings"

// MaxDistance is the largest edit distance still considered a plausible typo.
const MaxDistance = 3

// Closest returns the candidate with the minimum edit distance to input,
// comparing lowercased strings. It reports false when no candidate is
// within MaxDistance. Ties between equally distant candidates are broken
// arbitrarily.
func Closest(input string, candidates []string) (string, bool) {
	lowered := strings.ToLower(input)

	best := ""
	bestDist := MaxDistance + 1
	for _, c := range candidates {
		d := Distance(lowered, strings.ToLower(c))
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	if bestDist > MaxDistance {
		return "", false
	}
	return best, true
}

// Distance computes the Levenshtein distance between a and b with unit
// cost for insert, delete and substitute.
func Distance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
