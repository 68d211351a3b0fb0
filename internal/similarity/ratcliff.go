package similarity

// ratcliffObershelp returns 2*M / (len(a)+len(b)), where M is the number of
// characters matched by repeatedly taking the longest common substring and
// recursing on the unmatched text to its left and right.
func ratcliffObershelp(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	i, j, n := longestCommonSubstring(a, b)
	if n == 0 {
		return 0
	}
	return n + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+n:], b[j+n:])
}

// longestCommonSubstring returns the start in a, start in b and length of the
// leftmost longest common run.
func longestCommonSubstring(a, b []rune) (int, int, int) {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	bestI, bestJ, bestN := 0, 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			if cur[j] > bestN {
				bestN = cur[j]
				bestI, bestJ = i-bestN, j-bestN
			}
		}
		prev, cur = cur, prev
	}
	return bestI, bestJ, bestN
}
