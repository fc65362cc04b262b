package align

// longestCommonSubstring returns the length of the longest run of runes
// shared by a and b, plus the offsets where that run begins in each.
func longestCommonSubstring(a, b []rune) (length, aPos, bPos int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > length {
					length = curr[j]
					aPos = i - length
					bPos = j - length
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return length, aPos, bPos
}

// similarityRatio computes a whole-string similarity in [0, 1] as
// 2·LCS/(len(a)+len(b)), where LCS is the longest common subsequence.
// Identical strings score 1; disjoint strings score 0.
func similarityRatio(a, b []rune) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		copy(prev, curr)
	}
	common := prev[len(b)]
	return 2 * float64(common) / float64(len(a)+len(b))
}

// runeIndex finds needle in haystack starting at a rune offset, returning
// the rune offset of the match or -1.
func runeIndex(haystack, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	if len(needle) == 0 || from+len(needle) > len(haystack) {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
