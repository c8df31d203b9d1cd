package stitch

// Internal functions exposed for black-box testing.

func DedupJoin(prev, next string) string {
	return dedupJoin(prev, next)
}

func LongestCommonRun(a, b []rune) (aStart, bStart, length int) {
	return longestCommonRun(a, b)
}
