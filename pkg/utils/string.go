package utils

// Truncate is a simple string truncate used for log and CLI previews.
// maxLen counts runes.
func Truncate(s string, maxLen int) string {
	p := Prefix(s, maxLen)
	if len(p) == len(s) {
		return s
	}
	return p + "..."
}

// Prefix returns at most n runes of s without splitting a multi-byte
// character. Used to bound prompt sizes.
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
