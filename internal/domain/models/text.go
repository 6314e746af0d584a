package models

// TruncateChars shortens s to at most n characters. It cuts on rune
// boundaries so multi-byte text never degrades into invalid UTF-8.
func TruncateChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
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
