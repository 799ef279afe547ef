package tghtml

// Clip returns s truncated to at most n runes, with no ellipsis marker.
// Escape after clipping, not before, so entity expansions don't count
// against the cap.
func Clip(s string, n int) string {
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

// FirstLine returns s up to (not including) the first newline.
func FirstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
