// Package chunker splits text into fixed-size windows for models with a
// bounded input length. Windows are cut at raw character positions with no
// regard for sentence, word or paragraph boundaries, so joining the windows
// always reproduces the input exactly.
package chunker

// Split splits text into consecutive pieces of size unicode code points; only
// the last piece may be shorter. Empty text yields no pieces. If size ≤ 0 the
// whole text is returned as a single piece.
func Split(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}

	chunks := make([]string, 0, Count(text, size))
	start, n := 0, 0
	for i := range text {
		if n == size {
			chunks = append(chunks, text[start:i])
			start, n = i, 0
		}
		n++
	}
	return append(chunks, text[start:])
}

// Count returns how many pieces Split would produce, ceil(runes/size).
func Count(text string, size int) int {
	if text == "" {
		return 0
	}
	if size <= 0 {
		return 1
	}
	runes := 0
	for range text {
		runes++
	}
	return (runes + size - 1) / size
}
