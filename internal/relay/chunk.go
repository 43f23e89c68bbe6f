package relay

// SyntheticChunkSize is the number of characters per synthetic content delta.
const SyntheticChunkSize = 4

// Chunk splits text into slices of size characters. The last slice may be
// shorter. Characters are runes, so multi-byte text is never cut mid-rune.
func Chunk(text string, size int) []string {
	if size <= 0 || text == "" {
		return nil
	}

	runes := []rune(text)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
