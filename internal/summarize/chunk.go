package summarize

import "strings"

// ChunkWords splits text into windows of at most maxWords whitespace-separated
// words. The last chunk holds the remainder. Empty input yields no chunks.
func ChunkWords(text string, maxWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for len(words) > maxWords {
		chunks = append(chunks, strings.Join(words[:maxWords], " "))
		words = words[maxWords:]
	}
	chunks = append(chunks, strings.Join(words, " "))
	return chunks
}
