package summarize

import "strings"

const bulletPrefix = "• "

// minSentenceLen filters out fragments that are too short to carry a point.
const minSentenceLen = 20

// FormatBullets reformats prose into a bullet list, one sentence per line.
// Sentences of minSentenceLen characters or fewer are dropped. Text that is
// already a bullet list is returned unchanged, so formatting is idempotent.
func FormatBullets(text string) string {
	if isBulleted(text) {
		return text
	}

	var lines []string
	for _, s := range splitSentences(text) {
		s = strings.TrimSpace(s)
		if len(s) > minSentenceLen {
			lines = append(lines, bulletPrefix+s)
		}
	}
	return strings.Join(lines, "\n")
}

// isBulleted reports whether every non-empty line already starts with the
// bullet prefix.
func isBulleted(text string) bool {
	any := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, strings.TrimSpace(bulletPrefix)) {
			return false
		}
		any = true
	}
	return any
}

// splitSentences breaks text after sentence-ending punctuation followed by
// whitespace.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			// Consume any run of closing punctuation
			j := i
			for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
				j++
			}
			if j+1 >= len(runes) || runes[j+1] == ' ' || runes[j+1] == '\n' || runes[j+1] == '\t' {
				sentences = append(sentences, string(runes[start:j+1]))
				i = j + 1
				for i < len(runes) && (runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t') {
					i++
				}
				start = i
				i--
			} else {
				i = j
			}
		}
	}
	if start < len(runes) {
		tail := strings.TrimSpace(string(runes[start:]))
		if tail != "" {
			sentences = append(sentences, tail)
		}
	}
	return sentences
}
