package pipeline

// The inference service replies with free text that usually, but not always,
// contains one JSON value, often wrapped in prose or markdown fences. These
// helpers pull out the first balanced object or array substring instead of
// trusting the whole reply to be clean JSON.

// firstJSONObject returns the first balanced {...} substring of text.
func firstJSONObject(text string) (string, bool) {
	return firstBalanced(text, '{', '}')
}

// firstJSONArray returns the first balanced [...] substring of text.
func firstJSONArray(text string) (string, bool) {
	return firstBalanced(text, '[', ']')
}

func firstBalanced(text string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case open:
			if start < 0 {
				start = i
			}
			depth++
		case close:
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
