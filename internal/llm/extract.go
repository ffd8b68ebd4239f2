package llm

import "strings"

// ExtractCodeBlock returns the body of the last fenced code block in text.
// The info string after the opening fence (```diff) is dropped.
func ExtractCodeBlock(text string) (string, bool) {
	lines := strings.Split(text, "\n")

	var (
		body   []string
		last   []string
		inside bool
		fence  string
		found  bool
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !inside {
			if f := fenceOf(trimmed); f != "" {
				inside, fence, body = true, f, nil
			}
			continue
		}
		if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, string(fence[0])) == "" {
			inside = false
			last, found = body, true
			continue
		}
		body = append(body, line)
	}
	if !found {
		return "", false
	}
	return strings.Join(last, "\n"), true
}

// fenceOf returns the opening fence of line (``` or longer, or ~~~), or ""
func fenceOf(line string) string {
	for _, ch := range []byte{'`', '~'} {
		n := 0
		for n < len(line) && line[n] == ch {
			n++
		}
		if n >= 3 {
			return line[:n]
		}
	}
	return ""
}
