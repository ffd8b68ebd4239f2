package prompts

import "strings"

type segmentKind int

const (
	segText segmentKind = iota
	segRef              // {prompt[name]}
	segVar              // {name}
)

// segment is one piece of a tokenized template. For text segments value is
// the literal text with {{ and }} already unescaped; otherwise it is a name.
type segment struct {
	kind  segmentKind
	value string
	owner string // template the segment was written in
}

// Placeholder is a {name} or {prompt[name]} occurrence in a template body
type Placeholder struct {
	Raw       string
	Name      string
	Reference bool
}

const refOpen = "prompt["

// ParsePlaceholders returns all placeholder occurrences in order of appearance.
// Doubled braces are escapes and never start a placeholder.
func ParsePlaceholders(body string) []Placeholder {
	var out []Placeholder
	for _, s := range tokenize("", body) {
		switch s.kind {
		case segRef:
			out = append(out, Placeholder{Raw: "{" + refOpen + s.value + "]}", Name: s.value, Reference: true})
		case segVar:
			out = append(out, Placeholder{Raw: "{" + s.value + "}", Name: s.value})
		}
	}
	return out
}

// tokenize splits a template into text, reference and variable segments.
// A brace that does not open a well-formed placeholder is kept as text.
func tokenize(owner, body string) []segment {
	var (
		out []segment
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, segment{kind: segText, value: buf.String(), owner: owner})
			buf.Reset()
		}
	}

	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '{' && i+1 < len(body) && body[i+1] == '{':
			buf.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(body) && body[i+1] == '}':
			buf.WriteByte('}')
			i += 2
		case c == '{':
			if name, n, ok := scanReference(body[i:]); ok {
				flush()
				out = append(out, segment{kind: segRef, value: name, owner: owner})
				i += n
				continue
			}
			if name, n, ok := scanVariable(body[i:]); ok {
				flush()
				out = append(out, segment{kind: segVar, value: name, owner: owner})
				i += n
				continue
			}
			buf.WriteByte(c)
			i++
		default:
			buf.WriteByte(c)
			i++
		}
	}
	flush()
	return out
}

// scanReference matches {prompt[name]} at the start of s
func scanReference(s string) (string, int, bool) {
	rest := s[1:]
	if !strings.HasPrefix(rest, refOpen) {
		return "", 0, false
	}
	rest = rest[len(refOpen):]
	n := identLen(rest)
	if n == 0 || !strings.HasPrefix(rest[n:], "]}") {
		return "", 0, false
	}
	return rest[:n], 1 + len(refOpen) + n + 2, true
}

// scanVariable matches {name} at the start of s
func scanVariable(s string) (string, int, bool) {
	rest := s[1:]
	n := identLen(rest)
	if n == 0 || n >= len(rest) || rest[n] != '}' {
		return "", 0, false
	}
	return rest[:n], n + 2, true
}

// identLen returns the length of the identifier ([A-Za-z_][A-Za-z0-9_]*) prefix of s
func identLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z'):
		case '0' <= c && c <= '9' && i > 0:
		default:
			return i
		}
	}
	return len(s)
}
