package rebase

import (
	"strings"
)

// Command is an interactive rebase instruction
type Command string

const (
	Pick      Command = "pick"
	Reword    Command = "reword"
	Edit      Command = "edit"
	Squash    Command = "squash"
	Fixup     Command = "fixup"
	Exec      Command = "exec"
	Break     Command = "break"
	Drop      Command = "drop"
	Label     Command = "label"
	Reset     Command = "reset"
	Merge     Command = "merge"
	UpdateRef Command = "update-ref"
	Noop      Command = "noop"

	Comment Command = "comment"
	Blank   Command = "blank"
	// Unknown marks a line whose leading token is not a rebase command. It
	// is kept verbatim.
	Unknown Command = "unknown"
)

var commandTokens = map[string]Command{
	"pick": Pick, "p": Pick,
	"reword": Reword, "r": Reword,
	"edit": Edit, "e": Edit,
	"squash": Squash, "s": Squash,
	"fixup": Fixup, "f": Fixup,
	"exec": Exec, "x": Exec,
	"break": Break, "b": Break,
	"drop": Drop, "d": Drop,
	"label": Label, "l": Label,
	"reset": Reset, "t": Reset,
	"merge": Merge, "m": Merge,
	"update-ref": UpdateRef, "u": UpdateRef,
	"noop": Noop,
}

// LookupCommand resolves a command token, abbreviations included
func LookupCommand(token string) (Command, bool) {
	c, ok := commandTokens[token]
	return c, ok
}

// TakesCommit reports whether the command's first argument is a commit
func (c Command) TakesCommit() bool {
	switch c {
	case Pick, Reword, Edit, Squash, Fixup, Drop:
		return true
	}
	return false
}

// HasRef reports whether the command carries a commit hash or label name
func (c Command) HasRef() bool {
	return c.TakesCommit() || c == Label
}

// IsInstruction reports whether the line is an active command, known or not
func (c Command) IsInstruction() bool {
	return c != Comment && c != Blank
}

// Line is one line of a todo file. Raw is the exact source text without the
// line terminator and is what String writes back.
type Line struct {
	Command Command
	Token   string // command as written, e.g. "p" or "pick"
	Flag    string // fixup -C / -c
	Hash    string // commit hash, or label name for label
	Payload string
	Raw     string
}

// Plan is a parsed todo file
type Plan struct {
	Lines           []Line
	trailingNewline bool
}

// Parse splits todo text into lines. It never fails: anything that is not a
// recognised instruction becomes an Unknown line.
func Parse(text string) *Plan {
	p := &Plan{}
	if text == "" {
		return p
	}
	if strings.HasSuffix(text, "\n") {
		p.trailingNewline = true
		text = strings.TrimSuffix(text, "\n")
	}
	for _, raw := range strings.Split(text, "\n") {
		p.Lines = append(p.Lines, ParseLine(raw))
	}
	return p
}

// ParseLine parses a single todo line
func ParseLine(raw string) Line {
	l := Line{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	switch {
	case trimmed == "":
		l.Command = Blank
		return l
	case strings.HasPrefix(trimmed, "#"):
		l.Command = Comment
		l.Payload = trimmed
		return l
	}

	token, rest := cutField(trimmed)
	l.Token = token
	cmd, ok := LookupCommand(token)
	if !ok {
		l.Command = Unknown
		l.Payload = rest
		return l
	}
	l.Command = cmd

	if cmd == Fixup {
		if flag, after := cutField(rest); flag == "-C" || flag == "-c" {
			l.Flag = flag
			rest = after
		}
	}
	if cmd.HasRef() {
		l.Hash, rest = cutField(rest)
	}
	l.Payload = rest
	return l
}

// cutField returns the first whitespace separated field and the remainder
// with leading whitespace removed
func cutField(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

// String renders the plan back to todo text
func (p *Plan) String() string {
	var b strings.Builder
	for i, l := range p.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Raw)
	}
	if p.trailingNewline {
		b.WriteByte('\n')
	}
	return b.String()
}

// Instructions returns the active lines, skipping comments and blanks
func (p *Plan) Instructions() []Line {
	var out []Line
	for _, l := range p.Lines {
		if l.Command.IsInstruction() {
			out = append(out, l)
		}
	}
	return out
}

// Commits returns the hashes of commit-consuming lines in plan order
func (p *Plan) Commits() []string {
	var out []string
	for _, l := range p.Lines {
		if l.Command.TakesCommit() && l.Hash != "" {
			out = append(out, l.Hash)
		}
	}
	return out
}
