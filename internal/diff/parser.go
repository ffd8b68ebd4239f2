package diff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// ErrMalformedPatch is wrapped by every parse failure
var ErrMalformedPatch = errors.New("malformed patch")

// FileDiff is the part of a unified diff touching one file
type FileDiff = gitdiff.File

// Parser parses unified diffs, as produced by git diff or by a model
type Parser struct{}

// NewParser creates a new diff parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse splits a unified diff into file diffs. Fragments whose body does not
// match the line counts of their header are rejected.
func (p *Parser) Parse(text string) ([]*FileDiff, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	files, _, err := gitdiff.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPatch, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no file headers found", ErrMalformedPatch)
	}

	for _, f := range files {
		for i, frag := range f.TextFragments {
			if err := frag.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %s: fragment %d: %v", ErrMalformedPatch, Path(f), i+1, err)
			}
		}
	}
	return files, nil
}

// Path returns the path a file diff applies to, the new one unless the file is deleted
func Path(f *FileDiff) string {
	if f.IsDelete || f.NewName == "" {
		return f.OldName
	}
	return f.NewName
}

// Paths lists the paths touched by files
func Paths(files []*FileDiff) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, Path(f))
	}
	return out
}

// Normalize makes sure a patch ends with exactly one newline, git apply
// rejects a patch whose last line is unterminated
func Normalize(patch string) string {
	return strings.TrimRight(patch, "\n") + "\n"
}
