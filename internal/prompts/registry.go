package prompts

import (
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Registry holds named prompt templates. It is immutable after construction
// and safe to share.
type Registry struct {
	templates map[string]string
	segments  map[string][]segment
}

// NewRegistry tokenizes the given templates. Reference and cycle errors are
// reported lazily by Resolve, or eagerly by Check.
func NewRegistry(templates map[string]string) *Registry {
	r := &Registry{
		templates: make(map[string]string, len(templates)),
		segments:  make(map[string][]segment, len(templates)),
	}
	for name, body := range templates {
		r.templates[name] = body
		r.segments[name] = tokenize(name, body)
	}
	return r
}

// Names returns the template names in sorted order
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.templates))
	for name := range r.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Template returns the raw source of a template
func (r *Registry) Template(name string) (string, bool) {
	body, ok := r.templates[name]
	return body, ok
}

// Resolve expands every {prompt[...]} reference of name, then substitutes
// context placeholders from vars in a single pass.
func (r *Registry) Resolve(name string, vars Vars) (string, error) {
	segs, err := newExpander(r).expand(name, "", nil)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, s := range segs {
		if s.kind == segText {
			b.WriteString(s.value)
			continue
		}
		val, ok := vars[s.value]
		if !ok {
			return "", &MissingContextVariableError{Variable: s.value, Template: s.owner}
		}
		b.WriteString(val)
	}

	log.Debug().Str("prompt", name).Int("length", b.Len()).Msg("Resolved prompt")
	return b.String(), nil
}

// Expand returns the template with references expanded and context
// placeholders left in place as {name}
func (r *Registry) Expand(name string) (string, error) {
	segs, err := newExpander(r).expand(name, "", nil)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range segs {
		if s.kind == segVar {
			b.WriteString("{" + s.value + "}")
			continue
		}
		b.WriteString(s.value)
	}
	return b.String(), nil
}

// Variables lists the context placeholders name needs once expanded, in
// order of first appearance
func (r *Registry) Variables(name string) ([]string, error) {
	segs, err := newExpander(r).expand(name, "", nil)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range segs {
		if s.kind == segVar && !seen[s.value] {
			seen[s.value] = true
			out = append(out, s.value)
		}
	}
	return out, nil
}

// Extend resolves base and, when addition is not blank, wraps the result with
// the extend_prompt template. The wrapper receives the resolved base text as
// old_prompt and the addition as add_prompt.
func (r *Registry) Extend(base, addition string, vars Vars) (string, error) {
	resolved, err := r.Resolve(base, vars)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(addition) == "" {
		return resolved, nil
	}
	return r.Resolve(ExtendPrompt, vars.With(VarOldPrompt, resolved).With(VarAddPrompt, addition))
}

// Check expands every template and returns all reference errors found
func (r *Registry) Check() error {
	var errs []error
	for _, name := range r.Names() {
		if _, err := newExpander(r).expand(name, "", nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// expander inlines referenced templates, memoizing finished expansions for
// the duration of one call
type expander struct {
	r    *Registry
	done map[string][]segment
}

func newExpander(r *Registry) *expander {
	return &expander{r: r, done: map[string][]segment{}}
}

// expand returns the segments of name with all references inlined. path is
// the chain of templates currently being expanded.
func (e *expander) expand(name, referencedBy string, path []string) ([]segment, error) {
	for i, p := range path {
		if p == name {
			cycle := append(append([]string{}, path[i:]...), name)
			return nil, &CircularPromptReferenceError{Cycle: cycle}
		}
	}
	if segs, ok := e.done[name]; ok {
		return segs, nil
	}
	segs, ok := e.r.segments[name]
	if !ok {
		return nil, &UnknownPromptError{Name: name, ReferencedBy: referencedBy}
	}

	path = append(path[:len(path):len(path)], name)
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.kind != segRef {
			out = append(out, s)
			continue
		}
		sub, err := e.expand(s.value, name, path)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	e.done[name] = out
	return out, nil
}
