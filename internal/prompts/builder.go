package prompts

import (
	"fmt"
	"strings"
)

// Markers delimiting a prompt embedded as comments in a commit message file.
// Git strips the commented lines when the commit is created.
const (
	PromptSectionStart = "# ----- LLM PROMPT (WILL BE REMOVED) -----"
	PromptSectionEnd   = "# ----- END LLM PROMPT -----"
)

// BuildDiffInput wraps diff output the way patch prompts expect it
func BuildDiffInput(diff string) string {
	return fmt.Sprintf("Result of `git diff`:\n```\n%s\n```", diff)
}

// BuildFeedbackInput appends the errors of previous attempts to an input
func BuildFeedbackInput(input string, errs []error) string {
	if len(errs) == 0 {
		return input
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s\n\nPrevious errors:\n```\n%s\n```\n", input, strings.Join(msgs, "\n"))
}

// BuildPromptSection renders a system prompt as a commented block to append
// to a commit message
func BuildPromptSection(prompt string) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(PromptSectionStart)
	b.WriteString("\n")
	for _, line := range strings.Split(prompt, "\n") {
		b.WriteString("# ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(PromptSectionEnd)
	b.WriteString("\n")
	return b.String()
}

// JoinAdditions combines extra instructions, skipping blank ones
func JoinAdditions(additions ...string) string {
	var parts []string
	for _, a := range additions {
		if s := strings.TrimSpace(a); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
