package prompts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDiffInput(t *testing.T) {
	assert.Equal(t, "Result of `git diff`:\n```\n+a\n```", BuildDiffInput("+a"))
}

func TestBuildFeedbackInput(t *testing.T) {
	assert.Equal(t, "in", BuildFeedbackInput("in", nil))

	got := BuildFeedbackInput("in", []error{errors.New("first"), errors.New("second")})
	assert.Equal(t, "in\n\nPrevious errors:\n```\nfirst\nsecond\n```\n", got)
}

func TestBuildPromptSection(t *testing.T) {
	got := BuildPromptSection("line one\nline two")
	assert.Equal(t, "\n\n"+PromptSectionStart+"\n# line one\n# line two\n"+PromptSectionEnd+"\n", got)
}

func TestJoinAdditions(t *testing.T) {
	assert.Equal(t, "a\n\nb", JoinAdditions("a", " ", "", "b\n"))
	assert.Equal(t, "", JoinAdditions())
}
