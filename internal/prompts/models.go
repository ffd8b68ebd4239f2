package prompts

// Vars is the invocation context: placeholder name to value. Values are
// inserted verbatim and never scanned for further placeholders.
type Vars map[string]string

// Context variable names filled by the commands
const (
	VarPwd             = "pwd"
	VarBranch          = "branch"
	VarPreviousMessage = "previous_message"
	VarOldPrompt       = "old_prompt"
	VarAddPrompt       = "add_prompt"
	VarInstructions    = "instructions"
	VarRebasePlan      = "rebase_plan"
	VarCommitDetails   = "commit_details"
)

// ExtendPrompt is the template wrapping a prompt with user instructions
const ExtendPrompt = "extend_prompt"

// DefaultVars returns the context every command provides
func DefaultVars(pwd, branch string) Vars {
	return Vars{VarPwd: pwd, VarBranch: branch}
}

// With returns a copy of v with key set to value
func (v Vars) With(key, value string) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[key] = value
	return out
}
