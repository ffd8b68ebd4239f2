package rebase

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// ReadFile parses the todo file at path
func ReadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rebase todo: %w", err)
	}
	return Parse(string(data)), nil
}

// WriteFile replaces the todo file with the plan. The plan is written to a
// temporary file and renamed over path, so readers see either the old or
// the new plan in full. The permissions of the existing file are kept.
func WriteFile(path string, plan *Plan) error {
	err := renameio.WriteFile(path, []byte(plan.String()), 0o644, renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("replacing rebase todo: %w", err)
	}
	return nil
}
