package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/llmgit/internal/aiconnectors"
	"github.com/llmgit/internal/config"
)

// CredentialCheck holds the result of looking up the secrets a configuration needs
type CredentialCheck struct {
	Provider string
	Missing  []string          // Required variables that are missing
	Present  map[string]string // Variables that are set (masked values)
	Warnings []string          // Non-fatal warnings
}

// CheckCredentials verifies that the model provider and GitHub can authenticate
func CheckCredentials(s config.Settings) *CredentialCheck {
	result := &CredentialCheck{
		Provider: s.Model.Provider,
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	provider, err := aiconnectors.ParseProvider(s.Model.Provider)
	if err != nil {
		result.Missing = append(result.Missing, "model.provider")
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}

	keyVars := aiconnectors.APIKeyEnv(provider)
	switch {
	case s.Model.APIKey != "":
		result.Present["model.api_key"] = maskSecret(s.Model.APIKey)
	case len(keyVars) > 0:
		found := false
		for _, v := range keyVars {
			if val := os.Getenv(v); val != "" {
				result.Present[v] = maskSecret(val)
				found = true
				break
			}
		}
		if !found {
			result.Missing = append(result.Missing, strings.Join(keyVars, " or "))
		}
	}

	// Optional but good to check
	switch {
	case s.GitHub.Token != "":
		result.Present["github.token"] = maskSecret(s.GitHub.Token)
	default:
		if token := githubToken(""); token != "" {
			result.Present["GITHUB_TOKEN"] = maskSecret(token)
		} else {
			result.Warnings = append(result.Warnings, "no GitHub token, github create-pr will not work")
		}
	}

	return result
}

// PrintCredentialCheck prints the credential check results
func PrintCredentialCheck(w io.Writer, result *CredentialCheck) {
	fmt.Fprintln(w, "=== Credential Check ===")
	fmt.Fprintf(w, "Provider: %s\n\n", result.Provider)

	if len(result.Missing) > 0 {
		fmt.Fprintln(w, "❌ Missing required variables:")
		for _, v := range result.Missing {
			fmt.Fprintf(w, "   - %s\n", v)
		}
		fmt.Fprintln(w, "")
	}

	if len(result.Present) > 0 {
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "✓ Configured credentials:")
		for _, k := range keys {
			fmt.Fprintf(w, "   - %s = %s\n", k, result.Present[k])
		}
		fmt.Fprintln(w, "")
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "⚠ Warning: %s\n", warning)
	}

	fmt.Fprintln(w, "========================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads environment variables from a file, overwriting existing ones.
func LoadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	return scanner.Err()
}
