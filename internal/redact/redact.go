// Package redact removes secrets from text before it is sent to a model
package redact

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zricethezav/gitleaks/v8/detect"
	"github.com/zricethezav/gitleaks/v8/report"
)

// Placeholder replaces every detected secret
const Placeholder = "REDACTED"

// Finding is one secret found in the scanned text
type Finding struct {
	RuleID string
	Line   int
	Secret string
}

// Detector finds secrets in text
type Detector interface {
	Detect(text string) []Finding
}

type gitleaksDetector struct {
	d *detect.Detector
}

// NewDefault returns a detector using the gitleaks default rule set
func NewDefault() (Detector, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gitleaks rules: %w", err)
	}
	return &gitleaksDetector{d: d}, nil
}

func (g *gitleaksDetector) Detect(text string) []Finding {
	return convert(g.d.DetectString(text))
}

func convert(in []report.Finding) []Finding {
	out := make([]Finding, 0, len(in))
	for _, f := range in {
		out = append(out, Finding{RuleID: f.RuleID, Line: f.StartLine, Secret: f.Secret})
	}
	return out
}

// Redact replaces the secrets d finds in text with Placeholder and returns
// the findings
func Redact(d Detector, text string) (string, []Finding) {
	findings := d.Detect(text)
	if len(findings) == 0 {
		return text, nil
	}

	secrets := make([]string, 0, len(findings))
	seen := map[string]bool{}
	for _, f := range findings {
		if f.Secret == "" || seen[f.Secret] {
			continue
		}
		seen[f.Secret] = true
		secrets = append(secrets, f.Secret)
	}
	// longest first so a secret containing another is replaced whole
	sort.Slice(secrets, func(i, j int) bool { return len(secrets[i]) > len(secrets[j]) })

	for _, s := range secrets {
		text = strings.ReplaceAll(text, s, Placeholder)
	}
	for _, f := range findings {
		log.Warn().Str("rule", f.RuleID).Int("line", f.Line).Msg("Secret redacted from model input")
	}
	return text, findings
}
