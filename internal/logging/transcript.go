package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Transcript records the prompts sent to the model and its answers in a
// plain text file, one file per invocation
type Transcript struct {
	path      string
	file      *os.File
	mu        sync.Mutex
	startTime time.Time
}

// StartTranscript creates dir if needed and opens a new transcript file in it
func StartTranscript(dir, command, invocationID string) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("%s_%s_%s.log", sanitize(command), timestamp, shortID(invocationID))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	t := &Transcript{path: path, file: f, startTime: time.Now()}
	t.writef("llm-git %s\n", command)
	t.writef("invocation: %s\n", invocationID)
	t.writef("started: %s\n\n", t.startTime.Format(time.RFC3339))
	return t, nil
}

// Path returns the transcript file location
func (t *Transcript) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// LogRequest records a model request
func (t *Transcript) LogRequest(model, system, prompt string) {
	if t == nil {
		return
	}
	t.section("REQUEST " + model)
	t.block("SYSTEM", system)
	t.block("INPUT", prompt)
}

// LogResponse records a model answer
func (t *Transcript) LogResponse(response string) {
	if t == nil {
		return
	}
	t.section("RESPONSE")
	t.block("OUTPUT", response)
}

// LogError records a failed request
func (t *Transcript) LogError(err error) {
	if t == nil || err == nil {
		return
	}
	t.section("ERROR")
	t.writef("%v\n", err)
}

// Close writes the footer and closes the file
func (t *Transcript) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.file, "\nfinished after %v\n", time.Since(t.startTime).Round(time.Millisecond))
	return t.file.Close()
}

func (t *Transcript) section(title string) {
	t.writef("%s\n= [+%v] %s\n%s\n",
		strings.Repeat("=", 80),
		time.Since(t.startTime).Round(time.Millisecond),
		title,
		strings.Repeat("=", 80))
}

func (t *Transcript) block(name, content string) {
	t.writef("--- %s START ---\n%s\n--- %s END ---\n", name, content, name)
}

func (t *Transcript) writef(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.file, format, args...)
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "llm-git"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == ' ' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
