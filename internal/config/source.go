package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrConfigParse is matched by every ParseError via errors.Is
var ErrConfigParse = errors.New("config: parse error")

// ParseError reports a malformed configuration source
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: cannot parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrConfigParse }

// Format selects the parser used for a source
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the parser from the file extension, YAML by default
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes one configuration source into a tree. The top level must be
// a mapping; an empty document yields an empty map.
func Parse(source string, data []byte, format Format) (Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return EmptyMap(), nil
	}

	var tree Value
	switch format {
	case FormatTOML:
		raw, err := toml.Parser().Unmarshal(data)
		if err != nil {
			return Value{}, &ParseError{Source: source, Err: err}
		}
		tree = FromInterface(raw)
	default:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Value{}, &ParseError{Source: source, Err: err}
		}
		v, err := fromNode(&doc)
		if err != nil {
			return Value{}, &ParseError{Source: source, Err: err}
		}
		tree = v
	}

	if tree.Kind() == KindScalar && tree.Raw() == nil {
		return EmptyMap(), nil
	}
	if !tree.IsMap() {
		return Value{}, &ParseError{Source: source, Err: fmt.Errorf("top level must be a mapping, got %s", tree.Kind())}
	}
	return tree, nil
}

// LoadFile reads and parses an override file. A missing file is an empty
// tree, not an error.
func LoadFile(path string) (Value, error) {
	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", path).Msg("Config source not found, skipping")
			return EmptyMap(), nil
		}
		return Value{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Loaded config source")
	return Parse(path, data, FormatFromPath(path))
}

// firstExisting returns the first candidate path that exists, or "" if none do
func firstExisting(dir string, names ...string) string {
	for _, n := range names {
		p := filepath.Join(dir, n)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// UserConfigDir returns the directory holding the user-level override file
func UserConfigDir() string {
	if dir := os.Getenv("LLM_GIT_CONFIG_DIR"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "llm-git")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "llm-git")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "llm-git")
}

// UserConfigPath returns the user-level override file, preferring an existing one
func UserConfigPath(dir string) string {
	if p := firstExisting(dir, "config.yaml", "config.yml", "config.toml"); p != "" {
		return p
	}
	return filepath.Join(dir, "config.yaml")
}

// RepoConfigPath returns the repository-level override file, preferring an existing one
func RepoConfigPath(root string) string {
	if p := firstExisting(root, ".llm-git.yaml", ".llm-git.yml", ".llm-git.toml"); p != "" {
		return p
	}
	return filepath.Join(root, ".llm-git.yaml")
}
