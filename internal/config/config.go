package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

//go:embed default.yaml
var defaultYAML []byte

// EnvPrefix is the prefix of environment variables overriding settings,
// e.g. LLM_GIT_MODEL_NAME sets model.name
const EnvPrefix = "LLM_GIT_"

// Settings is the typed view of the non-prompt sections
type Settings struct {
	Terminal TerminalSettings `koanf:"terminal"`
	Model    ModelSettings    `koanf:"model"`
	Git      GitSettings      `koanf:"git"`
	Commit   CommitSettings   `koanf:"commit"`
	Rebase   RebaseSettings   `koanf:"rebase"`
	GitHub   GitHubSettings   `koanf:"github"`
}

type TerminalSettings struct {
	Theme         string `koanf:"theme"`
	MarkdownStyle string `koanf:"markdown_style"`
	ColorSystem   string `koanf:"color_system"`
	Highlight     bool   `koanf:"highlight"`
	Width         int    `koanf:"width"`
}

// ModelSettings selects and tunes the language model
type ModelSettings struct {
	Provider    string        `koanf:"provider"`
	Name        string        `koanf:"name"`
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`
	Timeout     time.Duration `koanf:"timeout"`
	Retries     int           `koanf:"retries"`
	Stream      bool          `koanf:"stream"`

	RequestsPerMinute int `koanf:"requests_per_minute"`
}

type GitSettings struct {
	Unified       int      `koanf:"unified"`
	RedactSecrets bool     `koanf:"redact_secrets"`
	ExcludeFiles  []string `koanf:"exclude_files"`
}

type CommitSettings struct {
	AddMetadata   bool `koanf:"add_metadata"`
	IncludePrompt bool `koanf:"include_prompt"`
}

// RebaseSettings controls the rebase plan improvement
type RebaseSettings struct {
	MaxAttempts      int  `koanf:"max_attempts"`
	Strict           bool `koanf:"strict"`
	Edit             bool `koanf:"edit"`
	AllowNewCommands bool `koanf:"allow_new_commands"` // exec, reset, merge, update-ref lines added by the model
}

type GitHubSettings struct {
	Draft  bool   `koanf:"draft"`
	Token  string `koanf:"token"`
	APIURL string `koanf:"api_url"`
}

// Config is the effective configuration of one invocation. It is built once
// and only read afterwards.
type Config struct {
	Settings Settings
	Tree     Value
	Sources  []string
	Cleared  []string // default sections an override set to null
	prompts  map[string]string
}

// LoadOptions lists where override sources are looked up
type LoadOptions struct {
	UserDir      string   // directory of the user-level file; "" skips it
	RepoRoot     string   // repository root; "" skips the repo-level file
	Files        []string // extra files, highest priority, in order
	UseEnv       bool     // apply LLM_GIT_* environment overrides
	SkipDefaults bool     // start from an empty tree instead of the bundled defaults
}

// Defaults returns the bundled default tree
func Defaults() (Value, error) {
	return Parse("defaults", defaultYAML, FormatYAML)
}

// DefaultYAML returns the bundled default document
func DefaultYAML() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}

// LoadConfig builds the effective configuration from the bundled defaults and
// the override files named by opts
func LoadConfig(opts LoadOptions) (*Config, error) {
	base := EmptyMap()
	sources := []string{}
	if !opts.SkipDefaults {
		d, err := Defaults()
		if err != nil {
			return nil, err
		}
		base = d
		sources = append(sources, "defaults")
	}

	var paths []string
	if opts.UserDir != "" {
		paths = append(paths, UserConfigPath(opts.UserDir))
	}
	if opts.RepoRoot != "" {
		paths = append(paths, RepoConfigPath(opts.RepoRoot))
	}
	paths = append(paths, opts.Files...)

	overrides := make([]Value, 0, len(paths))
	for _, p := range paths {
		tree, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		if tree.Len() > 0 {
			sources = append(sources, p)
		}
		overrides = append(overrides, tree)
	}

	tree := Merge(base, overrides...)
	cfg, err := FromTree(tree, sources, opts.UseEnv)
	if err != nil {
		return nil, err
	}
	cfg.Cleared = ClearedSections(base, tree)
	for _, name := range cfg.Cleared {
		log.Warn().Str("section", name).Msg("Override sets a default section to null, its defaults are dropped")
	}
	return cfg, nil
}

// ClearedSections lists the top-level sections that are mappings in defaults
// and null in the effective tree. A YAML key whose children are all
// commented out parses as null and replaces the whole default section.
func ClearedSections(defaults, effective Value) []string {
	var out []string
	for _, k := range defaults.Keys() {
		d, _ := defaults.Get(k)
		e, ok := effective.Get(k)
		if d.IsMap() && ok && e.Kind() == KindScalar && e.Raw() == nil {
			out = append(out, k)
		}
	}
	return out
}

// FromTree derives typed settings and the prompt table from an effective tree
func FromTree(tree Value, sources []string, useEnv bool) (*Config, error) {
	prompts, err := promptTable(tree)
	if err != nil {
		return nil, err
	}

	settings := tree.clone()
	if settings.IsMap() {
		delete(settings.fields, "prompts")
		settings.keys = removeKey(settings.keys, "prompts")
	}

	var k = koanf.New(".")
	if err := k.Load(confmap.Provider(asMap(settings), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if useEnv {
		// LLM_GIT_MODEL_MAX_TOKENS -> model.max_tokens
		if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
			key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
			return strings.Replace(key, "_", ".", 1)
		}), nil); err != nil {
			return nil, fmt.Errorf("error loading environment: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg.Settings); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.Tree = tree
	cfg.Sources = sources
	cfg.prompts = prompts

	log.Debug().
		Strs("sources", sources).
		Int("prompts", len(prompts)).
		Str("model_provider", cfg.Settings.Model.Provider).
		Msg("Effective configuration built")

	return &cfg, nil
}

// Prompts returns a copy of the prompt templates keyed by name
func (c *Config) Prompts() map[string]string {
	out := make(map[string]string, len(c.prompts))
	for k, v := range c.prompts {
		out[k] = v
	}
	return out
}

func promptTable(tree Value) (map[string]string, error) {
	out := map[string]string{}
	section, ok := tree.Get("prompts")
	if !ok {
		return out, nil
	}
	if !section.IsMap() {
		return nil, &ParseError{Source: "prompts", Err: fmt.Errorf("prompts must be a mapping, got %s", section.Kind())}
	}
	for _, name := range section.Keys() {
		v, _ := section.Get(name)
		if v.Kind() != KindScalar {
			return nil, &ParseError{Source: "prompts", Err: fmt.Errorf("prompt %q must be a string, got %s", name, v.Kind())}
		}
		out[name] = v.String()
	}
	return out, nil
}

func asMap(v Value) map[string]interface{} {
	if m, ok := v.Interface().(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func removeKey(keys []string, key string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// InitConfig writes a commented override file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# llm-git configuration overrides.
# Only keys present here replace the bundled defaults (see: llm-git config show --defaults).
# Keep a section key only with at least one active setting below it: a key
# such as "git:" whose children are all commented out is null and drops every
# default of that section.

model:
  provider: openai
  name: gpt-4o-mini
  # api_key is read from OPENAI_API_KEY when empty

git:
  # lists replace the defaults as a whole
  exclude_files:
    - package-lock.json
    - yarn.lock

prompts:
  # extend_prompt wraps any prompt when --extend-prompt is given
  extend_prompt: |-
    {old_prompt}

    Also follow these instructions:
    {add_prompt}
`

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(sampleConfig), 0o644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Settings.Model.Provider == "" {
		return fmt.Errorf("model provider is required")
	}

	if config.Settings.Rebase.MaxAttempts < 1 {
		return fmt.Errorf("rebase.max_attempts must be at least 1")
	}

	if config.Settings.Model.Retries < 0 {
		return fmt.Errorf("model.retries must not be negative")
	}

	if config.Settings.Git.Unified < 0 {
		return fmt.Errorf("git.unified must not be negative")
	}

	if len(config.prompts) == 0 {
		return fmt.Errorf("no prompts configured")
	}

	return nil
}
