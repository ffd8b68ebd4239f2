package aiconnectors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/llmgit/internal/llm"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/cohere"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider represents an AI provider type
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderClaude Provider = "claude"
	ProviderCohere Provider = "cohere"
	ProviderOllama Provider = "ollama"
)

var providerAliases = map[string]Provider{
	"openai":    ProviderOpenAI,
	"gemini":    ProviderGemini,
	"google":    ProviderGemini,
	"googleai":  ProviderGemini,
	"claude":    ProviderClaude,
	"anthropic": ProviderClaude,
	"cohere":    ProviderCohere,
	"ollama":    ProviderOllama,
	"local":     ProviderOllama,
}

// ParseProvider resolves a provider name from configuration or flags
func ParseProvider(name string) (Provider, error) {
	p, ok := providerAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %s", name)
	}
	return p, nil
}

// defaultModels is used when no model name is configured
var defaultModels = map[Provider]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-2.5-flash",
	ProviderClaude: "claude-3-5-sonnet-latest",
	ProviderCohere: "command-r",
	ProviderOllama: "llama3",
}

// apiKeyEnv lists the environment variables consulted when no key is configured
var apiKeyEnv = map[Provider][]string{
	ProviderOpenAI: {"OPENAI_API_KEY"},
	ProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ProviderClaude: {"ANTHROPIC_API_KEY"},
	ProviderCohere: {"COHERE_API_KEY"},
}

// ModelConfig contains the configuration for a specific model
type ModelConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Model       string  `json:"model,omitempty"`
}

// ConnectorOptions contains options for creating a connector
type ConnectorOptions struct {
	Provider    Provider    `json:"provider"`
	APIKey      string      `json:"api_key"`
	BaseURL     string      `json:"base_url,omitempty"`
	ModelConfig ModelConfig `json:"model_config,omitempty"`
	// Stream receives response chunks as they arrive; nil disables streaming
	Stream io.Writer `json:"-"`
}

// Connector represents a connection to an AI provider. It implements
// llm.Completer.
type Connector struct {
	provider Provider
	llm      llms.Model
	options  ConnectorOptions
}

var _ llm.Completer = (*Connector)(nil)

// NewConnector creates a new connector for the specified provider
func NewConnector(ctx context.Context, options ConnectorOptions) (*Connector, error) {
	if options.ModelConfig.Model == "" {
		options.ModelConfig.Model = defaultModels[options.Provider]
	}
	if options.APIKey == "" {
		options.APIKey = apiKeyFromEnv(options.Provider)
	}

	log.Debug().
		Str("provider", string(options.Provider)).
		Str("model", options.ModelConfig.Model).
		Float64("temperature", options.ModelConfig.Temperature).
		Bool("stream", options.Stream != nil).
		Msg("Creating new connector")

	var model llms.Model
	var err error
	switch options.Provider {
	case ProviderOpenAI:
		model, err = createOpenAIModel(options)
	case ProviderGemini:
		model, err = createGeminiModel(ctx, options)
	case ProviderClaude:
		model, err = createAnthropicModel(options)
	case ProviderCohere:
		model, err = createCohereModel(options)
	case ProviderOllama:
		model, err = createOllamaModel(options)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", options.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create model for provider %s: %w", options.Provider, err)
	}

	return newConnector(model, options), nil
}

func newConnector(model llms.Model, options ConnectorOptions) *Connector {
	return &Connector{
		provider: options.Provider,
		llm:      model,
		options:  options,
	}
}

// APIKeyEnv returns the environment variables read when no API key is
// configured for p. Providers without authentication return nil.
func APIKeyEnv(p Provider) []string {
	return append([]string(nil), apiKeyEnv[p]...)
}

func apiKeyFromEnv(p Provider) string {
	for _, name := range apiKeyEnv[p] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Helper functions to create models for specific providers

func createOpenAIModel(options ConnectorOptions) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(options.ModelConfig.Model),
		openai.WithToken(options.APIKey),
	}
	if options.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(options.BaseURL))
	}
	return openai.New(opts...)
}

func createGeminiModel(ctx context.Context, options ConnectorOptions) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithAPIKey(options.APIKey),
		googleai.WithDefaultModel(options.ModelConfig.Model),
	}
	model, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini model: %w", err)
	}
	return model, nil
}

func createAnthropicModel(options ConnectorOptions) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithToken(options.APIKey),
		anthropic.WithModel(options.ModelConfig.Model),
	}
	if options.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(options.BaseURL))
	}
	return anthropic.New(opts...)
}

func createCohereModel(options ConnectorOptions) (llms.Model, error) {
	opts := []cohere.Option{
		cohere.WithToken(options.APIKey),
		cohere.WithModel(options.ModelConfig.Model),
	}
	if options.BaseURL != "" {
		opts = append(opts, cohere.WithBaseURL(options.BaseURL))
	}
	return cohere.New(opts...)
}

func createOllamaModel(options ConnectorOptions) (llms.Model, error) {
	if options.BaseURL == "" {
		options.BaseURL = "http://localhost:11434"
	}
	opts := []ollama.Option{
		ollama.WithServerURL(options.BaseURL),
		ollama.WithModel(options.ModelConfig.Model),
	}
	return ollama.New(opts...)
}

// Complete sends the system prompt and input as a two message conversation
// and returns the text of the first choice
func (c *Connector) Complete(ctx context.Context, req llm.Request) (string, error) {
	callOptions := []llms.CallOption{
		llms.WithTemperature(c.options.ModelConfig.Temperature),
	}
	if c.options.ModelConfig.MaxTokens > 0 {
		callOptions = append(callOptions, llms.WithMaxTokens(c.options.ModelConfig.MaxTokens))
	}
	if c.provider == ProviderGemini {
		callOptions = append(callOptions, llms.WithModel(c.options.ModelConfig.Model))
	}
	if c.options.Stream != nil {
		w := c.options.Stream
		callOptions = append(callOptions, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			_, err := w.Write(chunk)
			return err
		}))
	}

	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	resp, err := c.llm.GenerateContent(ctx, messages, callOptions...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty response from model")
	}
	if c.options.Stream != nil {
		fmt.Fprintln(c.options.Stream)
	}
	return resp.Choices[0].Content, nil
}

// GetProvider returns the provider of this connector
func (c *Connector) GetProvider() Provider {
	return c.provider
}

// GetModel returns the model name from the config
func (c *Connector) GetModel() string {
	return c.options.ModelConfig.Model
}
