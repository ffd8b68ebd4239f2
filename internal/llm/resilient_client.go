package llm

import (
	"context"
	"time"

	"github.com/llmgit/internal/retry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// emptyResponseError is retried; providers return empty completions when
// they cut a request short
type emptyResponseError struct{}

func (emptyResponseError) Error() string   { return "empty response" }
func (emptyResponseError) Temporary() bool { return true }

// ResilientClient wraps a Completer with retry logic, timeout handling and
// request logging. It is the only place model calls are retried.
type ResilientClient struct {
	client      Completer // underlying model client
	model       string    // model name used in errors and logs
	policy      retry.Policy
	timeout     time.Duration // per attempt; 0 means none
	limiter     *rate.Limiter // nil means unlimited
	showPrompts bool
	abort       bool
	recorder    Recorder
	logger      zerolog.Logger
}

// Recorder keeps a copy of every exchange with the model
type Recorder interface {
	LogRequest(model, system, prompt string)
	LogResponse(response string)
	LogError(err error)
}

// Option configures a ResilientClient
type Option func(*ResilientClient)

// WithTimeout bounds each attempt
func WithTimeout(d time.Duration) Option {
	return func(rc *ResilientClient) { rc.timeout = d }
}

// WithRateLimit allows at most perMinute requests per minute; 0 disables it
func WithRateLimit(perMinute int) Option {
	return func(rc *ResilientClient) {
		if perMinute > 0 {
			rc.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		}
	}
}

// WithShowPrompts logs the system prompt and input of every request
func WithShowPrompts(show bool) Option {
	return func(rc *ResilientClient) { rc.showPrompts = show }
}

// WithAbort makes every request fail with ErrAborted before it is sent
func WithAbort(abort bool) Option {
	return func(rc *ResilientClient) { rc.abort = abort }
}

// WithRecorder records requests and responses to r
func WithRecorder(r Recorder) Option {
	return func(rc *ResilientClient) { rc.recorder = r }
}

// NewResilientClient creates a new resilient model client wrapper
func NewResilientClient(client Completer, model string, policy retry.Policy, opts ...Option) *ResilientClient {
	rc := &ResilientClient{
		client: client,
		model:  model,
		policy: policy,
		logger: log.Logger.With().Str("component", "llm").Str("model", model).Logger(),
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Complete sends the request, retrying transient failures with backoff.
// Failures are returned as *ModelInvocationError.
func (rc *ResilientClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", ErrEmptyPrompt
	}

	if rc.showPrompts {
		rc.logger.Info().Str("system_prompt", req.System).Str("prompt", req.Prompt).Msg("Model request")
	}
	if rc.abort {
		return "", ErrAborted
	}
	if rc.recorder != nil {
		rc.recorder.LogRequest(rc.model, req.System, req.Prompt)
	}

	var response string
	result := retry.Do(ctx, rc.policy, func(ctx context.Context) error {
		if rc.limiter != nil {
			if err := rc.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
		}

		attemptCtx := ctx
		if rc.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, rc.timeout)
			defer cancel()
		}

		attemptStart := time.Now()
		out, err := rc.client.Complete(attemptCtx, req)
		if err != nil {
			return err
		}
		if out == "" {
			return emptyResponseError{}
		}

		rc.logger.Debug().
			Dur("duration", time.Since(attemptStart)).
			Int("response_length", len(out)).
			Msg("Model response received")
		response = out
		return nil
	}, &rc.logger)

	if result.Err != nil {
		err := &ModelInvocationError{Model: rc.model, Attempts: result.Attempts, Err: result.Err}
		if rc.recorder != nil {
			rc.recorder.LogError(err)
		}
		return "", err
	}
	if rc.recorder != nil {
		rc.recorder.LogResponse(response)
	}
	if len(result.Reasons) > 0 {
		rc.logger.Info().
			Int("attempts", result.Attempts).
			Strs("retry_reasons", result.Reasons).
			Dur("elapsed", result.Elapsed).
			Msg("Model request succeeded after retries")
	}
	return response, nil
}
