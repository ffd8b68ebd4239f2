// Package retry retries model requests that failed for transient reasons
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Policy is an exponential backoff schedule
type Policy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool // spread delays by up to 10%
}

// ModelPolicy is the schedule used for language model requests. Providers
// answer slowly under load, so delays start at two seconds.
func ModelPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries: maxRetries,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.5,
		Jitter:     true,
	}
}

// Delay returns the wait before retry number attempt+1
func (p Policy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(p.BaseDelay) * math.Pow(mult, float64(attempt))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		delay += (rand.Float64()*2 - 1) * delay * 0.1
	}
	if delay < 0 {
		return p.BaseDelay
	}
	return time.Duration(delay)
}

// Outcome describes a finished Do call
type Outcome struct {
	Attempts int
	Elapsed  time.Duration
	Err      error    // nil on success
	Reasons  []string // one entry per failed attempt
}

// Do runs op until it succeeds, fails with an error Transient rejects, or
// the policy runs out of retries. The context of the caller ends the loop
// at once, also while waiting between attempts.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, logger *zerolog.Logger) Outcome {
	start := time.Now()
	var out Outcome

	for attempt := 0; ; attempt++ {
		out.Attempts = attempt + 1
		err := op(ctx)
		if err == nil {
			out.Err = nil
			out.Elapsed = time.Since(start)
			return out
		}
		out.Err = err
		out.Reasons = append(out.Reasons, reason(err))

		if ctx.Err() != nil {
			out.Err = ctx.Err()
			break
		}
		if attempt >= p.MaxRetries || !Transient(err) {
			break
		}

		delay := p.Delay(attempt)
		if logger != nil {
			logger.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", p.MaxRetries+1).
				Dur("delay", delay).
				Msg("Request failed, retrying")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			out.Err = ctx.Err()
			out.Elapsed = time.Since(start)
			return out
		case <-timer.C:
		}
	}

	out.Elapsed = time.Since(start)
	if logger != nil {
		logger.Debug().
			Err(out.Err).
			Int("attempts", out.Attempts).
			Dur("elapsed", out.Elapsed).
			Msg("Request failed")
	}
	return out
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so Do gives up on it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// transientMessages are fragments of provider and transport errors worth
// another attempt. Provider SDKs mostly report HTTP failures as text.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"overloaded",
	"too many requests",
	"rate limit",
	"429",
	"500 internal server error",
	"502",
	"503",
	"504",
	"529",
	"no such host",
	"network unreachable",
	"broken pipe",
	"unexpected eof",
}

// Transient reports whether err may go away on its own
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) && temp.Temporary() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func reason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case !Transient(err):
		return "permanent: " + err.Error()
	default:
		return err.Error()
	}
}
