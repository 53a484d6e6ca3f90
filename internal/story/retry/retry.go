// Package retry runs remote calls, backing off on rate-limit failures.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	DefaultMaxAttempts  = 4
	DefaultInitialDelay = 2 * time.Second
	DefaultMaxJitter    = time.Second
)

// Policy controls how often and how long Do waits between attempts.
type Policy struct {
	// MaxAttempts counts the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	// MaxJitter bounds the uniform random delay added to every wait.
	MaxJitter time.Duration
	// Notify, when set, is called before each wait.
	Notify func(err error, attempt int, wait time.Duration)
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxJitter:    DefaultMaxJitter,
	}
}

// Do calls op until it succeeds or fails with a non-transient error, giving
// up after MaxAttempts calls. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	b := &doubling{initial: p.InitialDelay, jitter: p.MaxJitter}
	attempt := 0

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	}
	if p.Notify != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.Notify(err, attempt, wait)
		}))
	}

	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}

// doubling waits initial*2^n plus up to jitter of uniform noise.
type doubling struct {
	initial time.Duration
	jitter  time.Duration
	n       int
}

func (d *doubling) NextBackOff() time.Duration {
	wait := d.initial << d.n
	d.n++
	if d.jitter > 0 {
		wait += rand.N(d.jitter)
	}
	return wait
}

func (d *doubling) Reset() { d.n = 0 }

// IsTransient reports whether err signals a rate-limit condition that is
// expected to clear on its own.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && rateLimited(apiErr.Code, apiErr.Status) {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && rateLimited(apiErrPtr.Code, apiErrPtr.Status) {
		return true
	}

	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, strconv.Itoa(http.StatusTooManyRequests)) ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "resource exhausted")
}

func rateLimited(code int, status string) bool {
	return code == http.StatusTooManyRequests || status == "RESOURCE_EXHAUSTED"
}
