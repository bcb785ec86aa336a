package clients

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RetryConfig defines retry behavior for platform HTTP calls
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	Jitter         float64 // random jitter factor (0-1)

	// BreakerThreshold consecutive exhausted calls open the circuit;
	// BreakerCooldown is how long it stays open before probing again.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultRetryConfig returns the retry settings used against all platforms
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:       3,
		InitialBackoff:   1 * time.Second,
		MaxBackoff:       30 * time.Second,
		BackoffFactor:    2.0,
		Jitter:           0.1,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// ErrCircuitOpen is returned without issuing a request while the platform's
// circuit breaker is open
var ErrCircuitOpen = errors.New("platform circuit open")

// Retrier executes HTTP calls with exponential backoff. 429 and 5xx
// responses retry, honoring Retry-After when the platform sends one.
// A circuit breaker sits in front: once enough consecutive calls exhaust
// their retries, further calls fail fast until the cooldown expires.
type Retrier struct {
	config  *RetryConfig
	breaker *CircuitBreaker
}

// NewRetrier creates a new retrier with the given config
func NewRetrier(config *RetryConfig) *Retrier {
	if config == nil {
		config = DefaultRetryConfig()
	}
	threshold := config.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}
	cooldown := config.BreakerCooldown
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}
	return &Retrier{
		config:  config,
		breaker: NewCircuitBreaker(threshold, cooldown),
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (r *Retrier) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	d := float64(r.config.InitialBackoff) * math.Pow(r.config.BackoffFactor, float64(attempt))
	if r.config.Jitter > 0 {
		d += d * r.config.Jitter * (rand.Float64()*2 - 1)
	}
	if d > float64(r.config.MaxBackoff) {
		d = float64(r.config.MaxBackoff)
	}
	return time.Duration(d)
}

// parseRetryAfter extracts the Retry-After duration from a response
func parseRetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		return time.Until(t)
	}
	return 0
}

// RequestFunc issues one HTTP attempt
type RequestFunc func(ctx context.Context) (*http.Response, error)

// DoHTTP runs fn until it succeeds, fails with a non-retryable status, or
// retries are exhausted. The returned response body is unread.
func (r *Retrier) DoHTTP(ctx context.Context, operation string, fn RequestFunc) (*http.Response, error) {
	if !r.breaker.Allow() {
		return nil, fmt.Errorf("%s: %w", operation, ErrCircuitOpen)
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		resp, err := fn(ctx)
		lastResp, lastErr = resp, err

		var retryAfter time.Duration
		if err == nil {
			if !retryableStatus(resp.StatusCode) {
				// any response counts as a live platform, 4xx included
				r.breaker.RecordSuccess()
				return resp, nil
			}
			retryAfter = parseRetryAfter(resp)
			resp.Body.Close()
		}

		if attempt >= r.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff(attempt, retryAfter)):
		}
	}

	r.breaker.RecordFailure()
	if lastErr != nil {
		return nil, fmt.Errorf("%s: retries exhausted: %w", operation, lastErr)
	}
	return nil, fmt.Errorf("%s: retries exhausted with status %d", operation, lastResp.StatusCode)
}

// CircuitState is the breaker position: closed passes traffic, open fails
// fast, half-open lets a few probes through after the cooldown.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// probeQuota is how many half-open calls may go out, and how many of them
// must succeed before the circuit closes again.
const probeQuota = 3

// CircuitBreaker trips after consecutive exhausted calls so a dead platform
// costs a handful of probes per cooldown window instead of a full retry
// cycle for every page of a pull.
type CircuitBreaker struct {
	mu sync.Mutex

	state     CircuitState
	failures  int
	probes    int
	successes int
	openedAt  time.Time

	threshold int
	cooldown  time.Duration
}

// NewCircuitBreaker creates a closed breaker that opens after threshold
// consecutive failures and probes again after cooldown
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a call may go out, moving an expired open circuit
// to half-open
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.openedAt) >= cb.cooldown {
		cb.state = CircuitHalfOpen
		cb.probes = 0
		cb.successes = 0
	}

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitHalfOpen:
		if cb.probes < probeQuota {
			cb.probes++
			return true
		}
	}
	return false
}

// RecordSuccess resets the failure streak; enough half-open successes
// close the circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == CircuitHalfOpen {
		cb.successes++
		if cb.successes >= probeQuota {
			cb.state = CircuitClosed
		}
	}
}

// RecordFailure extends the failure streak; crossing the threshold, or any
// failure while half-open, opens the circuit
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		cb.state = CircuitOpen
		cb.openedAt = time.Now()
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
