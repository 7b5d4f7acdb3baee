package apperrors

import (
	"sync"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int

const (
	// StateClosed indicates the circuit is closed and requests flow normally.
	StateClosed CircuitState = iota
	// StateOpen indicates the circuit is open and requests fail fast.
	StateOpen
	// StateHalfOpen indicates the circuit is testing recovery with limited requests.
	StateHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards calls to the REST backend.
//
// State transitions:
//   - Closed -> Open: after maxFailures consecutive failures
//   - Open -> Half-Open: once resetTimeout has elapsed since the last failure
//   - Half-Open -> Closed: after halfOpenMaxCalls successes
//   - Half-Open -> Open: on any failure
//
// A breaker with maxFailures <= 0 never opens.
type CircuitBreaker struct {
	name             string
	maxFailures      int
	resetTimeout     time.Duration
	halfOpenMaxCalls int

	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
	mu              sync.Mutex
}

// NewCircuitBreaker creates a breaker. halfOpenMaxCalls defaults to 3.
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration, halfOpenMaxCalls int) *CircuitBreaker {
	if halfOpenMaxCalls <= 0 {
		halfOpenMaxCalls = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		maxFailures:      maxFailures,
		resetTimeout:     resetTimeout,
		halfOpenMaxCalls: halfOpenMaxCalls,
		state:            StateClosed,
	}
}

// Execute runs operation unless the circuit is open and records its outcome.
func (cb *CircuitBreaker) Execute(operation func() error) error {
	if !cb.CanMakeRequest() {
		return cb.OpenError()
	}

	err := operation()
	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// CanMakeRequest reports whether a request may pass. An open circuit whose
// timeout has elapsed moves to half-open here.
func (cb *CircuitBreaker) CanMakeRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if time.Since(cb.lastFailureTime) > cb.resetTimeout {
		logger.Logtype(logger.StatusInfo, 0).
			Str("circuit", cb.name).
			Str("to_state", StateHalfOpen.String()).
			Msg("circuit breaker transitioning to half-open")
		cb.state = StateHalfOpen
		cb.failures = 0
		cb.successes = 0
		return true
	}
	return false
}

// RecordSuccess registers a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.halfOpenMaxCalls {
			logger.Logtype(logger.StatusInfo, 0).
				Str("circuit", cb.name).
				Int("successes", cb.successes).
				Msg("circuit breaker recovered")
			cb.toClosed()
		}
	}
}

// RecordFailure registers a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.maxFailures <= 0 {
		return
	}
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.maxFailures {
			logger.Logtype(logger.StatusWarning, 0).
				Str("circuit", cb.name).
				Int("failures", cb.failures).
				Dur("reset_timeout", cb.resetTimeout).
				Msg("circuit breaker opened")
			cb.state = StateOpen
			cb.successes = 0
		}
	case StateHalfOpen:
		logger.Logtype(logger.StatusWarning, 0).
			Str("circuit", cb.name).
			Msg("circuit breaker reopened after half-open failure")
		cb.state = StateOpen
		cb.successes = 0
	}
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}

// OpenError is the error returned while the circuit rejects requests.
func (cb *CircuitBreaker) OpenError() error {
	return New(ErrClassNetwork, "circuit_breaker", "Le service distant est temporairement indisponible.").
		WithContext("circuit", cb.name)
}

// GetState returns the current state of the circuit breaker.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetFailureCount returns the number of consecutive failures.
func (cb *CircuitBreaker) GetFailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset puts the breaker back into the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toClosed()
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}
