package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/longregen/creditexplain/internal/adapters/metrics"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// halfOpenSuccesses is how many consecutive probe successes close the
// circuit again.
const halfOpenSuccesses = 3

// CircuitBreaker shields one upstream collaborator (LLM, embedder,
// reranker). It trips open after maxFailures consecutive failures, waits
// out the timeout, then lets a single probe through at a time; concurrent
// callers keep getting ErrCircuitOpen until the probes close it.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probing     bool
	lastFailure time.Time

	name        string
	maxFailures int
	timeout     time.Duration
}

// New creates a breaker named after the collaborator it protects. The name
// appears in open errors and in the state gauge.
func New(name string, maxFailures int, timeout time.Duration) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:        name,
		state:       StateClosed,
		maxFailures: maxFailures,
		timeout:     timeout,
	}
	metrics.BreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return cb
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.timeout {
		cb.setState(StateHalfOpen)
		cb.successes = 0
		cb.probing = false
	}
	switch cb.state {
	case StateOpen:
		cb.mu.Unlock()
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
		}
		cb.probing = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.setState(StateOpen)
		}
		return err
	}

	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= halfOpenSuccesses {
			cb.setState(StateClosed)
			cb.failures = 0
		}
	} else {
		cb.failures = 0
	}

	return nil
}

// setState transitions and keeps the gauge current. Caller holds the lock.
func (cb *CircuitBreaker) setState(s State) {
	cb.state = s
	metrics.BreakerState.WithLabelValues(cb.name).Set(float64(s))
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
