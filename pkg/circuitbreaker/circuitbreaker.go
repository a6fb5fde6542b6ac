package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// MaxNumOfFailingRequests ...
	MaxNumOfFailingRequests = 10
	// FailingRatio ...
	FailingRatio = 0.6
	// OpenTimeout is how long the breaker stays open before letting a probe
	// request through.
	OpenTimeout = 30 * time.Second

	// ErrOpen is returned without calling the guarded function while the
	// breaker does not let requests through.
	ErrOpen = errors.New("circuit breaker is open")
)

// Breaker guards calls to a remote service. Only errors classified as
// failures count against the service, so that a cancelled context or a
// rejected request does not trip it.
type Breaker struct {
	cb        *gobreaker.CircuitBreaker
	isFailure func(error) bool
}

// New returns a Breaker that trips once more than MaxNumOfFailingRequests
// requests were made and at least FailingRatio of them failed.
// Both callbacks are optional. By default every error except context
// cancellation is a failure.
func New(
	name string,
	isFailure func(error) bool,
	onStateChange func(name string, from, to gobreaker.State),
) *Breaker {
	if len(name) <= 0 {
		name = "circuitbreaker"
	}
	if isFailure == nil {
		isFailure = defaultIsFailure
	}
	return &Breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:          name,
			Timeout:       OpenTimeout,
			ReadyToTrip:   readyToTrip,
			OnStateChange: onStateChange,
		}),
		isFailure: isFailure,
	}
}

// Execute runs fn if the breaker is closed or half-open and records its
// outcome.
func (b *Breaker) Execute(fn func() error) error {
	var callErr error
	_, err := b.cb.Execute(func() (interface{}, error) {
		callErr = fn()
		if callErr != nil && b.isFailure(callErr) {
			return nil, callErr
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}
	if err != nil {
		return err
	}
	return callErr
}

// State returns the current state of the breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 {
		return false
	}
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	return int(counts.Requests) > MaxNumOfFailingRequests && ratio >= FailingRatio
}

func defaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}
