package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	xhttp "HypeRadar/pkg/http"
	"HypeRadar/pkg/logger"
)

// NewBreaker trips after maxFailures consecutive failures and tries again
// after openTimeout. A 404 or a caller cancellation is not a provider fault.
func NewBreaker(name string, maxFailures uint32, openTimeout time.Duration, log *logger.Logger) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     openTimeout,
	}
	st.ReadyToTrip = func(c gobreaker.Counts) bool {
		return c.ConsecutiveFailures >= maxFailures
	}
	st.IsSuccessful = func(err error) bool {
		if err == nil || errors.Is(err, context.Canceled) {
			return true
		}
		var se *xhttp.StatusError
		return errors.As(err, &se) && se.Code == http.StatusNotFound
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("circuit breaker state change",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}
	return gobreaker.NewCircuitBreaker(st)
}
