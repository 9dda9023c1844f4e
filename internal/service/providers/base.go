package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"HypeRadar/internal/domain/repository"
	"HypeRadar/internal/service/cache"
	"HypeRadar/internal/service/ratelimit"
	xhttp "HypeRadar/pkg/http"
	"HypeRadar/pkg/logger"
	"HypeRadar/pkg/metrics"
)

// Option configures a provider client.
type Option func(*base)

func WithHTTPClient(hc *http.Client) Option {
	return func(b *base) { b.hc = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(b *base) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithMinDelay sets the minimum spacing between two calls to the provider.
func WithMinDelay(d time.Duration) Option {
	return func(b *base) { b.minDelay = d }
}

func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(b *base) {
		if maxFailures > 0 {
			b.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			b.openTimeout = openTimeout
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(b *base) {
		if m != nil {
			b.metrics = m
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l
		}
	}
}

func WithCacheOptions(opts ...cache.Option) Option {
	return func(b *base) { b.cacheOpts = append(b.cacheOpts, opts...) }
}

// WithClock is used by tests that depend on date windows.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// base holds what every provider shares: the JSON client, a process-wide
// pacer and a circuit breaker.
type base struct {
	name    string
	baseURL string
	headers map[string]string

	hc          *http.Client
	timeout     time.Duration
	minDelay    time.Duration
	maxFailures uint32
	openTimeout time.Duration
	cacheOpts   []cache.Option
	headlines   HeadlineScorer
	now         func() time.Time

	client  *xhttp.Client
	pacer   *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics repository.Metrics
	log     *logger.Logger
}

func newBase(name, baseURL string, opts []Option) *base {
	b := &base{
		name:        name,
		baseURL:     baseURL,
		timeout:     15 * time.Second,
		maxFailures: 5,
		openTimeout: time.Minute,
		now:         time.Now,
		metrics:     metrics.Nop{},
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	clientOpts := []xhttp.ClientOption{xhttp.WithTimeout(b.timeout)}
	if b.hc != nil {
		clientOpts = append(clientOpts, xhttp.WithHTTPClient(b.hc))
	}
	b.client = xhttp.NewClient(clientOpts...)
	b.pacer = ratelimit.NewPacer(b.minDelay)
	b.log = b.log.With(logger.String("provider", name))
	b.breaker = NewBreaker(name, b.maxFailures, b.openTimeout, b.log)
	return b
}

// getJSON performs a paced, breaker-guarded GET and decodes the body into
// dest. Every failure wraps repository.ErrUnavailable.
func (b *base) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if err := b.pacer.Wait(ctx, b.name); err != nil {
		return b.fail(path, "timeout", err)
	}

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         b.baseURL + path,
			Headers:     b.headers,
			QueryParams: query,
		}, dest)
	})
	if err != nil {
		return b.fail(path, errorKind(err), err)
	}
	return nil
}

func (b *base) fail(path, kind string, err error) error {
	b.metrics.RecordProviderError(b.name, kind)
	b.log.Debug("provider call failed", logger.String("path", path), logger.String("kind", kind), logger.Error(err))
	return fmt.Errorf("%s %s: %w: %w", b.name, path, repository.ErrUnavailable, err)
}

func (b *base) unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %s", b.name, repository.ErrUnavailable, fmt.Sprintf(format, args...))
}

func errorKind(err error) string {
	var se *xhttp.StatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.As(err, &se) && se.Code == http.StatusTooManyRequests:
		return "rate_limited"
	case errors.As(err, &se):
		return "status"
	default:
		return "transport"
	}
}
