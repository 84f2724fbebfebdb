package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const maxBodyBytes = 16 << 20

var (
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrCircuitOpen      = errors.New("circuit breaker open")

	errCallerDone = errors.New("caller context done")
)

// RetryPolicy controls exponential backoff between attempts against one feed.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      2,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     5 * time.Second,
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d - status: %s", e.code, e.status)
}

func (e *statusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// fetcher issues GETs against a single upstream feed behind a circuit breaker.
type fetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   RetryPolicy
}

func newFetcher(name string, client *http.Client, retry RetryPolicy) *fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = DefaultRetryPolicy.InitialInterval
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}

	return &fetcher{
		client: client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
			// A request abandoned by its caller says nothing about the upstream.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errCallerDone)
			},
		}),
		retry: retry,
	}
}

// get returns the response body of a successful GET, retrying transport errors,
// 429 and 5xx responses with exponential backoff.
func (f *fetcher) get(ctx context.Context, url string) ([]byte, error) {
	var attempt int

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := f.breaker.Execute(func() (interface{}, error) {
			body, err := f.do(ctx, url)
			if err != nil && ctx.Err() != nil {
				return nil, errCallerDone
			}
			return body, err
		})
		if err == nil {
			return result.([]byte), nil
		}
		if errors.Is(err, errCallerDone) {
			return nil, ctx.Err()
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}
		if ctx.Err() != nil || attempt >= f.retry.MaxRetries {
			return nil, err
		}

		delay := f.retry.InitialInterval << attempt
		if f.retry.MaxInterval > 0 && delay > f.retry.MaxInterval {
			delay = f.retry.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func (f *fetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error reading resp.Body: %w", err)
	}
	return body, nil
}
