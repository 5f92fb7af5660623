package retry

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/xerrors"
)

// Transport retries requests according to RetryOn, sleeping between attempts
// as RetryStrategy dictates or longer when the server sends Retry-After.
// Requests with a body are retried only when the body can be replayed
// through GetBody.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

// NewClient returns a traced client that retries gateway errors, 409s and
// connection failures with exponential backoff.
func NewClient(timeout time.Duration, maxRetryCount uint) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &Transport{
			Base:          otelhttp.NewTransport(http.DefaultTransport),
			RetryStrategy: NewExponentialBackOff(100*time.Millisecond, 5*time.Second, maxRetryCount, nil),
			RetryOn:       NewDefaultRetryOn(),
		},
	}
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	attempt := request

	for retryCount := uint(0); ; retryCount++ {
		sleep, exceeded := t.retryStrategy().Sleep(retryCount)
		retriable := !exceeded && t.RetryOn != nil && replayable(request)

		response, err := t.base().RoundTrip(attempt)
		if err != nil {
			if !retriable || !t.RetryOn.CheckError(err) {
				return nil, err
			}
		} else {
			if !retriable || !t.RetryOn.CheckResponse(response) {
				return response, nil
			}
			if retryAfter, ok := RetryAfter(response, time.Now()); ok {
				sleep = max(sleep, retryAfter)
			}
			response.Body.Close()
		}

		if err := wait(ctx, sleep); err != nil {
			return nil, err
		}

		attempt, err = rewind(request)
		if err != nil {
			return nil, err
		}
	}
}

func replayable(request *http.Request) bool {
	return request.Body == nil || request.Body == http.NoBody || request.GetBody != nil
}

func rewind(request *http.Request) (*http.Request, error) {
	if request.Body == nil || request.Body == http.NoBody {
		return request, nil
	}

	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind request body: %w", err)
	}
	attempt := request.Clone(request.Context())
	attempt.Body = body
	return attempt, nil
}

func wait(ctx context.Context, sleep time.Duration) error {
	timer := time.NewTimer(sleep)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}
