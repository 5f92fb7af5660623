package retry_test

import (
	"fmt"
	"math"
	"net/http"
	"overlap-diff/internal/retry"
	"runtime"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func identity(n int64) int64 {
	return n
}

func line() string {
	_, _, line, _ := runtime.Caller(1)
	return fmt.Sprintf("L%d", line)
}

func TestStrategy_Sleep(t *testing.T) {
	type in struct {
		retryCount uint
	}

	type want struct {
		sleep    time.Duration
		exceeded bool
	}

	tests := []struct {
		name     string
		receiver retry.Strategy
		in       in
		want     want
	}{
		{line(), retry.NewNever(), in{0}, want{0, true}},
		{line(), retry.NewExponentialBackOff(0, math.MaxInt64, 0, nil), in{0}, want{0, true}},
		{line(), retry.NewExponentialBackOff(0, math.MaxInt64, 1, identity), in{0}, want{0, false}},
		{line(), retry.NewExponentialBackOff(0, math.MaxInt64, 1, identity), in{1}, want{0, true}},
		{line(), retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 3, identity), in{0}, want{100 * time.Millisecond, false}},
		{line(), retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 3, identity), in{2}, want{400 * time.Millisecond, false}},
		{line(), retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 10, identity), in{8}, want{5 * time.Second, false}},
		{line(), retry.NewExponentialBackOff(1*time.Second, math.MaxInt64, 64, identity), in{63}, want{time.Duration(math.MaxInt64), false}},
		{line(), retry.NewExponentialBackOff(100*time.Second, math.MaxInt64, 32, identity), in{31}, want{time.Duration(math.MaxInt64), false}},
		{line(), retry.NewExponentialBackOff(0, 0, 1, nil), in{0}, want{0, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSleep, gotExceeded := tt.receiver.Sleep(tt.in.retryCount)
			if diff := cmp.Diff(tt.want, want{gotSleep, gotExceeded}, cmp.AllowUnexported(want{})); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestStrategy_SleepJitter(t *testing.T) {
	t.Parallel()

	strategy := retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 5, nil)
	for i := 0; i < 100; i++ {
		sleep, exceeded := strategy.Sleep(2)
		if exceeded {
			t.Fatal("Expected a retry to be left")
		}
		if sleep < 0 || sleep >= 400*time.Millisecond {
			t.Fatalf("Expected a delay in [0, 400ms), got %v", sleep)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	type want struct {
		delay time.Duration
		ok    bool
	}

	tests := []struct {
		name   string
		header string
		want   want
	}{
		{line(), "", want{0, false}},
		{line(), "3", want{3 * time.Second, true}},
		{line(), "3600", want{30 * time.Second, true}},
		{line(), "-1", want{0, false}},
		{line(), now.Add(10 * time.Second).Format(http.TimeFormat), want{10 * time.Second, true}},
		{line(), now.Add(-10 * time.Second).Format(http.TimeFormat), want{0, true}},
		{line(), "soon", want{0, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			response := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				response.Header.Set("Retry-After", tt.header)
			}
			gotDelay, gotOK := retry.RetryAfter(response, now)
			if diff := cmp.Diff(tt.want, want{gotDelay, gotOK}, cmp.AllowUnexported(want{})); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}

	t.Run("NilResponse", func(t *testing.T) {
		t.Parallel()

		if _, ok := retry.RetryAfter(nil, now); ok {
			t.Error("Expected no delay for a nil response")
		}
	})
}
