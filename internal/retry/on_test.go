package retry_test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"overlap-diff/internal/retry"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustRetryOn(t *testing.T, s string) *retry.On {
	t.Helper()

	o, err := retry.NewRetryOnFromString(s)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

func TestOn_CheckResponse(t *testing.T) {
	type in struct {
		retryOn    string
		statusCode int
	}

	tests := []struct {
		name string
		in   in
		want bool
	}{
		{line(), in{"5xx", 500}, true},
		{line(), in{"5xx", 599}, true},
		{line(), in{"5xx", 404}, false},
		{line(), in{"gateway-error", 502}, true},
		{line(), in{"gateway-error", 504}, true},
		{line(), in{"gateway-error", 500}, false},
		{line(), in{"retriable-4xx", 409}, true},
		{line(), in{"retriable-4xx", 429}, false},
		{line(), in{"rate-limited", 429}, true},
		{line(), in{"418, 451", 451}, true},
		{line(), in{"418, 451", 400}, false},
		{line(), in{"", 503}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mustRetryOn(t, tt.in.retryOn).CheckResponse(&http.Response{StatusCode: tt.in.statusCode})
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}

	t.Run("Default", func(t *testing.T) {
		t.Parallel()

		o := retry.NewDefaultRetryOn()
		for code, want := range map[int]bool{200: false, 409: true, 429: true, 500: false, 503: true} {
			if got := o.CheckResponse(&http.Response{StatusCode: code}); got != want {
				t.Errorf("status %d: expected %v, got %v", code, want, got)
			}
		}
	})
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

func TestOn_CheckError(t *testing.T) {
	type in struct {
		retryOn string
		err     error
	}

	tests := []struct {
		name string
		in   in
		want bool
	}{
		{line(), in{"5xx", io.EOF}, true},
		{line(), in{"5xx", &net.DNSError{IsTemporary: true}}, true},
		{line(), in{"5xx", errors.New("")}, false},
		{line(), in{"connect-failure", timeoutError{}}, true},
		{line(), in{"connect-failure", &net.OpError{Op: "read", Err: syscall.ECONNRESET}}, true},
		{line(), in{"connect-failure", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}}, true},
		{line(), in{"connect-failure", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF)}, true},
		{line(), in{"gateway-error", io.EOF}, false},
		{line(), in{"retriable-4xx", timeoutError{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mustRetryOn(t, tt.in.retryOn).CheckError(tt.in.err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRetryOnFromString_Invalid(t *testing.T) {
	if _, err := retry.NewRetryOnFromString("5xx,sometimes"); err == nil {
		t.Errorf("Expected an error for an unknown retry condition")
	}
}
