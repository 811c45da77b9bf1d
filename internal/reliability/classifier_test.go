package reliability

import "testing"

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		if IsRetryableHTTPStatus(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}

func TestIsRetryableRealtimeMessageType(t *testing.T) {
	for _, mt := range []string{"Error", "error", "rate_limited", "too_many_requests", "queue_overflow", "temporarily_unavailable"} {
		if !IsRetryableRealtimeMessageType(mt) {
			t.Errorf("type %q should be retryable", mt)
		}
	}
	for _, mt := range []string{"", "auth_failed", "quota_exceeded", "invalid_request", "Turn"} {
		if IsRetryableRealtimeMessageType(mt) {
			t.Errorf("type %q should not be retryable", mt)
		}
	}
}
