package reliability

import "strings"

// IsRetryableHTTPStatus classifies retryable HTTP status codes on the
// request/response vendor paths (tool calls, one-shot synthesis).
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// IsRetryableRealtimeMessageType classifies error message types arriving on
// the realtime vendor pipes. The transcription stream reports PascalCase
// types ("Error"); the synthesis stream reports snake_case message_type
// values. Throttling and transient overload are retryable; auth, quota, and
// malformed-input conditions are not.
func IsRetryableRealtimeMessageType(messageType string) bool {
	switch strings.ToLower(strings.TrimSpace(messageType)) {
	case "error", "rate_limited", "too_many_requests", "queue_overflow", "temporarily_unavailable":
		return true
	default:
		return false
	}
}
