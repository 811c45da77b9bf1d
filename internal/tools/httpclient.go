package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lucaferri/parla/internal/reliability"
)

const maxToolResponseBytes = 64 * 1024

var httpClient = &http.Client{Timeout: 10 * time.Second}

// doWithRetry issues the request built by build, retrying transient failures
// with exponential backoff. Tool calls sit inside a live turn, so the total
// retry window is kept short.
func doWithRetry(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = 8 * time.Second

	var body []byte
	op := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			if reliability.IsRetryableHTTPStatus(resp.StatusCode) {
				return err
			}
			return backoff.Permanent(err)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxToolResponseBytes))
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
