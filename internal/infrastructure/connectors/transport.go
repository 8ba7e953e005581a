// Package connectors holds the platform adapters. Every adapter speaks its
// platform's wire format and surfaces only classified failures from the
// integration taxonomy; callers never see raw transport errors.
package connectors

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// maxResponseBody is the maximum allowed response size from a platform (10MB)
const maxResponseBody = 10 * 1024 * 1024

// defaultTimeout bounds one HTTP round trip when no client is supplied
const defaultTimeout = 30 * time.Second

// newHTTPClient returns the given client or a default one.
func newHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: defaultTimeout}
}

// readBody drains a response body with the size guard applied.
func readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
}

// classifyStatus maps a non-2xx platform response onto the failure taxonomy.
// Returns nil for success statuses.
//
//	401/403        -> AUTH
//	429            -> RATE_LIMITED, honoring the Retry-After header
//	400/409/422    -> REMOTE_VALIDATION
//	5xx and others -> TRANSIENT_NETWORK
func classifyStatus(platform integration.PlatformCode, resp *http.Response, body []byte) error {
	status := resp.StatusCode
	if status < 400 {
		return nil
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return integration.NewFailure(integration.FailureAuth, platform,
			fmt.Sprintf("HTTP %d: %s", status, bodyExcerpt(body)))
	case status == http.StatusTooManyRequests:
		return integration.NewRateLimitedFailure(platform,
			fmt.Sprintf("HTTP 429: %s", bodyExcerpt(body)), retryAfterOf(resp.Header))
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return integration.NewFailure(integration.FailureRemoteValidation, platform,
			fmt.Sprintf("HTTP %d: %s", status, bodyExcerpt(body)))
	default:
		return integration.NewFailure(integration.FailureTransientNetwork, platform,
			fmt.Sprintf("HTTP %d: %s", status, bodyExcerpt(body)))
	}
}

// classifyTransport wraps a transport-level error (timeout, connection reset,
// DNS) as TRANSIENT_NETWORK.
func classifyTransport(platform integration.PlatformCode, err error) error {
	return integration.WrapFailure(integration.FailureTransientNetwork, platform, err)
}

// retryAfterOf parses the Retry-After header. Only the delta-seconds form is
// honored; platforms here never send the HTTP-date form.
func retryAfterOf(header http.Header) time.Duration {
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// bodyExcerpt trims a response body for inclusion in failure messages.
func bodyExcerpt(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
