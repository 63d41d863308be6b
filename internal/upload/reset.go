package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// ResetSession asks the backend to reset a session after a reload. The response body is ignored.
func (c *Client) ResetSession(ctx context.Context, sessionID string) error {
	endpoint := c.baseURL + "/assessment/reset-session-on-refresh/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("reset session returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// ResetThen requests a session reset and runs next regardless of the outcome.
// A timeout follows the same continuation as success.
func (c *Client) ResetThen(ctx context.Context, sessionID string, timeout time.Duration, next func()) {
	resetCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.ResetSession(resetCtx, sessionID); err != nil {
		log.Printf("Session reset for %s did not complete: %v", sessionID, err)
	} else {
		log.Printf("Session %s reset after restart", sessionID)
	}
	next()
}
