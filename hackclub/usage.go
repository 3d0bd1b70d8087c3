package hackclub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetUsageMetrics fetches the per-credential totals from /stats. The proxy
// sometimes answers errors with a plain-text body, so a non-JSON response
// is surfaced verbatim.
func (c *Client) GetUsageMetrics(ctx context.Context, apiKey string) (UsageMetrics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats", nil)
	if err != nil {
		return UsageMetrics{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return UsageMetrics{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UsageMetrics{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var metrics UsageMetrics
	if err := json.Unmarshal(body, &metrics); err != nil {
		return UsageMetrics{}, fmt.Errorf("API error: %s", string(body))
	}
	return metrics, nil
}
