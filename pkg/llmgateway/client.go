package llmgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openclaw/agentcore/pkg/config"
)

// providerClient is the shared request helper every backend translator
// uses. Grounded on pkg/runbook's GitHubClient: a plain *http.Client with a
// fixed timeout, context-scoped requests, bearer auth, and an explicit
// non-2xx check before decoding (spec §7 "ProviderError").
type providerClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func newProviderClient(cfg config.LLMProviderConfig) *providerClient {
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = envLookup(cfg.APIKeyEnv)
	}
	return &providerClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     apiKey,
	}
}

// doJSON POSTs body as JSON to path and decodes a JSON response into out.
// A non-2xx status becomes ErrProviderError; a context deadline becomes
// ErrTimeout.
func (c *providerClient) doJSON(ctx context.Context, path string, body, out interface{}, authHeader func(*http.Request)) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, newJSONReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != nil {
		authHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrProviderError, resp.StatusCode, truncate(string(data), 500))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRaw POSTs body as JSON and returns the raw, still-open response body for
// a caller that wants to stream it through rather than decode it (spec §4.C
// Gemini "streaming passthrough"). The caller must close the returned body.
func (c *providerClient) doRaw(ctx context.Context, path string, body interface{}, authHeader func(*http.Request)) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, newJSONReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authHeader != nil {
		authHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrProviderError, resp.StatusCode, truncate(string(data), 500))
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
