package agentstep

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openclaw/agentcore/pkg/llmgateway"
)

// gatewayClient polls the LLM gateway's per-task interaction log during an
// iteration (spec §4.D step 5). Grounded on pkg/runbook's GitHubClient: a
// bare *http.Client, context-scoped requests, explicit status check.
type gatewayClient struct {
	httpClient *http.Client
	baseURL    string
}

func newGatewayClient(baseURL string) *gatewayClient {
	return &gatewayClient{httpClient: &http.Client{Timeout: 10 * time.Second}, baseURL: baseURL}
}

type interactionsResponse struct {
	Turns []llmgateway.Turn `json:"turns"`
}

// since returns every turn recorded for taskID after ordinal `after`.
func (c *gatewayClient) since(ctx context.Context, taskID string, after int) ([]llmgateway.Turn, error) {
	url := fmt.Sprintf("%s/interactions/%s?since=%d", c.baseURL, taskID, after)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer task:"+taskID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway interactions poll: HTTP %d", resp.StatusCode)
	}

	var decoded interactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded.Turns, nil
}
