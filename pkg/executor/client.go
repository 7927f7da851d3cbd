// Package executor is the engine-side client of the external Payment
// Execution Service. The engine approves; this service moves the funds and
// reports back whether the transfer settled.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/payos/mandate-engine/pkg/models"
)

// Client executes an approved transfer.
type Client interface {
	// Execute runs the transfer for the execution and reports whether it
	// settled. A false return is a settlement failure, not a transport error.
	Execute(ctx context.Context, ex *models.Execution) (bool, error)
}

// HTTPClient implements Client against the execution service's HTTP API.
type HTTPClient struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPClient creates an HTTPClient against the given base URL.
func NewHTTPClient(client *http.Client, baseURL string) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{Client: client, BaseURL: baseURL}
}

// Make sure we conform to the interface
var _ Client = (*HTTPClient)(nil)

type executeResponse struct {
	Settled bool `json:"settled"`
}

// Execute posts the execution to the execution service. Insufficient funds
// and similar failures come back as settled=false.
func (c *HTTPClient) Execute(ctx context.Context, ex *models.Execution) (bool, error) {
	body, err := json.Marshal(ex)
	if err != nil {
		return false, fmt.Errorf("failed to marshal execution: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", ex.IdempotencyKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call execution service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("execution service returned status %d", resp.StatusCode)
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode execution service response: %w", err)
	}

	return out.Settled, nil
}
