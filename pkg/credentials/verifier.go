package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/payos/mandate-engine/pkg/models"
)

// HTTPVerifier asks the external verification service whether a credential's
// proof is valid.
type HTTPVerifier struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPVerifier creates an HTTPVerifier against the given base URL.
func NewHTTPVerifier(client *http.Client, baseURL string) *HTTPVerifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPVerifier{Client: client, BaseURL: baseURL}
}

// Make sure we conform to the interface
var _ Verifier = (*HTTPVerifier)(nil)

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Verify posts the credential to the verification service. Any transport or
// decoding failure surfaces as an error, which the binder treats as a
// rejection.
func (v *HTTPVerifier) Verify(ctx context.Context, cred *models.Credential) (bool, error) {
	body, err := json.Marshal(cred)
	if err != nil {
		return false, fmt.Errorf("failed to marshal credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/v1/credentials/verify", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call verifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode verifier response: %w", err)
	}

	return out.Valid, nil
}

// StaticVerifier reports a fixed verification result. Used in local
// development and tests.
type StaticVerifier struct {
	Valid bool
}

// Verify returns the configured result.
func (v *StaticVerifier) Verify(ctx context.Context, cred *models.Credential) (bool, error) {
	return v.Valid, nil
}
