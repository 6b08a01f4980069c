package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// IdentityOracle is the external proof-of-personhood verifier. Verifying
// under a different action namespace yields a pseudonym unlinkable to any
// other namespace's pseudonyms.
type IdentityOracle struct {
	baseURL string
	client  *http.Client
}

// NewIdentityOracle returns nil when no URL is configured; callers treat a
// nil oracle as "re-verification cannot complete here".
func NewIdentityOracle(baseURL string) *IdentityOracle {
	if baseURL == "" {
		return nil
	}
	return &IdentityOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type oracleVerifyRequest struct {
	Action string `json:"action"`
	Proof  string `json:"proof"`
}

type oracleVerifyResponse struct {
	Success   bool   `json:"success"`
	Pseudonym string `json:"pseudonym"`
	Message   string `json:"message"`
}

// Verify submits a proof under the given action namespace and returns the
// fresh pseudonym the oracle issued for it.
func (o *IdentityOracle) Verify(ctx context.Context, action, proof string) (string, error) {
	if o == nil {
		return "", errors.New("identity oracle not configured")
	}

	body, err := json.Marshal(oracleVerifyRequest{Action: action, Proof: proof})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var out oracleVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if !out.Success || out.Pseudonym == "" {
		return "", fmt.Errorf("oracle rejected proof: %s", out.Message)
	}
	return out.Pseudonym, nil
}
