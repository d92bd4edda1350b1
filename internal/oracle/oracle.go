// Package oracle provides the HTTP client for the external milestone
// verifier. The escrow core treats proofs as opaque bytes; this client
// just ships them to the configured verifier and relays its verdict.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/movebridge/relofund/internal/escrow"
)

// Client posts milestone proofs to an external verifier.
type Client struct {
	addr string
	http *http.Client
}

// Dial returns an oracle client for the given verifier base address.
// Its signature matches escrow.OracleDialer so it can be injected
// directly into the ledger.
func Dial(addr string) escrow.Oracle {
	return &Client{
		addr: strings.TrimRight(addr, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	FundID    int64  `json:"fund_id"`
	Milestone string `json:"milestone"`
	Proof     []byte `json:"proof"`
}

type verifyResponse struct {
	Accepted bool `json:"accepted"`
}

// VerifyProof submits the proof and returns the verifier's verdict.
// Transport failures are returned as errors and abort the enclosing
// release; only an explicit verdict counts as accepted or rejected.
func (c *Client) VerifyProof(ctx context.Context, fundID int64, milestone string, proof []byte) (bool, error) {
	body, err := json.Marshal(verifyRequest{FundID: fundID, Milestone: milestone, Proof: proof})
	if err != nil {
		return false, fmt.Errorf("encode proof request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/verify", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build proof request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("oracle unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	var verdict verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("decode oracle verdict: %w", err)
	}
	return verdict.Accepted, nil
}
