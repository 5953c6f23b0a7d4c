// Package relay submits contract writes to an external signing service.
// Private keys never enter the lottery process: the relay holds the operator
// wallet, signs the assembled transaction, and broadcasts it.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/R3E-Network/nft_lottery/internal/bank"
	"github.com/R3E-Network/nft_lottery/internal/collectible"
	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

// Client talks to the signer relay over HTTP. It implements the submitter
// seams of both token ledgers.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// New creates a relay client for the given base URL.
func New(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("relay")
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type batchRequest struct {
	Calls []collectible.ContractCall `json:"calls"`
}

type transferRequest struct {
	Contract string `json:"contract"`
	From     string `json:"from"`
	To       string `json:"to"`
	Amount   int64  `json:"amount"`
}

type submitResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error,omitempty"`
}

// SubmitBatch implements collectible.TxSubmitter.
func (c *Client) SubmitBatch(ctx context.Context, calls []collectible.ContractCall) (string, error) {
	return c.post(ctx, "/v1/batch", batchRequest{Calls: calls})
}

// SubmitTransfer implements bank.TxSubmitter.
func (c *Client) SubmitTransfer(ctx context.Context, tokenContract, from, to string, amount int64) (string, error) {
	return c.post(ctx, "/v1/transfer", transferRequest{
		Contract: tokenContract,
		From:     from,
		To:       to,
		Amount:   amount,
	})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call signer relay: %w", err)
	}
	defer resp.Body.Close()

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("signer relay: %s", out.Error)
		}
		return "", fmt.Errorf("signer relay returned status %d", resp.StatusCode)
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("signer relay returned no transaction hash")
	}
	return out.TxHash, nil
}

var (
	_ collectible.TxSubmitter = (*Client)(nil)
	_ bank.TxSubmitter        = (*Client)(nil)
)
