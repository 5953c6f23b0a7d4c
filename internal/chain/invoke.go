package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// InvokeFunction invokes a contract function (read-only test invocation).
func (c *Client) InvokeFunction(ctx context.Context, scriptHash string, method string, params []ContractParam, signers []Signer) (*InvokeResult, error) {
	if params == nil {
		params = []ContractParam{}
	}
	args := []interface{}{scriptHash, method, params}
	if len(signers) > 0 {
		args = append(args, signers)
	}

	result, err := c.Call(ctx, "invokefunction", args)
	if err != nil {
		return nil, err
	}

	var invokeResult InvokeResult
	if err := json.Unmarshal(result, &invokeResult); err != nil {
		return nil, err
	}
	return &invokeResult, nil
}

// DefaultTxWaitTimeout is the default timeout for waiting for transaction execution.
const DefaultTxWaitTimeout = 2 * time.Minute

// DefaultPollInterval is the default interval for polling transaction status.
const DefaultPollInterval = 2 * time.Second

// WaitForApplicationLog polls for a transaction application log until it is
// available or the context is done. A missing transaction is treated as
// transient and retried.
func (c *Client) WaitForApplicationLog(ctx context.Context, txHash string, pollInterval time.Duration) (*ApplicationLog, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			log, err := c.GetApplicationLog(ctx, txHash)
			if err != nil {
				if isNotFoundError(err) {
					continue
				}
				return nil, err
			}
			return log, nil
		}
	}
}

// TestInvoke performs a read-only invocation and fails if the VM did not HALT.
func (c *Client) TestInvoke(ctx context.Context, scriptHash, method string, params []ContractParam) ([]StackItem, error) {
	result, err := c.InvokeFunction(ctx, scriptHash, method, params, nil)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", method, err)
	}
	if result.Faulted() {
		return nil, fmt.Errorf("%s faulted: %s", method, result.Exception)
	}
	return result.Stack, nil
}
