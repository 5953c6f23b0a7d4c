package chain

import (
	"encoding/json"
	"fmt"
)

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      int             `json:"id"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ContractParam is a typed parameter for contract invocation.
type ContractParam struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Signer scopes a transaction signer for invocation.
type Signer struct {
	Account string `json:"account"`
	Scopes  string `json:"scopes"`
}

// InvokeResult is the outcome of an invokefunction / invokescript call.
type InvokeResult struct {
	Script      string      `json:"script"`
	State       string      `json:"state"`
	GasConsumed string      `json:"gasconsumed"`
	Exception   string      `json:"exception,omitempty"`
	Tx          string      `json:"tx,omitempty"`
	Stack       []StackItem `json:"stack"`
}

// Faulted reports whether the invocation ended in a VM fault.
func (r *InvokeResult) Faulted() bool {
	return r.State != "HALT"
}

// StackItem is a Neo VM stack item as returned by the RPC layer.
type StackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ApplicationLog is the execution log of a transaction.
type ApplicationLog struct {
	TxID       string      `json:"txid"`
	Executions []Execution `json:"executions"`
}

// Execution is a single VM execution within an application log.
type Execution struct {
	Trigger       string      `json:"trigger"`
	VMState       string      `json:"vmstate"`
	Exception     string      `json:"exception,omitempty"`
	GasConsumed   string      `json:"gasconsumed"`
	Stack         []StackItem `json:"stack"`
	Notifications []struct {
		Contract  string    `json:"contract"`
		EventName string    `json:"eventname"`
		State     StackItem `json:"state"`
	} `json:"notifications"`
}
