package collectible

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/nft_lottery/internal/chain"
	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

// ContractCall is one invocation staged for on-chain submission.
type ContractCall struct {
	Contract string
	Method   string
	Params   []chain.ContractParam
}

// TxSubmitter signs and broadcasts a batch of contract calls as a single
// transaction. One transaction means the batch executes atomically on chain:
// a fault in any call reverts every call.
type TxSubmitter interface {
	SubmitBatch(ctx context.Context, calls []ContractCall) (txHash string, err error)
}

// ChainLedger is a Ledger backed by the deployed collectible token contract.
// Reads are test invocations against an RPC node; writes go through a
// TxSubmitter so signing stays outside this package.
type ChainLedger struct {
	client    *chain.Client
	contract  string // collectible token contract hash
	submitter TxSubmitter
	log       *logger.Logger
}

// NewChainLedger creates a ledger client for the given collectible contract.
func NewChainLedger(client *chain.Client, contractHash string, submitter TxSubmitter, log *logger.Logger) (*ChainLedger, error) {
	normalized, err := chain.ValidateScriptHash(contractHash)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewDefault("collectible-ledger")
	}
	return &ChainLedger{client: client, contract: normalized, submitter: submitter, log: log}, nil
}

func idParam(id uint64) chain.ContractParam {
	return chain.ContractParam{Type: "Integer", Value: strconv.FormatUint(id, 10)}
}

func hashParam(addr string) chain.ContractParam {
	return chain.ContractParam{Type: "Hash160", Value: addr}
}

// OwnerOf implements Ledger.
func (l *ChainLedger) OwnerOf(ctx context.Context, id uint64) (string, error) {
	stack, err := l.client.TestInvoke(ctx, l.contract, "ownerOf", []chain.ContractParam{idParam(id)})
	if err != nil {
		return "", err
	}
	if len(stack) == 0 {
		return "", fmt.Errorf("ownerOf %d: empty stack", id)
	}
	return chain.ParseAddressBytes(stack[0])
}

// GetApproved implements Ledger.
func (l *ChainLedger) GetApproved(ctx context.Context, id uint64) (string, error) {
	stack, err := l.client.TestInvoke(ctx, l.contract, "getApproved", []chain.ContractParam{idParam(id)})
	if err != nil {
		return "", err
	}
	if len(stack) == 0 || stack[0].Type == "Null" {
		return "", nil
	}
	return chain.ParseAddressBytes(stack[0])
}

// IsApprovedForAll implements Ledger.
func (l *ChainLedger) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	stack, err := l.client.TestInvoke(ctx, l.contract, "isApprovedForAll", []chain.ContractParam{
		hashParam(owner), hashParam(operator),
	})
	if err != nil {
		return false, err
	}
	if len(stack) == 0 {
		return false, fmt.Errorf("isApprovedForAll: empty stack")
	}
	return chain.ParseBoolean(stack[0])
}

// Mint implements Ledger as a single-op batch.
func (l *ChainLedger) Mint(ctx context.Context, id uint64, imageRef, to string) error {
	return l.Apply(ctx, []Op{{Kind: OpMint, ID: id, ImageRef: imageRef, To: to}})
}

// TransferFrom implements Ledger as a single-op batch.
func (l *ChainLedger) TransferFrom(ctx context.Context, from, to string, id uint64) error {
	return l.Apply(ctx, []Op{{Kind: OpTransfer, ID: id, From: from, To: to}})
}

// Apply implements Ledger. The ops become one transaction, so they commit or
// revert together on chain.
func (l *ChainLedger) Apply(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if l.submitter == nil {
		return fmt.Errorf("no transaction submitter configured")
	}

	calls := make([]ContractCall, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case OpMint:
			calls = append(calls, ContractCall{
				Contract: l.contract,
				Method:   "mint",
				Params: []chain.ContractParam{
					idParam(op.ID),
					{Type: "String", Value: op.ImageRef},
					hashParam(op.To),
				},
			})
		case OpTransfer:
			calls = append(calls, ContractCall{
				Contract: l.contract,
				Method:   "transferFrom",
				Params: []chain.ContractParam{
					hashParam(op.From),
					hashParam(op.To),
					idParam(op.ID),
				},
			})
		default:
			return fmt.Errorf("unknown op kind %q", op.Kind)
		}
	}

	txHash, err := l.submitter.SubmitBatch(ctx, calls)
	if err != nil {
		return fmt.Errorf("submit collectible batch: %w", err)
	}

	// The batch only counts as committed once its transaction executed and
	// halted on chain.
	wctx, cancel := context.WithTimeout(ctx, chain.DefaultTxWaitTimeout)
	defer cancel()
	applog, err := l.client.WaitForApplicationLog(wctx, txHash, 0)
	if err != nil {
		return fmt.Errorf("confirm collectible batch %s: %w", txHash, err)
	}
	for _, ex := range applog.Executions {
		if ex.VMState != "HALT" {
			return fmt.Errorf("collectible batch %s faulted: %s", txHash, ex.Exception)
		}
	}

	l.log.WithField("tx_hash", txHash).
		WithField("op_count", len(ops)).
		Info("collectible batch confirmed")
	return nil
}

var _ Ledger = (*ChainLedger)(nil)

// Properties returns the metadata map of a collectible. The node encodes
// maps as key/value stack-item pairs, which is awkward for the structured
// parsers, so the raw response is picked apart with gjson.
func (l *ChainLedger) Properties(ctx context.Context, id uint64) (map[string]string, error) {
	params := []chain.ContractParam{idParam(id)}
	raw, err := l.client.Call(ctx, "invokefunction", []interface{}{l.contract, "properties", params})
	if err != nil {
		return nil, err
	}

	if state := gjson.GetBytes(raw, "state").String(); state != "HALT" {
		return nil, fmt.Errorf("properties %d faulted: %s", id, gjson.GetBytes(raw, "exception").String())
	}

	props := make(map[string]string)
	gjson.GetBytes(raw, "stack.0.value").ForEach(func(_, pair gjson.Result) bool {
		key := decodeByteString(pair.Get("key"))
		value := decodeByteString(pair.Get("value"))
		if key != "" {
			props[key] = value
		}
		return true
	})
	return props, nil
}

func decodeByteString(item gjson.Result) string {
	if item.Get("type").String() != "ByteString" {
		return item.Get("value").String()
	}
	raw, err := base64.StdEncoding.DecodeString(item.Get("value").String())
	if err != nil {
		return ""
	}
	return string(raw)
}
