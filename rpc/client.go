// Package rpc implements the ledger.Submitter capability over the ledger's
// JSON-RPC HTTP interface: rent queries, account reads for the
// authoritative tree root, blockhash fetch, and signed transaction
// submission.
package rpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/cnftree/cnftree/config"
	"github.com/cnftree/cnftree/keys"
	"github.com/cnftree/cnftree/ledger"
	"github.com/cnftree/cnftree/log"
	"github.com/cnftree/cnftree/types"
)

// ErrRPC reports an error response from the endpoint.
var ErrRPC = errors.New("rpc: endpoint returned error")

// Client is a JSON-RPC HTTP client implementing ledger.Submitter.
type Client struct {
	endpoint   string
	commitment string
	hc         *http.Client
	log        *log.Logger
	nextID     atomic.Uint64
}

var _ ledger.Submitter = (*Client)(nil)

// New creates a Client from the given configuration.
func New(cfg config.Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		commitment: cfg.Commitment,
		hc:         &http.Client{Timeout: cfg.RequestTimeout.Std()},
		log:        logger.Module("rpc"),
	}
}

type request struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *respError      `json:"error"`
}

type respError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(request{
		Jsonrpc: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("rpc: encode %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc: %s: unexpected status %s", method, resp.Status)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("rpc: decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%w: %s: %s (code %d)", ErrRPC, method, decoded.Error.Message, decoded.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("rpc: decode %s result: %w", method, err)
		}
	}
	return nil
}

// MinimumBalanceForRentExemption implements ledger.Submitter.
func (c *Client) MinimumBalanceForRentExemption(ctx context.Context, size uint64) (uint64, error) {
	var lamports uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", []any{size}, &lamports); err != nil {
		return 0, err
	}
	return lamports, nil
}

// LatestBlockhash fetches the blockhash transactions are anchored to.
func (c *Client) LatestBlockhash(ctx context.Context) (types.Hash, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	params := []any{map[string]any{"commitment": c.commitment}}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return types.Hash{}, err
	}
	hash, err := types.HashFromBase58(result.Value.Blockhash)
	if err != nil {
		return types.Hash{}, fmt.Errorf("rpc: blockhash: %w", err)
	}
	return hash, nil
}

// TreeRoot implements ledger.Submitter. It reads the tree account and
// extracts the root of the active change-log entry.
func (c *Client) TreeRoot(ctx context.Context, tree types.Pubkey) (types.Hash, error) {
	var result struct {
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	}
	params := []any{
		tree.Base58(),
		map[string]any{"encoding": "base64", "commitment": c.commitment},
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return types.Hash{}, err
	}
	if result.Value == nil || len(result.Value.Data) == 0 {
		return types.Hash{}, fmt.Errorf("rpc: tree account %s not found", tree)
	}
	raw, err := base64.StdEncoding.DecodeString(result.Value.Data[0])
	if err != nil {
		return types.Hash{}, fmt.Errorf("rpc: tree account data: %w", err)
	}
	return ledger.ParseTreeRoot(raw)
}

// Submit implements ledger.Submitter: fetch a blockhash, compile and sign
// the message, and send the wire transaction base64-encoded.
func (c *Client) Submit(ctx context.Context, payer types.Pubkey, instrs []ledger.Instruction, signers []*keys.Keypair) (types.Signature, error) {
	blockhash, err := c.LatestBlockhash(ctx)
	if err != nil {
		return types.Signature{}, err
	}
	msg, err := ledger.CompileMessage(payer, blockhash, instrs)
	if err != nil {
		return types.Signature{}, err
	}
	wire, err := ledger.SignTransaction(msg, signers)
	if err != nil {
		return types.Signature{}, err
	}

	var sigB58 string
	params := []any{
		base64.StdEncoding.EncodeToString(wire),
		map[string]any{"encoding": "base64", "preflightCommitment": c.commitment},
	}
	if err := c.call(ctx, "sendTransaction", params, &sigB58); err != nil {
		return types.Signature{}, err
	}
	sig, err := types.SignatureFromBase58(sigB58)
	if err != nil {
		return types.Signature{}, fmt.Errorf("rpc: transaction signature: %w", err)
	}
	c.log.Info("transaction submitted", "signature", sig.Base58(), "instructions", len(instrs))
	return sig, nil
}
