// Package solana implements the XP ledger client for the Solana JSON-RPC API.
package solana

import "encoding/json"

// ══════════════════════════════════════════════════════════════════════════════
// JSON-RPC ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// rpcRequest is the JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcError is the JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ══════════════════════════════════════════════════════════════════════════════
// getTokenAccountsByOwner
// ══════════════════════════════════════════════════════════════════════════════

// rpcTokenAccountsResponse is the response envelope for getTokenAccountsByOwner.
type rpcTokenAccountsResponse struct {
	JSONRPC string                  `json:"jsonrpc"`
	ID      int                     `json:"id"`
	Result  *rpcTokenAccountsResult `json:"result"`
	Error   *rpcError               `json:"error"`
}

type rpcTokenAccountsResult struct {
	Context rpcContext        `json:"context"`
	Value   []rpcTokenAccount `json:"value"`
}

type rpcContext struct {
	Slot uint64 `json:"slot"`
}

type rpcTokenAccount struct {
	Pubkey  string              `json:"pubkey"`
	Account rpcTokenAccountInfo `json:"account"`
}

type rpcTokenAccountInfo struct {
	Data rpcTokenAccountData `json:"data"`
}

type rpcTokenAccountData struct {
	Parsed  *rpcTokenAccountParsed `json:"parsed"`
	Program string                 `json:"program"`
}

type rpcTokenAccountParsed struct {
	Type string              `json:"type"`
	Info rpcTokenAccountMeta `json:"info"`
}

type rpcTokenAccountMeta struct {
	Mint        string         `json:"mint"`
	Owner       string         `json:"owner"`
	TokenAmount rpcTokenAmount `json:"tokenAmount"`
}

// rpcTokenAmount is the parsed token balance. Amount is the raw integer
// amount as a decimal string; UIAmount is lossy and never used for XP math.
type rpcTokenAmount struct {
	Amount   json.Number `json:"amount"`
	Decimals int         `json:"decimals"`
	UIAmount *float64    `json:"uiAmount"`
}

// ══════════════════════════════════════════════════════════════════════════════
// getHealth
// ══════════════════════════════════════════════════════════════════════════════

// rpcHealthResponse is the response envelope for getHealth.
// A healthy node returns the literal string "ok".
type rpcHealthResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Result  string    `json:"result"`
	Error   *rpcError `json:"error"`
}
