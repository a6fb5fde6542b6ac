package nodehttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNotFound = errors.New("not found")

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) String() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

type rpcResult struct {
	Ok  json.RawMessage `json:"Ok"`
	Err json.RawMessage `json:"Err"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result *rpcResult      `json:"result"`
	Error  *rpcError       `json:"error"`
}

type tipResult struct {
	Height          uint64 `json:"height"`
	LastBlockPushed string `json:"last_block_pushed"`
}

type outputResult struct {
	Commit      string `json:"commit"`
	BlockHeight uint64 `json:"block_height"`
	OutputType  string `json:"output_type"`
	Spent       bool   `json:"spent"`
}

func (o outputResult) GetCommit() string {
	return o.Commit
}

func (o outputResult) GetHeight() uint64 {
	return o.BlockHeight
}

func (o outputResult) IsCoinbase() bool {
	return strings.EqualFold(o.OutputType, "Coinbase")
}

type txKernel struct {
	Features json.RawMessage `json:"features"`
	Excess   string          `json:"excess"`
}

type kernelResult struct {
	TxKernel txKernel `json:"tx_kernel"`
	Height   uint64   `json:"height"`
	MMRIndex uint64   `json:"mmr_index"`
}

func (k kernelResult) GetExcess() string {
	return k.TxKernel.Excess
}

func (k kernelResult) GetHeight() uint64 {
	return k.Height
}

func isNotFound(raw json.RawMessage) bool {
	return strings.Contains(string(raw), "NotFound")
}
