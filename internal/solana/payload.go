package solana

import "encoding/json"

// JSON-RPC getBlock payload shapes (encoding=jsonParsed or json, transactionDetails=full).
// Parts that are decoded on first access stay as json.RawMessage.

type blockEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type blockResult struct {
	Blockhash         string            `json:"blockhash"`
	PreviousBlockhash string            `json:"previousBlockhash"`
	ParentSlot        uint64            `json:"parentSlot"`
	BlockHeight       *uint64           `json:"blockHeight"`
	BlockTime         *int64            `json:"blockTime"`
	Transactions      []json.RawMessage `json:"transactions"`
}

type blockTxn struct {
	Meta        json.RawMessage `json:"meta"`
	Transaction *txnEnvelope    `json:"transaction"`
}

type txnEnvelope struct {
	Signatures []string    `json:"signatures"`
	Message    *txnMessage `json:"message"`
}

type txnMessage struct {
	AccountKeys  []json.RawMessage `json:"accountKeys"`
	Instructions json.RawMessage   `json:"instructions"`
}

// TxnMeta is the transaction status metadata. Amounts stay as json.Number so they are never
// rounded through float64.
type TxnMeta struct {
	Err               any                `json:"err"`
	Fee               *json.Number       `json:"fee"`
	PreBalances       []json.Number      `json:"preBalances"`
	PostBalances      []json.Number      `json:"postBalances"`
	PreTokenBalances  []TokenBalance     `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance     `json:"postTokenBalances"`
	InnerInstructions []InnerInstruction `json:"innerInstructions"`
	LogMessages       []string           `json:"logMessages"`
}

type InnerInstruction struct {
	Index        int               `json:"index"`
	Instructions []json.RawMessage `json:"instructions"`
}

type TokenBalance struct {
	AccountIndex  *int           `json:"accountIndex"`
	Mint          string         `json:"mint"`
	Owner         string         `json:"owner"`
	ProgramID     string         `json:"programId"`
	UiTokenAmount *UiTokenAmount `json:"uiTokenAmount"`
}

type UiTokenAmount struct {
	Amount   string `json:"amount"`
	Decimals *uint8 `json:"decimals"`
}

type rawInstruction struct {
	ProgramID      *string           `json:"programId"`
	ProgramIDIndex *int              `json:"programIdIndex"`
	Program        string            `json:"program"`
	Parsed         json.RawMessage   `json:"parsed"`
	Accounts       []json.RawMessage `json:"accounts"`
	Data           string            `json:"data"`
	StackHeight    *int              `json:"stackHeight"`
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
