package transform

import (
	"encoding/json"

	"github.com/fystack/solana-etl/internal/solana"
)

const transactionsStage = "blocks_to_transactions"

var transactionColumns = []Column{
	{"time", "int64"},
	{"signature", "string"},
	{"fee", "int64"},
	{"isSuccessful", "bool"},
	{"numInstructions", "int64"},
	{"programs", "string"},
	{"numAccounts", "int64"},
	{"accountsByType", "string"},
	{"lamportsOut", "int64"},
	{"lamportsIn", "int64"},
	{"numMints", "int64"},
	{"mints", "string"},
	{"tokensOut", "string"},
	{"tokensIn", "string"},
	{"blockhash", "string"},
	{"path", "string"},
}

// BlockToTransactions emits one row per transaction of the block.
func BlockToTransactions(block *solana.Block) ([]Row, []ErrorRow) {
	if block.Missing {
		return nil, nil
	}
	txns, err := block.Transactions()
	if err != nil {
		return nil, []ErrorRow{newErrorRow(transactionsStage, block, err)}
	}
	if len(txns) == 0 && len(block.TransactionErrors()) == 0 {
		return nil, nil
	}

	var errs []ErrorRow
	for _, err := range block.TransactionErrors() {
		errs = append(errs, newErrorRow(transactionsStage, block, err))
	}

	epoch, err := block.Epoch()
	if err != nil {
		return nil, append(errs, newErrorRow(transactionsStage, block, err))
	}
	hash, err := block.Hash()
	if err != nil {
		return nil, append(errs, newErrorRow(transactionsStage, block, err))
	}

	rows := make([]Row, 0, len(txns))
	for _, txn := range txns {
		row, err := transactionRow(txn)
		if err != nil {
			errs = append(errs, newErrorRow(transactionsStage, block, err))
			continue
		}
		rows = append(rows, append(Row{epoch}, append(row, hash, block.Source)...))
	}
	return rows, errs
}

// transactionRow builds the per-transaction columns, from signature to tokensIn.
func transactionRow(txn *solana.Transaction) (Row, error) {
	fee, err := txn.Fee()
	if err != nil {
		return nil, err
	}
	successful, err := txn.IsSuccessful()
	if err != nil {
		return nil, err
	}
	instructions, err := txn.Instructions()
	if err != nil {
		return nil, err
	}
	programs, err := json.Marshal(instructions.Programs().Keys())
	if err != nil {
		return nil, err
	}
	byType, err := txn.AccountsByType()
	if err != nil {
		return nil, err
	}
	accountsByType, err := json.Marshal(byType.Keys())
	if err != nil {
		return nil, err
	}
	lamportsOut, err := txn.TotalAccountBalanceChange(solana.AggOut)
	if err != nil {
		return nil, err
	}
	lamportsIn, err := txn.TotalAccountBalanceChange(solana.AggIn)
	if err != nil {
		return nil, err
	}
	mints, err := txn.Mints()
	if err != nil {
		return nil, err
	}
	mintsJSON, err := json.Marshal(mints)
	if err != nil {
		return nil, err
	}
	tokensOut, err := tokenTotals(txn, solana.AggOut)
	if err != nil {
		return nil, err
	}
	tokensIn, err := tokenTotals(txn, solana.AggIn)
	if err != nil {
		return nil, err
	}

	return Row{
		txn.Signature,
		fee.Int64(),
		successful,
		instructions.Len(),
		string(programs),
		txn.Accounts.Len(),
		string(accountsByType),
		lamportsOut.Int64(),
		lamportsIn.Int64(),
		len(mints),
		string(mintsJSON),
		tokensOut,
		tokensIn,
	}, nil
}

// tokenTotals encodes the per-mint totals as display values.
func tokenTotals(txn *solana.Transaction, agg solana.BalanceChangeAgg) (string, error) {
	totals, err := txn.TotalTokenChanges(agg)
	if err != nil {
		return "", err
	}
	floats := make(map[string]float64, len(totals))
	for mint, v := range totals {
		floats[mint] = v.Float()
	}
	b, err := json.Marshal(floats)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
