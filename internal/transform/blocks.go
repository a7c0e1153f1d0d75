package transform

import (
	"github.com/fystack/solana-etl/internal/solana"
)

const blocksStage = "block_info"

var blockColumns = []Column{
	{"time", "int64"},
	{"hash", "string"},
	{"path", "string"},
	{"numTransactions", "int64"},
	{"numSuccessful", "int64"},
	{"successfulVotes", "int64"},
	{"successfulTransactionsMoreThanFee", "int64"},
	{"successfulTransactionsOnlyFee", "int64"},
	{"successfulFees", "int64"},
	{"successfulBalanceChange", "int64"},
	{"successfulProgramAccounts", "int64"},
	{"successfulCoinAccounts", "int64"},
	{"successfulTokenAccounts", "int64"},
	{"numErrors", "int64"},
	{"errorVotes", "int64"},
	{"errorTransactionsMoreThanFee", "int64"},
	{"errorTransactionsOnlyFee", "int64"},
	{"errorFees", "int64"},
	{"errorBalanceChange", "int64"},
	{"errorProgramAccounts", "int64"},
	{"errorCoinAccounts", "int64"},
	{"errorTokenAccounts", "int64"},
}

// BlockInfo emits a single summary row for the block, with statistics for its successful and its
// failed transactions. Missing blocks produce no row.
func BlockInfo(block *solana.Block) ([]Row, []ErrorRow) {
	if block.Missing {
		return nil, nil
	}
	row, err := blockRow(block)
	if err != nil {
		return nil, []ErrorRow{newErrorRow(blocksStage, block, err)}
	}
	return []Row{row}, nil
}

func blockRow(block *solana.Block) (Row, error) {
	epoch, err := block.Epoch()
	if err != nil {
		return nil, err
	}
	hash, err := block.Hash()
	if err != nil {
		return nil, err
	}
	txns, err := block.Transactions()
	if err != nil {
		return nil, err
	}

	row := Row{epoch, hash, block.Source, len(txns)}

	successful, err := txns.Successful()
	if err != nil {
		return nil, err
	}
	failed, err := txns.Errors()
	if err != nil {
		return nil, err
	}
	for _, subset := range []solana.Transactions{successful, failed} {
		stats, err := subsetStats(subset)
		if err != nil {
			return nil, err
		}
		row = append(row, stats...)
	}
	return row, nil
}

func subsetStats(txns solana.Transactions) (Row, error) {
	votes, err := txns.Votes()
	if err != nil {
		return nil, err
	}
	moreThanFee, err := txns.MoreThanFee()
	if err != nil {
		return nil, err
	}
	onlyFee, err := txns.OnlyFee()
	if err != nil {
		return nil, err
	}
	fees, err := txns.Fees()
	if err != nil {
		return nil, err
	}
	out, err := txns.BalanceChange(solana.AggOut)
	if err != nil {
		return nil, err
	}
	byType, err := txns.AccountsByType()
	if err != nil {
		return nil, err
	}

	return Row{
		len(txns),
		len(votes),
		len(moreThanFee),
		len(onlyFee),
		fees.Int64(),
		out.Int64(),
		len(byType[solana.AccountTypeProgram]),
		len(byType[solana.AccountTypeCoin]),
		len(byType[solana.AccountTypeToken]),
	}, nil
}
