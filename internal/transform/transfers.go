package transform

import (
	"github.com/fystack/solana-etl/internal/interaction"
	"github.com/fystack/solana-etl/internal/solana"
)

const transfersStage = "blocks_to_transfers"

var transferColumns = []Column{
	{"time", "int64"},
	{"source", "string"},
	{"destination", "string"},
	{"mint", "string"},
	{"value", "decimal"},
	{"scale", "int64"},
	{"transaction", "string"},
	{"blockhash", "string"},
	{"path", "string"},
}

// BlockToTransfers emits one row per transfer derived from the block's successful transactions.
// Value is the integer magnitude, exact even beyond int64.
func BlockToTransfers(block *solana.Block) ([]Row, []ErrorRow) {
	if block.Missing {
		return nil, nil
	}
	txns, err := block.Transactions()
	if err != nil {
		return nil, []ErrorRow{newErrorRow(transfersStage, block, err)}
	}
	if len(txns) == 0 && len(block.TransactionErrors()) == 0 {
		return nil, nil
	}

	var errs []ErrorRow
	for _, err := range block.TransactionErrors() {
		errs = append(errs, newErrorRow(transfersStage, block, err))
	}

	epoch, err := block.Epoch()
	if err != nil {
		return nil, append(errs, newErrorRow(transfersStage, block, err))
	}
	hash, err := block.Hash()
	if err != nil {
		return nil, append(errs, newErrorRow(transfersStage, block, err))
	}

	interactions := interaction.New(block)
	for _, err := range interactions.Errors() {
		errs = append(errs, newErrorRow(transfersStage, block, err))
	}

	transfers := interactions.Transfers()
	rows := make([]Row, 0, len(transfers))
	for _, t := range transfers {
		rows = append(rows, Row{
			epoch,
			t.Source,
			t.Destination,
			t.Mint,
			t.Value.Magnitude().String(),
			int(t.Value.Scale()),
			t.TransactionSignature,
			hash,
			block.Source,
		})
	}
	return rows, errs
}
