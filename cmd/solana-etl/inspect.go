package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fystack/solana-etl/internal/interaction"
	"github.com/fystack/solana-etl/internal/solana"
	"github.com/fystack/solana-etl/pkg/common/logger"
)

func inspectCmd() *cobra.Command {
	var (
		signature string
		logLevel  string
	)
	cmd := &cobra.Command{
		Use:   "inspect <block-file>",
		Short: "Log a summary of a block file, or of one of its transactions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := initLogger(logLevel); err != nil {
				return err
			}
			block, err := solana.OpenBlock(args[0])
			if err != nil {
				return err
			}
			if signature != "" {
				return inspectTransaction(block, signature)
			}
			return inspectBlock(block)
		},
	}
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "signature of a transaction to inspect")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	return cmd
}

func inspectBlock(block *solana.Block) error {
	if block.Missing {
		logger.Info("Block is missing", "source", block.Source)
		return nil
	}
	t, err := block.Time()
	if err != nil {
		return err
	}
	hash, err := block.Hash()
	if err != nil {
		return err
	}
	txns, err := block.Transactions()
	if err != nil {
		return err
	}
	successful, err := txns.Successful()
	if err != nil {
		return err
	}
	votes, err := txns.Votes()
	if err != nil {
		return err
	}
	fees, err := txns.Fees()
	if err != nil {
		return err
	}

	logger.Info("Block",
		"source", block.Source,
		"time", t,
		"hash", hash,
		"transactions", len(txns),
		"successful", len(successful),
		"votes", len(votes),
		"fees", fees.String(),
		"unparsed", len(block.TransactionErrors()),
	)
	for _, err := range block.TransactionErrors() {
		logger.Warn("Unparsed transaction", "err", err)
	}

	interactions := interaction.New(block)
	for kind, items := range interactions.ByKind() {
		logger.Info("Interactions", "kind", kind, "count", len(items))
	}
	for _, err := range interactions.Errors() {
		logger.Warn("Interaction not derived", "err", err)
	}
	return nil
}

func inspectTransaction(block *solana.Block, signature string) error {
	txn, ok := block.FindTransaction(signature)
	if !ok {
		return fmt.Errorf("transaction %s not found in %s", signature, block.Source)
	}
	success, err := txn.IsSuccessful()
	if err != nil {
		return err
	}
	fee, err := txn.Fee()
	if err != nil {
		return err
	}
	ins, err := txn.Instructions()
	if err != nil {
		return err
	}
	byType, err := txn.AccountsByType()
	if err != nil {
		return err
	}
	programs := ins.Programs().Keys()
	sort.Strings(programs)

	logger.Info("Transaction",
		"signature", txn.Signature,
		"successful", success,
		"fee", fee.String(),
		"instructions", ins.Flatten().IDs(),
		"programs", programs,
	)
	for _, role := range solana.AccountTypes {
		keys := byType[role].Keys()
		sort.Strings(keys)
		logger.Info("Accounts", "role", role.String(), "keys", keys)
	}

	for _, tr := range interaction.FromTransaction(txn).Transfers() {
		logger.Info("Transfer",
			"instruction", tr.InstructionID,
			"kind", tr.Kind(),
			"source", tr.Source,
			"destination", tr.Destination,
			"value", tr.Value.String(),
			"mint", tr.Mint,
		)
	}
	return nil
}
