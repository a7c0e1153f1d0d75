// Package interaction derives typed facts, such as value transfers, from the instructions of
// parsed blocks.
package interaction

import (
	"errors"

	"github.com/fystack/solana-etl/internal/solana"
)

// ErrDerivation is returned when a matched instruction cannot be turned into a fact.
var ErrDerivation = errors.New("interaction derivation failed")

type Kind string

const (
	KindCoinTransfer  Kind = "coin_transfer"
	KindTokenTransfer Kind = "token_transfer"
)

// Interaction is a fact derived from one instruction of one transaction.
type Interaction interface {
	Kind() Kind
	Signature() string
}

// Transfer moves Value from Source to Destination. Mint is empty for native currency transfers.
type Transfer struct {
	TransactionSignature string
	// InstructionID is the hierarchical id of the instruction the transfer was derived from.
	InstructionID string
	Source        string
	Destination   string
	Value         solana.NumberWithScale
	Mint          string
	Authority     string
	Multisig      bool
}

func (t Transfer) Kind() Kind {
	if t.Mint == "" {
		return KindCoinTransfer
	}
	return KindTokenTransfer
}

func (t Transfer) Signature() string { return t.TransactionSignature }
