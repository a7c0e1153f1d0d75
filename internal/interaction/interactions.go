package interaction

import (
	"fmt"

	"github.com/fystack/solana-etl/internal/solana"
	"github.com/fystack/solana-etl/pkg/common/types"
)

// Interactions holds the facts derived from one or more blocks along with every isolated failure.
type Interactions struct {
	items []Interaction
	errs  *types.MultiError
}

// New walks the successful transactions of every block and derives a fact from every matching
// instruction of their flattened instruction trees. A failure affects only the instruction or
// transaction it happened in; the rest is still derived and the failures are reported by Err.
func New(blocks ...*solana.Block) *Interactions {
	out := &Interactions{errs: &types.MultiError{}}
	for _, block := range blocks {
		if block == nil || block.Missing {
			continue
		}
		txns, err := block.Transactions()
		if err != nil {
			out.errs.Add(fmt.Errorf("%w: block %s: %w", ErrDerivation, block.Source, err))
			continue
		}
		for _, txn := range txns {
			out.addTransaction(txn)
		}
	}
	return out
}

// FromTransaction derives the facts of a single transaction regardless of its status.
func FromTransaction(txn *solana.Transaction) *Interactions {
	out := &Interactions{errs: &types.MultiError{}}
	out.deriveAll(txn)
	return out
}

func (is *Interactions) addTransaction(txn *solana.Transaction) {
	ok, err := txn.IsSuccessful()
	if err != nil {
		is.errs.Add(fmt.Errorf("%w: transaction %s: %w", ErrDerivation, txn.Signature, err))
		return
	}
	if ok {
		is.deriveAll(txn)
	}
}

func (is *Interactions) deriveAll(txn *solana.Transaction) {
	instructions, err := txn.Instructions()
	if err != nil {
		is.errs.Add(fmt.Errorf("%w: transaction %s: %w", ErrDerivation, txn.Signature, err))
		return
	}
	for _, ins := range instructions.Flatten() {
		for _, d := range derivers {
			if !d.match.Matches(ins) {
				continue
			}
			item, err := d.derive(txn, ins)
			if err != nil {
				is.errs.Add(fmt.Errorf("%w: transaction %s instruction %s (%s): %w",
					ErrDerivation, txn.Signature, ins.ID, d.match, err))
			} else {
				is.items = append(is.items, item)
			}
			break
		}
	}
}

func (is *Interactions) Len() int { return len(is.items) }

// All returns the facts in block, transaction and instruction order.
func (is *Interactions) All() []Interaction { return is.items }

// Transfers returns every derived Transfer.
func (is *Interactions) Transfers() []Transfer {
	out := make([]Transfer, 0, len(is.items))
	for _, item := range is.items {
		if t, ok := item.(Transfer); ok {
			out = append(out, t)
		}
	}
	return out
}

// ByKind groups the facts by kind, keeping their order within each kind.
func (is *Interactions) ByKind() map[Kind][]Interaction {
	out := make(map[Kind][]Interaction)
	for _, item := range is.items {
		out[item.Kind()] = append(out[item.Kind()], item)
	}
	return out
}

// Err returns the collected derivation failures, or nil.
func (is *Interactions) Err() error {
	return is.errs.ErrOrNil()
}

// Errors returns the collected derivation failures individually.
func (is *Interactions) Errors() []error {
	return is.errs.Unwrap()
}
