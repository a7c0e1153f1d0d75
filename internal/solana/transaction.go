package solana

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Transaction is one transaction of a block. Derived fields are computed on first access and
// cached for the lifetime of the instance.
type Transaction struct {
	// Signature is the first signature, used as the identifier.
	Signature  string
	Signatures []string
	Accounts   *Accounts

	rawMeta         json.RawMessage
	rawInstructions json.RawMessage

	meta                  lazy[*TxnMeta]
	instructions          lazy[Instructions]
	accountBalanceChanges lazy[BalanceChanges]
	tokenBalanceChanges   lazy[BalanceChanges]
	accountsByType        lazy[AccountsByType]
}

// NewTransaction parses the signatures and account registry of a raw {meta, transaction} entry.
// Everything else is parsed on first access.
func NewTransaction(raw json.RawMessage) (*Transaction, error) {
	var txn blockTxn
	if err := json.Unmarshal(raw, &txn); err != nil {
		return nil, fmt.Errorf("%w: transaction: %v", ErrMalformedPayload, err)
	}
	if txn.Transaction == nil {
		return nil, fmt.Errorf("%w: missing transaction", ErrMalformedPayload)
	}
	if len(txn.Transaction.Signatures) == 0 {
		return nil, fmt.Errorf("%w: transaction has no signatures", ErrMalformedPayload)
	}
	signature := txn.Transaction.Signatures[0]

	if txn.Transaction.Message == nil || txn.Transaction.Message.AccountKeys == nil {
		return nil, fmt.Errorf("%w: transaction %s has no accountKeys", ErrMalformedPayload, signature)
	}
	msg := txn.Transaction.Message

	accounts, err := NewAccounts(signature, msg.AccountKeys)
	if err != nil {
		return nil, err
	}

	return &Transaction{
		Signature:       signature,
		Signatures:      txn.Transaction.Signatures,
		Accounts:        accounts,
		rawMeta:         txn.Meta,
		rawInstructions: msg.Instructions,
	}, nil
}

// Meta returns the decoded status metadata.
func (t *Transaction) Meta() (*TxnMeta, error) {
	return t.meta.get(func() (*TxnMeta, error) {
		if isNull(t.rawMeta) {
			return nil, fmt.Errorf("%w: transaction %s has no meta", ErrMalformedPayload, t.Signature)
		}
		var meta TxnMeta
		if err := json.Unmarshal(t.rawMeta, &meta); err != nil {
			return nil, fmt.Errorf("%w: meta of %s: %v", ErrMalformedPayload, t.Signature, err)
		}
		return &meta, nil
	})
}

func (t *Transaction) IsSuccessful() (bool, error) {
	meta, err := t.Meta()
	if err != nil {
		return false, err
	}
	return meta.Err == nil, nil
}

// Fee paid in lamports.
func (t *Transaction) Fee() (NumberWithScale, error) {
	meta, err := t.Meta()
	if err != nil {
		return NumberWithScale{}, err
	}
	if meta.Fee == nil {
		return NumberWithScale{}, fmt.Errorf("%w: transaction %s has no fee", ErrMalformedPayload, t.Signature)
	}
	return ParseNumberWithScale(meta.Fee.String(), NativeScale)
}

// HasSignature reports whether sig is any of the transaction's signatures.
func (t *Transaction) HasSignature(sig string) bool {
	for _, s := range t.Signatures {
		if s == sig {
			return true
		}
	}
	return false
}

// Instructions returns the outer instructions with their inner instructions nested and ids set.
func (t *Transaction) Instructions() (Instructions, error) {
	return t.instructions.get(t.buildInstructions)
}

func (t *Transaction) buildInstructions() (Instructions, error) {
	meta, err := t.Meta()
	if err != nil {
		return nil, err
	}
	if isNull(t.rawInstructions) {
		return nil, fmt.Errorf("%w: transaction %s has no instructions", ErrMalformedPayload, t.Signature)
	}
	var outer []json.RawMessage
	if err := json.Unmarshal(t.rawInstructions, &outer); err != nil {
		return nil, fmt.Errorf("%w: instructions of %s: %v", ErrMalformedPayload, t.Signature, err)
	}

	inner := make(map[int]Instructions, len(meta.InnerInstructions))
	for _, ii := range meta.InnerInstructions {
		if ii.Index < 0 || ii.Index >= len(outer) {
			return nil, fmt.Errorf("%w: inner instructions for index %d, transaction %s has %d instructions",
				ErrMalformedPayload, ii.Index, t.Signature, len(outer))
		}
		for _, raw := range ii.Instructions {
			ins, err := parseInstruction(t.Accounts, raw, nil)
			if err != nil {
				return nil, err
			}
			inner[ii.Index] = append(inner[ii.Index], ins)
		}
	}

	instructions := make(Instructions, 0, len(outer))
	for i, raw := range outer {
		ins, err := parseInstruction(t.Accounts, raw, inner[i])
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ins)
	}
	return instructions.SetIDs(""), nil
}

// HasInstructionOf reports whether any instruction, outer or inner, matches.
func (t *Transaction) HasInstructionOf(programName, instructionType string) (bool, error) {
	instructions, err := t.Instructions()
	if err != nil {
		return false, err
	}
	return len(instructions.Filter(programName, instructionType, false)) > 0, nil
}

// AccountBalanceChanges returns the native balance change of every account, in index order.
func (t *Transaction) AccountBalanceChanges() (BalanceChanges, error) {
	return t.accountBalanceChanges.get(func() (BalanceChanges, error) {
		meta, err := t.Meta()
		if err != nil {
			return nil, err
		}
		n := t.Accounts.Len()
		if len(meta.PreBalances) != n || len(meta.PostBalances) != n {
			return nil, fmt.Errorf("%w: transaction %s has %d accounts, %d pre and %d post balances",
				ErrMalformedPayload, t.Signature, n, len(meta.PreBalances), len(meta.PostBalances))
		}

		changes := make(BalanceChanges, 0, n)
		for i, account := range t.Accounts.All() {
			start, err := ParseNumberWithScale(meta.PreBalances[i].String(), NativeScale)
			if err != nil {
				return nil, err
			}
			end, err := ParseNumberWithScale(meta.PostBalances[i].String(), NativeScale)
			if err != nil {
				return nil, err
			}
			change, err := newBalanceChange(account, "", start, end)
			if err != nil {
				return nil, err
			}
			changes = append(changes, change)
		}
		return changes, nil
	})
}

// TotalAccountBalanceChange sums the native balance changes after applying agg.
func (t *Transaction) TotalAccountBalanceChange(agg BalanceChangeAgg) (NumberWithScale, error) {
	changes, err := t.AccountBalanceChanges()
	if err != nil {
		return NumberWithScale{}, err
	}
	total := ZeroAt(NativeScale)
	for _, c := range changes {
		if total, err = total.Add(agg.Apply(c.Change)); err != nil {
			return NumberWithScale{}, err
		}
	}
	return total, nil
}

// TokenBalanceChanges returns a change for every token account reported before or after the
// transaction, in index order. An account missing before was created and starts at zero, one
// missing after was closed and ends at zero.
func (t *Transaction) TokenBalanceChanges() (BalanceChanges, error) {
	return t.tokenBalanceChanges.get(func() (BalanceChanges, error) {
		meta, err := t.Meta()
		if err != nil {
			return nil, err
		}
		pre, err := tokenBalancesByIndex(t.Signature, meta.PreTokenBalances)
		if err != nil {
			return nil, err
		}
		post, err := tokenBalancesByIndex(t.Signature, meta.PostTokenBalances)
		if err != nil {
			return nil, err
		}

		indices := make([]int, 0, len(pre)+len(post))
		for i := range pre {
			indices = append(indices, i)
		}
		for i := range post {
			if _, ok := pre[i]; !ok {
				indices = append(indices, i)
			}
		}
		sort.Ints(indices)

		changes := make(BalanceChanges, 0, len(indices))
		for _, index := range indices {
			account, err := t.Accounts.ByIndex(index)
			if err != nil {
				return nil, err
			}

			// mint and decimals come from post when present, else from pre
			reported, hasPost := post[index]
			if !hasPost {
				reported = pre[index]
			}
			scale := *reported.UiTokenAmount.Decimals

			start, end := ZeroAt(scale), ZeroAt(scale)
			if b, ok := pre[index]; ok {
				if start, err = ParseNumberWithScale(b.UiTokenAmount.Amount, scale); err != nil {
					return nil, err
				}
			}
			if hasPost {
				if end, err = ParseNumberWithScale(reported.UiTokenAmount.Amount, scale); err != nil {
					return nil, err
				}
			}

			change, err := newBalanceChange(account, reported.Mint, start, end)
			if err != nil {
				return nil, err
			}
			changes = append(changes, change)
		}
		return changes, nil
	})
}

func tokenBalancesByIndex(signature string, balances []TokenBalance) (map[int]TokenBalance, error) {
	out := make(map[int]TokenBalance, len(balances))
	for _, b := range balances {
		if b.AccountIndex == nil || b.UiTokenAmount == nil || b.UiTokenAmount.Decimals == nil || b.Mint == "" {
			return nil, fmt.Errorf("%w: incomplete token balance in transaction %s", ErrMalformedPayload, signature)
		}
		out[*b.AccountIndex] = b
	}
	return out, nil
}

// TotalTokenChanges sums token balance changes by mint after applying agg.
func (t *Transaction) TotalTokenChanges(agg BalanceChangeAgg) (map[string]NumberWithScale, error) {
	changes, err := t.TokenBalanceChanges()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]NumberWithScale)
	for _, c := range changes {
		v := agg.Apply(c.Change)
		if cur, ok := totals[c.Mint]; ok {
			if v, err = cur.Add(v); err != nil {
				return nil, fmt.Errorf("mint %s: %w", c.Mint, err)
			}
		}
		totals[c.Mint] = v
	}
	return totals, nil
}

// Mints returns the sorted mints of every token balance change.
func (t *Transaction) Mints() ([]string, error) {
	changes, err := t.TokenBalanceChanges()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(changes))
	mints := make([]string, 0, len(changes))
	for _, c := range changes {
		if _, ok := seen[c.Mint]; ok {
			continue
		}
		seen[c.Mint] = struct{}{}
		mints = append(mints, c.Mint)
	}
	sort.Strings(mints)
	return mints, nil
}

// AccountsByType assigns every account exactly one role: sysvar by name, then program if it is
// the program of any instruction, then token if it has a token balance change, else coin.
func (t *Transaction) AccountsByType() (AccountsByType, error) {
	return t.accountsByType.get(func() (AccountsByType, error) {
		instructions, err := t.Instructions()
		if err != nil {
			return nil, err
		}
		tokenChanges, err := t.TokenBalanceChanges()
		if err != nil {
			return nil, err
		}
		programs := instructions.Programs()
		tokens := tokenChanges.Accounts()

		byType := newAccountsByType()
		for _, a := range t.Accounts.All() {
			switch {
			case IsSysvar(a.Key):
				byType[AccountTypeSysvar].Add(a)
			case programs.Contains(a):
				byType[AccountTypeProgram].Add(a)
			case tokens.Contains(a):
				byType[AccountTypeToken].Add(a)
			default:
				byType[AccountTypeCoin].Add(a)
			}
		}
		return byType, nil
	})
}
