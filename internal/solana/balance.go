package solana

import (
	"fmt"
	"strings"
)

// BalanceChange is the pre/post balance of one account. Mint is empty for the native currency.
type BalanceChange struct {
	Account Account
	Mint    string
	Start   NumberWithScale
	End     NumberWithScale
	Change  NumberWithScale
}

func newBalanceChange(account Account, mint string, start, end NumberWithScale) (BalanceChange, error) {
	change, err := end.Sub(start)
	if err != nil {
		return BalanceChange{}, err
	}
	return BalanceChange{Account: account, Mint: mint, Start: start, End: end, Change: change}, nil
}

// BalanceChanges are ordered by account index.
type BalanceChanges []BalanceChange

func (c BalanceChanges) Get(key string) (BalanceChange, bool) {
	for _, bc := range c {
		if bc.Account.Key == key {
			return bc, true
		}
	}
	return BalanceChange{}, false
}

func (c BalanceChanges) Accounts() AccountSet {
	s := make(AccountSet, len(c))
	for _, bc := range c {
		s.Add(bc.Account)
	}
	return s
}

// BalanceChangeAgg selects how a delta contributes to an aggregate.
type BalanceChangeAgg uint8

const (
	// AggAll keeps the signed delta.
	AggAll BalanceChangeAgg = iota
	// AggAbs uses the absolute delta.
	AggAbs
	// AggIn keeps positive deltas only.
	AggIn
	// AggOut keeps negative deltas only.
	AggOut
)

func (a BalanceChangeAgg) Apply(v NumberWithScale) NumberWithScale {
	switch a {
	case AggAbs:
		return v.Abs()
	case AggIn:
		if v.Sign() > 0 {
			return v
		}
		return v.Zero()
	case AggOut:
		if v.Sign() < 0 {
			return v
		}
		return v.Zero()
	default:
		return v
	}
}

func (a BalanceChangeAgg) String() string {
	switch a {
	case AggAbs:
		return "ABS"
	case AggIn:
		return "IN"
	case AggOut:
		return "OUT"
	default:
		return "ALL"
	}
}

func ParseBalanceChangeAgg(s string) (BalanceChangeAgg, error) {
	switch strings.ToUpper(s) {
	case "ALL":
		return AggAll, nil
	case "ABS":
		return AggAbs, nil
	case "IN":
		return AggIn, nil
	case "OUT":
		return AggOut, nil
	}
	return AggAll, fmt.Errorf("unknown balance change aggregation %q", s)
}
