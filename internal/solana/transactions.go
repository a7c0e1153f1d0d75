package solana

// Transactions is an ordered collection of transactions with aggregate queries.
type Transactions []*Transaction

// Filter keeps the transactions matching keep. The first error from keep is returned.
func (ts Transactions) Filter(keep func(*Transaction) (bool, error)) (Transactions, error) {
	out := make(Transactions, 0, len(ts))
	for _, t := range ts {
		ok, err := keep(t)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (ts Transactions) Successful() (Transactions, error) {
	return ts.Filter(func(t *Transaction) (bool, error) {
		return t.IsSuccessful()
	})
}

func (ts Transactions) Errors() (Transactions, error) {
	return ts.Filter(func(t *Transaction) (bool, error) {
		ok, err := t.IsSuccessful()
		return !ok, err
	})
}

// Votes keeps transactions with at least one vote program instruction.
func (ts Transactions) Votes() (Transactions, error) {
	return ts.Filter(func(t *Transaction) (bool, error) {
		return t.HasInstructionOf(VoteProgram.ProgramName, VoteProgram.InstructionType)
	})
}

// OnlyFee keeps transactions whose net native balance change is exactly minus the fee.
func (ts Transactions) OnlyFee() (Transactions, error) {
	return ts.Filter(onlyFee)
}

// MoreThanFee keeps transactions that moved native balance beyond paying the fee.
func (ts Transactions) MoreThanFee() (Transactions, error) {
	return ts.Filter(func(t *Transaction) (bool, error) {
		ok, err := onlyFee(t)
		return !ok, err
	})
}

func onlyFee(t *Transaction) (bool, error) {
	net, err := t.TotalAccountBalanceChange(AggAll)
	if err != nil {
		return false, err
	}
	fee, err := t.Fee()
	if err != nil {
		return false, err
	}
	return net.Equal(fee.Neg()), nil
}

// Fees sums the fees of all transactions.
func (ts Transactions) Fees() (NumberWithScale, error) {
	total := ZeroAt(NativeScale)
	for _, t := range ts {
		fee, err := t.Fee()
		if err != nil {
			return NumberWithScale{}, err
		}
		if total, err = total.Add(fee); err != nil {
			return NumberWithScale{}, err
		}
	}
	return total, nil
}

// BalanceChange sums every transaction's native balance change after applying agg.
func (ts Transactions) BalanceChange(agg BalanceChangeAgg) (NumberWithScale, error) {
	total := ZeroAt(NativeScale)
	for _, t := range ts {
		change, err := t.TotalAccountBalanceChange(agg)
		if err != nil {
			return NumberWithScale{}, err
		}
		if total, err = total.Add(change); err != nil {
			return NumberWithScale{}, err
		}
	}
	return total, nil
}

// AccountsByType is the per-role union of every transaction's classification. An account
// classified differently by two transactions is in both roles.
func (ts Transactions) AccountsByType() (AccountsByType, error) {
	byType := newAccountsByType()
	for _, t := range ts {
		txnByType, err := t.AccountsByType()
		if err != nil {
			return nil, err
		}
		for role, accounts := range txnByType {
			for k, a := range accounts {
				byType[role][k] = a
			}
		}
	}
	return byType, nil
}

// Find returns the first transaction with sig among its signatures.
func (ts Transactions) Find(sig string) (*Transaction, bool) {
	for _, t := range ts {
		if t.HasSignature(sig) {
			return t, true
		}
	}
	return nil, false
}
