package solana

import (
	"encoding/json"
	"fmt"
)

// Accounts is the ordered account registry of one transaction, indexed by position and key.
type Accounts struct {
	signature string
	accounts  []Account
	byKey     map[string]Account
}

// NewAccounts builds a registry from a transaction's raw accountKeys list.
func NewAccounts(signature string, raw []json.RawMessage) (*Accounts, error) {
	accounts := make([]Account, 0, len(raw))
	for i, r := range raw {
		a, err := accountFromValue(uint32(i), r)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return newAccounts(signature, accounts)
}

func newAccounts(signature string, accounts []Account) (*Accounts, error) {
	byKey := make(map[string]Account, len(accounts))
	for i, a := range accounts {
		if a.Index != uint32(i) {
			return nil, fmt.Errorf("%w: account %s has index %d at position %d", ErrMalformedPayload, a.Key, a.Index, i)
		}
		if _, ok := byKey[a.Key]; ok {
			return nil, fmt.Errorf("%w: %s in transaction %s", ErrDuplicateAccount, a.Key, signature)
		}
		byKey[a.Key] = a
	}
	return &Accounts{signature: signature, accounts: accounts, byKey: byKey}, nil
}

// Signature of the transaction owning the registry.
func (a *Accounts) Signature() string { return a.signature }

func (a *Accounts) Len() int { return len(a.accounts) }

// All returns the accounts in index order. The slice must not be modified.
func (a *Accounts) All() []Account { return a.accounts }

func (a *Accounts) Get(key string) (Account, bool) {
	acc, ok := a.byKey[key]
	return acc, ok
}

// ByKey returns the account with the given key or ErrUnresolvedAccount.
func (a *Accounts) ByKey(key string) (Account, error) {
	acc, ok := a.byKey[key]
	if !ok {
		return Account{}, fmt.Errorf("%w: key %s in transaction %s", ErrUnresolvedAccount, key, a.signature)
	}
	return acc, nil
}

// ByIndex returns the account at the given position or ErrUnresolvedAccount.
func (a *Accounts) ByIndex(i int) (Account, error) {
	if i < 0 || i >= len(a.accounts) {
		return Account{}, fmt.Errorf("%w: index %d of %d in transaction %s", ErrUnresolvedAccount, i, len(a.accounts), a.signature)
	}
	return a.accounts[i], nil
}

// Resolve returns the accounts for the given keys.
func (a *Accounts) Resolve(keys ...string) (AccountSet, error) {
	out := make(AccountSet, len(keys))
	for _, k := range keys {
		acc, err := a.ByKey(k)
		if err != nil {
			return nil, err
		}
		out.Add(acc)
	}
	return out, nil
}

// ResolveIndices returns the accounts at the given positions.
func (a *Accounts) ResolveIndices(indices ...int) (AccountSet, error) {
	out := make(AccountSet, len(indices))
	for _, i := range indices {
		acc, err := a.ByIndex(i)
		if err != nil {
			return nil, err
		}
		out.Add(acc)
	}
	return out, nil
}

// Set returns every account of the registry as a set.
func (a *Accounts) Set() AccountSet {
	return NewAccountSet(a.accounts...)
}
