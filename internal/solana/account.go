package solana

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

// Account is a public key at a position in one transaction. Identity is the key alone; Signer and
// Writable are nil when the encoding did not report them.
type Account struct {
	Index    uint32
	Key      string
	Signer   *bool
	Writable *bool
}

// accountKey is the jsonParsed encoding of an account key.
type accountKey struct {
	Pubkey   *string `json:"pubkey"`
	Signer   *bool   `json:"signer"`
	Writable *bool   `json:"writable"`
}

// accountFromValue parses an account that is either a bare key string or a
// {pubkey, signer, writable} object.
func accountFromValue(index uint32, raw json.RawMessage) (Account, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var key string
		if err := json.Unmarshal(raw, &key); err != nil {
			return Account{}, fmt.Errorf("%w: account key %d: %v", ErrMalformedPayload, index, err)
		}
		return Account{Index: index, Key: key}, nil
	}

	var ak accountKey
	if err := json.Unmarshal(raw, &ak); err != nil {
		return Account{}, fmt.Errorf("%w: account key %d: %v", ErrMalformedPayload, index, err)
	}
	if ak.Pubkey == nil {
		return Account{}, fmt.Errorf("%w: account key %d has no pubkey", ErrMalformedPayload, index)
	}
	return Account{Index: index, Key: *ak.Pubkey, Signer: ak.Signer, Writable: ak.Writable}, nil
}

func (a Account) Equal(o Account) bool { return a.Key == o.Key }

func (a Account) String() string { return a.Key }

// AccountSet is a set of accounts keyed by public key.
type AccountSet map[string]Account

func NewAccountSet(accounts ...Account) AccountSet {
	s := make(AccountSet, len(accounts))
	for _, a := range accounts {
		s[a.Key] = a
	}
	return s
}

func (s AccountSet) Add(a Account) { s[a.Key] = a }

func (s AccountSet) Contains(a Account) bool {
	_, ok := s[a.Key]
	return ok
}

func (s AccountSet) ContainsKey(key string) bool {
	_, ok := s[key]
	return ok
}

// Union returns a new set with the members of both sets.
func (s AccountSet) Union(o AccountSet) AccountSet {
	out := make(AccountSet, len(s)+len(o))
	for k, a := range s {
		out[k] = a
	}
	for k, a := range o {
		out[k] = a
	}
	return out
}

// Keys returns the sorted public keys of the set.
func (s AccountSet) Keys() []string {
	keys := lo.Keys(s)
	sort.Strings(keys)
	return keys
}
