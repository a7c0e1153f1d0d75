package solana

import "strings"

// AccountType is the role of an account within one transaction.
type AccountType uint8

const (
	AccountTypeSysvar AccountType = iota
	AccountTypeProgram
	// AccountTypeToken is a token account, one with token balances.
	AccountTypeToken
	// AccountTypeCoin is an account holding the native currency.
	AccountTypeCoin
)

// AccountTypes lists every role in classification precedence.
var AccountTypes = []AccountType{AccountTypeSysvar, AccountTypeProgram, AccountTypeToken, AccountTypeCoin}

const sysvarPrefix = "sysvar"

func (t AccountType) String() string {
	switch t {
	case AccountTypeSysvar:
		return "SYSVAR"
	case AccountTypeProgram:
		return "PROGRAM"
	case AccountTypeToken:
		return "TOKEN"
	case AccountTypeCoin:
		return "COIN"
	}
	return "UNKNOWN"
}

// IsSysvar reports whether key follows the sysvar naming convention.
func IsSysvar(key string) bool {
	return len(key) >= len(sysvarPrefix) && strings.EqualFold(key[:len(sysvarPrefix)], sysvarPrefix)
}

// AccountsByType maps each role to its accounts. Every role is present, possibly empty.
type AccountsByType map[AccountType]AccountSet

func newAccountsByType() AccountsByType {
	byType := make(AccountsByType, len(AccountTypes))
	for _, t := range AccountTypes {
		byType[t] = AccountSet{}
	}
	return byType
}

// Count is the total number of role assignments.
func (b AccountsByType) Count() int {
	n := 0
	for _, s := range b {
		n += len(s)
	}
	return n
}

// Keys returns the sorted keys per role name, the shape used for export.
func (b AccountsByType) Keys() map[string][]string {
	out := make(map[string][]string, len(b))
	for t, s := range b {
		out[t.String()] = s.Keys()
	}
	return out
}
