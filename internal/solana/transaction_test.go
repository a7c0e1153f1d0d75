package solana

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountBalanceChanges(t *testing.T) {
	txn := loadTransaction(t, sigNativeTransfer)

	changes, err := txn.AccountBalanceChanges()
	require.NoError(t, err)
	require.Len(t, changes, txn.Accounts.Len())

	deltas := make([]int64, 0, 2)
	for _, c := range changes[:2] {
		assert.Equal(t, NativeScale, c.Change.Scale())
		assert.Empty(t, c.Mint)
		deltas = append(deltas, c.Change.Int64())
	}
	assert.Equal(t, []int64{-1000001, 1000000}, deltas)

	total, err := txn.TotalAccountBalanceChange(AggAll)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), total.Int64())

	fee, err := txn.Fee()
	require.NoError(t, err)
	assert.Equal(t, int64(1000001), fee.Int64())

	ok, err := txn.IsSuccessful()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccountBalanceChangesLengthMismatch(t *testing.T) {
	raw := `{"meta": {"err": null, "fee": 5000, "preBalances": [1, 2], "postBalances": [1]},
		"transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1", "B2"], "instructions": []}}}`
	txn, err := NewTransaction(json.RawMessage(raw))
	require.NoError(t, err)

	_, err = txn.AccountBalanceChanges()
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestTokenBalanceChanges(t *testing.T) {
	txn := loadTransaction(t, sigTokenTransfer)

	changes, err := txn.TokenBalanceChanges()
	require.NoError(t, err)
	require.Len(t, changes, 2)

	src, ok := changes.Get("7UX2i7SucgLMQcfZ75s3VXmZZY4YRUyJN9X1RgfMoDUi")
	require.True(t, ok)
	assert.Equal(t, usdcMint, src.Mint)
	assert.Equal(t, uint8(6), src.Change.Scale())
	assert.Equal(t, int64(10000), src.Start.Int64())
	assert.Equal(t, int64(-4000), src.Change.Int64())

	// created by the transaction, starts at zero
	dst, ok := changes.Get("3uTzTX5GBSfbW7eM9R9k95H7Txe32Qw3Z25MtyD2dzwC")
	require.True(t, ok)
	assert.True(t, dst.Start.IsZero())
	assert.Equal(t, int64(4000), dst.Change.Int64())

	totals, err := txn.TotalTokenChanges(AggAll)
	require.NoError(t, err)
	assert.True(t, totals[usdcMint].IsZero())

	totals, err = txn.TotalTokenChanges(AggAbs)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), totals[usdcMint].Int64())

	mints, err := txn.Mints()
	require.NoError(t, err)
	assert.Equal(t, []string{usdcMint}, mints)
}

func TestTokenBalanceChangesClosedAccount(t *testing.T) {
	raw := `{"meta": {"err": null, "fee": 0, "preBalances": [0, 0], "postBalances": [0, 0],
		"preTokenBalances": [{"accountIndex": 1, "mint": "M1", "uiTokenAmount": {"amount": "42", "decimals": 2}}],
		"postTokenBalances": []},
		"transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1", "B2"], "instructions": []}}}`
	txn, err := NewTransaction(json.RawMessage(raw))
	require.NoError(t, err)

	changes, err := txn.TokenBalanceChanges()
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "M1", changes[0].Mint)
	assert.True(t, changes[0].End.IsZero())
	assert.Equal(t, int64(-42), changes[0].Change.Int64())
	assert.Equal(t, uint8(2), changes[0].Change.Scale())
}

func TestTokenBalanceUnresolvedIndex(t *testing.T) {
	raw := `{"meta": {"err": null, "fee": 0, "preBalances": [0], "postBalances": [0],
		"preTokenBalances": [],
		"postTokenBalances": [{"accountIndex": 5, "mint": "M1", "uiTokenAmount": {"amount": "1", "decimals": 0}}]},
		"transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1"], "instructions": []}}}`
	txn, err := NewTransaction(json.RawMessage(raw))
	require.NoError(t, err)

	_, err = txn.TokenBalanceChanges()
	assert.ErrorIs(t, err, ErrUnresolvedAccount)
}

func TestAccountsByType(t *testing.T) {
	txn := loadTransaction(t, sigTokenTransfer)

	byType, err := txn.AccountsByType()
	require.NoError(t, err)

	assert.Equal(t, []string{"SysvarRent111111111111111111111111111111111"}, byType[AccountTypeSysvar].Keys())
	assert.Equal(t, []string{
		"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
		"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
	}, byType[AccountTypeProgram].Keys())
	assert.Equal(t, []string{
		"3uTzTX5GBSfbW7eM9R9k95H7Txe32Qw3Z25MtyD2dzwC",
		"7UX2i7SucgLMQcfZ75s3VXmZZY4YRUyJN9X1RgfMoDUi",
	}, byType[AccountTypeToken].Keys())
	assert.Equal(t, []string{usdcMint, "HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH"}, byType[AccountTypeCoin].Keys())

	// every account in exactly one role
	assert.Equal(t, txn.Accounts.Len(), byType.Count())
	for _, a := range txn.Accounts.All() {
		n := 0
		for _, role := range AccountTypes {
			if byType[role].Contains(a) {
				n++
			}
		}
		assert.Equal(t, 1, n, a.Key)
	}
}

func TestDerivationsAreMemoized(t *testing.T) {
	txn := loadTransaction(t, sigTokenTransfer)

	first, err := txn.Instructions()
	require.NoError(t, err)
	second, err := txn.Instructions()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	c1, err := txn.AccountBalanceChanges()
	require.NoError(t, err)
	c2, err := txn.AccountBalanceChanges()
	require.NoError(t, err)
	assert.Equal(t, c1, c2)

	b1, err := txn.AccountsByType()
	require.NoError(t, err)
	b2, err := txn.AccountsByType()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestTransactionRequiresSignatures(t *testing.T) {
	_, err := NewTransaction(json.RawMessage(`{"meta": {}, "transaction": {"signatures": [], "message": {"accountKeys": []}}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = NewTransaction(json.RawMessage(`{"meta": {}, "transaction": {"signatures": ["s"], "message": {}}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = NewTransaction(json.RawMessage(`{"meta": {}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestFailedTransaction(t *testing.T) {
	txn := loadTransaction(t, sigFailed)

	ok, err := txn.IsSuccessful()
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := txn.HasInstructionOf(SystemTransfer.ProgramName, SystemTransfer.InstructionType)
	require.NoError(t, err)
	assert.True(t, has)
}
