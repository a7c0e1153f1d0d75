package solana

import (
	"encoding/json"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionTree(t *testing.T) {
	txn := loadTransaction(t, sigTokenTransfer)

	instructions, err := txn.Instructions()
	require.NoError(t, err)
	require.Len(t, instructions, 2)
	assert.Equal(t, 3, instructions.Len())
	assert.Equal(t, []string{"0", "1"}, instructions.IDs())

	outer := instructions[0]
	assert.Equal(t, KindOpaque, outer.Kind)
	assert.Equal(t, "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4", outer.Program.Key)
	require.Len(t, outer.Inner, 1)
	assert.Equal(t, "0.0", outer.Inner[0].ID)
	assert.True(t, SplTokenTransferChecked.Matches(outer.Inner[0]))
	assert.Len(t, outer.Opaque.Accounts, 4)

	data, err := outer.Opaque.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "3Bxs4h24hBtQy9rw", base58.Encode(data))

	transfer := instructions[1]
	require.Equal(t, KindParsed, transfer.Kind)
	assert.True(t, transfer.IsOf("spl-token", "transfer"))
	assert.True(t, transfer.IsOf("spl-token", ""))
	assert.False(t, transfer.IsOf("system", "transfer"))

	source, ok := transfer.Parsed.Account("source")
	require.True(t, ok)
	assert.Equal(t, uint32(1), source.Index)
	amount, err := transfer.Parsed.Amount("amount", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), amount.Int64())

	assert.Equal(t, []string{
		"7UX2i7SucgLMQcfZ75s3VXmZZY4YRUyJN9X1RgfMoDUi",
		"3uTzTX5GBSfbW7eM9R9k95H7Txe32Qw3Z25MtyD2dzwC",
		"HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH",
	}, []string{source.Key, mustAccount(t, transfer, "destination").Key, mustAccount(t, transfer, "authority").Key})

	assert.Equal(t, []string{
		"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
		"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
	}, instructions.Programs().Keys())
}

func mustAccount(t *testing.T, i Instruction, name string) Account {
	t.Helper()
	a, ok := i.Parsed.Account(name)
	require.True(t, ok, name)
	return a
}

func TestInstructionsFlatten(t *testing.T) {
	txn := loadTransaction(t, sigTokenTransfer)
	instructions, err := txn.Instructions()
	require.NoError(t, err)

	flat := instructions.Flatten()
	assert.Equal(t, []string{"0", "0.0", "1"}, flat.IDs())
	assert.Equal(t, instructions.Len(), len(flat))
	for _, i := range flat {
		assert.Empty(t, i.Inner)
	}

	// flattening does not touch the memoized tree
	again, err := txn.Instructions()
	require.NoError(t, err)
	assert.Len(t, again[0].Inner, 1)
}

func TestInstructionsFilter(t *testing.T) {
	txn := loadTransaction(t, sigTokenTransfer)
	instructions, err := txn.Instructions()
	require.NoError(t, err)

	// the opaque outer instruction is kept as a wrapper of its matching inner instruction
	nested := instructions.Filter("spl-token", "", false)
	require.Len(t, nested, 2)
	assert.Equal(t, []string{"0", "1"}, nested.IDs())
	assert.Equal(t, KindOpaque, nested[0].Kind)
	require.Len(t, nested[0].Inner, 1)
	assert.Equal(t, "0.0", nested[0].Inner[0].ID)

	flat := instructions.Filter("spl-token", "", true)
	assert.Equal(t, []string{"0.0", "1"}, flat.IDs())
	for _, i := range flat {
		assert.True(t, i.IsOf("spl-token", ""))
	}

	assert.Equal(t, []string{"1"}, SplTokenTransfer.Filter(instructions, false).IDs())
	assert.Equal(t, []string{"0.0"}, SplTokenTransferChecked.Filter(instructions, true).IDs())
	assert.Empty(t, SystemTransfer.Filter(instructions, true))
}

func TestScalarParsedInstruction(t *testing.T) {
	txn := loadTransaction(t, sigNativeTransfer)
	instructions, err := txn.Instructions()
	require.NoError(t, err)
	require.Len(t, instructions, 2)

	memo := instructions[1]
	require.Equal(t, KindParsed, memo.Kind)
	assert.Equal(t, "spl-memo", memo.Parsed.ProgramName)
	assert.Empty(t, memo.Parsed.Type)
	assert.Equal(t, "thanks", memo.Parsed.Value)
	assert.True(t, memo.IsOf("spl-memo", ""))

	lamports, err := instructions[0].Parsed.Amount("lamports", NativeScale)
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), lamports.Int64())
}

func TestInfoValueMatchingAccountKeyIsAnAccount(t *testing.T) {
	raw := `{"meta": {"err": null, "fee": 0, "preBalances": [0, 0, 0], "postBalances": [0, 0, 0]},
		"transaction": {"signatures": ["s"], "message": {
			"accountKeys": ["A1", "B2", "P1"],
			"instructions": [{"program": "custom", "programId": "P1",
				"parsed": {"type": "note", "info": {"owner": "A1", "label": "B2", "text": "C3", "count": 3}}}]
		}}}`
	txn, err := NewTransaction(json.RawMessage(raw))
	require.NoError(t, err)

	instructions, err := txn.Instructions()
	require.NoError(t, err)
	parsed := instructions[0].Parsed

	// "label" is a plain string that happens to equal a registry key
	assert.Equal(t, []string{"label", "owner"}, sortedKeys(parsed.InfoAccounts))
	text, ok := parsed.Info("text")
	require.True(t, ok)
	assert.Equal(t, "C3", text)
	count, ok := parsed.Info("count")
	require.True(t, ok)
	assert.Equal(t, json.Number("3"), count)

	assert.Equal(t, []string{"A1", "B2"}, instructions[0].Accounts().Keys())
}

func sortedKeys(m map[string]Account) []string {
	set := AccountSet{}
	for k := range m {
		set[k] = Account{Key: k}
	}
	return set.Keys()
}

func TestIndexEncodedInstructions(t *testing.T) {
	raw := `{"meta": {"err": null, "fee": 0, "preBalances": [0, 0, 0], "postBalances": [0, 0, 0],
			"innerInstructions": [{"index": 0, "instructions": [{"programIdIndex": 2, "accounts": [1], "data": ""}]}]},
		"transaction": {"signatures": ["s"], "message": {
			"accountKeys": ["A1", "B2", "P1"],
			"instructions": [{"programIdIndex": 2, "accounts": [0, 1], "data": "3Bxs4h24hBtQy9rw"}]
		}}}`
	txn, err := NewTransaction(json.RawMessage(raw))
	require.NoError(t, err)

	instructions, err := txn.Instructions()
	require.NoError(t, err)
	require.Len(t, instructions, 1)
	assert.Equal(t, "P1", instructions[0].Program.Key)
	assert.Equal(t, []string{"A1", "B2"}, instructions[0].Accounts().Keys())
	require.Len(t, instructions[0].Inner, 1)
	assert.Equal(t, "0.0", instructions[0].Inner[0].ID)

	// opaque instructions never match a program signature
	assert.False(t, instructions[0].IsOf("", ""))
}

func TestInstructionsMalformed(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want error
	}{
		"unknown program index": {
			raw:  `{"meta": {"err": null}, "transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1"], "instructions": [{"programIdIndex": 4, "accounts": [], "data": ""}]}}}`,
			want: ErrUnresolvedAccount,
		},
		"unknown account key": {
			raw:  `{"meta": {"err": null}, "transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1"], "instructions": [{"programId": "A1", "accounts": ["Z9"], "data": ""}]}}}`,
			want: ErrUnresolvedAccount,
		},
		"no program": {
			raw:  `{"meta": {"err": null}, "transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1"], "instructions": [{"accounts": [], "data": ""}]}}}`,
			want: ErrMalformedPayload,
		},
		"inner index out of range": {
			raw:  `{"meta": {"err": null, "innerInstructions": [{"index": 3, "instructions": []}]}, "transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1"], "instructions": []}}}`,
			want: ErrMalformedPayload,
		},
		"no instructions": {
			raw:  `{"meta": {"err": null}, "transaction": {"signatures": ["s"], "message": {"accountKeys": ["A1"]}}}`,
			want: ErrMalformedPayload,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			txn, err := NewTransaction(json.RawMessage(tc.raw))
			require.NoError(t, err)
			_, err = txn.Instructions()
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCatalog(t *testing.T) {
	p, ok := LookupProgramInstruction("spl-token", "transferChecked")
	require.True(t, ok)
	assert.Equal(t, SplTokenTransferChecked, p)
	assert.Equal(t, "spl-token/transferChecked", p.String())
	assert.Equal(t, "vote", VoteProgram.String())

	_, ok = LookupProgramInstruction("spl-token", "burn")
	assert.False(t, ok)

	c := Catalog()
	c[0] = ProgramInstruction{}
	assert.Equal(t, SystemProgram, Catalog()[0])
}

func parsed(program, typ string) Instruction {
	return NewParsedInstruction(Account{Key: program + "-program"}, ParsedData{ProgramName: program, Type: typ}, nil)
}

// deepTree builds
//
//	0 router
//	  0.0 aggregator
//	    0.0.0 spl-token/transfer
//	    0.0.1 system/transfer
//	  0.1 spl-memo
//	1 spl-token/transferChecked
func deepTree() Instructions {
	aggregator := NewOpaqueInstruction(Account{Key: "Aggregator"}, nil, "", Instructions{
		parsed("spl-token", "transfer"),
		parsed("system", "transfer"),
	})
	router := NewOpaqueInstruction(Account{Key: "Router"}, nil, "", Instructions{
		aggregator,
		parsed("spl-memo", ""),
	})
	return Instructions{router, parsed("spl-token", "transferChecked")}.SetIDs("")
}

func TestDeepInstructionTree(t *testing.T) {
	tree := deepTree()

	assert.Equal(t, []string{"0", "1"}, tree.IDs())
	assert.Equal(t, []string{"0.0", "0.1"}, tree[0].Inner.IDs())
	assert.Equal(t, []string{"0.0.0", "0.0.1"}, tree[0].Inner[0].Inner.IDs())
	assert.Equal(t, 6, tree.Len())
	assert.Equal(t, 5, tree[0].Len())

	flat := tree.Flatten()
	assert.Equal(t, []string{"0", "0.0", "0.0.0", "0.0.1", "0.1", "1"}, flat.IDs())
	assert.Equal(t, tree.Len(), len(flat))

	assert.Equal(t, []string{
		"Aggregator", "Router", "spl-memo-program", "spl-token-program", "system-program",
	}, tree.Programs().Keys())
}

func TestDeepInstructionTreeFilter(t *testing.T) {
	tree := deepTree()

	// without flatten every non-matching ancestor is kept as a wrapper
	nested := tree.Filter("spl-token", "", false)
	assert.Equal(t, []string{"0", "1"}, nested.IDs())
	assert.Equal(t, KindOpaque, nested[0].Kind)
	assert.Equal(t, []string{"0.0"}, nested[0].Inner.IDs())
	assert.Equal(t, KindOpaque, nested[0].Inner[0].Kind)
	assert.Equal(t, []string{"0.0.0"}, nested[0].Inner[0].Inner.IDs())
	assert.Equal(t, 4, nested.Len())
	assert.Equal(t, []string{"0", "0.0", "0.0.0", "1"}, nested.Flatten().IDs())

	// with flatten only the matches remain
	flat := tree.Filter("spl-token", "", true)
	assert.Equal(t, []string{"0.0.0", "1"}, flat.IDs())
	for _, i := range flat {
		assert.Empty(t, i.Inner)
		assert.True(t, i.IsOf("spl-token", ""))
	}

	system := tree.Filter("system", "transfer", false)
	assert.Equal(t, []string{"0"}, system.IDs())
	assert.Equal(t, []string{"0", "0.0", "0.0.1"}, system.Flatten().IDs())
	assert.Equal(t, []string{"0.0.1"}, SystemTransfer.Filter(tree, true).IDs())

	memo := tree.Filter("spl-memo", "", false)
	assert.Equal(t, []string{"0"}, memo.IDs())
	assert.Equal(t, []string{"0.1"}, memo[0].Inner.IDs())
	assert.Empty(t, memo[0].Inner[0].Inner)

	assert.Empty(t, tree.Filter("vote", "", false))

	// filtering leaves the source tree intact
	assert.Equal(t, 6, tree.Len())
	assert.Len(t, tree[0].Inner, 2)
	assert.Len(t, tree[0].Inner[0].Inner, 2)
}
