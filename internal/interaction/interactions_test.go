package interaction

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/solana-etl/internal/solana"
)

const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newBlock(t *testing.T, payload string) *solana.Block {
	t.Helper()
	block, err := solana.NewBlock([]byte(payload), t.Name())
	require.NoError(t, err)
	return block
}

func TestInteractionsFromFixture(t *testing.T) {
	block, err := solana.OpenBlock(filepath.Join("..", "solana", "testdata", "block.json"))
	require.NoError(t, err)

	is := New(block)
	require.NoError(t, is.Err())

	transfers := is.Transfers()
	require.Len(t, transfers, 3)

	native := transfers[0]
	assert.Equal(t, KindCoinTransfer, native.Kind())
	assert.Equal(t, "0", native.InstructionID)
	assert.Equal(t, "5ZWj7a1f8tWkjBESHKgrLmXshuXxqeY9SYcfbshpAqPG", native.Source)
	assert.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", native.Destination)
	assert.True(t, native.Value.Equal(solana.Lamports(1000000)))
	assert.Empty(t, native.Mint)

	checked := transfers[1]
	assert.Equal(t, KindTokenTransfer, checked.Kind())
	assert.Equal(t, "0.0", checked.InstructionID)
	assert.Equal(t, usdcMint, checked.Mint)
	assert.True(t, checked.Value.Equal(solana.NewNumberWithScale(1500, 6)))
	assert.Equal(t, "HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH", checked.Authority)
	assert.False(t, checked.Multisig)

	plain := transfers[2]
	assert.Equal(t, "1", plain.InstructionID)
	assert.Equal(t, usdcMint, plain.Mint)
	assert.True(t, plain.Value.Equal(solana.NewNumberWithScale(2500, 6)))

	byKind := is.ByKind()
	assert.Len(t, byKind[KindCoinTransfer], 1)
	assert.Len(t, byKind[KindTokenTransfer], 2)
	assert.Equal(t, 3, is.Len())
	assert.Len(t, is.All(), 3)
}

func TestTokenTransferResolvesScaleFromBalanceChanges(t *testing.T) {
	block := newBlock(t, `{"result": {"blockTime": 1, "transactions": [{
		"meta": {"err": null, "fee": 5000, "preBalances": [0, 0, 0, 0], "postBalances": [0, 0, 0, 0],
			"preTokenBalances": [{"accountIndex": 1, "mint": "Mint1", "uiTokenAmount": {"amount": "2000", "decimals": 6}}],
			"postTokenBalances": [{"accountIndex": 1, "mint": "Mint1", "uiTokenAmount": {"amount": "500", "decimals": 6}}]},
		"transaction": {"signatures": ["sig1"], "message": {
			"accountKeys": ["Owner1", "Src1", "Dst1", "TokenProgram1"],
			"instructions": [{"program": "spl-token", "programId": "TokenProgram1", "parsed": {"type": "transfer",
				"info": {"source": "Src1", "destination": "Dst1", "amount": "1500", "authority": "Owner1"}}}]
		}}}]}}`)

	is := New(block)
	require.NoError(t, is.Err())
	transfers := is.Transfers()
	require.Len(t, transfers, 1)

	tr := transfers[0]
	assert.Equal(t, "sig1", tr.Signature())
	assert.Equal(t, "Mint1", tr.Mint)
	assert.Equal(t, "1500", tr.Value.Magnitude().String())
	assert.Equal(t, uint8(6), tr.Value.Scale())
	assert.Equal(t, "Owner1", tr.Authority)
}

func TestTokenTransferMultisig(t *testing.T) {
	block := newBlock(t, `{"result": {"blockTime": 1, "transactions": [{
		"meta": {"err": null, "fee": 5000, "preBalances": [0, 0, 0, 0, 0], "postBalances": [0, 0, 0, 0, 0],
			"preTokenBalances": [],
			"postTokenBalances": [{"accountIndex": 2, "mint": "Mint1", "uiTokenAmount": {"amount": "7", "decimals": 0}}]},
		"transaction": {"signatures": ["sig1"], "message": {
			"accountKeys": ["Signer1", "Src1", "Dst1", "Multisig1", "TokenProgram1"],
			"instructions": [{"program": "spl-token", "programId": "TokenProgram1", "parsed": {"type": "transfer",
				"info": {"source": "Src1", "destination": "Dst1", "amount": "7", "multisigAuthority": "Multisig1", "signers": ["Signer1"]}}}]
		}}}]}}`)

	is := New(block)
	require.NoError(t, is.Err())
	transfers := is.Transfers()
	require.Len(t, transfers, 1)

	// destination is the only account with a token balance change
	assert.Equal(t, "Mint1", transfers[0].Mint)
	assert.Equal(t, "Multisig1", transfers[0].Authority)
	assert.True(t, transfers[0].Multisig)
}

func TestDerivationFailureIsIsolated(t *testing.T) {
	block := newBlock(t, `{"result": {"blockTime": 1, "transactions": [{
		"meta": {"err": null, "fee": 5000, "preBalances": [0, 0, 0, 0, 0], "postBalances": [0, 0, 0, 0, 0],
			"preTokenBalances": [], "postTokenBalances": []},
		"transaction": {"signatures": ["sig1"], "message": {
			"accountKeys": ["Owner1", "Src1", "Dst1", "TokenProgram1", "11111111111111111111111111111111"],
			"instructions": [
				{"program": "spl-token", "programId": "TokenProgram1", "parsed": {"type": "transfer",
					"info": {"source": "Src1", "destination": "Dst1", "amount": "1", "authority": "Owner1"}}},
				{"program": "system", "programId": "11111111111111111111111111111111", "parsed": {"type": "transfer",
					"info": {"source": "Owner1", "destination": "Dst1", "lamports": 42}}}
			]
		}}}]}}`)

	is := New(block)
	transfers := is.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, "1", transfers[0].InstructionID)
	assert.True(t, transfers[0].Value.Equal(solana.Lamports(42)))

	require.Error(t, is.Err())
	assert.ErrorIs(t, is.Err(), ErrDerivation)
	require.Len(t, is.Errors(), 1)
	assert.Contains(t, is.Errors()[0].Error(), "instruction 0")
}

func TestTokenTransferAuthority(t *testing.T) {
	const tmpl = `{"result": {"blockTime": 1, "transactions": [{
		"meta": {"err": null, "fee": 0, "preBalances": [0, 0, 0, 0], "postBalances": [0, 0, 0, 0],
			"preTokenBalances": [{"accountIndex": 1, "mint": "Mint1", "uiTokenAmount": {"amount": "9", "decimals": 0}}],
			"postTokenBalances": []},
		"transaction": {"signatures": ["sig1"], "message": {
			"accountKeys": ["Owner1", "Src1", "Dst1", "TokenProgram1"],
			"instructions": [{"program": "spl-token", "programId": "TokenProgram1", "parsed": {"type": "transfer",
				"info": {"source": "Src1", "destination": "Dst1", "amount": "9"` + `%s}}}]
		}}}]}}`

	cases := map[string]string{
		"neither": ``,
		"both":    `, "authority": "Owner1", "multisigAuthority": "Owner1"`,
	}
	for name, extra := range cases {
		t.Run(name, func(t *testing.T) {
			is := New(newBlock(t, fmt.Sprintf(tmpl, extra)))
			assert.Empty(t, is.Transfers())
			assert.ErrorIs(t, is.Err(), ErrDerivation)
		})
	}
}

func TestSkipsFailedAndMissing(t *testing.T) {
	failed := newBlock(t, `{"result": {"blockTime": 1, "transactions": [{
		"meta": {"err": {"InstructionError": [0, "Custom"]}, "fee": 5000, "preBalances": [0, 0, 0], "postBalances": [0, 0, 0]},
		"transaction": {"signatures": ["sig1"], "message": {
			"accountKeys": ["A1", "B2", "11111111111111111111111111111111"],
			"instructions": [{"program": "system", "programId": "11111111111111111111111111111111", "parsed": {"type": "transfer",
				"info": {"source": "A1", "destination": "B2", "lamports": 1}}}]
		}}}]}}`)
	missing := newBlock(t, `{}`)

	is := New(failed, missing, nil)
	assert.NoError(t, is.Err())
	assert.Zero(t, is.Len())

	// deriving one transaction directly ignores its status
	txns, err := failed.Transactions()
	require.NoError(t, err)
	assert.Len(t, FromTransaction(txns[0]).Transfers(), 1)
}

func TestMalformedTransactionIsReported(t *testing.T) {
	block := newBlock(t, `{"result": {"blockTime": 1, "transactions": [{
		"meta": null,
		"transaction": {"signatures": ["sig1"], "message": {"accountKeys": ["A1"], "instructions": []}}}]}}`)

	is := New(block)
	assert.Zero(t, is.Len())
	assert.ErrorIs(t, is.Err(), ErrDerivation)
	assert.ErrorIs(t, is.Err(), solana.ErrMalformedPayload)
}
