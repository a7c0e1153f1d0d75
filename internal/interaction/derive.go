package interaction

import (
	"encoding/json"
	"fmt"

	"github.com/fystack/solana-etl/internal/solana"
)

type deriveFunc func(txn *solana.Transaction, ins solana.Instruction) (Interaction, error)

// derivers are tried in order against every instruction. The first match wins.
var derivers = []struct {
	match  solana.ProgramInstruction
	derive deriveFunc
}{
	{solana.SystemTransfer, deriveNativeTransfer},
	{solana.SplTokenTransfer, deriveTokenTransfer},
	{solana.SplTokenTransferChecked, deriveTokenTransferChecked},
}

func deriveNativeTransfer(txn *solana.Transaction, ins solana.Instruction) (Interaction, error) {
	source, destination, err := endpoints(ins.Parsed)
	if err != nil {
		return nil, err
	}

	field := "lamports"
	if _, ok := ins.Parsed.Info(field); !ok {
		field = "amount"
	}
	value, err := ins.Parsed.Amount(field, solana.NativeScale)
	if err != nil {
		return nil, err
	}

	return Transfer{
		TransactionSignature: txn.Signature,
		InstructionID:        ins.ID,
		Source:               source.Key,
		Destination:          destination.Key,
		Value:                value,
	}, nil
}

func deriveTokenTransfer(txn *solana.Transaction, ins solana.Instruction) (Interaction, error) {
	source, destination, err := endpoints(ins.Parsed)
	if err != nil {
		return nil, err
	}
	mint, scale, err := tokenOf(txn, source, destination)
	if err != nil {
		return nil, err
	}
	value, err := ins.Parsed.Amount("amount", scale)
	if err != nil {
		return nil, err
	}
	return newTokenTransfer(txn, ins, source, destination, value, mint)
}

// deriveTokenTransferChecked reads mint and decimals from the instruction itself and only falls
// back to the token balance changes when they are absent.
func deriveTokenTransferChecked(txn *solana.Transaction, ins solana.Instruction) (Interaction, error) {
	source, destination, err := endpoints(ins.Parsed)
	if err != nil {
		return nil, err
	}

	mint, hasMint := param(ins.Parsed, "mint")
	tokenAmount, hasAmount := ins.Parsed.InfoValues["tokenAmount"].(map[string]any)
	if !hasMint || !hasAmount {
		return deriveTokenTransfer(txn, ins)
	}

	decimals, err := uiDecimals(tokenAmount["decimals"])
	if err != nil {
		return nil, err
	}
	amount, ok := tokenAmount["amount"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: tokenAmount has no amount", solana.ErrMalformedPayload)
	}
	value, err := solana.ParseNumberWithScale(amount, decimals)
	if err != nil {
		return nil, err
	}
	return newTokenTransfer(txn, ins, source, destination, value, mint)
}

func newTokenTransfer(
	txn *solana.Transaction,
	ins solana.Instruction,
	source, destination solana.Account,
	value solana.NumberWithScale,
	mint string,
) (Interaction, error) {
	authority, hasAuthority := param(ins.Parsed, "authority")
	multisig, hasMultisig := param(ins.Parsed, "multisigAuthority")
	switch {
	case hasAuthority && hasMultisig:
		return nil, fmt.Errorf("both authority and multisigAuthority are set")
	case !hasAuthority && !hasMultisig:
		return nil, fmt.Errorf("neither authority nor multisigAuthority is set")
	case hasMultisig:
		authority = multisig
	}

	return Transfer{
		TransactionSignature: txn.Signature,
		InstructionID:        ins.ID,
		Source:               source.Key,
		Destination:          destination.Key,
		Value:                value,
		Mint:                 mint,
		Authority:            authority,
		Multisig:             hasMultisig,
	}, nil
}

func endpoints(p *solana.ParsedData) (source, destination solana.Account, err error) {
	source, ok := p.Account("source")
	if !ok {
		return source, destination, fmt.Errorf("source is not an account of the transaction")
	}
	destination, ok = p.Account("destination")
	if !ok {
		return source, destination, fmt.Errorf("destination is not an account of the transaction")
	}
	return source, destination, nil
}

// tokenOf resolves mint and decimals from the token balance change of source, else destination.
func tokenOf(txn *solana.Transaction, source, destination solana.Account) (string, uint8, error) {
	changes, err := txn.TokenBalanceChanges()
	if err != nil {
		return "", 0, err
	}
	for _, a := range []solana.Account{source, destination} {
		if c, ok := changes.Get(a.Key); ok {
			return c.Mint, c.Change.Scale(), nil
		}
	}
	return "", 0, fmt.Errorf("no token balance change for %s or %s", source.Key, destination.Key)
}

// param reads a string parameter whether it resolved to an account or stayed a plain value.
func param(p *solana.ParsedData, name string) (string, bool) {
	if a, ok := p.Account(name); ok {
		return a.Key, true
	}
	s, ok := p.InfoValues[name].(string)
	return s, ok
}

func uiDecimals(v any) (uint8, error) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: decimals is %T", solana.ErrMalformedPayload, v)
	}
	d, err := n.Int64()
	if err != nil || d < 0 || d > 255 {
		return 0, fmt.Errorf("%w: decimals %v", solana.ErrMalformedPayload, v)
	}
	return uint8(d), nil
}
