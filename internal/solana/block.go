package solana

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Block is one slot parsed from a getBlock JSON-RPC response. A response without a result is a
// missing (skipped) block, which is a valid state and not an error.
type Block struct {
	// Source identifies where the payload came from, usually the file name.
	Source  string
	Missing bool

	rawResult    json.RawMessage
	result       lazy[*blockResult]
	transactions lazy[parsedTransactions]
}

type parsedTransactions struct {
	transactions Transactions
	errs         []error
}

// NewBlock parses a raw block payload. Only a payload that is not a JSON object fails here.
func NewBlock(payload []byte, source string) (*Block, error) {
	var env blockEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("block %s: %w", source, err)
	}
	return &Block{
		Source:    source,
		Missing:   isNull(env.Result),
		rawResult: env.Result,
	}, nil
}

// OpenBlock reads a block from a .json or .json.gz file.
func OpenBlock(path string) (*Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", path, err)
	}
	return NewBlock(payload, filepath.Base(path))
}

func (b *Block) resultPayload() (*blockResult, error) {
	return b.result.get(func() (*blockResult, error) {
		if b.Missing {
			return nil, fmt.Errorf("%w: block %s is missing", ErrMalformedPayload, b.Source)
		}
		var res blockResult
		if err := json.Unmarshal(b.rawResult, &res); err != nil {
			return nil, fmt.Errorf("%w: block %s: %v", ErrMalformedPayload, b.Source, err)
		}
		return &res, nil
	})
}

// HasTransactions is false for missing blocks and blocks without transactions.
func (b *Block) HasTransactions() bool {
	if b.Missing {
		return false
	}
	res, err := b.resultPayload()
	return err == nil && len(res.Transactions) > 0
}

// Epoch is the block time in unix seconds.
func (b *Block) Epoch() (int64, error) {
	res, err := b.resultPayload()
	if err != nil {
		return 0, err
	}
	if res.BlockTime == nil {
		return 0, fmt.Errorf("%w: block %s has no blockTime", ErrMalformedPayload, b.Source)
	}
	return *res.BlockTime, nil
}

func (b *Block) Time() (time.Time, error) {
	epoch, err := b.Epoch()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(epoch, 0).UTC(), nil
}

// Hash is the blockhash.
func (b *Block) Hash() (string, error) {
	res, err := b.resultPayload()
	if err != nil {
		return "", err
	}
	return res.Blockhash, nil
}

func (b *Block) ParentSlot() (uint64, error) {
	res, err := b.resultPayload()
	if err != nil {
		return 0, err
	}
	return res.ParentSlot, nil
}

// Transactions parses every transaction of the block. A missing block has none. Transactions that
// fail to parse are left out and reported by TransactionErrors.
func (b *Block) Transactions() (Transactions, error) {
	parsed, err := b.parseTransactions()
	return parsed.transactions, err
}

// TransactionErrors returns the parse failure of every transaction left out of Transactions.
func (b *Block) TransactionErrors() []error {
	parsed, _ := b.parseTransactions()
	return parsed.errs
}

func (b *Block) parseTransactions() (parsedTransactions, error) {
	return b.transactions.get(func() (parsedTransactions, error) {
		if b.Missing {
			return parsedTransactions{transactions: Transactions{}}, nil
		}
		res, err := b.resultPayload()
		if err != nil {
			return parsedTransactions{transactions: Transactions{}}, err
		}

		out := parsedTransactions{transactions: make(Transactions, 0, len(res.Transactions))}
		for i, raw := range res.Transactions {
			t, err := NewTransaction(raw)
			if err != nil {
				out.errs = append(out.errs, fmt.Errorf("transaction %d: %w", i, err))
				continue
			}
			out.transactions = append(out.transactions, t)
		}
		return out, nil
	})
}

// FindTransaction returns the first transaction having sig among its signatures.
func (b *Block) FindTransaction(sig string) (*Transaction, bool) {
	ts, err := b.Transactions()
	if err != nil {
		return nil, false
	}
	return ts.Find(sig)
}
