package kvstore

import "errors"

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyEmpty    = errors.New("key is empty")
)

// KVPair is one entry returned by List.
type KVPair struct {
	Key   string
	Value []byte
}

// KVStore is an interface for a simple key-value store.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// List returns every entry whose key starts with prefix, in key order.
	List(prefix string) ([]KVPair, error)
	Close() error
}
