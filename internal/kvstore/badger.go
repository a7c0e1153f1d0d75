package kvstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore is a KVStore on an embedded badger database. Keys are namespaced under prefix.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

func NewBadgerStore(path string, prefix string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &BadgerStore{db: db, prefix: prefix}, nil
}

func (b *BadgerStore) fullKey(k string) (string, error) {
	if k == "" {
		return "", ErrKeyEmpty
	}
	if b.prefix != "" {
		return b.prefix + "/" + k, nil
	}
	return k, nil
}

func (b *BadgerStore) Get(key string) ([]byte, error) {
	k, err := b.fullKey(key)
	if err != nil {
		return nil, err
	}

	var valCopy []byte
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(k))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrKeyNotFound
			}
			return err
		}
		valCopy, err = item.ValueCopy(nil)
		return err
	})
	return valCopy, err
}

func (b *BadgerStore) Set(key string, value []byte) error {
	k, err := b.fullKey(key)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(k), value)
	})
}

func (b *BadgerStore) Delete(key string) error {
	k, err := b.fullKey(key)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(k))
	})
}

// List returns keys without the store prefix.
func (b *BadgerStore) List(prefix string) ([]KVPair, error) {
	if prefix == "" {
		return nil, ErrKeyEmpty
	}
	searchPrefix, _ := b.fullKey(prefix)
	trim := strings.TrimSuffix(searchPrefix, prefix)

	result := make([]KVPair, 0)
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(searchPrefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			result = append(result, KVPair{
				Key:   strings.TrimPrefix(string(item.Key()), trim),
				Value: v,
			})
		}
		return nil
	})
	return result, err
}

func (b *BadgerStore) Close() error {
	return b.db.Close()
}
