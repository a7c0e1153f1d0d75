package solana

import "sync"

// lazy computes a value at most once and caches it, together with the error, for the
// lifetime of the owning instance.
type lazy[T any] struct {
	once  sync.Once
	value T
	err   error
}

func (l *lazy[T]) get(compute func() (T, error)) (T, error) {
	l.once.Do(func() {
		l.value, l.err = compute()
	})
	return l.value, l.err
}
