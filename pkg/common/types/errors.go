package types

import (
	"strings"
	"sync"
)

// MultiError collects independent failures so one bad item does not hide the others.
// Safe for concurrent Add.
type MultiError struct {
	mu     sync.Mutex
	Errors []error
}

func (m *MultiError) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]string, len(m.Errors))
	for i, err := range m.Errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, err)
}

func (m *MultiError) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Errors) == 0
}

// Unwrap lets errors.Is and errors.As match any collected error.
func (m *MultiError) Unwrap() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]error, len(m.Errors))
	copy(out, m.Errors)
	return out
}

// ErrOrNil returns m, or nil when nothing was collected.
func (m *MultiError) ErrOrNil() error {
	if m == nil || m.IsEmpty() {
		return nil
	}
	return m
}
