package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/solana-etl/internal/transform"
	"github.com/fystack/solana-etl/pkg/retry"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	err      error
	calls    int
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message{subject, data})
	return nil
}

func TestEmitRows(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEmitter(pub, "solana.etl")

	rows := []transform.Row{
		{int64(1700000000), "src", "dst", "", "1000000", 9, "sig", "hash", "block.json"},
	}
	require.NoError(t, e.EmitRows(transform.Transfers, "block.json", rows))
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "solana.etl.transfers", pub.messages[0].subject)

	var event ETLEvent
	require.NoError(t, json.Unmarshal(pub.messages[0].data, &event))
	assert.Equal(t, EventTypeRow, event.Type)
	assert.Equal(t, "transfers", event.Task)
	assert.Equal(t, "block.json", event.Source)

	data, ok := event.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1000000", data["value"])
	assert.Equal(t, "dst", data["destination"])
}

func TestEmitErrors(t *testing.T) {
	pub := &fakePublisher{}
	e := NewEmitter(pub, "")

	errs := []transform.ErrorRow{{Stage: "json_to_blocks", Source: "bad.json", Message: "unexpected EOF"}}
	require.NoError(t, e.EmitErrors("bad.json", errs))
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "errors", pub.messages[0].subject)
	assert.Contains(t, string(pub.messages[0].data), `"message":"unexpected EOF"`)
}

func TestEmitPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	e := NewEmitter(pub, "solana").WithRetry(retry.Policy{
		InitialInterval: time.Millisecond,
		MaxAttempts:     3,
	})

	err := e.EmitRows(transform.Blocks, "block.json", []transform.Row{{int64(1)}})
	assert.ErrorContains(t, err, "connection closed")
	assert.Equal(t, 3, pub.calls)

	// nothing to close without a connection
	e.Close()
}
