package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fystack/solana-etl/internal/transform"
	"github.com/fystack/solana-etl/pkg/common/logger"
	"github.com/fystack/solana-etl/pkg/retry"
)

const (
	EventTypeRow   = "row"
	EventTypeError = "error"
)

type ETLEvent struct {
	Type      string `json:"type"`
	Task      string `json:"task,omitempty"`
	Source    string `json:"source"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher is the part of a NATS connection the emitter needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Emitter publishes task rows to "<prefix>.<task>" and error rows to "<prefix>.errors".
type Emitter struct {
	publisher     Publisher
	conn          *nats.Conn
	subjectPrefix string
	retry         retry.Policy
}

func NewEmitter(publisher Publisher, subjectPrefix string) *Emitter {
	policy := retry.Default()
	policy.OnRetry = func(err error, next time.Duration) {
		logger.Warn("Publish failed, retrying", "err", err, "next", next)
	}
	return &Emitter{publisher: publisher, subjectPrefix: subjectPrefix, retry: policy}
}

// WithRetry replaces the retry policy of publishes.
func (e *Emitter) WithRetry(p retry.Policy) *Emitter {
	e.retry = p
	return e
}

// Connect dials NATS and returns an emitter owning the connection.
func Connect(natsURL, subjectPrefix string) (*Emitter, error) {
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}
	conn, err := nats.Connect(natsURL,
		nats.Name("solana-etl"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	e := NewEmitter(conn, subjectPrefix)
	e.conn = conn
	return e, nil
}

// EmitRows publishes one event per row, keyed by the task's column names.
func (e *Emitter) EmitRows(task transform.Task, source string, rows []transform.Row) error {
	now := time.Now().UTC().Unix()
	for _, row := range rows {
		err := e.Emit(e.subject(task.Name), ETLEvent{
			Type:      EventTypeRow,
			Task:      task.Name,
			Source:    source,
			Data:      task.Record(row),
			Timestamp: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) EmitErrors(source string, errs []transform.ErrorRow) error {
	now := time.Now().UTC().Unix()
	for _, er := range errs {
		err := e.Emit(e.subject("errors"), ETLEvent{
			Type:      EventTypeError,
			Task:      er.Stage,
			Source:    source,
			Data:      map[string]string{"message": er.Message},
			Timestamp: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) Emit(subject string, event ETLEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.retry.Do(context.Background(), func() error {
		return e.publisher.Publish(subject, data)
	})
}

func (e *Emitter) subject(name string) string {
	if e.subjectPrefix == "" {
		return name
	}
	return e.subjectPrefix + "." + name
}

// Close flushes and closes the connection opened by Connect.
func (e *Emitter) Close() {
	if e.conn != nil {
		if err := e.conn.Flush(); err != nil {
			logger.Warn("NATS flush failed", "err", err)
		}
		e.conn.Close()
	}
}
