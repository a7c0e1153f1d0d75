package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

const checkpointPrefix = "checkpoint:"

// Checkpoint records that a block file was fully transformed by a set of tasks.
type Checkpoint struct {
	Source    string    `json:"source"`
	Tasks     []string  `json:"tasks"`
	Rows      int       `json:"rows"`
	ErrorRows int       `json:"error_rows"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckpointStore lets a re-run skip block files that were already processed.
type CheckpointStore struct {
	kvstore KVStore
}

func NewCheckpointStore(kvstore KVStore) *CheckpointStore {
	return &CheckpointStore{kvstore: kvstore}
}

// MarkDone stores a checkpoint, merging its tasks with any previous checkpoint of the source.
func (cs *CheckpointStore) MarkDone(cp Checkpoint) error {
	if prev, err := cs.Get(cp.Source); err == nil {
		cp.Tasks = lo.Uniq(append(prev.Tasks, cp.Tasks...))
	} else if !errors.Is(err, ErrKeyNotFound) {
		return err
	}
	if cp.Timestamp.IsZero() {
		cp.Timestamp = time.Now()
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return cs.kvstore.Set(checkpointPrefix+cp.Source, data)
}

func (cs *CheckpointStore) Get(source string) (*Checkpoint, error) {
	data, err := cs.kvstore.Get(checkpointPrefix + source)
	if err != nil {
		return nil, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// IsDone reports whether source was processed by every one of tasks.
func (cs *CheckpointStore) IsDone(source string, tasks []string) (bool, error) {
	cp, err := cs.Get(source)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return lo.Every(cp.Tasks, tasks), nil
}

// Reset forgets the checkpoint of source.
func (cs *CheckpointStore) Reset(source string) error {
	return cs.kvstore.Delete(checkpointPrefix + source)
}

// Sources lists every checkpointed source in key order.
func (cs *CheckpointStore) Sources() ([]string, error) {
	pairs, err := cs.kvstore.List(checkpointPrefix)
	if err != nil {
		return nil, err
	}
	return lo.Map(pairs, func(p KVPair, _ int) string {
		return p.Key[len(checkpointPrefix):]
	}), nil
}
