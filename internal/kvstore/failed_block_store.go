package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

const failedBlockPrefix = "failed_block:"

// FailedBlockInfo represents information about a block file that could not be transformed
type FailedBlockInfo struct {
	Source     string    `json:"source"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
	Resolved   bool      `json:"resolved"`
}

// FailedBlockStore manages failed blocks using KVStore
type FailedBlockStore struct {
	kvstore KVStore
}

// NewFailedBlockStore creates a new FailedBlockStore
func NewFailedBlockStore(kvstore KVStore) *FailedBlockStore {
	return &FailedBlockStore{
		kvstore: kvstore,
	}
}

// StoreFailedBlock records a failure for source. Storing the same source again bumps its retry
// count and marks it unresolved.
func (fbs *FailedBlockStore) StoreFailedBlock(source, stage string, err error) error {
	retryCount := 0
	if existing, getErr := fbs.GetFailedBlock(source); getErr == nil {
		retryCount = existing.RetryCount
	}

	info := &FailedBlockInfo{
		Source:     source,
		Stage:      stage,
		Error:      err.Error(),
		Timestamp:  time.Now(),
		RetryCount: retryCount + 1,
	}
	return fbs.put(info)
}

// GetFailedBlock retrieves information about a specific failed block
func (fbs *FailedBlockStore) GetFailedBlock(source string) (*FailedBlockInfo, error) {
	data, err := fbs.kvstore.Get(failedBlockKey(source))
	if err != nil {
		return nil, err
	}

	var info FailedBlockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed block info: %w", err)
	}
	return &info, nil
}

// GetFailedBlocks returns the sources of all unresolved failed blocks
func (fbs *FailedBlockStore) GetFailedBlocks() ([]string, error) {
	all, err := fbs.GetAllFailedBlocks()
	if err != nil {
		return nil, err
	}
	sources := make([]string, 0, len(all))
	for _, info := range all {
		if !info.Resolved {
			sources = append(sources, info.Source)
		}
	}
	return sources, nil
}

// GetAllFailedBlocks retrieves all failed block information (resolved and unresolved), ordered by
// source
func (fbs *FailedBlockStore) GetAllFailedBlocks() ([]*FailedBlockInfo, error) {
	pairs, err := fbs.kvstore.List(failedBlockPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed blocks: %w", err)
	}

	failedBlocks := make([]*FailedBlockInfo, 0, len(pairs))
	for _, p := range pairs {
		var info FailedBlockInfo
		if err := json.Unmarshal(p.Value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed block %s: %w", p.Key, err)
		}
		failedBlocks = append(failedBlocks, &info)
	}
	sort.Slice(failedBlocks, func(i, j int) bool { return failedBlocks[i].Source < failedBlocks[j].Source })
	return failedBlocks, nil
}

// ResolveFailedBlock marks a failed block as resolved. Resolving an unknown source is a no-op.
func (fbs *FailedBlockStore) ResolveFailedBlock(source string) error {
	info, err := fbs.GetFailedBlock(source)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get failed block info: %w", err)
	}

	info.Resolved = true
	info.Timestamp = time.Now()
	return fbs.put(info)
}

// DeleteFailedBlock removes a failed block from storage
func (fbs *FailedBlockStore) DeleteFailedBlock(source string) error {
	if err := fbs.kvstore.Delete(failedBlockKey(source)); err != nil {
		return fmt.Errorf("failed to delete failed block: %w", err)
	}
	return nil
}

// CleanupResolvedBlocks removes resolved blocks older than the specified duration
func (fbs *FailedBlockStore) CleanupResolvedBlocks(olderThan time.Duration) (int, error) {
	allBlocks, err := fbs.GetAllFailedBlocks()
	if err != nil {
		return 0, err
	}

	cutoffTime := time.Now().Add(-olderThan)
	removed := 0
	for _, block := range allBlocks {
		if block.Resolved && block.Timestamp.Before(cutoffTime) {
			if err := fbs.DeleteFailedBlock(block.Source); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func (fbs *FailedBlockStore) put(info *FailedBlockInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal failed block info: %w", err)
	}
	if err := fbs.kvstore.Set(failedBlockKey(info.Source), data); err != nil {
		return fmt.Errorf("failed to store failed block: %w", err)
	}
	return nil
}

func failedBlockKey(source string) string {
	return failedBlockPrefix + source
}
