package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fystack/solana-etl/internal/config"
	"github.com/fystack/solana-etl/internal/kvstore"
	"github.com/fystack/solana-etl/pkg/common/logger"
)

func failedCmd() *cobra.Command {
	var (
		configPath string
		all        bool
		cleanup    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List block files that failed to parse, or clean up resolved entries.",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			if err := initLogger(cfg.LogLevel); err != nil {
				return err
			}

			store, err := kvstore.NewBadgerStore(cfg.KVStore.Badger.Directory, cfg.KVStore.Badger.Prefix)
			if err != nil {
				return fmt.Errorf("open kvstore: %w", err)
			}
			defer store.Close()
			failed := kvstore.NewFailedBlockStore(store)

			if cleanup > 0 {
				n, err := failed.CleanupResolvedBlocks(cleanup)
				if err != nil {
					return err
				}
				logger.Info("Cleaned up resolved blocks", "count", n)
				return nil
			}

			infos, err := failed.GetAllFailedBlocks()
			if err != nil {
				return err
			}
			for _, info := range infos {
				if info.Resolved && !all {
					continue
				}
				logger.Info("Failed block",
					"source", info.Source,
					"stage", info.Stage,
					"retries", info.RetryCount,
					"resolved", info.Resolved,
					"at", info.Timestamp.UTC(),
					"err", info.Error,
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&all, "all", false, "include resolved entries")
	cmd.Flags().DurationVar(&cleanup, "cleanup", 0, "delete resolved entries older than this")
	return cmd
}
