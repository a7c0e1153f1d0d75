package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fystack/solana-etl/internal/config"
	"github.com/fystack/solana-etl/internal/events"
	"github.com/fystack/solana-etl/internal/kvstore"
	"github.com/fystack/solana-etl/internal/transform"
	"github.com/fystack/solana-etl/internal/worker"
	"github.com/fystack/solana-etl/pkg/common/logger"
)

type transformFlags struct {
	configPath     string
	tasks          []string
	blocksDir      string
	destinationDir string
	workers        int
	recursive      bool
}

func transformCmd() *cobra.Command {
	var f transformFlags
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Run transformation tasks over a directory of block files.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runTransform(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringSliceVarP(&f.tasks, "tasks", "t", nil, "tasks to run: all, transactions, transfers, blocks")
	cmd.Flags().StringVar(&f.blocksDir, "blocks-dir", "", "directory of .json or .json.gz block files")
	cmd.Flags().StringVar(&f.destinationDir, "destination-dir", "", "directory the CSV outputs are written to")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "number of block files processed in parallel")
	cmd.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "also read block files one directory below blocks-dir")
	return cmd
}

// loadConfig reads the config file when given and applies the flags that were set on top of it.
func loadConfig(cmd *cobra.Command, f transformFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("tasks") {
		cfg.Tasks = f.tasks
	}
	if flags.Changed("blocks-dir") {
		cfg.BlocksDir = f.blocksDir
	}
	if flags.Changed("destination-dir") {
		cfg.DestinationDir = f.destinationDir
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("recursive") {
		cfg.Recursive = f.recursive
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogger(levelName string) error {
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return err
	}
	logger.Init(&logger.Options{Level: level, TimeFormat: time.RFC3339})
	return nil
}

func runTransform(parent context.Context, cfg *config.Config) error {
	if err := initLogger(cfg.LogLevel); err != nil {
		return err
	}
	logger.Info("Config loaded", "environment", cfg.Environment, "blocks_dir", cfg.BlocksDir)

	tasks, err := transform.TasksFromNames(cfg.Tasks)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DestinationDir, 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	var opts []worker.Option
	if cfg.KVStore.Enabled {
		store, err := kvstore.NewBadgerStore(cfg.KVStore.Badger.Directory, cfg.KVStore.Badger.Prefix)
		if err != nil {
			return fmt.Errorf("open kvstore: %w", err)
		}
		defer store.Close()
		opts = append(opts, worker.WithStores(kvstore.NewFailedBlockStore(store), kvstore.NewCheckpointStore(store)))
		logger.Info("KVStore opened", "dir", cfg.KVStore.Badger.Directory)
	}
	if cfg.NATS.Enabled {
		emitter, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer emitter.Close()
		opts = append(opts, worker.WithEmitter(emitter))
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.Addr)
	}

	runner, err := worker.NewRunner(worker.Options{
		BlocksDir:  cfg.BlocksDir,
		Recursive:  cfg.Recursive,
		Workers:    cfg.Workers,
		Tasks:      tasks,
		OutputPath: cfg.OutputPath,
	}, opts...)
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	logger.Info("Transform finished",
		"files", summary.Files,
		"skipped", summary.Skipped,
		"missing", summary.Missing,
		"failed", summary.Failed,
		"rows", summary.Rows,
		"error_rows", summary.ErrorRows,
		"duration", summary.Duration,
	)
	return nil
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("Metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", "err", err)
	}
}
