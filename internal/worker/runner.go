package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/fystack/solana-etl/internal/kvstore"
	"github.com/fystack/solana-etl/internal/metrics"
	"github.com/fystack/solana-etl/internal/output"
	"github.com/fystack/solana-etl/internal/solana"
	"github.com/fystack/solana-etl/internal/transform"
	"github.com/fystack/solana-etl/pkg/common/logger"
)

// StageReadBlock is the stage of error rows for block files that could not be read or parsed.
const StageReadBlock = "json_to_blocks"

const errorsOutput = "errors"

// RowEmitter streams rows to an external sink such as NATS.
type RowEmitter interface {
	EmitRows(task transform.Task, source string, rows []transform.Row) error
	EmitErrors(source string, errs []transform.ErrorRow) error
}

type Options struct {
	BlocksDir string
	Recursive bool
	Workers   int
	Tasks     []transform.Task
	// OutputPath maps a task name, or "errors", to its CSV file.
	OutputPath func(name string) string
}

// Runner transforms every block file of a directory with a set of tasks.
type Runner struct {
	opts        Options
	emitter     RowEmitter
	failed      *kvstore.FailedBlockStore
	checkpoints *kvstore.CheckpointStore
	log         *slog.Logger
}

type Option func(*Runner)

func WithEmitter(e RowEmitter) Option {
	return func(r *Runner) { r.emitter = e }
}

// WithStores records failed block files and skips block files already processed by every task.
func WithStores(failed *kvstore.FailedBlockStore, checkpoints *kvstore.CheckpointStore) Option {
	return func(r *Runner) {
		r.failed = failed
		r.checkpoints = checkpoints
	}
}

func NewRunner(opts Options, options ...Option) (*Runner, error) {
	if len(opts.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks selected")
	}
	if opts.OutputPath == nil {
		return nil, fmt.Errorf("no output path")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	r := &Runner{opts: opts, log: logger.With("component", "runner")}
	for _, o := range options {
		o(r)
	}
	return r, nil
}

// Summary reports what a run did.
type Summary struct {
	Files     int
	Skipped   int
	Missing   int
	Failed    int
	Rows      map[string]int
	ErrorRows int
	Duration  time.Duration
}

type blockResult struct {
	source string
	status string
	rows   map[string][]transform.Row
	errs   []transform.ErrorRow

	// failure is set when the payload could not be read or its result not decoded.
	failure error
}

// Run processes the block files on the configured number of workers and writes the rows of each
// block, in file order, as soon as it and every block before it are done. At most
// reorderWindow(workers) processed blocks are held in memory. A cancelled context stops the run;
// blocks written before that stay written and checkpointed.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	start := time.Now()
	summary = Summary{Rows: make(map[string]int, len(r.opts.Tasks))}

	files, err := ListBlockFiles(r.opts.BlocksDir, r.opts.Recursive)
	if err != nil {
		return summary, err
	}
	summary.Files = len(files)

	files, err = r.pending(files)
	if err != nil {
		return summary, err
	}
	summary.Skipped = summary.Files - len(files)
	metrics.BlocksProcessed.WithLabelValues(metrics.StatusSkipped).Add(float64(summary.Skipped))
	r.log.Info("Transforming blocks",
		"dir", r.opts.BlocksDir,
		"files", len(files),
		"skipped", summary.Skipped,
		"workers", r.opts.Workers,
		"tasks", taskNames(r.opts.Tasks),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	sinks, err := r.openSinks()
	if err != nil {
		return summary, err
	}
	defer func() {
		for _, s := range sinks {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	// slots bounds the blocks dispatched but not yet written
	slots := make(chan struct{}, reorderWindow(r.opts.Workers))
	done := make([]chan blockResult, len(files))
	for i := range done {
		done[i] = make(chan blockResult, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		workers, wctx := errgroup.WithContext(gctx)
		workers.SetLimit(r.opts.Workers)
		for i, file := range files {
			select {
			case slots <- struct{}{}:
			case <-wctx.Done():
				_ = workers.Wait()
				return wctx.Err()
			}
			workers.Go(func() error {
				if err := wctx.Err(); err != nil {
					return err
				}
				done[i] <- r.processFile(file)
				return nil
			})
		}
		return workers.Wait()
	})
	g.Go(func() error {
		for i := range files {
			var res blockResult
			select {
			case res = <-done[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			<-slots
			if err := r.write(sinks, res, &summary); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// reorderWindow is the number of blocks that may be processed ahead of the next one to write.
func reorderWindow(workers int) int {
	return 2 * workers
}

func (r *Runner) pending(files []BlockFile) ([]BlockFile, error) {
	if r.checkpoints == nil {
		return files, nil
	}
	names := taskNames(r.opts.Tasks)
	out := make([]BlockFile, 0, len(files))
	for _, f := range files {
		done, err := r.checkpoints.IsDone(f.Source, names)
		if err != nil {
			return nil, fmt.Errorf("checkpoint of %s: %w", f.Source, err)
		}
		if !done {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *Runner) processFile(file BlockFile) blockResult {
	started := time.Now()
	defer func() { metrics.BlockLatency.Observe(time.Since(started).Seconds()) }()

	res := blockResult{source: file.Source, status: metrics.StatusOK, rows: make(map[string][]transform.Row)}

	block, err := solana.OpenBlock(file.Path)
	if err != nil {
		r.log.Warn("Unreadable block", "source", file.Source, "err", err)
		res.status = metrics.StatusFailed
		res.failure = err
		res.errs = []transform.ErrorRow{{Stage: StageReadBlock, Source: file.Source, Message: err.Error()}}
		return res
	}
	block.Source = file.Source
	if block.Missing {
		res.status = metrics.StatusMissing
	}
	// the tasks report an undecodable result as error rows of their own stages
	if _, err := block.Transactions(); err != nil {
		r.log.Warn("Undecodable block", "source", file.Source, "err", err)
		res.status = metrics.StatusFailed
		res.failure = err
	}

	for _, task := range r.opts.Tasks {
		rows, errs := task.Transform(block)
		res.rows[task.Name] = rows
		res.errs = append(res.errs, errs...)
	}
	r.log.Debug("Block transformed", "source", file.Source, "status", res.status, "errors", len(res.errs))
	return res
}

// openSinks opens the CSV output of every task and the errors output.
func (r *Runner) openSinks() (map[string]*output.CSVFile, error) {
	sinks := make(map[string]*output.CSVFile, len(r.opts.Tasks)+1)
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}
	for _, task := range r.opts.Tasks {
		s, err := output.OpenCSV(r.opts.OutputPath(task.Name), task.ColumnNames())
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks[task.Name] = s
	}
	errSink, err := output.OpenCSV(r.opts.OutputPath(errorsOutput), lo.Map(transform.ErrorColumns,
		func(c transform.Column, _ int) string { return c.Name }))
	if err != nil {
		closeAll()
		return nil, err
	}
	sinks[errorsOutput] = errSink
	return sinks, nil
}

// write outputs the rows of one block, emits them and records the block in the stores.
func (r *Runner) write(sinks map[string]*output.CSVFile, res blockResult, summary *Summary) error {
	metrics.BlocksProcessed.WithLabelValues(res.status).Inc()
	switch res.status {
	case metrics.StatusMissing:
		summary.Missing++
	case metrics.StatusFailed:
		summary.Failed++
	}

	written := 0
	for _, task := range r.opts.Tasks {
		rows := res.rows[task.Name]
		for _, row := range rows {
			if err := sinks[task.Name].Write(row); err != nil {
				return err
			}
		}
		written += len(rows)
		summary.Rows[task.Name] += len(rows)
		metrics.RowsProduced.WithLabelValues(task.Name).Add(float64(len(rows)))
		r.emitRows(task, res.source, rows)
	}
	for _, e := range res.errs {
		if err := sinks[errorsOutput].Write(e.Values()); err != nil {
			return err
		}
		metrics.ErrorRows.WithLabelValues(e.Stage).Inc()
	}
	summary.ErrorRows += len(res.errs)
	r.emitErrors(res.source, res.errs)

	return r.record(res, written)
}

// record updates the failed block and checkpoint stores once the rows of res are written.
func (r *Runner) record(res blockResult, written int) error {
	if r.failed != nil {
		if res.status == metrics.StatusFailed {
			if err := r.failed.StoreFailedBlock(res.source, StageReadBlock, res.failure); err != nil {
				return err
			}
			return nil
		}
		if err := r.failed.ResolveFailedBlock(res.source); err != nil {
			return err
		}
	}
	if r.checkpoints != nil && res.status != metrics.StatusFailed {
		return r.checkpoints.MarkDone(kvstore.Checkpoint{
			Source:    res.source,
			Tasks:     taskNames(r.opts.Tasks),
			Rows:      written,
			ErrorRows: len(res.errs),
		})
	}
	return nil
}

func (r *Runner) emitRows(task transform.Task, source string, rows []transform.Row) {
	if r.emitter == nil || len(rows) == 0 {
		return
	}
	if err := r.emitter.EmitRows(task, source, rows); err != nil {
		r.log.Warn("Emit rows failed", "task", task.Name, "source", source, "err", err)
	}
}

func (r *Runner) emitErrors(source string, errs []transform.ErrorRow) {
	if r.emitter == nil || len(errs) == 0 {
		return
	}
	if err := r.emitter.EmitErrors(source, errs); err != nil {
		r.log.Warn("Emit error rows failed", "source", source, "err", err)
	}
}

func taskNames(tasks []transform.Task) []string {
	return lo.Map(tasks, func(t transform.Task, _ int) string { return t.Name })
}

// BlockFile is a block payload on disk. Source is its path relative to the blocks directory.
type BlockFile struct {
	Path   string
	Source string
}

// ListBlockFiles returns the .json and .json.gz files of dir, and with recursive those one level
// below it, sorted by source.
func ListBlockFiles(dir string, recursive bool) ([]BlockFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read blocks dir: %w", err)
	}

	var files []BlockFile
	for _, e := range entries {
		if e.IsDir() {
			if !recursive {
				continue
			}
			sub, err := os.ReadDir(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("read blocks dir: %w", err)
			}
			for _, s := range sub {
				if !s.IsDir() && isBlockFile(s.Name()) {
					files = append(files, BlockFile{
						Path:   filepath.Join(dir, e.Name(), s.Name()),
						Source: filepath.ToSlash(filepath.Join(e.Name(), s.Name())),
					})
				}
			}
			continue
		}
		if isBlockFile(e.Name()) {
			files = append(files, BlockFile{Path: filepath.Join(dir, e.Name()), Source: e.Name()})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Source < files[j].Source })
	return files, nil
}

func isBlockFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}
