package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/merge"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/observability"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/sink"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/source"
)

// Options control partitioning and reprocessing.
type Options struct {
	JobID string

	// Workers is the number of partitions processed at once
	Workers int

	// PartitionSize is the number of rows per partition
	PartitionSize int

	// MaxWindow bounds re-reads; zero re-reads ambiguous rows with every version
	MaxWindow int

	// StrictColumns fails rows that reference unknown qualifiers; otherwise
	// those qualifiers are dropped
	StrictColumns bool
}

// StatusReporter receives the health of the running job.
type StatusReporter interface {
	SetServing(serving bool)
}

// RunSummary describes a finished run.
type RunSummary struct {
	JobID       string
	Table       string
	Rows        int64
	Inserted    int64
	Deleted     int64
	Reprocessed int64
	Requeued    int64
	Failed      int64
	Partitions  int64
	Duration    time.Duration

	// Recon is the reduced reconciliation entity of every row written
	Recon *recon.ReconEntity
}

// Runner executes one migration job.
type Runner struct {
	table     *schema.Table
	engine    *merge.Engine
	projector *Projector
	ops       recon.ColumnOperations
	source    source.RowSource
	rowSink   sink.RowSink
	reconSink sink.ReconSink
	metrics   *observability.Metrics
	status    StatusReporter
	logger    *zap.Logger
	opts      Options

	counters counters
}

type counters struct {
	rows, inserted, deleted, reprocessed, requeued, failed, partitions atomic.Int64
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMetrics records job metrics in m.
func WithMetrics(m *observability.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the job logger.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithStatus reports job health to s.
func WithStatus(s StatusReporter) RunnerOption {
	return func(r *Runner) { r.status = s }
}

// NewRunner creates a runner. c decodes cell values; reconSink may be nil.
func NewRunner(table *schema.Table, c *codec.Codec, src source.RowSource, rowSink sink.RowSink,
	reconSink sink.ReconSink, opts Options, options ...RunnerOption) (*Runner, error) {
	ops, err := recon.FromTable(table)
	if err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.PartitionSize < 1 {
		opts.PartitionSize = 1000
	}

	engine := merge.NewEngine(table.Catalog)
	r := &Runner{
		table:     table,
		engine:    engine,
		projector: NewProjector(table, engine, c),
		ops:       ops,
		source:    src,
		rowSink:   rowSink,
		reconSink: reconSink,
		logger:    zap.NewNop(),
		opts:      opts,
	}
	for _, o := range options {
		o(r)
	}
	r.logger = r.logger.With(zap.String("job_id", opts.JobID), zap.String("table", table.Name))
	return r, nil
}

// Run reads every row of the source, processes partitions in parallel and
// publishes the reduced reconciliation entity under the table name.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	r.logger.Info("migration started",
		zap.Int("workers", r.opts.Workers),
		zap.Int("partition_size", r.opts.PartitionSize))

	var (
		mu       sync.Mutex
		entities []*recon.ReconEntity
	)

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(r.opts.Workers))

	readErr := func() error {
		for partition := 0; ; partition++ {
			rows, err := r.readPartition(gctx)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			id := partition
			g.Go(func() error {
				defer sem.Release(1)
				entity, err := r.processPartition(gctx, id, rows)
				if err != nil {
					return err
				}
				mu.Lock()
				entities = append(entities, entity)
				mu.Unlock()
				return nil
			})
		}
	}()

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: partition failed: %w", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("pipeline: read failed: %w", readErr)
	}

	total, err := recon.ParallelReduce(ctx, entities, recon.DefaultFanIn)
	if err != nil {
		return nil, err
	}
	if r.reconSink != nil {
		if err := r.reconSink.Write(ctx, r.table.Name, total); err != nil {
			return nil, fmt.Errorf("pipeline: recon sink: %w", err)
		}
	}

	summary := &RunSummary{
		JobID:       r.opts.JobID,
		Table:       r.table.Name,
		Rows:        r.counters.rows.Load(),
		Inserted:    r.counters.inserted.Load(),
		Deleted:     r.counters.deleted.Load(),
		Reprocessed: r.counters.reprocessed.Load(),
		Requeued:    r.counters.requeued.Load(),
		Failed:      r.counters.failed.Load(),
		Partitions:  r.counters.partitions.Load(),
		Duration:    time.Since(start),
		Recon:       total,
	}
	r.logger.Info("migration finished",
		zap.Int64("rows", summary.Rows),
		zap.Int64("inserted", summary.Inserted),
		zap.Int64("deleted", summary.Deleted),
		zap.Int64("requeued", summary.Requeued),
		zap.Int64("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (r *Runner) readPartition(ctx context.Context) ([]*merge.RowHistory, error) {
	rows := make([]*merge.RowHistory, 0, r.opts.PartitionSize)
	for len(rows) < r.opts.PartitionSize {
		h, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, h)
	}
	return rows, nil
}

// processPartition folds rows into a fresh entity owned by this worker. Data
// errors fail only their row; source and sink errors fail the partition.
func (r *Runner) processPartition(ctx context.Context, id int, rows []*merge.RowHistory) (*recon.ReconEntity, error) {
	start := time.Now()
	entity := recon.NewReconEntity()

	for _, h := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := r.processRow(ctx, h, entity)
		if err == nil {
			continue
		}
		if isInfrastructure(err) {
			return nil, err
		}
		r.counters.failed.Add(1)
		r.metrics.RowFailed()
		if r.status != nil {
			r.status.SetServing(false)
		}
		r.logger.Warn("row failed", zap.Binary("row_key", h.Key), zap.Error(err))
	}

	r.counters.partitions.Add(1)
	r.metrics.PartitionCompleted(time.Since(start))
	r.logger.Debug("partition completed",
		zap.Int("partition", id),
		zap.Int("rows", len(rows)),
		zap.Duration("duration", time.Since(start)))
	return entity, nil
}

func (r *Runner) processRow(ctx context.Context, h *merge.RowHistory, entity *recon.ReconEntity) error {
	r.counters.rows.Add(1)

	for {
		if !r.opts.StrictColumns {
			if dropped := Prune(h, r.table.Catalog); len(dropped) > 0 {
				r.logger.Debug("unknown qualifiers dropped",
					zap.Binary("row_key", h.Key), zap.Stringers("qualifiers", dropped))
			}
		}

		res, err := r.engine.Process(h)
		if err != nil {
			return err
		}

		if res.ReprocessRow {
			next, ok := r.nextWindow(h.Window)
			if !ok {
				r.counters.requeued.Add(1)
				r.metrics.RowRequeued()
				return r.rowSink.Requeue(ctx, h.Key, h.Window)
			}
			r.counters.reprocessed.Add(1)
			r.metrics.RowReprocessed()
			if h, err = r.source.Reread(ctx, h.Key, next); err != nil {
				return err
			}
			continue
		}

		outcome := res.Outcome()
		if outcome.Insert {
			values, err := r.projector.Project(res)
			if err != nil {
				return err
			}
			if err := entity.Add(values, r.ops); err != nil {
				return err
			}
			if err := r.rowSink.Apply(ctx, h.Key, values); err != nil {
				return err
			}
			r.counters.inserted.Add(1)
		} else {
			if err := r.rowSink.Delete(ctx, h.Key); err != nil {
				return err
			}
			if outcome.DeleteAll {
				r.counters.deleted.Add(1)
			}
		}
		entity.CheckAndSetDeletionFlags(outcome)
		r.metrics.RowProcessed(outcomeLabel(outcome))
		return nil
	}
}

// nextWindow doubles window up to MaxWindow. It reports false once the window
// cannot grow.
func (r *Runner) nextWindow(window int) (int, bool) {
	if window <= 0 {
		return 0, false
	}
	if r.opts.MaxWindow <= 0 {
		return 0, true
	}
	if window >= r.opts.MaxWindow {
		return 0, false
	}
	next := window * 2
	if next > r.opts.MaxWindow {
		next = r.opts.MaxWindow
	}
	return next, true
}

func outcomeLabel(o merge.RowOutcome) string {
	switch {
	case o.DeleteSingle:
		return "delete_single"
	case o.Insert:
		return "insert"
	case o.DeleteAll:
		return "delete_all"
	}
	return "empty"
}

// isInfrastructure reports errors that are not caused by the row's data.
func isInfrastructure(err error) bool {
	switch merrors.GetCategory(err) {
	case merrors.ErrCategoryMerge, merrors.ErrCategoryCodec, merrors.ErrCategorySchema,
		merrors.ErrCategoryRecon, merrors.ErrCategoryRowKey:
		return false
	}
	return true
}
