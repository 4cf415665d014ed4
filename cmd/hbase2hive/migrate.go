package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/config"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/logger"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/observability"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/pipeline"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/schema"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/sink"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/source"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/status"
)

type migrateFlags struct {
	jobID         string
	workers       int
	partitionSize int
	maxWindow     int
	strict        bool
}

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	mf := &migrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run a migration job",
		Long: `Run a migration job: read every row of the source cells table, replay its
versions and tombstones, write surviving rows to the target table and publish
source and target reconciliation reports.

Example:
  hbase2hive migrate --config job.yaml
  hbase2hive migrate --schema invoices.yaml --data-dir /data/h2h --workers 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			applyMigrateFlags(cmd, cfg, mf)
			return runMigrate(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&mf.jobID, "job-id", "", "Job identifier (generated when empty)")
	f.IntVar(&mf.workers, "workers", 0, "Number of partitions processed in parallel")
	f.IntVar(&mf.partitionSize, "partition-size", 0, "Number of rows per partition")
	f.IntVar(&mf.maxWindow, "max-window", 0, "Largest version window used when re-reading a row")
	f.BoolVar(&mf.strict, "strict-columns", false, "Fail rows that reference qualifiers missing from the catalog")
	return cmd
}

func applyMigrateFlags(cmd *cobra.Command, cfg *config.Config, mf *migrateFlags) {
	f := cmd.Flags()
	if f.Changed("job-id") {
		cfg.Job.ID = mf.jobID
	}
	if f.Changed("workers") {
		cfg.Job.Workers = mf.workers
	}
	if f.Changed("partition-size") {
		cfg.Job.PartitionSize = mf.partitionSize
	}
	if f.Changed("max-window") {
		cfg.Job.MaxWindow = mf.maxWindow
	}
	if f.Changed("strict-columns") {
		cfg.Job.StrictColumns = mf.strict
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Job.ID == "" {
		cfg.Job.ID = uuid.NewString()
	}

	table, err := schema.LoadFile(cfg.Job.SchemaFile)
	if err != nil {
		return err
	}
	ops, err := recon.FromTable(table)
	if err != nil {
		return err
	}
	log := logger.WithJob(logger.Get(), cfg.Job.ID, table.Name)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Job.Timeout)
		defer cancel()
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		if metrics, err = observability.New(); err != nil {
			return err
		}
	}
	cd := codec.New(codec.WithFallbackHook(func(t codec.DataType) {
		metrics.DecodeFallback(t.String())
	}))

	src, err := source.OpenSQLiteSource(ctx, cfg.Source.Path, cfg.Source.Table, cfg.Job.InitialWindow, log)
	if err != nil {
		return err
	}
	defer src.Close()

	target, err := sink.OpenSQLiteRowSink(ctx, cfg.Sink.Path, table, log)
	if err != nil {
		return err
	}
	defer target.Close()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	compressor, err := reportCompressor(cfg.Sink.Compression)
	if err != nil {
		return err
	}
	reportOpts := []sink.FileReconSinkOption{sink.WithLogger(log)}
	if compressor != nil {
		reportOpts = append(reportOpts, sink.WithCompressor(compressor))
	}
	sourceReports := sink.NewFileReconSink(cfg.Sink.ReportDir, store, cfg.Job.ID, sink.RoleSource, reportOpts...)

	runnerOpts := []pipeline.RunnerOption{pipeline.WithLogger(log), pipeline.WithMetrics(metrics)}
	if cfg.Status.Enabled {
		srv := status.NewServer(cfg.Status.Addr, log)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop()
		runnerOpts = append(runnerOpts, pipeline.WithStatus(srv))
	}

	runner, err := pipeline.NewRunner(table, cd, src, target, sourceReports, pipeline.Options{
		JobID:         cfg.Job.ID,
		Workers:       cfg.Job.Workers,
		PartitionSize: cfg.Job.PartitionSize,
		MaxWindow:     cfg.Job.MaxWindow,
		StrictColumns: cfg.Job.StrictColumns,
	}, runnerOpts...)
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}

	targetEntity, err := target.ReconEntity(ctx, ops)
	if err != nil {
		return err
	}
	targetReports := sink.NewFileReconSink(cfg.Sink.ReportDir, store, cfg.Job.ID, sink.RoleTarget, reportOpts...)
	if err := targetReports.Write(ctx, table.Name, targetEntity); err != nil {
		return err
	}

	mismatches := recon.Compare(summary.Recon, targetEntity)
	for _, m := range mismatches {
		log.Warn("recon mismatch",
			zap.String("key", m.Key),
			zap.String("source", m.Source),
			zap.String("target", m.Target))
	}

	if snapshot, err := metrics.Snapshot(); err == nil && len(snapshot) > 0 {
		log.Debug("job metrics", zap.Any("metrics", snapshot))
	}

	printSummary(out, summary, len(mismatches))
	if summary.Failed > 0 {
		return fmt.Errorf("%d rows failed", summary.Failed)
	}
	return nil
}

func printSummary(out io.Writer, s *pipeline.RunSummary, mismatches int) {
	fmt.Fprintf(out, "Job:          %s\n", s.JobID)
	fmt.Fprintf(out, "Table:        %s\n", s.Table)
	fmt.Fprintf(out, "Rows:         %d\n", s.Rows)
	fmt.Fprintf(out, "Inserted:     %d\n", s.Inserted)
	fmt.Fprintf(out, "Deleted:      %d\n", s.Deleted)
	fmt.Fprintf(out, "Reprocessed:  %d\n", s.Reprocessed)
	fmt.Fprintf(out, "Requeued:     %d\n", s.Requeued)
	fmt.Fprintf(out, "Failed:       %d\n", s.Failed)
	fmt.Fprintf(out, "Partitions:   %d\n", s.Partitions)
	fmt.Fprintf(out, "Duration:     %s\n", s.Duration)
	fmt.Fprintf(out, "Mismatches:   %d\n", mismatches)
}
