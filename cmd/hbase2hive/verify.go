package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"

	"github.com/spf13/cobra"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/sink"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/storage"
)

func newVerifyCmd(flags *globalFlags) *cobra.Command {
	var (
		table       string
		jobID       string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare published source and target reconciliation reports",
		Long: `Download the reconciliation reports of a table and compare the source and
target counters of every job. Exits non-zero when any job does not reconcile.

Example:
  hbase2hive verify --config job.yaml --table invoices
  hbase2hive verify --table invoices --job 7d0c...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			cacheDir, err := os.MkdirTemp("", "h2h-verify-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(cacheDir)

			return runVerify(ctx, store, storage.NewFetcher(store, concurrency, cacheDir),
				table, jobID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "Target table name (required)")
	cmd.Flags().StringVar(&jobID, "job", "", "Only verify this job")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Concurrent report downloads")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

// jobReports holds the report objects of one job.
type jobReports struct {
	source, target string
}

func runVerify(ctx context.Context, store storage.ObjectStorage, fetcher *storage.Fetcher,
	table, jobID string, out io.Writer) error {
	objects, err := store.ListObjects(ctx, path.Join(sink.ReportPrefix, table)+"/")
	if err != nil {
		return err
	}

	jobs := make(map[string]*jobReports)
	var paths []string
	for _, obj := range objects {
		ref, ok := sink.ParseReportObjectPath(obj)
		if !ok || ref.Table != table || (jobID != "" && ref.JobID != jobID) {
			continue
		}
		jr := jobs[ref.JobID]
		if jr == nil {
			jr = &jobReports{}
			jobs[ref.JobID] = jr
		}
		if ref.Role == sink.RoleSource {
			jr.source = obj
		} else {
			jr.target = obj
		}
		paths = append(paths, obj)
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no recon reports found for table %s", table)
	}

	fetched, err := fetcher.Fetch(ctx, paths)
	if err != nil {
		return err
	}
	if len(fetched.Errors) > 0 {
		failedPaths := make([]string, 0, len(fetched.Errors))
		for obj := range fetched.Errors {
			failedPaths = append(failedPaths, obj)
		}
		sort.Strings(failedPaths)
		return fmt.Errorf("failed to fetch %d reports, first %s: %w",
			len(failedPaths), failedPaths[0], fetched.Errors[failedPaths[0]])
	}

	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	failed := 0
	for _, id := range ids {
		jr := jobs[id]
		src, err := loadEntity(fetched.LocalPaths, jr.source)
		if err != nil {
			return err
		}
		tgt, err := loadEntity(fetched.LocalPaths, jr.target)
		if err != nil {
			return err
		}

		mismatches := recon.Compare(src, tgt)
		if len(mismatches) == 0 {
			fmt.Fprintf(out, "%s: OK (%d rows)\n", id, src.RowCount())
			continue
		}
		failed++
		fmt.Fprintf(out, "%s: MISMATCH\n", id)
		for _, m := range mismatches {
			fmt.Fprintf(out, "  %-24s source=%s target=%s\n", m.Key, m.Source, m.Target)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs do not reconcile", failed, len(ids))
	}
	return nil
}

// loadEntity reads the report published at objectPath. A job that published no
// report on one side migrated nothing there, which reads as an empty entity.
func loadEntity(local map[string]string, objectPath string) (*recon.ReconEntity, error) {
	if objectPath == "" {
		return recon.NewReconEntity(), nil
	}
	report, err := sink.ReadReportFile(local[objectPath])
	if err != nil {
		return nil, err
	}
	return report.Entity()
}
