package sink

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/codec"
	merrors "github.com/GSTNIndia/HBase-To-Hive-sub001/internal/errors"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/storage"
)

// Report roles.
const (
	RoleSource = "source"
	RoleTarget = "target"
)

// ReportPrefix is the object prefix under which reports are published.
const ReportPrefix = "recon"

// ReportRef identifies a published report.
type ReportRef struct {
	Table      string
	JobID      string
	Role       string
	ObjectPath string
}

// ReportObjectPath returns recon/<table>/<job>/<role>.json, with the
// compression algorithm appended when set.
func ReportObjectPath(table, jobID, role string, alg codec.Algorithm) string {
	name := role + ".json"
	if alg != "" {
		name += "." + string(alg)
	}
	return path.Join(ReportPrefix, table, jobID, name)
}

// ParseReportObjectPath is the inverse of ReportObjectPath.
func ParseReportObjectPath(objectPath string) (ReportRef, bool) {
	parts := strings.Split(objectPath, "/")
	if len(parts) != 4 || parts[0] != ReportPrefix {
		return ReportRef{}, false
	}
	role, _, _ := strings.Cut(parts[3], ".")
	if role != RoleSource && role != RoleTarget {
		return ReportRef{}, false
	}
	return ReportRef{Table: parts[1], JobID: parts[2], Role: role, ObjectPath: objectPath}, true
}

// FileReconSink writes report files to a local directory and uploads them.
type FileReconSink struct {
	dir        string
	store      storage.ObjectStorage
	jobID      string
	role       string
	compressor codec.Compressor
	logger     *zap.Logger

	written []string
}

// FileReconSinkOption configures a FileReconSink.
type FileReconSinkOption func(*FileReconSink)

// WithCompressor compresses report files with c.
func WithCompressor(c codec.Compressor) FileReconSinkOption {
	return func(s *FileReconSink) { s.compressor = c }
}

// WithLogger sets the sink logger.
func WithLogger(l *zap.Logger) FileReconSinkOption {
	return func(s *FileReconSink) { s.logger = l }
}

// NewFileReconSink creates a sink publishing role reports of jobID.
func NewFileReconSink(dir string, store storage.ObjectStorage, jobID, role string, opts ...FileReconSinkOption) *FileReconSink {
	s := &FileReconSink{dir: dir, store: store, jobID: jobID, role: role, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write publishes the report of entity. Entities that saw no insert and no
// delete produce no file.
func (s *FileReconSink) Write(ctx context.Context, groupKey string, entity *recon.ReconEntity) error {
	if entity == nil || !entity.AreHdfsFilesCreated() {
		s.logger.Info("no recon report written, nothing was migrated", zap.String("group", groupKey))
		return nil
	}

	data, err := entity.ToReport(groupKey).Marshal()
	if err != nil {
		return merrors.NewSinkError("failed to encode recon report", err)
	}

	var alg codec.Algorithm
	if s.compressor != nil {
		alg = s.compressor.Algorithm()
		if data, err = s.compressor.Compress(data); err != nil {
			return merrors.NewSinkError("failed to compress recon report", err)
		}
	}

	objectPath := ReportObjectPath(groupKey, s.jobID, s.role, alg)
	localPath := filepath.Join(s.dir, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return merrors.NewSinkError("failed to create report directory", err)
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return merrors.NewSinkError("failed to write recon report", err)
	}
	if err := s.store.Upload(ctx, localPath, objectPath); err != nil {
		return err
	}

	s.written = append(s.written, objectPath)
	s.logger.Info("recon report published",
		zap.String("group", groupKey),
		zap.String("object", objectPath),
		zap.Int64("row_count", entity.RowCount()))
	return nil
}

// Written returns the object paths published so far.
func (s *FileReconSink) Written() []string {
	return append([]string(nil), s.written...)
}

// ReadReportFile reads a report written by FileReconSink, decompressing it
// according to its extension.
func ReadReportFile(localPath string) (recon.Report, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return recon.Report{}, fmt.Errorf("sink: failed to read report: %w", err)
	}
	if ext := strings.TrimPrefix(filepath.Ext(localPath), "."); ext != "json" {
		c, err := codec.NewCompressor(ext)
		if err != nil {
			return recon.Report{}, fmt.Errorf("sink: report %s: %w", localPath, err)
		}
		if data, err = c.Decompress(data); err != nil {
			return recon.Report{}, fmt.Errorf("sink: failed to decompress report: %w", err)
		}
	}
	return recon.ParseReport(data)
}
