// Package sink writes merged rows to the target table and reconciliation
// reports to object storage.
package sink

import (
	"context"

	"github.com/GSTNIndia/HBase-To-Hive-sub001/internal/recon"
)

// RowSink receives resolved rows keyed by the stored row key.
type RowSink interface {
	// Apply writes the full projected row, replacing any previous version.
	Apply(ctx context.Context, key []byte, values map[string]string) error

	// Delete removes the row.
	Delete(ctx context.Context, key []byte) error

	// Requeue records a row that stayed ambiguous at window for a later run.
	Requeue(ctx context.Context, key []byte, window int) error

	Close() error
}

// ReconSink publishes the reduced reconciliation entity of a group.
type ReconSink interface {
	Write(ctx context.Context, groupKey string, entity *recon.ReconEntity) error
}
