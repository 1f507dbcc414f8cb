// Package sink provides incremental row destinations for batch enrichment:
// a write-as-you-go CSV file and a Postgres upsert table.
package sink

import (
	"context"

	"github.com/sells-group/parcel-cli/internal/model"
)

// RowSink receives enriched rows one at a time. Write must leave the row
// durably recorded before returning so that a crash after row N leaves
// rows 1..N recoverable.
type RowSink interface {
	Write(ctx context.Context, row model.DealRow) error
	Close() error
}
