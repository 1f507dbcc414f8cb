package batch

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/parcel-cli/internal/checkpoint"
	"github.com/sells-group/parcel-cli/internal/model"
	"github.com/sells-group/parcel-cli/internal/resilience"
	"github.com/sells-group/parcel-cli/internal/resolve"
	"github.com/sells-group/parcel-cli/internal/sink"
)

// MergePrior substitutes rows recovered from a previous run's output for
// their bare input counterparts. The output file is rewritten from scratch
// each run, so without the merge a resumed run would re-emit
// checkpoint-skipped rows stripped of the enrichment they already earned.
func MergePrior(rows, prior []model.DealRow) []model.DealRow {
	byID := make(map[string]model.DealRow, len(prior))
	for _, p := range prior {
		if p.ID != "" && p.Resolved() {
			byID[p.ID] = p
		}
	}
	if len(byID) == 0 {
		return rows
	}

	merged := make([]model.DealRow, len(rows))
	for i, row := range rows {
		if p, ok := byID[row.ID]; ok {
			merged[i] = p
		} else {
			merged[i] = row
		}
	}
	return merged
}

// Summary reports per-status counts for one enrichment run.
type Summary struct {
	RunID   string
	Total   int
	Skipped int
	Counts  map[model.ResolutionStatus]int
}

// Enricher runs the resolver over a deals dataset with idempotent skips,
// jurisdiction filtering, bounded concurrency, and an incremental sink.
type Enricher struct {
	Resolver *resolve.Resolver
	Sink     sink.RowSink

	// Checkpoint, when set, provides a durable completed-key set keyed by
	// RunKey so a crashed run resumes without re-resolving finished rows.
	Checkpoint *checkpoint.Store
	RunKey     string

	// CountyGEOID filters rows whose already-known county differs, without
	// any provider call. Empty disables the filter.
	CountyGEOID string

	Concurrency int
	Retry       resilience.RetryConfig

	// OnRow observes each row after its durable write.
	OnRow func(row model.DealRow)
}

// Run enriches rows and returns the per-status summary. Row failures never
// abort the run; every input row reaches the sink exactly once.
func (e *Enricher) Run(ctx context.Context, rows []model.DealRow) (*Summary, error) {
	if e.Resolver == nil || e.Sink == nil {
		return nil, eris.New("batch: enricher requires a resolver and a sink")
	}

	summary := &Summary{
		RunID:  uuid.NewString(),
		Total:  len(rows),
		Counts: make(map[model.ResolutionStatus]int),
	}
	log := zap.L().With(zap.String("run_id", summary.RunID))

	completed := map[string]bool{}
	if e.Checkpoint != nil {
		var err error
		completed, err = e.Checkpoint.Completed(ctx, e.RunKey)
		if err != nil {
			return nil, err
		}
		if len(completed) > 0 {
			log.Info("batch: resuming run", zap.Int("completed_rows", len(completed)))
		}
	}

	driver := &Driver[model.DealRow]{
		Concurrency: e.Concurrency,
		Retry:       e.Retry,
		Skip: func(row model.DealRow) bool {
			return row.Resolved() || (row.ID != "" && completed[row.ID])
		},
		Process: e.processRow,
		Fail: func(row model.DealRow, err error) model.DealRow {
			log.Warn("batch: row failed",
				zap.String("row_id", row.ID),
				zap.String("display_name", row.DisplayName),
				zap.Error(err),
			)
			row.ResolutionStatus = string(model.StatusError)
			return row
		},
		Write: func(ctx context.Context, row model.DealRow) error {
			return e.Sink.Write(ctx, row)
		},
		OnResult: func(row model.DealRow) {
			if status := model.ResolutionStatus(row.ResolutionStatus); status != "" {
				summary.Counts[status]++
			}
			// ERROR rows stay unmarked so the next run retries them.
			if e.Checkpoint != nil && row.ID != "" && model.ResolutionStatus(row.ResolutionStatus).Terminal() {
				if err := e.Checkpoint.Mark(ctx, e.RunKey, row.ID, row.ResolutionStatus); err != nil {
					log.Warn("batch: checkpoint mark failed", zap.String("row_id", row.ID), zap.Error(err))
				}
			}
			if e.OnRow != nil {
				e.OnRow(row)
			}
		},
	}

	stats, err := driver.Run(ctx, rows)
	summary.Skipped = stats.Skipped
	if err != nil {
		return summary, err
	}

	fields := []zap.Field{
		zap.Int("total", summary.Total),
		zap.Int("skipped", summary.Skipped),
	}
	for status, n := range summary.Counts {
		fields = append(fields, zap.Int(string(status), n))
	}
	log.Info("batch: run complete", fields...)

	return summary, nil
}

// processRow resolves one row. The jurisdiction pre-check and the invalid
// input check run here so filtered rows never cost a provider call.
func (e *Enricher) processRow(ctx context.Context, row model.DealRow) (model.DealRow, error) {
	if e.CountyGEOID != "" && row.CountyGEOID != "" && row.CountyGEOID != e.CountyGEOID {
		row.ResolutionStatus = string(model.StatusOutOfScope)
		return row, nil
	}

	q := row.Query()
	if err := q.Validate(); err != nil {
		zap.L().Debug("batch: row has no address or coordinate", zap.String("row_id", row.ID))
		row.ResolutionStatus = string(model.StatusError)
		return row, nil
	}

	loc, err := e.Resolver.Resolve(ctx, q)
	if err != nil {
		if resilience.IsTransient(err) {
			return row, err // retried by the driver
		}
		// Permanent failure: keep the partial result, mark the row.
		row.ApplyEnrichment(&loc)
		return row, nil
	}

	row.ApplyEnrichment(&loc)
	return row, nil
}
