package pipeline

import (
	"log/slog"

	"github.com/roach88/marrow/internal/rowkey"
	"github.com/roach88/marrow/internal/track"
)

// RollbackCoordinator reverts store-generated values after a failed batch
// so the tracked-object store stays internally consistent.
//
// Every tracked record of the failed batch has its provisionally set
// generated values discarded, object by object: captured primary keys and
// the foreign-key values propagated from them. Rows that existed before
// the save are then re-indexed in the identity map under their pre-save
// key, resolved in original mode, so re-querying behaves exactly as before
// the attempted write.
type RollbackCoordinator struct {
	builders map[string]*rowkey.Builder
	identity map[string]*track.IdentityMap
	log      *slog.Logger
}

// Rollback processes the failed batch's rows. Never fails: a record with
// nothing provisional is a no-op, and rows without a resolvable pre-save
// key (pure inserts) were never indexed.
func (c *RollbackCoordinator) Rollback(rows []*Row) {
	discarded := 0
	for _, row := range rows {
		for _, rec := range row.record.Records() {
			if rec.HasGenerated() {
				rec.DiscardGenerated()
				discarded++
			}
		}
	}

	reindexed := 0
	for _, row := range rows {
		if row.state() == track.Added {
			continue
		}
		tableName := row.record.Table().Name
		builder, ok := c.builders[tableName]
		if !ok {
			continue
		}
		key, resolvable := builder.FromWriteRecord(row.record, true)
		if !resolvable {
			continue
		}
		if err := c.identity[tableName].Add(key, firstRecord(row.record)); err == nil {
			reindexed++
		}
	}

	c.log.Info("rolled back generated values", "records", discarded, "reindexed", reindexed)
}
