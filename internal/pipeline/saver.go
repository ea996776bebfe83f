package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/marrow/internal/model"
	"github.com/roach88/marrow/internal/rowkey"
	"github.com/roach88/marrow/internal/track"
)

// RowPlan is one row's resolved identity in both temporal modes, computed
// before any I/O.
type RowPlan struct {
	Row *Row
	Op  track.EntryState

	CurrentKey      rowkey.KeyTuple
	CurrentComplete bool

	OriginalKey      rowkey.KeyTuple
	OriginalComplete bool
}

// Plan is the resolved batch: rows in execution order with their key
// tuples.
type Plan struct {
	Rows []RowPlan
}

// Planner resolves batch rows to key tuples without touching a database.
// Built once per model; key builders are precomposed per table.
type Planner struct {
	mdl      *model.Model
	builders map[string]*rowkey.Builder
}

// NewPlanner precomposes a primary-key builder per table. Metadata defects
// abort here.
func NewPlanner(mdl *model.Model) (*Planner, error) {
	builders := make(map[string]*rowkey.Builder)
	for _, t := range mdl.Tables() {
		b, err := rowkey.NewKeyBuilder(t.PrimaryKey)
		if err != nil {
			return nil, fmt.Errorf("planner: table %q: %w", t.Name, err)
		}
		builders[t.Name] = b
	}
	return &Planner{mdl: mdl, builders: builders}, nil
}

// KeyBuilder returns the primary-key builder for a table.
func (p *Planner) KeyBuilder(table string) (*rowkey.Builder, bool) {
	b, ok := p.builders[table]
	return b, ok
}

// Plan resolves every row's key in both temporal modes and validates the
// batch: two rows resolving to the same identity in one table - by either
// mode, so updates and deletes of one existing row collide just like two
// inserts with one explicit key - is a duplicate-row-target conflict, and
// an update or delete without a resolvable pre-save identity cannot be
// written.
//
// Incomplete current keys on inserts are expected (store-generated keys
// have not materialized yet) and do not fail planning.
func (p *Planner) Plan(b *Batch) (*Plan, error) {
	plan := &Plan{Rows: make([]RowPlan, 0, b.Len())}
	seen := make(map[string]*track.IdentityMap)

	for _, row := range b.Rows() {
		tableName := row.record.Table().Name
		builder := p.builders[tableName]

		cur, curOK := builder.FromWriteRecord(row.record, false)
		orig, origOK := builder.FromWriteRecord(row.record, true)
		op := row.state()

		if (op == track.Modified || op == track.Deleted) && !origOK {
			return nil, &SaveError{
				Code:    ErrCodeUnresolvedKey,
				Message: fmt.Sprintf("%s row has no resolvable pre-save key", op),
				Table:   tableName,
			}
		}

		// A row occupies every identity it resolves: the key being
		// written and the pre-save key it vacates.
		var keys []rowkey.KeyTuple
		if curOK {
			keys = append(keys, cur)
		}
		if origOK && (!curOK || !builder.Comparer().Equal(cur, orig)) {
			keys = append(keys, orig)
		}
		if len(keys) > 0 {
			idx := seen[tableName]
			if idx == nil {
				idx = track.NewIdentityMap(builder.Comparer())
				seen[tableName] = idx
			}
			for _, key := range keys {
				if _, dup := idx.Get(key); dup {
					return nil, &SaveError{
						Code:    ErrCodeDuplicateRowTarget,
						Message: "two pending writes target the same row",
						Table:   tableName,
					}
				}
			}
			for _, key := range keys {
				if err := idx.Add(key, firstRecord(row.record)); err != nil {
					return nil, err
				}
			}
		}

		plan.Rows = append(plan.Rows, RowPlan{
			Row: row, Op: op,
			CurrentKey: cur, CurrentComplete: curOK,
			OriginalKey: orig, OriginalComplete: origOK,
		})
	}
	return plan, nil
}

// SaveResult reports what a committed batch did.
type SaveResult struct {
	Token     string
	Inserted  int
	Updated   int
	Deleted   int
	Generated []GeneratedKey
}

// GeneratedKey is one store-assigned primary key captured during a save.
type GeneratedKey struct {
	Table string
	Key   int64
}

// Saver executes batches against SQLite and maintains per-table identity
// maps over the tracked records it has saved or planned.
type Saver struct {
	*Planner

	db       *sql.DB
	log      *slog.Logger
	identity map[string]*track.IdentityMap
	rollback *RollbackCoordinator
}

// NewSaver builds a saver over an open database handle. The logger may be
// nil for a no-op default.
func NewSaver(mdl *model.Model, db *sql.DB, logger *slog.Logger) (*Saver, error) {
	planner, err := NewPlanner(mdl)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}
	identity := make(map[string]*track.IdentityMap)
	for _, t := range mdl.Tables() {
		identity[t.Name] = track.NewIdentityMap(planner.builders[t.Name].Comparer())
	}
	s := &Saver{Planner: planner, db: db, log: logger, identity: identity}
	s.rollback = &RollbackCoordinator{builders: planner.builders, identity: identity, log: logger}
	return s, nil
}

// Identity returns the identity map for a table.
func (s *Saver) Identity(table string) *track.IdentityMap {
	return s.identity[table]
}

// Rollback returns the generated-value rollback coordinator.
func (s *Saver) Rollback() *RollbackCoordinator { return s.rollback }

// Save plans and executes a batch in a single transaction.
//
// Before I/O, rows with a resolvable pre-save key are indexed in the
// identity map under that key. After commit, records accept their changes
// and are re-indexed under their current (possibly store-generated) keys;
// deleted rows leave the map. On any execution failure the transaction is
// rolled back, the rollback coordinator reverts provisional generated
// values on every tracked record, and the identity map answers by pre-save
// keys exactly as before the attempt.
func (s *Saver) Save(ctx context.Context, b *Batch) (*SaveResult, error) {
	token := uuid.New().String()
	log := s.log.With("save", token)

	plan, err := s.Plan(b)
	if err != nil {
		var se *SaveError
		if errors.As(err, &se) {
			se.SaveToken = token
		}
		return nil, err
	}
	log.Debug("batch planned", "rows", len(plan.Rows))

	// Pre-save indexing by original key.
	for _, rp := range plan.Rows {
		if rp.Op != track.Added && rp.OriginalComplete {
			if err := s.identity[rp.Row.record.Table().Name].Add(rp.OriginalKey, firstRecord(rp.Row.record)); err != nil {
				return nil, err
			}
		}
	}

	result := &SaveResult{Token: token}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &SaveError{Code: ErrCodeExecFailed, Message: fmt.Sprintf("begin tx: %v", err), SaveToken: token, Err: err}
	}
	defer tx.Rollback() // no-op once committed

	for i := range plan.Rows {
		rp := &plan.Rows[i]
		if err := s.executeRow(ctx, tx, rp, result); err != nil {
			log.Warn("batch failed, rolling back", "table", rp.Row.record.Table().Name, "error", err)
			s.rollback.Rollback(b.Rows())
			return nil, &SaveError{
				Code:      ErrCodeExecFailed,
				Message:   "batch execution failed",
				Table:     rp.Row.record.Table().Name,
				SaveToken: token,
				Err:       err,
			}
		}
	}

	if err := tx.Commit(); err != nil {
		s.rollback.Rollback(b.Rows())
		return nil, &SaveError{Code: ErrCodeExecFailed, Message: fmt.Sprintf("commit: %v", err), SaveToken: token, Err: err}
	}

	s.acceptBatch(plan)
	log.Info("batch committed",
		"inserted", result.Inserted, "updated", result.Updated, "deleted", result.Deleted)
	return result, nil
}

// acceptBatch re-indexes committed rows by their new current keys and
// promotes record state. Runs only after a successful commit.
func (s *Saver) acceptBatch(plan *Plan) {
	for _, rp := range plan.Rows {
		tableName := rp.Row.record.Table().Name
		builder := s.builders[tableName]
		idx := s.identity[tableName]

		// Keys must be read before AcceptChanges moves records to
		// Unchanged: current-mode eligibility depends on pending state.
		cur, curOK := builder.FromWriteRecord(rp.Row.record, false)

		switch rp.Op {
		case track.Deleted:
			if rp.OriginalComplete {
				idx.Remove(rp.OriginalKey)
			}
		case track.Added, track.Modified:
			if rp.OriginalComplete && curOK && !builder.Comparer().Equal(rp.OriginalKey, cur) {
				idx.Remove(rp.OriginalKey)
			}
			if curOK {
				idx.Add(cur, firstRecord(rp.Row.record))
			}
		}

		for _, rec := range rp.Row.record.Records() {
			rec.AcceptChanges()
		}
	}
}

func firstRecord(wr *track.WriteRecord) *track.ChangeRecord {
	if recs := wr.Records(); len(recs) > 0 {
		return recs[0]
	}
	return nil
}
