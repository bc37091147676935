package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writer persists audit records into PostgreSQL. Task delivery is
// at-least-once, so inserts key on the record ID and ignore duplicates.
type Writer struct {
	pool *pgxpool.Pool
}

// NewWriter constructs a Writer.
func NewWriter(pool *pgxpool.Pool) *Writer {
	return &Writer{pool: pool}
}

// HandleDecisionTask processes TaskTypeDecision tasks.
func (w *Writer) HandleDecisionTask(ctx context.Context, t *asynq.Task) error {
	var rec DecisionRecord
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return asynq.SkipRetry
	}
	return w.insertDecision(ctx, rec)
}

// HandleChangeTask processes TaskTypeChange tasks.
func (w *Writer) HandleChangeTask(ctx context.Context, t *asynq.Task) error {
	var rec ChangeRecord
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return asynq.SkipRetry
	}
	return w.insertChange(ctx, rec)
}

func (w *Writer) insertDecision(ctx context.Context, rec DecisionRecord) error {
	if w == nil || w.pool == nil {
		return errors.New("audit: writer not configured")
	}
	_, err := w.pool.Exec(ctx, `
		INSERT INTO audit_decisions (id, user_id, required, effective, outcome, reason, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.UserID, rec.Required, rec.Effective, rec.Outcome, rec.Reason, rec.CheckedAt)
	return err
}

func (w *Writer) insertChange(ctx context.Context, rec ChangeRecord) error {
	if w == nil || w.pool == nil {
		return errors.New("audit: writer not configured")
	}
	metaJSON, err := json.Marshal(rec.Meta)
	if err != nil {
		return err
	}
	_, err = w.pool.Exec(ctx, `
		INSERT INTO audit_changes (id, actor_id, action, entity, entity_id, meta, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.ActorID, rec.Action, rec.Entity, rec.EntityID, metaJSON, rec.At)
	return err
}
