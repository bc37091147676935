package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueName is the queue all audit tasks land on.
	QueueName = "audit"
	// TaskTypeDecision carries a DecisionRecord.
	TaskTypeDecision = "audit:decision"
	// TaskTypeChange carries a ChangeRecord.
	TaskTypeChange = "audit:change"

	maxRetry = 10
)

// Recorder accepts audit records. Implementations must not drop records:
// RecordDecision returning nil means the record is durably queued or stored.
type Recorder interface {
	RecordDecision(ctx context.Context, rec DecisionRecord) error
	RecordChange(ctx context.Context, rec ChangeRecord) error
}

// Enqueuer is the slice of asynq.Client the recorder needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueRecorder enqueues audit records to Redis via asynq. The enqueue
// completes before the call returns, so a nil error guarantees the record
// survives a process crash.
type QueueRecorder struct {
	client Enqueuer
	queue  string
}

// NewQueueRecorder constructs a QueueRecorder. An empty queue name falls
// back to QueueName.
func NewQueueRecorder(client Enqueuer, queue string) *QueueRecorder {
	if queue == "" {
		queue = QueueName
	}
	return &QueueRecorder{client: client, queue: queue}
}

// NewDecisionTask constructs the asynq task for a decision record.
func NewDecisionTask(rec DecisionRecord) (*asynq.Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDecision, data), nil
}

// NewChangeTask constructs the asynq task for a change record.
func NewChangeTask(rec ChangeRecord) (*asynq.Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeChange, data), nil
}

// RecordDecision enqueues the decision record.
func (r *QueueRecorder) RecordDecision(ctx context.Context, rec DecisionRecord) error {
	if r == nil || r.client == nil {
		return errors.New("audit: recorder not configured")
	}
	task, err := NewDecisionTask(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal decision: %w", err)
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(r.queue), asynq.MaxRetry(maxRetry)); err != nil {
		return fmt.Errorf("audit: enqueue decision: %w", err)
	}
	return nil
}

// RecordChange enqueues the change record.
func (r *QueueRecorder) RecordChange(ctx context.Context, rec ChangeRecord) error {
	if r == nil || r.client == nil {
		return errors.New("audit: recorder not configured")
	}
	task, err := NewChangeTask(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal change: %w", err)
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue(r.queue), asynq.MaxRetry(maxRetry)); err != nil {
		return fmt.Errorf("audit: enqueue change: %w", err)
	}
	return nil
}
