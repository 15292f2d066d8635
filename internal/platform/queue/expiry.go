// Package queue schedules hold expiry as delayed asynq tasks so a lapsed
// hold is cleared close to its deadline instead of on the next sweep.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const TypeExpireHold = "slot:expire_hold"

type ExpirePayload struct {
	SlotID  uuid.UUID `json:"slot_id"`
	Version int       `json:"version"`
}

// RedisOpt parses a redis:// URL into asynq connection options.
func RedisOpt(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opt, nil
}

// NewExpireTask builds the task for one hold. The task id is derived from
// slot and version so re-scheduling the same hold is a no-op.
func NewExpireTask(slotID uuid.UUID, version int, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(ExpirePayload{SlotID: slotID, Version: version})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeExpireHold, payload,
		asynq.TaskID(fmt.Sprintf("expire:%s:%d", slotID, version)),
		asynq.ProcessAt(at),
		asynq.MaxRetry(3),
	), nil
}

// Scheduler enqueues expiry tasks.
type Scheduler struct {
	client *asynq.Client
}

func NewScheduler(opt asynq.RedisConnOpt) *Scheduler {
	return &Scheduler{client: asynq.NewClient(opt)}
}

func (s *Scheduler) ScheduleExpiry(ctx context.Context, slotID uuid.UUID, version int, at time.Time) error {
	task, err := NewExpireTask(slotID, version, at)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, task)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("enqueue expiry for slot %s: %w", slotID, err)
	}
	return nil
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}

// Expirer clears a lapsed hold. It must be a no-op when the hold is still
// live or already gone.
type Expirer interface {
	Expire(ctx context.Context, slotID uuid.UUID) (bool, error)
}

// HandleExpire returns the asynq handler for TypeExpireHold.
func HandleExpire(expirer Expirer, logger zerolog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p ExpirePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", TypeExpireHold, err, asynq.SkipRetry)
		}
		expired, err := expirer.Expire(ctx, p.SlotID)
		if err != nil {
			return err
		}
		logger.Debug().
			Str("slot_id", p.SlotID.String()).
			Int("version", p.Version).
			Bool("expired", expired).
			Msg("expiry task handled")
		return nil
	}
}

// Worker runs the asynq server that processes expiry tasks.
type Worker struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewWorker(opt asynq.RedisConnOpt, expirer Expirer, logger zerolog.Logger) *Worker {
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues:      map[string]int{"default": 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpireHold, HandleExpire(expirer, logger))
	return &Worker{srv: srv, mux: mux}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
