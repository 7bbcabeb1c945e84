package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/simplemailer/simplemailer/internal/database"
	"github.com/simplemailer/simplemailer/internal/logger"
)

const (
	runKeyPrefix            = "dispatch:run:"
	dispatchCompleteChannel = "dispatch:completed"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
)

// DispatchFailure describes one message that could not be sent
type DispatchFailure struct {
	Recipient string `json:"recipient"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

// DispatchReport summarizes a finished background dispatch
type DispatchReport struct {
	RunID      string            `json:"runId"`
	Total      int               `json:"total"`
	Sent       int               `json:"sent"`
	Failed     int               `json:"failed"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Failures   []DispatchFailure `json:"failures,omitempty"`
}

// DispatchObserver is notified about background dispatch runs
type DispatchObserver interface {
	OnDispatchStart(ctx context.Context, runID string, total int)
	OnDispatchComplete(ctx context.Context, report DispatchReport)
}

// LogObserver writes run summaries to the log
type LogObserver struct {
	log *logger.Logger
}

// NewLogObserver creates a LogObserver
func NewLogObserver(log *logger.Logger) *LogObserver {
	return &LogObserver{log: log.WithComponent("bulk_send")}
}

// OnDispatchStart logs the start of a run
func (o *LogObserver) OnDispatchStart(_ context.Context, runID string, total int) {
	o.log.Info().Str("run_id", runID).Int("total", total).Msg("bulk send started")
}

// OnDispatchComplete logs the outcome of a run
func (o *LogObserver) OnDispatchComplete(_ context.Context, report DispatchReport) {
	event := o.log.Info()
	if report.Failed > 0 {
		event = o.log.Warn()
	}
	event.
		Str("run_id", report.RunID).
		Int("total", report.Total).
		Int("sent", report.Sent).
		Int("failed", report.Failed).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("bulk send finished")
}

// DispatchRun is the stored state of a run
type DispatchRun struct {
	RunID      string     `json:"runId"`
	Status     string     `json:"status"`
	Total      int        `json:"total"`
	Sent       int        `json:"sent"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// ErrRunNotFound is returned for unknown or expired run ids
var ErrRunNotFound = errors.New("dispatch run not found")

// RedisRunRecorder keeps run state in a Redis hash and publishes completed
// reports on the dispatch:completed channel.
type RedisRunRecorder struct {
	rdb *database.Redis
	ttl time.Duration
	log *logger.Logger
}

// NewRedisRunRecorder creates a RedisRunRecorder
func NewRedisRunRecorder(rdb *database.Redis, ttl time.Duration, log *logger.Logger) *RedisRunRecorder {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRunRecorder{rdb: rdb, ttl: ttl, log: log.WithComponent("run_recorder")}
}

// OnDispatchStart stores a running entry
func (r *RedisRunRecorder) OnDispatchStart(ctx context.Context, runID string, total int) {
	err := r.rdb.HSetWithTTL(ctx, runKeyPrefix+runID, r.ttl, map[string]interface{}{
		"status":     RunStatusRunning,
		"total":      total,
		"sent":       0,
		"failed":     0,
		"started_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		r.log.Warn().Err(err).Str("run_id", runID).Msg("failed to record run start")
	}
}

// OnDispatchComplete stores the final counts and publishes the report
func (r *RedisRunRecorder) OnDispatchComplete(ctx context.Context, report DispatchReport) {
	err := r.rdb.HSetWithTTL(ctx, runKeyPrefix+report.RunID, r.ttl, map[string]interface{}{
		"status":      RunStatusCompleted,
		"total":       report.Total,
		"sent":        report.Sent,
		"failed":      report.Failed,
		"started_at":  report.StartedAt.UTC().Format(time.RFC3339Nano),
		"finished_at": report.FinishedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		r.log.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to record run completion")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := r.rdb.Publish(ctx, dispatchCompleteChannel, payload); err != nil {
		r.log.Warn().Err(err).Str("run_id", report.RunID).Msg("failed to publish run report")
	}
}

// Run loads the stored state of a run
func (r *RedisRunRecorder) Run(ctx context.Context, runID string) (*DispatchRun, error) {
	fields, err := r.rdb.HGetAll(ctx, runKeyPrefix+runID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrRunNotFound
	}

	run := &DispatchRun{RunID: runID, Status: fields["status"]}
	run.Total, _ = strconv.Atoi(fields["total"])
	run.Sent, _ = strconv.Atoi(fields["sent"])
	run.Failed, _ = strconv.Atoi(fields["failed"])
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, fields["started_at"])
	if v := fields["finished_at"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			run.FinishedAt = &t
		}
	}
	return run, nil
}
