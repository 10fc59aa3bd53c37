package publisher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/models"
)

// Executor drives the delivery state machine for one payload:
//
//	pending -> succeeded
//	pending -> pending (recoverable failure, bounded retry with backoff)
//	pending -> queued  (retries exhausted, handed to recovery queue)
//	pending -> failed  (non-recoverable, no retry)
//
// The attempt state lives on the PublishJob record so it stays observable
// and can be persisted by the caller at any point.
type Executor struct {
	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration
	queue       RecoveryQueue
	notifier    Notifier
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewExecutor(logger *zap.Logger, maxAttempts int, backoffBase, backoffMax time.Duration, queue RecoveryQueue, notifier Notifier) *Executor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Executor{
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		backoffMax:  backoffMax,
		queue:       queue,
		notifier:    notifier,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Publish attempts delivery until the job reaches a terminal status. The
// identical payload is resent on every retry under the same dedup key. A
// cancelled context lets the in-flight attempt finish, then flushes the job
// to the recovery queue instead of scheduling another retry.
func (e *Executor) Publish(ctx context.Context, client TargetClient, payload *PostPayload, job *models.PublishJob) *models.PublishJob {
	for {
		job.AttemptCount++

		// The attempt itself is never aborted mid-call by shutdown; the
		// client's own timeout bounds it.
		result, err := client.CreatePost(context.WithoutCancel(ctx), payload)
		if err == nil {
			now := time.Now()
			job.Status = models.JobStatusSucceeded
			job.ResourceID = result.ResourceID
			job.ResultURL = result.URL
			job.PublishedAt = &now
			job.LastError = ""
			job.ErrorKind = ""

			e.logger.Info("Publish succeeded",
				zap.String("site", client.SiteName()),
				zap.String("title", payload.Title),
				zap.Int("attempt", job.AttemptCount),
				zap.String("resource_id", result.ResourceID))
			return job
		}

		kind := KindOf(err)
		job.LastError = err.Error()
		job.ErrorKind = string(kind)

		if kind == KindFatal {
			job.Status = models.JobStatusFailed
			e.logger.Error("Publish rejected, not retrying",
				zap.String("site", client.SiteName()),
				zap.String("title", payload.Title),
				zap.Int("attempt", job.AttemptCount),
				zap.Error(err))
			e.handOff(ctx, client, payload, job)
			return job
		}

		if job.AttemptCount >= e.maxAttempts {
			job.Status = models.JobStatusQueued
			e.logger.Warn("Publish retries exhausted, queuing for recovery",
				zap.String("site", client.SiteName()),
				zap.String("title", payload.Title),
				zap.Int("attempts", job.AttemptCount),
				zap.Error(err))
			e.handOff(ctx, client, payload, job)
			return job
		}

		delay := e.backoffDelay(job.AttemptCount)
		e.logger.Warn("Publish attempt failed, backing off",
			zap.String("site", client.SiteName()),
			zap.String("title", payload.Title),
			zap.Int("attempt", job.AttemptCount),
			zap.Duration("backoff", delay),
			zap.Error(err))

		if err := e.sleep(ctx, delay); err != nil {
			// Shutdown during backoff: no further retries, flush the job.
			job.Status = models.JobStatusQueued
			e.logger.Info("Shutdown during backoff, queuing job for recovery",
				zap.String("site", client.SiteName()),
				zap.String("title", payload.Title))
			e.handOff(ctx, client, payload, job)
			return job
		}
	}
}

// backoffDelay returns min(base * 2^(attempt-1), max).
func (e *Executor) backoffDelay(attempt int) time.Duration {
	delay := e.backoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= e.backoffMax {
			return e.backoffMax
		}
	}
	if delay > e.backoffMax {
		return e.backoffMax
	}
	return delay
}

// handOff passes a terminal failed/queued record to the recovery queue and
// emits a notification. Neither step may alter the job's state; the queue
// write survives shutdown via a detached context.
func (e *Executor) handOff(ctx context.Context, client TargetClient, payload *PostPayload, job *models.PublishJob) {
	detached := context.WithoutCancel(ctx)

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		e.logger.Error("Failed to marshal payload for recovery queue", zap.Error(err))
		payloadJSON = []byte("{}")
	}

	item := &models.RecoveryItem{
		JobID:        job.ID,
		TopicID:      job.TopicID,
		SiteID:       job.SiteID,
		Payload:      string(payloadJSON),
		Reason:       job.LastError,
		ErrorKind:    job.ErrorKind,
		AttemptCount: job.AttemptCount,
		Status:       models.RecoveryStatusHeld,
	}

	if err := e.queue.Enqueue(detached, item); err != nil {
		e.logger.Error("Failed to enqueue recovery item",
			zap.Uint("job_id", job.ID),
			zap.Error(err))
	}

	e.notifier.Notify(detached, Event{
		Type:         "publish_" + job.Status,
		Topic:        payload.TopicSubject,
		Site:         client.SiteName(),
		Title:        payload.Title,
		ErrorKind:    job.ErrorKind,
		Error:        job.LastError,
		AttemptCount: job.AttemptCount,
		OccurredAt:   time.Now(),
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
