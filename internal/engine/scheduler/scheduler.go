// Package scheduler computes send delays and hands rendered emails to the queue.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payhook/internal/platform/models"

	"github.com/rs/zerolog/log"
)

var ErrEnqueue = errors.New("failed to enqueue email")

// Queue is the delayed job queue contract. Delivery happens elsewhere.
type Queue interface {
	Enqueue(ctx context.Context, job *models.EmailJob, delay time.Duration) (string, error)
}

var delayUnits = map[string]time.Duration{
	models.DelaySeconds: time.Second,
	models.DelayMinutes: time.Minute,
	models.DelayHours:   time.Hour,
	models.DelayDays:    24 * time.Hour,
}

// DelayFor converts delay settings into a duration. Immediate and unknown delay
// types are zero, and negative amounts clamp to zero.
func DelayFor(settings models.EmailSettings) time.Duration {
	unit, ok := delayUnits[settings.DelayType]
	if !ok || settings.SendDelay <= 0 {
		return 0
	}
	return time.Duration(settings.SendDelay) * unit
}

type Result struct {
	JobID        string
	Delay        time.Duration
	ScheduledFor time.Time
}

type Scheduler struct {
	queue   Queue
	timeout time.Duration
	clock   func() time.Time
}

func New(queue Queue, timeout time.Duration) *Scheduler {
	return &Scheduler{queue: queue, timeout: timeout, clock: time.Now}
}

// Schedule enqueues job to run after the delay described by settings. The
// call is bounded by the scheduler's timeout and never retried.
func (s *Scheduler) Schedule(ctx context.Context, job *models.EmailJob, settings models.EmailSettings) (*Result, error) {
	delay := DelayFor(settings)

	job.From = settings.FromEmail
	job.FromName = settings.FromName
	job.ReplyTo = settings.ReplyTo

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	now := s.clock()
	jobID, err := s.queue.Enqueue(ctx, job, delay)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnqueue, err)
	}

	log.Info().
		Str("job_id", jobID).
		Str("delay_type", settings.DelayType).
		Dur("delay", delay).
		Msg("email scheduled")

	return &Result{JobID: jobID, Delay: delay, ScheduledFor: now.Add(delay)}, nil
}
