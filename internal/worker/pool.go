package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueArchive = "jobs:archive"
	QueueEmail   = "jobs:email"

	JobArchive = "archive"
	JobEmail   = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes the payload of one job type. A returned error sends the
// job to the dead letter queue; jobs are never retried.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueArchive pushes a GoBD archive job to Redis.
func (d *Dispatcher) EnqueueArchive(ctx context.Context, payload ArchiveJobPayload) error {
	return d.enqueue(ctx, QueueArchive, JobArchive, payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := encodeJob(jobType, data)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload json.RawMessage) ([]byte, error) {
	return json.Marshal(Job{Type: jobType, Payload: payload})
}

// deadLetterFunc records a failed job.
type deadLetterFunc func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string)

// popBackoff is the pause after a Redis error other than a BRPOP timeout.
const popBackoff = time.Second

type pool struct {
	handlers   map[string]Handler
	deadLetter deadLetterFunc
	pop        func(ctx context.Context) ([]string, error)
	backoff    time.Duration
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU. The returned
// WaitGroup is done once every worker has observed ctx cancellation.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]Handler) *sync.WaitGroup {
	p := &pool{
		handlers: handlers,
		deadLetter: func(ctx context.Context, queue, jobType string, payload json.RawMessage, reason string) {
			SendToDLQ(ctx, rdb, queue, jobType, payload, reason, 1)
		},
		backoff: popBackoff,
	}
	p.pop = func(ctx context.Context) ([]string, error) {
		// Blocking pop: waits up to 5s then loops to check ctx
		return rdb.BRPop(ctx, 5*time.Second, QueueArchive, QueueEmail).Result()
	}
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func (p *pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			result, err := p.pop(ctx)
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					log.Warn().Int("worker", id).Err(err).Msg("queue pop failed")
					p.wait(ctx)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, id, result[0], result[1])
		}
	}
}

// wait sleeps for the backoff or until ctx is done.
func (p *pool) wait(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (p *pool) process(ctx context.Context, id int, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Int("worker", id).Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		p.deadLetter(ctx, queue, "", quoted, fmt.Sprintf("malformed envelope: %v", err))
		return
	}

	handler, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Int("worker", id).Str("queue", queue).Str("type", job.Type).Msg("no handler for job type")
		p.deadLetter(ctx, queue, job.Type, job.Payload, "unknown job type")
		return
	}

	start := time.Now()
	if err := handler.Process(ctx, job.Payload); err != nil {
		log.Error().Err(err).Int("worker", id).Str("queue", queue).Str("type", job.Type).Msg("job failed")
		p.deadLetter(ctx, queue, job.Type, job.Payload, err.Error())
		return
	}
	log.Info().
		Int("worker", id).
		Str("queue", queue).
		Str("type", job.Type).
		Dur("duration", time.Since(start)).
		Msg("job processed")
}
