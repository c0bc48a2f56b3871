package session

import (
	"context"
	"log"
	"time"
)

// EvictionRecorder is told how many sessions each sweep removed
type EvictionRecorder interface {
	RecordEvictions(ctx context.Context, count int)
}

// Janitor periodically evicts sessions idle for longer than the TTL
type Janitor struct {
	store    Store
	ttl      time.Duration
	interval time.Duration
	recorder EvictionRecorder
	now      func() time.Time
}

// NewJanitor creates a janitor. A non-positive ttl disables eviction entirely.
func NewJanitor(store Store, ttl, interval time.Duration, recorder EvictionRecorder) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		store:    store,
		ttl:      ttl,
		interval: interval,
		recorder: recorder,
		now:      time.Now,
	}
}

// Enabled reports whether the janitor will ever evict anything
func (j *Janitor) Enabled() bool {
	return j.ttl > 0
}

// Sweep runs one eviction pass and returns the number of sessions removed
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	if !j.Enabled() {
		return 0, nil
	}

	evicted, err := j.store.Evict(ctx, j.now().Add(-j.ttl))
	if err != nil {
		return 0, err
	}
	if evicted > 0 {
		log.Printf(`{"level":"info","message":"Evicted idle sessions","count":%d,"ttl":%q}`, evicted, j.ttl)
		if j.recorder != nil {
			j.recorder.RecordEvictions(ctx, evicted)
		}
	}
	return evicted, nil
}

// Run sweeps on every interval until ctx is cancelled
func (j *Janitor) Run(ctx context.Context) {
	if !j.Enabled() {
		log.Println(`{"level":"info","message":"Session eviction disabled"}`)
		return
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
				log.Printf(`{"level":"error","message":"Session eviction failed","error":%q}`, err.Error())
			}
		}
	}
}
