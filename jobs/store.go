package jobs

import (
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store keeps jobs in process memory for the retention window. Expired jobs
// are dropped by go-cache's janitor, which calls the eviction hook so the
// caller can remove the job's files.
type Store struct {
	cache     *cache.Cache
	retention time.Duration
}

// NewStore creates a store. cleanupInterval is how often expired jobs are
// purged; onEvict may be nil.
func NewStore(retention, cleanupInterval time.Duration, onEvict func(Job)) *Store {
	c := cache.New(retention, cleanupInterval)
	if onEvict != nil {
		c.OnEvicted(func(_ string, v interface{}) {
			if job, ok := v.(Job); ok {
				onEvict(job)
			}
		})
	}
	return &Store{cache: c, retention: retention}
}

// Save stores a copy of the job and restarts its retention window.
func (s *Store) Save(job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	s.cache.Set(job.ID, *job, s.retention)
	return nil
}

// Get returns a copy of the job.
func (s *Store) Get(id string) (*Job, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	job := v.(Job)
	return &job, nil
}

// List returns every live job, newest first.
func (s *Store) List() []*Job {
	items := s.cache.Items()
	out := make([]*Job, 0, len(items))
	for _, item := range items {
		job := item.Object.(Job)
		out = append(out, &job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Delete removes a job and fires the eviction hook.
func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Purge removes expired jobs now instead of waiting for the janitor.
func (s *Store) Purge() {
	s.cache.DeleteExpired()
}

func (s *Store) Count() int { return s.cache.ItemCount() }
