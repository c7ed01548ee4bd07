package cluster

import (
	"sync"

	"github.com/mlsmithjr/wandarr-go/internal/job"
)

// jobQueue is a per-quality many-to-one work queue: every host worker
// assigned that quality pops from the same queue until it's empty.
type jobQueue struct {
	mu    sync.Mutex
	items []*job.EncodeJob
}

func (q *jobQueue) push(j *job.EncodeJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, j)
}

// pop removes and returns the oldest queued job. ok is false once the
// queue is empty, the cue a host worker uses to stop pulling and exit.
func (q *jobQueue) pop() (*job.EncodeJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	j := q.items[0]
	q.items = q.items[1:]
	return j, true
}
