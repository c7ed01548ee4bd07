package cluster

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlsmithjr/wandarr-go/internal/job"
)

func TestJobQueueFIFO(t *testing.T) {
	q := &jobQueue{}
	j1 := &job.EncodeJob{SourcePath: "a.mkv"}
	j2 := &job.EncodeJob{SourcePath: "b.mkv"}
	q.push(j1)
	q.push(j2)

	got, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, j1, got)

	got, ok = q.pop()
	assert.True(t, ok)
	assert.Equal(t, j2, got)

	_, ok = q.pop()
	assert.False(t, ok)
}

func TestJobQueueConcurrentDrain(t *testing.T) {
	q := &jobQueue{}
	const n = 200
	for i := 0; i < n; i++ {
		q.push(&job.EncodeJob{})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	popped := 0
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, ok := q.pop()
				if !ok {
					return
				}
				mu.Lock()
				popped++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, n, popped)

	_, ok := q.pop()
	assert.False(t, ok)
}
