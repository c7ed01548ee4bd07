package statusbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishGetFIFO(t *testing.T) {
	b := New()
	b.Publish(Event{Host: "h1", File: "a.mkv"})
	b.Publish(Event{Host: "h1", File: "b.mkv"})

	e, ok := b.Get(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "a.mkv", e.File)

	e, ok = b.Get(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "b.mkv", e.File)
}

func TestGetTimesOutWhenEmpty(t *testing.T) {
	b := New()
	start := time.Now()
	_, ok := b.Get(50 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestPublishFromManyGoroutines(t *testing.T) {
	b := New()
	const n = 50
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func(i int) {
			b.Publish(Event{Host: "h", Comp: i})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	count := 0
	for {
		_, ok := b.Get(100 * time.Millisecond)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, n, count)
}
