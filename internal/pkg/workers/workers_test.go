package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWorkerRunsUntilCancelled(t *testing.T) {
	var runs int32
	w := NewWorker("test", 5*time.Millisecond, zerolog.Nop(), func(context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerSurvivesPanic(t *testing.T) {
	var runs int32
	w := NewWorker("panicky", 5*time.Millisecond, zerolog.Nop(), func(context.Context) {
		if atomic.AddInt32(&runs, 1) == 1 {
			panic("first run fails")
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 2 }, time.Second, time.Millisecond)
}
