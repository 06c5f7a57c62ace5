package scheduling

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunnable struct {
	id       string
	interval time.Duration
	runs     int32
}

func (r *countingRunnable) ID() string {
	return r.id
}

func (r *countingRunnable) Interval() time.Duration {
	return r.interval
}

func (r *countingRunnable) Run(_ context.Context) {
	atomic.AddInt32(&r.runs, 1)
}

func TestManager_RunDrivesRunnables(t *testing.T) {
	manager := NewManager(5 * time.Millisecond)
	fast := &countingRunnable{id: "fast", interval: 10 * time.Millisecond}
	slow := &countingRunnable{id: "slow", interval: 80 * time.Millisecond}
	manager.Register(fast)
	manager.Register(slow)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, manager.Run(ctx), "run should not fail")
	assert.Greater(t, atomic.LoadInt32(&fast.runs), atomic.LoadInt32(&slow.runs),
		"runnable with shorter interval should run more often")
	assert.Greater(t, atomic.LoadInt32(&slow.runs), int32(0),
		"runnable with longer interval should run at least once")
}

func TestManager_Later(t *testing.T) {
	manager := NewManager(5 * time.Millisecond)
	done := make(chan struct{})
	manager.Later(20*time.Millisecond, func() {
		close(done)
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = manager.Run(ctx) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("delayed call did not run")
	}
}

func TestManager_LaterDoesNotRunInline(t *testing.T) {
	manager := NewManager(5 * time.Millisecond)
	ran := false
	manager.Later(0, func() {
		ran = true
	})
	assert.False(t, ran, "delayed call must not run inline")
}
