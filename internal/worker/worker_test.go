package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/feedback-service/internal/events"
	"github.com/spec-kit/feedback-service/internal/otp"
	"github.com/spec-kit/feedback-service/internal/service"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls.Add(1)
	return 1, s.err
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{}

	done := StartSweeper(ctx, "test", sweeper, 5*time.Millisecond, zap.NewNop())
	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeperSurvivesErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper := &countingSweeper{err: errors.New("redis down")}

	StartSweeper(ctx, "test", sweeper, 5*time.Millisecond, zap.NewNop())
	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestSweeperDisabled(t *testing.T) {
	done := StartSweeper(context.Background(), "test", nil, time.Second, zap.NewNop())
	_, open := <-done
	assert.False(t, open)

	done = StartSweeper(context.Background(), "test", &countingSweeper{}, 0, zap.NewNop())
	_, open = <-done
	assert.False(t, open)
}

func TestSweeperDrivesOTPStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := time.Now()
	var mu sync.Mutex
	store := otp.NewMemoryStore(otp.Options{TTL: time.Minute, Now: func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}})
	_, err := store.Issue(ctx, "employee:1")
	require.NoError(t, err)

	mu.Lock()
	clock = clock.Add(2 * time.Minute)
	mu.Unlock()

	done := StartSweeper(ctx, "otp", store, 5*time.Millisecond, zap.NewNop())
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestStartAuditWorkerSubscribes(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, zap.NewNop(), 10)
	StartAuditWorker(audit)
	StartAuditWorker(nil)

	require.NoError(t, dispatcher.Publish(context.Background(),
		events.New(events.EventLoginSucceeded, 1, events.Actor{Subject: "a"}, nil)))
	assert.Len(t, audit.Recent(0), 1)
}
