package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRunsJob(t *testing.T) {
	q := NewGenerationQueue(4, logs.GetLogger("test"))
	q.Start()
	defer q.Stop()

	ran := false
	err := q.Submit(context.Background(), time.Second, func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestSubmitNeverOverlaps(t *testing.T) {
	q := NewGenerationQueue(16, logs.GetLogger("test"))
	q.Start()
	defer q.Stop()

	var inFlight int32
	var maxInFlight int32
	var wg sync.WaitGroup
	var completed int32

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Submit(context.Background(), 10*time.Second, func(ctx context.Context) error {
				cur := atomic.AddInt32(&inFlight, 1)
				for {
					prev := atomic.LoadInt32(&maxInFlight)
					if cur <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			if err == nil {
				atomic.AddInt32(&completed, 1)
			}
		}()
	}
	wg.Wait()

	// 每个请求都有结果, 且从未并发进入模型
	assert.Equal(t, int32(10), completed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestSubmitBusyWhenWaitingRoomFull(t *testing.T) {
	q := NewGenerationQueue(1, logs.GetLogger("test"))
	q.Start()
	defer q.Stop()

	blocker := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Submit(context.Background(), 10*time.Second, func(ctx context.Context) error {
			close(started)
			<-blocker
			return nil
		})
	}()
	<-started

	// 等候室已满(深度1, 已被占用的任务持有semaphore)
	err := q.Submit(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	se := errors.From(err)
	assert.Equal(t, "busy", se.Key())
	close(blocker)
}

func TestSubmitQueueTimeout(t *testing.T) {
	q := NewGenerationQueue(4, logs.GetLogger("test"))
	q.Start()
	defer q.Stop()

	blocker := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = q.Submit(context.Background(), 10*time.Second, func(ctx context.Context) error {
			close(started)
			<-blocker
			return nil
		})
	}()
	<-started

	// 排队等待超时
	err := q.Submit(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, "busy", errors.From(err).Key())
	close(blocker)
}

func TestSubmitAfterStop(t *testing.T) {
	q := NewGenerationQueue(2, logs.GetLogger("test"))
	q.Start()
	q.Stop()

	err := q.Submit(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, "busy", errors.From(err).Key())
}

func TestSubmitPropagatesJobError(t *testing.T) {
	q := NewGenerationQueue(2, logs.GetLogger("test"))
	q.Start()
	defer q.Stop()

	err := q.Submit(context.Background(), time.Second, func(ctx context.Context) error {
		return errors.ErrInferenceFailed
	})
	require.Error(t, err)
	assert.Equal(t, "inference_failed", errors.From(err).Key())
}
