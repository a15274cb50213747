package queue

import (
	"context"
	"sync"
	"time"

	"github.com/stardustagi/HoloServe/libs/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Job 一次生成调用
type Job func(ctx context.Context) error

type task struct {
	ctx  context.Context
	run  Job
	done chan error
}

// GenerationQueue 生成队列: 单消费者串行执行, 等候室大小有限.
// The model holds GPU-resident state and is not safe for concurrent
// invocation, so at most one job executes at any time process-wide.
type GenerationQueue struct {
	tasks   chan *task
	waiters *semaphore.Weighted
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *zap.Logger
	running bool
}

// IGenerationQueue 生成队列接口
type IGenerationQueue interface {
	Start()
	Stop()
	Submit(ctx context.Context, queueTimeout time.Duration, job Job) error
	IsRunning() bool
}

// NewGenerationQueue 创建新的生成队列, depth 是允许排队等待的请求数
func NewGenerationQueue(depth int, logger *zap.Logger) IGenerationQueue {
	if depth <= 0 {
		depth = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GenerationQueue{
		tasks:   make(chan *task), // unbuffered: a send completes when the pump picks the job up
		waiters: semaphore.NewWeighted(int64(depth)),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
}

// Start 启动消费协程
func (q *GenerationQueue) Start() {
	q.wg.Add(1)
	q.running = true
	go q.runPump()
	q.logger.Info("generation queue started")
}

// Stop 停止队列, 等待消费协程退出
func (q *GenerationQueue) Stop() {
	q.cancel()
	q.wg.Wait()
	q.running = false
	q.logger.Info("generation queue stopped")
}

func (q *GenerationQueue) IsRunning() bool {
	return q.running
}

// Submit enqueues a job and blocks until it finishes. A full waiting room
// fails fast with busy, and queueTimeout bounds how long the job may wait
// to start. Once the job is running, only ctx abandons the caller's wait;
// the in-flight call itself is not aborted.
func (q *GenerationQueue) Submit(ctx context.Context, queueTimeout time.Duration, job Job) error {
	if !q.waiters.TryAcquire(1) {
		return errors.ErrBusy
	}
	defer q.waiters.Release(1)

	waitCtx, cancel := context.WithTimeout(ctx, queueTimeout)
	defer cancel()

	t := &task{ctx: ctx, run: job, done: make(chan error, 1)}
	select {
	case q.tasks <- t:
	case <-waitCtx.Done():
		return errors.ErrBusy.WithCause(waitCtx.Err())
	case <-q.ctx.Done():
		return errors.ErrBusy.WithMsg("generation queue is stopped")
	}

	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		// 调用方放弃等待, 任务本身继续执行
		return errors.ErrBusy.WithCause(ctx.Err())
	}
}

func (q *GenerationQueue) runPump() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case t := <-q.tasks:
			t.done <- t.run(t.ctx)
		}
	}
}
