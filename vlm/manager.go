package vlm

import (
	"context"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stardustagi/HoloServe/queue"
	"go.uber.org/zap"
)

// ManagerConfig 模型管理器配置
type ManagerConfig struct {
	ModelName    string `json:"model_name"`
	QueueDepth   int    `json:"queue_depth"`
	QueueTimeout int    `json:"queue_timeout"` // 排队等待上限(秒)
	TokenizerLoc string `json:"tokenizer"`
}

// Manager owns the engine for the process lifetime: one Load at startup,
// then strictly serialized Generate calls. Request handlers never see the
// raw engine handle.
type Manager struct {
	config  ManagerConfig
	engine  Engine
	queue   queue.IGenerationQueue
	counter *UsageCounter
	logger  *zap.Logger

	loadOnce sync.Once
	loadErr  error
	ready    atomic.Bool
}

func NewManager(engine Engine, config ManagerConfig) *Manager {
	if config.QueueDepth <= 0 {
		config.QueueDepth = 8
	}
	if config.QueueTimeout <= 0 {
		config.QueueTimeout = 30
	}
	logger := logs.GetLogger("vlmManager")
	return &Manager{
		config:  config,
		engine:  engine,
		queue:   queue.NewGenerationQueue(config.QueueDepth, logger),
		counter: NewUsageCounter(config.TokenizerLoc),
		logger:  logger,
	}
}

// Load 只执行一次; 失败时进程不应开始接收流量
func (m *Manager) Load(ctx context.Context) error {
	m.loadOnce.Do(func() {
		m.logger.Info("loading model", logs.String("model", m.config.ModelName))
		if err := m.engine.Load(ctx); err != nil {
			m.loadErr = err
			m.logger.Error("model load failed", logs.ErrorInfo(err))
			return
		}
		m.queue.Start()
		m.ready.Store(true)
		m.logger.Info("model loaded", logs.String("device", m.engine.Device()))
	})
	return m.loadErr
}

// Generate runs one generation through the queue. Concurrent callers are
// serialized; a full or slow queue surfaces busy to the caller.
func (m *Manager) Generate(ctx context.Context, requestID string, img image.Image, instruction string, params Params) (string, error) {
	if !m.ready.Load() {
		return "", errors.ErrModelLoading
	}
	var out string
	queueTimeout := time.Duration(m.config.QueueTimeout) * time.Second
	start := time.Now()
	err := m.queue.Submit(ctx, queueTimeout, func(jobCtx context.Context) error {
		text, genErr := m.engine.Generate(jobCtx, img, instruction, params)
		if genErr != nil {
			// 不把内部错误文本透给调用方, 只记日志
			m.logger.Error("generation failed",
				logs.String("request_id", requestID),
				logs.ErrorInfo(genErr))
			return errors.ErrInferenceFailed.WithCause(genErr)
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("generation completed",
		logs.String("request_id", requestID),
		logs.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (m *Manager) Ready() bool {
	return m.ready.Load()
}

func (m *Manager) Device() string {
	return m.engine.Device()
}

func (m *Manager) ModelName() string {
	return m.config.ModelName
}

// Usage 计算用量统计, 恒有 total == prompt + completion
func (m *Manager) Usage(prompt, completion string) (promptTokens, completionTokens, totalTokens int) {
	promptTokens = m.counter.Count(prompt)
	completionTokens = m.counter.Count(completion)
	return promptTokens, completionTokens, promptTokens + completionTokens
}

// Shutdown 停止队列并释放分词器
func (m *Manager) Shutdown() {
	if m.ready.Load() {
		m.queue.Stop()
	}
	m.counter.Close()
	m.ready.Store(false)
}
