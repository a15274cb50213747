package vlm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/stardustagi/HoloServe/imaging"
	"github.com/stardustagi/HoloServe/libs/logs"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// RuntimeConfig 推理运行时(同机sidecar)的连接配置
type RuntimeConfig struct {
	Endpoint string `json:"endpoint"` // 运行时地址
	Timeout  int    `json:"timeout"`  // 单次生成超时(秒)
	LoadWait int    `json:"load_wait"`
}

type generateRequest struct {
	ImageBase64 string  `json:"image_base64"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

type runtimeHealth struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
}

// RuntimeEngine drives the colocated inference runtime that holds the model
// weights. The wrapper never touches the weights itself; it only owns the
// call contract.
type RuntimeEngine struct {
	config RuntimeConfig
	client *resty.Client
	logger *zap.Logger

	mu     sync.RWMutex
	loaded bool
	device string
}

func NewRuntimeEngine(config RuntimeConfig) *RuntimeEngine {
	if config.Timeout <= 0 {
		config.Timeout = 120
	}
	if config.LoadWait <= 0 {
		config.LoadWait = 60
	}
	client := resty.New()
	client.SetTimeout(time.Duration(config.Timeout) * time.Second)
	return &RuntimeEngine{
		config: config,
		client: client,
		logger: logs.GetLogger("vlm"),
	}
}

// Load polls the runtime health endpoint until the model reports loaded or
// the load budget runs out. Safe to call more than once.
func (e *RuntimeEngine) Load(ctx context.Context) error {
	if e.Loaded() {
		return nil
	}
	deadline := time.Now().Add(time.Duration(e.config.LoadWait) * time.Second)
	url := e.config.Endpoint + "/health"
	for {
		health, err := e.checkHealth(ctx, url)
		if err == nil && health.ModelLoaded {
			e.mu.Lock()
			e.loaded = true
			e.device = health.Device
			e.mu.Unlock()
			e.logger.Info("model runtime ready", logs.String("device", health.Device))
			return nil
		}
		if err != nil {
			e.logger.Warn("waiting for model runtime", logs.ErrorInfo(err))
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("model runtime not ready after %ds", e.config.LoadWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (e *RuntimeEngine) checkHealth(ctx context.Context, url string) (*runtimeHealth, error) {
	resp, err := e.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("runtime health returned status %d", resp.StatusCode())
	}
	var health runtimeHealth
	if err := json.Unmarshal(resp.Bytes(), &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Generate 将图片编码后交给运行时生成文本
func (e *RuntimeEngine) Generate(ctx context.Context, img image.Image, instruction string, params Params) (string, error) {
	encoded, err := imaging.EncodeJPEG(img, 90)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(generateRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(encoded),
		Prompt:      instruction,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		return "", err
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(e.config.Endpoint + "/generate")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("runtime returned status %d", resp.StatusCode())
	}
	var genResp generateResponse
	if err := json.Unmarshal(resp.Bytes(), &genResp); err != nil {
		return "", err
	}
	return genResp.Text, nil
}

func (e *RuntimeEngine) Device() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.device
}

func (e *RuntimeEngine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}
