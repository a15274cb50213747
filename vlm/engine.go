package vlm

import (
	"context"
	"image"
)

// Params 单次生成的采样参数
type Params struct {
	MaxTokens   int
	Temperature float32
}

// Engine is the loaded model. Load must be idempotent and verify the model
// is actually usable before reporting success. Generate is synchronous and
// NOT safe for concurrent use; callers go through the generation queue.
type Engine interface {
	Load(ctx context.Context) error
	Generate(ctx context.Context, img image.Image, instruction string, params Params) (string, error)
	Device() string
	Loaded() bool
}
