package serverless

import (
	"context"
	"time"

	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stardustagi/HoloServe/protocol"
	"github.com/stardustagi/HoloServe/services"
	"go.uber.org/zap"
)

const (
	maxRetries = 3
	retryDelay = 1 * time.Second

	// 简单形态缺文本时的平台默认指令
	defaultInstruction = "Describe this image"
)

// Handler adapts the chat service to the serverless platform contract:
// {input: {...}} in, {status, output|error} out. A thin wrapper, no new
// request logic lives here.
type Handler struct {
	chat   *services.ChatService
	logger *zap.Logger
}

func NewHandler(chat *services.ChatService) *Handler {
	return &Handler{
		chat:   chat,
		logger: logs.GetLogger("serverless"),
	}
}

// WaitReady 等待模型加载完成, 平台在首个事件前调用
func (h *Handler) WaitReady(ctx context.Context, maxWait time.Duration) bool {
	deadline := time.Now().Add(maxWait)
	for {
		if h.chat.Manager().Ready() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(2 * time.Second):
		}
	}
}

// Handle 处理一个平台事件
func (h *Handler) Handle(ctx context.Context, event *protocol.Event) *protocol.JobResult {
	if event == nil || event.Input == nil {
		return &protocol.JobResult{
			Status: protocol.JobStatusError,
			Error:  "no input provided",
		}
	}

	req := event.Input
	if !req.IsChatShape() && req.Text == "" {
		req.Text = defaultInstruction
	}

	var resp *protocol.ChatResponse
	var serr *errors.StackError
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, serr = h.chat.Complete(ctx, event.ID, req)
		if serr == nil {
			break
		}
		h.logger.Warn("attempt failed",
			logs.Int("attempt", attempt+1),
			logs.String("event_id", event.ID),
			logs.String("code", serr.Key()))
		// 调用方输入问题重试也没用
		if serr.Status() < 500 && serr.Status() != 429 {
			break
		}
		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return &protocol.JobResult{Status: protocol.JobStatusError, Error: "cancelled"}
			case <-time.After(retryDelay):
			}
		}
	}

	if serr != nil {
		return &protocol.JobResult{
			Status: protocol.JobStatusError,
			Error:  serr.Msg(),
		}
	}
	return &protocol.JobResult{
		Status: protocol.JobStatusSuccess,
		Output: resp,
	}
}
