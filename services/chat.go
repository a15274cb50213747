package services

import (
	"bytes"
	"context"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stardustagi/HoloServe/imaging"
	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stardustagi/HoloServe/protocol"
	"github.com/stardustagi/HoloServe/vlm"
	"go.uber.org/zap"
)

const (
	DefaultMaxTokens = 512
	MaxTokensCap     = 4096
)

// GenerationRequest 规范化后的生成请求, 两种请求形态都归并到这里
type GenerationRequest struct {
	ImageRef    string
	Instruction string
	MaxTokens   int
	Temperature float32
}

// ChatService 把请求规范化、取图、生成和封装串起来
type ChatService struct {
	manager  *vlm.Manager
	resolver *imaging.Resolver
	logger   *zap.Logger
}

func NewChatService(manager *vlm.Manager, resolver *imaging.Resolver) *ChatService {
	return &ChatService{
		manager:  manager,
		resolver: resolver,
		logger:   logs.GetLogger("chatService"),
	}
}

// Normalize folds Shape A (simple) and Shape B (chat-completions) bodies
// into one canonical GenerationRequest. Exactly one image is required;
// when several image parts are present the first one wins and the rest
// are ignored, for liberal compatibility with chat clients.
func Normalize(req *protocol.ChatRequest) (*GenerationRequest, *errors.StackError) {
	gen := &GenerationRequest{
		MaxTokens:   clampMaxTokens(req.MaxTokens),
		Temperature: req.Temperature,
	}

	if req.IsChatShape() {
		var texts []string
		for _, msg := range req.Messages {
			if msg.Content.Parts == nil {
				if msg.Role == protocol.RoleUser && strings.TrimSpace(msg.Content.Text) != "" {
					texts = append(texts, strings.TrimSpace(msg.Content.Text))
				}
				continue
			}
			for _, part := range msg.Content.Parts {
				switch part.Type {
				case protocol.PartTypeText:
					if strings.TrimSpace(part.Text) != "" {
						texts = append(texts, strings.TrimSpace(part.Text))
					}
				case protocol.PartTypeImageURL:
					if gen.ImageRef == "" && part.ImageURL != nil {
						gen.ImageRef = part.ImageURL.URL
					}
				}
			}
		}
		gen.Instruction = strings.Join(texts, "\n")
	} else {
		switch {
		case req.ImageURL != "":
			gen.ImageRef = req.ImageURL
		case req.ImageBase64 != "":
			gen.ImageRef = asDataURI(req.ImageBase64)
		}
		gen.Instruction = strings.TrimSpace(req.Text)
	}

	if gen.ImageRef == "" {
		return nil, errors.ErrNoImage
	}
	if gen.Instruction == "" {
		return nil, errors.ErrNoText
	}
	return gen, nil
}

func clampMaxTokens(v int) int {
	if v <= 0 {
		return DefaultMaxTokens
	}
	if v > MaxTokensCap {
		return MaxTokensCap
	}
	return v
}

// asDataURI 裸base64统一包装成data URI, 走同一条解码路径
func asDataURI(payload string) string {
	if strings.HasPrefix(payload, "data:") {
		return payload
	}
	return "data:;base64," + payload
}

// Complete 处理一次 chat-completions 调用
func (s *ChatService) Complete(ctx context.Context, requestID string, req *protocol.ChatRequest) (*protocol.ChatResponse, *errors.StackError) {
	gen, serr := Normalize(req)
	if serr != nil {
		return nil, serr
	}

	img, serr := s.resolver.Resolve(ctx, gen.ImageRef)
	if serr != nil {
		return nil, serr
	}

	text, err := s.manager.Generate(ctx, requestID, img, gen.Instruction, vlm.Params{
		MaxTokens:   gen.MaxTokens,
		Temperature: gen.Temperature,
	})
	if err != nil {
		return nil, errors.From(err)
	}

	return s.Shape(gen, text), nil
}

// Predict 处理原生 /predict 调用(图片字节 + 文本)
func (s *ChatService) Predict(ctx context.Context, requestID string, imageData []byte, text string) (*protocol.PredictResponse, *errors.StackError) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.ErrNoText
	}
	if len(imageData) == 0 {
		return nil, errors.ErrNoImage
	}
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, errors.ErrCorruptImage.WithCause(err)
	}
	img = imaging.FitWithin(img, imaging.MaxWidth, imaging.MaxHeight)

	out, genErr := s.manager.Generate(ctx, requestID, img, text, vlm.Params{MaxTokens: DefaultMaxTokens})
	if genErr != nil {
		return nil, errors.From(genErr)
	}
	return &protocol.PredictResponse{
		Success:     true,
		TextInput:   text,
		ModelOutput: out,
	}, nil
}

// Shape builds the chat-completions envelope for a finished generation.
func (s *ChatService) Shape(gen *GenerationRequest, text string) *protocol.ChatResponse {
	promptTokens, completionTokens, totalTokens := s.manager.Usage(gen.Instruction, text)
	finishReason := protocol.FinishReasonStop
	if completionTokens >= gen.MaxTokens {
		finishReason = protocol.FinishReasonLength
	}
	return &protocol.ChatResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   s.manager.ModelName(),
		Choices: []protocol.ChatChoice{
			{
				Index: 0,
				Message: protocol.ChatMessage{
					Role:    protocol.RoleAssistant,
					Content: protocol.TextContent(text),
				},
				FinishReason: finishReason,
			},
		},
		Usage: protocol.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		},
	}
}

func (s *ChatService) Manager() *vlm.Manager {
	return s.manager
}
