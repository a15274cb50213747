package protocol

import (
	"encoding/json"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// ImageURLData 图片引用: 远程URL或data URI
type ImageURLData struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ContentPart 消息的一个内容分片, 文本或图片
type ContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *ImageURLData `json:"image_url,omitempty"`
}

// MessageContent is the wire union for a message body: either a plain string
// or an ordered list of content parts.
type MessageContent struct {
	Text  string
	Parts []ContentPart
	isStr bool
}

func TextContent(s string) MessageContent {
	return MessageContent{Text: s, isStr: true}
}

func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts}
}

func (m *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Text = s
		m.Parts = nil
		m.isStr = true
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	m.Text = ""
	m.Parts = parts
	m.isStr = false
	return nil
}

func (m MessageContent) MarshalJSON() ([]byte, error) {
	if m.isStr || m.Parts == nil {
		return json.Marshal(m.Text)
	}
	return json.Marshal(m.Parts)
}

type ChatMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ChatRequest 同时承载两种请求形态:
// Shape A: {image_url|image_base64, text, max_tokens?}
// Shape B: {model, messages, max_tokens?, temperature?}
type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`

	// simple shape
	ImageURL    string `json:"image_url,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	Text        string `json:"text,omitempty"`
}

// IsChatShape reports whether the body is the chat-completions form.
func (r *ChatRequest) IsChatShape() bool {
	return len(r.Messages) > 0
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// ModelInfo /v1/models 列表项
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// PredictResponse 原生 /predict 接口的返回
type PredictResponse struct {
	Success     bool   `json:"success"`
	TextInput   string `json:"text_input"`
	ModelOutput string `json:"model_output"`
}

// RootResponse GET / 的返回
type RootResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	Device string `json:"device"`
}

// HealthResponse GET /health 的返回
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
}
