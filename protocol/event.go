package protocol

// Event 无服务器平台投递的事件
type Event struct {
	ID    string       `json:"id,omitempty"`
	Input *ChatRequest `json:"input"`
}

const (
	JobStatusSuccess = "success"
	JobStatusError   = "error"
)

// JobResult 无服务器平台的返回包装
type JobResult struct {
	Status string        `json:"status"`
	Output *ChatResponse `json:"output,omitempty"`
	Error  string        `json:"error,omitempty"`
}
