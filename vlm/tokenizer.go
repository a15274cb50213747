package vlm

import (
	"strings"

	"github.com/daulet/tokenizers"
	"github.com/stardustagi/HoloServe/libs/logs"
)

// UsageCounter counts tokens for usage accounting. When a HuggingFace
// tokenizer.json is available the counts come from the real tokenizer,
// otherwise a whitespace estimate is used. Either way the counts stay
// internally consistent: total == prompt + completion.
type UsageCounter struct {
	tk *tokenizers.Tokenizer
}

// NewUsageCounter 加载分词器, 失败时退回估算
func NewUsageCounter(tokenizerPath string) *UsageCounter {
	if tokenizerPath == "" {
		return &UsageCounter{}
	}
	tk, err := tokenizers.FromFile(tokenizerPath)
	if err != nil {
		logs.Warn("tokenizer unavailable, usage counts will be estimated",
			logs.String("path", tokenizerPath), logs.ErrorInfo(err))
		return &UsageCounter{}
	}
	return &UsageCounter{tk: tk}
}

func (u *UsageCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if u.tk != nil {
		ids, _ := u.tk.Encode(text, false)
		return len(ids)
	}
	return len(strings.Fields(text))
}

func (u *UsageCounter) Close() {
	if u.tk != nil {
		u.tk.Close()
	}
}
