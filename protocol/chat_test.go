package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentUnmarshalString(t *testing.T) {
	var msg ChatMessage
	err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &msg)
	require.NoError(t, err)
	assert.Equal(t, "user", msg.Role)
	assert.Equal(t, "hello", msg.Content.Text)
	assert.Nil(t, msg.Content.Parts)
}

func TestMessageContentUnmarshalParts(t *testing.T) {
	raw := `{"role":"user","content":[
		{"type":"text","text":"what is this"},
		{"type":"image_url","image_url":{"url":"https://example.com/cat.png"}}
	]}`
	var msg ChatMessage
	err := json.Unmarshal([]byte(raw), &msg)
	require.NoError(t, err)
	require.Len(t, msg.Content.Parts, 2)
	assert.Equal(t, PartTypeText, msg.Content.Parts[0].Type)
	assert.Equal(t, "what is this", msg.Content.Parts[0].Text)
	require.NotNil(t, msg.Content.Parts[1].ImageURL)
	assert.Equal(t, "https://example.com/cat.png", msg.Content.Parts[1].ImageURL.URL)
}

func TestMessageContentMarshalString(t *testing.T) {
	msg := ChatMessage{Role: RoleAssistant, Content: TextContent("done")}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"assistant","content":"done"}`, string(data))
}

func TestChatRequestShapes(t *testing.T) {
	var simple ChatRequest
	err := json.Unmarshal([]byte(`{"image_url":"https://example.com/a.png","text":"describe","max_tokens":64}`), &simple)
	require.NoError(t, err)
	assert.False(t, simple.IsChatShape())
	assert.Equal(t, "https://example.com/a.png", simple.ImageURL)

	var chat ChatRequest
	err = json.Unmarshal([]byte(`{"model":"m","messages":[{"role":"user","content":"hi"}]}`), &chat)
	require.NoError(t, err)
	assert.True(t, chat.IsChatShape())
}
