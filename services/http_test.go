package services

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stardustagi/HoloServe/imaging"
	"github.com/stardustagi/HoloServe/libs/option"
	"github.com/stardustagi/HoloServe/protocol"
	"github.com/stardustagi/HoloServe/vlm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() *option.Options {
	return &option.Options{
		Http: option.Http{Address: "127.0.0.1", Port: 0},
	}
}

// newTestHTTP 组装完整HTTP栈, loaded=false时模拟模型未就绪
func newTestHTTP(t *testing.T, engine vlm.Engine, loaded bool, authSecret string) *HttpService {
	t.Helper()
	manager := vlm.NewManager(engine, vlm.ManagerConfig{ModelName: "test-model"})
	if loaded {
		require.NoError(t, manager.Load(context.Background()))
		t.Cleanup(manager.Shutdown)
	}
	chat := NewChatService(manager, imaging.NewResolver(0, 0))
	svc, err := NewHttpService(testOptions(), chat, authSecret)
	require.NoError(t, err)
	return svc
}

func doJSON(svc *HttpService, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	svc.Engine().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) protocol.ErrorResponse {
	t.Helper()
	var er protocol.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	return er
}

func TestHealthBeforeLoad(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, false, "")

	rec := doJSON(svc, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health protocol.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "loading", health.Status)
	assert.False(t, health.ModelLoaded)
}

func TestHealthAfterLoad(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, true, "")

	rec := doJSON(svc, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health protocol.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.True(t, health.ModelLoaded)
	assert.Equal(t, "cuda", health.Device)
}

func TestRoot(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, true, "")

	rec := doJSON(svc, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var root protocol.RootResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))
	assert.Equal(t, "running", root.Status)
	assert.Equal(t, "test-model", root.Model)
}

func TestChatCompletionsSimpleShape(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{output: "a gray square"}, true, "")

	body, _ := json.Marshal(protocol.ChatRequest{
		ImageURL:  pngDataURI(t),
		Text:      "what is this",
		MaxTokens: 64,
	})
	rec := doJSON(svc, http.MethodPost, "/v1/chat/completions", string(body), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp protocol.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "chat.completion", resp.Object)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "a gray square", resp.Choices[0].Message.Content.Text)
	assert.Equal(t, resp.Usage.PromptTokens+resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestChatCompletionsChatShape(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{output: "a gray square"}, true, "")

	body := `{"model":"test-model","messages":[{"role":"user","content":[
		{"type":"text","text":"what is this"},
		{"type":"image_url","image_url":{"url":"` + pngDataURI(t) + `"}}
	]}]}`
	rec := doJSON(svc, http.MethodPost, "/v1/chat/completions", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestChatCompletionsNoText(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, true, "")

	body := `{"image_url":"` + pngDataURI(t) + `","text":"  "}`
	rec := doJSON(svc, http.MethodPost, "/v1/chat/completions", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	er := decodeError(t, rec)
	assert.Equal(t, "no_text", er.Error.Code)
	assert.Equal(t, "invalid_request_error", er.Error.Type)
}

func TestChatCompletionsFetchFailed(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, true, "")

	body := `{"image_url":"http://127.0.0.1:1/cat.png","text":"describe"}`
	rec := doJSON(svc, http.MethodPost, "/v1/chat/completions", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fetch_failed", decodeError(t, rec).Error.Code)
}

func TestChatCompletionsWhileLoading(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, false, "")

	body := `{"image_url":"` + pngDataURI(t) + `","text":"describe"}`
	rec := doJSON(svc, http.MethodPost, "/v1/chat/completions", body, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "model_loading", decodeError(t, rec).Error.Code)
}

func TestModels(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, true, "")

	rec := doJSON(svc, http.MethodGet, "/v1/models", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list protocol.ModelList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "list", list.Object)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "test-model", list.Data[0].ID)
}

func TestNotFound(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, true, "")

	rec := doJSON(svc, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestPredictMultipart(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{output: "a gray square"}, true, "")

	var imgBuf bytes.Buffer
	require.NoError(t, png.Encode(&imgBuf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "square.png")
	require.NoError(t, err)
	_, err = part.Write(imgBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("text", "describe"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set(echoHeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	svc.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp protocol.PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "a gray square", resp.ModelOutput)
}

func TestPredictMissingImage(t *testing.T) {
	svc := newTestHTTP(t, &stubEngine{}, true, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "describe"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict", &body)
	req.Header.Set(echoHeaderContentType, mw.FormDataContentType())
	rec := httptest.NewRecorder()
	svc.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no_image", decodeError(t, rec).Error.Code)
}

func TestAuthRequired(t *testing.T) {
	const secret = "test-secret"
	svc := newTestHTTP(t, &stubEngine{output: "ok"}, true, secret)

	body := `{"image_url":"` + pngDataURI(t) + `","text":"describe"}`

	// 没带token
	rec := doJSON(svc, http.MethodPost, "/v1/chat/completions", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error.Code)

	// 错误签名
	badToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "caller"}).
		SignedString([]byte("wrong-secret"))
	require.NoError(t, err)
	rec = doJSON(svc, http.MethodPost, "/v1/chat/completions", body,
		map[string]string{"Authorization": "Bearer " + badToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 正确签名
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "caller"}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	rec = doJSON(svc, http.MethodPost, "/v1/chat/completions", body,
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
