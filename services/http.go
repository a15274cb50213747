package services

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stardustagi/HoloServe/libs/option"
	"github.com/stardustagi/HoloServe/libs/server"
	"github.com/stardustagi/HoloServe/protocol"
	"go.uber.org/zap"
)

type emptyReq struct{}
type emptyResp struct{}

// HttpService 对外HTTP服务: 健康检查 + chat-completions + 原生predict
type HttpService struct {
	backend *server.Backend
	chat    *ChatService
	logger  *zap.Logger
}

func NewHttpService(opts *option.Options, chat *ChatService, authSecret string) (*HttpService, error) {
	backend, err := server.NewBackend(opts)
	if err != nil {
		return nil, err
	}
	svc := &HttpService{
		backend: backend,
		chat:    chat,
		logger:  logs.GetLogger("httpService"),
	}
	svc.registerRoutes(authSecret)
	return svc, nil
}

func (s *HttpService) registerRoutes(authSecret string) {
	s.backend.AddNativeHandler(http.MethodGet, "/", s.handleRoot)
	s.backend.AddNativeHandler(http.MethodGet, "/health", s.handleHealth)

	var mws []echo.MiddlewareFunc
	if authSecret != "" {
		mws = append(mws, server.JWTAuth(authSecret))
	}
	s.backend.AddGroup("/v1", mws...)

	models := server.NewHandler(
		"models",
		[]string{"openai"},
		func(c echo.Context, _ emptyReq, _ emptyResp) error {
			return protocol.Response(c, nil, s.modelList())
		},
	)
	s.backend.AddGetHandler("/v1", models)

	chatCompletions := server.NewHandler(
		"chat/completions",
		[]string{"openai"},
		func(c echo.Context, req protocol.ChatRequest, _ emptyResp) error {
			if !s.chat.Manager().Ready() {
				return protocol.Response(c, errors.ErrModelLoading, nil)
			}
			resp, serr := s.chat.Complete(c.Request().Context(), server.RequestID(c), &req)
			return protocol.Response(c, serr, resp)
		},
	)
	s.backend.AddPostHandler("/v1", chatCompletions)

	predict := s.handlePredict
	if authSecret != "" {
		predict = server.JWTAuth(authSecret)(predict)
	}
	s.backend.AddNativeHandler(http.MethodPost, "/predict", predict)
}

func (s *HttpService) handleRoot(c echo.Context) error {
	status := "running"
	if !s.chat.Manager().Ready() {
		status = "loading"
	}
	return c.JSON(http.StatusOK, protocol.RootResponse{
		Status: status,
		Model:  s.chat.Manager().ModelName(),
		Device: s.chat.Manager().Device(),
	})
}

// handleHealth 就绪探针: 模型没验证加载完成前不报告健康
func (s *HttpService) handleHealth(c echo.Context) error {
	if !s.chat.Manager().Ready() {
		return c.JSON(http.StatusServiceUnavailable, protocol.HealthResponse{
			Status:      "loading",
			ModelLoaded: false,
			Device:      s.chat.Manager().Device(),
		})
	}
	return c.JSON(http.StatusOK, protocol.HealthResponse{
		Status:      "healthy",
		ModelLoaded: true,
		Device:      s.chat.Manager().Device(),
	})
}

// handlePredict 原生multipart接口: 图片文件 + 文本字段
func (s *HttpService) handlePredict(c echo.Context) error {
	if !s.chat.Manager().Ready() {
		return protocol.Response(c, errors.ErrModelLoading, nil)
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return protocol.Response(c, errors.ErrNoImage, nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return protocol.Response(c, errors.ErrCorruptImage.WithCause(err), nil)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return protocol.Response(c, errors.ErrCorruptImage.WithCause(err), nil)
	}

	resp, serr := s.chat.Predict(c.Request().Context(), server.RequestID(c), data, c.FormValue("text"))
	return protocol.Response(c, serr, resp)
}

func (s *HttpService) modelList() protocol.ModelList {
	return protocol.ModelList{
		Object: "list",
		Data: []protocol.ModelInfo{
			{
				ID:      s.chat.Manager().ModelName(),
				Object:  "model",
				Created: time.Now().Unix(),
				OwnedBy: "holoserve",
			},
		},
	}
}

func (s *HttpService) Engine() *echo.Echo {
	return s.backend.Engine()
}

func (s *HttpService) Start() error {
	return s.backend.Start()
}

func (s *HttpService) Stop() {
	s.backend.Stop()
}
