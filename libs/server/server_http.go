package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
	"github.com/stardustagi/HoloServe/libs/option"
	"github.com/stardustagi/HoloServe/protocol"
	"go.uber.org/zap"
)

type CustomValidator struct {
	Validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.Validator.Struct(i)
}

type HttpServer struct {
	ctx    context.Context
	addr   string
	path   string
	logger *zap.Logger
	engine *echo.Echo
	group  map[string]*RouteGroup
}

func NewHttpServer(opts *option.Options) (*HttpServer, error) {
	engine := echo.New()
	engine.HideBanner = true
	engine.Validator = &CustomValidator{Validator: validator.New()}
	engine.HTTPErrorHandler = errorHandler(logs.GetLogger("httpError"))
	engine.Use(RequestIDMiddleware())
	addr := fmt.Sprintf("%s:%d", opts.Http.Address, opts.Http.Port)
	if opts.Http.Cors {
		engine.Use(Cors())
	}
	if opts.Http.RequestLog {
		engine.Use(Request())
	}

	if opts.Http.Path != "" && opts.Http.Path[0] != '/' {
		return nil, stderrors.New("the http.path must start with a /")
	}

	srv := &HttpServer{
		ctx:    context.Background(),
		logger: logs.GetLogger("httpServer"),
		engine: engine,
		group:  make(map[string]*RouteGroup),
		addr:   addr,
		path:   opts.Http.Path,
	}
	return srv, nil
}

// errorHandler 统一错误出口: 永远不把内部错误文本写给调用方
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var se *errors.StackError
		if stderrors.As(err, &se) {
			writeError(c, se)
			return
		}
		var he *echo.HTTPError
		if stderrors.As(err, &he) {
			switch {
			case he.Code == http.StatusRequestEntityTooLarge:
				writeError(c, errors.ErrPayloadTooLarge)
			case he.Code == http.StatusNotFound:
				writeError(c, errors.New(1404, "not_found", "resource not found", 404))
			case he.Code < 500:
				writeError(c, errors.ErrBadRequest)
			default:
				logger.Error("unhandled http error", logs.String("request_id", RequestID(c)), logs.ErrorInfo(err))
				writeError(c, errors.ErrInferenceFailed)
			}
			return
		}
		// 绑定/校验失败
		if _, ok := err.(validator.ValidationErrors); ok {
			writeError(c, errors.ErrBadRequest)
			return
		}
		logger.Error("unhandled error", logs.String("request_id", RequestID(c)), logs.ErrorInfo(err))
		writeError(c, errors.ErrInferenceFailed)
	}
}

func writeError(c echo.Context, se *errors.StackError) {
	_ = protocol.Response(c, se, nil)
}

func (m *HttpServer) Engine() *echo.Echo {
	return m.engine
}

func (m *HttpServer) Use(middleware ...echo.MiddlewareFunc) *HttpServer {
	m.engine.Use(middleware...)
	return m
}

func (m *HttpServer) Startup() error {
	m.logger.Info("http server listened on:", zap.String("addr", m.addr))
	// 打印路由
	for _, route := range m.engine.Routes() {
		m.logger.Info("http route registered:", logs.String("method", route.Method), logs.String("path", route.Path))
	}
	go func() {
		<-m.ctx.Done()
		m.Stop()
		m.engine.Close()
	}()
	return m.engine.Start(m.addr)
}

func (m *HttpServer) Stop() {
	if err := m.engine.Shutdown(m.ctx); err != nil {
		m.logger.Error("shutdown http server:", zap.Error(err))
		return
	}
}

// Handle registers a new route with the HTTP server.
func (m *HttpServer) Handle(method string, path string, handler IHandler) {
	path, _ = url.JoinPath(m.path, path)
	m.engine.Add(method, path, handler.GetFunc())
}

func (m *HttpServer) AddNativeHandler(method string, path string, handler echo.HandlerFunc) {
	path, _ = url.JoinPath(m.path, path)
	m.engine.Add(method, path, handler)
}

func (m *HttpServer) AddGroup(path string, middleware ...echo.MiddlewareFunc) {
	urlPath, _ := url.JoinPath(m.path, path)
	m.group[path] = NewRouteGroup(path, m.engine.Group(urlPath, middleware...))
	m.logger.Info("http group registered:", logs.String("path", urlPath))
}

func (m *HttpServer) Get(path string, group string, handler IHandler) {
	if group != "" {
		if _, exists := m.group[group]; !exists {
			m.logger.Error("group not found", logs.String("group", group))
			return
		}
		m.group[group].Group.GET(fmt.Sprintf("/%s", path), handler.GetFunc())
		m.logger.Info("http handler registered to group:", logs.String("path", path), logs.String("prefix", m.group[group].Prefix))
		return
	}
	m.Handle(http.MethodGet, path, handler)
}

func (m *HttpServer) Post(path string, group string, handler IHandler) {
	if group != "" {
		if _, exists := m.group[group]; !exists {
			m.logger.Error("group not found", zap.String("group", group))
			return
		}
		m.group[group].Group.POST(fmt.Sprintf("/%s", path), handler.GetFunc())
		m.logger.Info("http handler registered to group:", logs.String("path", path), logs.String("prefix", m.group[group].Prefix))
		return
	}
	m.Handle(http.MethodPost, path, handler)
}

type RouteGroup struct {
	Prefix string
	Group  *echo.Group
}

func NewRouteGroup(prefix string, group *echo.Group) *RouteGroup {
	return &RouteGroup{
		Prefix: prefix,
		Group:  group,
	}
}
