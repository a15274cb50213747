package server

import (
	"github.com/labstack/echo/v4"
)

type Handler[Req any, Resp any] struct {
	Path string // 路径
	Name string
	Tags []string
	Func func(echo.Context, Req, Resp) error
}

// 抽象接口
type IHandler interface {
	GetName() string
	GetTags() []string
	GetFunc() func(echo.Context) error
}

func NewHandler[Req any, Resp any](
	name string,
	tags []string,
	f func(echo.Context, Req, Resp) error,
) *Handler[Req, Resp] {
	return &Handler[Req, Resp]{
		Name: name,
		Tags: tags,
		Func: f,
	}
}

func (h *Handler[Req, Resp]) GetName() string {
	return h.Name
}

func (h *Handler[Req, Resp]) GetTags() []string {
	return h.Tags
}

func (h *Handler[Req, Resp]) GetFunc() func(echo.Context) error {
	return func(c echo.Context) error {
		// 每个请求独立绑定, handler可被并发调用
		var req Req
		var resp Resp
		if err := c.Bind(&req); err != nil {
			return err
		}
		// 验证
		if err := c.Validate(&req); err != nil {
			return err
		}
		// 执行体
		return h.Func(c, req, resp)
	}
}
