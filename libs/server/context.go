package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stardustagi/HoloServe/utils"
)

const RequestIDKey = "X-Request-Id"

type Context struct {
	echo.Context
	RemoteAddr string
	RequestId  string
	Header     http.Header
}

func NewContext(c echo.Context) *Context {
	ctx := &Context{
		Context:    c,
		RemoteAddr: utils.GetRemoteAddr(c.Request()),
		RequestId:  RequestID(c),
		Header:     c.Request().Header,
	}

	return ctx
}
