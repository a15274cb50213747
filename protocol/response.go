package protocol

import (
	"github.com/labstack/echo/v4"
	"github.com/stardustagi/HoloServe/libs/errors"
)

// 返回定义
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func errorType(status int) string {
	switch {
	case status == 429:
		return "rate_limit_error"
	case status >= 500:
		return "server_error"
	default:
		return "invalid_request_error"
	}
}

// Response 统一出口: 成功时序列化data, 失败时只暴露错误码与提示语
func Response(c echo.Context, err *errors.StackError, data any) error {
	if err == nil {
		return c.JSON(200, data)
	}
	return c.JSON(err.Status(), ErrorResponse{
		Error: ErrorBody{
			Code:    err.Key(),
			Message: err.Msg(),
			Type:    errorType(err.Status()),
		},
	})
}
