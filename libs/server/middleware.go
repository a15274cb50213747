package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
)

func Cors() echo.MiddlewareFunc {
	return middleware.CORS()
}

// Request 请求日志
func Request() echo.MiddlewareFunc {
	logger := logs.GetLogger("httpRequest")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rc := NewContext(c)
			err := next(c)
			logger.Info("request",
				logs.String("method", c.Request().Method),
				logs.String("path", c.Request().URL.Path),
				logs.String("remote", rc.RemoteAddr),
				logs.String("request_id", rc.RequestId),
				logs.Int("status", c.Response().Status),
				logs.Duration("elapsed", time.Since(start)))
			return err
		}
	}
}

var requestIDNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic("failed to create snowflake node: " + err.Error())
	}
	requestIDNode = node
}

// RequestIDMiddleware 为每个请求生成雪花ID, 用于日志关联
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := requestIDNode.Generate().String()
			c.Set(RequestIDKey, id)
			c.Response().Header().Set(RequestIDKey, id)
			return next(c)
		}
	}
}

func RequestID(c echo.Context) string {
	if id, ok := c.Get(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// JWTAuth 校验 Bearer token (HMAC签名). secret为空时不启用.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return errors.ErrUnauthorized
			}
			token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return errors.ErrUnauthorized
			}
			return next(c)
		}
	}
}

// BodyLimit 请求体大小限制, 如 "20M"
func BodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
