package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// StackError 业务错误定义: 数字错误码 + 机读key + HTTP状态码
type StackError struct {
	code   int
	key    string
	msg    string
	status int
	cause  error
}

func New(code int, key, msg string, status int) *StackError {
	return &StackError{code: code, key: key, msg: msg, status: status}
}

func (e *StackError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.key, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.key, e.msg)
}

func (e *StackError) Code() int {
	return e.code
}

func (e *StackError) Key() string {
	return e.key
}

func (e *StackError) Msg() string {
	return e.msg
}

func (e *StackError) Status() int {
	return e.status
}

func (e *StackError) Unwrap() error {
	return e.cause
}

// WithCause returns a copy carrying the underlying cause. The cause is kept
// for logs only and never serialized to the caller.
func (e *StackError) WithCause(err error) *StackError {
	clone := *e
	clone.cause = pkgerrors.WithStack(err)
	return &clone
}

// WithMsg returns a copy with a more specific caller-facing message.
func (e *StackError) WithMsg(format string, args ...interface{}) *StackError {
	clone := *e
	clone.msg = fmt.Sprintf(format, args...)
	return &clone
}

// 输入类错误(调用方造成)
var (
	ErrBadRequest      = New(1000, "bad_request", "malformed request body", 400)
	ErrNoImage         = New(1001, "no_image", "no image provided", 400)
	ErrNoText          = New(1002, "no_text", "no instruction text", 400)
	ErrBadBase64       = New(1003, "bad_base64", "image payload is not valid base64", 400)
	ErrFetchFailed     = New(1004, "fetch_failed", "image url could not be fetched", 400)
	ErrCorruptImage    = New(1005, "corrupt_image", "image bytes could not be decoded", 400)
	ErrPayloadTooLarge = New(1006, "payload_too_large", "request payload exceeds the allowed size", 413)
	ErrUnauthorized    = New(1007, "unauthorized", "missing or invalid api token", 401)
)

// 资源与推理类错误
var (
	ErrBusy            = New(2001, "busy", "model is busy, retry later", 429)
	ErrInferenceFailed = New(3001, "inference_failed", "inference failed", 500)
	ErrModelLoading    = New(3002, "model_loading", "model is not loaded yet", 503)
)

// From coerces any error into a StackError. Unknown errors map to
// inference_failed so no internal text leaks to the caller.
func From(err error) *StackError {
	if err == nil {
		return nil
	}
	var se *StackError
	if pkgerrors.As(err, &se) {
		return se
	}
	return ErrInferenceFailed.WithCause(err)
}
