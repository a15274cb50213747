package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	// 注册解码器
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/stardustagi/HoloServe/libs/errors"
	"github.com/stardustagi/HoloServe/libs/logs"
	"go.uber.org/zap"
)

// 模型支持的最大分辨率, 超出时等比缩小
const (
	MaxWidth  = 3840
	MaxHeight = 2160
)

const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultMaxBytes     = 20 << 20 // 20MB
)

// Resolver 将图片引用(URL或data URI)解析为可用的位图
type Resolver struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

func NewResolver(fetchTimeout time.Duration, maxBytes int64) *Resolver {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Resolver{
		client:   &http.Client{Timeout: fetchTimeout},
		maxBytes: maxBytes,
		logger:   logs.GetLogger("imaging"),
	}
}

// Resolve fetches or decodes the reference and returns a bitmap already
// clamped to the supported resolution.
func (r *Resolver) Resolve(ctx context.Context, ref string) (image.Image, *errors.StackError) {
	var raw []byte
	var serr *errors.StackError

	switch {
	case strings.HasPrefix(ref, "data:"):
		raw, serr = decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		raw, serr = r.fetch(ctx, ref)
	default:
		return nil, errors.ErrFetchFailed.WithMsg("unsupported image reference")
	}
	if serr != nil {
		return nil, serr
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.ErrCorruptImage.WithCause(err)
	}
	bounds := img.Bounds()
	r.logger.Debug("image decoded",
		logs.String("format", format),
		logs.Int("width", bounds.Dx()),
		logs.Int("height", bounds.Dy()))

	return FitWithin(img, MaxWidth, MaxHeight), nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, *errors.StackError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.ErrFetchFailed.WithCause(err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.ErrFetchFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.ErrFetchFailed.WithMsg("image url returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, errors.ErrFetchFailed.WithCause(err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, errors.ErrPayloadTooLarge
	}
	return data, nil
}

// decodeDataURI 解码 data:<mime>;base64,<payload>
func decodeDataURI(uri string) ([]byte, *errors.StackError) {
	meta, payload, found := strings.Cut(uri[len("data:"):], ",")
	if !found {
		return nil, errors.ErrBadBase64.WithMsg("data uri has no payload")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.ErrBadBase64.WithMsg("data uri is not base64 encoded")
	}
	mimeType := strings.TrimSuffix(meta, ";base64")
	if mimeType != "" && !strings.HasPrefix(mimeType, "image/") {
		return nil, errors.ErrBadBase64.WithMsg("unsupported mime type %q", mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.ErrBadBase64.WithCause(err)
	}
	return data, nil
}
