package service

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrImageInvalid  = errors.New("请上传有效的图片文件（PNG、JPG 等）")
	ErrImageTooLarge = errors.New("图片过大，请上传小于 2MB 的图片")
)

// ImageUploader 付款截图外部存储
type ImageUploader interface {
	UploadImage(ctx context.Context, publicID string, b []byte) (string, error)
}

// paymentImageProcessor 校验并保存付款截图
// 配置了上传器时上传并返回 URL，否则原样保留 data URL
type paymentImageProcessor struct {
	uploader ImageUploader
	maxBytes int64
	logger   *zap.Logger
}

func newPaymentImageProcessor(uploader ImageUploader, maxBytes int64, logger *zap.Logger) *paymentImageProcessor {
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return &paymentImageProcessor{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

// Process 空输入返回空串；已是 https 地址（重复提交沿用旧图）时直接返回
func (p *paymentImageProcessor) Process(ctx context.Context, userID, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if strings.HasPrefix(raw, "https://") {
		return raw, nil
	}

	data, err := p.decode(raw)
	if err != nil {
		return "", err
	}

	if p.uploader == nil {
		return raw, nil
	}
	url, err := p.uploader.UploadImage(ctx, "payment-"+userID, data)
	if err != nil {
		p.logger.Error("上传付款截图失败", zap.String("user_id", userID), zap.Error(err))
		return "", err
	}
	return url, nil
}

// decode 解析 data:image/*;base64,<payload> 并校验类型与大小
func (p *paymentImageProcessor) decode(raw string) ([]byte, error) {
	header, payload, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrImageInvalid
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !strings.HasPrefix(mime, "image/") {
		return nil, ErrImageInvalid
	}
	if int64(base64.StdEncoding.DecodedLen(len(payload))) > p.maxBytes+3 {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrImageInvalid
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrImageTooLarge
	}
	if !strings.HasPrefix(http.DetectContentType(data), "image/") {
		return nil, ErrImageInvalid
	}
	return data, nil
}
