package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/config"
)

var (
	ErrGatewayRejected = errors.New("支付网关拒绝了请求")
	ErrGatewayFailed   = errors.New("支付网关不可用")
)

// Order 网关下单结果
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // 最小货币单位（paise）
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Client Razorpay 兼容支付网关客户端
// 下单走 REST（带重试），支付确认走 HMAC-SHA256 签名校验
type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	currency  string
	http      *retryablehttp.Client
	logger    *zap.Logger
}

// NewClient 创建支付网关客户端
func NewClient(cfg *config.PaymentConfig, logger *zap.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 3 * time.Second
	rc.Logger = nil
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc.HTTPClient.Timeout = timeout
	// 4xx 属于业务拒绝，不重试
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err == nil && resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		currency:  currency,
		http:      rc,
		logger:    logger,
	}
}

// KeyID 前端拉起支付组件所需的公开 key
func (c *Client) KeyID() string { return c.keyID }

// Currency 下单币种
func (c *Client) Currency() string { return c.currency }

// CreateOrder 创建支付订单，amount 为最小货币单位
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: c.currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("支付网关下单请求失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Warn("支付网关下单被拒绝",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		if resp.StatusCode < 500 {
			return nil, ErrGatewayRejected
		}
		return nil, ErrGatewayFailed
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("%w: 无法解析下单响应: %v", ErrGatewayFailed, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: 下单响应缺少订单号", ErrGatewayFailed)
	}
	return &order, nil
}

// VerifySignature 校验支付回调签名
// signature = hex(HMAC_SHA256(order_id + "|" + payment_id, key_secret))
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := Sign(c.keySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Sign 计算支付回调签名
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
