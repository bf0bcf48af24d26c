package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/config"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.PaymentConfig{
		BaseURL:    baseURL,
		KeyID:      "rzp_test_key",
		KeySecret:  "rzp_test_secret",
		Currency:   "INR",
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	}, zap.NewNop())
}

func TestCreateOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" {
			t.Errorf("期望路径 /orders，实际=%s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test_key" || pass != "rzp_test_secret" {
			t.Errorf("BasicAuth 不正确: %s/%s", user, pass)
		}
		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("解析请求失败: %v", err)
		}
		if req.Amount != 149900 || req.Currency != "INR" || req.Receipt != "user-1" {
			t.Errorf("请求体不正确: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(Order{ID: "order_123", Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Status: "created"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	order, err := c.CreateOrder(context.Background(), 149900, "user-1", nil)
	if err != nil {
		t.Fatalf("CreateOrder 应成功: %v", err)
	}
	if order.ID != "order_123" {
		t.Errorf("期望订单号 order_123，实际=%s", order.ID)
	}
}

func TestCreateOrder_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.CreateOrder(context.Background(), 100, "user-1", nil)
	if !errors.Is(err, ErrGatewayRejected) {
		t.Errorf("期望 ErrGatewayRejected，实际: %v", err)
	}
}

func TestCreateOrder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.CreateOrder(context.Background(), 100, "user-1", nil)
	if !errors.Is(err, ErrGatewayFailed) {
		t.Errorf("期望 ErrGatewayFailed，实际: %v", err)
	}
}

func TestVerifySignature(t *testing.T) {
	c := newTestClient("http://unused")
	sig := Sign("rzp_test_secret", "order_1", "pay_1")

	if !c.VerifySignature("order_1", "pay_1", sig) {
		t.Error("正确签名应通过校验")
	}
	if c.VerifySignature("order_1", "pay_2", sig) {
		t.Error("payment_id 不一致时签名不应通过")
	}
	if c.VerifySignature("order_1", "pay_1", "") {
		t.Error("空签名不应通过")
	}
}
