package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/service"
	"github.com/niosh12/ddeducation/internal/workflow"
	"github.com/niosh12/ddeducation/pkg/response"
)

// PaymentHandler 支付回调 HTTP 处理器
type PaymentHandler struct {
	paymentSvc service.PaymentService
}

// NewPaymentHandler 创建 PaymentHandler
func NewPaymentHandler(paymentSvc service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Confirm 支付成功回调
// POST /api/v1/payments/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.paymentSvc.Confirm(c.Request.Context(), userID, &req)
	if err != nil {
		h.handlePaymentError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 用户关闭支付组件
// POST /api/v1/payments/cancel
func (h *PaymentHandler) Cancel(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	response.OK(c, h.paymentSvc.Cancel(c.Request.Context(), userID))
}

func (h *PaymentHandler) handlePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderMismatch):
		response.BadRequest(c, 13001, "支付订单与当前提交不匹配")
	case errors.Is(err, service.ErrInvalidSignature):
		response.BadRequest(c, 13002, "支付签名校验失败")
	case errors.Is(err, workflow.ErrPaymentRefRequired):
		response.BadRequest(c, 13003, "缺少支付流水号")
	default:
		handleSubmissionError(c, err)
	}
}
