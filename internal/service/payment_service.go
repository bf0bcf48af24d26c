package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/workflow"
)

var (
	ErrOrderMismatch    = errors.New("支付订单与当前提交不匹配")
	ErrInvalidSignature = errors.New("支付签名校验失败")
)

// PaymentCancelledMessage 取消支付时的提示
const PaymentCancelledMessage = "Payment cancelled. No amount has been charged. Your details are saved and you can try paying again from your dashboard."

// PaymentService 支付确认桥接
type PaymentService interface {
	// Confirm 校验回调后将 Pending 流转为 Paid；任何校验失败都不改动记录
	Confirm(ctx context.Context, userID string, req *dto.ConfirmPaymentRequest) (*dto.StudentDashboardResponse, error)
	// Cancel 用户关闭支付组件，不写入任何数据
	Cancel(ctx context.Context, userID string) *dto.MessageResponse
}

type paymentService struct {
	store   *SubmissionStore
	gateway PaymentGateway
	logger  *zap.Logger
}

// NewPaymentService 创建 PaymentService 实例
func NewPaymentService(store *SubmissionStore, gateway PaymentGateway, logger *zap.Logger) PaymentService {
	return &paymentService{store: store, gateway: gateway, logger: logger}
}

func (s *paymentService) Confirm(ctx context.Context, userID string, req *dto.ConfirmPaymentRequest) (*dto.StudentDashboardResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	ch, err := workflow.Transition(sub.Status, workflow.ActionConfirmPayment, workflow.ActorStudent, workflow.Input{
		PaymentRef: req.PaymentID,
	})
	if err != nil {
		return nil, err
	}
	if sub.PaymentOrderID == "" || sub.PaymentOrderID != req.OrderID {
		s.logger.Warn("支付订单号不匹配",
			zap.String("user_id", userID),
			zap.String("expected", sub.PaymentOrderID),
			zap.String("got", req.OrderID),
		)
		return nil, ErrOrderMismatch
	}
	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("支付签名校验失败", zap.String("user_id", userID), zap.String("order_id", req.OrderID))
		return nil, ErrInvalidSignature
	}

	// 以确认时读到的版本为准，避免同一订单被并发确认两次
	version := sub.Version
	updated, err := s.store.Apply(ctx, studentActor(userID), userID, ch, map[string]interface{}{
		model.ColPaymentSignature: req.Signature,
	}, &version, "支付确认 "+req.PaymentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("支付确认成功", zap.String("user_id", userID), zap.String("payment_id", req.PaymentID))
	resp := dto.NewStudentDashboard(updated)
	return &resp, nil
}

func (s *paymentService) Cancel(_ context.Context, userID string) *dto.MessageResponse {
	s.logger.Info("用户取消支付", zap.String("user_id", userID))
	return &dto.MessageResponse{Message: PaymentCancelledMessage}
}
