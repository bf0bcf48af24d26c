package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/internal/catalog"
	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/workflow"
	"github.com/niosh12/ddeducation/pkg/payment"
)

var (
	ErrInvalidInput        = errors.New("参数校验失败")
	ErrDeclarationRequired = errors.New("请先勾选声明后再提交")
	ErrInvalidSession      = errors.New("考试场次无效")
	ErrInvalidDOB          = errors.New("出生日期格式应为 YYYY-MM-DD")
	ErrPaymentUnavailable  = errors.New("支付网关暂不可用，资料已保存，可稍后重试支付")
)

// PaymentGateway 支付网关
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, receipt string, notes map[string]string) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
	Currency() string
}

// SubmissionService 学生端提交业务接口
type SubmissionService interface {
	GetMine(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.StudentDashboardResponse, error)
	// Checkout 保存资料（状态置 Pending）后创建支付订单；下单失败时资料保留
	Checkout(ctx context.Context, userID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	// Watch 订阅本人提交记录，首个元素为当前快照
	Watch(ctx context.Context, userID string) (<-chan dto.StudentDashboardResponse, func(), error)
}

type submissionService struct {
	store    *SubmissionStore
	hub      *realtime.Hub
	price    PriceService
	gateway  PaymentGateway
	images   *paymentImageProcessor
	sessions []string
	logger   *zap.Logger
}

// SubmissionDeps 学生端提交业务依赖
type SubmissionDeps struct {
	Store         *SubmissionStore
	Hub           *realtime.Hub
	Price         PriceService
	Gateway       PaymentGateway // nil 表示未启用支付
	Uploader      ImageUploader  // nil 表示截图内联保存
	MaxImageBytes int64
	Sessions      []string
}

// NewSubmissionService 创建 SubmissionService 实例
func NewSubmissionService(deps SubmissionDeps, logger *zap.Logger) SubmissionService {
	return &submissionService{
		store:    deps.Store,
		hub:      deps.Hub,
		price:    deps.Price,
		gateway:  deps.Gateway,
		images:   newPaymentImageProcessor(deps.Uploader, deps.MaxImageBytes, logger),
		sessions: deps.Sessions,
		logger:   logger,
	}
}

func (s *submissionService) GetMine(ctx context.Context, userID string) (*dto.StudentDashboardResponse, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewStudentDashboard(sub)
	return &resp, nil
}

func (s *submissionService) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*dto.StudentDashboardResponse, error) {
	sub, err := s.openCycle(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, 2)
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: 姓名不能为空", ErrInvalidInput)
		}
		fields[model.ColFullName] = name
	}
	if req.EnrollmentNumber != nil {
		fields[model.ColEnrollmentNumber] = strings.TrimSpace(*req.EnrollmentNumber)
	}
	if len(fields) == 0 {
		resp := dto.NewStudentDashboard(sub)
		return &resp, nil
	}

	updated, err := s.store.Update(ctx, studentActor(userID), userID, fields, nil, "")
	if err != nil {
		return nil, err
	}
	resp := dto.NewStudentDashboard(updated)
	return &resp, nil
}

func (s *submissionService) Checkout(ctx context.Context, userID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	sub, err := s.openCycle(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 1. 写入前校验
	if !req.Declaration {
		return nil, ErrDeclarationRequired
	}
	if err := catalog.ValidateSubjects(catalog.Class(sub.Class), req.Subjects); err != nil {
		return nil, err
	}
	session := strings.TrimSpace(req.Session)
	if !s.validSession(session) {
		return nil, ErrInvalidSession
	}
	dob := strings.TrimSpace(req.DOB)
	if _, err := time.Parse("2006-01-02", dob); err != nil {
		return nil, ErrInvalidDOB
	}
	image, err := s.images.Process(ctx, userID, req.PaymentImage)
	if err != nil {
		return nil, err
	}

	// 2. 保存资料，Rejected 重新提交回到 Pending
	ch, err := workflow.Transition(sub.Status, workflow.ActionResubmit, workflow.ActorStudent, workflow.Input{})
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{
		model.ColEnrollmentNumber: strings.TrimSpace(req.EnrollmentNumber),
		model.ColDOB:              dob,
		model.ColSession:          session,
		model.ColSubjects:         model.StringArray(req.Subjects),
		model.ColPaymentImage:     image,
		model.ColComments:         strings.TrimSpace(req.Comments),
	}
	sub, err = s.store.Apply(ctx, studentActor(userID), userID, ch, fields, nil, "学生提交资料")
	if err != nil {
		return nil, err
	}

	// 3. 创建支付订单
	if s.gateway == nil {
		return nil, ErrPaymentUnavailable
	}
	price, err := s.price.Get(ctx)
	if err != nil {
		return nil, err
	}
	amount := price.Amount * 100
	order, err := s.gateway.CreateOrder(ctx, amount, userID, map[string]string{
		"user_id": userID,
		"class":   sub.Class,
	})
	if err != nil {
		s.logger.Warn("创建支付订单失败", zap.String("user_id", userID), zap.Error(err))
		return nil, ErrPaymentUnavailable
	}

	// 4. 记录订单号，支付确认时核对
	if _, err := s.store.Update(ctx, studentActor(userID), userID, map[string]interface{}{
		model.ColPaymentOrderID: order.ID,
	}, nil, ""); err != nil {
		return nil, err
	}

	return &dto.CheckoutResponse{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: s.gateway.Currency(),
		KeyID:    s.gateway.KeyID(),
		Prefill:  dto.Prefill{Name: sub.FullName, Email: sub.Email},
	}, nil
}

func (s *submissionService) Watch(ctx context.Context, userID string) (<-chan dto.StudentDashboardResponse, func(), error) {
	events, unsubscribe := s.hub.Subscribe(realtime.SubmissionTopic(userID), userID)
	ctx, cancel := watchScope(ctx, unsubscribe)

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	out := make(chan dto.StudentDashboardResponse, 1)
	out <- dto.NewStudentDashboard(sub)

	known := map[string]int{sub.UserID: sub.Version}
	go func() {
		defer close(out)
		for rec := range decodeSubmissions(ctx, events, known, s.logger) {
			select {
			case out <- dto.NewStudentDashboard(rec):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

// openCycle 仅 Pending / Rejected 允许学生写入
func (s *submissionService) openCycle(ctx context.Context, userID string) (*model.Submission, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanOpenCycle(sub.Status) {
		return nil, workflow.ErrCycleClosed
	}
	return sub, nil
}

func (s *submissionService) validSession(session string) bool {
	for _, v := range s.sessions {
		if v == session {
			return true
		}
	}
	return false
}

func studentActor(userID string) Actor {
	return Actor{ID: userID, Role: workflow.ActorStudent}
}

// decodeSubmissions 解码实时事件为提交记录
// known 记录每条记录已推送的 version，版本不新的事件直接丢弃
// watchScope 派生订阅上下文，返回的 cancel 退订并结束转发协程，调用方无需继续读取
func watchScope(ctx context.Context, unsubscribe func()) (context.Context, func()) {
	ctx, stop := context.WithCancel(ctx)
	return ctx, func() {
		unsubscribe()
		stop()
	}
}

func decodeSubmissions(ctx context.Context, events <-chan realtime.Event, known map[string]int, logger *zap.Logger) <-chan *model.Submission {
	out := make(chan *model.Submission)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				var rec model.Submission
				if err := json.Unmarshal(ev.Data, &rec); err != nil {
					logger.Warn("丢弃无法解析的提交事件", zap.Error(err))
					continue
				}
				if v, seen := known[rec.UserID]; seen && rec.Version <= v {
					continue
				}
				known[rec.UserID] = rec.Version
				select {
				case out <- &rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
