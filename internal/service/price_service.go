package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/repository"
)

// MaxPrice 服务费上限（INR），换算为 paise 后远小于 int64 上限
const MaxPrice int64 = 10_000_000

var ErrInvalidPrice = errors.New("服务费必须为正数且不超过上限")

// PriceService 服务费业务接口
type PriceService interface {
	Get(ctx context.Context) (*dto.PriceResponse, error)
	Update(ctx context.Context, adminID string, amount int64) (*dto.PriceResponse, error)
	// Watch 订阅服务费变更，首个元素为当前值
	Watch(ctx context.Context, owner string) (<-chan dto.PriceResponse, func(), error)
}

type priceService struct {
	repo         *repository.Repository
	hub          *realtime.Hub
	defaultPrice int64
	currency     string
	logger       *zap.Logger
}

// NewPriceService 创建 PriceService 实例
func NewPriceService(repo *repository.Repository, hub *realtime.Hub, defaultPrice int64, currency string, logger *zap.Logger) PriceService {
	if currency == "" {
		currency = "INR"
	}
	return &priceService{
		repo:         repo,
		hub:          hub,
		defaultPrice: defaultPrice,
		currency:     currency,
		logger:       logger,
	}
}

// Get 未配置时返回默认价格
func (s *priceService) Get(ctx context.Context) (*dto.PriceResponse, error) {
	cfg, err := s.repo.Price.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.PriceResponse{Amount: s.defaultPrice, Currency: s.currency}, nil
		}
		s.logger.Error("查询服务费失败", zap.Error(err))
		return nil, err
	}
	return s.toResponse(cfg), nil
}

func (s *priceService) Update(ctx context.Context, adminID string, amount int64) (*dto.PriceResponse, error) {
	if amount <= 0 || amount > MaxPrice {
		return nil, ErrInvalidPrice
	}

	cfg := &model.PriceConfig{Amount: amount, UpdatedBy: &adminID}
	if err := s.repo.Price.Save(ctx, cfg); err != nil {
		s.logger.Error("更新服务费失败", zap.Error(err))
		return nil, err
	}

	resp := s.toResponse(cfg)
	s.logger.Info("服务费已更新", zap.Int64("amount", amount), zap.String("admin_id", adminID))

	if s.hub != nil {
		ev, err := realtime.NewEvent(realtime.TopicPrice, realtime.EventPriceUpdated, resp)
		if err == nil {
			s.hub.Publish(ctx, ev)
		}
	}
	return resp, nil
}

func (s *priceService) Watch(ctx context.Context, owner string) (<-chan dto.PriceResponse, func(), error) {
	events, unsubscribe := s.hub.Subscribe(realtime.TopicPrice, owner)
	ctx, cancel := watchScope(ctx, unsubscribe)

	current, err := s.Get(ctx)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	out := make(chan dto.PriceResponse, 1)
	out <- *current
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
				var p dto.PriceResponse
				if err := json.Unmarshal(ev.Data, &p); err != nil {
					s.logger.Warn("丢弃无法解析的服务费事件", zap.Error(err))
					continue
				}
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}

func (s *priceService) toResponse(cfg *model.PriceConfig) *dto.PriceResponse {
	return &dto.PriceResponse{
		Amount:    cfg.Amount,
		Currency:  s.currency,
		UpdatedAt: cfg.UpdatedAt.Format(time.RFC3339),
	}
}
