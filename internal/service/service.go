package service

import (
	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/config"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/repository"
	"github.com/niosh12/ddeducation/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Roles      RoleResolver
	Submission SubmissionService
	Payment    PaymentService
	Admin      AdminService
	Price      PriceService
	Export     ExportService
}

// Deps 外部依赖，可选项为 nil 时对应功能降级
type Deps struct {
	Blacklist TokenBlacklist
	Gateway   PaymentGateway // 未启用支付时为 nil
	Uploader  ImageUploader  // 未配置 Cloudinary 时为 nil
	Events    EventPublisher // 未启用 Kafka 时为 nil
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	hub *realtime.Hub,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	store := NewSubmissionStore(repo, hub, deps.Events, logger)
	resolver := NewRoleResolver(&cfg.Auth, repo.Role, logger)
	price := NewPriceService(repo, hub, cfg.Submission.DefaultPrice, cfg.Payment.Currency, logger)

	return &Service{
		Auth:  NewAuthService(repo, jwtMgr, resolver, deps.Blacklist, hub, store, logger),
		Roles: resolver,
		Submission: NewSubmissionService(SubmissionDeps{
			Store:         store,
			Hub:           hub,
			Price:         price,
			Gateway:       deps.Gateway,
			Uploader:      deps.Uploader,
			MaxImageBytes: cfg.Upload.MaxImageBytes,
			Sessions:      cfg.Submission.Sessions,
		}, logger),
		Payment: NewPaymentService(store, deps.Gateway, logger),
		Admin:   NewAdminService(repo, store, hub, logger),
		Price:   price,
		Export:  NewExportService(repo, logger),
	}
}
