package handler

import (
	"github.com/niosh12/ddeducation/config"
	"github.com/niosh12/ddeducation/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Submission *SubmissionHandler
	Payment    *PaymentHandler
	Admin      *AdminHandler
	Price      *PriceHandler
	Catalog    *CatalogHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		Submission: NewSubmissionHandler(svc.Submission),
		Payment:    NewPaymentHandler(svc.Payment),
		Admin:      NewAdminHandler(svc.Admin),
		Price:      NewPriceHandler(svc.Price),
		Catalog:    NewCatalogHandler(cfg.Submission.Sessions),
		Export:     NewExportHandler(svc.Export),
	}
}
