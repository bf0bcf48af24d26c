package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/service"
	"github.com/niosh12/ddeducation/pkg/response"
)

// PriceHandler 服务费 HTTP 处理器
type PriceHandler struct {
	priceSvc service.PriceService
}

// NewPriceHandler 创建 PriceHandler
func NewPriceHandler(priceSvc service.PriceService) *PriceHandler {
	return &PriceHandler{priceSvc: priceSvc}
}

// GetPrice 当前服务费
// GET /api/v1/price
func (h *PriceHandler) GetPrice(c *gin.Context) {
	result, err := h.priceSvc.Get(c.Request.Context())
	if err != nil {
		h.handlePriceError(c, err)
		return
	}

	response.OK(c, result)
}

// Stream 实时订阅服务费
// GET /api/v1/price/stream
func (h *PriceHandler) Stream(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ch, cancel, err := h.priceSvc.Watch(c.Request.Context(), userID)
	if err != nil {
		h.handlePriceError(c, err)
		return
	}

	serveStream(c, "price", ch, cancel)
}

// UpdatePrice 修改服务费
// PUT /api/v1/admin/price
func (h *PriceHandler) UpdatePrice(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.priceSvc.Update(c.Request.Context(), adminID, *req.Amount)
	if err != nil {
		h.handlePriceError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *PriceHandler) handlePriceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPrice):
		response.BadRequest(c, 15001, "服务费必须为正数")
	default:
		response.InternalError(c)
	}
}
