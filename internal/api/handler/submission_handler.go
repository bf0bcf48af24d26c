package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/niosh12/ddeducation/internal/catalog"
	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/service"
	"github.com/niosh12/ddeducation/internal/workflow"
	pkgerrors "github.com/niosh12/ddeducation/pkg/errors"
	"github.com/niosh12/ddeducation/pkg/response"
)

// SubmissionHandler 学生端提交 HTTP 处理器
type SubmissionHandler struct {
	submissionSvc service.SubmissionService
}

// NewSubmissionHandler 创建 SubmissionHandler
func NewSubmissionHandler(submissionSvc service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc}
}

// GetMine 本人提交记录与学生端视图
// GET /api/v1/submissions/me
func (h *SubmissionHandler) GetMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.submissionSvc.GetMine(c.Request.Context(), userID)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result)
}

// Stream 实时订阅本人提交记录
// GET /api/v1/submissions/me/stream
func (h *SubmissionHandler) Stream(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ch, cancel, err := h.submissionSvc.Watch(c.Request.Context(), userID)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	serveStream(c, "submission", ch, cancel)
}

// UpdateProfile 编辑资料
// PUT /api/v1/submissions/me/profile
func (h *SubmissionHandler) UpdateProfile(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.submissionSvc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result)
}

// Checkout 保存资料并创建支付订单
// POST /api/v1/submissions/me/checkout
func (h *SubmissionHandler) Checkout(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.submissionSvc.Checkout(c.Request.Context(), userID, &req)
	if err != nil {
		handleSubmissionError(c, err)
		return
	}

	response.OK(c, result)
}

// handleSubmissionError 提交记录相关错误统一映射，学生端与管理端共用
func handleSubmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.NotFound(c, 12001, "提交记录不存在")
	case errors.Is(err, workflow.ErrCycleClosed):
		response.Conflict(c, 12002, "当前提交正在处理中，暂不可修改")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12003, "记录已被他人修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrImmutableField):
		response.Forbidden(c, 12004, "该字段创建后不可修改")
	case errors.Is(err, pkgerrors.ErrAdminFieldForbidden):
		response.Forbidden(c, 12005, "该字段仅管理员可修改")
	case errors.Is(err, service.ErrInvalidInput):
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
	case errors.Is(err, service.ErrDeclarationRequired):
		response.BadRequest(c, 12006, "请先勾选声明后再提交")
	case errors.Is(err, catalog.ErrNoSubjects),
		errors.Is(err, catalog.ErrUnknownSubject),
		errors.Is(err, catalog.ErrDupSubject),
		errors.Is(err, catalog.ErrUnknownClass):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12007, "科目选择无效", err.Error())
	case errors.Is(err, service.ErrInvalidSession):
		response.BadRequest(c, 12008, "考试场次无效")
	case errors.Is(err, service.ErrInvalidDOB):
		response.BadRequest(c, 12009, "出生日期格式应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrImageInvalid):
		response.BadRequest(c, 12010, "请上传有效的图片文件（PNG、JPG 等）")
	case errors.Is(err, service.ErrImageTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, 12011, "图片过大，请上传小于 2MB 的图片")
	case errors.Is(err, service.ErrPaymentUnavailable):
		response.BadGateway(c, 12012, "支付暂不可用，未产生任何扣款，资料已保存，可稍后重试")
	case errors.Is(err, workflow.ErrUnknownStatus):
		response.BadRequest(c, 14005, "未知的状态")
	default:
		response.InternalError(c)
	}
}
