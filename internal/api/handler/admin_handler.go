package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/service"
	"github.com/niosh12/ddeducation/internal/workflow"
	"github.com/niosh12/ddeducation/pkg/response"
)

// AdminHandler 管理端 HTTP 处理器
type AdminHandler struct {
	adminSvc service.AdminService
}

// NewAdminHandler 创建 AdminHandler
func NewAdminHandler(adminSvc service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// ListSubmissions 提交列表
// GET /api/v1/admin/submissions?q=&status=
func (h *AdminHandler) ListSubmissions(c *gin.Context) {
	var query dto.AdminListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.adminSvc.List(c.Request.Context(), &query)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// Stream 实时订阅全部提交记录
// GET /api/v1/admin/submissions/stream
func (h *AdminHandler) Stream(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ch, cancel, err := h.adminSvc.Watch(c.Request.Context(), adminID)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	serveStream(c, "submissions", ch, cancel)
}

// GetSubmission 单条详情（含付款截图）
// GET /api/v1/admin/submissions/:id
func (h *AdminHandler) GetSubmission(c *gin.Context) {
	result, err := h.adminSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OK(c, result)
}

// Transition 常规流转
// POST /api/v1/admin/submissions/:id/transitions
func (h *AdminHandler) Transition(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.adminSvc.Transition(c.Request.Context(), adminID, c.Param("id"), &req)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OK(c, result)
}

// ForceSet 强制设置状态
// PUT /api/v1/admin/submissions/:id
func (h *AdminHandler) ForceSet(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ForceSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.adminSvc.ForceSet(c.Request.Context(), adminID, c.Param("id"), &req)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OK(c, result)
}

// History 状态变更记录
// GET /api/v1/admin/submissions/:id/history
func (h *AdminHandler) History(c *gin.Context) {
	logs, err := h.adminSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OKList(c, logs, len(logs))
}

// AssignRole 授予 / 撤销管理员
// PUT /api/v1/admin/roles/:id
func (h *AdminHandler) AssignRole(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.adminSvc.AssignRole(c.Request.Context(), adminID, c.Param("id"), req.Role)
	if err != nil {
		h.handleAdminError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *AdminHandler) handleAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrUnknownAction):
		response.BadRequest(c, 14001, "未知的流转动作")
	case errors.Is(err, workflow.ErrInvalidTransition):
		response.ErrorWithDetails(c, 409, 14002, "当前状态不允许该操作", err.Error())
	case errors.Is(err, workflow.ErrReplyRequired):
		response.BadRequest(c, 14003, "驳回时必须填写回复说明")
	case errors.Is(err, workflow.ErrProofLinkRequired):
		response.BadRequest(c, 14004, "完成上传时必须提供凭证链接")
	case errors.Is(err, workflow.ErrActorNotAllowed):
		response.Forbidden(c, 14006, "该动作只能由学生触发")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 11005, "用户不存在")
	default:
		handleSubmissionError(c, err)
	}
}
