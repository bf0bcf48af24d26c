package dto

import (
	"time"

	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/workflow"
)

// ── 学生端请求 ──

// UpdateProfileRequest 编辑资料（仅 Pending / Rejected 可用）
type UpdateProfileRequest struct {
	FullName         *string `json:"full_name"         binding:"omitempty,min=2,max=100"`
	EnrollmentNumber *string `json:"enrollment_number" binding:"omitempty,max=50"`
}

// CheckoutRequest 提交资料并发起支付
type CheckoutRequest struct {
	EnrollmentNumber string   `json:"enrollment_number" binding:"required,max=50"`
	DOB              string   `json:"dob"               binding:"required"`
	Session          string   `json:"session"           binding:"required"`
	Subjects         []string `json:"subjects"          binding:"required,min=1,dive,required"`
	PaymentImage     string   `json:"payment_image"` // data URL，可选
	Comments         string   `json:"comments"          binding:"max=1000"`
	Declaration      bool     `json:"declaration"`
}

// ConfirmPaymentRequest 支付组件回调参数
type ConfirmPaymentRequest struct {
	OrderID   string `json:"order_id"   binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature"  binding:"required"`
}

// ── 管理端请求 ──

// AdminListQuery 管理端列表筛选
type AdminListQuery struct {
	Q      string `form:"q"      binding:"max=100"`
	Status string `form:"status"`
}

// TransitionRequest 常规流转
type TransitionRequest struct {
	Action    string `json:"action"     binding:"required"`
	Reply     string `json:"reply"      binding:"max=2000"`
	ProofLink string `json:"proof_link" binding:"omitempty,url,max=500"`
	Version   *int   `json:"version"`
}

// ForceSetRequest 强制设置状态
type ForceSetRequest struct {
	Status         string  `json:"status"           binding:"required"`
	AdminReply     *string `json:"admin_reply"      binding:"omitempty,max=2000"`
	AdminProofLink *string `json:"admin_proof_link" binding:"omitempty,max=500"`
	Version        *int    `json:"version"`
}

// ── 响应 ──

// SubmissionResponse 提交记录
type SubmissionResponse struct {
	UserID           string   `json:"user_id"`
	Class            string   `json:"class"`
	FullName         string   `json:"full_name"`
	Email            string   `json:"email"`
	EnrollmentNumber string   `json:"enrollment_number"`
	DOB              string   `json:"dob"`
	Session          string   `json:"session"`
	Subjects         []string `json:"subjects"`
	PaymentRef       string   `json:"payment_ref"`
	PaymentImage     string   `json:"payment_image,omitempty"`
	Comments         string   `json:"comments"`
	Status           string   `json:"status"`
	AdminReply       string   `json:"admin_reply"`
	AdminProofLink   string   `json:"admin_proof_link"`
	Version          int      `json:"version"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

// StudentDashboardResponse 学生端首页
type StudentDashboardResponse struct {
	Submission SubmissionResponse   `json:"submission"`
	View       workflow.StudentView `json:"view"`
}

// AdminSubmissionResponse 管理端单条记录
type AdminSubmissionResponse struct {
	Submission SubmissionResponse `json:"submission"`
	View       workflow.AdminView `json:"view"`
}

// CheckoutResponse 支付组件所需参数
type CheckoutResponse struct {
	OrderID  string  `json:"order_id"`
	Amount   int64   `json:"amount"` // 最小货币单位
	Currency string  `json:"currency"`
	KeyID    string  `json:"key_id"`
	Prefill  Prefill `json:"prefill"`
}

// Prefill 支付组件预填信息
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StatusLogResponse 状态变更记录
type StatusLogResponse struct {
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	ActorID    string `json:"actor_id"`
	ActorRole  string `json:"actor_role"`
	Reason     string `json:"reason"`
	CreatedAt  string `json:"created_at"`
}

// NewSubmissionResponse 模型转响应
func NewSubmissionResponse(s *model.Submission) SubmissionResponse {
	subjects := []string(s.Subjects)
	if subjects == nil {
		subjects = []string{}
	}
	return SubmissionResponse{
		UserID:           s.UserID,
		Class:            s.Class,
		FullName:         s.FullName,
		Email:            s.Email,
		EnrollmentNumber: s.EnrollmentNumber,
		DOB:              s.DOB,
		Session:          s.Session,
		Subjects:         subjects,
		PaymentRef:       s.PaymentRef,
		PaymentImage:     s.PaymentImage,
		Comments:         s.Comments,
		Status:           string(s.Status),
		AdminReply:       s.AdminReply,
		AdminProofLink:   s.AdminProofLink,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        s.UpdatedAt.Format(time.RFC3339),
	}
}

// NewStudentDashboard 学生端投影
func NewStudentDashboard(s *model.Submission) StudentDashboardResponse {
	return StudentDashboardResponse{
		Submission: NewSubmissionResponse(s),
		View:       workflow.ProjectStudent(s.Status, s.AdminReply, s.AdminProofLink),
	}
}

// NewAdminSubmission 管理端投影
func NewAdminSubmission(s *model.Submission) AdminSubmissionResponse {
	return AdminSubmissionResponse{
		Submission: NewSubmissionResponse(s),
		View:       workflow.ProjectAdmin(s.Status),
	}
}
