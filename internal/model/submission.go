package model

import "github.com/niosh12/ddeducation/internal/workflow"

// Submission TMA 提交记录，对应 submissions，每个学生一条
type Submission struct {
	UserID           string          `gorm:"type:uuid;primaryKey"                        json:"user_id"`
	Class            string          `gorm:"type:varchar(8);not null;<-:create"          json:"class"`
	FullName         string          `gorm:"type:varchar(100);not null"                  json:"full_name"`
	Email            string          `gorm:"type:varchar(255);not null"                  json:"email"`
	EnrollmentNumber string          `gorm:"type:varchar(50);not null;default:''"        json:"enrollment_number"`
	DOB              string          `gorm:"column:dob;type:varchar(10);not null"        json:"dob"`
	Session          string          `gorm:"type:varchar(50);not null;default:''"        json:"session"`
	Subjects         StringArray     `gorm:"type:text[];not null;default:'{}'"           json:"subjects"`
	PaymentRef       string          `gorm:"type:varchar(100);not null;default:''"       json:"payment_ref"`
	PaymentImage     string          `gorm:"type:text;not null;default:''"               json:"payment_image,omitempty"`
	Comments         string          `gorm:"type:text;not null;default:''"               json:"comments"`
	Status           workflow.Status `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	AdminReply       string          `gorm:"type:text;not null;default:''"               json:"admin_reply"`
	AdminProofLink   string          `gorm:"type:varchar(500);not null;default:''"       json:"admin_proof_link"`
	PaymentOrderID   string          `gorm:"type:varchar(100);not null;default:''"       json:"payment_order_id,omitempty"`
	PaymentSignature string          `gorm:"type:varchar(200);not null;default:''"       json:"-"`
	Version          int             `gorm:"not null;default:1"                          json:"version"`
	BaseModel
}

// TableName 指定表名
func (Submission) TableName() string { return "submissions" }

// 可部分更新的列名
const (
	ColFullName         = "full_name"
	ColEnrollmentNumber = "enrollment_number"
	ColDOB              = "dob"
	ColSession          = "session"
	ColSubjects         = "subjects"
	ColPaymentRef       = "payment_ref"
	ColPaymentImage     = "payment_image"
	ColComments         = "comments"
	ColStatus           = "status"
	ColAdminReply       = "admin_reply"
	ColAdminProofLink   = "admin_proof_link"
	ColPaymentOrderID   = "payment_order_id"
	ColPaymentSignature = "payment_signature"

	// 不可经由更新路径写入
	ColClass     = "class"
	ColCreatedAt = "created_at"
	ColUserID    = "user_id"
)

// AdminOwnedColumns 仅管理员身份可写的列
var AdminOwnedColumns = map[string]struct{}{
	ColAdminReply:     {},
	ColAdminProofLink: {},
}

// ImmutableColumns 创建后不可修改的列
var ImmutableColumns = map[string]struct{}{
	ColClass:     {},
	ColCreatedAt: {},
	ColUserID:    {},
}
