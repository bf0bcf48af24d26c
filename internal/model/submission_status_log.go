package model

import (
	"time"

	"github.com/niosh12/ddeducation/internal/workflow"
)

// SubmissionStatusLog 状态变更日志，对应 submission_status_logs，只追加
type SubmissionStatusLog struct {
	LogID      string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	UserID     string          `gorm:"type:uuid;not null;index"                       json:"user_id"`
	FromStatus workflow.Status `gorm:"type:varchar(20);not null"                      json:"from_status"`
	ToStatus   workflow.Status `gorm:"type:varchar(20);not null"                      json:"to_status"`
	ActorID    string          `gorm:"type:varchar(64);not null"                      json:"actor_id"`
	ActorRole  string          `gorm:"type:varchar(20);not null"                      json:"actor_role"`
	Reason     string          `gorm:"type:varchar(500);not null;default:''"          json:"reason"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (SubmissionStatusLog) TableName() string { return "submission_status_logs" }
