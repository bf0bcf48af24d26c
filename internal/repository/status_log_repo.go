package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/internal/model"
)

// StatusLogRepository 状态变更日志数据访问接口
type StatusLogRepository interface {
	Create(ctx context.Context, log *model.SubmissionStatusLog) error
	ListByUser(ctx context.Context, userID string) ([]model.SubmissionStatusLog, error)
}

type statusLogRepo struct {
	db *gorm.DB
}

// NewStatusLogRepo 创建 StatusLogRepository 实例
func NewStatusLogRepo(db *gorm.DB) StatusLogRepository {
	return &statusLogRepo{db: db}
}

func (r *statusLogRepo) Create(ctx context.Context, log *model.SubmissionStatusLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *statusLogRepo) ListByUser(ctx context.Context, userID string) ([]model.SubmissionStatusLog, error) {
	var logs []model.SubmissionStatusLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
