package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/workflow"
	pkgerrors "github.com/niosh12/ddeducation/pkg/errors"
)

// SubmissionFilter 管理端列表筛选条件
type SubmissionFilter struct {
	Query  string          // 姓名 / 报名号 / 邮箱模糊匹配
	Status workflow.Status // 为空表示全部
}

// SubmissionRepository 提交记录数据访问接口
type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetByUserID(ctx context.Context, userID string) (*model.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error)
	// UpdateFields 按列部分更新，同时递增 version 并刷新 updated_at
	// expectedVersion 非空时附加乐观锁校验
	UpdateFields(ctx context.Context, userID string, fields map[string]interface{}, expectedVersion *int) error
}

type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *submissionRepo) GetByUserID(ctx context.Context, userID string) (*model.Submission, error) {
	var sub model.Submission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// List 按创建时间倒序，列表不返回付款截图
func (r *submissionRepo) List(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	db := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Omit(model.ColPaymentImage)

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		db = db.Where(
			"LOWER(full_name) LIKE ? OR LOWER(enrollment_number) LIKE ? OR LOWER(email) LIKE ?",
			like, like, like,
		)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	var subs []model.Submission
	err := db.Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *submissionRepo) UpdateFields(ctx context.Context, userID string, fields map[string]interface{}, expectedVersion *int) error {
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	db := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("user_id = ?", userID)
	if expectedVersion != nil {
		db = db.Where("version = ?", *expectedVersion)
	}

	result := db.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if expectedVersion == nil {
		return gorm.ErrRecordNotFound
	}
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Submission{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return pkgerrors.ErrOptimisticLock
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
