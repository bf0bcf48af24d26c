package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/niosh12/ddeducation/internal/model"
)

// RoleRepository 角色表数据访问接口
type RoleRepository interface {
	Get(ctx context.Context, userID string) (*model.RoleAssignment, error)
	Upsert(ctx context.Context, role *model.RoleAssignment) error
}

type roleRepo struct {
	db *gorm.DB
}

// NewRoleRepo 创建 RoleRepository 实例
func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) Get(ctx context.Context, userID string) (*model.RoleAssignment, error) {
	var role model.RoleAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) Upsert(ctx context.Context, role *model.RoleAssignment) error {
	role.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_by", "updated_at"}),
		}).
		Create(role).Error
}
