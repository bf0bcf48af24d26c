package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/config"
	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/repository"
)

// RoleResolver 判断身份是否具备管理员能力
type RoleResolver interface {
	IsAdmin(ctx context.Context, userID, email string) bool
}

type roleResolver struct {
	auth   *config.AuthConfig
	roles  repository.RoleRepository
	logger *zap.Logger
}

// NewRoleResolver 创建角色解析器
func NewRoleResolver(auth *config.AuthConfig, roles repository.RoleRepository, logger *zap.Logger) RoleResolver {
	return &roleResolver{auth: auth, roles: roles, logger: logger}
}

// IsAdmin 引导管理员邮箱直接放行；否则查角色表
// 查询出错一律按非管理员处理
func (r *roleResolver) IsAdmin(ctx context.Context, userID, email string) bool {
	if r.auth.IsBootstrapAdmin(email) {
		return true
	}
	if userID == "" {
		return false
	}

	role, err := r.roles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn("查询角色失败，按非管理员处理", zap.String("user_id", userID), zap.Error(err))
		}
		return false
	}
	return role.Role == model.RoleAdmin
}
