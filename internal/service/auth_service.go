package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/repository"
	"github.com/niosh12/ddeducation/internal/workflow"
	"github.com/niosh12/ddeducation/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailTaken         = errors.New("该邮箱已注册")
	ErrAccessDenied       = errors.New("该账号没有管理员权限")
	ErrTokenRevoked       = errors.New("Token 已失效")
)

// TokenBlacklist Token 黑名单
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// SessionCloser 登出时关闭该身份的实时订阅
type SessionCloser interface {
	CloseOwner(owner string) int
}

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// AdminLogin 非管理员账号返回 ErrAccessDenied，且不签发任何 Token
	AdminLogin(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error
	Me(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	resolver  RoleResolver
	blacklist TokenBlacklist
	sessions  SessionCloser
	store     *SubmissionStore
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	resolver RoleResolver,
	blacklist TokenBlacklist,
	sessions SessionCloser,
	store *SubmissionStore,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		jwtMgr:    jwtMgr,
		resolver:  resolver,
		blacklist: blacklist,
		sessions:  sessions,
		store:     store,
		logger:    logger,
	}
}

// Register 创建账号、Pending 状态的提交记录与 student 角色（同一事务）
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
	}
	var sub *model.Submission

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.User.Create(ctx, user); err != nil {
			return err
		}
		sub = &model.Submission{
			UserID:   user.UserID,
			Class:    req.Class,
			FullName: user.FullName,
			Email:    user.Email,
			Subjects: model.StringArray{},
			Status:   workflow.StatusPending,
			Version:  1,
		}
		if err := tx.Submission.Create(ctx, sub); err != nil {
			return err
		}
		return tx.Role.Upsert(ctx, &model.RoleAssignment{UserID: user.UserID, Role: model.RoleStudent})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("注册失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("学生注册成功", zap.String("user_id", user.UserID), zap.String("class", req.Class))
	s.store.PublishCreated(ctx, sub)

	return s.issue(user, s.resolver.IsAdmin(ctx, user.UserID, user.Email))
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.issue(user, s.resolver.IsAdmin(ctx, user.UserID, user.Email))
}

func (s *authService) AdminLogin(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !s.resolver.IsAdmin(ctx, user.UserID, user.Email) {
		s.logger.Warn("非管理员尝试登录管理端", zap.String("user_id", user.UserID))
		return nil, ErrAccessDenied
	}
	return s.issue(user, true)
}

// Refresh 轮换 Token 对，旧 Refresh Token 立即作废
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrTokenRevoked
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 无黑名单时旧 Refresh Token 在过期前仍可用
	if s.blacklist != nil {
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Error("作废旧 Refresh Token 失败", zap.Error(err))
			return nil, err
		}
	}

	return s.issue(user, s.resolver.IsAdmin(ctx, user.UserID, user.Email))
}

// Logout 作废 Token 并关闭该身份的全部实时订阅
func (s *authService) Logout(ctx context.Context, access *jwt.Claims, refreshToken string) error {
	// 实时订阅先行关闭，黑名单写入失败也不保留
	if s.sessions != nil {
		n := s.sessions.CloseOwner(access.UserID)
		s.logger.Info("用户登出", zap.String("user_id", access.UserID), zap.Int("closed_streams", n))
	}

	if s.blacklist == nil {
		s.logger.Warn("Token 黑名单不可用，登出仅关闭实时订阅", zap.String("user_id", access.UserID))
		return nil
	}

	if err := s.blacklist.BlacklistToken(ctx, access.ID, time.Until(access.ExpiresAt.Time)); err != nil {
		s.logger.Error("Access Token 加入黑名单失败", zap.Error(err))
		return err
	}

	if refreshToken != "" {
		if rc, err := s.jwtMgr.ParseToken(refreshToken); err == nil && rc.UserID == access.UserID {
			if err := s.blacklist.BlacklistToken(ctx, rc.ID, time.Until(rc.ExpiresAt.Time)); err != nil {
				s.logger.Warn("Refresh Token 加入黑名单失败", zap.Error(err))
			}
		}
	}
	return nil
}

func (s *authService) Me(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user, s.resolver.IsAdmin(ctx, user.UserID, user.Email))
	resp.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	return &resp, nil
}

func (s *authService) authenticate(ctx context.Context, req *dto.LoginRequest) (*model.User, error) {
	user, err := s.repo.User.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) issue(user *model.User, isAdmin bool) (*dto.TokenResponse, error) {
	role := model.RoleStudent
	if isAdmin {
		role = model.RoleAdmin
	}

	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Email, role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Email, role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user, isAdmin),
	}, nil
}

func toUserResponse(user *model.User, isAdmin bool) dto.UserResponse {
	return dto.UserResponse{
		ID:       user.UserID,
		Email:    user.Email,
		FullName: user.FullName,
		IsAdmin:  isAdmin,
	}
}
