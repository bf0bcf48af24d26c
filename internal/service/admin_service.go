package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/internal/dto"
	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/repository"
	"github.com/niosh12/ddeducation/internal/workflow"
	pkgerrors "github.com/niosh12/ddeducation/pkg/errors"
)

// AdminService 管理端业务接口
type AdminService interface {
	List(ctx context.Context, query *dto.AdminListQuery) ([]dto.AdminSubmissionResponse, error)
	Get(ctx context.Context, userID string) (*dto.AdminSubmissionResponse, error)
	// Transition 常规流转，受流转表约束
	Transition(ctx context.Context, adminID, userID string, req *dto.TransitionRequest) (*dto.AdminSubmissionResponse, error)
	// ForceSet 直接设置任意状态，可同时写回复与凭证链接
	ForceSet(ctx context.Context, adminID, userID string, req *dto.ForceSetRequest) (*dto.AdminSubmissionResponse, error)
	History(ctx context.Context, userID string) ([]dto.StatusLogResponse, error)
	// Watch 订阅全部提交记录，首个元素为按创建时间倒序的快照
	Watch(ctx context.Context, adminID string) (<-chan AdminStreamMessage, func(), error)
	AssignRole(ctx context.Context, adminID, userID, role string) (*dto.RoleResponse, error)
}

// AdminStreamMessage 管理端实时推送：首条为快照，之后为单条变更
type AdminStreamMessage struct {
	Type     string                        `json:"type"`
	Snapshot []dto.AdminSubmissionResponse `json:"snapshot,omitempty"`
	Item     *dto.AdminSubmissionResponse  `json:"item,omitempty"`
}

type adminService struct {
	repo   *repository.Repository
	store  *SubmissionStore
	hub    *realtime.Hub
	logger *zap.Logger
}

// NewAdminService 创建 AdminService 实例
func NewAdminService(repo *repository.Repository, store *SubmissionStore, hub *realtime.Hub, logger *zap.Logger) AdminService {
	return &adminService{repo: repo, store: store, hub: hub, logger: logger}
}

func (s *adminService) List(ctx context.Context, query *dto.AdminListQuery) ([]dto.AdminSubmissionResponse, error) {
	filter := repository.SubmissionFilter{Query: query.Q}
	if query.Status != "" {
		st, err := workflow.ParseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}

	subs, err := s.repo.Submission.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询提交列表失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.AdminSubmissionResponse, 0, len(subs))
	for i := range subs {
		list = append(list, dto.NewAdminSubmission(&subs[i]))
	}
	return list, nil
}

func (s *adminService) Get(ctx context.Context, userID string) (*dto.AdminSubmissionResponse, error) {
	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewAdminSubmission(sub)
	return &resp, nil
}

func (s *adminService) Transition(ctx context.Context, adminID, userID string, req *dto.TransitionRequest) (*dto.AdminSubmissionResponse, error) {
	action, err := workflow.ParseAction(req.Action)
	if err != nil {
		return nil, err
	}

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != sub.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	ch, err := workflow.Transition(sub.Status, action, workflow.ActorAdmin, workflow.Input{
		Reply:     req.Reply,
		ProofLink: req.ProofLink,
	})
	if err != nil {
		return nil, err
	}

	// 以读取时的版本写入，读取与写入之间被他人修改则冲突
	version := sub.Version
	updated, err := s.store.Apply(ctx, adminActor(adminID), userID, ch, nil, &version, strings.TrimSpace(string(action)+" "+req.Reply))
	if err != nil {
		return nil, err
	}
	resp := dto.NewAdminSubmission(updated)
	return &resp, nil
}

func (s *adminService) ForceSet(ctx context.Context, adminID, userID string, req *dto.ForceSetRequest) (*dto.AdminSubmissionResponse, error) {
	to, err := workflow.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	sub, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	reply := trimPtr(req.AdminReply)
	link := trimPtr(req.AdminProofLink)
	ch, err := workflow.ForceSet(sub.Status, to, reply, link)
	if err != nil {
		return nil, err
	}

	reason := "force_set"
	if reply != nil && *reply != "" {
		reason += " " + *reply
	}
	updated, err := s.store.Apply(ctx, adminActor(adminID), userID, ch, nil, req.Version, reason)
	if err != nil {
		return nil, err
	}
	resp := dto.NewAdminSubmission(updated)
	return &resp, nil
}

func (s *adminService) History(ctx context.Context, userID string) ([]dto.StatusLogResponse, error) {
	if _, err := s.store.Get(ctx, userID); err != nil {
		return nil, err
	}
	logs, err := s.repo.StatusLog.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("查询状态日志失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	out := make([]dto.StatusLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.StatusLogResponse{
			FromStatus: string(l.FromStatus),
			ToStatus:   string(l.ToStatus),
			ActorID:    l.ActorID,
			ActorRole:  l.ActorRole,
			Reason:     l.Reason,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

func (s *adminService) Watch(ctx context.Context, adminID string) (<-chan AdminStreamMessage, func(), error) {
	events, unsubscribe := s.hub.Subscribe(realtime.TopicSubmissions, adminID)
	ctx, cancel := watchScope(ctx, unsubscribe)

	subs, err := s.repo.Submission.List(ctx, repository.SubmissionFilter{})
	if err != nil {
		cancel()
		s.logger.Error("查询提交列表失败", zap.Error(err))
		return nil, nil, err
	}

	known := make(map[string]int, len(subs))
	snapshot := make([]dto.AdminSubmissionResponse, 0, len(subs))
	for i := range subs {
		known[subs[i].UserID] = subs[i].Version
		snapshot = append(snapshot, dto.NewAdminSubmission(&subs[i]))
	}

	out := make(chan AdminStreamMessage, 1)
	out <- AdminStreamMessage{Type: realtime.EventSnapshot, Snapshot: snapshot}

	go func() {
		defer close(out)
		for rec := range decodeSubmissions(ctx, events, known, s.logger) {
			rec.PaymentImage = "" // 与列表一致，截图需单独查看详情
			item := dto.NewAdminSubmission(rec)
			select {
			case out <- AdminStreamMessage{Type: realtime.EventSubmissionUpdated, Item: &item}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}

func (s *adminService) AssignRole(ctx context.Context, adminID, userID, role string) (*dto.RoleResponse, error) {
	if role != model.RoleAdmin && role != model.RoleStudent {
		return nil, ErrInvalidInput
	}
	if _, err := s.repo.User.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	ra := &model.RoleAssignment{UserID: userID, Role: role, UpdatedBy: &adminID}
	if err := s.repo.Role.Upsert(ctx, ra); err != nil {
		s.logger.Error("更新角色失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("角色已更新", zap.String("user_id", userID), zap.String("role", role), zap.String("admin_id", adminID))
	return &dto.RoleResponse{UserID: userID, Role: role, UpdatedAt: ra.UpdatedAt.Format(time.RFC3339)}, nil
}

func adminActor(adminID string) Actor {
	return Actor{ID: adminID, Role: workflow.ActorAdmin}
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
