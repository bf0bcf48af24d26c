package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/repository"
	"github.com/niosh12/ddeducation/internal/workflow"
	pkgerrors "github.com/niosh12/ddeducation/pkg/errors"
)

var ErrSubmissionNotFound = errors.New("提交记录不存在")

// Actor 写入方身份
type Actor struct {
	ID   string
	Role workflow.Actor
}

// EventPublisher 状态变更事件投递（Kafka）
type EventPublisher interface {
	PublishMessage(ctx context.Context, key, value []byte) error
}

// StatusChangedEvent 投递到消息队列的状态变更事件
type StatusChangedEvent struct {
	UserID         string          `json:"user_id"`
	Email          string          `json:"email"`
	FullName       string          `json:"full_name"`
	From           workflow.Status `json:"from"`
	To             workflow.Status `json:"to"`
	ActorID        string          `json:"actor_id"`
	ActorRole      string          `json:"actor_role"`
	Reason         string          `json:"reason,omitempty"`
	AdminReply     string          `json:"admin_reply,omitempty"`
	AdminProofLink string          `json:"admin_proof_link,omitempty"`
	At             time.Time       `json:"at"`
}

const lockStripes = 64

// SubmissionStore 提交记录的唯一写入路径
// 每次写入：部分更新 → 状态日志（同一事务）→ 回读 → 实时推送 → 消息队列
// 同一记录的写入在本实例内串行，推送顺序与写入顺序一致
type SubmissionStore struct {
	repo   *repository.Repository
	hub    *realtime.Hub
	events EventPublisher
	logger *zap.Logger
	locks  [lockStripes]sync.Mutex
}

// NewSubmissionStore 创建写入路径，events 可以为 nil
func NewSubmissionStore(repo *repository.Repository, hub *realtime.Hub, events EventPublisher, logger *zap.Logger) *SubmissionStore {
	return &SubmissionStore{repo: repo, hub: hub, events: events, logger: logger}
}

// Get 按学生 ID 读取
func (s *SubmissionStore) Get(ctx context.Context, userID string) (*model.Submission, error) {
	sub, err := s.repo.Submission.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("查询提交记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return sub, nil
}

// Update 部分更新一条提交记录
// fields 的 key 为列名；reason 写入状态日志；expectedVersion 非空时做乐观锁校验
func (s *SubmissionStore) Update(
	ctx context.Context,
	actor Actor,
	userID string,
	fields map[string]interface{},
	expectedVersion *int,
	reason string,
) (*model.Submission, error) {
	if err := checkFields(actor, fields); err != nil {
		return nil, err
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	before, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	to, statusSet := fields[model.ColStatus].(workflow.Status)
	changed := statusSet && to != before.Status

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Submission.UpdateFields(ctx, userID, fields, expectedVersion); err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return tx.StatusLog.Create(ctx, &model.SubmissionStatusLog{
			UserID:     userID,
			FromStatus: before.Status,
			ToStatus:   to,
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			Reason:     truncate(reason, 500),
		})
	})
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			return nil, pkgerrors.ErrOptimisticLock
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrSubmissionNotFound
		}
		s.logger.Error("更新提交记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	after, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, realtime.EventSubmissionUpdated, after)

	if changed {
		s.logger.Info("提交状态变更",
			zap.String("user_id", userID),
			zap.String("from", string(before.Status)),
			zap.String("to", string(to)),
			zap.String("actor_id", actor.ID),
			zap.String("actor_role", string(actor.Role)),
		)
		s.emitStatusChanged(ctx, actor, before.Status, after, reason)
	}

	return after, nil
}

// Apply 将一次流转写入存储
func (s *SubmissionStore) Apply(ctx context.Context, actor Actor, userID string, ch workflow.Change, extra map[string]interface{}, expectedVersion *int, reason string) (*model.Submission, error) {
	fields := make(map[string]interface{}, len(extra)+4)
	for k, v := range extra {
		fields[k] = v
	}
	fields[model.ColStatus] = ch.To
	if ch.Reply != nil {
		fields[model.ColAdminReply] = *ch.Reply
	}
	if ch.ProofLink != nil {
		fields[model.ColAdminProofLink] = *ch.ProofLink
	}
	if ch.PaymentRef != nil {
		fields[model.ColPaymentRef] = *ch.PaymentRef
	}
	return s.Update(ctx, actor, userID, fields, expectedVersion, reason)
}

// PublishCreated 注册后推送新记录给管理端
func (s *SubmissionStore) PublishCreated(ctx context.Context, sub *model.Submission) {
	s.publish(ctx, realtime.EventSubmissionCreated, sub)
}

func (s *SubmissionStore) publish(ctx context.Context, typ string, sub *model.Submission) {
	if s.hub == nil {
		return
	}
	for _, topic := range []string{realtime.SubmissionTopic(sub.UserID), realtime.TopicSubmissions} {
		ev, err := realtime.NewEvent(topic, typ, sub)
		if err != nil {
			s.logger.Error("构造实时事件失败", zap.Error(err))
			return
		}
		s.hub.Publish(ctx, ev)
	}
}

func (s *SubmissionStore) emitStatusChanged(ctx context.Context, actor Actor, from workflow.Status, sub *model.Submission, reason string) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(StatusChangedEvent{
		UserID:         sub.UserID,
		Email:          sub.Email,
		FullName:       sub.FullName,
		From:           from,
		To:             sub.Status,
		ActorID:        actor.ID,
		ActorRole:      string(actor.Role),
		Reason:         reason,
		AdminReply:     sub.AdminReply,
		AdminProofLink: sub.AdminProofLink,
		At:             sub.UpdatedAt,
	})
	if err != nil {
		s.logger.Error("序列化状态变更事件失败", zap.Error(err))
		return
	}
	// 投递失败不回滚已完成的写入
	if err := s.events.PublishMessage(ctx, []byte(sub.UserID), payload); err != nil {
		s.logger.Warn("投递状态变更事件失败", zap.String("user_id", sub.UserID), zap.Error(err))
	}
}

func (s *SubmissionStore) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%lockStripes]
}

// checkFields 写入前校验，任何一项不通过则整次写入拒绝
func checkFields(actor Actor, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: 没有需要更新的字段", ErrInvalidInput)
	}
	for col, v := range fields {
		if _, ok := model.ImmutableColumns[col]; ok {
			return fmt.Errorf("%w: %s", pkgerrors.ErrImmutableField, col)
		}
		if _, ok := model.AdminOwnedColumns[col]; ok && actor.Role != workflow.ActorAdmin {
			return fmt.Errorf("%w: %s", pkgerrors.ErrAdminFieldForbidden, col)
		}
		if col == model.ColStatus {
			st, ok := v.(workflow.Status)
			if !ok || !st.Valid() {
				return workflow.ErrUnknownStatus
			}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
