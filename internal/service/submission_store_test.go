package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/internal/model"
	"github.com/niosh12/ddeducation/internal/realtime"
	"github.com/niosh12/ddeducation/internal/workflow"
	pkgerrors "github.com/niosh12/ddeducation/pkg/errors"
)

func TestSubmissionStore_RejectsGuardedFields(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		fields  map[string]interface{}
		wantErr error
	}{
		{"空更新", studentActor("u"), map[string]interface{}{}, ErrInvalidInput},
		{"修改学段", adminActor("a"), map[string]interface{}{model.ColClass: "10th"}, pkgerrors.ErrImmutableField},
		{"修改创建时间", adminActor("a"), map[string]interface{}{model.ColCreatedAt: "2020-01-01"}, pkgerrors.ErrImmutableField},
		{"学生写回复", studentActor("u"), map[string]interface{}{model.ColAdminReply: "ok"}, pkgerrors.ErrAdminFieldForbidden},
		{"学生写凭证链接", studentActor("u"), map[string]interface{}{model.ColAdminProofLink: "https://x"}, pkgerrors.ErrAdminFieldForbidden},
		{"未知状态", adminActor("a"), map[string]interface{}{model.ColStatus: workflow.Status("Done")}, workflow.ErrUnknownStatus},
		{"状态类型错误", adminActor("a"), map[string]interface{}{model.ColStatus: "Paid"}, workflow.ErrUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			uid := registerStudent(t, env, "asha@example.com", "12th")
			store := NewSubmissionStore(env.repo, env.hub, nil, zap.NewNop())

			// 与合法字段混合时整体拒绝
			fields := map[string]interface{}{model.ColComments: "x"}
			for k, v := range tt.fields {
				fields[k] = v
			}
			if len(tt.fields) == 0 {
				fields = tt.fields
			}

			_, err := store.Update(context.Background(), tt.actor, uid, fields, nil, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
			sub := env.subs.subs[uid]
			if sub.Version != 1 || sub.Comments != "" {
				t.Errorf("拒绝时不应写入任何字段: %+v", sub)
			}
		})
	}
}

func TestSubmissionStore_UpdateMissing(t *testing.T) {
	env := newTestEnv()
	store := NewSubmissionStore(env.repo, env.hub, nil, zap.NewNop())

	_, err := store.Update(context.Background(), adminActor("a"), "missing", map[string]interface{}{model.ColComments: "x"}, nil, "")
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("期望 ErrSubmissionNotFound，实际: %v", err)
	}
}

func TestSubmissionStore_PartialMerge(t *testing.T) {
	env := newTestEnv()
	uid := registerStudent(t, env, "asha@example.com", "12th")
	env.subs.subs[uid].Session = "April 2026"
	store := NewSubmissionStore(env.repo, env.hub, nil, zap.NewNop())

	after, err := store.Update(context.Background(), studentActor(uid), uid, map[string]interface{}{model.ColComments: "hello"}, nil, "")
	if err != nil {
		t.Fatalf("期望成功，实际: %v", err)
	}
	if after.Session != "April 2026" || after.FullName != "Asha Verma" || after.Comments != "hello" {
		t.Errorf("未写入的字段应保持不变: %+v", after)
	}
	if after.Version != 2 {
		t.Errorf("期望 version=2，实际 %d", after.Version)
	}
}

func TestSubmissionStore_StaleVersion(t *testing.T) {
	env := newTestEnv()
	uid := registerStudent(t, env, "asha@example.com", "12th")
	store := NewSubmissionStore(env.repo, env.hub, nil, zap.NewNop())
	v := 1

	if _, err := store.Update(context.Background(), studentActor(uid), uid, map[string]interface{}{model.ColComments: "a"}, &v, ""); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}
	_, err := store.Update(context.Background(), studentActor(uid), uid, map[string]interface{}{model.ColComments: "b"}, &v, "")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
	if env.subs.subs[uid].Comments != "a" {
		t.Error("冲突时不应覆盖")
	}
}

func TestSubmissionStore_EventsInWriteOrder(t *testing.T) {
	env := newTestEnv()
	uid := registerStudent(t, env, "asha@example.com", "12th")
	store := NewSubmissionStore(env.repo, env.hub, nil, zap.NewNop())

	events, cancel := env.hub.Subscribe(realtime.SubmissionTopic(uid), uid)
	defer cancel()

	for i := 0; i < 10; i++ {
		if _, err := store.Update(context.Background(), studentActor(uid), uid, map[string]interface{}{model.ColComments: "c"}, nil, ""); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	last := 1
	for i := 0; i < 10; i++ {
		ev := <-events
		var rec model.Submission
		if err := json.Unmarshal(ev.Data, &rec); err != nil {
			t.Fatalf("解析事件失败: %v", err)
		}
		if rec.Version != last+1 {
			t.Errorf("期望 version=%d，实际 %d", last+1, rec.Version)
		}
		last = rec.Version
	}
}

func TestSubmissionStore_StatusChangedEvent(t *testing.T) {
	env := newTestEnv()
	uid := registerStudent(t, env, "asha@example.com", "12th")
	events := &mockEvents{}
	store := NewSubmissionStore(env.repo, env.hub, events, zap.NewNop())

	ch, _ := workflow.ForceSet(workflow.StatusPending, workflow.StatusRejected, ptr("Blurry"), nil)
	if _, err := store.Apply(context.Background(), adminActor("admin-1"), uid, ch, nil, nil, "force_set Blurry"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if events.count() != 1 {
		t.Fatalf("期望 1 条事件，实际 %d", events.count())
	}

	var got StatusChangedEvent
	if err := json.Unmarshal(events.msgs[0], &got); err != nil {
		t.Fatalf("解析事件失败: %v", err)
	}
	if got.From != workflow.StatusPending || got.To != workflow.StatusRejected || got.AdminReply != "Blurry" || got.ActorRole != "admin" {
		t.Errorf("事件内容不符: %+v", got)
	}

	log := env.logs.logs[0]
	if log.FromStatus != workflow.StatusPending || log.ToStatus != workflow.StatusRejected || log.ActorID != "admin-1" {
		t.Errorf("状态日志不符: %+v", log)
	}

	// 非状态字段不投递
	if _, err := store.Update(context.Background(), studentActor(uid), uid, map[string]interface{}{model.ColComments: "x"}, nil, ""); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if events.count() != 1 {
		t.Error("状态未变化时不应投递")
	}
}

func TestSubmissionStore_EventFailureKeepsWrite(t *testing.T) {
	env := newTestEnv()
	uid := registerStudent(t, env, "asha@example.com", "12th")
	store := NewSubmissionStore(env.repo, env.hub, &mockEvents{err: errMockDB}, zap.NewNop())

	ch, _ := workflow.ForceSet(workflow.StatusPending, workflow.StatusProcessing, nil, nil)
	if _, err := store.Apply(context.Background(), adminActor("a"), uid, ch, nil, nil, ""); err != nil {
		t.Fatalf("投递失败不应影响写入: %v", err)
	}
	if env.subs.subs[uid].Status != workflow.StatusProcessing {
		t.Error("写入应已生效")
	}
}
