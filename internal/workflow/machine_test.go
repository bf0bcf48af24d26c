package workflow

import (
	"errors"
	"testing"
)

// ── 状态枚举 ──

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}

	for _, bad := range []string{"", "pending", "Done", "PAID"} {
		if _, err := ParseStatus(bad); !errors.Is(err, ErrUnknownStatus) {
			t.Errorf("ParseStatus(%q) 期望 ErrUnknownStatus，实际: %v", bad, err)
		}
	}
}

func TestStatus_ScanValue(t *testing.T) {
	var s Status
	if err := s.Scan([]byte("Verified")); err != nil || s != StatusVerified {
		t.Fatalf("Scan 失败: %v, %q", err, s)
	}
	if err := s.Scan("Archived"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("Scan 非法值期望 ErrUnknownStatus，实际: %v", err)
	}
	if _, err := Status("Archived").Value(); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("Value 非法值期望 ErrUnknownStatus，实际: %v", err)
	}
}

func TestCanOpenCycle(t *testing.T) {
	open := map[Status]bool{
		StatusPending:    true,
		StatusRejected:   true,
		StatusPaid:       false,
		StatusProcessing: false,
		StatusVerified:   false,
		StatusUploaded:   false,
	}
	for s, want := range open {
		if got := CanOpenCycle(s); got != want {
			t.Errorf("CanOpenCycle(%s) = %v，期望 %v", s, got, want)
		}
	}
}

// ── 常规流转 ──

func TestTransition_HappyPath(t *testing.T) {
	ch, err := Transition(StatusPending, ActionConfirmPayment, ActorStudent, Input{PaymentRef: "pay_123"})
	if err != nil {
		t.Fatalf("confirm_payment 应成功: %v", err)
	}
	if ch.To != StatusPaid || ch.PaymentRef == nil || *ch.PaymentRef != "pay_123" {
		t.Fatalf("confirm_payment 结果不正确: %+v", ch)
	}

	steps := []struct {
		from   Status
		action Action
		in     Input
		to     Status
	}{
		{StatusPaid, ActionReview, Input{}, StatusProcessing},
		{StatusProcessing, ActionVerify, Input{}, StatusVerified},
		{StatusVerified, ActionComplete, Input{ProofLink: "https://nios.ac.in/proof/1"}, StatusUploaded},
	}
	for _, st := range steps {
		ch, err := Transition(st.from, st.action, ActorAdmin, st.in)
		if err != nil {
			t.Fatalf("%s 应成功: %v", st.action, err)
		}
		if ch.From != st.from || ch.To != st.to {
			t.Errorf("%s: 期望 %s→%s，实际 %s→%s", st.action, st.from, st.to, ch.From, ch.To)
		}
	}
}

func TestTransition_Reject(t *testing.T) {
	for _, from := range []Status{StatusPaid, StatusProcessing, StatusVerified} {
		ch, err := Transition(from, ActionReject, ActorAdmin, Input{Reply: "Invalid screenshot"})
		if err != nil {
			t.Fatalf("从 %s 驳回应成功: %v", from, err)
		}
		if ch.To != StatusRejected || ch.Reply == nil || *ch.Reply != "Invalid screenshot" {
			t.Errorf("驳回结果不正确: %+v", ch)
		}
	}

	if _, err := Transition(StatusPaid, ActionReject, ActorAdmin, Input{Reply: "   "}); !errors.Is(err, ErrReplyRequired) {
		t.Errorf("空回复期望 ErrReplyRequired，实际: %v", err)
	}
	if _, err := Transition(StatusUploaded, ActionReject, ActorAdmin, Input{Reply: "x"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Uploaded 驳回期望 ErrInvalidTransition，实际: %v", err)
	}
}

func TestTransition_Guards(t *testing.T) {
	tests := []struct {
		name   string
		from   Status
		action Action
		actor  Actor
		in     Input
		want   error
	}{
		{"学生不能审核", StatusPaid, ActionReview, ActorStudent, Input{}, ErrActorNotAllowed},
		{"管理员不能代付", StatusPending, ActionConfirmPayment, ActorAdmin, Input{PaymentRef: "p"}, ErrActorNotAllowed},
		{"重复支付", StatusPaid, ActionConfirmPayment, ActorStudent, Input{PaymentRef: "p"}, ErrCycleClosed},
		{"缺少流水号", StatusPending, ActionConfirmPayment, ActorStudent, Input{}, ErrPaymentRefRequired},
		{"缺少凭证链接", StatusVerified, ActionComplete, ActorAdmin, Input{}, ErrProofLinkRequired},
		{"跳过审核", StatusPaid, ActionVerify, ActorAdmin, Input{}, ErrInvalidTransition},
		{"处理中重新提交", StatusProcessing, ActionResubmit, ActorStudent, Input{}, ErrCycleClosed},
		{"未知动作", StatusPaid, Action("archive"), ActorAdmin, Input{}, ErrUnknownAction},
		{"非法起始状态", Status("Lost"), ActionReview, ActorAdmin, Input{}, ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transition(tt.from, tt.action, tt.actor, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestTransition_Resubmit(t *testing.T) {
	ch, err := Transition(StatusRejected, ActionResubmit, ActorStudent, Input{})
	if err != nil {
		t.Fatalf("Rejected 重新提交应成功: %v", err)
	}
	if ch.To != StatusPending || ch.Reply != nil || ch.ProofLink != nil {
		t.Errorf("重新提交不应触碰管理员字段: %+v", ch)
	}

	ch, err = Transition(ch.To, ActionConfirmPayment, ActorStudent, Input{PaymentRef: "pay_2"})
	if err != nil || ch.To != StatusPaid {
		t.Errorf("重新支付应进入 Paid: %+v, %v", ch, err)
	}
}

// ── 强制设置 ──

func TestForceSet(t *testing.T) {
	link := "https://nios.ac.in/proof/9"
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			ch, err := ForceSet(from, to, nil, &link)
			if err != nil {
				t.Fatalf("ForceSet %s→%s 应成功: %v", from, to, err)
			}
			if ch.To != to || ch.ProofLink != &link {
				t.Errorf("ForceSet 结果不正确: %+v", ch)
			}
		}
	}

	if _, err := ForceSet(StatusPaid, Status("Done"), nil, nil); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("非法目标状态期望 ErrUnknownStatus，实际: %v", err)
	}
}

func TestForceSet_SameStatusIsNoop(t *testing.T) {
	ch, err := ForceSet(StatusVerified, StatusVerified, nil, nil)
	if err != nil {
		t.Fatalf("ForceSet 应成功: %v", err)
	}
	if ch.StatusChanged() || ch.Reply != nil || ch.ProofLink != nil || ch.PaymentRef != nil {
		t.Errorf("同状态设置不应改动其他字段: %+v", ch)
	}
}

func TestNextActions(t *testing.T) {
	tests := []struct {
		status Status
		want   []Action
	}{
		{StatusPending, nil},
		{StatusPaid, []Action{ActionReview, ActionReject}},
		{StatusProcessing, []Action{ActionVerify, ActionReject}},
		{StatusVerified, []Action{ActionComplete, ActionReject}},
		{StatusUploaded, nil},
		{StatusRejected, nil},
	}
	for _, tt := range tests {
		got := NextActions(tt.status)
		if len(got) != len(tt.want) {
			t.Errorf("NextActions(%s) = %v，期望 %v", tt.status, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("NextActions(%s) = %v，期望 %v", tt.status, got, tt.want)
			}
		}
	}
}
