package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Action 流转动作
type Action string

const (
	ActionConfirmPayment Action = "confirm_payment" // 支付回调确认，Pending → Paid
	ActionResubmit       Action = "resubmit"        // 学生重新提交资料，Rejected → Pending
	ActionReview         Action = "review"
	ActionVerify         Action = "verify"
	ActionComplete       Action = "complete"
	ActionReject         Action = "reject"
)

// Actor 执行流转的身份
type Actor string

const (
	ActorStudent Actor = "student"
	ActorAdmin   Actor = "admin"
)

var (
	ErrUnknownAction      = errors.New("未知的流转动作")
	ErrInvalidTransition  = errors.New("当前状态不允许该操作")
	ErrActorNotAllowed    = errors.New("当前身份无权执行该操作")
	ErrReplyRequired      = errors.New("驳回时必须填写回复说明")
	ErrProofLinkRequired  = errors.New("完成上传时必须提供凭证链接")
	ErrPaymentRefRequired = errors.New("支付确认缺少支付流水号")
	ErrCycleClosed        = errors.New("当前提交正在处理中，暂不可修改")
)

type rule struct {
	from  []Status
	to    Status
	actor Actor
}

// rules 常规流转路径；管理员越过该表请使用 ForceSet
var rules = map[Action]rule{
	ActionConfirmPayment: {from: []Status{StatusPending}, to: StatusPaid, actor: ActorStudent},
	ActionResubmit:       {from: []Status{StatusPending, StatusRejected}, to: StatusPending, actor: ActorStudent},
	ActionReview:         {from: []Status{StatusPaid}, to: StatusProcessing, actor: ActorAdmin},
	ActionVerify:         {from: []Status{StatusProcessing}, to: StatusVerified, actor: ActorAdmin},
	ActionComplete:       {from: []Status{StatusVerified}, to: StatusUploaded, actor: ActorAdmin},
	ActionReject:         {from: []Status{StatusPaid, StatusProcessing, StatusVerified}, to: StatusRejected, actor: ActorAdmin},
}

// adminActionOrder 管理端按钮展示顺序
var adminActionOrder = []Action{ActionReview, ActionVerify, ActionComplete, ActionReject}

// Input 流转附带的参数
type Input struct {
	Reply      string
	ProofLink  string
	PaymentRef string
}

// Change 一次流转的结果，指针字段为 nil 表示不改动
type Change struct {
	From       Status
	To         Status
	Action     Action // ForceSet 时为空
	Reply      *string
	ProofLink  *string
	PaymentRef *string
}

// StatusChanged 状态是否实际发生变化
func (c Change) StatusChanged() bool { return c.From != c.To }

// ParseAction 解析动作字符串
func ParseAction(v string) (Action, error) {
	a := Action(v)
	if _, ok := rules[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, v)
	}
	return a, nil
}

// Transition 按常规路径执行一次流转
func Transition(from Status, action Action, actor Actor, in Input) (Change, error) {
	if !from.Valid() {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownStatus, string(from))
	}
	r, ok := rules[action]
	if !ok {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownAction, string(action))
	}
	if r.actor != actor {
		return Change{}, ErrActorNotAllowed
	}
	if !contains(r.from, from) {
		if actor == ActorStudent {
			return Change{}, ErrCycleClosed
		}
		return Change{}, fmt.Errorf("%w: %s 无法执行 %s", ErrInvalidTransition, from, action)
	}

	ch := Change{From: from, To: r.to, Action: action}

	switch action {
	case ActionConfirmPayment:
		ref := strings.TrimSpace(in.PaymentRef)
		if ref == "" {
			return Change{}, ErrPaymentRefRequired
		}
		ch.PaymentRef = &ref
	case ActionReject:
		reply := strings.TrimSpace(in.Reply)
		if reply == "" {
			return Change{}, ErrReplyRequired
		}
		ch.Reply = &reply
	case ActionComplete:
		link := strings.TrimSpace(in.ProofLink)
		if link == "" {
			return Change{}, ErrProofLinkRequired
		}
		ch.ProofLink = &link
		if reply := strings.TrimSpace(in.Reply); reply != "" {
			ch.Reply = &reply
		}
	default:
		if reply := strings.TrimSpace(in.Reply); reply != "" && actor == ActorAdmin {
			ch.Reply = &reply
		}
	}

	return ch, nil
}

// ForceSet 管理员直接设置任意状态，可同时写回复与凭证链接
// 仅校验目标状态在枚举内，不受常规路径约束
func ForceSet(from, to Status, reply, proofLink *string) (Change, error) {
	if !to.Valid() {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownStatus, string(to))
	}
	return Change{From: from, To: to, Reply: reply, ProofLink: proofLink}, nil
}

// NextActions 管理员在当前状态下可执行的常规动作
func NextActions(s Status) []Action {
	out := make([]Action, 0, 2)
	for _, a := range adminActionOrder {
		if contains(rules[a].from, s) {
			out = append(out, a)
		}
	}
	return out
}

func contains(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
