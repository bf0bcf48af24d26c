package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// ── 测试辅助 ──

// memRelay 以内存通道模拟 Redis 频道，多个 Hub 可共享
type memRelay struct {
	mu   sync.Mutex
	subs []chan []byte
}

func (r *memRelay) Publish(_ context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		ch <- payload
	}
	return nil
}

func (r *memRelay) Subscribe(_ context.Context) (<-chan []byte, func() error) {
	ch := make(chan []byte, 16)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	return ch, func() error { return nil }
}

func (r *memRelay) subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("通道意外关闭")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("等待事件超时")
	}
	return Event{}
}

func mustEvent(t *testing.T, topic, typ string, data interface{}) Event {
	t.Helper()
	ev, err := NewEvent(topic, typ, data)
	if err != nil {
		t.Fatalf("NewEvent 失败: %v", err)
	}
	return ev
}

// ── 本地投递 ──

func TestHub_PublishReachesAllSubscribersIncludingWriter(t *testing.T) {
	h := NewHub(nil, zap.NewNop())
	topic := SubmissionTopic("u1")

	writer, cancelW := h.Subscribe(topic, "u1")
	defer cancelW()
	admin, cancelA := h.Subscribe(topic, "admin-1")
	defer cancelA()
	other, cancelO := h.Subscribe(SubmissionTopic("u2"), "u2")
	defer cancelO()

	h.Publish(context.Background(), mustEvent(t, topic, EventSubmissionUpdated, map[string]string{"status": "Paid"}))

	for _, ch := range []<-chan Event{writer, admin} {
		ev := recv(t, ch)
		if ev.Type != EventSubmissionUpdated || ev.Topic != topic {
			t.Errorf("事件不正确: %+v", ev)
		}
		if ev.At.IsZero() || ev.Origin == "" {
			t.Errorf("事件应带时间与来源: %+v", ev)
		}
	}

	select {
	case ev := <-other:
		t.Errorf("其他主题不应收到事件: %+v", ev)
	default:
	}
}

func TestHub_PerTopicOrder(t *testing.T) {
	h := NewHub(nil, zap.NewNop())
	ch, cancel := h.Subscribe(TopicSubmissions, "admin-1")
	defer cancel()

	for i := 0; i < 10; i++ {
		h.Publish(context.Background(), mustEvent(t, TopicSubmissions, EventSubmissionUpdated, i))
	}
	for i := 0; i < 10; i++ {
		var got int
		if err := json.Unmarshal(recv(t, ch).Data, &got); err != nil || got != i {
			t.Fatalf("第 %d 个事件顺序错误: %d %v", i, got, err)
		}
	}
}

// ── 退订 ──

func TestHub_CancelIsIdempotent(t *testing.T) {
	h := NewHub(nil, zap.NewNop())
	ch, cancel := h.Subscribe(TopicPrice, "u1")

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("取消后通道应关闭")
	}
	if n := h.Subscribers(TopicPrice); n != 0 {
		t.Errorf("取消后订阅数应为 0，实际=%d", n)
	}
}

func TestHub_CloseOwner(t *testing.T) {
	h := NewHub(nil, zap.NewNop())
	a, cancelA := h.Subscribe(SubmissionTopic("u1"), "u1")
	b, cancelB := h.Subscribe(TopicPrice, "u1")
	c, cancelC := h.Subscribe(TopicPrice, "u2")
	defer cancelC()

	if n := h.CloseOwner("u1"); n != 2 {
		t.Errorf("期望关闭 2 个订阅，实际=%d", n)
	}
	for _, ch := range []<-chan Event{a, b} {
		if _, ok := <-ch; ok {
			t.Error("登出后通道应关闭")
		}
	}

	// 登出后再取消不应 panic
	cancelA()
	cancelB()

	h.Publish(context.Background(), mustEvent(t, TopicPrice, EventPriceUpdated, 1599))
	recv(t, c)
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	h := NewHub(nil, zap.NewNop())
	h.bufSize = 1
	slow, cancel := h.Subscribe(TopicSubmissions, "admin-1")
	defer cancel()

	h.Publish(context.Background(), mustEvent(t, TopicSubmissions, EventSubmissionUpdated, 1))
	h.Publish(context.Background(), mustEvent(t, TopicSubmissions, EventSubmissionUpdated, 2))

	if _, ok := <-slow; !ok {
		t.Fatal("首个事件应已缓冲")
	}
	if _, ok := <-slow; ok {
		t.Error("缓冲区满后订阅者应被断开")
	}
}

func TestHub_Close(t *testing.T) {
	h := NewHub(nil, zap.NewNop())
	ch, _ := h.Subscribe(TopicPrice, "u1")
	h.Close()

	if _, ok := <-ch; ok {
		t.Error("Close 后通道应关闭")
	}
	late, _ := h.Subscribe(TopicPrice, "u1")
	if _, ok := <-late; ok {
		t.Error("Close 后的订阅应立即关闭")
	}
}

// ── 跨实例中继 ──

func TestHub_RelayFanOut(t *testing.T) {
	relay := &memRelay{}
	h1 := NewHub(relay, zap.NewNop())
	h2 := NewHub(relay, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h1.Run(ctx)
	go h2.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for relay.subscribers() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	local, c1 := h1.Subscribe(TopicSubmissions, "admin-1")
	defer c1()
	remote, c2 := h2.Subscribe(TopicSubmissions, "admin-2")
	defer c2()

	h1.Publish(ctx, mustEvent(t, TopicSubmissions, EventSubmissionUpdated, "u1"))

	recv(t, local)
	recv(t, remote)

	// h1 忽略自己发出的中继消息，不会重复投递
	select {
	case ev := <-local:
		t.Errorf("本实例不应收到重复事件: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
