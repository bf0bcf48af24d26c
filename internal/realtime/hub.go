package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultBufferSize = 32

// Relay 跨实例事件中继
type Relay interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context) (<-chan []byte, func() error)
}

type subscriber struct {
	topic string
	owner string
	ch    chan Event
	once  sync.Once
}

// Hub 进程内订阅中心
// 投递在锁内完成，同一主题的事件按发布顺序到达；缓冲区写满的订阅者被移除并关闭通道
type Hub struct {
	mu      sync.Mutex
	topics  map[string]map[*subscriber]struct{}
	owners  map[string]map[*subscriber]struct{}
	closed  bool
	origin  string
	bufSize int
	relay   Relay
	logger  *zap.Logger
}

// NewHub 创建订阅中心，relay 为 nil 时仅在本实例内广播
func NewHub(relay Relay, logger *zap.Logger) *Hub {
	return &Hub{
		topics:  make(map[string]map[*subscriber]struct{}),
		owners:  make(map[string]map[*subscriber]struct{}),
		origin:  uuid.NewString(),
		bufSize: defaultBufferSize,
		relay:   relay,
		logger:  logger,
	}
}

// Subscribe 订阅主题，返回事件通道与取消函数
// owner 为订阅者身份，登出时可用 CloseOwner 一次性关闭；取消函数可重复调用
func (h *Hub) Subscribe(topic, owner string) (<-chan Event, func()) {
	sub := &subscriber{topic: topic, owner: owner, ch: make(chan Event, h.bufSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	addSub(h.topics, topic, sub)
	if owner != "" {
		addSub(h.owners, owner, sub)
	}
	h.mu.Unlock()

	return sub.ch, func() {
		h.mu.Lock()
		h.removeLocked(sub)
		h.mu.Unlock()
	}
}

// Publish 向本实例订阅者投递事件，并经中继广播给其他实例
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	ev.Origin = h.origin

	h.deliver(ev)

	if h.relay == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("序列化实时事件失败", zap.String("topic", ev.Topic), zap.Error(err))
		return
	}
	if err := h.relay.Publish(ctx, payload); err != nil {
		h.logger.Warn("实时事件中继发布失败", zap.String("topic", ev.Topic), zap.Error(err))
	}
}

// Run 消费中继消息并投递给本实例订阅者，阻塞直到 ctx 结束
func (h *Hub) Run(ctx context.Context) {
	if h.relay == nil {
		<-ctx.Done()
		return
	}
	msgs, closeFn := h.relay.Subscribe(ctx)
	defer func() { _ = closeFn() }()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				h.logger.Warn("丢弃无法解析的中继事件", zap.Error(err))
				continue
			}
			if ev.Origin == h.origin {
				continue
			}
			h.deliver(ev)
		}
	}
}

// CloseOwner 关闭某身份的全部订阅（登出时调用）
func (h *Hub) CloseOwner(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.owners[owner]
	n := len(subs)
	for sub := range subs {
		h.removeLocked(sub)
	}
	return n
}

// Close 关闭全部订阅，之后的订阅立即返回已关闭通道
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, subs := range h.topics {
		for sub := range subs {
			h.removeLocked(sub)
		}
	}
}

// Subscribers 当前主题订阅数
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

func (h *Hub) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.topics[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("订阅者消费过慢，已断开",
				zap.String("topic", sub.topic),
				zap.String("owner", sub.owner),
			)
			h.removeLocked(sub)
		}
	}
}

// removeLocked 调用方须持有 h.mu
func (h *Hub) removeLocked(sub *subscriber) {
	delSub(h.topics, sub.topic, sub)
	if sub.owner != "" {
		delSub(h.owners, sub.owner, sub)
	}
	sub.once.Do(func() { close(sub.ch) })
}

func addSub(m map[string]map[*subscriber]struct{}, key string, sub *subscriber) {
	set, ok := m[key]
	if !ok {
		set = make(map[*subscriber]struct{})
		m[key] = set
	}
	set[sub] = struct{}{}
}

func delSub(m map[string]map[*subscriber]struct{}, key string, sub *subscriber) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(m, key)
	}
}
