package queue

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/config"
)

// Producer Kafka 消息生产者，用于投递提交状态变更事件
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer 创建生产者；配置了用户名时启用 SASL/PLAIN + TLS
func NewProducer(cfg *config.KafkaConfig, logger *zap.Logger) *Producer {
	var transport *kafka.Transport
	if cfg.Username != "" {
		transport = &kafka.Transport{
			SASL: plain.Mechanism{
				Username: cfg.Username,
				Password: cfg.Password,
			},
			TLS: &tls.Config{MinVersion: tls.VersionTLS12},
		}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Broker),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // 同一学生的事件落在同一分区，保持顺序
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}
	if transport != nil {
		w.Transport = transport
	}

	return &Producer{writer: w, logger: logger}
}

// PublishMessage 投递一条消息
// 生产者未就绪时跳过，不影响主流程
func (p *Producer) PublishMessage(ctx context.Context, key, value []byte) error {
	if p == nil || p.writer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
