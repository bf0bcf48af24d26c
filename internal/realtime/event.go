// Package realtime 实现提交记录与价格配置的实时订阅。
// 每次写入成功后发布最新记录，所有订阅者（包括写入方）从同一通道观察变更。
package realtime

import (
	"encoding/json"
	"time"
)

// 订阅主题
const (
	TopicSubmissions = "submissions" // 管理端：全部提交记录
	TopicPrice       = "price"

	submissionTopicPrefix = "submission:"
)

// 事件类型
const (
	EventSnapshot          = "snapshot"
	EventSubmissionCreated = "submission.created"
	EventSubmissionUpdated = "submission.updated"
	EventPriceUpdated      = "price.updated"
)

// SubmissionTopic 学生端：单条提交记录主题
func SubmissionTopic(userID string) string {
	return submissionTopicPrefix + userID
}

// Event 推送给订阅者的变更事件
type Event struct {
	Topic  string          `json:"topic"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin,omitempty"` // 发布实例 ID，用于多实例去重
	At     time.Time       `json:"at"`
}

// NewEvent 将 data 序列化为事件
func NewEvent(topic, typ string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Type: typ, Data: raw}, nil
}
