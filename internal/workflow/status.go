// Package workflow 定义 TMA 提交记录的状态枚举、流转规则与视图投影。
// 本包不依赖存储与 HTTP，可直接喂入合成状态做单元测试。
package workflow

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// Status 提交记录的流程状态
type Status string

const (
	StatusPending    Status = "Pending"
	StatusPaid       Status = "Paid"
	StatusProcessing Status = "Processing"
	StatusVerified   Status = "Verified"
	StatusUploaded   Status = "Uploaded"
	StatusRejected   Status = "Rejected"
)

// AllStatuses 全部六个合法状态，顺序即管理端下拉框顺序
var AllStatuses = []Status{
	StatusPending,
	StatusPaid,
	StatusProcessing,
	StatusVerified,
	StatusUploaded,
	StatusRejected,
}

// ErrUnknownStatus 状态值不在枚举内
var ErrUnknownStatus = errors.New("未知的提交状态")

// Valid 判断是否为六个合法状态之一
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusProcessing, StatusVerified, StatusUploaded, StatusRejected:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus 解析状态字符串（区分大小写）
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, v)
	}
	return s, nil
}

// Scan 实现 sql.Scanner，读出非法值时直接报错
func (s *Status) Scan(src interface{}) error {
	var v string
	switch t := src.(type) {
	case string:
		v = t
	case []byte:
		v = string(t)
	default:
		return fmt.Errorf("Status.Scan: unsupported type %T", src)
	}
	parsed, err := ParseStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value 实现 driver.Valuer，拒绝写入非法值
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, string(s))
	}
	return string(s), nil
}

// CanOpenCycle 仅 Pending / Rejected 可开启新的学生提交周期（编辑资料 + 支付）
func CanOpenCycle(s Status) bool {
	return s == StatusPending || s == StatusRejected
}
