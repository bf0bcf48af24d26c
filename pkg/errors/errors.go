package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrImmutableField 尝试修改创建后不可变的字段（如 class、created_at）
var ErrImmutableField = errors.New("字段创建后不可修改")

// ErrAdminFieldForbidden 非管理员尝试写入管理员专属字段
var ErrAdminFieldForbidden = errors.New("仅管理员可修改该字段")
