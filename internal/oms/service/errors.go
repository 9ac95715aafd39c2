package service

import (
	"fmt"
	"strings"
)

// GuardViolation 状态机前置条件未满足，动作在任何写入之前被拒绝
type GuardViolation struct {
	Condition string
}

func (e *GuardViolation) Error() string {
	return fmt.Sprintf("guard violation: %s", e.Condition)
}

// AllocationIncomplete 配货校验未通过。所有问题一次性收集，
// 不在第一个错误处中断，方便操作员一次改完。
type AllocationIncomplete struct {
	Errors  []string
	Missing []string
}

func (e *AllocationIncomplete) Error() string {
	return "allocation incomplete: " + strings.Join(e.Errors, "; ")
}

// DispatchFieldMissing 发货方式要求的字段缺失
type DispatchFieldMissing struct {
	Fields []string
}

func (e *DispatchFieldMissing) Error() string {
	return "dispatch field missing: " + strings.Join(e.Fields, ", ")
}

// ConcurrentConflict 提交时的权威状态与客户端前提不一致（库存被并发扣减、
// 状态已被推进）。可重试：客户端应重新加载后再操作。
type ConcurrentConflict struct {
	Reason string
}

func (e *ConcurrentConflict) Error() string {
	return fmt.Sprintf("concurrent conflict: %s, reload and retry", e.Reason)
}
