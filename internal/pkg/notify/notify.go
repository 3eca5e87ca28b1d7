package notify

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured 表示邮件传输未配置（SMTP 主机/账号/发件人缺失）。
var ErrNotConfigured = errors.New("email transport not configured")

// AssignmentNote 一次任务指派通知的内容。
type AssignmentNote struct {
	AssigneeEmail string     // 被指派人邮箱
	TaskTitle     string     // 任务标题
	WorkspaceName string     // 所属工作区名称
	AssignedBy    string     // 指派人邮箱（无法确定时为 "system"）
	DueDate       *time.Time // 截止日期（可为空）
}

// Notifier 定义通知接口。
type Notifier interface {
	// SendTaskAssignment 发送一封任务指派通知邮件。
	SendTaskAssignment(ctx context.Context, note AssignmentNote) error

	// SendTest 发送一封配置自检邮件，用于运维连通性验证。
	SendTest(ctx context.Context, toEmail string) error
}
