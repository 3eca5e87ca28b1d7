// Package dispatch 在工作区覆盖写之后、响应已经返回的前提下，
// 计算指派差异并驱动外发邮件。
package dispatch

import (
	"context"
	"log/slog"

	"teamspace/internal/diff"
	"teamspace/internal/model"
	"teamspace/internal/pkg/metrics"
	"teamspace/internal/pkg/notify"
	"teamspace/internal/pkg/queue"
)

// Dispatcher 通知派发器。
//
// 每条 AssignmentChange 恰好对应一次发送尝试：不重试、不去重，
// 失败也不回传给触发写入的调用方，只记录日志并计数。
type Dispatcher struct {
	notifier notify.Notifier
	queue    *queue.Queue
	logger   *slog.Logger
}

// New 创建派发器。
func New(notifier notify.Notifier, q *queue.Queue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, queue: q, logger: logger}
}

// WorkspaceUpdated 将一次覆盖写的新旧快照差异交给后台队列处理。
//
// 必须在 HTTP 响应写出之后调用：邮件传输的延迟与失败都不应
// 出现在调用方可见的路径上。
func (d *Dispatcher) WorkspaceUpdated(oldWs, newWs *model.Workspace, assignedBy string) {
	enqueued := d.queue.Enqueue(func(ctx context.Context) error {
		d.run(ctx, oldWs, newWs, assignedBy)
		return nil
	})
	if !enqueued {
		d.logger.Warn("assignment notification batch dropped",
			slog.String("workspace", newWs.ID))
	}
}

// run 同步执行一批派发：对每条差异各尝试一次发送。
func (d *Dispatcher) run(ctx context.Context, oldWs, newWs *model.Workspace, assignedBy string) {
	for _, change := range diff.Changes(oldWs, newWs) {
		note := notify.AssignmentNote{
			AssigneeEmail: change.NewAssignee,
			TaskTitle:     change.TaskTitle,
			WorkspaceName: newWs.Name,
			AssignedBy:    assignedBy,
			DueDate:       change.DueDate,
		}
		if err := d.notifier.SendTaskAssignment(ctx, note); err != nil {
			if metrics.NotificationFailedTotal != nil {
				metrics.NotificationFailedTotal.Inc()
			}
			d.logger.Warn("assignment notification failed",
				slog.String("task", change.TaskID),
				slog.String("assignee", change.NewAssignee),
				slog.String("error", err.Error()))
			continue
		}
		if metrics.NotificationSentTotal != nil {
			metrics.NotificationSentTotal.Inc()
		}
		d.logger.Info("assignment notification sent",
			slog.String("task", change.TaskID),
			slog.String("assignee", change.NewAssignee))
	}
}
