package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 全局 Prometheus 指标。
var (
	// NotificationSentTotal 任务指派邮件发送成功总数。
	NotificationSentTotal prometheus.Counter
	// NotificationFailedTotal 任务指派邮件发送失败总数。
	NotificationFailedTotal prometheus.Counter
	// ActivityLoggedTotal 活动记录落库成功总数。
	ActivityLoggedTotal prometheus.Counter
	// ActivityDroppedTotal 活动记录失败/被丢弃总数。
	ActivityDroppedTotal prometheus.Counter
	// AttachmentUploadTotal 附件上传成功总数。
	AttachmentUploadTotal prometheus.Counter
	// AttachmentDeleteFailedTotal 物理文件删除失败总数（尽力而为语义，仅计数）。
	AttachmentDeleteFailedTotal prometheus.Counter
	// SideEffectQueueDepth 副作用队列当前积压长度。
	SideEffectQueueDepth prometheus.Gauge
	// WorkerPoolSize 副作用队列 worker 数。
	WorkerPoolSize prometheus.Gauge
	// RateLimitRejectedTotal 被限流拒绝的请求总数。
	RateLimitRejectedTotal prometheus.Counter
)

var initOnce sync.Once

// InitMetrics 注册全部指标，多次调用只生效一次。
func InitMetrics(workerPoolSize int) {
	initOnce.Do(func() {
		NotificationSentTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamspace_notification_sent_total",
			Help: "Number of task assignment emails sent successfully.",
		})
		NotificationFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamspace_notification_failed_total",
			Help: "Number of task assignment email attempts that failed.",
		})
		ActivityLoggedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamspace_activity_logged_total",
			Help: "Number of activity records appended.",
		})
		ActivityDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamspace_activity_dropped_total",
			Help: "Number of activity records dropped or failed to append.",
		})
		AttachmentUploadTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamspace_attachment_upload_total",
			Help: "Number of attachments uploaded.",
		})
		AttachmentDeleteFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamspace_attachment_delete_failed_total",
			Help: "Number of best-effort blob deletions that failed.",
		})
		SideEffectQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "teamspace_side_effect_queue_depth",
			Help: "Pending jobs in the side effect queue.",
		})
		WorkerPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "teamspace_worker_pool_size",
			Help: "Configured side effect worker pool size.",
		})
		RateLimitRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamspace_ratelimit_rejected_total",
			Help: "Number of requests rejected by the auth rate limiter.",
		})
	})

	if workerPoolSize > 0 {
		WorkerPoolSize.Set(float64(workerPoolSize))
	}
}
