// Package activity 提供只追加的活动日志：审计与"你被加入了工作区"类通知的来源。
package activity

import (
	"context"
	"log/slog"
	"time"

	"teamspace/internal/model"
	"teamspace/internal/pkg/metrics"
	"teamspace/internal/pkg/queue"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestMeta 请求来源信息；系统触发时两个字段都写 "system"。
type RequestMeta struct {
	IP        string
	UserAgent string
}

// SystemMeta 系统触发的活动来源。
func SystemMeta() RequestMeta {
	return RequestMeta{IP: "system", UserAgent: "system"}
}

// Filter 活动查询条件，零值字段不参与过滤。
type Filter struct {
	Types []string
	Actor string
	Since time.Time
	Until time.Time
}

// Recorder 记录并查询活动。
//
// Record 经由共享副作用队列异步落库；记录失败只打日志并计数，
// 绝不影响触发它的主操作。
type Recorder struct {
	db     *gorm.DB
	queue  *queue.Queue
	logger *slog.Logger
}

// NewRecorder 创建活动记录器。
func NewRecorder(db *gorm.DB, q *queue.Queue, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, queue: q, logger: logger}
}

// Record 异步追加一条活动记录（fire-and-forget）。
func (r *Recorder) Record(actType, actor, description string, metadata map[string]interface{}, meta RequestMeta) {
	entry := model.Activity{
		Type:        actType,
		Actor:       actor,
		Description: description,
		Metadata:    datatypes.JSONMap(metadata),
		Timestamp:   time.Now(),
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
	}

	enqueued := r.queue.Enqueue(func(ctx context.Context) error {
		return r.append(ctx, entry)
	})
	if !enqueued {
		if metrics.ActivityDroppedTotal != nil {
			metrics.ActivityDroppedTotal.Inc()
		}
		r.logger.Warn("activity record dropped",
			slog.String("type", actType),
			slog.String("actor", actor))
	}
}

// append 同步落库一条活动记录。
func (r *Recorder) append(ctx context.Context, entry model.Activity) error {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if metrics.ActivityDroppedTotal != nil {
			metrics.ActivityDroppedTotal.Inc()
		}
		r.logger.Warn("activity append failed",
			slog.String("type", entry.Type),
			slog.String("error", err.Error()))
		return err
	}
	if metrics.ActivityLoggedTotal != nil {
		metrics.ActivityLoggedTotal.Inc()
	}
	return nil
}

// Query 按条件分页查询活动，按时间倒序，返回条目与符合条件的总数。
func (r *Recorder) Query(ctx context.Context, filter Filter, limit, offset int) ([]model.Activity, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&model.Activity{})
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if filter.Actor != "" {
		q = q.Where("actor = ?", filter.Actor)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp < ?", filter.Until)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	items := []model.Activity{}
	if err := q.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountSince 统计窗口内指定类型的活动数，管理端统计用。
func (r *Recorder) CountSince(ctx context.Context, types []string, since time.Time) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Activity{}).Where("timestamp >= ?", since)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
