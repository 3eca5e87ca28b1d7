// Package upload 管理绑定在任务上的附件生命周期。
package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"teamspace/internal/model"
	"teamspace/internal/pkg/metrics"
	"teamspace/internal/store"
)

// ErrPayloadTooLarge 上传内容超过配置上限。
var ErrPayloadTooLarge = errors.New("payload too large")

// AggregateStore Manager 需要的聚合读写能力。
type AggregateStore interface {
	Get(ctx context.Context, id string) (*model.Workspace, error)
	Save(ctx context.Context, ws *model.Workspace) error
}

// Manager 附件管理器。
//
// 逻辑记录（数据库）是事实来源；物理文件删除失败只记录日志，
// 孤儿文件是被接受的故障模式而非一致性破坏。
type Manager struct {
	store    AggregateStore
	blobs    BlobStore
	logger   *slog.Logger
	maxBytes int64
	debugCap int // 任务 404 诊断信息携带的已知任务数上限
}

// NewManager 创建附件管理器。
func NewManager(s AggregateStore, blobs BlobStore, logger *slog.Logger, maxBytes int64, debugCap int) *Manager {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if debugCap <= 0 {
		debugCap = 10
	}
	return &Manager{store: s, blobs: blobs, logger: logger, maxBytes: maxBytes, debugCap: debugCap}
}

// MaxBytes 返回上传大小上限。
func (m *Manager) MaxBytes() int64 {
	return m.maxBytes
}

// Upload 将上传内容绑定到聚合树中按 ID 定位到的任务上。
//
// 超限在任何聚合变更之前拒绝；目标任务不存在时返回携带诊断信息的
// *store.TaskNotFoundError。内容先落盘，聚合写失败时回收已写入的文件。
func (m *Manager) Upload(ctx context.Context, workspaceID, taskID, originalName string, size int64, r io.Reader) (*model.Workspace, *model.Attachment, error) {
	if size > m.maxBytes {
		return nil, nil, ErrPayloadTooLarge
	}

	ws, err := m.store.Get(ctx, workspaceID)
	if err != nil {
		return nil, nil, err
	}

	task := ws.FindTask(taskID)
	if task == nil {
		return nil, nil, &store.TaskNotFoundError{
			WorkspaceID: workspaceID,
			TaskID:      taskID,
			Known:       ws.TaskRefs(m.debugCap),
		}
	}

	fileName := GenerateFileName(originalName)
	if err := m.blobs.Save(fileName, r); err != nil {
		return nil, nil, err
	}

	attachment := model.Attachment{
		FileName:     fileName,
		OriginalName: originalName,
		URL:          m.blobs.URL(fileName),
	}
	task.Attachments = append(task.Attachments, attachment)

	if err := m.store.Save(ctx, ws); err != nil {
		// 聚合写失败，回收刚落盘的内容，避免悬空文件
		if delErr := m.blobs.Delete(fileName); delErr != nil {
			m.logger.Warn("orphan blob cleanup failed",
				slog.String("file", fileName),
				slog.String("error", delErr.Error()))
		}
		return nil, nil, err
	}

	if metrics.AttachmentUploadTotal != nil {
		metrics.AttachmentUploadTotal.Inc()
	}
	m.logger.Info("attachment uploaded",
		slog.String("workspace", workspaceID),
		slog.String("task", taskID),
		slog.String("file", fileName))
	return ws, &attachment, nil
}

// Remove 从任务的附件列表中移除记录并持久化聚合，随后尽力而为地删除物理文件。
//
// 物理删除失败不回滚也不报错：数据库状态已经是权威结果。
func (m *Manager) Remove(ctx context.Context, workspaceID, taskID, fileName string) (*model.Workspace, error) {
	ws, err := m.store.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	task := ws.FindTask(taskID)
	if task == nil {
		return nil, &store.TaskNotFoundError{
			WorkspaceID: workspaceID,
			TaskID:      taskID,
			Known:       ws.TaskRefs(m.debugCap),
		}
	}

	kept := task.Attachments[:0]
	for _, a := range task.Attachments {
		if a.FileName != fileName {
			kept = append(kept, a)
		}
	}
	task.Attachments = kept

	if err := m.store.Save(ctx, ws); err != nil {
		return nil, err
	}

	m.deleteBlob(fileName)
	return ws, nil
}

// CleanupFiles 对一批文件名逐个发起尽力而为的物理删除（工作区删除级联用）。
// 单个失败不会中止整批。
func (m *Manager) CleanupFiles(fileNames []string) {
	for _, name := range fileNames {
		m.deleteBlob(name)
	}
}

func (m *Manager) deleteBlob(fileName string) {
	if err := m.blobs.Delete(fileName); err != nil {
		if metrics.AttachmentDeleteFailedTotal != nil {
			metrics.AttachmentDeleteFailedTotal.Inc()
		}
		m.logger.Warn("blob delete failed",
			slog.String("file", fileName),
			slog.String("error", err.Error()))
	}
}
