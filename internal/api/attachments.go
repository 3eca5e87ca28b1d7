package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"teamspace/internal/model"
	"teamspace/internal/store"
	"teamspace/internal/upload"

	"github.com/gin-gonic/gin"
)

// handleUploadAttachment 接收 multipart 附件并挂到指定任务上。
//
// 大小校验在任何聚合写入之前完成，超限请求不会留下半成品状态。
func (s *Server) handleUploadAttachment(c *gin.Context) {
	workspaceID := c.Param("id")
	taskID := c.Param("taskId")
	caller := s.resolveCaller(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file field is required")
		return
	}
	if fileHeader.Size > s.uploads.MaxBytes() {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"message": fmt.Sprintf("File too large. Maximum size is %dMB.", s.uploads.MaxBytes()>>20),
		})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "open uploaded file failed")
		return
	}
	defer src.Close()

	ws, attachment, err := s.uploads.Upload(c.Request.Context(), workspaceID, taskID, fileHeader.Filename, fileHeader.Size, src)
	if err != nil {
		var notFound *store.TaskNotFoundError
		switch {
		case errors.Is(err, upload.ErrPayloadTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": fmt.Sprintf("File too large. Maximum size is %dMB.", s.uploads.MaxBytes()>>20),
			})
		case errors.Is(err, store.ErrWorkspaceNotFound):
			respondError(c, http.StatusNotFound, "Workspace not found")
		case errors.As(err, &notFound):
			// 带少量已知任务快照，方便前端排查 ID 漂移
			c.JSON(http.StatusNotFound, gin.H{
				"success":    false,
				"message":    "Task not found in this workspace",
				"taskId":     notFound.TaskID,
				"knownTasks": notFound.Known,
			})
		default:
			s.logger.Error("upload attachment failed",
				slog.String("workspace", workspaceID),
				slog.String("task", taskID),
				slog.String("error", err.Error()))
			respondError(c, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	actor := ""
	if caller != nil {
		actor = caller.Email
	}
	s.activity.Record(model.ActivityFileUploaded, actor,
		"Uploaded file: "+attachment.OriginalName,
		map[string]interface{}{
			"workspaceId": ws.ID,
			"taskId":      taskID,
			"fileName":    attachment.FileName,
			"size":        fileHeader.Size,
		},
		s.requestMeta(c))

	c.JSON(http.StatusOK, gin.H{"success": true, "workspace": ws, "attachment": attachment})
}

// handleRemoveAttachment 从任务上移除附件，物理文件删除为尽力而为。
func (s *Server) handleRemoveAttachment(c *gin.Context) {
	workspaceID := c.Param("id")
	taskID := c.Param("taskId")
	fileName := c.Param("fileName")
	caller := s.resolveCaller(c)

	ws, err := s.uploads.Remove(c.Request.Context(), workspaceID, taskID, fileName)
	if err != nil {
		var notFound *store.TaskNotFoundError
		switch {
		case errors.Is(err, store.ErrWorkspaceNotFound):
			respondError(c, http.StatusNotFound, "Workspace not found")
		case errors.As(err, &notFound):
			c.JSON(http.StatusNotFound, gin.H{
				"success":    false,
				"message":    "Task not found in this workspace",
				"taskId":     notFound.TaskID,
				"knownTasks": notFound.Known,
			})
		default:
			s.logger.Error("remove attachment failed",
				slog.String("workspace", workspaceID),
				slog.String("task", taskID),
				slog.String("file", fileName),
				slog.String("error", err.Error()))
			respondError(c, http.StatusInternalServerError, "remove attachment failed")
		}
		return
	}

	actor := ""
	if caller != nil {
		actor = caller.Email
	}
	s.activity.Record(model.ActivityAttachmentRemoved, actor,
		"Removed attachment: "+fileName,
		map[string]interface{}{"workspaceId": ws.ID, "taskId": taskID, "fileName": fileName},
		s.requestMeta(c))

	c.JSON(http.StatusOK, gin.H{"success": true, "workspace": ws})
}
