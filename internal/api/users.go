package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"teamspace/internal/activity"
	"teamspace/internal/model"
	"teamspace/internal/store"

	"github.com/gin-gonic/gin"
)

type updateUserRequest struct {
	Name string `json:"name" binding:"required"`
}

// notificationItem 通知 feed 中的单条记录。
type notificationItem struct {
	ID            uint      `json:"id"`
	WorkspaceID   string    `json:"workspaceId"`
	WorkspaceName string    `json:"workspaceName"`
	AddedBy       string    `json:"addedBy"`
	Timestamp     time.Time `json:"timestamp"`
}

// handleGetUser 返回用户公开资料。
func (s *Server) handleGetUser(c *gin.Context) {
	email := strings.TrimSpace(strings.ToLower(c.Param("email")))
	user, err := s.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "load user failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": user.Name, "email": user.Email, "role": user.Role})
}

// handleUpdateUser 更新（或初始化）用户展示名。
func (s *Server) handleUpdateUser(c *gin.Context) {
	email := strings.TrimSpace(strings.ToLower(c.Param("email")))

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.users.UpdateName(c.Request.Context(), email, strings.TrimSpace(req.Name))
	if err != nil {
		s.logger.Error("update user failed", slog.String("email", email), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "update user failed")
		return
	}

	s.activity.Record(model.ActivityProfileUpdate, user.Email,
		"Updated profile name to: "+user.Name,
		map[string]interface{}{"name": user.Name},
		s.requestMeta(c))

	c.JSON(http.StatusOK, gin.H{"success": true, "user": gin.H{"name": user.Name, "email": user.Email, "role": user.Role}})
}

// handleNotifications 返回用户的被拉入工作区通知（最近 20 条）。
func (s *Server) handleNotifications(c *gin.Context) {
	email := strings.TrimSpace(strings.ToLower(c.Param("email")))

	entries, _, err := s.activity.Query(c.Request.Context(), activity.Filter{
		Types: []string{model.ActivityMemberAdded},
		Actor: email,
	}, 20, 0)
	if err != nil {
		s.logger.Error("load notifications failed", slog.String("email", email), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "load notifications failed")
		return
	}

	items := make([]notificationItem, 0, len(entries))
	for _, entry := range entries {
		item := notificationItem{ID: entry.ID, Timestamp: entry.Timestamp}
		if v, ok := entry.Metadata["workspaceId"].(string); ok {
			item.WorkspaceID = v
		}
		if v, ok := entry.Metadata["workspaceName"].(string); ok {
			item.WorkspaceName = v
		}
		if v, ok := entry.Metadata["addedBy"].(string); ok {
			item.AddedBy = v
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}
