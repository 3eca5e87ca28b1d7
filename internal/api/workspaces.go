package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"teamspace/internal/model"
	"teamspace/internal/policy"
	"teamspace/internal/store"

	"github.com/gin-gonic/gin"
)

// createWorkspaceRequest 创建工作区的请求参数。
type createWorkspaceRequest struct {
	Name    string         `json:"name" binding:"required"`
	Email   string         `json:"email" binding:"required,email"` // 创建者邮箱
	Members []string       `json:"members"`
	Goals   model.GoalList `json:"goals"`
}

type updateWorkspaceRequest struct {
	Goals model.GoalList `json:"goals"`
}

type addMemberRequest struct {
	Email   string `json:"email" binding:"required,email"`
	AddedBy string `json:"addedBy"`
}

// handleCreateWorkspace 创建工作区，创建者自动并入成员列表。
func (s *Server) handleCreateWorkspace(c *gin.Context) {
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	for _, goal := range req.Goals {
		if !model.ValidPriority(goal.Priority) {
			respondError(c, http.StatusBadRequest, "invalid goal priority: "+goal.Priority)
			return
		}
	}
	if err := req.Goals.EnsureIDs(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := s.workspaces.Create(c.Request.Context(), req.Name, req.Email, req.Members, req.Goals)
	if err != nil {
		s.logger.Error("create workspace failed", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "create workspace failed")
		return
	}

	s.activity.Record(model.ActivityWorkspaceCreated, ws.Owner,
		"Created workspace: "+ws.Name,
		map[string]interface{}{"workspaceId": ws.ID, "workspaceName": ws.Name, "memberCount": len(ws.Members)},
		s.requestMeta(c))

	c.JSON(http.StatusOK, gin.H{"success": true, "workspace": ws})
}

// handleListWorkspaces 返回邮箱作为成员的全部工作区。路径参数承载成员邮箱。
func (s *Server) handleListWorkspaces(c *gin.Context) {
	email := strings.TrimSpace(strings.ToLower(c.Param("id")))
	if email == "" {
		respondError(c, http.StatusBadRequest, "email is required")
		return
	}
	workspaces, err := s.workspaces.ListForMember(c.Request.Context(), email)
	if err != nil {
		s.logger.Error("list workspaces failed", slog.String("email", email), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "list workspaces failed")
		return
	}
	c.JSON(http.StatusOK, workspaces)
}

// handleUpdateWorkspace 整树覆盖 goals 列。
//
// 先读旧聚合、覆盖写、立即响应；任务指派差异与活动日志在响应之后
// 经由副作用队列异步处理，失败不回传。
func (s *Server) handleUpdateWorkspace(c *gin.Context) {
	id := c.Param("id")
	caller := s.resolveCaller(c)

	var req updateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	for _, goal := range req.Goals {
		if !model.ValidPriority(goal.Priority) {
			respondError(c, http.StatusBadRequest, "invalid goal priority: "+goal.Priority)
			return
		}
	}
	if err := req.Goals.EnsureIDs(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	oldWs, err := s.workspaces.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			respondError(c, http.StatusNotFound, "Workspace not found")
			return
		}
		s.logger.Error("load workspace failed", slog.String("id", id), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "load workspace failed")
		return
	}
	if !policy.Allow(caller, oldWs, policy.OpUpdateGoals) {
		respondError(c, http.StatusForbidden, "Not a member of this workspace")
		return
	}

	newWs, err := s.workspaces.ReplaceGoals(c.Request.Context(), id, req.Goals)
	if err != nil {
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			respondError(c, http.StatusNotFound, "Workspace not found")
			return
		}
		s.logger.Error("update workspace failed", slog.String("id", id), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "update workspace failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "workspace": newWs})

	// 响应已写出，以下均为 fire-and-forget 副作用
	actor := ""
	if caller != nil {
		actor = caller.Email
	}
	s.dispatcher.WorkspaceUpdated(oldWs, newWs, actor)
	s.activity.Record(model.ActivityWorkspaceUpdated, actor,
		"Updated workspace: "+newWs.Name,
		map[string]interface{}{"workspaceId": newWs.ID, "workspaceName": newWs.Name},
		s.requestMeta(c))
}

// handleDeleteWorkspace 删除工作区并级联清理其全部附件文件。
func (s *Server) handleDeleteWorkspace(c *gin.Context) {
	id := c.Param("id")
	caller := s.resolveCaller(c)

	ws, err := s.workspaces.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			respondError(c, http.StatusNotFound, "Workspace not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "load workspace failed")
		return
	}
	if !policy.Allow(caller, ws, policy.OpDeleteWorkspace) {
		respondError(c, http.StatusForbidden, "Only the workspace owner or an admin can delete it")
		return
	}

	fileNames, err := s.workspaces.Delete(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("delete workspace failed", slog.String("id", id), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "delete workspace failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})

	s.uploads.CleanupFiles(fileNames)
	actor := ""
	if caller != nil {
		actor = caller.Email
	}
	s.activity.Record(model.ActivityWorkspaceDeleted, actor,
		"Deleted workspace: "+ws.Name,
		map[string]interface{}{"workspaceId": ws.ID, "workspaceName": ws.Name, "attachmentsRemoved": len(fileNames)},
		s.requestMeta(c))
}

// handleAddMember 将已验证用户加入成员列表，重复加入为幂等 no-op。
func (s *Server) handleAddMember(c *gin.Context) {
	id := c.Param("id")
	caller := s.resolveCaller(c)

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ws, err := s.workspaces.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrWorkspaceNotFound) {
			respondError(c, http.StatusNotFound, "Workspace not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "load workspace failed")
		return
	}
	if !policy.Allow(caller, ws, policy.OpAddMember) {
		respondError(c, http.StatusForbidden, "Not a member of this workspace")
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	updated, err := s.workspaces.AddMember(c.Request.Context(), id, email)
	if err != nil {
		if errors.Is(err, store.ErrMemberNotVerified) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User must sign in with Google at least once before being added"})
			return
		}
		s.logger.Error("add member failed", slog.String("id", id), slog.String("email", email), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "add member failed")
		return
	}

	addedBy := req.AddedBy
	if addedBy == "" && caller != nil {
		addedBy = caller.Email
	}
	// actor 记为被加入者，通知 feed 按 actor==本人邮箱取 member_added 记录
	s.activity.Record(model.ActivityMemberAdded, email,
		"Added to workspace: "+updated.Name,
		map[string]interface{}{"workspaceId": updated.ID, "workspaceName": updated.Name, "addedBy": addedBy},
		s.requestMeta(c))

	c.JSON(http.StatusOK, gin.H{"success": true, "workspace": updated})
}
