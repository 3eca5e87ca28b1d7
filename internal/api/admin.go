package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"teamspace/internal/activity"
	"teamspace/internal/model"
	"teamspace/internal/pkg/notify"
	"teamspace/internal/policy"

	"github.com/gin-gonic/gin"
)

// requireAdmin 校验管理端访问权限，未通过时直接写出响应并返回 nil。
func (s *Server) requireAdmin(c *gin.Context) *policy.Caller {
	caller := s.resolveCaller(c)
	if caller == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authenticated"})
		return nil
	}
	if !policy.Allow(caller, nil, policy.OpViewAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Admin access required"})
		return nil
	}
	return caller
}

type adminUserItem struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	HasGoogle bool      `json:"hasGoogle"`
	CreatedAt time.Time `json:"createdAt"`
}

type adminWorkspaceItem struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Owner       string    `json:"owner"`
	MemberCount int       `json:"memberCount"`
	GoalCount   int       `json:"goalCount"`
	TaskCount   int       `json:"taskCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// handleAdminUsers 返回全部用户列表。
func (s *Server) handleAdminUsers(c *gin.Context) {
	if s.requireAdmin(c) == nil {
		return
	}
	users, err := s.users.ListAll(c.Request.Context())
	if err != nil {
		s.logger.Error("list users failed", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "list users failed")
		return
	}

	items := make([]adminUserItem, 0, len(users))
	for _, u := range users {
		items = append(items, adminUserItem{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Role:      u.Role,
			HasGoogle: u.HasVerifiedIdentity(),
			CreatedAt: u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": items, "totalCount": len(items)})
}

// handleAdminWorkspaces 返回全部工作区的摘要。
func (s *Server) handleAdminWorkspaces(c *gin.Context) {
	if s.requireAdmin(c) == nil {
		return
	}
	workspaces, err := s.workspaces.ListAll(c.Request.Context())
	if err != nil {
		s.logger.Error("list workspaces failed", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "list workspaces failed")
		return
	}

	items := make([]adminWorkspaceItem, 0, len(workspaces))
	for i := range workspaces {
		ws := &workspaces[i]
		taskCount := 0
		ws.Goals.WalkTasks(func(_ *model.Goal, _ *model.Milestone, _ *model.Task) bool {
			taskCount++
			return true
		})
		items = append(items, adminWorkspaceItem{
			ID:          ws.ID,
			Name:        ws.Name,
			Owner:       ws.Owner,
			MemberCount: len(ws.Members),
			GoalCount:   len(ws.Goals),
			TaskCount:   taskCount,
			CreatedAt:   ws.CreatedAt,
			UpdatedAt:   ws.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": items, "totalCount": len(items)})
}

// handleAdminActivities 分页返回活动日志，支持类型与触发者过滤。
func (s *Server) handleAdminActivities(c *gin.Context) {
	if s.requireAdmin(c) == nil {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	filter := activity.Filter{Actor: c.Query("actor")}
	if t := c.Query("type"); t != "" {
		filter.Types = []string{t}
	}

	entries, total, err := s.activity.Query(c.Request.Context(), filter, limit, offset)
	if err != nil {
		s.logger.Error("query activities failed", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "query activities failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activities": entries,
		"totalCount": total,
		"hasMore":    int64(offset+len(entries)) < total,
	})
}

// handleAdminStats 返回平台总量与近期增长统计。
//
// 增长率由活动日志的时间窗计数推导：近 7 天的 signup / workspace_created
// 相对总量的占比，而不是占位的随机数。
func (s *Server) handleAdminStats(c *gin.Context) {
	if s.requireAdmin(c) == nil {
		return
	}
	ctx := c.Request.Context()

	users, err := s.users.ListAll(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "load stats failed")
		return
	}
	workspaces, err := s.workspaces.ListAll(ctx)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "load stats failed")
		return
	}

	totalTasks, doneTasks := 0, 0
	for i := range workspaces {
		workspaces[i].Goals.WalkTasks(func(_ *model.Goal, _ *model.Milestone, task *model.Task) bool {
			totalTasks++
			if task.Status == "Done" {
				doneTasks++
			}
			return true
		})
	}
	completionRate := 0.0
	if totalTasks > 0 {
		completionRate = float64(doneTasks) / float64(totalTasks) * 100
	}

	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)

	loginsToday, _ := s.activity.CountSince(ctx, []string{model.ActivityLogin}, dayAgo)
	signupsWeek, _ := s.activity.CountSince(ctx, []string{model.ActivitySignup}, weekAgo)
	workspacesWeek, _ := s.activity.CountSince(ctx, []string{model.ActivityWorkspaceCreated}, weekAgo)
	uploadsWeek, _ := s.activity.CountSince(ctx, []string{model.ActivityFileUploaded}, weekAgo)

	userGrowth := growthPercent(signupsWeek, int64(len(users)))
	workspaceGrowth := growthPercent(workspacesWeek, int64(len(workspaces)))

	c.JSON(http.StatusOK, gin.H{
		"totalUsers":      len(users),
		"totalWorkspaces": len(workspaces),
		"totalTasks":      totalTasks,
		"completedTasks":  doneTasks,
		"completionRate":  completionRate,
		"loginsToday":     loginsToday,
		"signupsThisWeek": signupsWeek,
		"uploadsThisWeek": uploadsWeek,
		"userGrowth":      userGrowth,
		"workspaceGrowth": workspaceGrowth,
	})
}

// growthPercent 近期新增相对总量的百分比。
func growthPercent(recent, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(recent) / float64(total) * 100
}

type testEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// handleTestEmail 发送一封测试邮件验证 SMTP 配置。
func (s *Server) handleTestEmail(c *gin.Context) {
	if s.requireAdmin(c) == nil {
		return
	}

	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.notifier.SendTest(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Email transport is not configured"})
			return
		}
		s.logger.Error("test email failed", slog.String("to", req.Email), slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Failed to send test email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test email sent to " + req.Email})
}
