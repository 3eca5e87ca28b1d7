package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"teamspace/internal/activity"
	"teamspace/internal/config"
	"teamspace/internal/model"
	"teamspace/internal/store"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// 会话中间件写入 gin 上下文的键。
const (
	CtxEmail = "sessionEmail"
	CtxRole  = "sessionRole"
)

// UserStore Handler 需要的用户读写能力。
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	PromoteToAdmin(ctx context.Context, user *model.User) error
	LinkGoogleID(ctx context.Context, user *model.User, googleID, displayName string) error
}

// ActivityRecorder 活动日志的追加端。
type ActivityRecorder interface {
	Record(actType, actor, description string, metadata map[string]interface{}, meta activity.RequestMeta)
}

// Handler 提供注册、登录与 OAuth 接口。
type Handler struct {
	users    UserStore
	cfg      *config.Config
	sessions *SessionManager
	activity ActivityRecorder
	logger   *slog.Logger
	google   *googleFlow
}

// NewHandler 创建 Auth Handler。
func NewHandler(users UserStore, cfg *config.Config, sessions *SessionManager, recorder ActivityRecorder, logger *slog.Logger) *Handler {
	return &Handler{
		users:    users,
		cfg:      cfg,
		sessions: sessions,
		activity: recorder,
		logger:   logger,
		google:   newGoogleFlow(&cfg.OAuth),
	}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type signinRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func reqMeta(c *gin.Context) activity.RequestMeta {
	return activity.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Signup 创建新用户（邮箱+密码）。
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "hash password failed"})
		return
	}

	role := model.RoleUser
	if h.cfg.IsAdminEmail(email) {
		role = model.RoleAdmin
	}

	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hash),
		Role:     role,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "User already exists"})
			return
		}
		h.logger.Error("create user failed", slog.String("email", email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "create user failed"})
		return
	}

	h.activity.Record(model.ActivitySignup, email,
		"New user registered: "+user.Name,
		map[string]interface{}{"role": user.Role, "signupMethod": "email_password"},
		reqMeta(c))

	h.logger.Info("user registered", slog.String("email", email), slog.String("role", user.Role))
	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}

// Signin 校验凭证并建立会话。
//
// 白名单邮箱在每次成功登录时幂等地提升为管理员：角色已是 admin 则不产生写入。
func (h *Handler) Signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid email or password"})
		return
	}

	if h.cfg.IsAdminEmail(user.Email) && user.Role != model.RoleAdmin {
		if err := h.users.PromoteToAdmin(c.Request.Context(), user); err != nil {
			h.logger.Error("admin promotion failed", slog.String("email", email), slog.String("error", err.Error()))
		} else {
			h.logger.Info("admin role assigned", slog.String("email", email))
		}
	}

	if err := h.establishSession(c, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "sign session failed"})
		return
	}

	h.activity.Record(model.ActivityLogin, user.Email,
		"User logged in successfully",
		map[string]interface{}{"role": user.Role, "loginMethod": "email_password"},
		reqMeta(c))

	h.logger.Info("user logged in", slog.String("email", user.Email), slog.String("role", user.Role))
	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}

// Logout 清除会话 Cookie。
func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CurrentUser 返回会话对应的身份，未认证时返回 401。
func (h *Handler) CurrentUser(c *gin.Context) {
	email := c.GetString(CtxEmail)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	user, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": user.Name, "email": user.Email, "role": user.Role})
}

// establishSession 签发会话令牌并写入 Cookie。
func (h *Handler) establishSession(c *gin.Context, user *model.User) error {
	token, err := h.sessions.Issue(user.Email, user.Role)
	if err != nil {
		h.logger.Error("sign session failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		return err
	}
	c.SetCookie(SessionCookie, token, int(sessionTTL.Seconds()), "/", "", false, true)
	return nil
}

func toUserResponse(u *model.User) userResponse {
	role := u.Role
	if role == "" {
		role = model.RoleUser
	}
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: role}
}
