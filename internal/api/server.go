package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"teamspace/internal/activity"
	"teamspace/internal/api/auth"
	"teamspace/internal/api/middleware"
	"teamspace/internal/config"
	"teamspace/internal/dispatch"
	"teamspace/internal/model"
	"teamspace/internal/pkg/metrics"
	"teamspace/internal/pkg/notify"
	"teamspace/internal/pkg/queue"
	"teamspace/internal/pkg/ratelimit"
	"teamspace/internal/policy"
	"teamspace/internal/store"
	"teamspace/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、副作用队列以及 Gin 路由引擎。
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *gorm.DB
	rdb        *redis.Client
	router     *gin.Engine
	queue      *queue.Queue
	auth       *auth.Handler
	workspaces WorkspaceStore
	users      UserDirectory
	activity   ActivityLog
	dispatcher Dispatcher
	uploads    AttachmentManager
	notifier   notify.Notifier
}

// WorkspaceStore 工作区聚合的持久化能力。
type WorkspaceStore interface {
	Get(ctx context.Context, id string) (*model.Workspace, error)
	Create(ctx context.Context, name, ownerEmail string, members []string, goals model.GoalList) (*model.Workspace, error)
	ReplaceGoals(ctx context.Context, id string, goals model.GoalList) (*model.Workspace, error)
	Delete(ctx context.Context, id string) ([]string, error)
	AddMember(ctx context.Context, id, email string) (*model.Workspace, error)
	ListForMember(ctx context.Context, email string) ([]model.Workspace, error)
	ListAll(ctx context.Context) ([]model.Workspace, error)
}

// UserDirectory Handler 需要的用户查询与资料更新能力。
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateName(ctx context.Context, email, name string) (*model.User, error)
	ListAll(ctx context.Context) ([]model.User, error)
}

// ActivityLog 活动日志的写入与查询端。
type ActivityLog interface {
	Record(actType, actor, description string, metadata map[string]interface{}, meta activity.RequestMeta)
	Query(ctx context.Context, filter activity.Filter, limit, offset int) ([]model.Activity, int64, error)
	CountSince(ctx context.Context, types []string, since time.Time) (int64, error)
}

// Dispatcher 工作区变更后的指派通知派发端。
type Dispatcher interface {
	WorkspaceUpdated(oldWs, newWs *model.Workspace, assignedBy string)
}

// AttachmentManager 任务附件的上传、删除与级联清理能力。
type AttachmentManager interface {
	Upload(ctx context.Context, workspaceID, taskID, originalName string, size int64, r io.Reader) (*model.Workspace, *model.Attachment, error)
	Remove(ctx context.Context, workspaceID, taskID, fileName string) (*model.Workspace, error)
	CleanupFiles(fileNames []string)
	MaxBytes() int64
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis（限流用）
// 3. 启动副作用队列并装配通知派发器
// 4. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent), // 关闭GORM调试日志
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Workspace{}, &model.Activity{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics(cfg.App.WorkerPoolSize)

	sideEffects := queue.New(log, cfg.App.WorkerPoolSize, cfg.App.QueueCapacity)
	// worker 生命周期由 DrainSideEffects 控制，不随启动 ctx 取消而中断在途任务
	sideEffects.Start(context.Background())

	emailNotifier := notify.NewEmailNotifier(&cfg.Email, cfg.App.FrontendURL, log)
	dispatcher := dispatch.New(emailNotifier, sideEffects, log)
	recorder := activity.NewRecorder(db, sideEffects, log)

	workspaces := store.NewWorkspaceStore(db)
	users := store.NewUserStore(db)

	blobs, err := upload.NewDiskStore(cfg.App.UploadDir)
	if err != nil {
		return nil, err
	}
	uploads := upload.NewManager(workspaces, blobs, log, cfg.App.MaxUploadBytes, cfg.App.TaskRefDebugCap)

	sessions := auth.NewSessionManager(cfg.Security.SessionSecret)
	limiter := ratelimit.NewLimiter(rdb, log, cfg.App.RateLimit, cfg.App.RateBurst)

	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Session(sessions))

	s := &Server{
		cfg:        cfg,
		logger:     log,
		db:         db,
		rdb:        rdb,
		router:     r,
		queue:      sideEffects,
		auth:       auth.NewHandler(users, cfg, sessions, recorder, log),
		workspaces: workspaces,
		users:      users,
		activity:   recorder,
		dispatcher: dispatcher,
		uploads:    uploads,
		notifier:   emailNotifier,
	}
	s.registerRoutes(middleware.RateLimit(limiter, log), blobs.Dir())
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// DrainSideEffects 等待副作用队列排空，超时则放弃。
func (s *Server) DrainSideEffects(timeout time.Duration) error {
	return s.queue.ShutdownWithTimeout(timeout)
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else if closeErr := sqlDB.Close(); closeErr != nil {
			if firstErr == nil {
				firstErr = closeErr
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes(rateLimited gin.HandlerFunc, uploadDir string) {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/healthz", s.handleHealthz)

	// 已上传附件的静态访问
	s.router.Static("/uploads", uploadDir)

	s.router.POST("/api/signup", rateLimited, s.auth.Signup)
	s.router.POST("/api/signin", rateLimited, s.auth.Signin)
	s.router.POST("/api/logout", s.auth.Logout)
	s.router.GET("/api/current_user", s.auth.CurrentUser)
	s.router.GET("/auth/google", rateLimited, s.auth.GoogleRedirect)
	s.router.GET("/auth/google/callback", s.auth.GoogleCallback)

	api := s.router.Group("/api")
	api.GET("/user/:email", s.handleGetUser)
	api.PUT("/user/:email", s.handleUpdateUser)
	api.GET("/notifications/:email", s.handleNotifications)

	api.POST("/workspaces", s.handleCreateWorkspace)
	api.GET("/workspaces/:id", s.handleListWorkspaces) // :id 位置承载成员邮箱
	api.PUT("/workspaces/:id", s.handleUpdateWorkspace)
	api.DELETE("/workspaces/:id", s.handleDeleteWorkspace)
	api.POST("/workspaces/:id/add-member", s.handleAddMember)
	api.POST("/workspaces/:id/tasks/:taskId/attachments", s.handleUploadAttachment)
	api.DELETE("/workspaces/:id/tasks/:taskId/attachments/:fileName", s.handleRemoveAttachment)

	api.GET("/admin/users", s.handleAdminUsers)
	api.GET("/admin/workspaces", s.handleAdminWorkspaces)
	api.GET("/admin/activities", s.handleAdminActivities)
	api.GET("/admin/stats", s.handleAdminStats)
	api.POST("/test-email", s.handleTestEmail)
}

func (s *Server) handleHealthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// resolveCaller 解析当前请求的操作者身份。
//
// 优先取会话；前端部分旧接口仍以 email 查询参数带身份，这里回退到
// 数据库查询以兼容。两者都没有时返回 nil（匿名）。
func (s *Server) resolveCaller(c *gin.Context) *policy.Caller {
	if email := c.GetString(auth.CtxEmail); email != "" {
		return &policy.Caller{Email: email, Role: c.GetString(auth.CtxRole)}
	}
	email := strings.TrimSpace(strings.ToLower(c.Query("email")))
	if email == "" {
		return nil
	}
	user, err := s.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		return nil
	}
	return &policy.Caller{Email: user.Email, Role: user.Role}
}

func (s *Server) requestMeta(c *gin.Context) activity.RequestMeta {
	return activity.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}
