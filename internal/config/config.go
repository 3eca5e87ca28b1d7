package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config 保存应用程序配置。
type Config struct {
	App      AppConfig      `json:"app"`
	MySQL    MySQLConfig    `json:"mysql"`
	Redis    RedisConfig    `json:"redis"`
	Email    EmailConfig    `json:"email"`
	OAuth    OAuthConfig    `json:"oauth"`
	Security SecurityConfig `json:"security"`
}

// AppConfig 应用程序基础配置。
type AppConfig struct {
	Env             string   `json:"env"`                // 运行环境: local / prod
	LogLevel        string   `json:"log_level"`          // 日志级别: debug / info / warn / error
	HTTPAddr        string   `json:"http_addr"`          // API 服务监听地址
	FrontendURL     string   `json:"frontend_url"`       // 前端地址（OAuth 回跳用）
	UploadDir       string   `json:"upload_dir"`         // 附件落盘目录
	MaxUploadBytes  int64    `json:"max_upload_bytes"`   // 附件大小上限（字节）
	AdminEmails     []string `json:"admin_emails"`       // 管理员邮箱白名单（登录时自动提权）
	WorkerPoolSize  int      `json:"worker_pool_size"`   // 副作用队列 worker 数
	QueueCapacity   int      `json:"queue_capacity"`     // 副作用队列容量
	RateLimit       float64  `json:"rate_limit"`         // 登录/注册限流速率（token/s）
	RateBurst       float64  `json:"rate_burst"`         // 限流桶容量
	TaskRefDebugCap int      `json:"task_ref_debug_cap"` // 任务 404 诊断信息最大条数
}

// MySQLConfig MySQL 数据库配置。
type MySQLConfig struct {
	DSN string `json:"dsn"` // 数据库连接字符串
}

// RedisConfig Redis 配置（登录限流用）。
type RedisConfig struct {
	Addr     string `json:"addr"`     // Redis 地址 (host:port)
	Password string `json:"password"` // Redis 密码
}

// EmailConfig 邮件通知配置。
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	SMTPUser  string `json:"smtp_user"`
	SMTPPass  string `json:"smtp_pass"`
	FromEmail string `json:"from_email"`
}

// OAuthConfig Google OAuth 配置。
type OAuthConfig struct {
	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GoogleRedirectURL  string `json:"google_redirect_url"` // 回调地址（如 http://localhost:5000/auth/google/callback）
}

// SecurityConfig 安全相关配置。
type SecurityConfig struct {
	SessionSecret string `json:"session_secret"` // 会话 JWT 签名密钥
}

// Load 从 JSON 文件加载配置。
//
// 优先读取 configs/config.json，文件不存在时使用默认值；
// 不论哪条路径，环境变量都会覆盖对应字段。
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// IsAdminEmail 判断邮箱是否在管理员白名单中（大小写不敏感）。
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return false
	}
	for _, admin := range c.App.AdminEmails {
		if strings.ToLower(strings.TrimSpace(admin)) == email {
			return true
		}
	}
	return false
}

// getDefaultConfig 返回默认配置。
func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:             "local",
			LogLevel:        "info",
			HTTPAddr:        ":5000",
			FrontendURL:     "http://localhost:3000",
			UploadDir:       "uploads",
			MaxUploadBytes:  10 << 20, // 10 MB
			WorkerPoolSize:  8,
			QueueCapacity:   256,
			RateLimit:       3,
			RateBurst:       5,
			TaskRefDebugCap: 10,
		},
		MySQL: MySQLConfig{
			DSN: "root:password@tcp(localhost:3306)/teamspace?parseTime=true&loc=Local",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
		},
		Email: EmailConfig{
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  587,
			SMTPUser:  "",
			SMTPPass:  "",
			FromEmail: "",
		},
		OAuth: OAuthConfig{
			GoogleRedirectURL: "http://localhost:5000/auth/google/callback",
		},
		Security: SecurityConfig{
			SessionSecret: "dev_secret_change_me",
		},
	}
}

// applyDefaults 对未设置的字段应用默认值。
func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.FrontendURL == "" {
		cfg.App.FrontendURL = defaults.App.FrontendURL
	}
	if cfg.App.UploadDir == "" {
		cfg.App.UploadDir = defaults.App.UploadDir
	}
	if cfg.App.MaxUploadBytes == 0 {
		cfg.App.MaxUploadBytes = defaults.App.MaxUploadBytes
	}
	if cfg.App.WorkerPoolSize == 0 {
		cfg.App.WorkerPoolSize = defaults.App.WorkerPoolSize
	}
	if cfg.App.QueueCapacity == 0 {
		cfg.App.QueueCapacity = defaults.App.QueueCapacity
	}
	if cfg.App.RateLimit == 0 {
		cfg.App.RateLimit = defaults.App.RateLimit
	}
	if cfg.App.RateBurst == 0 {
		cfg.App.RateBurst = defaults.App.RateBurst
	}
	if cfg.App.TaskRefDebugCap == 0 {
		cfg.App.TaskRefDebugCap = defaults.App.TaskRefDebugCap
	}
	if cfg.MySQL.DSN == "" {
		cfg.MySQL.DSN = defaults.MySQL.DSN
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = defaults.Redis.Addr
	}
	if cfg.Email.SMTPHost == "" {
		cfg.Email.SMTPHost = defaults.Email.SMTPHost
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaults.Email.SMTPPort
	}
	if cfg.OAuth.GoogleRedirectURL == "" {
		cfg.OAuth.GoogleRedirectURL = defaults.OAuth.GoogleRedirectURL
	}
	if cfg.Security.SessionSecret == "" {
		cfg.Security.SessionSecret = defaults.Security.SessionSecret
	}
}

func applyEnvOverrides(cfg *Config) {
	viper.AutomaticEnv()

	_ = viper.BindEnv("db_dsn", "DB_DSN")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("smtp_pass", "SMTP_PASS")
	_ = viper.BindEnv("session_secret", "SESSION_SECRET")
	_ = viper.BindEnv("google_client_id", "GOOGLE_CLIENT_ID")
	_ = viper.BindEnv("google_client_secret", "GOOGLE_CLIENT_SECRET")

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("APP_HTTP_ADDR"); v != "" {
		cfg.App.HTTPAddr = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.App.FrontendURL = v
	}
	if v := os.Getenv("APP_UPLOAD_DIR"); v != "" {
		cfg.App.UploadDir = v
	}
	if v := os.Getenv("APP_MAX_UPLOAD_BYTES"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil && i > 0 {
			cfg.App.MaxUploadBytes = i
		}
	}
	// 逗号分隔的管理员白名单
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		emails := []string{}
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				emails = append(emails, e)
			}
		}
		cfg.App.AdminEmails = emails
	}
	if v := os.Getenv("APP_WORKER_POOL_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.WorkerPoolSize = i
		}
	}
	if v := os.Getenv("APP_QUEUE_CAPACITY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.QueueCapacity = i
		}
	}
	if v := os.Getenv("APP_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateLimit = f
		}
	}
	if v := os.Getenv("APP_RATE_BURST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateBurst = f
		}
	}

	if v := viper.GetString("db_dsn"); v != "" {
		cfg.MySQL.DSN = v
	}
	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTPPort = i
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.SMTPUser = v
	}
	if v := viper.GetString("smtp_pass"); v != "" {
		cfg.Email.SMTPPass = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Email.FromEmail = v
	}

	if v := viper.GetString("google_client_id"); v != "" {
		cfg.OAuth.GoogleClientID = v
	}
	if v := viper.GetString("google_client_secret"); v != "" {
		cfg.OAuth.GoogleClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URL"); v != "" {
		cfg.OAuth.GoogleRedirectURL = v
	}

	if v := viper.GetString("session_secret"); v != "" {
		cfg.Security.SessionSecret = v
	}
}
