package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"teamspace/internal/config"
	"teamspace/internal/model"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookie    = "teamspace_oauth_state"
	userinfoURL    = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateCookieAge = 300 // 秒

	// Google 账号没有本地密码，落库时写入占位值。
	googleOAuthPassword = "google-oauth"
)

// googleFlow 封装 Google OAuth2 授权码流程。
type googleFlow struct {
	cfg *oauth2.Config
}

func newGoogleFlow(oc *config.OAuthConfig) *googleFlow {
	return &googleFlow{
		cfg: &oauth2.Config{
			ClientID:     oc.GoogleClientID,
			ClientSecret: oc.GoogleClientSecret,
			RedirectURL:  oc.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *googleFlow) configured() bool {
	return g.cfg.ClientID != "" && g.cfg.ClientSecret != ""
}

type googleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (g *googleFlow) fetchProfile(c *gin.Context, code string) (*googleProfile, error) {
	ctx := c.Request.Context()
	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	resp, err := g.cfg.Client(ctx, token).Get(userinfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("userinfo request failed: " + resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var profile googleProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, err
	}
	if profile.Email == "" || profile.ID == "" {
		return nil, errors.New("userinfo response missing email or id")
	}
	return &profile, nil
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GoogleRedirect 发起 Google 授权跳转。
func (h *Handler) GoogleRedirect(c *gin.Context) {
	if !h.google.configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Google OAuth is not configured"})
		return
	}
	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "generate state failed"})
		return
	}
	c.SetCookie(stateCookie, state, stateCookieAge, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.google.cfg.AuthCodeURL(state))
}

// GoogleCallback 处理 Google 回调：换取令牌、落库用户、建立会话后回跳前端。
//
// 同邮箱的密码账号会被关联 GoogleID 而不是重复创建。
func (h *Handler) GoogleCallback(c *gin.Context) {
	wantState, err := c.Cookie(stateCookie)
	if err != nil || wantState == "" || c.Query("state") != wantState {
		h.logger.Warn("oauth state mismatch", slog.String("ip", c.ClientIP()))
		h.redirectWithError(c, "oauth_state_mismatch")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		h.redirectWithError(c, "oauth_denied")
		return
	}

	profile, err := h.google.fetchProfile(c, code)
	if err != nil {
		h.logger.Error("google token exchange failed", slog.String("error", err.Error()))
		h.redirectWithError(c, "oauth_exchange_failed")
		return
	}

	user, isNew, err := h.resolveGoogleUser(c, profile)
	if err != nil {
		h.logger.Error("resolve google user failed", slog.String("email", profile.Email), slog.String("error", err.Error()))
		h.redirectWithError(c, "oauth_user_failed")
		return
	}

	if h.cfg.IsAdminEmail(user.Email) && user.Role != model.RoleAdmin {
		if err := h.users.PromoteToAdmin(c.Request.Context(), user); err != nil {
			h.logger.Error("admin promotion failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		}
	}

	if err := h.establishSession(c, user); err != nil {
		h.redirectWithError(c, "session_failed")
		return
	}

	actType := model.ActivityLogin
	desc := "User logged in via Google"
	if isNew {
		actType = model.ActivitySignup
		desc = "New user registered via Google: " + user.Name
	}
	h.activity.Record(actType, user.Email, desc,
		map[string]interface{}{"role": user.Role, "loginMethod": "google_oauth"},
		reqMeta(c))

	target := h.cfg.App.FrontendURL + "/dashboard"
	if user.IsAdmin() {
		target = h.cfg.App.FrontendURL + "/admin"
	}
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// resolveGoogleUser 按 GoogleID、再按邮箱查找用户，都未命中时创建新账号。
func (h *Handler) resolveGoogleUser(c *gin.Context, profile *googleProfile) (*model.User, bool, error) {
	ctx := c.Request.Context()
	email := strings.TrimSpace(strings.ToLower(profile.Email))

	if user, err := h.users.GetByGoogleID(ctx, profile.ID); err == nil {
		return user, false, nil
	}

	if user, err := h.users.GetByEmail(ctx, email); err == nil {
		if err := h.users.LinkGoogleID(ctx, user, profile.ID, profile.Name); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	role := model.RoleUser
	if h.cfg.IsAdminEmail(email) {
		role = model.RoleAdmin
	}
	googleID := profile.ID
	user := &model.User{
		Name:     profile.Name,
		Email:    email,
		Password: googleOAuthPassword,
		GoogleID: &googleID,
		Role:     role,
	}
	if err := h.users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (h *Handler) redirectWithError(c *gin.Context, reason string) {
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.App.FrontendURL+"/signin?error="+reason)
}
