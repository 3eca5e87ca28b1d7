package store

import (
	"context"
	"errors"
	"strings"

	"teamspace/internal/model"

	"gorm.io/gorm"
)

// UserStore 用户表的读写。
type UserStore struct {
	db *gorm.DB
}

// NewUserStore 创建用户存储。
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// GetByEmail 按邮箱（小写）查找用户。
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByGoogleID 按 Google 标识查找用户。
func (s *UserStore) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("google_id = ?", googleID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建用户，邮箱冲突返回 ErrEmailTaken。
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.TrimSpace(strings.ToLower(user.Email))
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// UpdateName 更新显示名称，用户不存在时创建（历史接口的 upsert 语义）。
func (s *UserStore) UpdateName(ctx context.Context, email, name string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	user, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		user = &model.User{Email: email, Name: name, Role: model.RoleUser}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, err
		}
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("name", name).Error; err != nil {
		return nil, err
	}
	user.Name = name
	return user, nil
}

// PromoteToAdmin 将用户提升为管理员；已是管理员时不产生写入（幂等）。
func (s *UserStore) PromoteToAdmin(ctx context.Context, user *model.User) error {
	if user.Role == model.RoleAdmin {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", model.RoleAdmin).Error; err != nil {
		return err
	}
	user.Role = model.RoleAdmin
	return nil
}

// LinkGoogleID 把 Google 标识绑定到既有账号（密码注册后首次 OAuth 的合并路径）。
func (s *UserStore) LinkGoogleID(ctx context.Context, user *model.User, googleID, displayName string) error {
	updates := map[string]interface{}{"google_id": googleID}
	if user.Name == "" && displayName != "" {
		updates["name"] = displayName
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return err
	}
	user.GoogleID = &googleID
	if user.Name == "" {
		user.Name = displayName
	}
	return nil
}

// ListAll 返回全部用户（管理端用）。
func (s *UserStore) ListAll(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
