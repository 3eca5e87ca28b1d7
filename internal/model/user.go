package model

import "time"

// 用户角色。
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 表示系统用户。
//
// Email 全部以小写存储并作为唯一登录标识。GoogleID 在用户完成过一次
// Google OAuth 登录后才会被填充，成员邀请会以它作为"已验证身份"的依据。
type User struct {
	ID        uint      `gorm:"primaryKey"`                    // 用户 ID
	Name      string    `gorm:"type:varchar(191)"`             // 显示名称
	Email     string    `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（唯一，小写）
	Password  string    // bcrypt 哈希；纯 OAuth 账号落库的是占位值，无法通过密码登录
	GoogleID  *string   `gorm:"type:varchar(191);index"`       // Google OAuth 标识，nil 表示从未用 Google 登录
	Role      string    `gorm:"type:varchar(16);default:user"` // 角色: user / admin
	CreatedAt time.Time // 创建时间
}

// IsAdmin 判断用户是否为管理员。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasVerifiedIdentity 判断用户是否具备已验证的外部身份。
//
// 只有完成过 Google 登录（GoogleID 非空）的用户才能被邀请进工作区。
func (u *User) HasVerifiedIdentity() bool {
	return u != nil && u.GoogleID != nil && *u.GoogleID != ""
}
