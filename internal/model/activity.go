package model

import (
	"time"

	"gorm.io/datatypes"
)

// 活动类型标签。
const (
	ActivityLogin             = "login"
	ActivitySignup            = "signup"
	ActivityProfileUpdate     = "profile_update"
	ActivityWorkspaceCreated  = "workspace_created"
	ActivityWorkspaceUpdated  = "workspace_updated"
	ActivityWorkspaceDeleted  = "workspace.deleted"
	ActivityMemberAdded       = "member_added"
	ActivityFileUploaded      = "file_uploaded"
	ActivityAttachmentRemoved = "task.attachment_removed"
)

// Activity 是只追加的审计记录，核心逻辑既不修改也不删除它。
//
// Actor 是触发者邮箱，系统触发的记录写 "system"。
type Activity struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Type        string            `gorm:"type:varchar(64);index;not null" json:"type"`
	Actor       string            `gorm:"type:varchar(191);index;not null" json:"actor"`
	Description string            `gorm:"type:varchar(512)" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Timestamp   time.Time         `gorm:"index" json:"timestamp"`
	IP          string            `gorm:"type:varchar(64)" json:"ip"`
	UserAgent   string            `gorm:"type:varchar(256)" json:"userAgent"`
}
