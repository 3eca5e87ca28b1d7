package store

import (
	"errors"
	"fmt"

	"teamspace/internal/model"
)

// 存储层哨兵错误。
var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already exists")
	// ErrMemberNotVerified 目标用户没有已验证的外部身份（从未完成 Google 登录）。
	ErrMemberNotVerified = errors.New("user must sign in with Google first")
)

// TaskNotFoundError 在整棵目标树中找不到指定任务时返回。
//
// Known 携带聚合内已存在任务的 (id, title) 快照（有上限），
// 用于排查客户端回传了过期或自造任务 ID 的情况。
type TaskNotFoundError struct {
	WorkspaceID string
	TaskID      string
	Known       []model.TaskRef
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %s not found in workspace %s (%d known tasks)",
		e.TaskID, e.WorkspaceID, len(e.Known))
}
