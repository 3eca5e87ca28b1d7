// Package policy 是纯粹的访问控制决策函数，不做任何 I/O。
package policy

import "teamspace/internal/model"

// Operation 访问控制涉及的操作。
type Operation int

const (
	OpReadWorkspace Operation = iota // 读取工作区内容
	OpUpdateGoals                    // 整树覆盖 goals
	OpAddMember                      // 添加成员
	OpDeleteWorkspace                // 删除工作区
	OpViewAdmin                      // 查看管理端列表/统计
)

// Caller 已解析的调用者身份。
type Caller struct {
	Email string
	Role  string
}

// IsAdmin 判断调用者是否为管理员。
func (c *Caller) IsAdmin() bool {
	return c != nil && c.Role == model.RoleAdmin
}

// Allow 判定调用者能否对工作区执行操作。
//
// 决策规则（历史实现对成员编辑权限的检查不一致，这里统一为显式策略）：
//   - 管理员可以执行任何操作；
//   - 任何成员都可以读取、编辑 goals 树、添加成员；
//   - 删除工作区仅限拥有者与管理员；
//   - 未认证调用者（caller == nil）拒绝一切。
//
// ws 为 nil 只对 OpViewAdmin 合法（管理端操作不针对具体工作区）。
func Allow(caller *Caller, ws *model.Workspace, op Operation) bool {
	if caller == nil || caller.Email == "" {
		return false
	}
	if caller.IsAdmin() {
		return true
	}

	switch op {
	case OpViewAdmin:
		return false
	case OpReadWorkspace, OpUpdateGoals, OpAddMember:
		return ws != nil && ws.HasMember(caller.Email)
	case OpDeleteWorkspace:
		return ws != nil && ws.IsOwner(caller.Email)
	}
	return false
}
