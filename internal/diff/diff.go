// Package diff 比较同一工作区聚合的前后两份快照，检测任务指派变化。
package diff

import (
	"strings"
	"time"

	"teamspace/internal/model"
)

// AssignmentChange 表示一次任务指派变化（新指派或改派）。
type AssignmentChange struct {
	TaskID      string
	TaskTitle   string
	OldAssignee string
	NewAssignee string
	DueDate     *time.Time
}

// Changes 对比新旧两份工作区快照，返回全部指派变化。
//
// 规则：按任务 ID 对齐两棵树，当且仅当新快照中的 assignedTo（去除首尾空白）
// 非空且与旧值不同的任务产生一条变化；旧快照中不存在的任务视为旧值为空串，
// 因此带指派创建的新任务也会触发。取消指派（新值为空）不触发。
//
// 该对齐完全依赖任务 ID 在整树覆盖写前后保持稳定：客户端若为无关任务
// 重新生成 ID，会制造虚假的"新指派"。
func Changes(oldWorkspace, newWorkspace *model.Workspace) []AssignmentChange {
	// 旧快照只需要任务 ID → 指派人的映射，标题与截止日期取自新任务
	old := make(map[string]string)
	if oldWorkspace != nil {
		oldWorkspace.Goals.WalkTasks(func(_ *model.Goal, _ *model.Milestone, t *model.Task) bool {
			old[t.ID] = t.AssignedTo
			return true
		})
	}

	var changes []AssignmentChange
	if newWorkspace == nil {
		return changes
	}
	newWorkspace.Goals.WalkTasks(func(_ *model.Goal, _ *model.Milestone, t *model.Task) bool {
		newAssignee := strings.TrimSpace(t.AssignedTo)
		oldAssignee := strings.TrimSpace(old[t.ID])
		if newAssignee != "" && newAssignee != oldAssignee {
			changes = append(changes, AssignmentChange{
				TaskID:      t.ID,
				TaskTitle:   t.Title,
				OldAssignee: oldAssignee,
				NewAssignee: newAssignee,
				DueDate:     t.EndDate,
			})
		}
		return true
	})
	return changes
}
