package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 目标优先级。
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// Workspace 是聚合根：一个工作区连同其嵌套的目标树作为单条记录整体读写。
//
// Members 与 Goals 以 JSON 列存储，ReplaceGoals 对 goals 列做单行整树覆盖，
// 因此聚合内部不存在半新半旧的中间状态。Owner 为空的记录是历史遗留数据。
type Workspace struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"` // 工作区 ID（UUID）
	Name      string     `gorm:"type:varchar(191);not null" json:"name"`
	Owner     string     `gorm:"type:varchar(191);index" json:"owner"` // 创建者邮箱（小写，可为空）
	Members   MemberList `gorm:"type:json;serializer:json" json:"members"`
	Goals     GoalList   `gorm:"type:json;serializer:json" json:"goals"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// MemberList 成员邮箱集合（小写、无重复，顺序不承载语义）。
type MemberList []string

// GoalList 工作区的目标序列。
type GoalList []Goal

// Goal 目标，独占地属于其工作区。
type Goal struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Priority   string      `json:"priority"` // High / Medium / Low，默认 Medium
	Milestones []Milestone `json:"milestones"`
}

// Milestone 里程碑，独占地属于其目标。
type Milestone struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// Task 任务。ID 在整个工作区聚合内必须稳定且唯一，
// 差异引擎与附件管理都按 ID 在整棵树中定位任务。
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Status      string       `json:"status"` // 自由文本，前端约定 "Not Started" / "In Progress" / "Done"
	AssignedTo  string       `json:"assignedTo"`
	UserStories string       `json:"userStories"`
	StartDate   *time.Time   `json:"startDate,omitempty"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment 任务附件元数据。FileName 是服务端生成的存储名，
// OriginalName 仅用于展示，URL 指向内容存储。
type Attachment struct {
	FileName     string `json:"fileName"`
	OriginalName string `json:"originalName"`
	URL          string `json:"url"`
}

// TaskRef 任务的 (id, title) 快照，用于找不到任务时的诊断信息。
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NormalizeMembers 将成员列表规范化：小写、去空、去重，并强制包含 owner。
func NormalizeMembers(members []string, owner string) MemberList {
	seen := make(map[string]struct{}, len(members)+1)
	out := make(MemberList, 0, len(members)+1)
	add := func(email string) {
		email = strings.TrimSpace(strings.ToLower(email))
		if email == "" {
			return
		}
		if _, ok := seen[email]; ok {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	for _, m := range members {
		add(m)
	}
	add(owner)
	return out
}

// HasMember 判断邮箱是否为工作区成员（大小写不敏感）。
func (w *Workspace) HasMember(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, m := range w.Members {
		if m == email {
			return true
		}
	}
	return false
}

// AddMemberEmail 将邮箱规范化后加入成员列表，返回列表是否发生变化。
// 空邮箱或已是成员时为 no-op（幂等）。
func (w *Workspace) AddMemberEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || w.HasMember(email) {
		return false
	}
	w.Members = append(w.Members, email)
	return true
}

// IsOwner 判断邮箱是否为工作区拥有者。
func (w *Workspace) IsOwner(email string) bool {
	return w.Owner != "" && strings.EqualFold(w.Owner, strings.TrimSpace(email))
}

// WalkTasks 按树序遍历聚合内所有任务，fn 返回 false 时提前终止。
func (g GoalList) WalkTasks(fn func(goal *Goal, milestone *Milestone, task *Task) bool) {
	for gi := range g {
		goal := &g[gi]
		for mi := range goal.Milestones {
			ms := &goal.Milestones[mi]
			for ti := range ms.Tasks {
				if !fn(goal, ms, &ms.Tasks[ti]) {
					return
				}
			}
		}
	}
}

// FindTask 按 ID 在整棵目标树中线性查找任务，返回第一个匹配。
func (w *Workspace) FindTask(taskID string) *Task {
	var found *Task
	w.Goals.WalkTasks(func(_ *Goal, _ *Milestone, t *Task) bool {
		if t.ID == taskID {
			found = t
			return false
		}
		return true
	})
	return found
}

// TaskRefs 收集聚合内全部任务的 (id, title)，上限 max 条（max <= 0 不限制）。
func (w *Workspace) TaskRefs(max int) []TaskRef {
	refs := []TaskRef{}
	w.Goals.WalkTasks(func(_ *Goal, _ *Milestone, t *Task) bool {
		refs = append(refs, TaskRef{ID: t.ID, Title: t.Title})
		return max <= 0 || len(refs) < max
	})
	return refs
}

// AttachmentFileNames 收集聚合内所有附件的存储文件名，用于删除级联清理。
func (w *Workspace) AttachmentFileNames() []string {
	names := []string{}
	w.Goals.WalkTasks(func(_ *Goal, _ *Milestone, t *Task) bool {
		for _, a := range t.Attachments {
			if a.FileName != "" {
				names = append(names, a.FileName)
			}
		}
		return true
	})
	return names
}

// EnsureIDs 为树中缺失 ID 的节点分配新的 UUID，并校验任务 ID 在聚合内唯一。
//
// 客户端必须原样回传服务端分配的任务 ID：整树覆盖语义下，重新生成 ID 会让
// 差异引擎产生虚假的"新指派"，因此重复 ID 被视为校验错误而不是静默接受。
func (g GoalList) EnsureIDs() error {
	seen := make(map[string]string)
	for gi := range g {
		goal := &g[gi]
		if goal.ID == "" {
			goal.ID = uuid.NewString()
		}
		if goal.Priority == "" {
			goal.Priority = PriorityMedium
		}
		for mi := range goal.Milestones {
			ms := &goal.Milestones[mi]
			if ms.ID == "" {
				ms.ID = uuid.NewString()
			}
			for ti := range ms.Tasks {
				task := &ms.Tasks[ti]
				if task.ID == "" {
					task.ID = uuid.NewString()
				}
				if prev, dup := seen[task.ID]; dup {
					return fmt.Errorf("duplicate task id %s (%q and %q)", task.ID, prev, task.Title)
				}
				seen[task.ID] = task.Title
			}
		}
	}
	return nil
}

// ValidPriority 校验目标优先级取值。
func ValidPriority(p string) bool {
	switch p {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}
