package store

import (
	"context"
	"errors"
	"strings"

	"teamspace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkspaceStore 以整聚合为单位读写工作区。
//
// goals 与 members 存储在工作区行的 JSON 列中，所有覆盖写都是单行 UPDATE，
// 这就是聚合的原子性边界：并发写以后写者胜出（整树 last-write-wins）。
type WorkspaceStore struct {
	db *gorm.DB
}

// NewWorkspaceStore 创建工作区存储。
func NewWorkspaceStore(db *gorm.DB) *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

// Get 按 ID 读取完整聚合。
func (s *WorkspaceStore) Get(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace
	if err := s.db.WithContext(ctx).First(&ws, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, err
	}
	return &ws, nil
}

// Create 创建工作区：成员规范化为小写并去重，owner 强制并入成员列表。
func (s *WorkspaceStore) Create(ctx context.Context, name, ownerEmail string, members []string, goals model.GoalList) (*model.Workspace, error) {
	if goals == nil {
		goals = model.GoalList{}
	}
	if err := goals.EnsureIDs(); err != nil {
		return nil, err
	}
	ws := &model.Workspace{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Owner:   strings.TrimSpace(strings.ToLower(ownerEmail)),
		Members: model.NormalizeMembers(members, ownerEmail),
		Goals:   goals,
	}
	if err := s.db.WithContext(ctx).Create(ws).Error; err != nil {
		return nil, err
	}
	return ws, nil
}

// ReplaceGoals 对 goals 列做整树覆盖写：调用方必须提交完整的期望树，
// 不做任何字段级合并。返回覆盖后的聚合。
func (s *WorkspaceStore) ReplaceGoals(ctx context.Context, id string, goals model.GoalList) (*model.Workspace, error) {
	if goals == nil {
		goals = model.GoalList{}
	}
	if err := goals.EnsureIDs(); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Model(&model.Workspace{}).
		Where("id = ?", id).
		Update("goals", goals)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// RowsAffected 为 0 也可能是写入了相同内容，确认行是否存在
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Workspace{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrWorkspaceNotFound
		}
	}
	return s.Get(ctx, id)
}

// Save 整体落盘一个已经在内存中修改过的聚合（附件增删路径使用）。
func (s *WorkspaceStore) Save(ctx context.Context, ws *model.Workspace) error {
	return s.db.WithContext(ctx).Save(ws).Error
}

// Delete 删除工作区文档，返回删除前收集到的全部附件文件名，
// 供调用方驱动内容存储的级联清理。
func (s *WorkspaceStore) Delete(ctx context.Context, id string) ([]string, error) {
	ws, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fileNames := ws.AttachmentFileNames()

	if err := s.db.WithContext(ctx).Delete(&model.Workspace{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return fileNames, nil
}

// inviteeGate 成员邀请门槛：被邀请邮箱必须对应一个完成过 Google 登录
// （GoogleID 非空）的已注册用户。user/lookupErr 为按邮箱查找的结果。
func inviteeGate(user *model.User, lookupErr error) error {
	if lookupErr != nil {
		if errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return ErrMemberNotVerified
		}
		return lookupErr
	}
	if !user.HasVerifiedIdentity() {
		return ErrMemberNotVerified
	}
	return nil
}

// AddMember 将邮箱加入成员列表。
//
// 门槛见 inviteeGate；已是成员时为幂等 no-op。
func (s *WorkspaceStore) AddMember(ctx context.Context, id, email string) (*model.Workspace, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if gateErr := inviteeGate(&user, err); gateErr != nil {
		return nil, gateErr
	}

	ws, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ws.AddMemberEmail(email) {
		return ws, nil
	}

	if err := s.db.WithContext(ctx).
		Model(&model.Workspace{}).
		Where("id = ?", id).
		Update("members", ws.Members).Error; err != nil {
		return nil, err
	}
	return ws, nil
}

// ListForMember 返回邮箱作为成员出现的全部工作区。
func (s *WorkspaceStore) ListForMember(ctx context.Context, email string) ([]model.Workspace, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	workspaces := []model.Workspace{}
	if err := s.db.WithContext(ctx).
		Where("JSON_CONTAINS(members, JSON_QUOTE(?))", email).
		Order("created_at DESC").
		Find(&workspaces).Error; err != nil {
		return nil, err
	}
	return workspaces, nil
}

// ListAll 返回全部工作区（管理端用）。
func (s *WorkspaceStore) ListAll(ctx context.Context) ([]model.Workspace, error) {
	workspaces := []model.Workspace{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&workspaces).Error; err != nil {
		return nil, err
	}
	return workspaces, nil
}
