package api

import (
	"context"
	"errors"

	"teamspace/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemoData 初始化演示数据：白名单首个管理员账号与一个示例工作区。
//
// 幂等：已存在的记录不会重复创建。
func (s *Server) SeedDemoData(ctx context.Context) error {
	if len(s.cfg.App.AdminEmails) == 0 {
		return nil
	}
	adminEmail := s.cfg.App.AdminEmails[0]

	var admin model.User
	err := s.db.WithContext(ctx).Where("email = ?", adminEmail).First(&admin).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte("change-me-now"), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		admin = model.User{
			Name:     "Administrator",
			Email:    adminEmail,
			Password: string(hash),
			Role:     model.RoleAdmin,
		}
		if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
			return err
		}
	} else if admin.Role != model.RoleAdmin {
		if err := s.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", admin.ID).
			Update("role", model.RoleAdmin).Error; err != nil {
			return err
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Workspace{}).
		Where("owner = ?", adminEmail).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	demo := &model.Workspace{
		ID:      uuid.NewString(),
		Name:    "Getting Started",
		Owner:   adminEmail,
		Members: model.NormalizeMembers(nil, adminEmail),
		Goals: model.GoalList{
			{
				ID:       uuid.NewString(),
				Title:    "Explore Teamspace",
				Priority: model.PriorityHigh,
				Milestones: []model.Milestone{
					{
						ID:    uuid.NewString(),
						Title: "First steps",
						Tasks: []model.Task{
							{
								ID:     uuid.NewString(),
								Title:  "Invite a teammate",
								Status: "Not Started",
							},
							{
								ID:     uuid.NewString(),
								Title:  "Assign your first task",
								Status: "Not Started",
							},
						},
					},
				},
			},
		},
	}
	return s.db.WithContext(ctx).Create(demo).Error
}
