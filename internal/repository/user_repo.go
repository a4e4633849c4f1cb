package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetBySchoolID(ctx context.Context, schoolID string) (*model.User, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetBySchoolID(ctx context.Context, schoolID string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
