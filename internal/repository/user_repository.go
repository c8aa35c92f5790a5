// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"

	"gorm.io/gorm"

	"prima-facie-go/internal/model"
)

// ProfileRepository 接口定义了用户资料的读取操作。
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	FindInFirm(ctx context.Context, lawFirmID, id string) (*model.Profile, error)
	FirstOfTypes(ctx context.Context, lawFirmID string, types []model.UserType) (*model.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建一个新的 ProfileRepository 实例。
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// FindByID looks a profile up by the auth subject. It is the one query that is
// not tenant-filtered: the tenant is read from the row it returns.
func (r *profileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) FindInFirm(ctx context.Context, lawFirmID, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND id = ?", lawFirmID, id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FirstOfTypes returns the oldest profile of one of the given types, or nil.
func (r *profileRepository) FirstOfTypes(ctx context.Context, lawFirmID string, types []model.UserType) (*model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Where("law_firm_id = ? AND user_type IN ?", lawFirmID, types).
		Order("created_at ASC").
		Limit(1).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}
