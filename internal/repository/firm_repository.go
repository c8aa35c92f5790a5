package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"prima-facie-go/internal/model"
	"prima-facie-go/pkg/log"
)

// FirmRepository reads tenants and their typed settings.
type FirmRepository interface {
	Find(ctx context.Context, lawFirmID string) (*model.LawFirm, error)
	Settings(ctx context.Context, lawFirmID string) (model.FirmSettings, error)
	UpdateSettings(ctx context.Context, lawFirmID string, settings model.FirmSettings) error
}

type firmRepository struct {
	db    *gorm.DB
	cache *redis.Client
	ttl   time.Duration
}

// NewFirmRepository builds the repository. A nil redis client disables caching.
func NewFirmRepository(db *gorm.DB, cache *redis.Client, ttl time.Duration) FirmRepository {
	return &firmRepository{db: db, cache: cache, ttl: ttl}
}

func settingsKey(lawFirmID string) string {
	return fmt.Sprintf("firm:%s:settings", lawFirmID)
}

func (r *firmRepository) Find(ctx context.Context, lawFirmID string) (*model.LawFirm, error) {
	var firm model.LawFirm
	if err := r.db.WithContext(ctx).Where("id = ?", lawFirmID).First(&firm).Error; err != nil {
		return nil, err
	}
	return &firm, nil
}

// Settings returns the parsed settings, served from redis when possible.
func (r *firmRepository) Settings(ctx context.Context, lawFirmID string) (model.FirmSettings, error) {
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, settingsKey(lawFirmID)).Bytes()
		switch {
		case err == nil:
			if s, perr := model.ParseFirmSettings(raw); perr == nil {
				return s, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Warnf("firm settings cache read failed, lawFirmId=%s: %v", lawFirmID, err)
		}
	}

	firm, err := r.Find(ctx, lawFirmID)
	if err != nil {
		return model.FirmSettings{}, err
	}
	settings, err := model.ParseFirmSettings(firm.Settings)
	if err != nil {
		return model.FirmSettings{}, err
	}

	if r.cache != nil {
		if b, merr := json.Marshal(settings); merr == nil {
			if err := r.cache.Set(ctx, settingsKey(lawFirmID), b, r.ttl).Err(); err != nil {
				log.Warnf("firm settings cache write failed, lawFirmId=%s: %v", lawFirmID, err)
			}
		}
	}
	return settings, nil
}

func (r *firmRepository) UpdateSettings(ctx context.Context, lawFirmID string, settings model.FirmSettings) error {
	settings.Version = model.CurrentSettingsVersion
	b, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal firm settings: %w", err)
	}
	err = r.db.WithContext(ctx).Model(&model.LawFirm{}).
		Where("id = ?", lawFirmID).
		Update("settings", datatypes.JSON(b)).Error
	if err != nil {
		return err
	}
	if r.cache != nil {
		if err := r.cache.Del(ctx, settingsKey(lawFirmID)).Err(); err != nil {
			log.Warnf("firm settings cache invalidation failed, lawFirmId=%s: %v", lawFirmID, err)
		}
	}
	return nil
}
