package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/niosh12/ddeducation/internal/model"
)

// PriceRepository 服务费配置数据访问接口
type PriceRepository interface {
	Get(ctx context.Context) (*model.PriceConfig, error)
	Save(ctx context.Context, cfg *model.PriceConfig) error
}

type priceRepo struct {
	db *gorm.DB
}

// NewPriceRepo 创建 PriceRepository 实例
func NewPriceRepo(db *gorm.DB) PriceRepository {
	return &priceRepo{db: db}
}

func (r *priceRepo) Get(ctx context.Context) (*model.PriceConfig, error) {
	var cfg model.PriceConfig
	err := r.db.WithContext(ctx).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save 整行覆盖写入
func (r *priceRepo) Save(ctx context.Context, cfg *model.PriceConfig) error {
	cfg.Singleton = true
	cfg.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "singleton"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_by", "updated_at"}),
		}).
		Create(cfg).Error
}
