package model

// PriceConfig 服务费配置表，对应 price_config（单行，无历史）
type PriceConfig struct {
	Singleton bool    `gorm:"primaryKey;default:true" json:"-"`
	Amount    int64   `gorm:"not null"                json:"amount"`
	UpdatedBy *string `gorm:"type:uuid"               json:"updated_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (PriceConfig) TableName() string { return "price_config" }
