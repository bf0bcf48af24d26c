package dto

// ── 服务费模块 DTO ──

// UpdatePriceRequest 更新服务费
type UpdatePriceRequest struct {
	Amount *int64 `json:"amount" binding:"required,max=10000000"`
}

// PriceResponse 服务费
type PriceResponse struct {
	Amount    int64  `json:"amount"` // INR
	Currency  string `json:"currency"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CatalogResponse 学段科目目录
type CatalogResponse struct {
	Class    string   `json:"class"`
	Subjects []string `json:"subjects"`
	Sessions []string `json:"sessions"`
}
