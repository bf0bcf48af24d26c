package dto

// ── 认证模块 DTO ──

// RegisterRequest 学生注册请求
type RegisterRequest struct {
	Email    string `json:"email"     binding:"required,email,max=255"`
	Password string `json:"password"  binding:"required,min=8,max=64"`
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
	Class    string `json:"class"     binding:"required,oneof=10th 12th"`
}

// LoginRequest 登录请求（学生与管理员共用）
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest 登出请求，可携带 Refresh Token 一并作废
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AssignRoleRequest 授予 / 撤销管理员
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin student"`
}
