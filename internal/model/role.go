package model

// 角色取值
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// RoleAssignment 角色表，对应 roles，无记录视同 student
type RoleAssignment struct {
	UserID    string  `gorm:"type:uuid;primaryKey"                        json:"user_id"`
	Role      string  `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	UpdatedBy *string `gorm:"type:uuid"                                   json:"updated_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (RoleAssignment) TableName() string { return "roles" }
