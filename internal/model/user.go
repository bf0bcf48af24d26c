package model

// User 账号表，对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	FullName     string `gorm:"type:varchar(100);not null"                     json:"full_name"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
