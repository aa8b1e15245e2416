package model

// 用户角色
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
)

// User 用户表，管理员与讲师共用，按 role 区分
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'instructor'" json:"role"`
	Expertise    string `gorm:"type:varchar(200)"                              json:"expertise,omitempty"`
	ImageURL     string `gorm:"type:varchar(500)"                              json:"image_url,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsInstructor 是否为讲师
func (u *User) IsInstructor() bool { return u.Role == RoleInstructor }
