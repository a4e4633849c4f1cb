package model

import "gorm.io/gorm"

// 用户角色
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

// User 用户表，对应 users（学生、教师、管理员共用）
type User struct {
	ID           string `gorm:"type:uuid;primaryKey"                       json:"id"`
	FullName     string `gorm:"type:varchar(100);not null"                 json:"fullName"`
	SchoolID     string `gorm:"type:varchar(30);not null;uniqueIndex"      json:"schoolId"`
	Email        string `gorm:"type:varchar(255)"                          json:"email,omitempty"`
	PasswordHash string `gorm:"type:varchar(255);not null;default:''"      json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'STUDENT'" json:"role"`
	IsActive     bool   `gorm:"not null;default:true"                      json:"isActive"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}
