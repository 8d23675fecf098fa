/*
 * @module service/models/user
 * @description 用户模型定义，包括角色与权限集合
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 用户创建 -> 角色分配 -> 权限派生
 * @rules 密码只存bcrypt散列；权限列表由角色派生后持久化
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/user/user_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 用户角色常量
const (
	RoleAdmin       = "admin"
	RoleFieldAgent  = "field_agent"
	RoleViewer      = "viewer"
	UserStatusOK    = "active"
	UserStatusFroze = "inactive"
)

// User 用户模型
type User struct {
	ID           string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string           `json:"email" gorm:"not null;unique;size:255" example:"admin@example.com"`
	Name         string           `json:"name" gorm:"not null;size:255" example:"管理员"`
	PasswordHash string           `json:"-" gorm:"not null;size:100"`
	Role         string           `json:"role" gorm:"not null;default:'viewer';size:20" example:"admin"`
	Permissions  JSONBStringArray `json:"permissions" gorm:"type:jsonb"`
	Status       string           `json:"status" gorm:"not null;default:'active';size:20" example:"active"`
	CreatedAt    time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// BeforeCreate 创建前生成UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
