/*
 * @module service/user/user_service
 * @description 用户管理服务，提供用户创建、查询、角色变更与权限派生，密码使用bcrypt散列存储
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 用户创建 -> 角色分配 -> 权限派生 -> 持久化
 * @rules 明文密码不落库；角色变更时权限列表同步重算
 * @dependencies incluscore-service/service/models, gorm.io/gorm, golang.org/x/crypto/bcrypt
 * @refs service/models/user.go
 */

package user

import (
	"errors"

	"incluscore-service/service/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// rolePermissions 角色到权限列表的闭合映射
var rolePermissions = map[string][]string{
	models.RoleAdmin: {
		"beneficiaries:read", "beneficiaries:write",
		"scoring:simulate", "scoring:update", "scoring:train",
		"users:read", "users:write",
	},
	models.RoleFieldAgent: {
		"beneficiaries:read", "beneficiaries:write",
		"scoring:simulate", "scoring:update",
	},
	models.RoleViewer: {
		"beneficiaries:read", "scoring:simulate",
	},
}

// Service 用户管理服务
type Service struct {
	db *gorm.DB
}

// NewService 创建用户服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create 创建用户，密码以bcrypt散列存储，权限按角色派生
func (s *Service) Create(email, name, password, role string) (*models.User, error) {
	if _, ok := rolePermissions[role]; !ok {
		return nil, errors.New("未知的用户角色: " + role)
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("邮箱已被注册")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Permissions:  rolePermissions[role],
		Status:       models.UserStatusOK,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate 校验邮箱密码，成功时返回用户
func (s *Service) Authenticate(email, password string) (*models.User, error) {
	user, err := s.GetByEmail(email)
	if err != nil {
		return nil, errors.New("用户不存在或密码错误")
	}
	if user.Status != models.UserStatusOK {
		return nil, errors.New("用户已被停用")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errors.New("用户不存在或密码错误")
	}
	return user, nil
}

// GetByID 根据ID获取用户
func (s *Service) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 根据邮箱获取用户
func (s *Service) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List 获取用户列表
func (s *Service) List(limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	var users []models.User
	err := s.db.Order("created_at DESC").Limit(limit).Find(&users).Error
	return users, err
}

// UpdateRole 变更用户角色并重算权限
func (s *Service) UpdateRole(id, role string) error {
	permissions, ok := rolePermissions[role]
	if !ok {
		return errors.New("未知的用户角色: " + role)
	}

	result := s.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"role":        role,
		"permissions": models.JSONBStringArray(permissions),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Deactivate 停用用户
func (s *Service) Deactivate(id string) error {
	result := s.db.Model(&models.User{}).Where("id = ?", id).Update("status", models.UserStatusFroze)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Stats 用户统计：总数与按角色计数
func (s *Service) Stats() (map[string]int64, error) {
	stats := map[string]int64{}

	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, err
	}
	stats["total"] = total

	for role := range rolePermissions {
		var count int64
		if err := s.db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
			return nil, err
		}
		stats[role] = count
	}

	return stats, nil
}

// RolePermissions 返回角色的权限列表
func RolePermissions(role string) []string {
	return rolePermissions[role]
}
