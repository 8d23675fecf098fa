/*
 * @module service/models/system_config
 * @description 系统配置模型，用于存储应用程序运行期可调配置
 * @architecture 数据模型层
 * @documentReference dev_docs/model.md
 * @stateFlow 配置存储 -> 配置读取 -> 配置更新
 * @rules 确保配置数据的安全性和一致性
 * @dependencies gorm.io/gorm
 * @refs service/config/config_service.go
 */

package models

import (
	"time"
)

// SystemConfig 系统配置模型
type SystemConfig struct {
	ID          string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Key         string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"key"`
	Value       string    `gorm:"type:text;not null" json:"value"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (SystemConfig) TableName() string {
	return "system_configs"
}

// SystemConfigItem 配置项视图，含类型提示
type SystemConfigItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	ValueType   string `json:"value_type"`
}
