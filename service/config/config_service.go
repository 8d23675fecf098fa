/*
 * @module service/config/config_service
 * @description 配置服务，提供业务层的配置管理功能，按 数据库 -> 环境变量 -> 默认值 的优先级取值
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 服务调用 -> 数据库/环境变量/默认值
 * @rules 确保配置操作的业务逻辑正确性；未配置的键返回默认值而非错误
 * @dependencies incluscore-service/service/models, gorm.io/gorm, github.com/spf13/cast
 * @refs service/cleanup, service/cache
 */

package config

import (
	"fmt"
	"os"
	"strconv"

	"incluscore-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// 配置键与默认值
const (
	ConfigKeyScoreHistoryRetentionDays = "score_history_retention_days"
	ConfigKeyScoreCacheTTLSeconds      = "score_cache_ttl_seconds"
	ConfigKeyHistoryCleanupCron        = "history_cleanup_cron"

	DefaultScoreHistoryRetentionDays = 180
	DefaultScoreCacheTTLSeconds      = 300
	DefaultHistoryCleanupCron        = "0 0 3 * * *" // 每天凌晨3点
)

// ConfigService 配置服务
type ConfigService struct {
	db *gorm.DB
}

// NewConfigService 创建配置服务实例
func NewConfigService(db *gorm.DB) *ConfigService {
	return &ConfigService{db: db}
}

// GetConfig 按优先级获取配置值: 数据库 -> 环境变量(键名大写) -> 错误
func (s *ConfigService) GetConfig(key string) (string, error) {
	var config models.SystemConfig
	if err := s.db.Where("key = ?", key).First(&config).Error; err == nil {
		return config.Value, nil
	}

	if value := os.Getenv(envKey(key)); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("配置项不存在: %s", key)
}

// SetConfig 写入或更新配置
func (s *ConfigService) SetConfig(key, value, description string) error {
	var config models.SystemConfig
	err := s.db.Where("key = ?", key).First(&config).Error
	if err == gorm.ErrRecordNotFound {
		return s.db.Create(&models.SystemConfig{
			ID:          key,
			Key:         key,
			Value:       value,
			Description: description,
		}).Error
	}
	if err != nil {
		return err
	}

	config.Value = value
	if description != "" {
		config.Description = description
	}
	return s.db.Save(&config).Error
}

// GetAllConfigs 获取所有配置项，数据库中不存在的键补充默认值
func (s *ConfigService) GetAllConfigs() ([]models.SystemConfigItem, error) {
	var configs []models.SystemConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("查询配置失败: %w", err)
	}

	items := make([]models.SystemConfigItem, 0, len(configs))
	existingKeys := make(map[string]bool)
	for _, config := range configs {
		items = append(items, models.SystemConfigItem{
			Key:         config.Key,
			Value:       config.Value,
			Description: config.Description,
			ValueType:   "string",
		})
		existingKeys[config.Key] = true
	}

	// 补充默认配置
	if !existingKeys[ConfigKeyScoreHistoryRetentionDays] {
		items = append(items, models.SystemConfigItem{
			Key:         ConfigKeyScoreHistoryRetentionDays,
			Value:       strconv.Itoa(DefaultScoreHistoryRetentionDays),
			Description: "评分历史记录保存天数",
			ValueType:   "int",
		})
	}
	if !existingKeys[ConfigKeyScoreCacheTTLSeconds] {
		items = append(items, models.SystemConfigItem{
			Key:         ConfigKeyScoreCacheTTLSeconds,
			Value:       strconv.Itoa(DefaultScoreCacheTTLSeconds),
			Description: "评分缓存过期秒数",
			ValueType:   "int",
		})
	}
	if !existingKeys[ConfigKeyHistoryCleanupCron] {
		items = append(items, models.SystemConfigItem{
			Key:         ConfigKeyHistoryCleanupCron,
			Value:       DefaultHistoryCleanupCron,
			Description: "评分历史清理任务的cron表达式",
			ValueType:   "string",
		})
	}

	return items, nil
}

// GetScoreHistoryRetentionDays 获取评分历史保留天数
func (s *ConfigService) GetScoreHistoryRetentionDays() int {
	value, err := s.GetConfig(ConfigKeyScoreHistoryRetentionDays)
	if err != nil {
		return DefaultScoreHistoryRetentionDays
	}
	days := cast.ToInt(value)
	if days <= 0 {
		return DefaultScoreHistoryRetentionDays
	}
	return days
}

// GetScoreCacheTTLSeconds 获取评分缓存TTL秒数
func (s *ConfigService) GetScoreCacheTTLSeconds() int {
	value, err := s.GetConfig(ConfigKeyScoreCacheTTLSeconds)
	if err != nil {
		return DefaultScoreCacheTTLSeconds
	}
	ttl := cast.ToInt(value)
	if ttl <= 0 {
		return DefaultScoreCacheTTLSeconds
	}
	return ttl
}

// GetHistoryCleanupCron 获取历史清理任务的cron表达式
func (s *ConfigService) GetHistoryCleanupCron() string {
	value, err := s.GetConfig(ConfigKeyHistoryCleanupCron)
	if err != nil || value == "" {
		return DefaultHistoryCleanupCron
	}
	return value
}

// envKey 配置键到环境变量名的映射: score_history_retention_days -> SCORE_HISTORY_RETENTION_DAYS
func envKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		if r >= 'a' && r <= 'z' {
			r = r - 'a' + 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
