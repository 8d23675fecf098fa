/*
 * @module service/cache/score_cache
 * @description 评分结果Redis缓存，缓存受益人最新评分避免重复推理，模型变更时整体失效
 * @architecture 工具层 - 缓存能力
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 查询缓存 -> 未命中则推理并回填 -> 模型更新后失效
 * @rules 未配置REDIS_HOST时缓存为空操作；缓存故障不影响评分主流程
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/init.go, api/controllers/scoring_controller.go
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

const scoreKeyPrefix = "incluscore:score:"

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// CachedScore 缓存的评分结果
type CachedScore struct {
	Score       int     `json:"score"`
	Probability float64 `json:"probability"`
	RiskNeed    string  `json:"risk_need"`
	CachedAt    string  `json:"cached_at"`
}

// ScoreCache 评分结果缓存
type ScoreCache struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
}

// NewScoreCache 创建评分缓存，Redis未配置或不可达时返回空操作缓存
func NewScoreCache(ttl time.Duration) *ScoreCache {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		slog.Info("未配置REDIS_HOST，评分缓存已禁用")
		return &ScoreCache{enabled: false, ttl: ttl}
	}

	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis连接失败，评分缓存已禁用", "error", err)
		return &ScoreCache{enabled: false, ttl: ttl}
	}

	slog.Info("评分缓存初始化成功", "redis_host", host, "redis_port", port, "ttl", ttl)
	return &ScoreCache{client: client, ttl: ttl, enabled: true}
}

// Enabled 返回缓存是否启用
func (c *ScoreCache) Enabled() bool {
	return c.enabled
}

// Get 读取受益人的缓存评分，未命中返回nil
func (c *ScoreCache) Get(ctx context.Context, beneficiaryID string) (*CachedScore, error) {
	if !c.enabled {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, scoreKeyPrefix+beneficiaryID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached CachedScore
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// Set 写入受益人的评分缓存
func (c *ScoreCache) Set(ctx context.Context, beneficiaryID string, score *CachedScore) error {
	if !c.enabled {
		return nil
	}

	payload, err := json.Marshal(score)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, scoreKeyPrefix+beneficiaryID, payload, c.ttl).Err()
}

// Invalidate 删除单个受益人的评分缓存
func (c *ScoreCache) Invalidate(ctx context.Context, beneficiaryID string) error {
	if !c.enabled {
		return nil
	}
	return c.client.Del(ctx, scoreKeyPrefix+beneficiaryID).Err()
}

// InvalidateAll 清空全部评分缓存，模型重训或增量更新后调用
func (c *ScoreCache) InvalidateAll(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	iter := c.client.Scan(ctx, 0, scoreKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close 关闭Redis连接
func (c *ScoreCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
