/*
 * @module service/config/config_service_test
 * @description 配置服务单元测试，覆盖数据库/环境变量优先级、默认值补充和类型化读取
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 内存数据库初始化 -> 服务调用 -> 断言
 * @rules 使用内存SQLite保证测试隔离
 * @dependencies testing, github.com/stretchr/testify
 * @refs service/config/config_service.go
 */

package config

import (
	"testing"

	"incluscore-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *ConfigService {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return NewConfigService(tdb.DB)
}

func TestConfigService_GetSet(t *testing.T) {
	service := newTestService(t)

	t.Run("不存在的配置返回错误", func(t *testing.T) {
		_, err := service.GetConfig("no_such_key")
		assert.Error(t, err)
	})

	t.Run("写入后可读取", func(t *testing.T) {
		require.NoError(t, service.SetConfig("demo_key", "demo_value", "演示配置"))

		value, err := service.GetConfig("demo_key")
		require.NoError(t, err)
		assert.Equal(t, "demo_value", value)
	})

	t.Run("重复写入覆盖旧值", func(t *testing.T) {
		require.NoError(t, service.SetConfig("demo_key2", "v1", ""))
		require.NoError(t, service.SetConfig("demo_key2", "v2", ""))

		value, err := service.GetConfig("demo_key2")
		require.NoError(t, err)
		assert.Equal(t, "v2", value)
	})

	t.Run("环境变量兜底", func(t *testing.T) {
		t.Setenv("ENV_ONLY_KEY", "from-env")

		value, err := service.GetConfig("env_only_key")
		require.NoError(t, err)
		assert.Equal(t, "from-env", value)
	})

	t.Run("数据库优先于环境变量", func(t *testing.T) {
		t.Setenv("PRIORITY_KEY", "from-env")
		require.NoError(t, service.SetConfig("priority_key", "from-db", ""))

		value, err := service.GetConfig("priority_key")
		require.NoError(t, err)
		assert.Equal(t, "from-db", value)
	})
}

func TestConfigService_GetAllConfigs(t *testing.T) {
	service := newTestService(t)

	t.Run("空库时返回全部默认配置", func(t *testing.T) {
		items, err := service.GetAllConfigs()
		require.NoError(t, err)

		keys := map[string]string{}
		for _, item := range items {
			keys[item.Key] = item.Value
		}
		assert.Equal(t, "180", keys[ConfigKeyScoreHistoryRetentionDays])
		assert.Equal(t, "300", keys[ConfigKeyScoreCacheTTLSeconds])
		assert.Equal(t, DefaultHistoryCleanupCron, keys[ConfigKeyHistoryCleanupCron])
	})

	t.Run("已落库的配置不重复补默认值", func(t *testing.T) {
		require.NoError(t, service.SetConfig(ConfigKeyScoreHistoryRetentionDays, "30", ""))

		items, err := service.GetAllConfigs()
		require.NoError(t, err)

		count := 0
		for _, item := range items {
			if item.Key == ConfigKeyScoreHistoryRetentionDays {
				count++
				assert.Equal(t, "30", item.Value)
			}
		}
		assert.Equal(t, 1, count)
	})
}

func TestConfigService_TypedGetters(t *testing.T) {
	service := newTestService(t)

	t.Run("未配置时返回默认值", func(t *testing.T) {
		assert.Equal(t, DefaultScoreHistoryRetentionDays, service.GetScoreHistoryRetentionDays())
		assert.Equal(t, DefaultScoreCacheTTLSeconds, service.GetScoreCacheTTLSeconds())
		assert.Equal(t, DefaultHistoryCleanupCron, service.GetHistoryCleanupCron())
	})

	t.Run("配置后返回配置值", func(t *testing.T) {
		require.NoError(t, service.SetConfig(ConfigKeyScoreHistoryRetentionDays, "90", ""))
		assert.Equal(t, 90, service.GetScoreHistoryRetentionDays())
	})

	t.Run("非法取值退回默认值", func(t *testing.T) {
		require.NoError(t, service.SetConfig(ConfigKeyScoreCacheTTLSeconds, "-5", ""))
		assert.Equal(t, DefaultScoreCacheTTLSeconds, service.GetScoreCacheTTLSeconds())
	})
}
