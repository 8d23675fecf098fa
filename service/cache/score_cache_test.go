/*
 * @module service/cache/score_cache_test
 * @description 评分缓存单元测试，验证未配置Redis时的空操作降级
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 无Redis环境 -> 空操作缓存 -> 断言不报错
 * @rules 真实Redis行为依赖部署环境，这里只验证降级路径
 * @dependencies testing, github.com/stretchr/testify
 * @refs service/cache/score_cache.go
 */

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCache_DisabledWithoutRedis(t *testing.T) {
	t.Setenv("REDIS_HOST", "")

	c := NewScoreCache(5 * time.Minute)
	assert.False(t, c.Enabled())

	ctx := context.Background()

	t.Run("读不报错且未命中", func(t *testing.T) {
		got, err := c.Get(ctx, "b-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("写删均为空操作", func(t *testing.T) {
		assert.NoError(t, c.Set(ctx, "b-1", &CachedScore{Score: 700}))
		assert.NoError(t, c.Invalidate(ctx, "b-1"))
		assert.NoError(t, c.InvalidateAll(ctx))
	})
}
