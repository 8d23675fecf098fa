/*
 * @module service/cleanup/history_cleanup_service_test
 * @description 评分历史清理服务单元测试，验证过期记录删除和保留边界
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 内存数据库初始化 -> 造历史数据 -> 执行清理 -> 断言
 * @rules 使用内存SQLite保证测试隔离
 * @dependencies testing, github.com/stretchr/testify
 * @refs service/cleanup/history_cleanup_service.go
 */

package cleanup

import (
	"context"
	"testing"
	"time"

	"incluscore-service/service/config"
	"incluscore-service/service/models"
	"incluscore-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCleanup(t *testing.T) (*HistoryCleanupService, *testutil.TestDataFactory) {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	configService := config.NewConfigService(tdb.DB)
	return NewHistoryCleanupService(tdb.DB, configService), testutil.NewTestDataFactory(tdb.DB)
}

func TestCleanupScoreRecords(t *testing.T) {
	service, factory := newTestCleanup(t)

	b := factory.CreateBeneficiary()
	factory.CreateScoreRecord(b.ID, testutil.WithCreatedAt(time.Now().AddDate(0, 0, -200)))
	factory.CreateScoreRecord(b.ID, testutil.WithCreatedAt(time.Now().AddDate(0, 0, -10)))
	factory.CreateScoreRecord(b.ID)

	t.Run("只删除超过保留期的记录", func(t *testing.T) {
		deleted, err := service.CleanupScoreRecords(context.Background(), 180)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		var remaining int64
		service.db.Model(&models.ScoreRecord{}).Count(&remaining)
		assert.Equal(t, int64(2), remaining)
	})

	t.Run("再次清理无可删记录", func(t *testing.T) {
		deleted, err := service.CleanupScoreRecords(context.Background(), 180)
		require.NoError(t, err)
		assert.Equal(t, int64(0), deleted)
	})
}

func TestCleanupSentEvents(t *testing.T) {
	service, _ := newTestCleanup(t)

	old := &models.SSEEvent{
		EventType: models.EventTypeScoreCalculated,
		UserName:  "admin",
		Data:      models.JSONB{"score": 700},
		CreatedAt: time.Now().AddDate(0, 0, -200),
	}
	recent := &models.SSEEvent{
		EventType: models.EventTypeModelUpdated,
		UserName:  "admin",
		Data:      models.JSONB{},
	}
	require.NoError(t, service.db.Create(old).Error)
	require.NoError(t, service.db.Create(recent).Error)

	deleted, err := service.CleanupSentEvents(context.Background(), 180)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestCleanupExpiredHistory(t *testing.T) {
	service, factory := newTestCleanup(t)

	b := factory.CreateBeneficiary()
	factory.CreateScoreRecord(b.ID, testutil.WithCreatedAt(time.Now().AddDate(0, 0, -365)))

	// 保留天数走配置服务的默认值180天
	require.NoError(t, service.CleanupExpiredHistory(context.Background()))

	var remaining int64
	service.db.Model(&models.ScoreRecord{}).Count(&remaining)
	assert.Equal(t, int64(0), remaining)
}

func TestScheduledCleanupLifecycle(t *testing.T) {
	service, _ := newTestCleanup(t)

	require.NoError(t, service.StartScheduledCleanup())
	assert.Error(t, service.StartScheduledCleanup())

	service.StopScheduledCleanup()
	service.StopScheduledCleanup()
}
