/*
 * @module service/user/user_service_test
 * @description 用户服务单元测试，覆盖注册、认证、角色权限和停用流程
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 内存数据库初始化 -> 服务调用 -> 断言
 * @rules 使用内存SQLite保证测试隔离
 * @dependencies testing, github.com/stretchr/testify
 * @refs service/user/user_service.go
 */

package user

import (
	"testing"

	"incluscore-service/service/models"
	"incluscore-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return NewService(tdb.DB)
}

func TestService_Create(t *testing.T) {
	service := newTestService(t)

	t.Run("创建用户成功", func(t *testing.T) {
		user, err := service.Create("admin@example.com", "管理员", "secret", models.RoleAdmin)
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.Contains(t, []string(user.Permissions), "scoring:train")
		assert.NotEqual(t, "secret", user.PasswordHash)
	})

	t.Run("重复邮箱注册失败", func(t *testing.T) {
		_, err := service.Create("dup@example.com", "甲", "secret", models.RoleViewer)
		require.NoError(t, err)

		_, err = service.Create("dup@example.com", "乙", "secret", models.RoleViewer)
		assert.Error(t, err)
	})

	t.Run("未知角色注册失败", func(t *testing.T) {
		_, err := service.Create("bad@example.com", "丙", "secret", "superuser")
		assert.Error(t, err)
	})
}

func TestService_Authenticate(t *testing.T) {
	service := newTestService(t)

	user, err := service.Create("agent@example.com", "外勤", "correct-password", models.RoleFieldAgent)
	require.NoError(t, err)

	t.Run("正确密码登录成功", func(t *testing.T) {
		got, err := service.Authenticate("agent@example.com", "correct-password")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("错误密码登录失败", func(t *testing.T) {
		_, err := service.Authenticate("agent@example.com", "wrong-password")
		assert.Error(t, err)
	})

	t.Run("不存在的用户登录失败", func(t *testing.T) {
		_, err := service.Authenticate("ghost@example.com", "any")
		assert.Error(t, err)
	})

	t.Run("停用用户登录失败", func(t *testing.T) {
		require.NoError(t, service.Deactivate(user.ID))

		_, err := service.Authenticate("agent@example.com", "correct-password")
		assert.Error(t, err)
	})
}

func TestService_UpdateRole(t *testing.T) {
	service := newTestService(t)

	user, err := service.Create("viewer@example.com", "访客", "secret", models.RoleViewer)
	require.NoError(t, err)

	t.Run("角色变更后权限重算", func(t *testing.T) {
		require.NoError(t, service.UpdateRole(user.ID, models.RoleFieldAgent))

		loaded, err := service.GetByID(user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleFieldAgent, loaded.Role)
		assert.Contains(t, []string(loaded.Permissions), "scoring:update")
	})

	t.Run("未知角色被拒绝", func(t *testing.T) {
		err := service.UpdateRole(user.ID, "superuser")
		assert.Error(t, err)
	})

	t.Run("不存在的用户", func(t *testing.T) {
		err := service.UpdateRole("missing-id", models.RoleViewer)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestService_Stats(t *testing.T) {
	service := newTestService(t)

	_, err := service.Create("a@example.com", "A", "secret", models.RoleAdmin)
	require.NoError(t, err)
	_, err = service.Create("b@example.com", "B", "secret", models.RoleViewer)
	require.NoError(t, err)
	_, err = service.Create("c@example.com", "C", "secret", models.RoleViewer)
	require.NoError(t, err)

	stats, err := service.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats["total"])
	assert.Equal(t, int64(1), stats[models.RoleAdmin])
	assert.Equal(t, int64(2), stats[models.RoleViewer])
	assert.Equal(t, int64(0), stats[models.RoleFieldAgent])
}

func TestRolePermissions(t *testing.T) {
	assert.NotEmpty(t, RolePermissions(models.RoleAdmin))
	assert.Empty(t, RolePermissions("unknown"))
}
