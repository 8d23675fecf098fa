/*
 * @module service/beneficiary/beneficiary_service_test
 * @description 受益人服务单元测试，覆盖档案增删改查、白名单更新、标签标注和训练数据集构建
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 内存数据库初始化 -> 数据工厂造数 -> 服务调用 -> 断言
 * @rules 使用内存SQLite保证测试隔离
 * @dependencies testing, github.com/stretchr/testify
 * @refs service/beneficiary/beneficiary_service.go
 */

package beneficiary

import (
	"testing"

	"incluscore-service/service/scoring"
	"incluscore-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *testutil.TestDataFactory) {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return NewService(tdb.DB), testutil.NewTestDataFactory(tdb.DB)
}

func TestService_Create(t *testing.T) {
	service, factory := newTestService(t)

	t.Run("创建受益人成功", func(t *testing.T) {
		b := factory.CreateBeneficiary(testutil.WithCode("BEN-2024-1001"))

		loaded, err := service.GetByCode("BEN-2024-1001")
		require.NoError(t, err)
		assert.Equal(t, b.ID, loaded.ID)
		assert.NotEmpty(t, loaded.ID)
	})

	t.Run("重复编号创建失败", func(t *testing.T) {
		factory.CreateBeneficiary(testutil.WithCode("BEN-2024-1002"))

		dup := factory.CreateBeneficiary()
		dup.BeneficiaryCode = "BEN-2024-1002"
		dup.ID = ""
		err := service.Create(dup)
		assert.Error(t, err)
	})
}

func TestService_List(t *testing.T) {
	service, factory := newTestService(t)

	for i := 0; i < 6; i++ {
		factory.CreateBeneficiary()
	}

	t.Run("分页返回总数", func(t *testing.T) {
		list, total, err := service.List(1, 3, "", "")
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		assert.Len(t, list, 3)
	})

	t.Run("按租户过滤", func(t *testing.T) {
		list, total, err := service.List(1, 10, "tenant-test", "")
		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		assert.NotEmpty(t, list)
	})
}

func TestService_Update(t *testing.T) {
	service, factory := newTestService(t)

	t.Run("白名单字段更新成功", func(t *testing.T) {
		b := factory.CreateBeneficiary()

		err := service.Update(b.ID, map[string]interface{}{
			"name":                  "更新后的姓名",
			"loan_repayment_status": 0,
		}, "tester")
		require.NoError(t, err)

		loaded, err := service.GetByID(b.ID)
		require.NoError(t, err)
		assert.Equal(t, "更新后的姓名", loaded.Name)
		assert.Equal(t, 0, loaded.LoanRepaymentStatus)
		assert.Equal(t, "tester", loaded.UpdatedBy)
	})

	t.Run("白名单外字段被忽略", func(t *testing.T) {
		b := factory.CreateBeneficiary()

		err := service.Update(b.ID, map[string]interface{}{
			"name":             "合法更新",
			"beneficiary_code": "HACKED",
			"created_by":       "attacker",
		}, "tester")
		require.NoError(t, err)

		loaded, err := service.GetByID(b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.BeneficiaryCode, loaded.BeneficiaryCode)
		assert.NotEqual(t, "attacker", loaded.CreatedBy)
	})

	t.Run("只有白名单外字段时报错", func(t *testing.T) {
		b := factory.CreateBeneficiary()

		err := service.Update(b.ID, map[string]interface{}{
			"beneficiary_code": "HACKED",
		}, "tester")
		assert.Error(t, err)
	})

	t.Run("特征取值越界被拒绝", func(t *testing.T) {
		b := factory.CreateBeneficiary()

		err := service.Update(b.ID, map[string]interface{}{
			"age": 150,
		}, "tester")
		assert.Error(t, err)

		loaded, err := service.GetByID(b.ID)
		require.NoError(t, err)
		assert.Equal(t, 30, loaded.Age)
	})

	t.Run("更新不存在的受益人", func(t *testing.T) {
		err := service.Update("missing-id", map[string]interface{}{"name": "无"}, "tester")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	service, factory := newTestService(t)

	t.Run("删除受益人及评分历史", func(t *testing.T) {
		b := factory.CreateBeneficiary()
		factory.CreateScoreRecord(b.ID)
		factory.CreateScoreRecord(b.ID)

		require.NoError(t, service.Delete(b.ID))

		_, err := service.GetByID(b.ID)
		assert.Error(t, err)

		history, err := service.GetScoreHistory(b.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("删除不存在的受益人", func(t *testing.T) {
		err := service.Delete("missing-id")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestService_ScoreHistory(t *testing.T) {
	service, factory := newTestService(t)

	b := factory.CreateBeneficiary()
	factory.CreateScoreRecord(b.ID, testutil.WithScore(650))
	factory.CreateScoreRecord(b.ID, testutil.WithScore(700))
	factory.CreateScoreRecord(b.ID, testutil.WithScore(720))

	t.Run("历史条数受limit限制", func(t *testing.T) {
		history, err := service.GetScoreHistory(b.ID, 2)
		require.NoError(t, err)
		assert.Len(t, history, 2)
	})

	t.Run("最近评分存在", func(t *testing.T) {
		latest, err := service.LatestScore(b.ID)
		require.NoError(t, err)
		assert.NotNil(t, latest)
		assert.Equal(t, b.ID, latest.BeneficiaryID)
	})

	t.Run("无历史时返回错误", func(t *testing.T) {
		other := factory.CreateBeneficiary()
		_, err := service.LatestScore(other.ID)
		assert.Error(t, err)
	})
}

func TestService_Labels(t *testing.T) {
	service, factory := newTestService(t)

	t.Run("标注标签后进入训练集", func(t *testing.T) {
		labeled := factory.CreateBeneficiary()
		factory.CreateBeneficiary() // 无标签，不应进入训练集

		require.NoError(t, service.SetLabel(labeled.ID, 1))

		ds, err := service.TrainingDataset()
		require.NoError(t, err)
		require.Equal(t, 1, ds.Rows())
		assert.Equal(t, 1, ds.Labels[0])
		assert.Equal(t, []string(scoring.DefaultContract()), []string(ds.Columns))
		assert.Len(t, ds.Features[0], len(ds.Columns))
	})

	t.Run("标注不存在的受益人", func(t *testing.T) {
		err := service.SetLabel("missing-id", 1)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestService_SeedFromDataset(t *testing.T) {
	service, _ := newTestService(t)

	ds := scoring.GenerateBeneficiaryData(20, 42)
	created, err := service.SeedFromDataset(ds, "test")
	require.NoError(t, err)
	assert.Equal(t, 20, created)

	// 引导数据全部带标签，可直接用于训练集
	training, err := service.TrainingDataset()
	require.NoError(t, err)
	assert.Equal(t, 20, training.Rows())
}
