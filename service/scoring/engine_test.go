/*
 * @module service/scoring/engine_test
 * @description 评分引擎的单元测试，覆盖分数映射、降级策略、风险分级、在线更新、初始训练与重载一致性
 * @architecture 单元测试 - 对照固定种子数据集验证端到端评分行为
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 种子数据训练 -> 评分/更新/重载 -> 断言不变量
 * @rules 评分永远返回[300,900]内的分数且坏输入降级为500；更新与训练失败必须结构化上报
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs engine.go
 */

package scoring

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTrainedEngine 用固定种子的100行合成数据训练好的引擎
func newTrainedEngine(t *testing.T) *ScoringEngine {
	t.Helper()
	engine := NewScoringEngine(NewModelStore(t.TempDir()))
	_, err := engine.TrainInitial(GenerateBeneficiaryData(100, 42))
	require.NoError(t, err)
	return engine
}

func TestScoringEngine_PredictScoreRange(t *testing.T) {
	engine := newTrainedEngine(t)

	ds := GenerateBeneficiaryData(50, 7)
	contract := DefaultContract()
	for _, row := range ds.Features {
		data := FeatureMap{}
		for i, name := range contract {
			data[name] = row[i]
		}
		score := engine.PredictScore(data)
		assert.GreaterOrEqual(t, score, ScoreMin)
		assert.LessOrEqual(t, score, ScoreMax)
	}
}

func TestScoringEngine_PredictScoreFallbackOnMissingFeature(t *testing.T) {
	engine := newTrainedEngine(t)

	data := validInstance()
	delete(data, "age")

	assert.Equal(t, FallbackScore, engine.PredictScore(data))
}

func TestScoringEngine_PredictScoreFallbackOnOutOfRange(t *testing.T) {
	engine := newTrainedEngine(t)

	data := validInstance()
	data["mobile_recharge_frequency"] = 99

	assert.Equal(t, FallbackScore, engine.PredictScore(data))
}

func TestScoringEngine_PredictScoreUntrainedFallback(t *testing.T) {
	engine := NewScoringEngine(NewModelStore(t.TempDir()))
	assert.Equal(t, FallbackScore, engine.PredictScore(validInstance()))
}

func TestRiskNeedCategory_Thresholds(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		highNeed bool
		expected string
	}{
		{name: "700为低风险", score: 700, highNeed: false, expected: "Low Risk - Low Need"},
		{name: "699为中风险", score: 699, highNeed: false, expected: "Medium Risk - Low Need"},
		{name: "550为中风险", score: 550, highNeed: true, expected: "Medium Risk - High Need"},
		{name: "549为高风险", score: 549, highNeed: true, expected: "High Risk - High Need"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RiskNeedCategory(tt.score, tt.highNeed))
		})
	}
}

func TestScoringEngine_PredictRiskNeedFallback(t *testing.T) {
	engine := NewScoringEngine(NewModelStore(t.TempDir()))
	// 模型不可用时降级为中性分500，对应文档化的兜底类别
	assert.Equal(t, FallbackCategory, engine.PredictRiskNeed(FeatureMap{}))
}

func TestScoringEngine_PredictScoreDeterministic(t *testing.T) {
	engine := newTrainedEngine(t)
	data := validInstance()

	first := engine.PredictScore(data)
	second := engine.PredictScore(data)
	assert.Equal(t, first, second)
}

func TestScoringEngine_TrainSaveReloadSameScore(t *testing.T) {
	dir := t.TempDir()
	engine := NewScoringEngine(NewModelStore(dir))
	_, err := engine.TrainInitial(GenerateBeneficiaryData(100, 42))
	require.NoError(t, err)

	data := validInstance()
	before := engine.PredictScore(data)

	reloaded := NewScoringEngine(NewModelStore(dir))
	require.NoError(t, reloaded.Store().Load())
	assert.Equal(t, before, reloaded.PredictScore(data))
}

func TestScoringEngine_TrainInitialReport(t *testing.T) {
	engine := NewScoringEngine(NewModelStore(t.TempDir()))

	report, err := engine.TrainInitial(GenerateBeneficiaryData(100, 42))
	require.NoError(t, err)

	assert.Equal(t, 8, report.FeatureCount)
	assert.Equal(t, 100, report.TrainingSamples+report.TestSamples)
	assert.Greater(t, report.TestSamples, 0)
	assert.GreaterOrEqual(t, report.Accuracy, 0.5)
	assert.LessOrEqual(t, report.Accuracy, 1.0)
}

func TestScoringEngine_TrainInitialInsufficientData(t *testing.T) {
	engine := NewScoringEngine(NewModelStore(t.TempDir()))

	_, err := engine.TrainInitial(GenerateBeneficiaryData(10, 42))
	require.Error(t, err)

	var insufficient *InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestScoringEngine_TrainInitialRejectsNonBinaryLabel(t *testing.T) {
	ds := GenerateBeneficiaryData(30, 42)
	ds.Labels[7] = 2

	engine := NewScoringEngine(NewModelStore(t.TempDir()))
	_, err := engine.TrainInitial(ds)
	require.Error(t, err)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Contains(t, insufficient.Reason, "只允许0或1")
}

func TestScoringEngine_TrainInitialDegenerateLabels(t *testing.T) {
	ds := GenerateBeneficiaryData(30, 42)
	for i := range ds.Labels {
		ds.Labels[i] = 1
	}

	engine := NewScoringEngine(NewModelStore(t.TempDir()))
	_, err := engine.TrainInitial(ds)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
}

func TestScoringEngine_UpdateThenImportance(t *testing.T) {
	engine := newTrainedEngine(t)

	label := 1
	result := engine.Update(validInstance(), UpdateOptions{Label: &label})
	require.Equal(t, "success", result.Status)

	importance, err := engine.FeatureImportance()
	require.NoError(t, err)
	require.Len(t, importance, len(DefaultContract()))
	for _, name := range DefaultContract() {
		assert.Contains(t, importance, name)
	}
}

func TestScoringEngine_UpdateDerivedLabelFromCurrentScore(t *testing.T) {
	engine := newTrainedEngine(t)

	current := 650 // >=600 推导为正类
	result := engine.Update(validInstance(), UpdateOptions{CurrentScore: &current})
	assert.Equal(t, "success", result.Status)

	low := 400
	result = engine.Update(validInstance(), UpdateOptions{CurrentScore: &low})
	assert.Equal(t, "success", result.Status)
}

func TestScoringEngine_UpdateRequiresLabelSource(t *testing.T) {
	engine := newTrainedEngine(t)

	result := engine.Update(validInstance(), UpdateOptions{})
	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Message, "标签")
}

func TestScoringEngine_UpdateBeforeTrainStructuredError(t *testing.T) {
	engine := NewScoringEngine(NewModelStore(t.TempDir()))

	label := 1
	result := engine.Update(validInstance(), UpdateOptions{Label: &label})
	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Message, "初始训练")
}

func TestScoringEngine_UpdateInvalidInstance(t *testing.T) {
	engine := newTrainedEngine(t)

	data := validInstance()
	data["age"] = 200
	label := 1

	result := engine.Update(data, UpdateOptions{Label: &label})
	assert.Equal(t, "error", result.Status)
}

func TestScoringEngine_UpdatePersistsNewState(t *testing.T) {
	dir := t.TempDir()
	engine := NewScoringEngine(NewModelStore(dir))
	_, err := engine.TrainInitial(GenerateBeneficiaryData(100, 42))
	require.NoError(t, err)

	label := 1
	require.Equal(t, "success", engine.Update(validInstance(), UpdateOptions{Label: &label}).Status)

	var updatedWeights []float64
	require.NoError(t, engine.Store().WithRead(func(triple *ModelTriple) error {
		updatedWeights = append([]float64(nil), triple.Classifier.Weights...)
		return nil
	}))

	reloaded := NewModelStore(dir)
	require.NoError(t, reloaded.Load())
	require.NoError(t, reloaded.WithRead(func(triple *ModelTriple) error {
		assert.Equal(t, updatedWeights, triple.Classifier.Weights)
		return nil
	}))
}

func TestScoringEngine_KnownGoodInstanceScenario(t *testing.T) {
	engine := newTrainedEngine(t)

	// 按生成规则该画像命中所有正向权重，应落入良好及以上分档
	data := FeatureMap{
		"loan_repayment_status":         1,
		"loan_tenure_months":            12,
		"electricity_bill_paid_on_time": 1,
		"mobile_recharge_frequency":     3,
		"is_high_need":                  1,
		"age":                           30,
		"monthly_income":                15000,
		"employment_type":               2,
	}

	score := engine.PredictScore(data)
	assert.GreaterOrEqual(t, score, BandGoodThreshold)

	explainer := NewExplainer(engine.Store())
	explanation := explainer.Explain(data)

	expectedFirst := "This beneficiary has a good credit score."
	if score >= BandExcellentThreshold {
		expectedFirst = "This beneficiary has an excellent credit score."
	}
	assert.True(t, strings.HasPrefix(explanation, expectedFirst), explanation)
}
