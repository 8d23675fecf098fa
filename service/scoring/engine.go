/*
 * @module service/scoring/engine
 * @description 评分引擎，编排特征校验、标准化、概率预测、分数映射、风险分类、在线更新和初始训练
 * @architecture 分层架构 - 核心业务服务层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 校验 -> 标准化 -> 概率预测 -> 分数映射；更新路径在仓库写锁内完成标准化->增量更新->持久化
 * @rules 评分路径对坏输入降级为中性分500并记录日志，绝不向调用方抛错；
 *        更新与训练路径返回结构化结果，失败必须显式可见
 * @dependencies log/slog, math, github.com/spf13/cast
 * @refs service/scoring/store.go, service/scoring/explainer.go
 */

package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/spf13/cast"
)

// 分数映射与风险分级策略常量
const (
	ScoreMin      = 300
	ScoreMax      = 900
	FallbackScore = 500 // 校验失败或模型不可用时的中性分

	RiskLowThreshold    = 700 // 分数>=700为低风险
	RiskMediumThreshold = 550 // 分数>=550为中风险，否则高风险

	LabelScoreThreshold = 600 // 无显式标签时，当前分>=600视为正类

	MinTrainingRows  = 20
	minRowsPerClass  = 5
	testFraction     = 0.2
	splitRandomSeed  = 42
	FallbackCategory = "Medium Risk - Low Need"
)

// ScoringEngine 评分引擎，持有进程内共享的模型仓库
type ScoringEngine struct {
	store *ModelStore
}

// NewScoringEngine 创建评分引擎实例
func NewScoringEngine(store *ModelStore) *ScoringEngine {
	return &ScoringEngine{store: store}
}

// Store 返回底层模型仓库
func (e *ScoringEngine) Store() *ModelStore {
	return e.store
}

// Probability 校验并预测正类概率，供评分和归因共用
func (e *ScoringEngine) Probability(data FeatureMap) (float64, error) {
	var prob float64
	err := e.store.WithRead(func(triple *ModelTriple) error {
		if err := triple.Contract.Validate(data); err != nil {
			return err
		}
		scaled, err := triple.Scaler.Transform(triple.Contract.Vector(data))
		if err != nil {
			return err
		}
		p, err := triple.Classifier.PredictProba(scaled)
		if err != nil {
			return err
		}
		prob = p
		return nil
	})
	return prob, err
}

// PredictScore 预测300-900区间的信用分。
// 校验失败、模型未训练等任何异常都降级为中性分500并记录日志，调用方永远能拿到分数
func (e *ScoringEngine) PredictScore(data FeatureMap) int {
	prob, err := e.Probability(data)
	if err != nil {
		slog.Warn("评分降级为中性分", "error", err, "fallback", FallbackScore)
		return FallbackScore
	}
	return probabilityToScore(prob)
}

// probabilityToScore 概率到信用分的映射: round(300 + p*600)，钳制在[300,900]
func probabilityToScore(prob float64) int {
	score := int(math.Round(ScoreMin + prob*(ScoreMax-ScoreMin)))
	if score > ScoreMax {
		return ScoreMax
	}
	if score < ScoreMin {
		return ScoreMin
	}
	return score
}

// PredictRiskNeed 返回"{风险等级} - {需求等级}"组合类别。
// 风险由分数阈值决定，需求由is_high_need标志决定
func (e *ScoringEngine) PredictRiskNeed(data FeatureMap) string {
	score := e.PredictScore(data)
	return RiskNeedCategory(score, cast.ToInt(data["is_high_need"]) == 1)
}

// RiskNeedCategory 按策略常量把分数和高需求标志映射为组合类别
func RiskNeedCategory(score int, highNeed bool) string {
	var risk string
	switch {
	case score >= RiskLowThreshold:
		risk = "Low Risk"
	case score >= RiskMediumThreshold:
		risk = "Medium Risk"
	default:
		risk = "High Risk"
	}

	need := "Low Need"
	if highNeed {
		need = "High Need"
	}
	return risk + " - " + need
}

// UpdateOptions 在线更新的标签来源：显式标签优先，否则用调用方提供的当前分按阈值推导
type UpdateOptions struct {
	Label        *int
	CurrentScore *int
}

// UpdateResult 在线更新的结构化结果
type UpdateResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Update 用单个新样本对模型做一步在线更新并立即持久化。
// 标准化->增量更新->持久化在仓库写锁内构成一个临界区。
// 任何失败都以结构化结果返回，不会panic也不会静默吞掉
func (e *ScoringEngine) Update(data FeatureMap, opts UpdateOptions) UpdateResult {
	label, ok := resolveLabel(opts)
	if !ok {
		return UpdateResult{Status: "error", Message: "在线更新需要显式标签或当前分数用于推导标签"}
	}

	err := e.store.WithWrite(func(triple *ModelTriple) error {
		if err := triple.Contract.Validate(data); err != nil {
			return err
		}
		scaled, err := triple.Scaler.Transform(triple.Contract.Vector(data))
		if err != nil {
			return err
		}
		return triple.Classifier.PartialFit(scaled, label)
	})

	if err != nil {
		var notTrained *ModelNotTrainedError
		if errors.As(err, &notTrained) {
			return UpdateResult{Status: "error", Message: "模型不存在，请先执行初始训练"}
		}
		return UpdateResult{Status: "error", Message: "模型更新失败: " + err.Error()}
	}

	return UpdateResult{Status: "success", Message: "模型更新成功"}
}

// resolveLabel 在线更新标签推导：不允许用本次样本的新预测分反哺标签，
// 必须由调用方提供真值标签或该样本更新前的当前分
func resolveLabel(opts UpdateOptions) (int, bool) {
	if opts.Label != nil {
		if *opts.Label >= 1 {
			return 1, true
		}
		return 0, true
	}
	if opts.CurrentScore != nil {
		if *opts.CurrentScore >= LabelScoreThreshold {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// TrainingReport 初始训练的结构化报告
type TrainingReport struct {
	Accuracy        float64 `json:"accuracy"`
	TrainingSamples int     `json:"training_samples"`
	TestSamples     int     `json:"test_samples"`
	FeatureCount    int     `json:"feature_count"`
}

// TrainInitial 用带标签的数据集完成初始训练：
// 按固定种子分层切分80/20，标准化器只在训练分区拟合，
// 在保留分区上评估准确率，成功后整体替换并持久化模型三元组。
// 持久化失败时报告与错误同时返回，内存中的新模型仍然可用
func (e *ScoringEngine) TrainInitial(ds *Dataset) (*TrainingReport, error) {
	if err := checkTrainable(ds); err != nil {
		return nil, err
	}

	trainIdx, testIdx := stratifiedSplit(ds.Labels, testFraction, splitRandomSeed)

	trainX := gather(ds.Features, trainIdx)
	trainY := gatherLabels(ds.Labels, trainIdx)
	testX := gather(ds.Features, testIdx)
	testY := gatherLabels(ds.Labels, testIdx)

	scaler := NewStandardScaler()
	if err := scaler.Fit(trainX); err != nil {
		return nil, err
	}
	trainScaled, err := scaler.TransformMatrix(trainX)
	if err != nil {
		return nil, err
	}
	testScaled, err := scaler.TransformMatrix(testX)
	if err != nil {
		return nil, err
	}

	classifier := NewSGDClassifier()
	if err := classifier.Fit(trainScaled, trainY); err != nil {
		return nil, err
	}

	correct := 0
	for i, x := range testScaled {
		pred, err := classifier.Predict(x)
		if err != nil {
			return nil, err
		}
		if pred == testY[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(testY))

	report := &TrainingReport{
		Accuracy:        accuracy,
		TrainingSamples: len(trainY),
		TestSamples:     len(testY),
		FeatureCount:    len(ds.Columns),
	}

	triple := &ModelTriple{
		Classifier: classifier,
		Scaler:     scaler,
		Contract:   ContractFromColumns(ds.Columns),
	}
	if err := e.store.Replace(triple); err != nil {
		slog.Error("训练完成但持久化失败，内存模型仍然可用", "error", err)
		return report, err
	}

	slog.Info("初始模型训练完成",
		"accuracy", accuracy,
		"training_samples", report.TrainingSamples,
		"test_samples", report.TestSamples,
		"feature_count", report.FeatureCount)
	return report, nil
}

// checkTrainable 训练前置检查：标签只允许0/1、样本量达到下限且两个类别都有足够样本，
// 保证分层切分不丢行且保留分区非空
func checkTrainable(ds *Dataset) error {
	if ds == nil || ds.Rows() < MinTrainingRows {
		rows := 0
		if ds != nil {
			rows = ds.Rows()
		}
		return &InsufficientDataError{Rows: rows, Reason: "样本量低于最小训练要求"}
	}

	positives, negatives := 0, 0
	for i, label := range ds.Labels {
		switch label {
		case 1:
			positives++
		case 0:
			negatives++
		default:
			return &InsufficientDataError{
				Rows:   ds.Rows(),
				Reason: fmt.Sprintf("第%d个样本标签 %d 非法，标签只允许0或1", i+1, label),
			}
		}
	}
	if positives < minRowsPerClass || negatives < minRowsPerClass {
		return &InsufficientDataError{
			Rows:   ds.Rows(),
			Reason: "每个类别至少需要5个样本才能完成分层切分",
		}
	}
	return nil
}

// stratifiedSplit 按标签分层切分训练/测试索引，固定种子保证可复现
func stratifiedSplit(labels []int, fraction float64, seed int64) (train, test []int) {
	byClass := map[int][]int{}
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	for _, class := range []int{0, 1} {
		idx := byClass[class]
		rng.Shuffle(len(idx), func(i, j int) {
			idx[i], idx[j] = idx[j], idx[i]
		})
		cut := int(math.Round(float64(len(idx)) * fraction))
		if cut < 1 && len(idx) > 0 {
			cut = 1
		}
		test = append(test, idx[:cut]...)
		train = append(train, idx[cut:]...)
	}
	return train, test
}

func gather(rows [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func gatherLabels(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = labels[j]
	}
	return out
}

// FeatureImportance 返回特征名到|权重|的映射，仅用于相对比较
func (e *ScoringEngine) FeatureImportance() (map[string]float64, error) {
	result := map[string]float64{}
	err := e.store.WithRead(func(triple *ModelTriple) error {
		importance, err := triple.Classifier.Importance()
		if err != nil {
			return err
		}
		for i, name := range triple.Contract {
			result[name] = importance[i]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
