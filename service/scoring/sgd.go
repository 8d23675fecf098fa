/*
 * @module service/scoring/sgd
 * @description 在线可增量学习的逻辑回归分类器，基于随机梯度下降，支持批量训练、单样本增量更新和概率预测
 * @architecture 分层架构 - 核心算法层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow Fit(批量训练) -> PredictProba(概率预测) / PartialFit(单步增量更新)
 * @rules 常数学习率保证单样本更新幅度有界；未训练时所有预测/更新返回ModelNotTrainedError
 * @dependencies math, math/rand
 * @refs service/scoring/engine.go, service/scoring/store.go
 */

package scoring

import (
	"math"
	"math/rand"
)

// SGD分类器默认超参数，与初始模型训练脚本保持一致
const (
	DefaultLearningRate = 0.01
	DefaultAlpha        = 0.0001
	DefaultMaxEpochs    = 1000
	DefaultTolerance    = 1e-4
	DefaultRandomSeed   = 42
)

// SGDClassifier 逻辑回归SGD分类器，字段导出以便JSON持久化
type SGDClassifier struct {
	Weights      []float64 `json:"weights"`
	Intercept    float64   `json:"intercept"`
	LearningRate float64   `json:"learning_rate"`
	Alpha        float64   `json:"alpha"`
	MaxEpochs    int       `json:"max_epochs"`
	Tolerance    float64   `json:"tolerance"`
	RandomSeed   int64     `json:"random_seed"`
	Fitted       bool      `json:"fitted"`
}

// NewSGDClassifier 创建默认超参数的SGD分类器
func NewSGDClassifier() *SGDClassifier {
	return &SGDClassifier{
		LearningRate: DefaultLearningRate,
		Alpha:        DefaultAlpha,
		MaxEpochs:    DefaultMaxEpochs,
		Tolerance:    DefaultTolerance,
		RandomSeed:   DefaultRandomSeed,
	}
}

// sigmoid 逻辑函数，钳制指数输入避免溢出
func sigmoid(z float64) float64 {
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

// decision 线性决策函数 w·x + b
func (c *SGDClassifier) decision(x []float64) float64 {
	z := c.Intercept
	for j, w := range c.Weights {
		z += w * x[j]
	}
	return z
}

// step 对单个样本执行一次对数损失梯度下降，含L2正则
func (c *SGDClassifier) step(x []float64, y float64) float64 {
	p := sigmoid(c.decision(x))
	grad := p - y
	for j := range c.Weights {
		c.Weights[j] -= c.LearningRate * (grad*x[j] + c.Alpha*c.Weights[j])
	}
	c.Intercept -= c.LearningRate * grad
	return logLoss(p, y)
}

// logLoss 单样本对数损失，概率钳制避免log(0)
func logLoss(p, y float64) float64 {
	const eps = 1e-15
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

// Fit 批量训练：按固定种子逐轮打乱样本顺序做随机梯度下降，
// 平均损失改善小于容差时提前停止
func (c *SGDClassifier) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 {
		return &InsufficientDataError{Rows: 0, Reason: "训练样本为空"}
	}
	if len(features) != len(labels) {
		return &SchemaError{Expected: len(features), Got: len(labels), Reason: "特征与标签数量不一致"}
	}

	dims := len(features[0])
	for _, row := range features {
		if len(row) != dims {
			return &SchemaError{Expected: dims, Got: len(row)}
		}
	}

	c.Weights = make([]float64, dims)
	c.Intercept = 0

	rng := rand.New(rand.NewSource(c.RandomSeed))
	order := rng.Perm(len(features))
	prevLoss := math.Inf(1)

	for epoch := 0; epoch < c.MaxEpochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		total := 0.0
		for _, idx := range order {
			total += c.step(features[idx], float64(labels[idx]))
		}

		loss := total / float64(len(features))
		if prevLoss-loss < c.Tolerance && epoch > 0 {
			break
		}
		prevLoss = loss
	}

	c.Fitted = true
	return nil
}

// PredictProba 返回正类概率P(creditworthy=1)
func (c *SGDClassifier) PredictProba(x []float64) (float64, error) {
	if !c.Fitted {
		return 0, &ModelNotTrainedError{}
	}
	if len(x) != len(c.Weights) {
		return 0, &SchemaError{Expected: len(c.Weights), Got: len(x)}
	}
	return sigmoid(c.decision(x)), nil
}

// Predict 返回0/1类别预测，阈值0.5
func (c *SGDClassifier) Predict(x []float64) (int, error) {
	prob, err := c.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if prob >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// PartialFit 用单个样本执行恰好一步增量更新，不回放历史数据
func (c *SGDClassifier) PartialFit(x []float64, label int) error {
	if !c.Fitted {
		return &ModelNotTrainedError{}
	}
	if len(x) != len(c.Weights) {
		return &SchemaError{Expected: len(c.Weights), Got: len(x)}
	}
	c.step(x, float64(label))
	return nil
}

// Importance 返回各特征权重的绝对值，顺序与特征契约一致
func (c *SGDClassifier) Importance() ([]float64, error) {
	if !c.Fitted {
		return nil, &ModelNotTrainedError{}
	}
	importance := make([]float64, len(c.Weights))
	for j, w := range c.Weights {
		importance[j] = math.Abs(w)
	}
	return importance, nil
}
