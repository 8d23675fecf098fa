/*
 * @module service/scoring/explainer
 * @description 线性归因解释器，按 weight×标准化特征值 计算逐特征贡献，并生成确定性的自然语言解释与改进建议
 * @architecture 分层架构 - 核心算法层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 标准化 -> 逐特征贡献计算 -> 最大正/负贡献定位 -> 分档句+归因句+建议拼装
 * @rules 对线性模型该闭式归因等价于独立性假设下的精确SHAP值；
 *        相同输入与模型参数必须产生逐字节相同的解释文本
 * @dependencies strings, github.com/spf13/cast
 * @refs service/scoring/engine.go
 */

package scoring

import (
	"strings"

	"github.com/spf13/cast"
)

// 解释文本的分档与归因阈值
const (
	BandExcellentThreshold = 750
	BandGoodThreshold      = 650
	BandFairThreshold      = 550

	positiveImpactThreshold = 0.1   // 最大正贡献超过该值才生成归因句
	negativeImpactThreshold = -0.05 // 最大负贡献低于该值才生成改进句
	maxRecommendations      = 2
)

// Explainer 评分解释器，与评分引擎共享同一模型仓库
type Explainer struct {
	store *ModelStore
}

// NewExplainer 创建解释器实例
func NewExplainer(store *ModelStore) *Explainer {
	return &Explainer{store: store}
}

// FeatureImpacts 计算逐特征贡献 impact[f] = weight[f] * scaled[f]。
// 各特征贡献之和加上截距即为逻辑回归的决策值，因此贡献总和与预测概率单调一致
func (ex *Explainer) FeatureImpacts(data FeatureMap) (map[string]float64, error) {
	impacts := map[string]float64{}
	err := ex.store.WithRead(func(triple *ModelTriple) error {
		if err := triple.Contract.Validate(data); err != nil {
			return err
		}
		scaled, err := triple.Scaler.Transform(triple.Contract.Vector(data))
		if err != nil {
			return err
		}
		if !triple.Classifier.Fitted {
			return &ModelNotTrainedError{}
		}
		for i, name := range triple.Contract {
			impacts[name] = triple.Classifier.Weights[i] * scaled[i]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return impacts, nil
}

// Explain 生成确定性的自然语言解释：
// 分档句 + 最大正贡献句 + 最大负贡献句 + 至多两条固定优先级的改进建议。
// 模型不可用或输入非法时返回固定的提示文本，不抛错
func (ex *Explainer) Explain(data FeatureMap) string {
	var text string
	err := ex.store.WithRead(func(triple *ModelTriple) error {
		if err := triple.Contract.Validate(data); err != nil {
			return err
		}
		scaled, err := triple.Scaler.Transform(triple.Contract.Vector(data))
		if err != nil {
			return err
		}
		prob, err := triple.Classifier.PredictProba(scaled)
		if err != nil {
			return err
		}

		impacts := make([]float64, len(triple.Contract))
		for i := range triple.Contract {
			impacts[i] = triple.Classifier.Weights[i] * scaled[i]
		}
		text = buildExplanation(triple.Contract, data, impacts, probabilityToScore(prob))
		return nil
	})
	if err != nil {
		return "Unable to generate explanation. Please ensure the model is properly trained."
	}
	return text
}

// buildExplanation 按固定顺序拼装解释文本，保证确定性
func buildExplanation(contract FeatureContract, data FeatureMap, impacts []float64, score int) string {
	parts := []string{bandSentence(score)}

	// 贡献最大/最小的特征：按契约顺序扫描，严格比较保证并列时取先出现者
	posIdx, negIdx := 0, 0
	for i := range impacts {
		if impacts[i] > impacts[posIdx] {
			posIdx = i
		}
		if impacts[i] < impacts[negIdx] {
			negIdx = i
		}
	}

	if impacts[posIdx] > positiveImpactThreshold {
		parts = append(parts, positiveSentence(contract[posIdx], data))
	}
	if impacts[negIdx] < negativeImpactThreshold {
		parts = append(parts, negativeSentence(contract[negIdx], data))
	}

	parts = append(parts, recommendations(data)...)
	return strings.Join(parts, " ")
}

// bandSentence 分数分档句：>=750优秀 / >=650良好 / >=550一般 / 其余偏低
func bandSentence(score int) string {
	switch {
	case score >= BandExcellentThreshold:
		return "This beneficiary has an excellent credit score."
	case score >= BandGoodThreshold:
		return "This beneficiary has a good credit score."
	case score >= BandFairThreshold:
		return "This beneficiary has a fair credit score."
	default:
		return "This beneficiary has a low credit score."
	}
}

// positiveSentence 最大正贡献的特征专属表述，无专属表述时回退到通用句式
func positiveSentence(feature string, data FeatureMap) string {
	value := cast.ToFloat64(data[feature])
	switch {
	case feature == "loan_repayment_status" && value == 1:
		return "The score is primarily driven by consistent loan repayment history."
	case feature == "electricity_bill_paid_on_time" && value == 1:
		return "Regular utility bill payments significantly boost the score."
	case feature == "mobile_recharge_frequency" && value >= 3:
		return "Frequent mobile recharges indicate financial stability."
	case feature == "employment_type" && value == 2:
		return "Salaried employment provides strong creditworthiness foundation."
	case feature == "monthly_income" && value >= 15000:
		return "Higher monthly income contributes positively to the score."
	default:
		return "Strong " + strings.ToLower(FeatureLabel(feature)) + " contributes most to the positive score."
	}
}

// negativeSentence 最大负贡献的特征专属改进表述
func negativeSentence(feature string, data FeatureMap) string {
	value := cast.ToFloat64(data[feature])
	switch {
	case feature == "loan_repayment_status" && value == 0:
		return "The main concern is the loan repayment history - improving this will significantly boost the score."
	case feature == "electricity_bill_paid_on_time" && value == 0:
		return "Paying utility bills on time would improve the creditworthiness significantly."
	case feature == "mobile_recharge_frequency" && value <= 2:
		return "More regular mobile recharges would indicate better financial stability."
	case feature == "employment_type" && value == 0:
		return "Securing stable employment would greatly improve the credit profile."
	default:
		return "Improving " + strings.ToLower(FeatureLabel(feature)) + " would help increase the score."
	}
}

// recommendations 按固定优先级生成改进建议，至多两条：
// 还款 -> 水电缴费 -> 话费充值 -> 就业 -> 收入
func recommendations(data FeatureMap) []string {
	var recs []string

	if featureValue(data, "loan_repayment_status") == 0 {
		recs = append(recs, "Focus on making all future loan payments on time to rebuild credit history.")
	}
	if featureValue(data, "electricity_bill_paid_on_time") == 0 {
		recs = append(recs, "Set up automatic utility bill payments to demonstrate financial discipline.")
	}
	if featureValue(data, "mobile_recharge_frequency") <= 2 {
		recs = append(recs, "Consider more regular mobile recharges to show consistent spending patterns.")
	}
	if featureValue(data, "employment_type") == 0 {
		recs = append(recs, "Securing employment would significantly improve creditworthiness.")
	}
	if featureValue(data, "monthly_income") < 10000 {
		recs = append(recs, "Increasing income through skill development or additional work can boost the score.")
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

// featureValue 读取特征值，缺失时使用契约缺省值
func featureValue(data FeatureMap, name string) float64 {
	raw, ok := data[name]
	if !ok {
		return FeatureDefault(name)
	}
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		return FeatureDefault(name)
	}
	return value
}
