/*
 * @module service/scoring/simulation
 * @description What-If评分模拟：以当前特征为基线叠加假设变更，计算当前分/预测分/分差，
 *              并在预测场景解释后追加确定性的分差指引句
 * @architecture 分层架构 - 核心算法层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 基线缺省值补齐 -> 变更叠加 -> 两次评分 -> 预测场景解释 -> 分差指引句拼接
 * @rules 假设变更只覆盖显式给出的特征，基线其余特征保持不变；
 *        相同输入与模型参数必须产生逐字节相同的解释文本
 * @dependencies fmt
 * @refs service/scoring/engine.go, service/scoring/explainer.go
 */

package scoring

import "fmt"

// SimulationResult What-If模拟结果
type SimulationResult struct {
	CurrentScore   int    `json:"current_score"`
	ProjectedScore int    `json:"projected_score"`
	ScoreChange    int    `json:"score_change"`
	Explanation    string `json:"explanation"`
}

// Simulate 对当前特征叠加假设变更后做What-If评分。
// current缺失的契约特征先按缺省值补齐，changes逐项覆盖到基线之上；
// 解释文本基于预测场景生成，并按分差方向追加指引句
func (e *ScoringEngine) Simulate(current, changes FeatureMap) SimulationResult {
	contract := DefaultContract()

	base := contract.ApplyDefaults(current)
	projected := make(FeatureMap, len(base))
	for name, value := range base {
		projected[name] = value
	}
	for name, value := range changes {
		projected[name] = value
	}

	result := SimulationResult{
		CurrentScore:   e.PredictScore(base),
		ProjectedScore: e.PredictScore(projected),
	}
	result.ScoreChange = result.ProjectedScore - result.CurrentScore
	result.Explanation = NewExplainer(e.store).Explain(projected) + changeSentence(result.ScoreChange)
	return result
}

// changeSentence 分差方向对应的指引句
func changeSentence(change int) string {
	switch {
	case change > 0:
		return fmt.Sprintf(" These improvements could increase your score by %d points.", change)
	case change < 0:
		return fmt.Sprintf(" These changes might decrease your score by %d points.", -change)
	default:
		return " These changes would have minimal impact on your current score."
	}
}
