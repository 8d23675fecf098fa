/*
 * @module service/scoring/features
 * @description 特征契约定义与输入校验，统一管理特征顺序、取值约束、缺省值和展示名称
 * @architecture 分层架构 - 核心算法层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 训练时从数据集列派生契约 -> 持久化 -> 预测/更新时按同一契约校验和向量化
 * @rules 校验无副作用，缺失特征一次性全部上报，未知特征忽略；缺省值只在此处定义
 * @dependencies github.com/spf13/cast
 * @refs service/scoring/engine.go, service/scoring/scaler.go
 */

package scoring

import (
	"fmt"

	"github.com/spf13/cast"
)

// FeatureMap 一次评分请求的特征取值，键为特征名
type FeatureMap map[string]interface{}

// FeatureContract 特征契约，即模型版本期望的有序特征列表
type FeatureContract []string

// featureSpec 单个特征的校验规则与缺省值
type featureSpec struct {
	Name    string
	Label   string // 面向用户的展示名称
	Min     float64
	Max     float64
	Allowed []float64 // 非空时表示枚举取值
	Default float64
}

// 特征注册表，顺序与训练数据列顺序一致
var featureSpecs = []featureSpec{
	{Name: "loan_repayment_status", Label: "Loan Repayment History", Allowed: []float64{0, 1}, Default: 1},
	{Name: "loan_tenure_months", Label: "Loan Tenure", Min: 1, Max: 360, Default: 12},
	{Name: "electricity_bill_paid_on_time", Label: "Utility Bill Payments", Allowed: []float64{0, 1}, Default: 1},
	{Name: "mobile_recharge_frequency", Label: "Mobile Recharge Frequency", Min: 1, Max: 4, Default: 4},
	{Name: "is_high_need", Label: "Financial Need Level", Allowed: []float64{0, 1}, Default: 0},
	{Name: "age", Label: "Age", Min: 18, Max: 65, Default: 30},
	{Name: "monthly_income", Label: "Monthly Income", Min: 0, Max: -1, Default: 20000}, // Max<0 表示无上界
	{Name: "employment_type", Label: "Employment Type", Allowed: []float64{0, 1, 2}, Default: 2},
}

var specIndex = buildSpecIndex()

func buildSpecIndex() map[string]featureSpec {
	idx := make(map[string]featureSpec, len(featureSpecs))
	for _, spec := range featureSpecs {
		idx[spec.Name] = spec
	}
	return idx
}

// DefaultContract 返回标准八特征契约，顺序与训练数据列顺序一致
func DefaultContract() FeatureContract {
	names := make(FeatureContract, 0, len(featureSpecs))
	for _, spec := range featureSpecs {
		names = append(names, spec.Name)
	}
	return names
}

// FeatureLabel 返回特征的展示名称，未注册的特征原样返回
func FeatureLabel(name string) string {
	if spec, ok := specIndex[name]; ok {
		return spec.Label
	}
	return name
}

// FeatureDefault 返回特征的缺省值，未注册的特征返回0
func FeatureDefault(name string) float64 {
	if spec, ok := specIndex[name]; ok {
		return spec.Default
	}
	return 0
}

// Validate 校验输入特征，缺失的特征一次性全部收集后上报，
// 取值越界返回首个违规特征的OutOfRangeError，未知特征忽略
func (c FeatureContract) Validate(data FeatureMap) error {
	var missing []string
	for _, name := range c {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingFeatureError{Features: missing}
	}

	for _, name := range c {
		value, err := cast.ToFloat64E(data[name])
		if err != nil {
			return &OutOfRangeError{Feature: name, Reason: fmt.Sprintf("无法转换为数值: %v", data[name])}
		}
		if err := checkRange(name, value); err != nil {
			return err
		}
	}
	return nil
}

// checkRange 按特征注册表校验单个取值
func checkRange(name string, value float64) error {
	spec, ok := specIndex[name]
	if !ok {
		return nil
	}
	if len(spec.Allowed) > 0 {
		for _, allowed := range spec.Allowed {
			if value == allowed {
				return nil
			}
		}
		return &OutOfRangeError{Feature: name, Reason: fmt.Sprintf("取值 %v 不在允许集合 %v 内", value, spec.Allowed)}
	}
	if value < spec.Min {
		return &OutOfRangeError{Feature: name, Reason: fmt.Sprintf("取值 %v 小于下界 %v", value, spec.Min)}
	}
	if spec.Max >= 0 && value > spec.Max {
		return &OutOfRangeError{Feature: name, Reason: fmt.Sprintf("取值 %v 大于上界 %v", value, spec.Max)}
	}
	return nil
}

// ApplyDefaults 返回补齐缺省值后的特征映射副本，契约内缺失的特征按注册表缺省值填充，
// 调用方传入的键值不被修改
func (c FeatureContract) ApplyDefaults(data FeatureMap) FeatureMap {
	filled := make(FeatureMap, len(c))
	for _, name := range c {
		if value, ok := data[name]; ok {
			filled[name] = value
			continue
		}
		filled[name] = FeatureDefault(name)
	}
	return filled
}

// Vector 按契约顺序把特征映射转换为数值向量，缺失的特征使用注册表缺省值补齐
func (c FeatureContract) Vector(data FeatureMap) []float64 {
	vec := make([]float64, len(c))
	for i, name := range c {
		raw, ok := data[name]
		if !ok {
			vec[i] = FeatureDefault(name)
			continue
		}
		value, err := cast.ToFloat64E(raw)
		if err != nil {
			value = FeatureDefault(name)
		}
		vec[i] = value
	}
	return vec
}

// ContractFromColumns 从训练数据列派生契约，剔除标识列和目标列，保持列顺序
func ContractFromColumns(columns []string) FeatureContract {
	contract := make(FeatureContract, 0, len(columns))
	for _, col := range columns {
		if col == ColumnBeneficiaryID || col == ColumnTarget {
			continue
		}
		contract = append(contract, col)
	}
	return contract
}

// 训练数据中的非特征列
const (
	ColumnBeneficiaryID = "beneficiary_id"
	ColumnTarget        = "creditworthy"
)
