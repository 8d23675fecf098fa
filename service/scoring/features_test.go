/*
 * @module service/scoring/features_test
 * @description 特征契约与输入校验的单元测试
 * @architecture 单元测试 - 验证校验规则、缺省值补齐和契约派生
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 构造输入 -> 校验/向量化 -> 断言结果
 * @rules 覆盖缺失特征收集、越界检查、未知特征忽略和幂等性
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs features.go
 */

package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInstance() FeatureMap {
	return FeatureMap{
		"loan_repayment_status":         1,
		"loan_tenure_months":            12,
		"electricity_bill_paid_on_time": 1,
		"mobile_recharge_frequency":     3,
		"is_high_need":                  1,
		"age":                           30,
		"monthly_income":                15000,
		"employment_type":               2,
	}
}

func TestFeatureContract_Validate_Valid(t *testing.T) {
	contract := DefaultContract()
	assert.NoError(t, contract.Validate(validInstance()))
}

func TestFeatureContract_Validate_MissingCollectsAll(t *testing.T) {
	contract := DefaultContract()
	data := validInstance()
	delete(data, "age")
	delete(data, "monthly_income")

	err := contract.Validate(data)
	require.Error(t, err)

	var missing *MissingFeatureError
	require.True(t, errors.As(err, &missing))
	assert.ElementsMatch(t, []string{"age", "monthly_income"}, missing.Features)
}

func TestFeatureContract_Validate_OutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		feature string
		value   interface{}
	}{
		{name: "还款状态必须为0或1", feature: "loan_repayment_status", value: 2},
		{name: "充值频率上界为4", feature: "mobile_recharge_frequency", value: 5},
		{name: "充值频率下界为1", feature: "mobile_recharge_frequency", value: 0},
		{name: "就业类型枚举", feature: "employment_type", value: 3},
		{name: "年龄下界18", feature: "age", value: 17},
		{name: "年龄上界65", feature: "age", value: 66},
		{name: "月收入非负", feature: "monthly_income", value: -1},
		{name: "非数值输入", feature: "age", value: "abc"},
	}

	contract := DefaultContract()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := validInstance()
			data[tt.feature] = tt.value

			err := contract.Validate(data)
			require.Error(t, err)

			var outOfRange *OutOfRangeError
			require.True(t, errors.As(err, &outOfRange))
			assert.Equal(t, tt.feature, outOfRange.Feature)
			assert.NotEmpty(t, outOfRange.Reason)
		})
	}
}

func TestFeatureContract_Validate_IgnoresUnknownFeatures(t *testing.T) {
	contract := DefaultContract()
	data := validInstance()
	data["unknown_feature"] = "whatever"

	assert.NoError(t, contract.Validate(data))
}

func TestFeatureContract_Validate_Idempotent(t *testing.T) {
	contract := DefaultContract()
	data := validInstance()
	data["age"] = 99

	first := contract.Validate(data)
	second := contract.Validate(data)

	require.Error(t, first)
	require.Error(t, second)
	assert.Equal(t, first.Error(), second.Error())
	// 校验不得修改输入
	assert.Equal(t, 99, data["age"])
}

func TestFeatureContract_Vector_Order(t *testing.T) {
	contract := DefaultContract()
	vec := contract.Vector(validInstance())

	assert.Equal(t, []float64{1, 12, 1, 3, 1, 30, 15000, 2}, vec)
}

func TestFeatureContract_Vector_DefaultsForMissing(t *testing.T) {
	contract := DefaultContract()
	vec := contract.Vector(FeatureMap{})

	require.Len(t, vec, len(contract))
	for i, name := range contract {
		assert.Equal(t, FeatureDefault(name), vec[i], name)
	}
}

func TestFeatureContract_ApplyDefaults(t *testing.T) {
	contract := DefaultContract()
	filled := contract.ApplyDefaults(FeatureMap{"loan_repayment_status": 0, "age": 45})

	require.Len(t, filled, len(contract))
	assert.Equal(t, 0, filled["loan_repayment_status"])
	assert.Equal(t, 45, filled["age"])
	assert.Equal(t, FeatureDefault("monthly_income"), filled["monthly_income"])
	assert.NoError(t, contract.Validate(filled))
}

func TestFeatureContract_ApplyDefaults_DoesNotMutateInput(t *testing.T) {
	input := FeatureMap{"age": 45}
	DefaultContract().ApplyDefaults(input)

	assert.Len(t, input, 1)
}

func TestContractFromColumns(t *testing.T) {
	columns := []string{
		ColumnBeneficiaryID,
		"loan_repayment_status",
		"age",
		ColumnTarget,
	}

	contract := ContractFromColumns(columns)
	assert.Equal(t, FeatureContract{"loan_repayment_status", "age"}, contract)
}

func TestFeatureLabel(t *testing.T) {
	assert.Equal(t, "Loan Repayment History", FeatureLabel("loan_repayment_status"))
	assert.Equal(t, "custom_feature", FeatureLabel("custom_feature"))
}
