/*
 * @module service/scoring/scaler_test
 * @description 标准化器的单元测试
 * @architecture 单元测试 - 验证均值/标准差拟合、零方差防护和模式错误
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 构造训练矩阵 -> Fit -> Transform -> 断言统计量
 * @rules 零方差列的标准差必须按1处理，拟合前和维度不匹配必须返回SchemaError
 * @dependencies testing, github.com/stretchr/testify/assert
 * @refs scaler.go
 */

package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	scaler := NewStandardScaler()
	err := scaler.Fit([][]float64{
		{1, 10},
		{2, 20},
		{3, 30},
	})
	require.NoError(t, err)

	assert.InDelta(t, 2, scaler.Mean[0], 1e-9)
	assert.InDelta(t, 20, scaler.Mean[1], 1e-9)

	scaled, err := scaler.Transform([]float64{2, 20})
	require.NoError(t, err)
	assert.InDelta(t, 0, scaled[0], 1e-9)
	assert.InDelta(t, 0, scaled[1], 1e-9)
}

func TestStandardScaler_ZeroVarianceGuard(t *testing.T) {
	scaler := NewStandardScaler()
	err := scaler.Fit([][]float64{
		{5, 1},
		{5, 2},
		{5, 3},
	})
	require.NoError(t, err)

	// 零方差列标准差按1处理，避免除零
	assert.Equal(t, 1.0, scaler.Std[0])

	scaled, err := scaler.Transform([]float64{5, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, scaled[0])
}

func TestStandardScaler_TransformBeforeFit(t *testing.T) {
	scaler := NewStandardScaler()

	_, err := scaler.Transform([]float64{1, 2})
	require.Error(t, err)

	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestStandardScaler_DimensionMismatch(t *testing.T) {
	scaler := NewStandardScaler()
	require.NoError(t, scaler.Fit([][]float64{{1, 2}, {3, 4}}))

	_, err := scaler.Transform([]float64{1, 2, 3})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, 2, schemaErr.Expected)
	assert.Equal(t, 3, schemaErr.Got)
}

func TestStandardScaler_EmptyMatrix(t *testing.T) {
	scaler := NewStandardScaler()
	err := scaler.Fit(nil)
	require.Error(t, err)

	var insufficient *InsufficientDataError
	assert.True(t, errors.As(err, &insufficient))
}

func TestStandardScaler_TransformMatrix(t *testing.T) {
	scaler := NewStandardScaler()
	require.NoError(t, scaler.Fit([][]float64{{0}, {10}}))

	scaled, err := scaler.TransformMatrix([][]float64{{0}, {5}, {10}})
	require.NoError(t, err)
	require.Len(t, scaled, 3)
	assert.InDelta(t, 0, scaled[1][0], 1e-9)
	assert.InDelta(t, -scaled[0][0], scaled[2][0], 1e-9)
}
