/*
 * @module service/scoring/scaler
 * @description 特征标准化器，训练时按契约顺序拟合逐特征均值/标准差，预测与更新复用同一组统计量
 * @architecture 分层架构 - 核心算法层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow Fit(训练分区) -> 持久化统计量 -> Transform(预测/更新输入)
 * @rules 零方差特征的标准差按1处理，未拟合或维度不匹配时返回SchemaError
 * @dependencies gonum.org/v1/gonum/stat
 * @refs service/scoring/engine.go, service/scoring/store.go
 */

package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler 逐特征标准化器，字段导出以便JSON持久化
type StandardScaler struct {
	Mean   []float64 `json:"mean"`
	Std    []float64 `json:"std"`
	Fitted bool      `json:"fitted"`
}

// NewStandardScaler 创建未拟合的标准化器
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{}
}

// Fit 在训练矩阵上拟合逐列均值和标准差，列顺序即特征契约顺序。
// 标准差为0或非有限值的列按1处理，避免除零
func (s *StandardScaler) Fit(features [][]float64) error {
	if len(features) == 0 || len(features[0]) == 0 {
		return &InsufficientDataError{Rows: 0, Reason: "标准化器拟合需要非空训练矩阵"}
	}

	cols := len(features[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	column := make([]float64, len(features))
	for j := 0; j < cols; j++ {
		for i, row := range features {
			if len(row) != cols {
				return &SchemaError{Expected: cols, Got: len(row)}
			}
			column[i] = row[j]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
			std = 1
		}
		s.Mean[j] = mean
		s.Std[j] = std
	}

	s.Fitted = true
	return nil
}

// Transform 对单个特征向量做标准化 (x-mean)/std
func (s *StandardScaler) Transform(vector []float64) ([]float64, error) {
	if !s.Fitted {
		return nil, &SchemaError{Reason: "标准化器尚未拟合"}
	}
	if len(vector) != len(s.Mean) {
		return nil, &SchemaError{Expected: len(s.Mean), Got: len(vector)}
	}

	scaled := make([]float64, len(vector))
	for j, value := range vector {
		scaled[j] = (value - s.Mean[j]) / s.Std[j]
	}
	return scaled, nil
}

// TransformMatrix 对特征矩阵逐行标准化
func (s *StandardScaler) TransformMatrix(features [][]float64) ([][]float64, error) {
	scaled := make([][]float64, len(features))
	for i, row := range features {
		out, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		scaled[i] = out
	}
	return scaled, nil
}
