/*
 * @module service/scoring/errors
 * @description 评分引擎错误类型定义，包括特征校验、模型状态、持久化等错误分类
 * @architecture 分层架构 - 核心算法层
 * @documentReference dev_docs/scoring_requirements.md
 * @stateFlow 错误产生 -> 类型化包装 -> 调用方通过errors.As判断处理策略
 * @rules 校验类错误在评分路径内部降级处理，训练/更新路径必须向调用方显式返回
 * @dependencies fmt, strings
 * @refs service/scoring/engine.go
 */

package scoring

import (
	"fmt"
	"strings"
)

// MissingFeatureError 特征缺失错误，一次性携带所有缺失的特征名
type MissingFeatureError struct {
	Features []string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("缺少必需特征: %s", strings.Join(e.Features, ", "))
}

// OutOfRangeError 特征取值越界错误，携带特征名和原因
type OutOfRangeError struct {
	Feature string
	Reason  string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("特征 %s 取值非法: %s", e.Feature, e.Reason)
}

// ModelNotTrainedError 模型未训练错误，预测/更新前必须先完成训练或加载
type ModelNotTrainedError struct{}

func (e *ModelNotTrainedError) Error() string {
	return "模型尚未训练，请先执行初始训练"
}

// SchemaError 特征维度或顺序与已训练模型不匹配，或在拟合前调用
type SchemaError struct {
	Expected int
	Got      int
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("特征模式错误: %s", e.Reason)
	}
	return fmt.Sprintf("特征维度不匹配: 期望 %d 个特征，实际 %d 个", e.Expected, e.Got)
}

// InsufficientDataError 训练数据不足或类别退化
type InsufficientDataError struct {
	Rows   int
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("训练数据不足(%d行): %s", e.Rows, e.Reason)
}

// PersistenceError 模型工件读写失败，内存中的旧模型仍然可用
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("模型持久化失败(%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
