/*
 * @module service/models/beneficiary
 * @description 受益人与评分历史模型定义，受益人行为/人口特征列即评分模型的特征契约列
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 受益人创建 -> 特征维护 -> 评分计算 -> 评分历史归档
 * @rules 特征列名与评分引擎特征契约保持一致；评分历史只追加不修改
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/scoring/features.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Beneficiary 受益人模型，特征列与评分模型的特征契约一一对应
type Beneficiary struct {
	ID              string `json:"id" gorm:"primaryKey;type:varchar(36)" example:"550e8400-e29b-41d4-a716-446655440000"`
	BeneficiaryCode string `json:"beneficiary_code" gorm:"not null;unique;size:50" example:"BEN-2024-0001"`
	Name            string `json:"name" gorm:"not null;size:255" example:"张三"`
	Email           string `json:"email" gorm:"size:255;index" example:"zhangsan@example.com"`
	TenantID        string `json:"tenant_id" gorm:"size:100;index" example:"tenant-001"`

	// 评分特征列，顺序与特征契约一致
	LoanRepaymentStatus       int     `json:"loan_repayment_status" gorm:"not null;default:1" example:"1"`
	LoanTenureMonths          int     `json:"loan_tenure_months" gorm:"not null;default:12" example:"12"`
	ElectricityBillPaidOnTime int     `json:"electricity_bill_paid_on_time" gorm:"not null;default:1" example:"1"`
	MobileRechargeFrequency   int     `json:"mobile_recharge_frequency" gorm:"not null;default:4" example:"3"`
	IsHighNeed                int     `json:"is_high_need" gorm:"not null;default:0" example:"1"`
	Age                       int     `json:"age" gorm:"not null;default:30" example:"30"`
	MonthlyIncome             float64 `json:"monthly_income" gorm:"not null;default:0" example:"15000"`
	EmploymentType            int     `json:"employment_type" gorm:"not null;default:0" example:"2"`

	// 训练标签，在线更新提供真值后回填
	Creditworthy *int `json:"creditworthy,omitempty" gorm:"" example:"1"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	CreatedBy string    `json:"created_by" gorm:"not null;default:'system';size:100"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedBy string    `json:"updated_by" gorm:"not null;default:'system';size:100"`
	Status    string    `json:"status" gorm:"not null;default:'active';size:20" example:"active"`

	// 关联关系
	ScoreRecords []ScoreRecord `json:"score_records,omitempty" gorm:"foreignKey:BeneficiaryID"`
}

// TableName 指定表名
func (Beneficiary) TableName() string {
	return "beneficiaries"
}

// BeforeCreate 创建前生成UUID
func (b *Beneficiary) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

// FeatureValues 返回特征名到取值的映射，供评分引擎消费
func (b *Beneficiary) FeatureValues() map[string]interface{} {
	return map[string]interface{}{
		"loan_repayment_status":         b.LoanRepaymentStatus,
		"loan_tenure_months":            b.LoanTenureMonths,
		"electricity_bill_paid_on_time": b.ElectricityBillPaidOnTime,
		"mobile_recharge_frequency":     b.MobileRechargeFrequency,
		"is_high_need":                  b.IsHighNeed,
		"age":                           b.Age,
		"monthly_income":                b.MonthlyIncome,
		"employment_type":               b.EmploymentType,
	}
}

// ScoreRecord 评分历史记录，每次评分计算追加一条
type ScoreRecord struct {
	ID            string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BeneficiaryID string  `json:"beneficiary_id" gorm:"not null;type:varchar(36);index"`
	Score         int     `json:"score" gorm:"not null" example:"720"`
	Probability   float64 `json:"probability" gorm:"not null" example:"0.7"`
	RiskNeed      string  `json:"risk_need" gorm:"not null;size:50" example:"Low Risk - High Need"`
	Explanation   string  `json:"explanation" gorm:"type:text"`
	// 逐特征贡献，键为特征名
	FeatureImpacts JSONB     `json:"feature_impacts" gorm:"type:jsonb"`
	CalculatedBy   string    `json:"calculated_by" gorm:"not null;default:'system';size:100"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`

	// 关联关系
	Beneficiary Beneficiary `json:"beneficiary,omitempty" gorm:"foreignKey:BeneficiaryID"`
}

// TableName 指定表名
func (ScoreRecord) TableName() string {
	return "score_history"
}

// BeforeCreate 创建前生成UUID
func (r *ScoreRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
