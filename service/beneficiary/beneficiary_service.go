/*
 * @module service/beneficiary/beneficiary_service
 * @description 受益人服务，提供受益人CRUD、字段白名单更新、评分历史归档与训练数据集构建
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 受益人维护 -> 评分计算(由评分引擎完成) -> 评分历史追加 -> 标签回填供再训练
 * @rules 动态更新只允许白名单内的列，经gorm参数化执行，杜绝注入与类型混淆
 * @dependencies incluscore-service/service/models, incluscore-service/service/scoring, gorm.io/gorm
 * @refs service/scoring/engine.go
 */

package beneficiary

import (
	"errors"
	"fmt"

	"incluscore-service/service/models"
	"incluscore-service/service/scoring"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// updatableFields 受益人动态更新的字段白名单，JSON字段名到数据库列名的闭合映射
var updatableFields = map[string]string{
	"name":                          "name",
	"email":                         "email",
	"tenant_id":                     "tenant_id",
	"status":                        "status",
	"loan_repayment_status":         "loan_repayment_status",
	"loan_tenure_months":            "loan_tenure_months",
	"electricity_bill_paid_on_time": "electricity_bill_paid_on_time",
	"mobile_recharge_frequency":     "mobile_recharge_frequency",
	"is_high_need":                  "is_high_need",
	"age":                           "age",
	"monthly_income":                "monthly_income",
	"employment_type":               "employment_type",
	"creditworthy":                  "creditworthy",
}

// Service 受益人服务
type Service struct {
	db *gorm.DB
}

// NewService 创建受益人服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create 创建受益人
func (s *Service) Create(beneficiary *models.Beneficiary) error {
	var count int64
	if err := s.db.Model(&models.Beneficiary{}).
		Where("beneficiary_code = ?", beneficiary.BeneficiaryCode).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("受益人编号已存在")
	}
	return s.db.Create(beneficiary).Error
}

// GetByID 根据ID获取受益人
func (s *Service) GetByID(id string) (*models.Beneficiary, error) {
	var beneficiary models.Beneficiary
	if err := s.db.First(&beneficiary, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &beneficiary, nil
}

// GetByCode 根据受益人编号获取受益人
func (s *Service) GetByCode(code string) (*models.Beneficiary, error) {
	var beneficiary models.Beneficiary
	if err := s.db.First(&beneficiary, "beneficiary_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &beneficiary, nil
}

// List 分页查询受益人，支持租户和邮箱过滤
func (s *Service) List(page, pageSize int, tenantID, email string) ([]models.Beneficiary, int64, error) {
	var beneficiaries []models.Beneficiary
	var total int64

	query := s.db.Model(&models.Beneficiary{})
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if email != "" {
		query = query.Where("email = ?", email)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&beneficiaries).Error; err != nil {
		return nil, 0, err
	}

	return beneficiaries, total, nil
}

// Update 按白名单更新受益人字段，白名单外的键直接忽略。
// 特征字段先经评分引擎的取值约束校验再入库
func (s *Service) Update(id string, updates map[string]interface{}, updatedBy string) error {
	filtered := map[string]interface{}{}
	contract := scoring.DefaultContract()

	for key, value := range updates {
		column, ok := updatableFields[key]
		if !ok {
			continue
		}
		filtered[column] = value
	}
	if len(filtered) == 0 {
		return errors.New("没有可更新的字段")
	}

	// 特征字段的取值必须满足特征契约约束
	featureUpdates := scoring.FeatureMap{}
	for _, name := range contract {
		if value, ok := filtered[name]; ok {
			featureUpdates[name] = value
		}
	}
	if len(featureUpdates) > 0 {
		beneficiary, err := s.GetByID(id)
		if err != nil {
			return err
		}
		merged := scoring.FeatureMap(beneficiary.FeatureValues())
		for name, value := range featureUpdates {
			merged[name] = value
		}
		if err := contract.Validate(merged); err != nil {
			return fmt.Errorf("特征取值校验失败: %w", err)
		}
	}

	filtered["updated_by"] = updatedBy
	result := s.db.Model(&models.Beneficiary{}).Where("id = ?", id).Updates(filtered)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除受益人及其评分历史
func (s *Service) Delete(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("beneficiary_id = ?", id).Delete(&models.ScoreRecord{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Beneficiary{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SaveScore 追加一条评分历史记录
func (s *Service) SaveScore(record *models.ScoreRecord) error {
	return s.db.Create(record).Error
}

// GetScoreHistory 查询受益人最近的评分历史，按时间倒序
func (s *Service) GetScoreHistory(beneficiaryID string, limit int) ([]models.ScoreRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var records []models.ScoreRecord
	err := s.db.Where("beneficiary_id = ?", beneficiaryID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// LatestScore 查询受益人最近一次评分记录
func (s *Service) LatestScore(beneficiaryID string) (*models.ScoreRecord, error) {
	var record models.ScoreRecord
	err := s.db.Where("beneficiary_id = ?", beneficiaryID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// TrainingDataset 用已有真值标签的受益人构建训练数据集，列顺序与特征契约一致
func (s *Service) TrainingDataset() (*scoring.Dataset, error) {
	var beneficiaries []models.Beneficiary
	if err := s.db.Where("creditworthy IS NOT NULL").Find(&beneficiaries).Error; err != nil {
		return nil, err
	}

	contract := scoring.DefaultContract()
	ds := &scoring.Dataset{
		Columns:  contract,
		Features: make([][]float64, 0, len(beneficiaries)),
		Labels:   make([]int, 0, len(beneficiaries)),
	}

	for _, b := range beneficiaries {
		values := b.FeatureValues()
		row := make([]float64, len(contract))
		for i, name := range contract {
			row[i] = cast.ToFloat64(values[name])
		}
		ds.Features = append(ds.Features, row)
		ds.Labels = append(ds.Labels, *b.Creditworthy)
	}

	return ds, nil
}

// SetLabel 回填受益人的真值标签
func (s *Service) SetLabel(id string, label int) error {
	result := s.db.Model(&models.Beneficiary{}).Where("id = ?", id).Update("creditworthy", label)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SeedFromDataset 把合成数据集写入受益人表，用于演示环境引导
func (s *Service) SeedFromDataset(ds *scoring.Dataset, createdBy string) (int, error) {
	contract := scoring.DefaultContract()
	created := 0

	for i, row := range ds.Features {
		values := map[string]float64{}
		for j, name := range contract {
			values[name] = row[j]
		}
		label := ds.Labels[i]
		beneficiary := &models.Beneficiary{
			BeneficiaryCode:           fmt.Sprintf("SEED-%04d", i+1),
			Name:                      fmt.Sprintf("演示受益人%d", i+1),
			LoanRepaymentStatus:       int(values["loan_repayment_status"]),
			LoanTenureMonths:          int(values["loan_tenure_months"]),
			ElectricityBillPaidOnTime: int(values["electricity_bill_paid_on_time"]),
			MobileRechargeFrequency:   int(values["mobile_recharge_frequency"]),
			IsHighNeed:                int(values["is_high_need"]),
			Age:                       int(values["age"]),
			MonthlyIncome:             values["monthly_income"],
			EmploymentType:            int(values["employment_type"]),
			Creditworthy:              &label,
			CreatedBy:                 createdBy,
			UpdatedBy:                 createdBy,
		}

		if err := s.Create(beneficiary); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}
