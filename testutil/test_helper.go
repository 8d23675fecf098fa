/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"incluscore-service/service/models"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Beneficiary{},
		&models.ScoreRecord{},
		&models.User{},
		&models.SystemConfig{},
		&models.SSEEvent{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"score_history",
		"beneficiaries",
		"users",
		"system_configs",
		"sse_events",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// BeneficiaryOption 受益人选项函数类型
type BeneficiaryOption func(*models.Beneficiary)

// CreateBeneficiary 创建测试受益人
func (f *TestDataFactory) CreateBeneficiary(opts ...BeneficiaryOption) *models.Beneficiary {
	beneficiary := &models.Beneficiary{
		BeneficiaryCode:           "BEN-" + generateSuffix(),
		Name:                      "测试受益人",
		Email:                     "test_" + generateSuffix() + "@example.com",
		TenantID:                  "tenant-test",
		LoanRepaymentStatus:       1,
		LoanTenureMonths:          12,
		ElectricityBillPaidOnTime: 1,
		MobileRechargeFrequency:   3,
		IsHighNeed:                0,
		Age:                       30,
		MonthlyIncome:             15000,
		EmploymentType:            2,
		CreatedBy:                 "test",
		UpdatedBy:                 "test",
		Status:                    "active",
	}

	for _, opt := range opts {
		opt(beneficiary)
	}

	if err := f.DB.Create(beneficiary).Error; err != nil {
		panic(fmt.Sprintf("failed to create test beneficiary: %v", err))
	}

	return beneficiary
}

// WithLabel 设置受益人真值标签
func WithLabel(label int) BeneficiaryOption {
	return func(b *models.Beneficiary) {
		b.Creditworthy = &label
	}
}

// WithCode 设置受益人编号
func WithCode(code string) BeneficiaryOption {
	return func(b *models.Beneficiary) {
		b.BeneficiaryCode = code
	}
}

// ScoreRecordOption 评分记录选项函数类型
type ScoreRecordOption func(*models.ScoreRecord)

// CreateScoreRecord 创建测试评分记录
func (f *TestDataFactory) CreateScoreRecord(beneficiaryID string, opts ...ScoreRecordOption) *models.ScoreRecord {
	record := &models.ScoreRecord{
		BeneficiaryID: beneficiaryID,
		Score:         720,
		Probability:   0.7,
		RiskNeed:      "Low Risk - Low Need",
		Explanation:   "test explanation",
		FeatureImpacts: models.JSONB{
			"loan_repayment_status": 0.5,
		},
		CalculatedBy: "test",
	}

	for _, opt := range opts {
		opt(record)
	}

	if err := f.DB.Create(record).Error; err != nil {
		panic(fmt.Sprintf("failed to create test score record: %v", err))
	}

	return record
}

// WithScore 设置评分记录分数
func WithScore(score int) ScoreRecordOption {
	return func(r *models.ScoreRecord) {
		r.Score = score
	}
}

// WithCreatedAt 设置评分记录创建时间
func WithCreatedAt(t time.Time) ScoreRecordOption {
	return func(r *models.ScoreRecord) {
		r.CreatedAt = t
	}
}

// UserOption 用户选项函数类型
type UserOption func(*models.User)

// CreateUser 创建测试用户，密码为plain的bcrypt散列
func (f *TestDataFactory) CreateUser(plainPassword string, opts ...UserOption) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("failed to hash test password: %v", err))
	}

	user := &models.User{
		Email:        "user_" + generateSuffix() + "@example.com",
		Name:         "测试用户",
		PasswordHash: string(hash),
		Role:         models.RoleViewer,
		Permissions:  models.JSONBStringArray{"score:read"},
		Status:       models.UserStatusOK,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := f.DB.Create(user).Error; err != nil {
		panic(fmt.Sprintf("failed to create test user: %v", err))
	}

	return user
}

// WithRole 设置用户角色
func WithRole(role string) UserOption {
	return func(u *models.User) {
		u.Role = role
	}
}

// 辅助函数
var suffixCounter int64

func generateSuffix() string {
	suffixCounter++
	return fmt.Sprintf("%d%d", time.Now().UnixNano()%100000, suffixCounter)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
