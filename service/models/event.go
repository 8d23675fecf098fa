/*
 * @module service/models/event
 * @description 评分事件模型定义，包括SSE推送事件和Kafka评分事件载荷
 * @architecture 事件驱动架构 - 事件模型
 * @documentReference dev_docs/model.md
 * @stateFlow 评分/更新完成 -> 事件构造 -> SSE推送/Kafka发布
 * @rules 事件只追加；SSE事件按用户名路由
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/event
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SSE事件类型
const (
	EventTypeScoreCalculated = "score_calculated"
	EventTypeModelUpdated    = "model_updated"
	EventTypeModelTrained    = "model_trained"
)

// SSEEvent SSE事件模型
type SSEEvent struct {
	ID        string     `gorm:"type:varchar(36);primary_key" json:"id"`
	EventType string     `gorm:"not null" json:"event_type"` // score_calculated, model_updated, model_trained
	UserName  string     `gorm:"not null;index" json:"user_name"`
	Data      JSONB      `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy string     `gorm:"not null;default:'system'" json:"created_by"`
	Sent      bool       `gorm:"not null;default:false" json:"sent"`
	SentAt    *time.Time `json:"sent_at"`
}

// TableName 指定表名
func (SSEEvent) TableName() string {
	return "sse_events"
}

// BeforeCreate 创建前生成UUID
func (s *SSEEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// ScoreEvent Kafka评分事件载荷
type ScoreEvent struct {
	EventType     string                 `json:"event_type"`
	BeneficiaryID string                 `json:"beneficiary_id,omitempty"`
	Score         int                    `json:"score,omitempty"`
	RiskNeed      string                 `json:"risk_need,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}
