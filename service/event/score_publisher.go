/*
 * @module service/event/score_publisher
 * @description 评分事件Kafka发布器，把评分、更新、训练事件异步发布到消息队列供下游系统消费
 * @architecture 适配器模式 - 封装第三方Kafka客户端
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 评分完成 -> 事件序列化 -> Kafka发送
 * @rules 未配置KAFKA_BROKERS时发布器为空操作；发送失败只记录日志不影响主流程
 * @dependencies github.com/segmentio/kafka-go, incluscore-service/service/models
 * @refs service/event/event_service.go
 */

package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"incluscore-service/service/models"

	"github.com/segmentio/kafka-go"
)

// ScorePublisher 评分事件发布器
type ScorePublisher struct {
	writer  *kafka.Writer
	enabled bool
}

// NewScorePublisher 创建评分事件发布器，brokers为空时返回空操作发布器
func NewScorePublisher() *ScorePublisher {
	brokers := getEnvWithDefault("KAFKA_BROKERS", "")
	if brokers == "" {
		slog.Info("未配置KAFKA_BROKERS，评分事件发布已禁用")
		return &ScorePublisher{enabled: false}
	}

	topic := getEnvWithDefault("KAFKA_SCORE_TOPIC", "incluscore.score.events")

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 100 * time.Millisecond,
	}

	slog.Info("评分事件发布器已初始化", "brokers", brokers, "topic", topic)
	return &ScorePublisher{writer: writer, enabled: true}
}

// Enabled 返回发布器是否启用
func (p *ScorePublisher) Enabled() bool {
	return p.enabled
}

// Publish 发布评分事件，按受益人ID分区保证同一受益人的事件有序
func (p *ScorePublisher) Publish(ctx context.Context, evt *models.ScoreEvent) error {
	if !p.enabled {
		return nil
	}

	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(evt.BeneficiaryID),
		Value: payload,
		Time:  evt.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("发布评分事件失败", "event_type", evt.EventType, "error", err)
		return err
	}
	return nil
}

// PublishAsync 异步发布评分事件，失败只记录日志
func (p *ScorePublisher) PublishAsync(evt *models.ScoreEvent) {
	if !p.enabled {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = p.Publish(ctx, evt)
	}()
}

// Close 关闭发布器
func (p *ScorePublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
