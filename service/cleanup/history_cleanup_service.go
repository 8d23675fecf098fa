/*
 * @module service/cleanup/history_cleanup_service
 * @description 评分历史清理服务，定期删除超过保留期的评分记录和已推送的SSE事件
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 定时触发 -> 读取保留配置 -> 执行清理 -> 记录结果
 * @rules 清理失败只记录日志，不影响服务运行
 * @dependencies incluscore-service/service/config, gorm.io/gorm, github.com/robfig/cron/v3
 * @refs service/config, service/models/beneficiary.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"incluscore-service/service/config"
	"incluscore-service/service/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// HistoryCleanupService 评分历史清理服务
type HistoryCleanupService struct {
	db            *gorm.DB
	configService *config.ConfigService
	cron          *cron.Cron
	ctx           context.Context
	cancel        context.CancelFunc
	started       bool
}

// NewHistoryCleanupService 创建评分历史清理服务实例
func NewHistoryCleanupService(db *gorm.DB, configService *config.ConfigService) *HistoryCleanupService {
	ctx, cancel := context.WithCancel(context.Background())

	return &HistoryCleanupService{
		db:            db,
		configService: configService,
		cron:          cron.New(cron.WithSeconds()),
		ctx:           ctx,
		cancel:        cancel,
		started:       false,
	}
}

// CleanupExpiredHistory 清理超过保留期的评分历史与SSE事件
func (s *HistoryCleanupService) CleanupExpiredHistory(ctx context.Context) error {
	slog.Info("开始清理过期评分历史")
	startTime := time.Now()

	retentionDays := s.configService.GetScoreHistoryRetentionDays()

	scoresDeleted, err := s.CleanupScoreRecords(ctx, retentionDays)
	if err != nil {
		slog.Error("清理评分历史失败", "error", err)
	} else {
		slog.Info("清理评分历史完成", "deleted_count", scoresDeleted, "retention_days", retentionDays)
	}

	eventsDeleted, err := s.CleanupSentEvents(ctx, retentionDays)
	if err != nil {
		slog.Error("清理SSE事件失败", "error", err)
	} else {
		slog.Info("清理SSE事件完成", "deleted_count", eventsDeleted)
	}

	slog.Info("评分历史清理完成",
		"scores_deleted", scoresDeleted,
		"events_deleted", eventsDeleted,
		"duration_ms", time.Since(startTime).Milliseconds())

	return nil
}

// CleanupScoreRecords 删除指定保留天数之前的评分记录
func (s *HistoryCleanupService) CleanupScoreRecords(ctx context.Context, retentionDays int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoffDate).Delete(&models.ScoreRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除评分历史失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CleanupSentEvents 删除指定保留天数之前的SSE事件
func (s *HistoryCleanupService) CleanupSentEvents(ctx context.Context, retentionDays int) (int64, error) {
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoffDate).Delete(&models.SSEEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除SSE事件失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// StartScheduledCleanup 启动定时清理任务
func (s *HistoryCleanupService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("评分历史清理调度器已经启动")
	}

	cronExpr := s.configService.GetHistoryCleanupCron()
	slog.Info("启动评分历史清理调度器", "cron", cronExpr)

	_, err := s.cron.AddFunc(cronExpr, func() {
		slog.Info("开始执行定时评分历史清理任务")
		if err := s.CleanupExpiredHistory(s.ctx); err != nil {
			slog.Error("定时评分历史清理任务失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true
	return nil
}

// StopScheduledCleanup 停止定时清理任务
func (s *HistoryCleanupService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	slog.Info("停止评分历史清理调度器")
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.started = false
}
