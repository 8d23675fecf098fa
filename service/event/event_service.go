/*
 * @module service/event/event_service
 * @description 事件服务，管理SSE客户端连接并监听评分历史表的数据库变更通知，向订阅用户实时推送评分事件
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 数据库NOTIFY -> 监听器 -> 事件分发 -> SSE客户端推送
 * @rules 客户端队列满时丢弃而不阻塞；监听器仅在PostgreSQL部署下启用
 * @dependencies incluscore-service/service/models, gorm.io/gorm, github.com/lib/pq
 * @refs api/controllers/event_controller.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"incluscore-service/service/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// 数据库通知通道名
const notifyChannel = "incluscore_changes"

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserName string
	Channel  chan *models.SSEEvent
	Done     chan bool
}

// EventService 事件管理服务
type EventService struct {
	db          *gorm.DB
	connections map[string]map[string]*SSEClient // userName -> connectionID -> client
	mu          sync.RWMutex
	dbListener  *pq.Listener
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewEventService 创建事件服务实例。enableListener为真时启动PostgreSQL变更监听
func NewEventService(db *gorm.DB, enableListener bool) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		db:          db,
		connections: make(map[string]map[string]*SSEClient),
		ctx:         ctx,
		cancel:      cancel,
	}

	if enableListener {
		go service.startDBListener()
	}

	return service
}

// Stop 停止事件服务
func (s *EventService) Stop() {
	s.cancel()
	if s.dbListener != nil {
		s.dbListener.Close()
	}
}

// AddConnection 注册SSE客户端连接
func (s *EventService) AddConnection(userName, connectionID string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[userName] == nil {
		s.connections[userName] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		UserName: userName,
		Channel:  make(chan *models.SSEEvent, 100),
		Done:     make(chan bool),
	}
	s.connections[userName][connectionID] = client

	slog.Info("SSE连接已建立", "user", userName, "connection_id", connectionID)
	return client
}

// RemoveConnection 移除SSE客户端连接
func (s *EventService) RemoveConnection(userName, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userConnections, exists := s.connections[userName]; exists {
		if client, ok := userConnections[connectionID]; ok {
			close(client.Done)
			delete(userConnections, connectionID)
			if len(userConnections) == 0 {
				delete(s.connections, userName)
			}
			slog.Info("SSE连接已断开", "user", userName, "connection_id", connectionID)
		}
	}
}

// SendToUser 向指定用户的所有连接发送事件并落库
func (s *EventService) SendToUser(userName string, event *models.SSEEvent) error {
	event.UserName = userName
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("保存SSE事件失败: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	userConnections, exists := s.connections[userName]
	if !exists {
		return fmt.Errorf("用户 %s 没有活跃的SSE连接", userName)
	}

	for _, client := range userConnections {
		select {
		case client.Channel <- event:
		default:
			slog.Warn("SSE事件队列已满，跳过发送", "user", userName, "connection_id", client.ID)
		}
	}
	return nil
}

// Broadcast 向所有在线用户广播事件
func (s *EventService) Broadcast(event *models.SSEEvent) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("保存广播事件失败: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for userName, userConnections := range s.connections {
		for _, client := range userConnections {
			eventCopy := *event
			eventCopy.UserName = userName
			select {
			case client.Channel <- &eventCopy:
			default:
				slog.Warn("SSE事件队列已满，跳过广播", "user", userName, "connection_id", client.ID)
			}
		}
	}
	return nil
}

// startDBListener 启动PostgreSQL通知监听器，把评分历史的插入变更推送给在线用户
func (s *EventService) startDBListener() {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	s.dbListener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("PostgreSQL监听器异常", "event", ev, "error", err)
		}
	})

	if err := s.dbListener.Listen(notifyChannel); err != nil {
		slog.Error("监听数据库通知失败", "channel", notifyChannel, "error", err)
		return
	}
	slog.Info("数据库监听器已启动", "channel", notifyChannel)

	for {
		select {
		case notification := <-s.dbListener.Notify:
			if notification != nil {
				s.handleDBNotification(notification)
			}
		case <-s.ctx.Done():
			slog.Info("数据库监听器已停止")
			return
		}
	}
}

// handleDBNotification 处理数据库变更通知，评分历史的新增记录广播给在线用户
func (s *EventService) handleDBNotification(notification *pq.Notification) {
	var changeData map[string]interface{}
	if err := json.Unmarshal([]byte(notification.Extra), &changeData); err != nil {
		slog.Error("解析数据库通知失败", "error", err)
		return
	}

	tableName, _ := changeData["table"].(string)
	if tableName != (models.ScoreRecord{}).TableName() {
		return
	}

	event := &models.SSEEvent{
		EventType: models.EventTypeScoreCalculated,
		Data:      models.JSONB(changeData),
		CreatedBy: "db-listener",
	}
	if err := s.Broadcast(event); err != nil {
		slog.Warn("广播评分变更事件失败", "error", err)
	}
}
