/*
 * @module api/controllers/event_controller
 * @description 事件管理控制器，提供SSE连接和评分事件推送管理API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> SSE连接注册 -> 事件通道推送 -> 连接断开清理
 * @rules SSE推送队列满时丢弃事件而不阻塞请求处理
 * @dependencies incluscore-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/event
 */

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"incluscore-service/service"
	"incluscore-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// EventController 事件管理控制器
type EventController struct{}

// NewEventController 创建事件控制器实例
func NewEventController() *EventController {
	return &EventController{}
}

// HandleSSE 处理SSE连接
// @Summary 建立SSE连接
// @Description 前端通过此接口建立SSE连接，接收评分和模型变更的实时推送
// @Tags 事件管理
// @Param user_name path string true "用户名"
// @Success 200 {string} string "SSE事件流"
// @Router /sse/{user_name} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	userName := chi.URLParam(r, "user_name")
	if userName == "" {
		http.Error(w, "用户名不能为空", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	connectionID := uuid.New().String()
	client := service.GlobalEventService.AddConnection(userName, connectionID)
	defer service.GlobalEventService.RemoveConnection(userName, connectionID)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"connection_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		connectionID, time.Now().Format(time.RFC3339))
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	for {
		select {
		case event := <-client.Channel:
			fmt.Fprintf(w, "data: %s\n\n", toJSON(event))
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// SendEventRequest 发送事件请求
type SendEventRequest struct {
	UserName  string                 `json:"user_name" example:"admin"`
	EventType string                 `json:"event_type" example:"score_calculated"`
	Data      map[string]interface{} `json:"data"`
}

// SendEvent 发送事件给指定用户
// @Summary 发送事件
// @Description 向指定用户发送SSE事件
// @Tags 事件管理
// @Accept json
// @Produce json
// @Param request body SendEventRequest true "发送事件请求"
// @Success 200 {object} APIResponse
// @Router /events/send [post]
func (c *EventController) SendEvent(w http.ResponseWriter, r *http.Request) {
	var req SendEventRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	if req.UserName == "" || req.EventType == "" {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "用户名和事件类型不能为空",
		})
		return
	}

	event := &models.SSEEvent{
		EventType: req.EventType,
		UserName:  req.UserName,
		Data:      models.JSONB(req.Data),
		CreatedBy: "api",
	}
	if err := service.GlobalEventService.SendToUser(req.UserName, event); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "发送事件失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "事件发送成功",
		"data": map[string]interface{}{
			"event_id": event.ID,
		},
	})
}

// BroadcastEventRequest 广播事件请求
type BroadcastEventRequest struct {
	EventType string                 `json:"event_type" example:"model_updated"`
	Data      map[string]interface{} `json:"data"`
}

// BroadcastEvent 广播事件
// @Summary 广播事件
// @Description 向所有在线用户广播SSE事件
// @Tags 事件管理
// @Accept json
// @Produce json
// @Param request body BroadcastEventRequest true "广播事件请求"
// @Success 200 {object} APIResponse
// @Router /events/broadcast [post]
func (c *EventController) BroadcastEvent(w http.ResponseWriter, r *http.Request) {
	var req BroadcastEventRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	if req.EventType == "" {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "事件类型不能为空",
		})
		return
	}

	event := &models.SSEEvent{
		EventType: req.EventType,
		Data:      models.JSONB(req.Data),
		CreatedBy: "api",
	}
	if err := service.GlobalEventService.Broadcast(event); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "广播事件失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "事件广播成功",
	})
}

// toJSON 将对象转换为JSON字符串
func toJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}
