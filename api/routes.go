/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs dev_docs/model.md
 */

package api

import (
	"incluscore-service/api/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController()
	r.Get("/sse/{user_name}", eventController.HandleSSE)

	// 事件管理
	r.Route("/events", func(r chi.Router) {
		r.Post("/send", eventController.SendEvent)
		r.Post("/broadcast", eventController.BroadcastEvent)
	})

	// 信用评分
	r.Route("/scoring", func(r chi.Router) {
		scoringController := controllers.NewScoringController()

		// 评分模拟，不落库
		r.Post("/simulate", scoringController.Simulate)

		// 受益人评分，写评分历史并推送事件
		r.Post("/beneficiaries/{id}/score", scoringController.ScoreBeneficiary)

		// 在线增量更新
		r.Post("/update", scoringController.UpdateModel)

		// 初始训练
		r.Post("/train", scoringController.Train)
		r.Post("/train-csv", scoringController.TrainFromCSV)

		// 模型解释
		r.Get("/feature-importance", scoringController.FeatureImportance)
		r.Post("/explain", scoringController.Explain)
	})

	// 受益人管理
	r.Route("/beneficiaries", func(r chi.Router) {
		beneficiaryController := controllers.NewBeneficiaryController()

		r.Post("/", beneficiaryController.CreateBeneficiary)
		r.Get("/", beneficiaryController.ListBeneficiaries)
		r.Post("/seed", beneficiaryController.SeedDemoData)
		r.Get("/{id}", beneficiaryController.GetBeneficiary)
		r.Put("/{id}", beneficiaryController.UpdateBeneficiary)
		r.Delete("/{id}", beneficiaryController.DeleteBeneficiary)
		r.Put("/{id}/label", beneficiaryController.SetLabel)
		r.Get("/{id}/score-history", beneficiaryController.GetScoreHistory)
	})

	// 用户管理
	r.Route("/users", func(r chi.Router) {
		userController := controllers.NewUserController()

		r.Post("/", userController.Register)
		r.Post("/login", userController.Login)
		r.Get("/", userController.ListUsers)
		r.Get("/stats", userController.UserStats)
		r.Put("/{id}/role", userController.UpdateRole)
		r.Post("/{id}/deactivate", userController.DeactivateUser)
	})

	// 系统配置
	r.Route("/config", func(r chi.Router) {
		configController := controllers.NewConfigController()

		r.Get("/", configController.GetAllConfigs)
		r.Get("/{key}", configController.GetConfig)
		r.Put("/{key}", configController.UpdateConfig)
	})
}
