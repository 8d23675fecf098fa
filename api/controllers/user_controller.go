/*
 * @module api/controllers/user_controller
 * @description 用户管理控制器，提供用户注册、登录认证、角色管理和统计接口
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> 参数校验 -> 用户服务 -> 响应返回
 * @rules 密码只以bcrypt哈希存储，响应中永不回传
 * @dependencies incluscore-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/user
 */

package controllers

import (
	"net/http"
	"strconv"

	"incluscore-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// UserController 用户管理控制器
type UserController struct{}

// NewUserController 创建用户控制器实例
func NewUserController() *UserController {
	return &UserController{}
}

// RegisterRequest 用户注册请求
type RegisterRequest struct {
	Email    string `json:"email" example:"agent@example.com"`
	Name     string `json:"name" example:"李四"`
	Password string `json:"password" example:"secret"`
	Role     string `json:"role" example:"field_agent"`
}

// Register 用户注册
// @Summary 注册用户
// @Description 创建新用户，按角色分配默认权限
// @Tags 用户管理
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册请求"
// @Success 200 {object} APIResponse{data=models.User}
// @Router /users [post]
func (c *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	if req.Email == "" || req.Password == "" {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "邮箱和密码不能为空",
		})
		return
	}

	user, err := service.GlobalUserService.Create(req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "注册用户失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "注册用户成功",
		"data":   user,
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" example:"agent@example.com"`
	Password string `json:"password" example:"secret"`
}

// Login 用户登录
// @Summary 用户登录
// @Description 校验邮箱和密码，返回用户信息和权限
// @Tags 用户管理
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录请求"
// @Success 200 {object} APIResponse{data=models.User}
// @Router /users/login [post]
func (c *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	user, err := service.GlobalUserService.Authenticate(req.Email, req.Password)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusUnauthorized,
			"msg":    "登录失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "登录成功",
		"data":   user,
	})
}

// ListUsers 用户列表
// @Summary 用户列表
// @Description 返回用户列表
// @Tags 用户管理
// @Produce json
// @Param limit query int false "返回条数" default(50)
// @Success 200 {object} APIResponse{data=[]models.User}
// @Router /users [get]
func (c *UserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	users, err := service.GlobalUserService.List(limit)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "查询用户列表失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "查询用户列表成功",
		"data":   users,
	})
}

// UpdateRoleRequest 角色更新请求
type UpdateRoleRequest struct {
	Role string `json:"role" example:"viewer"`
}

// UpdateRole 更新用户角色
// @Summary 更新用户角色
// @Description 更新用户角色并重算权限
// @Tags 用户管理
// @Accept json
// @Produce json
// @Param id path string true "用户ID"
// @Param request body UpdateRoleRequest true "角色"
// @Success 200 {object} APIResponse
// @Router /users/{id}/role [put]
func (c *UserController) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	if err := service.GlobalUserService.UpdateRole(id, req.Role); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "更新角色失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "更新角色成功",
	})
}

// DeactivateUser 停用用户
// @Summary 停用用户
// @Description 停用用户账号，停用后不能再登录
// @Tags 用户管理
// @Produce json
// @Param id path string true "用户ID"
// @Success 200 {object} APIResponse
// @Router /users/{id}/deactivate [post]
func (c *UserController) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := service.GlobalUserService.Deactivate(id); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "停用用户失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "停用用户成功",
	})
}

// UserStats 用户统计
// @Summary 用户统计
// @Description 返回各角色的用户数量
// @Tags 用户管理
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]int64}
// @Router /users/stats [get]
func (c *UserController) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := service.GlobalUserService.Stats()
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "查询用户统计失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "查询用户统计成功",
		"data":   stats,
	})
}
