/*
 * @module api/controllers/beneficiary_controller
 * @description 受益人管理控制器，提供受益人档案的增删改查、标签标注、评分历史查询和演示数据引导接口
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> 参数校验 -> 业务服务 -> 响应返回
 * @rules 档案更新只接受白名单字段；特征字段更新前做取值校验
 * @dependencies incluscore-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/beneficiary
 */

package controllers

import (
	"net/http"
	"strconv"

	"incluscore-service/service"
	"incluscore-service/service/models"
	"incluscore-service/service/scoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// BeneficiaryController 受益人管理控制器
type BeneficiaryController struct{}

// NewBeneficiaryController 创建受益人控制器实例
func NewBeneficiaryController() *BeneficiaryController {
	return &BeneficiaryController{}
}

// CreateBeneficiary 创建受益人
// @Summary 创建受益人档案
// @Description 创建新的受益人档案，编号必须唯一
// @Tags 受益人管理
// @Accept json
// @Produce json
// @Param request body models.Beneficiary true "受益人信息"
// @Success 200 {object} APIResponse{data=models.Beneficiary}
// @Router /beneficiaries [post]
func (c *BeneficiaryController) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var beneficiary models.Beneficiary
	if err := render.DecodeJSON(r.Body, &beneficiary); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	if beneficiary.BeneficiaryCode == "" || beneficiary.Name == "" {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "受益人编号和姓名不能为空",
		})
		return
	}

	if err := service.GlobalBeneficiaryService.Create(&beneficiary); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "创建受益人失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "创建受益人成功",
		"data":   beneficiary,
	})
}

// GetBeneficiary 获取受益人详情
// @Summary 获取受益人详情
// @Description 根据ID获取受益人档案
// @Tags 受益人管理
// @Produce json
// @Param id path string true "受益人ID"
// @Success 200 {object} APIResponse{data=models.Beneficiary}
// @Router /beneficiaries/{id} [get]
func (c *BeneficiaryController) GetBeneficiary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	beneficiary, err := service.GlobalBeneficiaryService.GetByID(id)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusNotFound,
			"msg":    "受益人不存在: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "获取受益人成功",
		"data":   beneficiary,
	})
}

// ListBeneficiaries 受益人列表
// @Summary 受益人分页列表
// @Description 分页查询受益人档案，支持按租户和邮箱过滤
// @Tags 受益人管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页条数" default(10)
// @Param tenant_id query string false "租户ID"
// @Param email query string false "邮箱"
// @Success 200 {object} PaginatedResponse
// @Router /beneficiaries [get]
func (c *BeneficiaryController) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 10
	}

	list, total, err := service.GlobalBeneficiaryService.List(page, size,
		r.URL.Query().Get("tenant_id"), r.URL.Query().Get("email"))
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "查询受益人列表失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "查询受益人列表成功",
		"data":   list,
		"total":  total,
		"page":   page,
		"size":   size,
	})
}

// UpdateBeneficiary 更新受益人
// @Summary 更新受益人档案
// @Description 按字段白名单更新受益人档案，特征字段经过取值校验
// @Tags 受益人管理
// @Accept json
// @Produce json
// @Param id path string true "受益人ID"
// @Param request body map[string]interface{} true "待更新字段"
// @Success 200 {object} APIResponse
// @Router /beneficiaries/{id} [put]
func (c *BeneficiaryController) UpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	if err := service.GlobalBeneficiaryService.Update(id, updates, "api"); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "更新受益人失败: " + err.Error(),
		})
		return
	}

	// 特征变更后该受益人的评分缓存不再有效
	_ = service.GlobalScoreCache.Invalidate(r.Context(), id)

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "更新受益人成功",
	})
}

// DeleteBeneficiary 删除受益人
// @Summary 删除受益人档案
// @Description 删除受益人及其全部评分历史
// @Tags 受益人管理
// @Produce json
// @Param id path string true "受益人ID"
// @Success 200 {object} APIResponse
// @Router /beneficiaries/{id} [delete]
func (c *BeneficiaryController) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := service.GlobalBeneficiaryService.Delete(id); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "删除受益人失败: " + err.Error(),
		})
		return
	}

	_ = service.GlobalScoreCache.Invalidate(r.Context(), id)

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "删除受益人成功",
	})
}

// SetLabelRequest 真值标签标注请求
type SetLabelRequest struct {
	Creditworthy int `json:"creditworthy" example:"1"`
}

// SetLabel 标注真值标签
// @Summary 标注受益人真值标签
// @Description 由实地核验人员写入受益人的真实信用结果，作为后续训练和在线更新的标签来源
// @Tags 受益人管理
// @Accept json
// @Produce json
// @Param id path string true "受益人ID"
// @Param request body SetLabelRequest true "标签"
// @Success 200 {object} APIResponse
// @Router /beneficiaries/{id}/label [put]
func (c *BeneficiaryController) SetLabel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetLabelRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	if req.Creditworthy != 0 && req.Creditworthy != 1 {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "标签取值只能是0或1",
		})
		return
	}

	if err := service.GlobalBeneficiaryService.SetLabel(id, req.Creditworthy); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "标注标签失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "标注标签成功",
	})
}

// GetScoreHistory 评分历史
// @Summary 查询受益人评分历史
// @Description 按时间倒序返回受益人的评分记录
// @Tags 受益人管理
// @Produce json
// @Param id path string true "受益人ID"
// @Param limit query int false "返回条数" default(20)
// @Success 200 {object} APIResponse{data=[]models.ScoreRecord}
// @Router /beneficiaries/{id}/score-history [get]
func (c *BeneficiaryController) GetScoreHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	history, err := service.GlobalBeneficiaryService.GetScoreHistory(id, limit)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "查询评分历史失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "查询评分历史成功",
		"data":   history,
	})
}

// SeedRequest 演示数据引导请求
type SeedRequest struct {
	Count int   `json:"count" example:"100"`
	Seed  int64 `json:"seed" example:"42"`
}

// SeedDemoData 引导演示数据
// @Summary 生成演示受益人数据
// @Description 用合成数据集批量创建带真值标签的受益人档案，用于演示和冷启动
// @Tags 受益人管理
// @Accept json
// @Produce json
// @Param request body SeedRequest false "引导请求"
// @Success 200 {object} APIResponse
// @Router /beneficiaries/seed [post]
func (c *BeneficiaryController) SeedDemoData(w http.ResponseWriter, r *http.Request) {
	var req SeedRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		req = SeedRequest{}
	}
	if req.Count <= 0 {
		req.Count = 100
	}
	if req.Seed == 0 {
		req.Seed = scoring.DefaultRandomSeed
	}

	ds := scoring.GenerateBeneficiaryData(req.Count, req.Seed)
	created, err := service.GlobalBeneficiaryService.SeedFromDataset(ds, "api")
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "引导演示数据失败: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "引导演示数据成功",
		"data": map[string]interface{}{
			"created": created,
		},
	})
}
