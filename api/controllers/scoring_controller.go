/*
 * @module api/controllers/scoring_controller
 * @description 评分控制器，提供What-If评分模拟、受益人评分、在线模型更新、初始训练和特征重要性接口
 * @architecture RESTful API架构 - 控制器层
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow HTTP请求 -> 特征校验 -> 评分引擎推理 -> 解释生成 -> 落库/缓存/事件 -> 响应返回
 * @rules 模型不可用时评分接口返回默认分500而非错误；在线更新必须携带真值标签或调用方当前分数
 * @dependencies incluscore-service/service, github.com/go-chi/render, github.com/prometheus/client_golang
 * @refs service/scoring, service/event
 */

package controllers

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"incluscore-service/service"
	"incluscore-service/service/cache"
	"incluscore-service/service/models"
	"incluscore-service/service/scoring"
	"incluscore-service/service/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoringRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "incluscore_scoring_requests_total",
		Help: "评分请求总数，按结果分类",
	}, []string{"outcome"})

	modelUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "incluscore_model_updates_total",
		Help: "在线模型更新次数",
	})

	trainingRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "incluscore_training_runs_total",
		Help: "初始训练执行次数",
	})
)

// ScoringController 评分控制器
type ScoringController struct{}

// NewScoringController 创建评分控制器实例
func NewScoringController() *ScoringController {
	return &ScoringController{}
}

// SimulateRequest What-If评分模拟请求
type SimulateRequest struct {
	CurrentData         map[string]interface{} `json:"current_data"`
	HypotheticalChanges map[string]interface{} `json:"hypothetical_changes"`
}

// ExplainRequest 评分解释请求
type ExplainRequest struct {
	Features map[string]interface{} `json:"features"`
}

// ScoreResult 评分结果
type ScoreResult struct {
	Score       int                `json:"score" example:"720"`
	Probability float64            `json:"probability" example:"0.7"`
	RiskNeed    string             `json:"risk_need" example:"Low Risk - High Need"`
	Explanation string             `json:"explanation"`
	Impacts     map[string]float64 `json:"impacts,omitempty"`
}

// Simulate What-If评分模拟
// @Summary What-If信用评分模拟
// @Description 以当前特征为基线叠加假设变更，返回当前分、预测分、分差和预测场景解释，不落库；缺失特征按默认值填充
// @Tags 信用评分
// @Accept json
// @Produce json
// @Param request body SimulateRequest true "What-If模拟请求"
// @Success 200 {object} APIResponse{data=scoring.SimulationResult}
// @Router /scoring/simulate [post]
func (c *ScoringController) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	contract := scoring.DefaultContract()
	current := contract.ApplyDefaults(scoring.FeatureMap(req.CurrentData))
	projected := make(scoring.FeatureMap, len(current))
	for name, value := range current {
		projected[name] = value
	}
	for name, value := range req.HypotheticalChanges {
		projected[name] = value
	}
	for _, data := range []scoring.FeatureMap{current, projected} {
		if err := contract.Validate(data); err != nil {
			scoringRequestsTotal.WithLabelValues("invalid").Inc()
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusBadRequest,
				"msg":    "特征取值非法: " + err.Error(),
			})
			return
		}
	}

	result := service.GlobalScoringEngine.Simulate(
		scoring.FeatureMap(req.CurrentData),
		scoring.FeatureMap(req.HypotheticalChanges),
	)
	scoringRequestsTotal.WithLabelValues("ok").Inc()

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "模拟成功",
		"data":   result,
	})
}

// ScoreBeneficiary 受益人评分
// @Summary 对指定受益人评分
// @Description 用受益人已存档的特征计算信用评分，结果写入评分历史并推送事件；命中缓存时直接返回
// @Tags 信用评分
// @Produce json
// @Param id path string true "受益人ID"
// @Success 200 {object} APIResponse{data=ScoreResult}
// @Router /scoring/beneficiaries/{id}/score [post]
func (c *ScoringController) ScoreBeneficiary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	beneficiary, err := service.GlobalBeneficiaryService.GetByID(id)
	if err != nil {
		scoringRequestsTotal.WithLabelValues("not_found").Inc()
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusNotFound,
			"msg":    "受益人不存在: " + err.Error(),
		})
		return
	}

	// 先查缓存
	if cached, err := service.GlobalScoreCache.Get(r.Context(), id); err == nil && cached != nil {
		scoringRequestsTotal.WithLabelValues("cache_hit").Inc()
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusOK,
			"msg":    "评分成功（缓存）",
			"data": ScoreResult{
				Score:       cached.Score,
				Probability: cached.Probability,
				RiskNeed:    cached.RiskNeed,
			},
		})
		return
	}

	features := scoring.FeatureMap(beneficiary.FeatureValues())
	result := c.score(features)
	scoringRequestsTotal.WithLabelValues("ok").Inc()

	// 写入评分历史
	impacts := make(models.JSONB, len(result.Impacts))
	for k, v := range result.Impacts {
		impacts[k] = v
	}
	record := &models.ScoreRecord{
		BeneficiaryID:  beneficiary.ID,
		Score:          result.Score,
		Probability:    result.Probability,
		RiskNeed:       result.RiskNeed,
		Explanation:    result.Explanation,
		FeatureImpacts: impacts,
		CalculatedBy:   "api",
	}
	if err := service.GlobalBeneficiaryService.SaveScore(record); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusInternalServerError,
			"msg":    "保存评分记录失败: " + err.Error(),
		})
		return
	}

	// 回填缓存
	_ = service.GlobalScoreCache.Set(r.Context(), id, &cache.CachedScore{
		Score:       result.Score,
		Probability: result.Probability,
		RiskNeed:    result.RiskNeed,
		CachedAt:    time.Now().Format(time.RFC3339),
	})

	// 发布评分事件
	service.GlobalScorePublisher.PublishAsync(&models.ScoreEvent{
		EventType:     models.EventTypeScoreCalculated,
		BeneficiaryID: beneficiary.ID,
		Score:         result.Score,
		RiskNeed:      result.RiskNeed,
	})

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "评分成功",
		"data":   result,
	})
}

// score 计算评分、风险类别、解释和特征贡献
func (c *ScoringController) score(features scoring.FeatureMap) ScoreResult {
	engine := service.GlobalScoringEngine

	result := ScoreResult{
		Score:       engine.PredictScore(features),
		RiskNeed:    engine.PredictRiskNeed(features),
		Explanation: service.GlobalExplainer.Explain(features),
	}
	if prob, err := engine.Probability(features); err == nil {
		result.Probability = prob
	}
	if impacts, err := service.GlobalExplainer.FeatureImpacts(features); err == nil {
		result.Impacts = impacts
	}
	return result
}

// UpdateModelRequest 在线模型更新请求
type UpdateModelRequest struct {
	Features     map[string]interface{} `json:"features"`
	Label        *int                   `json:"label,omitempty"`
	CurrentScore *int                   `json:"current_score,omitempty"`
}

// UpdateModel 在线模型更新
// @Summary 在线增量更新模型
// @Description 用单个样本对模型做一次随机梯度步进。必须提供真值标签label，或提供该样本此前的current_score由服务推导标签
// @Tags 信用评分
// @Accept json
// @Produce json
// @Param request body UpdateModelRequest true "模型更新请求"
// @Success 200 {object} APIResponse
// @Router /scoring/update [post]
func (c *ScoringController) UpdateModel(w http.ResponseWriter, r *http.Request) {
	var req UpdateModelRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	result := service.GlobalScoringEngine.Update(scoring.FeatureMap(req.Features), scoring.UpdateOptions{
		Label:        req.Label,
		CurrentScore: req.CurrentScore,
	})
	if result.Status != "success" {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    result.Message,
		})
		return
	}

	modelUpdatesTotal.Inc()

	// 模型变更后评分缓存全部失效
	_ = service.GlobalScoreCache.InvalidateAll(r.Context())

	service.GlobalScorePublisher.PublishAsync(&models.ScoreEvent{
		EventType: models.EventTypeModelUpdated,
	})

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    result.Message,
	})
}

// TrainRequest 初始训练请求
type TrainRequest struct {
	Source string `json:"source" example:"database"` // database 或 synthetic
	Count  int    `json:"count" example:"100"`       // synthetic时的样本数
	Seed   int64  `json:"seed" example:"42"`         // synthetic时的随机种子
}

// Train 初始训练
// @Summary 执行初始训练
// @Description 从数据库真值标签或合成数据集训练模型并持久化，返回训练报告
// @Tags 信用评分
// @Accept json
// @Produce json
// @Param request body TrainRequest false "训练请求"
// @Success 200 {object} APIResponse{data=scoring.TrainingReport}
// @Router /scoring/train [post]
func (c *ScoringController) Train(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		req = TrainRequest{Source: "synthetic"}
	}

	var ds *scoring.Dataset
	switch req.Source {
	case "database":
		var err error
		ds, err = service.GlobalBeneficiaryService.TrainingDataset()
		if err != nil {
			render.JSON(w, r, map[string]interface{}{
				"status": http.StatusInternalServerError,
				"msg":    "构建训练数据集失败: " + err.Error(),
			})
			return
		}
	default:
		count := req.Count
		if count <= 0 {
			count = 100
		}
		seed := req.Seed
		if seed == 0 {
			seed = scoring.DefaultRandomSeed
		}
		ds = scoring.GenerateBeneficiaryData(count, seed)
	}

	report, err := service.GlobalScoringEngine.TrainInitial(ds)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "训练失败: " + err.Error(),
		})
		return
	}

	trainingRunsTotal.Inc()
	_ = service.GlobalScoreCache.InvalidateAll(r.Context())

	service.GlobalScorePublisher.PublishAsync(&models.ScoreEvent{
		EventType: models.EventTypeModelTrained,
		Payload: map[string]interface{}{
			"accuracy":         report.Accuracy,
			"training_samples": report.TrainingSamples,
			"test_samples":     report.TestSamples,
		},
	})

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "训练完成",
		"data":   report,
	})
}

// TrainFromCSV 从上传的CSV训练
// @Summary 从CSV文件执行初始训练
// @Description 上传带表头和creditworthy标签列的CSV训练集，非UTF-8编码自动转码
// @Tags 信用评分
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "训练集CSV文件"
// @Success 200 {object} APIResponse{data=scoring.TrainingReport}
// @Router /scoring/train-csv [post]
func (c *ScoringController) TrainFromCSV(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "读取上传文件失败: " + err.Error(),
		})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "读取上传文件失败: " + err.Error(),
		})
		return
	}

	ds, err := scoring.LoadCSV(bytes.NewReader(utils.EnsureUTF8(raw)))
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "解析CSV失败: " + err.Error(),
		})
		return
	}

	report, err := service.GlobalScoringEngine.TrainInitial(ds)
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "训练失败: " + err.Error(),
		})
		return
	}

	trainingRunsTotal.Inc()
	_ = service.GlobalScoreCache.InvalidateAll(r.Context())

	service.GlobalScorePublisher.PublishAsync(&models.ScoreEvent{
		EventType: models.EventTypeModelTrained,
		Payload: map[string]interface{}{
			"accuracy": report.Accuracy,
			"source":   "csv",
		},
	})

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "训练完成",
		"data":   report,
	})
}

// FeatureImportance 特征重要性
// @Summary 获取特征重要性
// @Description 返回各特征权重的绝对值，反映对评分的影响程度
// @Tags 信用评分
// @Produce json
// @Success 200 {object} APIResponse{data=map[string]float64}
// @Router /scoring/feature-importance [get]
func (c *ScoringController) FeatureImportance(w http.ResponseWriter, r *http.Request) {
	importance, err := service.GlobalScoringEngine.FeatureImportance()
	if err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusServiceUnavailable,
			"msg":    "模型不可用: " + err.Error(),
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "获取特征重要性成功",
		"data":   importance,
	})
}

// Explain 评分解释
// @Summary 生成评分解释
// @Description 返回给定特征组合的自然语言解释和各特征贡献值
// @Tags 信用评分
// @Accept json
// @Produce json
// @Param request body ExplainRequest true "解释请求"
// @Success 200 {object} APIResponse
// @Router /scoring/explain [post]
func (c *ScoringController) Explain(w http.ResponseWriter, r *http.Request) {
	var req ExplainRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, map[string]interface{}{
			"status": http.StatusBadRequest,
			"msg":    "请求参数解析失败: " + err.Error(),
		})
		return
	}

	features := scoring.DefaultContract().ApplyDefaults(scoring.FeatureMap(req.Features))
	explanation := service.GlobalExplainer.Explain(features)
	impacts, _ := service.GlobalExplainer.FeatureImpacts(features)

	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusOK,
		"msg":    "生成解释成功",
		"data": map[string]interface{}{
			"explanation": explanation,
			"impacts":     impacts,
		},
	})
}
