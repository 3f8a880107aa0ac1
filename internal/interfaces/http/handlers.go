package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/event-budget/internal/application/aggregate"
	"github.com/garyjia/event-budget/internal/application/service"
	"github.com/garyjia/event-budget/internal/application/workflow"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/pkg/utils"
)

const (
	callerKey = "caller"
	xlsxType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	config   ServerConfig
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, config ServerConfig, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		config:   config,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListBudgetsRequest represents query parameters for listing budgets
type ListBudgetsRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// resolveCaller turns the gateway identity header into a caller with its
// role in the event of the path. Role resolution happens once per request.
func (h *Handlers) resolveCaller(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(h.config.IdentityHeader))
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   fmt.Sprintf("missing %s header", h.config.IdentityHeader),
		})
		return
	}

	caller, err := h.services.Roles.ResolveCaller(c.Request.Context(), c.Param("eventId"), userID)
	if err != nil {
		h.respondError(c, err)
		c.Abort()
		return
	}

	c.Set(callerKey, caller)
	c.Next()
}

func callerFrom(c *gin.Context) entity.Caller {
	caller, _ := c.Get(callerKey)
	resolved, _ := caller.(entity.Caller)
	return resolved
}

// versionOption reads If-Match into a version expectation
func versionOption(c *gin.Context) ([]aggregate.Option, bool) {
	version, err := parseIfMatch(c.GetHeader("If-Match"))
	if err != nil {
		badRequest(c, err.Error())
		return nil, false
	}
	if version == 0 {
		return nil, true
	}
	return []aggregate.Option{aggregate.IfVersion(version)}, true
}

func (h *Handlers) respondBudget(c *gin.Context, status int, budget *entity.Budget, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("ETag", strconv.Quote(strconv.FormatInt(budget.Version, 10)))
	c.JSON(status, Response{Success: true, Data: budget})
}

// CreateBudget handles POST /api/events/:eventId/budgets
func (h *Handlers) CreateBudget(c *gin.Context) {
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	budget, err := h.services.Engine.CreateBudget(c.Request.Context(), callerFrom(c), c.Param("eventId"), req.toInput())
	h.respondBudget(c, http.StatusCreated, budget, err)
}

// UpdateBudgetDraft handles PUT /api/events/:eventId/budgets/:budgetId
func (h *Handlers) UpdateBudgetDraft(c *gin.Context) {
	opts, ok := versionOption(c)
	if !ok {
		return
	}
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	budget, err := h.services.Engine.UpdateBudgetDraft(c.Request.Context(), callerFrom(c), c.Param("budgetId"), req.toInput(), opts...)
	h.respondBudget(c, http.StatusOK, budget, err)
}

// DeleteDraftBudget handles DELETE /api/events/:eventId/budgets/:budgetId
func (h *Handlers) DeleteDraftBudget(c *gin.Context) {
	opts, ok := versionOption(c)
	if !ok {
		return
	}

	budget, err := h.services.Engine.DeleteDraftBudget(c.Request.Context(), callerFrom(c), c.Param("budgetId"), opts...)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"id": budget.ID, "deleted": true}})
}

type budgetCommand func(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)

// transition adapts a status-changing engine command to a handler
func (h *Handlers) transition(cmd budgetCommand) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := versionOption(c)
		if !ok {
			return
		}
		budget, err := cmd(c.Request.Context(), callerFrom(c), c.Param("budgetId"), opts...)
		h.respondBudget(c, http.StatusOK, budget, err)
	}
}

// DecideItem handles POST .../items/:itemId/decision
func (h *Handlers) DecideItem(c *gin.Context) {
	opts, ok := versionOption(c)
	if !ok {
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "decision status is required")
		return
	}

	decision := workflow.ItemDecision{
		Status:   entity.ItemStatus(strings.ToLower(strings.TrimSpace(req.Status))),
		Feedback: utils.SanitizeString(req.Feedback),
	}
	budget, err := h.services.Engine.DecideItem(c.Request.Context(), callerFrom(c), c.Param("budgetId"), c.Param("itemId"), decision, opts...)
	h.respondBudget(c, http.StatusOK, budget, err)
}

// GetBudget handles GET /api/events/:eventId/budgets/:budgetId
func (h *Handlers) GetBudget(c *gin.Context) {
	budget, err := h.services.Queries.GetBudget(c.Request.Context(), callerFrom(c), c.Param("budgetId"))
	h.respondBudget(c, http.StatusOK, budget, err)
}

// GetHistory handles GET /api/events/:eventId/budgets/:budgetId/history
func (h *Handlers) GetHistory(c *gin.Context) {
	records, err := h.services.Queries.GetHistory(c.Request.Context(), callerFrom(c), c.Param("budgetId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

func (h *Handlers) budgetFilter(c *gin.Context) (entity.BudgetFilter, bool) {
	var req ListBudgetsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return entity.BudgetFilter{}, false
	}

	if req.Limit <= 0 {
		req.Limit = h.config.DefaultPageSize
	}
	if h.config.MaxPageSize > 0 && req.Limit > h.config.MaxPageSize {
		req.Limit = h.config.MaxPageSize
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	status := entity.BudgetStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status != "" && !status.IsValid() {
		badRequest(c, fmt.Sprintf("unknown status %q", req.Status))
		return entity.BudgetFilter{}, false
	}
	return entity.BudgetFilter{Status: status, Limit: req.Limit, Offset: req.Offset}, true
}

// ListBudgetsForEvent handles GET /api/events/:eventId/budgets
func (h *Handlers) ListBudgetsForEvent(c *gin.Context) {
	filter, ok := h.budgetFilter(c)
	if !ok {
		return
	}
	budgets, err := h.services.Queries.ListBudgetsForEvent(c.Request.Context(), callerFrom(c), c.Param("eventId"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: budgets})
}

// ListBudgetsForDepartment handles GET /api/events/:eventId/departments/:departmentId/budgets
func (h *Handlers) ListBudgetsForDepartment(c *gin.Context) {
	filter, ok := h.budgetFilter(c)
	if !ok {
		return
	}
	budgets, err := h.services.Queries.ListBudgetsForDepartment(c.Request.Context(), callerFrom(c),
		c.Param("eventId"), c.Param("departmentId"), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: budgets})
}

func statisticsQuery(c *gin.Context) service.StatisticsQuery {
	return service.StatisticsQuery{
		EventID:      c.Param("eventId"),
		Scope:        entity.StatisticsScope(strings.ToLower(c.Query("scope"))),
		DepartmentID: c.Query("department_id"),
	}
}

// GetStatistics handles GET /api/events/:eventId/statistics
func (h *Handlers) GetStatistics(c *gin.Context) {
	stats, err := h.services.Statistics.GetStatistics(c.Request.Context(), callerFrom(c), statisticsQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// ExportStatistics handles GET /api/events/:eventId/statistics/export
func (h *Handlers) ExportStatistics(c *gin.Context) {
	export, err := h.services.Exports.ExportStatistics(c.Request.Context(), callerFrom(c), statisticsQuery(c))
	h.respondFile(c, export, err)
}

// ExportBudget handles GET /api/events/:eventId/budgets/:budgetId/export
func (h *Handlers) ExportBudget(c *gin.Context) {
	export, err := h.services.Exports.ExportBudget(c.Request.Context(), callerFrom(c), c.Param("budgetId"))
	h.respondFile(c, export, err)
}

func (h *Handlers) respondFile(c *gin.Context, export *service.Export, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, xlsxType, export.Content)
}

// AssignItem handles PUT .../items/:itemId/assignee
func (h *Handlers) AssignItem(c *gin.Context) {
	opts, ok := versionOption(c)
	if !ok {
		return
	}
	var req AssigneeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	memberID, err := NormalizeMemberID(req.Member)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	budget, err := h.services.Expenses.AssignItem(c.Request.Context(), callerFrom(c), c.Param("budgetId"), c.Param("itemId"), memberID, opts...)
	h.respondBudget(c, http.StatusOK, budget, err)
}

// ReportExpense handles PATCH .../items/:itemId/expense. Amounts keep their
// JSON number form so tolerant parsing sees the value as sent.
func (h *Handlers) ReportExpense(c *gin.Context) {
	opts, ok := versionOption(c)
	if !ok {
		return
	}
	var req ExpenseRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	budget, err := h.services.Expenses.ReportExpense(c.Request.Context(), callerFrom(c), c.Param("budgetId"), c.Param("itemId"), req.toReport(), opts...)
	h.respondBudget(c, http.StatusOK, budget, err)
}

// RemoveExpenseEvidence handles DELETE .../items/:itemId/expense/evidence/:index
func (h *Handlers) RemoveExpenseEvidence(c *gin.Context) {
	opts, ok := versionOption(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "evidence index must be a number")
		return
	}

	budget, err := h.services.Expenses.RemoveExpenseEvidence(c.Request.Context(), callerFrom(c), c.Param("budgetId"), c.Param("itemId"), index, opts...)
	h.respondBudget(c, http.StatusOK, budget, err)
}

type itemCommandFunc func(ctx context.Context, caller entity.Caller, budgetID, itemID string, opts ...aggregate.Option) (*entity.Budget, error)

// itemCommand adapts a payload-less item command to a handler
func (h *Handlers) itemCommand(cmd itemCommandFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, ok := versionOption(c)
		if !ok {
			return
		}
		budget, err := cmd(c.Request.Context(), callerFrom(c), c.Param("budgetId"), c.Param("itemId"), opts...)
		h.respondBudget(c, http.StatusOK, budget, err)
	}
}
