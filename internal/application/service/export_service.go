package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/dispatcher"
	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/domain/event"
	"github.com/garyjia/event-budget/internal/report"
)

// Export is a rendered workbook ready for download
type Export struct {
	FileName string
	Content  []byte
}

// ExportService renders budgets and statistics as workbooks
type ExportService interface {
	ExportBudget(ctx context.Context, caller entity.Caller, budgetID string) (*Export, error)
	ExportStatistics(ctx context.Context, caller entity.Caller, query StatisticsQuery) (*Export, error)

	// ArchiveBudget stores the budget workbook in the report store and
	// returns its location
	ArchiveBudget(ctx context.Context, budgetID string) (string, error)
}

type exportServiceImpl struct {
	queries  BudgetQueryService
	stats    StatisticsService
	budgets  port.BudgetRepository
	store    port.ReportStore
	renderer *report.Renderer
	logger   *zap.Logger
}

// ExportOption configures the export service
type ExportOption func(*exportServiceImpl)

// WithArchiveOnLock archives every budget workbook when the budget is locked
func WithArchiveOnLock(d dispatcher.Dispatcher) ExportOption {
	return func(s *exportServiceImpl) {
		d.SubscribeNamed(event.TypeBudgetStatusChanged, "archive-on-lock", s.onStatusChanged)
	}
}

// NewExportService creates a new ExportService
func NewExportService(
	queries BudgetQueryService,
	stats StatisticsService,
	budgets port.BudgetRepository,
	store port.ReportStore,
	renderer *report.Renderer,
	logger *zap.Logger,
	opts ...ExportOption,
) ExportService {
	s := &exportServiceImpl{
		queries:  queries,
		stats:    stats,
		budgets:  budgets,
		store:    store,
		renderer: renderer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *exportServiceImpl) ExportBudget(ctx context.Context, caller entity.Caller, budgetID string) (*Export, error) {
	budget, err := s.queries.GetBudget(ctx, caller, budgetID)
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.BudgetWorkbook(budget)
	if err != nil {
		return nil, err
	}
	return &Export{FileName: report.BudgetFileName(budget), Content: content}, nil
}

func (s *exportServiceImpl) ExportStatistics(ctx context.Context, caller entity.Caller, query StatisticsQuery) (*Export, error) {
	stats, err := s.stats.GetStatistics(ctx, caller, query)
	if err != nil {
		return nil, err
	}

	var budgets []*entity.Budget
	if stats.Scope == entity.ScopeEvent {
		budgets, err = s.budgets.ListByEvent(ctx, stats.EventID, entity.BudgetFilter{})
	} else {
		budgets, err = s.budgets.ListByDepartment(ctx, stats.EventID, stats.DepartmentID, entity.BudgetFilter{})
	}
	if err != nil {
		return nil, err
	}

	content, err := s.renderer.StatisticsWorkbook(stats, budgets)
	if err != nil {
		return nil, err
	}
	return &Export{FileName: report.StatisticsFileName(stats), Content: content}, nil
}

func (s *exportServiceImpl) ArchiveBudget(ctx context.Context, budgetID string) (string, error) {
	budget, err := s.budgets.GetByID(ctx, budgetID)
	if err != nil {
		return "", err
	}
	if budget == nil {
		return "", apperr.NotFound("archive budget", "budget %s not found", budgetID)
	}

	content, err := s.renderer.BudgetWorkbook(budget)
	if err != nil {
		return "", err
	}

	location, err := s.store.Save(ctx, budget.EventID, report.BudgetFileName(budget), content)
	if err != nil {
		return "", err
	}

	s.logger.Info("Budget archived",
		zap.String("budget_id", budget.ID),
		zap.String("status", string(budget.Status)),
		zap.String("location", location))
	return location, nil
}

func (s *exportServiceImpl) onStatusChanged(ctx context.Context, evt *event.Event) error {
	if evt.GetPayloadString("to") != string(entity.BudgetStatusLocked) {
		return nil
	}
	_, err := s.ArchiveBudget(ctx, evt.BudgetID)
	return err
}
