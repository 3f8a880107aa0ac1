// Package report renders budgets and statistics as Excel workbooks.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/infrastructure/storage"
	"github.com/garyjia/event-budget/pkg/utils"
)

const (
	SheetSummary = "Summary"
	SheetItems   = "Items"
	SheetBudgets = "Budgets"

	timeLayout = "2006-01-02 15:04"
)

var itemHeader = []interface{}{
	"Item", "Category", "Unit", "Unit cost", "Qty", "Total", "Decision", "Feedback",
	"Assigned to", "Actual", "Variance", "Expense", "Paid", "Evidence",
}

var budgetHeader = []interface{}{
	"Budget", "Department", "Status", "Items", "Estimated", "Actual", "Paid", "Variance",
}

// Renderer builds workbooks in memory
type Renderer struct {
	logger *zap.Logger
}

// NewRenderer creates a new workbook renderer
func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// BudgetFileName is the download name of a budget workbook
func BudgetFileName(b *entity.Budget) string {
	name := storage.SanitizeName(b.Name)
	if name == "" {
		name = "budget"
	}
	return fmt.Sprintf("%s_%s.xlsx", name, b.ID)
}

// StatisticsFileName is the download name of a statistics workbook
func StatisticsFileName(stats *entity.Statistics) string {
	if stats.Scope == entity.ScopeDepartment {
		return fmt.Sprintf("statistics_%s_%s.xlsx", storage.SanitizeName(stats.EventID), storage.SanitizeName(stats.DepartmentID))
	}
	return fmt.Sprintf("statistics_%s.xlsx", storage.SanitizeName(stats.EventID))
}

// BudgetWorkbook renders one budget: a summary sheet and one row per item.
// Summary amounts are grouped text; item sheets keep numeric cells.
func (r *Renderer) BudgetWorkbook(b *entity.Budget) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Budget", b.Name},
		{"Event", b.EventID},
		{"Department", b.DepartmentID},
		{"Status", string(b.Status)},
		{"Public", b.IsPublic},
		{"Categories", strings.Join(b.Categories, ", ")},
		{"Estimated total", utils.FormatAmount(b.EstimatedTotal())},
		{"Actual total", utils.FormatAmount(b.ActualTotal())},
		{"Paid total", utils.FormatAmount(b.PaidTotal())},
		{"Variance", utils.FormatAmount(b.ActualTotal() - b.EstimatedTotal())},
		{"Created by", b.CreatedBy},
		{"Created at", b.CreatedAt.Format(timeLayout)},
		{"Updated at", b.UpdatedAt.Format(timeLayout)},
		{"Version", b.Version},
	}
	if err := writeRows(f, SheetSummary, 1, summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetItems); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	rows := make([][]interface{}, 0, len(b.Items)+1)
	rows = append(rows, itemHeader)
	for _, item := range b.Items {
		rows = append(rows, itemRow(item))
	}
	if err := writeRows(f, SheetItems, 1, rows); err != nil {
		return nil, err
	}
	r.styleHeader(f, SheetItems, len(itemHeader))

	return r.finish(f, "budget", zap.String("budget_id", b.ID))
}

// StatisticsWorkbook renders aggregated statistics and the budgets behind them
func (r *Renderer) StatisticsWorkbook(stats *entity.Statistics, budgets []*entity.Budget) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Scope", string(stats.Scope)},
		{"Event", stats.EventID},
		{"Department", stats.DepartmentID},
		{"Budgets", stats.BudgetCount},
		{"Items", stats.ItemCount},
		{"Estimated total", utils.FormatAmount(stats.EstimatedTotal)},
		{"Actual total", utils.FormatAmount(stats.ActualTotal)},
		{"Paid total", utils.FormatAmount(stats.PaidTotal)},
		{"Variance", utils.FormatAmount(stats.Variance)},
		{"Under budget", stats.UnderBudget},
		{"On budget", stats.OnBudget},
		{"Over budget", stats.OverBudget},
	}
	if err := writeRows(f, SheetSummary, 1, summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SheetBudgets); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	rows := [][]interface{}{budgetHeader}
	for _, b := range budgets {
		if !b.Status.IsCommitted() {
			continue
		}
		rows = append(rows, []interface{}{
			b.Name, b.DepartmentID, string(b.Status), len(b.Items),
			b.EstimatedTotal(), b.ActualTotal(), b.PaidTotal(), b.ActualTotal() - b.EstimatedTotal(),
		})
	}
	if err := writeRows(f, SheetBudgets, 1, rows); err != nil {
		return nil, err
	}
	r.styleHeader(f, SheetBudgets, len(budgetHeader))

	return r.finish(f, "statistics", zap.String("event_id", stats.EventID), zap.String("scope", string(stats.Scope)))
}

func itemRow(item *entity.LineItem) []interface{} {
	evidence := make([]string, len(item.Evidence))
	for i, ev := range item.Evidence {
		evidence[i] = ev.URL
	}
	return []interface{}{
		item.Name, item.Category, item.Unit, item.UnitCost, item.Qty, item.Total,
		string(item.Status), item.Feedback, item.AssignedTo, item.ActualAmount,
		string(item.Variance()), string(item.SubmittedStatus), item.IsPaid,
		strings.Join(evidence, "\n"),
	}
}

func writeRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// styleHeader bolds the first row. Styling failures are cosmetic and only logged.
func (r *Renderer) styleHeader(f *excelize.File, sheet string, columns int) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err == nil {
		err = f.SetRowStyle(sheet, 1, 1, style)
	}
	if err == nil {
		var last string
		last, err = excelize.ColumnNumberToName(columns)
		if err == nil {
			err = f.SetColWidth(sheet, "A", last, 16)
		}
	}
	if err != nil {
		r.logger.Warn("Failed to style sheet header",
			zap.String("sheet", sheet),
			zap.Error(err))
	}
}

func (r *Renderer) finish(f *excelize.File, kind string, fields ...zap.Field) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write %s workbook: %w", kind, err)
	}
	r.logger.Debug("Workbook rendered", append(fields, zap.String("kind", kind), zap.Int("bytes", buf.Len()))...)
	return buf.Bytes(), nil
}
