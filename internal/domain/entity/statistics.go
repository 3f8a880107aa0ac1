package entity

// StatisticsScope selects which budgets statistics are computed over
type StatisticsScope string

const (
	ScopeDepartment StatisticsScope = "department"
	ScopeEvent      StatisticsScope = "event"
)

// Statistics aggregates estimated and reported spend over a set of budgets.
// Variance is ActualTotal minus EstimatedTotal; negative means under budget.
type Statistics struct {
	Scope          StatisticsScope `json:"scope"`
	EventID        string          `json:"event_id"`
	DepartmentID   string          `json:"department_id,omitempty"`
	BudgetCount    int             `json:"budget_count"`
	ItemCount      int             `json:"item_count"`
	EstimatedTotal int64           `json:"estimated_total"`
	ActualTotal    int64           `json:"actual_total"`
	PaidTotal      int64           `json:"paid_total"`
	Variance       int64           `json:"variance"`
	UnderBudget    int             `json:"under_budget"`
	OnBudget       int             `json:"on_budget"`
	OverBudget     int             `json:"over_budget"`
}

// Add folds one budget into the statistics
func (s *Statistics) Add(b *Budget) {
	s.BudgetCount++
	for _, item := range b.Items {
		s.ItemCount++
		s.EstimatedTotal = AddAmount(s.EstimatedTotal, item.Total)
		s.ActualTotal = AddAmount(s.ActualTotal, item.ActualAmount)
		if item.IsPaid {
			s.PaidTotal = AddAmount(s.PaidTotal, item.ActualAmount)
		}
		switch item.Variance() {
		case VarianceUnder:
			s.UnderBudget++
		case VarianceOver:
			s.OverBudget++
		default:
			s.OnBudget++
		}
	}
	s.Variance = s.ActualTotal - s.EstimatedTotal
}
