package entity

// BudgetFilter narrows and paginates budget listings
type BudgetFilter struct {
	Status BudgetStatus
	Limit  int
	Offset int
}
