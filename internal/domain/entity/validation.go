package entity

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/garyjia/event-budget/internal/domain/apperr"
)

// ValidationMode selects which rule set a budget is checked against
type ValidationMode int

const (
	// ValidateDraft checks structure only; a draft may hold placeholder items.
	ValidateDraft ValidationMode = iota
	// ValidateSubmission additionally requires every field needed for review.
	ValidateSubmission
)

// ModeForStatus returns the rule set that content edits must satisfy in status
func ModeForStatus(status BudgetStatus) ValidationMode {
	if status == BudgetStatusDraft {
		return ValidateDraft
	}
	return ValidateSubmission
}

// ValidateBudget returns every violation of b under mode, in field order
func ValidateBudget(b *Budget, mode ValidationMode) []apperr.Violation {
	var errs error
	add := func(field, format string, args ...interface{}) {
		errs = multierr.Append(errs, apperr.Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if mode == ValidateSubmission {
		if strings.TrimSpace(b.Name) == "" {
			add("name", "budget name is required")
		}
		if len(b.Items) == 0 {
			add("items", "at least one item is required")
		}
	}

	categorySet := make(map[string]bool, len(b.Categories))
	for idx, category := range b.Categories {
		field := fmt.Sprintf("categories[%d]", idx)
		label := strings.TrimSpace(category)
		if label == "" {
			add(field, "category label is required")
			continue
		}
		if categorySet[label] {
			add(field, "duplicate category %q", label)
			continue
		}
		categorySet[label] = true
	}

	var budgetTotal int64
	budgetOverflow := false

	seenNames := make(map[string]int, len(b.Items))
	for idx, item := range b.Items {
		prefix := fmt.Sprintf("items[%d]", idx)

		key := NormalizeItemName(item.Name)
		if key != "" {
			if first, dup := seenNames[key]; dup {
				add(prefix+".name", "duplicate item name %q (same as items[%d])", strings.TrimSpace(item.Name), first)
			} else {
				seenNames[key] = idx
			}
		}

		if item.Category != "" && len(categorySet) > 0 && !categorySet[item.Category] {
			add(prefix+".category", "category %q is not in the budget's category list", item.Category)
		}
		if item.UnitCost < 0 {
			add(prefix+".unit_cost", "unit cost cannot be negative")
		}
		if item.Qty < 0 {
			add(prefix+".qty", "quantity cannot be negative")
		}
		if total, ok := MulAmount(item.UnitCost, item.Qty); !ok {
			add(prefix+".qty", "unit cost times quantity exceeds the largest supported amount")
		} else if total > 0 {
			if total > MaxAmount-budgetTotal {
				budgetOverflow = true
			} else {
				budgetTotal += total
			}
		}
		for evIdx, ev := range item.Evidence {
			if err := ev.Validate(); err != nil {
				add(fmt.Sprintf("%s.evidence[%d]", prefix, evIdx), "%s", err.Error())
			}
		}

		if mode != ValidateSubmission {
			continue
		}
		if key == "" {
			add(prefix+".name", "item name is required")
		}
		if len(categorySet) > 0 && item.Category == "" {
			add(prefix+".category", "category is required")
		}
		if strings.TrimSpace(item.Unit) == "" {
			add(prefix+".unit", "unit is required")
		}
		if item.Qty == 0 {
			add(prefix+".qty", "quantity must be positive")
		}
		if item.UnitCost == 0 {
			add(prefix+".unit_cost", "unit cost must be positive")
		}
	}

	if budgetOverflow {
		add("items", "budget total exceeds the largest supported amount")
	}

	return toViolations(errs)
}

func toViolations(err error) []apperr.Violation {
	all := multierr.Errors(err)
	if len(all) == 0 {
		return nil
	}
	violations := make([]apperr.Violation, 0, len(all))
	for _, e := range all {
		if v, ok := e.(apperr.Violation); ok {
			violations = append(violations, v)
		}
	}
	return violations
}
