package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBudget() *Budget {
	return &Budget{
		ID:           "b-1",
		EventID:      "ev-1",
		DepartmentID: "dep-logistics",
		Name:         "Logistics",
		Status:       BudgetStatusDraft,
		Categories:   []string{"Printing", "Venue"},
		Items: []*LineItem{
			{ID: "i-1", Name: "Banner", Category: "Printing", Unit: "piece", UnitCost: 100000, Qty: 2, Status: ItemStatusPending, SubmittedStatus: SubmittedStatusDraft},
			{ID: "i-2", Name: "Hall rental", Category: "Venue", Unit: "day", UnitCost: 3000000, Qty: 1, Status: ItemStatusPending, SubmittedStatus: SubmittedStatusDraft},
		},
	}
}

func TestBudget_RecalculateTotals(t *testing.T) {
	b := sampleBudget()
	b.Items[0].Total = 1 // stale

	b.RecalculateTotals()

	assert.Equal(t, int64(200000), b.Items[0].Total)
	assert.Equal(t, int64(3000000), b.Items[1].Total)
	assert.Equal(t, int64(3200000), b.EstimatedTotal())
}

func TestBudget_CloneIsDeep(t *testing.T) {
	b := sampleBudget()
	ev, err := NewEvidence(EvidenceLink, "https://example.com/quote", "quote")
	require.NoError(t, err)
	b.Items[0].Evidence = []Evidence{ev}

	c := b.Clone()
	c.Items[0].Name = "Poster"
	c.Items[0].Evidence[0] = Evidence{}
	c.Categories[0] = "Other"

	assert.Equal(t, "Banner", b.Items[0].Name)
	assert.True(t, b.Items[0].Evidence[0].Equal(ev))
	assert.Equal(t, "Printing", b.Categories[0])
}

func TestLineItem_Variance(t *testing.T) {
	item := &LineItem{UnitCost: 100, Qty: 2}
	item.Recalculate()

	item.ActualAmount = 150
	assert.Equal(t, VarianceUnder, item.Variance())
	item.ActualAmount = 200
	assert.Equal(t, VarianceOn, item.Variance())
	item.ActualAmount = 250
	assert.Equal(t, VarianceOver, item.Variance())
}

func TestBudget_Totals(t *testing.T) {
	b := sampleBudget()
	b.Items[0].ActualAmount = 180000
	b.Items[0].IsPaid = true
	b.Items[1].ActualAmount = 3100000

	assert.Equal(t, int64(3280000), b.ActualTotal())
	assert.Equal(t, int64(180000), b.PaidTotal())
}

func TestBudget_PendingAndUnsubmitted(t *testing.T) {
	b := sampleBudget()
	b.Items[0].Status = ItemStatusApproved
	assert.Len(t, b.PendingItems(), 1)

	b.Items[0].AssignedTo = "m-1"
	b.Items[1].AssignedTo = "m-2"
	b.Items[1].SubmittedStatus = SubmittedStatusSubmitted
	open := b.UnsubmittedAssignedItems()
	require.Len(t, open, 1)
	assert.Equal(t, "i-1", open[0].ID)
}

func TestBudget_Visibility(t *testing.T) {
	b := sampleBudget()

	hooc := Caller{UserID: "u-1", EventID: "ev-1", Role: RoleHoOC}
	owner := Caller{UserID: "u-2", EventID: "ev-1", Role: RoleHoD, DepartmentID: "dep-logistics"}
	otherHead := Caller{UserID: "u-3", EventID: "ev-1", Role: RoleHoD, DepartmentID: "dep-media"}
	member := Caller{UserID: "u-4", EventID: "ev-1", Role: RoleMember, DepartmentID: "dep-logistics"}
	outsider := Caller{UserID: "u-5", EventID: "ev-2", Role: RoleHoOC}

	assert.True(t, b.VisibleTo(hooc))
	assert.True(t, b.VisibleTo(owner))
	assert.False(t, b.VisibleTo(otherHead))
	assert.False(t, b.VisibleTo(member), "members only see committed budgets")
	assert.False(t, b.VisibleTo(outsider))

	b.IsPublic = true
	assert.True(t, b.VisibleTo(otherHead))

	b.Status = BudgetStatusSentToMembers
	assert.True(t, b.VisibleTo(member))

	assert.True(t, b.OwnedBy(owner))
	assert.False(t, b.OwnedBy(otherHead))
	assert.False(t, b.OwnedBy(hooc))
}

func TestLineItem_RemoveEvidenceAt(t *testing.T) {
	a, _ := NewEvidence(EvidenceImage, "blob://a", "a.png")
	b, _ := NewEvidence(EvidencePDF, "blob://b", "b.pdf")
	c, _ := NewEvidence(EvidenceDoc, "blob://c", "c.docx")
	item := &LineItem{Evidence: []Evidence{a, b, c}}

	require.NoError(t, item.RemoveEvidenceAt(1))
	require.Len(t, item.Evidence, 2)
	assert.True(t, item.Evidence[0].Equal(a))
	assert.True(t, item.Evidence[1].Equal(c))

	assert.Error(t, item.RemoveEvidenceAt(2))
	assert.Error(t, item.RemoveEvidenceAt(-1))
}

func TestNormalizeItemName(t *testing.T) {
	assert.Equal(t, NormalizeItemName("Banner"), NormalizeItemName("banner "))
	assert.Equal(t, NormalizeItemName("  HALL Rental"), NormalizeItemName("hall rental"))
	assert.NotEqual(t, NormalizeItemName("Banner"), NormalizeItemName("Banners"))
}

func TestStatistics_Add(t *testing.T) {
	b := sampleBudget()
	b.RecalculateTotals()
	b.Items[0].ActualAmount = 150000
	b.Items[0].IsPaid = true
	b.Items[1].ActualAmount = 3500000

	var stats Statistics
	stats.Add(b)

	assert.Equal(t, 1, stats.BudgetCount)
	assert.Equal(t, 2, stats.ItemCount)
	assert.Equal(t, int64(3200000), stats.EstimatedTotal)
	assert.Equal(t, int64(3650000), stats.ActualTotal)
	assert.Equal(t, int64(150000), stats.PaidTotal)
	assert.Equal(t, int64(450000), stats.Variance)
	assert.Equal(t, 1, stats.UnderBudget)
	assert.Equal(t, 1, stats.OverBudget)
}

func TestAmountArithmetic_Saturates(t *testing.T) {
	tests := []struct {
		name    string
		a, b    int64
		wantMul int64
		wantOK  bool
		wantAdd int64
	}{
		{"small", 3, 4, 12, true, 7},
		{"zero", 0, MaxAmount, 0, true, MaxAmount},
		{"overflow", 5_000_000_000, 5_000_000_000, MaxAmount, false, 10_000_000_000},
		{"sum at limit", MaxAmount, 1, MaxAmount, true, MaxAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MulAmount(tt.a, tt.b)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantMul, got)
			assert.Equal(t, tt.wantAdd, AddAmount(tt.a, tt.b))
		})
	}
}

func TestTotals_SaturateInsteadOfWrapping(t *testing.T) {
	b := sampleBudget()
	b.Items[0].UnitCost = 5_000_000_000
	b.Items[0].Qty = 5_000_000_000
	b.Items[0].ActualAmount = MaxAmount
	b.Items[0].IsPaid = true
	b.Items[1].ActualAmount = MaxAmount
	b.Items[1].IsPaid = true
	b.RecalculateTotals()

	assert.Equal(t, MaxAmount, b.Items[0].Total)
	assert.Equal(t, MaxAmount, b.EstimatedTotal())
	assert.Equal(t, MaxAmount, b.ActualTotal())
	assert.Equal(t, MaxAmount, b.PaidTotal())

	var stats Statistics
	stats.Add(b)
	stats.Add(b)
	assert.Equal(t, MaxAmount, stats.EstimatedTotal)
	assert.Equal(t, MaxAmount, stats.ActualTotal)
	assert.Equal(t, MaxAmount, stats.PaidTotal)
	assert.GreaterOrEqual(t, stats.Variance, int64(0))
}
