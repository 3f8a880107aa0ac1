package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/event-budget/internal/application/service"
	"github.com/garyjia/event-budget/internal/application/workflow"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/pkg/utils"
)

// EvidenceRequest is one evidence reference in a payload
type EvidenceRequest struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// ItemRequest is one line item of a budget payload. A missing id adds a new item.
type ItemRequest struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Unit     string            `json:"unit"`
	UnitCost int64             `json:"unit_cost"`
	Qty      int64             `json:"qty"`
	Note     string            `json:"note"`
	Evidence []EvidenceRequest `json:"evidence"`
}

// BudgetRequest is the body of create and update
type BudgetRequest struct {
	Name       string        `json:"name"`
	IsPublic   bool          `json:"is_public"`
	Categories []string      `json:"categories"`
	Items      []ItemRequest `json:"items"`
}

// DecisionRequest is the body of an item decision
type DecisionRequest struct {
	Status   string `json:"status" binding:"required"`
	Feedback string `json:"feedback"`
}

// AssigneeRequest is the body of an assignment; member may be a string id,
// an object carrying the id, or null to clear
type AssigneeRequest struct {
	Member json.RawMessage `json:"member"`
}

// ExpenseRequest is a partial expense report
type ExpenseRequest struct {
	ActualAmount interface{}        `json:"actual_amount"`
	MemberNote   *string            `json:"member_note"`
	Evidence     *[]EvidenceRequest `json:"evidence"`
	AddEvidence  []EvidenceRequest  `json:"add_evidence"`
}

func (r BudgetRequest) toInput() workflow.DraftInput {
	input := workflow.DraftInput{
		Name:       utils.SanitizeString(r.Name),
		IsPublic:   r.IsPublic,
		Categories: sanitizeAll(r.Categories),
		Items:      make([]workflow.ItemInput, len(r.Items)),
	}
	for i, item := range r.Items {
		input.Items[i] = workflow.ItemInput{
			ID:       strings.TrimSpace(item.ID),
			Name:     utils.SanitizeString(item.Name),
			Category: utils.SanitizeString(item.Category),
			Unit:     utils.SanitizeString(item.Unit),
			UnitCost: item.UnitCost,
			Qty:      item.Qty,
			Note:     utils.SanitizeString(item.Note),
			Evidence: toEvidence(item.Evidence),
		}
	}
	return input
}

func sanitizeAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = utils.SanitizeString(v)
	}
	return out
}

func (r ExpenseRequest) toReport() service.ExpenseReport {
	report := service.ExpenseReport{
		ActualAmount: r.ActualAmount,
		AddEvidence:  toEvidence(r.AddEvidence),
	}
	if r.MemberNote != nil {
		note := utils.SanitizeString(*r.MemberNote)
		report.MemberNote = &note
	}
	if r.Evidence != nil {
		list := toEvidence(*r.Evidence)
		report.Evidence = &list
	}
	return report
}

// toEvidence normalizes references. Invalid ones pass through unchanged so
// validation can report them with their position.
func toEvidence(in []EvidenceRequest) []entity.Evidence {
	out := make([]entity.Evidence, 0, len(in))
	for _, ev := range in {
		normalized, err := entity.NewEvidence(entity.EvidenceType(ev.Type), ev.URL, ev.Name)
		if err != nil {
			normalized = entity.Evidence{Type: entity.EvidenceType(ev.Type), URL: ev.URL, Name: ev.Name}
		}
		out = append(out, normalized)
	}
	return out
}

// NormalizeMemberID reduces the accepted shapes of a member reference to one
// id: "m1", {"_id": "m1"}, {"id": "m1"}, {"user_id": "m1"}, {"user": <any of these>}.
// null and "" clear the assignment.
func NormalizeMemberID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var value interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return "", fmt.Errorf("invalid member reference: %w", err)
	}
	return memberID(value, 0)
}

func memberID(value interface{}, depth int) (string, error) {
	if depth > 3 {
		return "", fmt.Errorf("member reference nested too deeply")
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		return v.String(), nil
	case map[string]interface{}:
		for _, key := range []string{"_id", "id", "user_id"} {
			if inner, ok := v[key]; ok {
				return memberID(inner, depth+1)
			}
		}
		if inner, ok := v["user"]; ok {
			return memberID(inner, depth+1)
		}
		return "", fmt.Errorf("member reference has no id")
	}
	return "", fmt.Errorf("unsupported member reference of type %T", value)
}

// parseIfMatch reads an expected version from an If-Match header such as
// `"3"`, `W/"3"` or `3`. An empty header means no expectation.
func parseIfMatch(header string) (int64, error) {
	header = strings.TrimSpace(header)
	if header == "" || header == "*" {
		return 0, nil
	}
	header = strings.TrimPrefix(header, "W/")
	header = strings.Trim(header, `"`)
	version, err := strconv.ParseInt(header, 10, 64)
	if err != nil || version <= 0 {
		return 0, fmt.Errorf("If-Match must carry a budget version")
	}
	return version, nil
}
