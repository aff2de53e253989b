package models

import (
	"encoding/json"
	"fmt"
)

// PlanItem is one advisory line of a generated plan.
type PlanItem struct {
	Description string   `json:"description"`
	Details     []string `json:"details"`
}

// UnmarshalJSON accepts both the object form and a bare string, which older
// backends emit for plan lines.
func (p *PlanItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PlanItem{Description: s}
		return nil
	}
	type plain PlanItem
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("plan item: %w", err)
	}
	*p = PlanItem(v)
	return nil
}

// Plan is the backend-generated terminal artifact. It is read-only to clients.
type Plan struct {
	TrainingPlan          []PlanItem `json:"trainingPlan"`
	NutritionPlan         []PlanItem `json:"nutritionPlan"`
	InjuryRecommendations []PlanItem `json:"injuryRecommendations,omitempty"`
}

// HasContent reports whether the backend sent at least one of the training or
// nutrition sections. An empty list counts as sent; an absent one does not.
func (p *Plan) HasContent() bool {
	return p != nil && (p.TrainingPlan != nil || p.NutritionPlan != nil)
}
