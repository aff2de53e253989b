package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Allowed values for history records.
var (
	InjurySeverities      = []string{"mild", "moderate", "severe"}
	AchievementCategories = []string{"competition", "training", "personal", "other"}
)

// Weeks is a recovery duration in whole weeks. The backend echoes it back as
// a string, so it decodes from either a JSON number or a numeric string.
type Weeks int

func (w *Weeks) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*w = Weeks(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("recovery time: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*w = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("recovery time %q: %w", s, err)
	}
	*w = Weeks(n)
	return nil
}

// InjuryRecord is one entry of the injury history.
type InjuryRecord struct {
	Type         string `json:"type"`
	Date         string `json:"date"`
	Severity     string `json:"severity"`
	RecoveryTime Weeks  `json:"recoveryTime"`
	Notes        string `json:"notes,omitempty"`
}

func (r InjuryRecord) Validate() error {
	var fe FieldErrors
	fe.required("type", r.Type)
	fe.required("date", r.Date)
	fe.oneOf("severity", r.Severity, InjurySeverities)
	fe.positive("recoveryTime", float64(r.RecoveryTime))
	return fe.OrNil()
}

// AchievementRecord is one entry of the achievement history.
type AchievementRecord struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (r AchievementRecord) Validate() error {
	var fe FieldErrors
	fe.required("title", r.Title)
	fe.required("date", r.Date)
	fe.oneOf("category", r.Category, AchievementCategories)
	fe.required("description", r.Description)
	return fe.OrNil()
}
