package models

import "strings"

// Fixed enumerations for the profile form.
var (
	Genders       = []string{"male", "female", "other"}
	FitnessLevels = []string{"beginner", "intermediate", "advanced", "elite"}
)

// Profile is the first wizard step. Submitting it creates the backend session.
type Profile struct {
	Name         string  `json:"name"`
	Age          int     `json:"age"`
	Gender       string  `json:"gender"`
	Height       float64 `json:"height"` // cm
	Weight       float64 `json:"weight"` // kg
	FitnessLevel string  `json:"fitnessLevel"`
}

// Validate checks that every profile field is present and well-formed.
func (p Profile) Validate() error {
	var fe FieldErrors
	fe.required("name", p.Name)
	fe.positive("age", float64(p.Age))
	fe.oneOf("gender", p.Gender, Genders)
	fe.positive("height", p.Height)
	fe.positive("weight", p.Weight)
	fe.oneOf("fitnessLevel", p.FitnessLevel, FitnessLevels)
	return fe.OrNil()
}

// SportSelection is the Sport step payload.
type SportSelection struct {
	Sport string `json:"sport"`
	Level string `json:"level"`
}

func (s SportSelection) Validate() error {
	var fe FieldErrors
	fe.required("sport", s.Sport)
	fe.required("level", s.Level)
	return fe.OrNil()
}

// Competition is the Competition step payload.
type Competition struct {
	CompetitionType string `json:"competitionType"`
	Format          string `json:"format"`
	Level           string `json:"level"`
}

func (c Competition) Validate() error {
	var fe FieldErrors
	fe.required("competitionType", c.CompetitionType)
	fe.required("format", c.Format)
	fe.required("level", c.Level)
	return fe.OrNil()
}

// DietPreferences is the Diet step payload. Restrictions may be empty.
type DietPreferences struct {
	DietType     string   `json:"dietType"`
	Restrictions []string `json:"restrictions"`
}

func (d DietPreferences) Validate() error {
	var fe FieldErrors
	fe.required("dietType", d.DietType)
	return fe.OrNil()
}

// Normalized trims restrictions and drops blank entries. The result always
// has a non-nil Restrictions slice so it encodes as [] rather than null.
func (d DietPreferences) Normalized() DietPreferences {
	out := DietPreferences{
		DietType:     strings.TrimSpace(d.DietType),
		Restrictions: make([]string, 0, len(d.Restrictions)),
	}
	for _, r := range d.Restrictions {
		if r = strings.TrimSpace(r); r != "" {
			out.Restrictions = append(out.Restrictions, r)
		}
	}
	return out
}
