package wizard

import "fmt"

// Step is one page of the wizard. The zero value means "no step".
type Step int

const (
	Profile Step = iota + 1
	Sport
	Competition
	History
	Diet
	Plan
)

// Steps lists every step in wizard order.
var Steps = []Step{Profile, Sport, Competition, History, Diet, Plan}

var stepNames = map[Step]string{
	Profile:     "profile",
	Sport:       "sport",
	Competition: "competition",
	History:     "history",
	Diet:        "diet",
	Plan:        "plan",
}

var stepRoutes = map[Step]string{
	Profile:     "/register",
	Sport:       "/select-sport",
	Competition: "/competition-details",
	History:     "/past-history",
	Diet:        "/diet-preferences",
	Plan:        "/plan",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return "none"
}

// Route is the page route that renders the step.
func (s Step) Route() string {
	return stepRoutes[s]
}

// Next returns the step that follows s, or zero after Plan.
func (s Step) Next() Step {
	if s >= Profile && s < Plan {
		return s + 1
	}
	return 0
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseStep resolves a step name as produced by String.
func ParseStep(name string) (Step, error) {
	for s, n := range stepNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// Stage is the furthest required step completed for the persisted session.
// History is optional and has no stage of its own.
type Stage int

const (
	StageUnstarted Stage = iota
	StageProfile
	StageSport
	StageCompetition
	StageDiet
)

var stageNames = []string{"unstarted", "profile", "sport", "competition", "diet"}

func (s Stage) String() string {
	if s >= StageUnstarted && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unstarted"
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// parseStage decodes a persisted stage. Unknown values read as unstarted.
func parseStage(v string) Stage {
	for i, n := range stageNames {
		if n == v {
			return Stage(i)
		}
	}
	return StageUnstarted
}

// completes is the stage reached when step succeeds.
func completes(step Step) Stage {
	switch step {
	case Profile:
		return StageProfile
	case Sport:
		return StageSport
	case Competition:
		return StageCompetition
	case Diet:
		return StageDiet
	default:
		return StageUnstarted
	}
}

// requires is the stage a session must have reached before step may be entered.
func requires(step Step) Stage {
	switch step {
	case Sport:
		return StageProfile
	case Competition:
		return StageSport
	case History, Diet:
		return StageCompetition
	case Plan:
		return StageDiet
	default:
		return StageUnstarted
	}
}

// firstIncomplete is the first required step not yet completed at stage s.
func (s Stage) firstIncomplete() Step {
	switch s {
	case StageUnstarted:
		return Profile
	case StageProfile:
		return Sport
	case StageSport:
		return Competition
	case StageCompetition:
		return Diet
	default:
		return Plan
	}
}

// next is the page a user continues with at stage s.
func (s Stage) next() Step {
	switch s {
	case StageUnstarted:
		return Profile
	case StageProfile:
		return Sport
	case StageSport:
		return Competition
	case StageCompetition:
		return History
	default:
		return Plan
	}
}
