package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/models"
	"github.com/claude/coachwizard/internal/wizard"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolError renders err for the assistant, prefixed by its kind and followed
// by the step to go back to when there is one.
func toolError(err error) *mcp.CallToolResult {
	var we *wizard.Error
	if !errors.As(err, &we) {
		return mcp.NewToolResultError("error: " + err.Error())
	}
	msg := fmt.Sprintf("%s: %s", we.Kind, we.Error())
	if we.Redirect != 0 {
		msg += fmt.Sprintf(" (go to step %s)", we.Redirect)
	}
	return mcp.NewToolResultError(msg)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// --- Tool definitions ---

var toolStartSession = mcp.NewTool("start_session",
	mcp.WithDescription("Register the user's profile with the coaching backend and start a new onboarding session. Replaces any session in progress."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Full name")),
	mcp.WithNumber("age", mcp.Required(), mcp.Description("Age in years")),
	mcp.WithString("gender", mcp.Required(), mcp.Enum(models.Genders...)),
	mcp.WithNumber("height", mcp.Required(), mcp.Description("Height in centimetres")),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight in kilograms")),
	mcp.WithString("fitness_level", mcp.Required(), mcp.Enum(models.FitnessLevels...)),
)

var toolSelectSport = mcp.NewTool("select_sport",
	mcp.WithDescription("Record the sport the user trains for and their level in it."),
	mcp.WithString("sport", mcp.Required(), mcp.Description("Sport name, see list_options sports")),
	mcp.WithString("level", mcp.Required(), mcp.Description("Level in the sport, see list_options fitness_levels")),
)

var toolSetCompetition = mcp.NewTool("set_competition",
	mcp.WithDescription("Record the competition the user is preparing for."),
	mcp.WithString("competition_type", mcp.Required(), mcp.Description("See list_options competition_types")),
	mcp.WithString("format", mcp.Required(), mcp.Description("See list_options sport_formats with the selected sport")),
	mcp.WithString("level", mcp.Required(), mcp.Description("See list_options competition_levels")),
)

var toolAddInjury = mcp.NewTool("add_injury",
	mcp.WithDescription("Append a past injury to the user's history. May be called any number of times."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Injury, e.g. 'hamstring strain'")),
	mcp.WithString("date", mcp.Required(), mcp.Description("When it happened (YYYY-MM-DD)")),
	mcp.WithString("severity", mcp.Required(), mcp.Enum(models.InjurySeverities...)),
	mcp.WithNumber("recovery_weeks", mcp.Required(), mcp.Description("Recovery time in weeks")),
	mcp.WithString("notes", mcp.Description("Optional notes")),
)

var toolAddAchievement = mcp.NewTool("add_achievement",
	mcp.WithDescription("Append a past achievement to the user's history. May be called any number of times."),
	mcp.WithString("title", mcp.Required()),
	mcp.WithString("date", mcp.Required(), mcp.Description("YYYY-MM-DD")),
	mcp.WithString("category", mcp.Required(), mcp.Enum(models.AchievementCategories...)),
	mcp.WithString("description", mcp.Required()),
)

var toolListHistory = mcp.NewTool("list_history",
	mcp.WithDescription("Load the injury and achievement history stored by the backend."),
)

var toolSetDiet = mcp.NewTool("set_diet",
	mcp.WithDescription("Record diet preferences. After this the plan can be fetched."),
	mcp.WithString("diet_type", mcp.Required(), mcp.Description("See list_options diet_types")),
	mcp.WithArray("restrictions", mcp.Description("Foods to avoid"), mcp.Items(map[string]any{"type": "string"})),
)

var toolGetPlan = mcp.NewTool("get_plan",
	mcp.WithDescription("Fetch the generated training and nutrition plan."),
	mcp.WithString("session_id", mcp.Description("Session to fetch. Defaults to the current session.")),
)

var toolWizardStatus = mcp.NewTool("wizard_status",
	mcp.WithDescription("Show the current session, the furthest completed stage and the next step."),
)

var toolRestartSession = mcp.NewTool("restart_session",
	mcp.WithDescription("Abandon the current session and start over. Nothing is deleted on the backend."),
)

var toolListOptions = mcp.NewTool("list_options",
	mcp.WithDescription("List valid values for a form field. Falls back to built-in values when the backend cannot be reached."),
	mcp.WithString("list", mcp.Required(), mcp.Enum(listNames()...)),
	mcp.WithString("sport", mcp.Description("Sport, required for sport_formats")),
)

var toolInjuryRecommendations = mcp.NewTool("injury_recommendations",
	mcp.WithDescription("Rehabilitation guidance for the injuries recorded in the current session."),
)

var toolAskCoach = mcp.NewTool("ask_coach",
	mcp.WithDescription("Ask the coaching chatbot a free-form question."),
	mcp.WithString("question", mcp.Required()),
)

func listNames() []string {
	names := make([]string, len(apiclient.Lists))
	for i, l := range apiclient.Lists {
		names[i] = string(l)
	}
	return names
}

// --- Tool handlers ---

func (h *handlers) startSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p := models.Profile{
		Name:         req.GetString("name", ""),
		Age:          req.GetInt("age", 0),
		Gender:       req.GetString("gender", ""),
		Height:       req.GetFloat("height", 0),
		Weight:       req.GetFloat("weight", 0),
		FitnessLevel: req.GetString("fitness_level", ""),
	}
	id, err := h.ctrl.StartSession(ctx, p)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]string{"session_id": id, "next": wizard.Sport.String()})
}

func (h *handlers) selectSport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sel := models.SportSelection{
		Sport: req.GetString("sport", ""),
		Level: req.GetString("level", ""),
	}
	if err := h.ctrl.SubmitSport(ctx, sel); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Sport saved. Next: set_competition."), nil
}

func (h *handlers) setCompetition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	comp := models.Competition{
		CompetitionType: req.GetString("competition_type", ""),
		Format:          req.GetString("format", ""),
		Level:           req.GetString("level", ""),
	}
	if err := h.ctrl.SubmitCompetition(ctx, comp); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Competition saved. Next: add_injury / add_achievement as needed, then set_diet."), nil
}

func (h *handlers) addInjury(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec := models.InjuryRecord{
		Type:         req.GetString("type", ""),
		Date:         req.GetString("date", ""),
		Severity:     req.GetString("severity", ""),
		RecoveryTime: models.Weeks(req.GetInt("recovery_weeks", 0)),
		Notes:        req.GetString("notes", ""),
	}
	created, err := h.ctrl.AddInjury(ctx, rec)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(created)
}

func (h *handlers) addAchievement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec := models.AchievementRecord{
		Title:       req.GetString("title", ""),
		Date:        req.GetString("date", ""),
		Category:    req.GetString("category", ""),
		Description: req.GetString("description", ""),
	}
	created, err := h.ctrl.AddAchievement(ctx, rec)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(created)
}

func (h *handlers) listHistory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lists, err := h.ctrl.LoadHistory(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(lists)
}

func (h *handlers) setDiet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := models.DietPreferences{
		DietType:     req.GetString("diet_type", ""),
		Restrictions: req.GetStringSlice("restrictions", nil),
	}
	if err := h.ctrl.SubmitDiet(ctx, d); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Diet saved. The plan is ready: call get_plan."), nil
}

func (h *handlers) getPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("session_id", "")
	if id == "" {
		if err := h.ctrl.Enter(ctx, wizard.Plan); err != nil {
			return toolError(err), nil
		}
		st, err := h.ctrl.Status(ctx)
		if err != nil {
			return toolError(err), nil
		}
		id = st.SessionID
	}
	plan, err := h.ctrl.FetchPlan(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(plan)
}

func (h *handlers) wizardStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := h.ctrl.Status(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(st)
}

func (h *handlers) restartSession(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.ctrl.Restart(ctx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Session cleared. Start again with start_session."), nil
}

func (h *handlers) listOptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("list")
	if err != nil {
		return mcp.NewToolResultError("list parameter is required"), nil
	}
	list := apiclient.List(name)
	sport := req.GetString("sport", "")
	if list == apiclient.SportFormats && sport == "" {
		st, err := h.ctrl.Status(ctx)
		if err == nil {
			sport = st.SelectedSport
		}
	}
	if _, err := list.Path(sport); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	values := h.catalog.Options(ctx, list, sport)
	options := make([]map[string]string, len(values))
	for i, v := range values {
		options[i] = map[string]string{"value": v, "label": lookup.Label(v)}
	}
	return jsonResult(options)
}

func (h *handlers) injuryRecommendations(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.ctrl.Enter(ctx, wizard.History); err != nil {
		return toolError(err), nil
	}
	st, err := h.ctrl.Status(ctx)
	if err != nil {
		return toolError(err), nil
	}
	recs, err := h.coach.InjuryRecommendations(ctx, st.SessionID)
	if err != nil {
		h.log.Error("mcp injury_recommendations", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(recs)
}

func (h *handlers) askCoach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("question")
	if err != nil || strings.TrimSpace(q) == "" {
		return mcp.NewToolResultError("question parameter is required"), nil
	}
	answer, err := h.coach.Ask(ctx, q)
	if err != nil {
		h.log.Error("mcp ask_coach", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(answer), nil
}
