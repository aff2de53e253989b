package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/session"
	"github.com/claude/coachwizard/internal/wizard"
	"github.com/mark3labs/mcp-go/mcp"
)

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()
	ok := func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]string{"message": "ok"})
	}
	echo := func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeTestJSON(t, w, http.StatusOK, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{"userId": 7, "message": "created"})
	})
	mux.HandleFunc("POST /api/sport", ok)
	mux.HandleFunc("POST /api/competition", ok)
	mux.HandleFunc("POST /api/diet", ok)
	mux.HandleFunc("POST /api/injuries/{id}", echo)
	mux.HandleFunc("POST /api/achievements/{id}", echo)
	mux.HandleFunc("GET /api/injuries/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, http.StatusOK, []map[string]any{
			{"type": "sprain", "date": "2024-01-01", "severity": "mild", "recoveryTime": "2"},
		})
	})
	mux.HandleFunc("GET /api/achievements/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, http.StatusOK, []any{})
	})
	mux.HandleFunc("GET /api/plan/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			writeTestJSON(t, w, http.StatusNotFound, map[string]string{"error": "User not found."})
			return
		}
		writeTestJSON(t, w, http.StatusOK, map[string]any{
			"trainingPlan":  []string{"Intervals"},
			"nutritionPlan": []string{"Oats"},
		})
	})
	mux.HandleFunc("GET /api/injury_recommendations/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string]any{"recommendations": []string{"Ice the ankle"}})
	})
	mux.HandleFunc("POST /api/chatbot", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Question string `json:"question"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeTestJSON(t, w, http.StatusOK, map[string]string{"response": "You asked: " + body.Question})
	})
	mux.HandleFunc("GET /api/sports", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(t, w, http.StatusOK, map[string][]string{"sports": {"tennis", "table_tennis"}})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusInternalServerError)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := apiclient.New(ts.URL, 0)
	ctrl := wizard.New(api, session.NewMemory().Scope("mcp"), log)
	return &handlers{ctrl: ctrl, catalog: lookup.New(api, log), coach: api, log: log}
}

type toolFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// call invokes a tool handler and returns its text content.
func call(t *testing.T, fn toolFunc, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := fn(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	return text.Text, res.IsError
}

func mustCall(t *testing.T, fn toolFunc, args map[string]any) string {
	t.Helper()
	text, isErr := call(t, fn, args)
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	return text
}

func profileArgs() map[string]any {
	return map[string]any{
		"name": "Ada", "age": 30.0, "gender": "female",
		"height": 170.0, "weight": 60.0, "fitness_level": "advanced",
	}
}

// TestToolsFullFlow walks every step through the tool handlers and reads
// back the plan for the current session.
func TestToolsFullFlow(t *testing.T) {
	h := newTestHandlers(t)

	text := mustCall(t, h.startSession, profileArgs())
	if !strings.Contains(text, `"session_id":"7"`) {
		t.Errorf("start_session = %s, want session_id 7", text)
	}
	mustCall(t, h.selectSport, map[string]any{"sport": "tennis", "level": "advanced"})
	mustCall(t, h.setCompetition, map[string]any{"competition_type": "national", "format": "singles", "level": "state"})

	text = mustCall(t, h.addInjury, map[string]any{
		"type": "sprain", "date": "2024-01-01", "severity": "mild", "recovery_weeks": 2.0,
	})
	var injury map[string]any
	if err := json.Unmarshal([]byte(text), &injury); err != nil {
		t.Fatalf("add_injury result: %v", err)
	}
	if injury["type"] != "sprain" {
		t.Errorf("injury type = %v, want sprain", injury["type"])
	}
	mustCall(t, h.addAchievement, map[string]any{
		"title": "Regional final", "date": "2023-06-01", "category": "competition", "description": "Runner-up",
	})

	mustCall(t, h.setDiet, map[string]any{"diet_type": "balanced", "restrictions": []any{" nuts ", ""}})

	text = mustCall(t, h.getPlan, map[string]any{})
	if !strings.Contains(text, "Intervals") || !strings.Contains(text, "Oats") {
		t.Errorf("get_plan = %s, want both plan sections", text)
	}

	text = mustCall(t, h.wizardStatus, nil)
	if !strings.Contains(text, `"stage":"diet"`) {
		t.Errorf("wizard_status = %s, want stage diet", text)
	}
}

// TestToolsValidation verifies missing fields come back as a tool error
// rather than a protocol error.
func TestToolsValidation(t *testing.T) {
	h := newTestHandlers(t)
	args := profileArgs()
	delete(args, "name")

	text, isErr := call(t, h.startSession, args)
	if !isErr {
		t.Fatal("expected tool error for missing name")
	}
	if !strings.HasPrefix(text, "validation:") {
		t.Errorf("error = %q, want validation prefix", text)
	}
}

// TestToolsOutOfOrder verifies a skipped step names the step to go back to.
func TestToolsOutOfOrder(t *testing.T) {
	h := newTestHandlers(t)
	mustCall(t, h.startSession, profileArgs())

	text, isErr := call(t, h.setDiet, map[string]any{"diet_type": "balanced"})
	if !isErr {
		t.Fatal("expected tool error for diet before sport")
	}
	if !strings.HasPrefix(text, "out_of_order:") || !strings.Contains(text, "go to step sport") {
		t.Errorf("error = %q, want out_of_order redirecting to sport", text)
	}
}

// TestToolsSessionMissing verifies steps before start_session are refused.
func TestToolsSessionMissing(t *testing.T) {
	h := newTestHandlers(t)
	text, isErr := call(t, h.selectSport, map[string]any{"sport": "tennis", "level": "advanced"})
	if !isErr || !strings.HasPrefix(text, "session_missing:") {
		t.Errorf("select_sport = %q (error=%v), want session_missing", text, isErr)
	}
}

// TestGetPlanExplicitSession verifies a foreign session id reaches the
// backend and a 404 maps to the profile-not-found message.
func TestGetPlanExplicitSession(t *testing.T) {
	h := newTestHandlers(t)
	text, isErr := call(t, h.getPlan, map[string]any{"session_id": "nobody"})
	if !isErr {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(text, "User profile not found") {
		t.Errorf("error = %q, want profile-not-found message", text)
	}
}

// TestRestartSession verifies restart clears the session so the next step
// reports it missing.
func TestRestartSession(t *testing.T) {
	h := newTestHandlers(t)
	mustCall(t, h.startSession, profileArgs())
	mustCall(t, h.restartSession, nil)

	text := mustCall(t, h.wizardStatus, nil)
	if !strings.Contains(text, `"stage":"unstarted"`) {
		t.Errorf("wizard_status = %s, want unstarted", text)
	}
}

// TestListOptions verifies fetched and fallback lists and the sport
// requirement of sport_formats.
func TestListOptions(t *testing.T) {
	h := newTestHandlers(t)

	text := mustCall(t, h.listOptions, map[string]any{"list": "sports"})
	if !strings.Contains(text, `"label":"Table Tennis"`) {
		t.Errorf("sports = %s, want labelled table_tennis", text)
	}

	text = mustCall(t, h.listOptions, map[string]any{"list": "diet_types"})
	if !strings.Contains(text, `"value":"vegan"`) {
		t.Errorf("diet_types = %s, want fallback list", text)
	}

	if text, isErr := call(t, h.listOptions, map[string]any{"list": "sport_formats"}); !isErr {
		t.Errorf("sport_formats without sport = %s, want error", text)
	}
	if _, isErr := call(t, h.listOptions, map[string]any{}); !isErr {
		t.Error("missing list should be a tool error")
	}
}

// TestCoachTools verifies the advisory tools pass through to the backend.
func TestCoachTools(t *testing.T) {
	h := newTestHandlers(t)

	if _, isErr := call(t, h.injuryRecommendations, nil); !isErr {
		t.Error("injury_recommendations without a session should fail")
	}

	mustCall(t, h.startSession, profileArgs())
	mustCall(t, h.selectSport, map[string]any{"sport": "tennis", "level": "advanced"})
	mustCall(t, h.setCompetition, map[string]any{"competition_type": "national", "format": "singles", "level": "state"})

	text := mustCall(t, h.injuryRecommendations, nil)
	if !strings.Contains(text, "Ice the ankle") {
		t.Errorf("injury_recommendations = %s", text)
	}

	text = mustCall(t, h.askCoach, map[string]any{"question": "How long to taper?"})
	if text != "You asked: How long to taper?" {
		t.Errorf("ask_coach = %q", text)
	}
	if _, isErr := call(t, h.askCoach, map[string]any{"question": "  "}); !isErr {
		t.Error("blank question should be a tool error")
	}
}

// TestListHistory verifies the backend lists are returned with string
// recovery times decoded.
func TestListHistory(t *testing.T) {
	h := newTestHandlers(t)
	mustCall(t, h.startSession, profileArgs())
	mustCall(t, h.selectSport, map[string]any{"sport": "tennis", "level": "advanced"})
	mustCall(t, h.setCompetition, map[string]any{"competition_type": "national", "format": "singles", "level": "state"})

	text := mustCall(t, h.listHistory, nil)
	var lists wizard.HistoryLists
	if err := json.Unmarshal([]byte(text), &lists); err != nil {
		t.Fatalf("list_history result: %v", err)
	}
	if len(lists.Injuries) != 1 || lists.Injuries[0].RecoveryTime != 2 {
		t.Errorf("injuries = %+v, want one with 2 weeks", lists.Injuries)
	}
}

// TestSessionResource verifies the resource reports the next route.
func TestSessionResource(t *testing.T) {
	h := newTestHandlers(t)
	mustCall(t, h.startSession, profileArgs())

	var req mcp.ReadResourceRequest
	req.Params.URI = "coachwizard://session"
	contents, err := h.sessionResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents = %T", contents[0])
	}
	if !strings.Contains(text.Text, `"route":"/select-sport"`) {
		t.Errorf("resource = %s, want route /select-sport", text.Text)
	}
}
