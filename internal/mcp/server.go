// Package mcp exposes the wizard as MCP tools so an assistant can walk a
// user through onboarding and read back the generated plan.
package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/models"
	"github.com/claude/coachwizard/internal/wizard"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Coach is the advisory part of the backend. *apiclient.Client implements it.
type Coach interface {
	InjuryRecommendations(ctx context.Context, userID string) ([]models.PlanItem, error)
	Ask(ctx context.Context, question string) (string, error)
}

// New creates an MCP server with all tools and resources registered.
func New(ctrl *wizard.Controller, catalog *lookup.Catalog, coach Coach, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("CoachWizard", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Fitness coaching onboarding. Register a profile with start_session, then select_sport, set_competition, optionally add_injury/add_achievement, then set_diet, and finally get_plan. Call wizard_status to see the next step. Use list_options for valid values."),
	)

	h := &handlers{ctrl: ctrl, catalog: catalog, coach: coach, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolStartSession, Handler: h.startSession},
		server.ServerTool{Tool: toolSelectSport, Handler: h.selectSport},
		server.ServerTool{Tool: toolSetCompetition, Handler: h.setCompetition},
		server.ServerTool{Tool: toolAddInjury, Handler: h.addInjury},
		server.ServerTool{Tool: toolAddAchievement, Handler: h.addAchievement},
		server.ServerTool{Tool: toolListHistory, Handler: h.listHistory},
		server.ServerTool{Tool: toolSetDiet, Handler: h.setDiet},
		server.ServerTool{Tool: toolGetPlan, Handler: h.getPlan},
		server.ServerTool{Tool: toolWizardStatus, Handler: h.wizardStatus},
		server.ServerTool{Tool: toolRestartSession, Handler: h.restartSession},
		server.ServerTool{Tool: toolListOptions, Handler: h.listOptions},
		server.ServerTool{Tool: toolInjuryRecommendations, Handler: h.injuryRecommendations},
		server.ServerTool{Tool: toolAskCoach, Handler: h.askCoach},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resSession, Handler: h.sessionResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ctrl    *wizard.Controller
	catalog *lookup.Catalog
	coach   Coach
	log     *slog.Logger
}

// --- Resource definitions ---

var resSession = mcp.NewResource(
	"coachwizard://session",
	"Current Session",
	mcp.WithResourceDescription("Stage, next step and echoed fields of the in-progress onboarding session"),
	mcp.WithMIMEType("application/json"),
)
