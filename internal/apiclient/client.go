// Package apiclient is a typed REST client for the coaching backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/coachwizard/internal/models"
)

// DefaultTimeout applies when New is given a zero timeout.
const DefaultTimeout = 30 * time.Second

// Client calls the coaching backend over HTTP. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client targeting baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

// NetworkError is a request that never produced an HTTP answer.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// StatusOf returns the HTTP status of an *APIError in err's chain, or 0.
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

// errorMessage picks the human-readable message out of an error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Path: path, Err: fmt.Errorf("reading body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Path: path, Message: errorMessage(body)}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func userPath(prefix, userID string) string {
	return prefix + url.PathEscape(userID)
}

// CreateUser registers a profile and returns the backend-issued user id.
func (c *Client) CreateUser(ctx context.Context, p models.Profile) (string, error) {
	var resp struct {
		UserID json.RawMessage `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/user", p, &resp); err != nil {
		return "", err
	}
	id := rawID(resp.UserID)
	if id == "" {
		return "", &APIError{StatusCode: http.StatusOK, Path: "/api/user", Message: "response did not include a user id"}
	}
	return id, nil
}

// rawID accepts an id encoded as either a JSON string or a number.
func rawID(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}

// SetSport records the sport selection.
func (c *Client) SetSport(ctx context.Context, userID string, s models.SportSelection) error {
	body := struct {
		UserID string `json:"userId"`
		models.SportSelection
	}{userID, s}
	return c.do(ctx, http.MethodPost, "/api/sport", body, nil)
}

// SetCompetition records the competition details.
func (c *Client) SetCompetition(ctx context.Context, userID string, comp models.Competition) error {
	body := struct {
		UserID string `json:"userId"`
		models.Competition
	}{userID, comp}
	return c.do(ctx, http.MethodPost, "/api/competition", body, nil)
}

// SetDiet records diet preferences.
func (c *Client) SetDiet(ctx context.Context, userID string, d models.DietPreferences) error {
	body := struct {
		UserID string `json:"userId"`
		models.DietPreferences
	}{userID, d}
	return c.do(ctx, http.MethodPost, "/api/diet", body, nil)
}

// AddInjury appends an injury and returns the record the backend stored.
func (c *Client) AddInjury(ctx context.Context, userID string, r models.InjuryRecord) (models.InjuryRecord, error) {
	var created models.InjuryRecord
	err := c.do(ctx, http.MethodPost, userPath("/api/injuries/", userID), r, &created)
	return created, err
}

// AddAchievement appends an achievement and returns the stored record.
func (c *Client) AddAchievement(ctx context.Context, userID string, r models.AchievementRecord) (models.AchievementRecord, error) {
	var created models.AchievementRecord
	err := c.do(ctx, http.MethodPost, userPath("/api/achievements/", userID), r, &created)
	return created, err
}

// ListInjuries returns the recorded injuries in backend order.
func (c *Client) ListInjuries(ctx context.Context, userID string) ([]models.InjuryRecord, error) {
	var list []models.InjuryRecord
	if err := c.do(ctx, http.MethodGet, userPath("/api/injuries/", userID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListAchievements returns the recorded achievements in backend order.
func (c *Client) ListAchievements(ctx context.Context, userID string) ([]models.AchievementRecord, error) {
	var list []models.AchievementRecord
	if err := c.do(ctx, http.MethodGet, userPath("/api/achievements/", userID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetPlan fetches the generated plan. An empty 2xx body yields a nil plan.
func (c *Client) GetPlan(ctx context.Context, userID string) (*models.Plan, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, userPath("/api/plan/", userID), nil, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var plan models.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return &plan, nil
}

// InjuryRecommendations returns rehabilitation guidance for recorded injuries.
func (c *Client) InjuryRecommendations(ctx context.Context, userID string) ([]models.PlanItem, error) {
	var resp struct {
		Recommendations []models.PlanItem `json:"recommendations"`
	}
	if err := c.do(ctx, http.MethodGet, userPath("/api/injury_recommendations/", userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

// Ask sends a free-form question to the coach chatbot.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	in := struct {
		Question string `json:"question"`
	}{question}
	var resp struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chatbot", in, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}
