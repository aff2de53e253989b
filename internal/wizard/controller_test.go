package wizard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/models"
	"github.com/claude/coachwizard/internal/session"
)

// fakeBackend records calls and answers from configurable hooks.
type fakeBackend struct {
	calls atomic.Int32

	userID string
	err    error

	// block, when set, is waited on by step calls before answering.
	block chan struct{}

	injuryDelay func(r models.InjuryRecord) time.Duration
	injuryEcho  func(r models.InjuryRecord) models.InjuryRecord

	injuries     []models.InjuryRecord
	achievements []models.AchievementRecord
	plan         *models.Plan
}

func (f *fakeBackend) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeBackend) CreateUser(ctx context.Context, _ models.Profile) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.userID, nil
}

func (f *fakeBackend) SetSport(ctx context.Context, _ string, _ models.SportSelection) error {
	return f.wait(ctx)
}

func (f *fakeBackend) SetCompetition(ctx context.Context, _ string, _ models.Competition) error {
	return f.wait(ctx)
}

func (f *fakeBackend) SetDiet(ctx context.Context, _ string, _ models.DietPreferences) error {
	return f.wait(ctx)
}

func (f *fakeBackend) AddInjury(ctx context.Context, _ string, r models.InjuryRecord) (models.InjuryRecord, error) {
	if f.injuryDelay != nil {
		time.Sleep(f.injuryDelay(r))
	}
	if err := f.wait(ctx); err != nil {
		return models.InjuryRecord{}, err
	}
	if f.injuryEcho != nil {
		return f.injuryEcho(r), nil
	}
	return r, nil
}

func (f *fakeBackend) AddAchievement(ctx context.Context, _ string, r models.AchievementRecord) (models.AchievementRecord, error) {
	if err := f.wait(ctx); err != nil {
		return models.AchievementRecord{}, err
	}
	return r, nil
}

func (f *fakeBackend) ListInjuries(ctx context.Context, _ string) ([]models.InjuryRecord, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.injuries, nil
}

func (f *fakeBackend) ListAchievements(ctx context.Context, _ string) ([]models.AchievementRecord, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.achievements, nil
}

func (f *fakeBackend) GetPlan(ctx context.Context, _ string) (*models.Plan, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.plan, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validProfile() models.Profile {
	return models.Profile{Name: "Ana", Age: 28, Gender: "female", Height: 170, Weight: 62, FitnessLevel: "intermediate"}
}

func validInjury(t string) models.InjuryRecord {
	return models.InjuryRecord{Type: t, Date: "2024-03-01", Severity: "moderate", RecoveryTime: 4}
}

func newTestController(b Backend) (*Controller, session.Store) {
	store := session.NewMemory().Scope(session.DefaultNamespace)
	return New(b, store, testLogger()), store
}

// seed writes a persisted session directly into the store.
func seed(t *testing.T, store session.Store, stage Stage, sport string) {
	t.Helper()
	ctx := context.Background()
	for k, v := range map[string]string{
		session.KeyUserID: "u1", session.KeyUserName: "Ana", session.KeyStage: stage.String(),
	} {
		if err := store.Set(ctx, k, v); err != nil {
			t.Fatal(err)
		}
	}
	if sport != "" {
		if err := store.Set(ctx, session.KeySelectedSport, sport); err != nil {
			t.Fatal(err)
		}
	}
}

func wantKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if got := KindOf(err); got != want {
		t.Fatalf("kind = %q (err %v), want %q", got, err, want)
	}
}

// TestSessionMissingWithoutNetworkCall verifies every post-profile step fails
// fast when no session id is stored, without contacting the backend.
func TestSessionMissingWithoutNetworkCall(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		run  func(c *Controller) error
	}{
		{"sport", func(c *Controller) error {
			return c.SubmitSport(ctx, models.SportSelection{Sport: "tennis", Level: "beginner"})
		}},
		{"competition", func(c *Controller) error {
			return c.SubmitCompetition(ctx, models.Competition{CompetitionType: "local", Format: "league", Level: "club"})
		}},
		{"diet", func(c *Controller) error {
			return c.SubmitDiet(ctx, models.DietPreferences{DietType: "vegan"})
		}},
		{"injury", func(c *Controller) error {
			_, err := c.AddInjury(ctx, validInjury("sprain"))
			return err
		}},
		{"achievement", func(c *Controller) error {
			_, err := c.AddAchievement(ctx, models.AchievementRecord{Title: "Gold", Date: "d", Category: "competition"})
			return err
		}},
		{"load history", func(c *Controller) error {
			_, err := c.LoadHistory(ctx)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{}
			c, _ := newTestController(b)

			err := tt.run(c)
			wantKind(t, err, KindSessionMissing)
			if RedirectOf(err) != Profile {
				t.Errorf("redirect = %v, want profile", RedirectOf(err))
			}
			if n := b.calls.Load(); n != 0 {
				t.Errorf("backend calls = %d, want 0", n)
			}
		})
	}
}

// TestProfileValidationBeforeNetwork verifies each missing profile field is
// reported by name and nothing is sent.
func TestProfileValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(p *models.Profile)
	}{
		{"name", func(p *models.Profile) { p.Name = "  " }},
		{"age", func(p *models.Profile) { p.Age = 0 }},
		{"gender", func(p *models.Profile) { p.Gender = "" }},
		{"height", func(p *models.Profile) { p.Height = -1 }},
		{"weight", func(p *models.Profile) { p.Weight = 0 }},
		{"fitnessLevel", func(p *models.Profile) { p.FitnessLevel = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			b := &fakeBackend{userID: "u1"}
			c, store := newTestController(b)
			p := validProfile()
			tt.mutate(&p)

			_, err := c.StartSession(context.Background(), p)
			wantKind(t, err, KindValidation)
			var we *Error
			errors.As(err, &we)
			if we.Field != tt.field {
				t.Errorf("field = %q, want %q", we.Field, tt.field)
			}
			if b.calls.Load() != 0 {
				t.Error("backend was called")
			}
			if _, ok, _ := store.Get(context.Background(), session.KeyUserID); ok {
				t.Error("session id persisted after validation failure")
			}
		})
	}
}

// TestStepValidationReportsField verifies missing step fields are named.
func TestStepValidationReportsField(t *testing.T) {
	b := &fakeBackend{}
	c, store := newTestController(b)
	seed(t, store, StageCompetition, "tennis")
	ctx := context.Background()

	err := c.SubmitSport(ctx, models.SportSelection{Level: "beginner"})
	wantKind(t, err, KindValidation)
	var we *Error
	errors.As(err, &we)
	if we.Field != "sport" {
		t.Errorf("field = %q, want sport", we.Field)
	}

	_, err = c.AddInjury(ctx, models.InjuryRecord{Type: "sprain", Date: "d", Severity: "mild"})
	wantKind(t, err, KindValidation)
	errors.As(err, &we)
	if we.Field != "recoveryTime" {
		t.Errorf("field = %q, want recoveryTime", we.Field)
	}

	err = c.SubmitDiet(ctx, models.DietPreferences{Restrictions: []string{"nuts"}})
	wantKind(t, err, KindValidation)
	if b.calls.Load() != 0 {
		t.Errorf("backend calls = %d, want 0", b.calls.Load())
	}
}

// TestStartSessionPersistsBackendID verifies the stored id is exactly the
// backend's and that restart removes it.
func TestStartSessionPersistsBackendID(t *testing.T) {
	b := &fakeBackend{userID: "backend-id-7"}
	c, store := newTestController(b)
	ctx := context.Background()

	id, err := c.StartSession(ctx, validProfile())
	if err != nil {
		t.Fatal(err)
	}
	if id != "backend-id-7" {
		t.Errorf("id = %q", id)
	}
	if v, _, _ := store.Get(ctx, session.KeyUserID); v != "backend-id-7" {
		t.Errorf("stored id = %q", v)
	}
	if v, _, _ := store.Get(ctx, session.KeyUserName); v != "Ana" {
		t.Errorf("stored name = %q", v)
	}

	if err := c.Restart(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, session.KeyUserID); ok {
		t.Error("session id survives restart")
	}
	err = c.SubmitSport(ctx, models.SportSelection{Sport: "tennis", Level: "beginner"})
	wantKind(t, err, KindSessionMissing)

	if err := c.Restart(ctx); err != nil {
		t.Errorf("second restart: %v", err)
	}
}

// TestStartSessionReplacesPreviousSession verifies a new registration drops
// the previous selected sport and stage.
func TestStartSessionReplacesPreviousSession(t *testing.T) {
	b := &fakeBackend{userID: "u2"}
	c, store := newTestController(b)
	seed(t, store, StageDiet, "tennis")
	ctx := context.Background()

	if _, err := c.StartSession(ctx, validProfile()); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, session.KeySelectedSport); ok {
		t.Error("selected sport survived new registration")
	}
	st, _ := c.Status(ctx)
	if st.Stage != StageProfile || st.Next != Sport {
		t.Errorf("status = %+v", st)
	}
}

// failingReplace is a store whose Replace always fails.
type failingReplace struct {
	session.Store
}

func (failingReplace) Replace(context.Context, map[string]string) error {
	return errors.New("disk full")
}

// TestStartSessionStoreFailureKeepsPreviousSession verifies a failed write of
// the new session leaves the earlier one intact.
func TestStartSessionStoreFailureKeepsPreviousSession(t *testing.T) {
	store := session.NewMemory().Scope(session.DefaultNamespace)
	seed(t, store, StageCompetition, "tennis")
	c := New(&fakeBackend{userID: "u2"}, failingReplace{store}, testLogger())
	ctx := context.Background()

	if _, err := c.StartSession(ctx, validProfile()); err == nil {
		t.Fatal("expected store error")
	}
	st, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.SessionID != "u1" || st.Stage != StageCompetition || st.SelectedSport != "tennis" {
		t.Errorf("status = %+v, want previous session u1 at competition", st)
	}
}

// TestBackendFailuresPersistNothing verifies rejected and network failures
// surface their message and leave the store unchanged.
func TestBackendFailuresPersistNothing(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		kind    Kind
		message string
	}{
		{"rejected", &apiclient.APIError{StatusCode: 400, Path: "/api/user", Message: "Invalid gender"}, KindRejected, "Invalid gender"},
		{"network", &apiclient.NetworkError{Path: "/api/user", Err: errors.New("connection refused")}, KindNetwork, "Network error. Please try again later."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := newTestController(&fakeBackend{err: tt.err})

			_, err := c.StartSession(context.Background(), validProfile())
			wantKind(t, err, tt.kind)
			if err.Error() != tt.message {
				t.Errorf("message = %q, want %q", err.Error(), tt.message)
			}
			if _, ok, _ := store.Get(context.Background(), session.KeyUserID); ok {
				t.Error("session id persisted after failure")
			}
		})
	}
}

// TestOutOfOrderRedirects verifies each gated step redirects to the first
// incomplete required step.
func TestOutOfOrderRedirects(t *testing.T) {
	tests := []struct {
		stage Stage
		sport string
		step  Step
		want  Step
	}{
		{StageProfile, "", Competition, Sport},
		{StageProfile, "", Diet, Sport},
		{StageSport, "tennis", History, Competition},
		{StageSport, "tennis", Plan, Competition},
		{StageCompetition, "tennis", Plan, Diet},
		{StageCompetition, "", Competition, Sport},
	}
	for _, tt := range tests {
		c, store := newTestController(&fakeBackend{})
		seed(t, store, tt.stage, tt.sport)

		err := c.Enter(context.Background(), tt.step)
		wantKind(t, err, KindOutOfOrder)
		if got := RedirectOf(err); got != tt.want {
			t.Errorf("stage %s enter %s: redirect = %s, want %s", tt.stage, tt.step, got, tt.want)
		}
	}
}

// TestEnterAllowed verifies steps open once their prerequisites are met.
func TestEnterAllowed(t *testing.T) {
	c, store := newTestController(&fakeBackend{})
	if err := c.Enter(context.Background(), Profile); err != nil {
		t.Errorf("enter profile without session: %v", err)
	}
	seed(t, store, StageDiet, "tennis")
	for _, s := range Steps {
		if err := c.Enter(context.Background(), s); err != nil {
			t.Errorf("enter %s: %v", s, err)
		}
	}
}

// TestStageNeverRegresses verifies resubmitting an earlier step keeps the
// furthest stage.
func TestStageNeverRegresses(t *testing.T) {
	c, store := newTestController(&fakeBackend{})
	seed(t, store, StageDiet, "tennis")
	ctx := context.Background()

	if err := c.SubmitSport(ctx, models.SportSelection{Sport: "swimming", Level: "elite"}); err != nil {
		t.Fatal(err)
	}
	st, _ := c.Status(ctx)
	if st.Stage != StageDiet {
		t.Errorf("stage = %s, want diet", st.Stage)
	}
	if st.SelectedSport != "swimming" {
		t.Errorf("selected sport = %q", st.SelectedSport)
	}
}

// TestHappyPathStages walks the steps and checks stage and next step.
func TestHappyPathStages(t *testing.T) {
	b := &fakeBackend{userID: "u1", plan: &models.Plan{TrainingPlan: []models.PlanItem{{Description: "Run"}}}}
	c, _ := newTestController(b)
	ctx := context.Background()

	if _, err := c.StartSession(ctx, validProfile()); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitSport(ctx, models.SportSelection{Sport: "tennis", Level: "beginner"}); err != nil {
		t.Fatal(err)
	}
	if err := c.SubmitCompetition(ctx, models.Competition{CompetitionType: "local", Format: "league", Level: "club"}); err != nil {
		t.Fatal(err)
	}
	st, _ := c.Status(ctx)
	if st.Stage != StageCompetition || st.Next != History {
		t.Errorf("after competition: %+v", st)
	}
	if err := c.SubmitDiet(ctx, models.DietPreferences{DietType: "balanced"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Enter(ctx, Plan); err != nil {
		t.Fatalf("enter plan: %v", err)
	}
	plan, err := c.FetchPlan(ctx, st.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if plan.TrainingPlan[0].Description != "Run" {
		t.Errorf("plan = %+v", plan)
	}
}

// TestInjuryOrderUnderInvertedLatency verifies two appends are listed in
// submission order when the first answers last.
func TestInjuryOrderUnderInvertedLatency(t *testing.T) {
	b := &fakeBackend{
		injuryDelay: func(r models.InjuryRecord) time.Duration {
			if r.Type == "first" {
				return 80 * time.Millisecond
			}
			return 0
		},
	}
	c, store := newTestController(b)
	seed(t, store, StageCompetition, "tennis")
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := c.AddInjury(ctx, validInjury("first")); err != nil {
			t.Error(err)
		}
	}()
	// Let the first submission take its sequence number.
	time.Sleep(20 * time.Millisecond)
	if _, err := c.AddInjury(ctx, validInjury("second")); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	got := c.History().Injuries
	if len(got) != 2 || got[0].Type != "first" || got[1].Type != "second" {
		t.Errorf("injuries = %+v, want first then second", got)
	}
}

// TestInjuryEchoFallback verifies an empty echo falls back to the submitted
// record and a non-empty echo replaces it.
func TestInjuryEchoFallback(t *testing.T) {
	b := &fakeBackend{injuryEcho: func(r models.InjuryRecord) models.InjuryRecord {
		if r.Type == "blank" {
			return models.InjuryRecord{}
		}
		r.Notes = "stored"
		return r
	}}
	c, store := newTestController(b)
	seed(t, store, StageCompetition, "tennis")
	ctx := context.Background()

	if _, err := c.AddInjury(ctx, validInjury("blank")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddInjury(ctx, validInjury("echoed")); err != nil {
		t.Fatal(err)
	}
	got := c.History().Injuries
	if got[0].Type != "blank" {
		t.Errorf("fallback record = %+v", got[0])
	}
	if got[1].Notes != "stored" {
		t.Errorf("echoed record = %+v", got[1])
	}
}

// TestLoadHistory verifies backend lists replace the display lists and that
// a failed load leaves them untouched.
func TestLoadHistory(t *testing.T) {
	b := &fakeBackend{
		injuries:     []models.InjuryRecord{validInjury("stored")},
		achievements: []models.AchievementRecord{{Title: "Gold", Date: "d", Category: "competition"}},
	}
	c, store := newTestController(b)
	seed(t, store, StageCompetition, "tennis")
	ctx := context.Background()

	if _, err := c.AddInjury(ctx, validInjury("local")); err != nil {
		t.Fatal(err)
	}
	lists, err := c.LoadHistory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lists.Injuries) != 1 || lists.Injuries[0].Type != "stored" {
		t.Errorf("injuries = %+v", lists.Injuries)
	}
	if len(lists.Achievements) != 1 {
		t.Errorf("achievements = %+v", lists.Achievements)
	}

	if _, err := c.AddInjury(ctx, validInjury("after")); err != nil {
		t.Fatal(err)
	}
	b.err = &apiclient.NetworkError{Path: "/api/injuries/u1", Err: errors.New("down")}
	_, err = c.LoadHistory(ctx)
	wantKind(t, err, KindNetwork)
	got := c.History().Injuries
	if len(got) != 2 || got[1].Type != "after" {
		t.Errorf("after failed load injuries = %+v", got)
	}
}

// TestFetchPlanErrors verifies each plan failure kind carries its own
// corrective step.
func TestFetchPlanErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		plan     *models.Plan
		kind     Kind
		redirect Step
	}{
		{"not found", &apiclient.APIError{StatusCode: 404, Message: "User not found"}, nil, KindPlanNotFound, Profile},
		{"incomplete", &apiclient.APIError{StatusCode: 400, Message: "Could not generate plan."}, nil, KindPlanIncomplete, Sport},
		{"server error", &apiclient.APIError{StatusCode: 500, Message: "boom"}, nil, KindPlanUnavailable, 0},
		{"empty body", nil, nil, KindPlanUnavailable, 0},
		{"no plan fields", nil, &models.Plan{}, KindPlanUnavailable, 0},
		{"network", &apiclient.NetworkError{Path: "/api/plan/u1", Err: errors.New("down")}, nil, KindNetwork, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestController(&fakeBackend{err: tt.err, plan: tt.plan})
			_, err := c.FetchPlan(context.Background(), "u1")
			wantKind(t, err, tt.kind)
			if got := RedirectOf(err); got != tt.redirect {
				t.Errorf("redirect = %v, want %v", got, tt.redirect)
			}
		})
	}

	c, _ := newTestController(&fakeBackend{})
	_, err := c.FetchPlan(context.Background(), " ")
	wantKind(t, err, KindValidation)
}

// TestPlanIncompleteResumesSession verifies an incomplete plan for the local
// session points at its first unfinished step.
func TestPlanIncompleteResumesSession(t *testing.T) {
	incomplete := &apiclient.APIError{StatusCode: 400, Message: "Could not generate plan."}
	tests := []struct {
		stage Stage
		sport string
		id    string
		want  Step
	}{
		{StageSport, "tennis", "u1", Competition},
		{StageCompetition, "tennis", "u1", Diet},
		{StageDiet, "tennis", "u1", Sport},
		{StageCompetition, "tennis", "someone-else", Sport},
	}
	for _, tt := range tests {
		c, store := newTestController(&fakeBackend{err: incomplete})
		seed(t, store, tt.stage, tt.sport)
		_, err := c.FetchPlan(context.Background(), tt.id)
		wantKind(t, err, KindPlanIncomplete)
		if got := RedirectOf(err); got != tt.want {
			t.Errorf("stage %s, session %s: redirect = %v, want %v", tt.stage, tt.id, got, tt.want)
		}
	}
}

// TestDoubleSubmitGuard verifies a second submission of an in-flight step
// fails with pending and never reaches the backend.
func TestDoubleSubmitGuard(t *testing.T) {
	b := &fakeBackend{block: make(chan struct{})}
	c, store := newTestController(b)
	seed(t, store, StageProfile, "")
	ctx := context.Background()
	sel := models.SportSelection{Sport: "tennis", Level: "beginner"}

	done := make(chan error, 1)
	go func() { done <- c.SubmitSport(ctx, sel) }()
	waitForCalls(t, b, 1)

	wantKind(t, c.SubmitSport(ctx, sel), KindPending)
	if b.calls.Load() != 1 {
		t.Errorf("backend calls = %d, want 1", b.calls.Load())
	}
	if !c.Busy() {
		t.Error("Busy = false with a submission in flight")
	}

	close(b.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if c.Busy() {
		t.Error("Busy = true after the submission finished")
	}
	if err := c.SubmitSport(ctx, sel); err != nil {
		t.Errorf("resubmit after completion: %v", err)
	}
}

// TestStaleResponseDiscarded verifies a response arriving after restart is
// not written to the store.
func TestStaleResponseDiscarded(t *testing.T) {
	b := &fakeBackend{block: make(chan struct{})}
	c, store := newTestController(b)
	seed(t, store, StageProfile, "")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.SubmitSport(ctx, models.SportSelection{Sport: "tennis", Level: "beginner"}) }()
	waitForCalls(t, b, 1)

	if err := c.Restart(ctx); err != nil {
		t.Fatal(err)
	}
	close(b.block)

	wantKind(t, <-done, KindSuperseded)
	if _, ok, _ := store.Get(ctx, session.KeySelectedSport); ok {
		t.Error("stale sport written after restart")
	}
	if _, ok, _ := store.Get(ctx, session.KeyStage); ok {
		t.Error("stale stage written after restart")
	}
}

func waitForCalls(t *testing.T, b *fakeBackend, n int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("backend calls = %d, want %d", b.calls.Load(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestStepNavigation covers step names, routes and order.
func TestStepNavigation(t *testing.T) {
	want := map[Step]string{
		Profile: "/register", Sport: "/select-sport", Competition: "/competition-details",
		History: "/past-history", Diet: "/diet-preferences", Plan: "/plan",
	}
	for s, route := range want {
		if s.Route() != route {
			t.Errorf("%s route = %q, want %q", s, s.Route(), route)
		}
		parsed, err := ParseStep(s.String())
		if err != nil || parsed != s {
			t.Errorf("ParseStep(%q) = %v, %v", s.String(), parsed, err)
		}
	}
	if Competition.Next() != History || Plan.Next() != 0 {
		t.Error("unexpected step order")
	}
	if _, err := ParseStep("checkout"); err == nil {
		t.Error("expected error for unknown step")
	}
}
