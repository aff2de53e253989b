// Package wizard sequences the coaching onboarding steps against the backend.
//
// A Controller owns one user's session: it persists the backend-issued id in a
// session.Store, refuses to enter or submit a step before its prerequisites
// are complete, rejects a second submission of a step while the first is in
// flight, and drops responses that arrive after the session was restarted.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/models"
	"github.com/claude/coachwizard/internal/session"
)

// Backend is the subset of the coaching API the wizard drives.
// *apiclient.Client implements it.
type Backend interface {
	CreateUser(ctx context.Context, p models.Profile) (string, error)
	SetSport(ctx context.Context, userID string, s models.SportSelection) error
	SetCompetition(ctx context.Context, userID string, c models.Competition) error
	SetDiet(ctx context.Context, userID string, d models.DietPreferences) error
	AddInjury(ctx context.Context, userID string, r models.InjuryRecord) (models.InjuryRecord, error)
	AddAchievement(ctx context.Context, userID string, r models.AchievementRecord) (models.AchievementRecord, error)
	ListInjuries(ctx context.Context, userID string) ([]models.InjuryRecord, error)
	ListAchievements(ctx context.Context, userID string) ([]models.AchievementRecord, error)
	GetPlan(ctx context.Context, userID string) (*models.Plan, error)
}

// Compile-time check: *apiclient.Client satisfies Backend.
var _ Backend = (*apiclient.Client)(nil)

type entry[T any] struct {
	seq int64
	rec T
}

// insertBySeq keeps list ordered by submission sequence.
func insertBySeq[T any](list []entry[T], e entry[T]) []entry[T] {
	i, _ := slices.BinarySearchFunc(list, e.seq, func(x entry[T], seq int64) int {
		switch {
		case x.seq < seq:
			return -1
		case x.seq > seq:
			return 1
		}
		return 0
	})
	return slices.Insert(list, i, e)
}

// loaded wraps backend records with sequence numbers below any local append.
func loaded[T any](recs []T) []entry[T] {
	out := make([]entry[T], len(recs))
	for i, r := range recs {
		out[i] = entry[T]{seq: int64(i - len(recs)), rec: r}
	}
	return out
}

// newer returns the entries submitted after seq.
func newer[T any](list []entry[T], seq int64) []entry[T] {
	var out []entry[T]
	for _, e := range list {
		if e.seq > seq {
			out = append(out, e)
		}
	}
	return out
}

func records[T any](list []entry[T]) []T {
	out := make([]T, len(list))
	for i, e := range list {
		out[i] = e.rec
	}
	return out
}

// HistoryLists is a snapshot of the displayed injury and achievement records.
type HistoryLists struct {
	Injuries     []models.InjuryRecord      `json:"injuries"`
	Achievements []models.AchievementRecord `json:"achievements"`
}

// Status describes where the persisted session stands.
type Status struct {
	SessionID     string `json:"sessionId,omitempty"`
	UserName      string `json:"userName,omitempty"`
	SelectedSport string `json:"selectedSport,omitempty"`
	Stage         Stage  `json:"stage"`
	Next          Step   `json:"next"`
	Injuries      int    `json:"injuries"`
	Achievements  int    `json:"achievements"`
}

// Controller drives one user's wizard session. Safe for concurrent use.
type Controller struct {
	backend Backend
	store   session.Store
	logger  *slog.Logger

	mu           sync.Mutex
	epoch        uint64
	ticket       uint64
	inflight     map[Step]uint64
	seq          int64
	injuries     []entry[models.InjuryRecord]
	achievements []entry[models.AchievementRecord]
}

// New creates a Controller persisting into store.
func New(backend Backend, store session.Store, logger *slog.Logger) *Controller {
	return &Controller{
		backend:  backend,
		store:    store,
		logger:   logger,
		inflight: make(map[Step]uint64),
	}
}

// state is the persisted session as read from the store.
type state struct {
	userID string
	name   string
	sport  string
	stage  Stage
}

func (c *Controller) load(ctx context.Context) (state, error) {
	var st state
	var err error
	if st.userID, _, err = c.store.Get(ctx, session.KeyUserID); err != nil {
		return st, fmt.Errorf("loading session: %w", err)
	}
	if st.name, _, err = c.store.Get(ctx, session.KeyUserName); err != nil {
		return st, fmt.Errorf("loading session: %w", err)
	}
	if st.sport, _, err = c.store.Get(ctx, session.KeySelectedSport); err != nil {
		return st, fmt.Errorf("loading session: %w", err)
	}
	stage, ok, err := c.store.Get(ctx, session.KeyStage)
	if err != nil {
		return st, fmt.Errorf("loading session: %w", err)
	}
	st.stage = parseStage(stage)
	// A session id stored without a stage has at least completed the profile.
	if st.userID != "" && (!ok || st.stage == StageUnstarted) {
		st.stage = StageProfile
	}
	return st, nil
}

// gate checks step's entry preconditions against st.
func gate(step Step, st state) error {
	if step == Profile {
		return nil
	}
	if st.userID == "" {
		return &Error{Kind: KindSessionMissing, Step: step, Redirect: Profile, Message: msgSessionMissing}
	}
	if st.stage < requires(step) {
		to := st.stage.firstIncomplete()
		return &Error{
			Kind:     KindOutOfOrder,
			Step:     step,
			Redirect: to,
			Message:  fmt.Sprintf("Please complete the %s step first.", to),
		}
	}
	if step == Competition && st.sport == "" {
		return &Error{Kind: KindOutOfOrder, Step: step, Redirect: Sport, Message: "Please select a sport first."}
	}
	return nil
}

// Enter reports whether step may be shown now. A failure carries the
// step to redirect to.
func (c *Controller) Enter(ctx context.Context, step Step) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load(ctx)
	if err != nil {
		return err
	}
	return gate(step, st)
}

func validationError(step Step, err error) error {
	var fe models.FieldErrors
	if !errors.As(err, &fe) || len(fe) == 0 {
		return &Error{Kind: KindValidation, Step: step, Message: err.Error(), Err: err}
	}
	return &Error{Kind: KindValidation, Step: step, Field: fe[0].Field, Message: fe.Error(), Err: err}
}

// backendError classifies a failed step call. Backend answers are surfaced
// verbatim; anything that produced no answer is a network error.
func backendError(step Step, err error) error {
	var ae *apiclient.APIError
	if errors.As(err, &ae) {
		msg := ae.Message
		if msg == "" {
			msg = http.StatusText(ae.StatusCode)
		}
		return &Error{Kind: KindRejected, Step: step, Message: msg, Err: err}
	}
	return &Error{Kind: KindNetwork, Step: step, Message: msgNetwork, Err: err}
}

// call is an admitted submission.
type call struct {
	step   Step
	st     state
	epoch  uint64
	ticket uint64
	seq    int64
}

// admit runs the gate and validation for step and, unless exempt, claims
// its in-flight slot. The caller must call c.release(cl) when done.
func (c *Controller) admit(ctx context.Context, step Step, v interface{ Validate() error }, exempt bool) (call, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load(ctx)
	if err != nil {
		return call{}, err
	}
	if err := gate(step, st); err != nil {
		return call{}, err
	}
	if err := v.Validate(); err != nil {
		return call{}, validationError(step, err)
	}

	cl := call{step: step, st: st, epoch: c.epoch}
	if exempt {
		c.seq++
		cl.seq = c.seq
		return cl, nil
	}
	if _, busy := c.inflight[step]; busy {
		return call{}, &Error{Kind: KindPending, Step: step, Message: fmt.Sprintf("A %s submission is already in progress.", step)}
	}
	c.ticket++
	cl.ticket = c.ticket
	c.inflight[step] = cl.ticket
	return cl, nil
}

func (c *Controller) release(cl call) {
	if cl.ticket == 0 {
		return
	}
	c.mu.Lock()
	if c.inflight[cl.step] == cl.ticket {
		delete(c.inflight, cl.step)
	}
	c.mu.Unlock()
}

// supersededLocked reports whether cl started before the last restart.
// Callers hold c.mu.
func (c *Controller) supersededLocked(cl call) error {
	if cl.epoch == c.epoch {
		return nil
	}
	c.logger.Info("discarding stale response", "step", cl.step)
	return &Error{Kind: KindSuperseded, Step: cl.step, Message: msgSuperseded}
}

// advanceLocked raises the persisted stage to at least to. Callers hold c.mu.
func (c *Controller) advanceLocked(ctx context.Context, to Stage) error {
	cur, _, err := c.store.Get(ctx, session.KeyStage)
	if err != nil {
		return fmt.Errorf("loading stage: %w", err)
	}
	if to <= parseStage(cur) {
		return nil
	}
	if err := c.store.Set(ctx, session.KeyStage, to.String()); err != nil {
		return fmt.Errorf("saving stage: %w", err)
	}
	return nil
}

// StartSession registers a profile with the backend and makes the returned
// id the current session, replacing any previous one.
func (c *Controller) StartSession(ctx context.Context, p models.Profile) (string, error) {
	p.Name = strings.TrimSpace(p.Name)
	cl, err := c.admit(ctx, Profile, p, false)
	if err != nil {
		return "", err
	}
	defer c.release(cl)

	id, err := c.backend.CreateUser(ctx, p)
	if err != nil {
		c.logger.Warn("profile submission failed", "error", err)
		return "", backendError(Profile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.supersededLocked(cl); err != nil {
		return "", err
	}
	err = c.store.Replace(ctx, map[string]string{
		session.KeyUserID:   id,
		session.KeyUserName: p.Name,
		session.KeyStage:    StageProfile.String(),
	})
	if err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	c.resetLocked()
	c.logger.Info("session started", "session_id", id)
	return id, nil
}

// resetLocked drops display state and invalidates in-flight responses.
func (c *Controller) resetLocked() {
	c.epoch++
	c.injuries = nil
	c.achievements = nil
	clear(c.inflight)
}

// SubmitSport records the sport selection and remembers the sport for the
// competition step.
func (c *Controller) SubmitSport(ctx context.Context, s models.SportSelection) error {
	cl, err := c.admit(ctx, Sport, s, false)
	if err != nil {
		return err
	}
	defer c.release(cl)

	if err := c.backend.SetSport(ctx, cl.st.userID, s); err != nil {
		c.logger.Warn("sport submission failed", "session_id", cl.st.userID, "error", err)
		return backendError(Sport, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.supersededLocked(cl); err != nil {
		return err
	}
	if err := c.store.Set(ctx, session.KeySelectedSport, s.Sport); err != nil {
		return fmt.Errorf("saving selected sport: %w", err)
	}
	return c.advanceLocked(ctx, StageSport)
}

// SubmitCompetition records competition details.
func (c *Controller) SubmitCompetition(ctx context.Context, comp models.Competition) error {
	cl, err := c.admit(ctx, Competition, comp, false)
	if err != nil {
		return err
	}
	defer c.release(cl)

	if err := c.backend.SetCompetition(ctx, cl.st.userID, comp); err != nil {
		c.logger.Warn("competition submission failed", "session_id", cl.st.userID, "error", err)
		return backendError(Competition, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.supersededLocked(cl); err != nil {
		return err
	}
	return c.advanceLocked(ctx, StageCompetition)
}

// SubmitDiet records diet preferences. After it succeeds the plan can be fetched.
func (c *Controller) SubmitDiet(ctx context.Context, d models.DietPreferences) error {
	d = d.Normalized()
	cl, err := c.admit(ctx, Diet, d, false)
	if err != nil {
		return err
	}
	defer c.release(cl)

	if err := c.backend.SetDiet(ctx, cl.st.userID, d); err != nil {
		c.logger.Warn("diet submission failed", "session_id", cl.st.userID, "error", err)
		return backendError(Diet, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.supersededLocked(cl); err != nil {
		return err
	}
	return c.advanceLocked(ctx, StageDiet)
}

// AddInjury appends an injury. Concurrent appends are listed in the order
// they were submitted, whatever order the backend answers in.
func (c *Controller) AddInjury(ctx context.Context, r models.InjuryRecord) (models.InjuryRecord, error) {
	cl, err := c.admit(ctx, History, r, true)
	if err != nil {
		return models.InjuryRecord{}, err
	}

	created, err := c.backend.AddInjury(ctx, cl.st.userID, r)
	if err != nil {
		c.logger.Warn("injury submission failed", "session_id", cl.st.userID, "error", err)
		return models.InjuryRecord{}, backendError(History, err)
	}
	if created == (models.InjuryRecord{}) {
		created = r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.supersededLocked(cl); err != nil {
		return models.InjuryRecord{}, err
	}
	c.injuries = insertBySeq(c.injuries, entry[models.InjuryRecord]{seq: cl.seq, rec: created})
	return created, nil
}

// AddAchievement appends an achievement, ordered like AddInjury.
func (c *Controller) AddAchievement(ctx context.Context, r models.AchievementRecord) (models.AchievementRecord, error) {
	cl, err := c.admit(ctx, History, r, true)
	if err != nil {
		return models.AchievementRecord{}, err
	}

	created, err := c.backend.AddAchievement(ctx, cl.st.userID, r)
	if err != nil {
		c.logger.Warn("achievement submission failed", "session_id", cl.st.userID, "error", err)
		return models.AchievementRecord{}, backendError(History, err)
	}
	if created == (models.AchievementRecord{}) {
		created = r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.supersededLocked(cl); err != nil {
		return models.AchievementRecord{}, err
	}
	c.achievements = insertBySeq(c.achievements, entry[models.AchievementRecord]{seq: cl.seq, rec: created})
	return created, nil
}

type noFields struct{}

func (noFields) Validate() error { return nil }

// LoadHistory replaces the displayed lists with what the backend has stored.
// On failure the displayed lists are left as they were.
func (c *Controller) LoadHistory(ctx context.Context) (HistoryLists, error) {
	cl, err := c.admit(ctx, History, noFields{}, true)
	if err != nil {
		return HistoryLists{}, err
	}

	injuries, err := c.backend.ListInjuries(ctx, cl.st.userID)
	if err != nil {
		c.logger.Warn("loading injuries failed", "session_id", cl.st.userID, "error", err)
		return HistoryLists{}, backendError(History, err)
	}
	achievements, err := c.backend.ListAchievements(ctx, cl.st.userID)
	if err != nil {
		c.logger.Warn("loading achievements failed", "session_id", cl.st.userID, "error", err)
		return HistoryLists{}, backendError(History, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.supersededLocked(cl); err != nil {
		return HistoryLists{}, err
	}
	// Appends submitted after the load began are kept behind the loaded records.
	c.injuries = append(loaded(injuries), newer(c.injuries, cl.seq)...)
	c.achievements = append(loaded(achievements), newer(c.achievements, cl.seq)...)
	return c.historyLocked(), nil
}

// History returns the displayed lists.
func (c *Controller) History() HistoryLists {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.historyLocked()
}

func (c *Controller) historyLocked() HistoryLists {
	return HistoryLists{
		Injuries:     records(c.injuries),
		Achievements: records(c.achievements),
	}
}

// FetchPlan retrieves the generated plan for sessionID. It does not depend
// on the persisted session, so a plan link can be opened anywhere; the
// session is only consulted to pick the step an incomplete plan resumes at.
func (c *Controller) FetchPlan(ctx context.Context, sessionID string) (*models.Plan, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, &Error{Kind: KindValidation, Step: Plan, Field: "userId", Message: "userId: is required"}
	}

	c.mu.Lock()
	if _, busy := c.inflight[Plan]; busy {
		c.mu.Unlock()
		return nil, &Error{Kind: KindPending, Step: Plan, Message: "A plan request is already in progress."}
	}
	c.ticket++
	cl := call{step: Plan, ticket: c.ticket}
	c.inflight[Plan] = cl.ticket
	c.mu.Unlock()
	defer c.release(cl)

	plan, err := c.backend.GetPlan(ctx, sessionID)
	if err != nil {
		c.logger.Warn("plan fetch failed", "session_id", sessionID, "error", err)
		perr := planError(err)
		if we, ok := perr.(*Error); ok && we.Kind == KindPlanIncomplete {
			we.Redirect = c.incompleteRedirect(ctx, sessionID)
		}
		return nil, perr
	}
	if !plan.HasContent() {
		return nil, &Error{Kind: KindPlanUnavailable, Step: Plan, Message: msgPlanUnavailable}
	}
	return plan, nil
}

// incompleteRedirect picks the step to resume when the backend reports the
// plan inputs incomplete. Without a matching local session, or when the local
// stage already claims diet is done, the user restarts at sport selection.
func (c *Controller) incompleteRedirect(ctx context.Context, sessionID string) Step {
	c.mu.Lock()
	st, err := c.load(ctx)
	c.mu.Unlock()
	if err != nil || st.userID != sessionID {
		return Sport
	}
	switch to := st.stage.firstIncomplete(); to {
	case Profile, Plan:
		return Sport
	default:
		return to
	}
}

func planError(err error) error {
	var ae *apiclient.APIError
	if !errors.As(err, &ae) {
		return &Error{Kind: KindNetwork, Step: Plan, Message: msgNetwork, Err: err}
	}
	switch ae.StatusCode {
	case http.StatusNotFound:
		return &Error{Kind: KindPlanNotFound, Step: Plan, Redirect: Profile, Message: msgPlanNotFound, Err: err}
	case http.StatusBadRequest:
		return &Error{Kind: KindPlanIncomplete, Step: Plan, Message: msgPlanIncomplete, Err: err}
	default:
		msg := ae.Message
		if msg == "" {
			msg = "Failed to fetch plan"
		}
		return &Error{Kind: KindPlanUnavailable, Step: Plan, Message: msg, Err: err}
	}
}

// Restart abandons the current session: the store and displayed lists are
// cleared and responses still in flight are discarded. The backend is not
// contacted. Restarting twice is the same as restarting once.
func (c *Controller) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	c.resetLocked()
	c.logger.Info("session restarted")
	return nil
}

// Busy reports whether a guarded submission is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) > 0
}

// Status reports the persisted session and where to continue.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.load(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		SessionID:     st.userID,
		UserName:      st.name,
		SelectedSport: st.sport,
		Stage:         st.stage,
		Next:          st.stage.next(),
		Injuries:      len(c.injuries),
		Achievements:  len(c.achievements),
	}, nil
}
