package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/analyzer"
	"github.com/contentpilot/reddit-autopost/internal/history"
	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/contentpilot/reddit-autopost/internal/reddit"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Analyzer produces an article profile from a URL.
type Analyzer interface {
	Analyze(ctx context.Context, articleURL string) (*models.ArticleProfile, error)
}

// Recommender ranks catalog communities for a profile.
type Recommender interface {
	Recommend(profile *models.ArticleProfile) []models.Recommendation
}

// Drafter generates a post for one community. It never fails.
type Drafter interface {
	Draft(ctx context.Context, profile *models.ArticleProfile, community *models.CommunityProfile) *models.DraftPost
}

// Checker validates a draft against a community's rules.
type Checker interface {
	Check(draft *models.DraftPost, community *models.CommunityProfile) (bool, []string)
}

// Transport submits a post and returns the remote post ID. Errors are
// classified by the reddit package's taxonomy.
type Transport interface {
	Submit(ctx context.Context, community, title, body, flair string) (string, error)
}

// CommunityLookup resolves community profiles by name.
type CommunityLookup interface {
	Get(name string) (*models.CommunityProfile, bool)
}

// Options tune the submission retry policy and external-call timeouts.
type Options struct {
	RetryCount  int           // attempts per community, including the first
	BackoffBase time.Duration // delay before attempt n is BackoffBase * 2^(n-1)
	MaxBackoff  time.Duration
	CallTimeout time.Duration
}

// DefaultOptions mirror the documented defaults.
func DefaultOptions() Options {
	return Options{
		RetryCount:  3,
		BackoffBase: 2 * time.Second,
		MaxBackoff:  30 * time.Second,
		CallTimeout: 10 * time.Second,
	}
}

// Service drives the Analyze -> Recommend -> Draft -> Check -> Submit ->
// Record pipeline. One Service handles many concurrent runs; each run's
// pipeline executes sequentially while per-community work inside a stage
// fans out.
type Service struct {
	analyzer    Analyzer
	recommender Recommender
	drafter     Drafter
	checker     Checker
	transport   Transport
	communities CommunityLookup
	store       history.Store
	opts        Options

	mu   sync.RWMutex
	runs map[string]*runState
}

type runState struct {
	mu           sync.Mutex
	run          *models.WorkflowRun
	cancelled    bool
	cancelReason string
}

// NewService wires the pipeline components together.
func NewService(an Analyzer, rec Recommender, dr Drafter, ch Checker, tr Transport, communities CommunityLookup, store history.Store, opts Options) *Service {
	if opts.RetryCount < 1 {
		opts.RetryCount = 1
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	return &Service{
		analyzer:    an,
		recommender: rec,
		drafter:     dr,
		checker:     ch,
		transport:   tr,
		communities: communities,
		store:       store,
		opts:        opts,
		runs:        make(map[string]*runState),
	}
}

// NewRun registers a fresh run for the article URL and returns its
// snapshot.
func (s *Service) NewRun(articleURL string) models.WorkflowRun {
	now := time.Now().UTC()
	run := &models.WorkflowRun{
		ID:          uuid.NewString(),
		ArticleURL:  articleURL,
		Stage:       models.StageCreated,
		Drafts:      make(map[string]*models.DraftPost),
		Submissions: make(map[string]models.SubmissionResult),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.runs[run.ID] = &runState{run: run}
	s.mu.Unlock()

	logrus.Infof("Created workflow run %s for %s", run.ID, articleURL)
	return *run
}

// Run returns a snapshot of the run, or false when the ID is unknown.
func (s *Service) Run(id string) (models.WorkflowRun, bool) {
	state, ok := s.state(id)
	if !ok {
		return models.WorkflowRun{}, false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return snapshot(state.run), true
}

// Runs lists snapshots of all known runs, newest first.
func (s *Service) Runs() []models.WorkflowRun {
	s.mu.RLock()
	states := make([]*runState, 0, len(s.runs))
	for _, st := range s.runs {
		states = append(states, st)
	}
	s.mu.RUnlock()

	out := make([]models.WorkflowRun, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, snapshot(st.run))
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Service) state(id string) (*runState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.runs[id]
	return st, ok
}

func snapshot(run *models.WorkflowRun) models.WorkflowRun {
	copied := *run
	copied.Drafts = make(map[string]*models.DraftPost, len(run.Drafts))
	for name, draft := range run.Drafts {
		d := *draft
		copied.Drafts[name] = &d
	}
	copied.Submissions = make(map[string]models.SubmissionResult, len(run.Submissions))
	for name, sub := range run.Submissions {
		copied.Submissions[name] = sub
	}
	copied.Recommendations = append([]models.Recommendation(nil), run.Recommendations...)
	return copied
}

func touch(run *models.WorkflowRun, stage models.Stage) {
	run.Stage = stage
	run.UpdatedAt = time.Now().UTC()
}

func (s *Service) fail(run *models.WorkflowRun, reason string) {
	run.FailureReason = reason
	touch(run, models.StageFailed)
	logrus.Errorf("Run %s failed: %s", run.ID, reason)
}

// checkCancelled halts stage transitions on a cancelled run. The stage
// that was executing when Cancel arrived has already finished; this
// guard stops the next one.
func (s *Service) checkCancelled(state *runState) bool {
	if !state.cancelled || state.run.Stage.Terminal() {
		return state.cancelled
	}
	s.fail(state.run, "cancelled: "+state.cancelReason)
	return true
}

// Cancel requests that the run stop between stages. A stage already in
// flight finishes first.
func (s *Service) Cancel(id, reason string) error {
	state, ok := s.state(id)
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.run.Stage.Terminal() {
		return nil
	}
	state.cancelled = true
	state.cancelReason = reason
	logrus.Infof("Run %s cancellation requested: %s", id, reason)
	return nil
}

// Analyze moves CREATED -> ANALYZING -> ANALYZED. Re-invocation on a run
// that already holds a profile is a no-op: the fetch is never repeated.
// Fetch and parse failures are fatal and move the run to FAILED.
func (s *Service) Analyze(ctx context.Context, id string) error {
	state, ok := s.state(id)
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if s.checkCancelled(state) {
		return fmt.Errorf("run %s is cancelled", id)
	}

	run := state.run
	if run.Stage != models.StageCreated {
		if run.Profile != nil {
			return nil // already analyzed, idempotent re-entry
		}
		return fmt.Errorf("run %s cannot analyze from stage %s", id, run.Stage)
	}

	touch(run, models.StageAnalyzing)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	profile, err := s.analyzer.Analyze(callCtx, run.ArticleURL)
	cancel()

	if err != nil {
		s.fail(run, err.Error())
		if analyzer.IsFatal(err) {
			return err
		}
		return fmt.Errorf("analyze %s: %w", run.ArticleURL, err)
	}

	run.Profile = profile
	touch(run, models.StageAnalyzed)
	return nil
}

// Recommend moves ANALYZED -> RECOMMENDING -> RECOMMENDED. It never
// fails for a known run; an empty recommendation list is a valid
// RECOMMENDED state.
func (s *Service) Recommend(ctx context.Context, id string) error {
	state, ok := s.state(id)
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if s.checkCancelled(state) {
		return fmt.Errorf("run %s is cancelled", id)
	}

	run := state.run
	if run.Stage == models.StageRecommended {
		return nil
	}
	if run.Stage != models.StageAnalyzed {
		return fmt.Errorf("run %s cannot recommend from stage %s", id, run.Stage)
	}

	touch(run, models.StageRecommending)
	run.Recommendations = s.recommender.Recommend(run.Profile)
	touch(run, models.StageRecommended)

	logrus.Infof("Run %s: %d communities recommended", id, len(run.Recommendations))
	return nil
}

// DraftAndCheck moves RECOMMENDED -> DRAFTING -> CHECKING for the
// selected communities. Drafting fans out per community; one failure
// never blocks the others. Drafts failing their compliance check are
// marked blocked with their violations retained, and stay out of
// submission until redrafted.
func (s *Service) DraftAndCheck(ctx context.Context, id string, communities []string) error {
	state, ok := s.state(id)
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if s.checkCancelled(state) {
		return fmt.Errorf("run %s is cancelled", id)
	}

	run := state.run
	if run.Stage != models.StageRecommended {
		return fmt.Errorf("run %s cannot draft from stage %s", id, run.Stage)
	}

	targets, err := s.resolveTargets(run, communities)
	if err != nil {
		return err
	}

	touch(run, models.StageDrafting)
	drafts := s.draftAll(ctx, run.Profile, targets)

	touch(run, models.StageChecking)
	for _, community := range targets {
		draft := drafts[community.Name]
		passed, violations := s.checker.Check(draft, community)
		draft.Passed = passed
		draft.Violations = violations
		run.Drafts[community.Name] = draft
		if !passed {
			logrus.Infof("Run %s: draft for r/%s blocked by %v", id, community.Name, violations)
		}
	}

	run.UpdatedAt = time.Now().UTC()
	return nil
}

// Redraft regenerates and re-checks the draft of a single community
// while the run sits in CHECKING. This is the caller-driven re-entry
// path for a blocked draft; the new draft replaces the old one entirely.
func (s *Service) Redraft(ctx context.Context, id, communityName string) error {
	state, ok := s.state(id)
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if s.checkCancelled(state) {
		return fmt.Errorf("run %s is cancelled", id)
	}

	run := state.run
	if run.Stage != models.StageChecking {
		return fmt.Errorf("run %s cannot redraft from stage %s", id, run.Stage)
	}
	if _, exists := run.Drafts[communityName]; !exists {
		return fmt.Errorf("run %s has no draft for community %s", id, communityName)
	}
	community, ok := s.communities.Get(communityName)
	if !ok {
		return fmt.Errorf("unknown community %s", communityName)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	draft := s.drafter.Draft(callCtx, run.Profile, community)
	cancel()

	draft.Passed, draft.Violations = s.checker.Check(draft, community)
	run.Drafts[communityName] = draft
	run.UpdatedAt = time.Now().UTC()
	return nil
}

// Submit moves CHECKING -> SUBMITTING -> COMPLETED | PARTIAL | FAILED.
// Passed drafts are submitted concurrently; transient failures are
// retried with bounded exponential backoff, permanent failures are
// recorded immediately. Every targeted community reaches a terminal
// outcome and is appended to the history store.
func (s *Service) Submit(ctx context.Context, id string) error {
	state, ok := s.state(id)
	if !ok {
		return fmt.Errorf("unknown run %s", id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()

	if s.checkCancelled(state) {
		return fmt.Errorf("run %s is cancelled", id)
	}

	run := state.run
	if run.Stage != models.StageChecking {
		return fmt.Errorf("run %s cannot submit from stage %s", id, run.Stage)
	}
	if len(run.Drafts) == 0 {
		return fmt.Errorf("run %s has no drafts to submit", id)
	}

	touch(run, models.StageSubmitting)

	var wg sync.WaitGroup
	results := make(chan models.SubmissionResult, len(run.Drafts))

	for name, draft := range run.Drafts {
		if !draft.Passed {
			results <- models.SubmissionResult{
				Community:  name,
				Outcome:    models.OutcomeBlocked,
				Reason:     fmt.Sprintf("compliance violations: %v", draft.Violations),
				FinishedAt: time.Now().UTC(),
			}
			continue
		}

		wg.Add(1)
		go func(draft *models.DraftPost) {
			defer wg.Done()
			results <- s.submitWithRetry(ctx, draft)
		}(draft)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	attempted, succeeded := 0, 0
	for result := range results {
		run.Submissions[result.Community] = result
		if result.Outcome != models.OutcomeBlocked {
			attempted++
		}
		if result.Succeeded() {
			succeeded++
		}
		s.record(ctx, run, result)
	}

	switch {
	case succeeded == len(run.Submissions):
		touch(run, models.StageCompleted)
	case succeeded > 0:
		touch(run, models.StagePartial)
	default:
		reason := "no submissions succeeded"
		if attempted == 0 {
			reason = "all drafts blocked by compliance checks"
		}
		s.fail(run, reason)
	}

	logrus.Infof("Run %s finished in %s: %d/%d succeeded", id, run.Stage, succeeded, len(run.Submissions))
	return nil
}

// submitWithRetry drives one community to a terminal outcome.
func (s *Service) submitWithRetry(ctx context.Context, draft *models.DraftPost) models.SubmissionResult {
	result := models.SubmissionResult{Community: draft.Community}

	var lastErr error
	for attempt := 1; attempt <= s.opts.RetryCount; attempt++ {
		result.Attempts = attempt

		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		postID, err := s.transport.Submit(callCtx, draft.Community, draft.Title, draft.Body, draft.Flair)
		cancel()

		if err == nil {
			result.Outcome = models.OutcomeSuccess
			result.PostID = postID
			result.FinishedAt = time.Now().UTC()
			return result
		}

		if reddit.IsPermanent(err) {
			result.Outcome = models.OutcomePermanentFailure
			result.Reason = err.Error()
			result.FinishedAt = time.Now().UTC()
			return result
		}

		// Transient, or unclassified and treated as transient.
		lastErr = err
		logrus.Debugf("Submission to r/%s attempt %d/%d failed: %v", draft.Community, attempt, s.opts.RetryCount, err)

		if attempt < s.opts.RetryCount {
			if !s.backoff(ctx, attempt) {
				break
			}
		}
	}

	result.Outcome = models.OutcomeRetriesExhausted
	result.Reason = fmt.Sprintf("gave up after %d attempts: %v", result.Attempts, lastErr)
	result.FinishedAt = time.Now().UTC()
	return result
}

// backoff sleeps BackoffBase * 2^(attempt-1), bounded by MaxBackoff.
// Returns false when the context died first.
func (s *Service) backoff(ctx context.Context, attempt int) bool {
	delay := s.opts.BackoffBase << (attempt - 1)
	if delay > s.opts.MaxBackoff {
		delay = s.opts.MaxBackoff
	}
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Service) record(ctx context.Context, run *models.WorkflowRun, result models.SubmissionResult) {
	if s.store == nil {
		return
	}

	title := ""
	if draft, ok := run.Drafts[result.Community]; ok {
		title = draft.Title
	}

	record := models.HistoryRecord{
		RunID:      run.ID,
		ArticleURL: run.ArticleURL,
		Community:  result.Community,
		Title:      title,
		Outcome:    result.Outcome,
		PostID:     result.PostID,
		Reason:     result.Reason,
		Attempts:   result.Attempts,
		CreatedAt:  result.FinishedAt,
	}
	if err := s.store.Append(ctx, record); err != nil {
		logrus.Errorf("Failed to append history for run %s community %s: %v", run.ID, result.Community, err)
	}
}

func (s *Service) resolveTargets(run *models.WorkflowRun, communities []string) ([]*models.CommunityProfile, error) {
	if len(communities) == 0 {
		for _, rec := range run.Recommendations {
			communities = append(communities, rec.Community)
		}
	}
	if len(communities) == 0 {
		return nil, fmt.Errorf("run %s has no recommended communities to target", run.ID)
	}

	recommended := make(map[string]struct{}, len(run.Recommendations))
	for _, rec := range run.Recommendations {
		recommended[rec.Community] = struct{}{}
	}

	targets := make([]*models.CommunityProfile, 0, len(communities))
	for _, name := range communities {
		if _, ok := recommended[name]; !ok {
			return nil, fmt.Errorf("community %s was not recommended for run %s", name, run.ID)
		}
		profile, ok := s.communities.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown community %s", name)
		}
		targets = append(targets, profile)
	}
	return targets, nil
}

// draftAll fans drafting out over the target communities. Drafting
// never fails, so every target produces a draft.
func (s *Service) draftAll(ctx context.Context, profile *models.ArticleProfile, targets []*models.CommunityProfile) map[string]*models.DraftPost {
	var wg sync.WaitGroup
	drafts := make(chan *models.DraftPost, len(targets))

	for _, community := range targets {
		wg.Add(1)
		go func(community *models.CommunityProfile) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
			drafts <- s.drafter.Draft(callCtx, profile, community)
		}(community)
	}

	go func() {
		wg.Wait()
		close(drafts)
	}()

	out := make(map[string]*models.DraftPost, len(targets))
	for draft := range drafts {
		out[draft.Community] = draft
	}
	return out
}

// Execute runs the whole pipeline for a URL. selector picks which
// recommended communities to target; nil targets all of them.
func (s *Service) Execute(ctx context.Context, articleURL string, selector func([]models.Recommendation) []string) (models.WorkflowRun, error) {
	run := s.NewRun(articleURL)

	if err := s.Analyze(ctx, run.ID); err != nil {
		out, _ := s.Run(run.ID)
		return out, err
	}
	if err := s.Recommend(ctx, run.ID); err != nil {
		out, _ := s.Run(run.ID)
		return out, err
	}

	current, _ := s.Run(run.ID)
	if len(current.Recommendations) == 0 {
		return current, fmt.Errorf("no communities cleared the relevance floor for %s", articleURL)
	}

	var targets []string
	if selector != nil {
		targets = selector(current.Recommendations)
	}

	if err := s.DraftAndCheck(ctx, run.ID, targets); err != nil {
		out, _ := s.Run(run.ID)
		return out, err
	}
	if err := s.Submit(ctx, run.ID); err != nil {
		out, _ := s.Run(run.ID)
		return out, err
	}

	out, _ := s.Run(run.ID)
	return out, nil
}
