package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/analyzer"
	"github.com/contentpilot/reddit-autopost/internal/catalog"
	"github.com/contentpilot/reddit-autopost/internal/history"
	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/contentpilot/reddit-autopost/internal/reddit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAnalyzer is a mock implementation of the Analyzer interface
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, articleURL string) (*models.ArticleProfile, error) {
	args := m.Called(ctx, articleURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArticleProfile), args.Error(1)
}

// MockTransport is a mock implementation of the Transport interface
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Submit(ctx context.Context, community, title, body, flair string) (string, error) {
	args := m.Called(ctx, community, title, body, flair)
	return args.String(0), args.Error(1)
}

type stubRecommender struct {
	recs []models.Recommendation
}

func (r stubRecommender) Recommend(*models.ArticleProfile) []models.Recommendation {
	return r.recs
}

type stubDrafter struct{}

func (stubDrafter) Draft(_ context.Context, profile *models.ArticleProfile, community *models.CommunityProfile) *models.DraftPost {
	return &models.DraftPost{
		Community: community.Name,
		Title:     profile.Title,
		Body:      "Full article: " + profile.URL,
		Flair:     community.RequiredFlair(),
		Source:    models.SourceTemplate,
	}
}

// stubChecker passes every draft except the communities listed in blocked.
type stubChecker struct {
	blocked map[string][]string
}

func (c stubChecker) Check(draft *models.DraftPost, community *models.CommunityProfile) (bool, []string) {
	if violations, ok := c.blocked[community.Name]; ok {
		return false, violations
	}
	return true, nil
}

func testProfile() *models.ArticleProfile {
	return &models.ArticleProfile{
		URL:         "https://example.com/python-tutorial",
		Title:       "Getting Started with Python Type Hints",
		Keywords:    []string{"python", "tutorial", "beginner"},
		ContentType: models.ContentTutorial,
		Audience:    models.AudienceBeginner,
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	cat, err := catalog.New([]models.CommunityProfile{
		{Name: "Python", Members: 1200000, Tags: []string{"python"}},
		{Name: "webdev", Members: 850000, Tags: []string{"web development"}},
	})
	require.NoError(t, err)
	return cat
}

func testRecommendations() []models.Recommendation {
	return []models.Recommendation{
		{Community: "Python", Members: 1200000, OverallScore: 0.7},
		{Community: "webdev", Members: 850000, OverallScore: 0.5},
	}
}

func testOptions() Options {
	return Options{
		RetryCount:  3,
		BackoffBase: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		CallTimeout: time.Second,
	}
}

func newTestService(t *testing.T, an Analyzer, tr Transport, checker Checker) *Service {
	return NewService(an, stubRecommender{recs: testRecommendations()}, stubDrafter{}, checker, tr, testCatalog(t), nil, testOptions())
}

func TestService_FullPipelineCompleted(t *testing.T) {
	mockAnalyzer := &MockAnalyzer{}
	mockAnalyzer.On("Analyze", mock.Anything, mock.Anything).Return(testProfile(), nil)

	mockTransport := &MockTransport{}
	mockTransport.On("Submit", mock.Anything, "Python", mock.Anything, mock.Anything, mock.Anything).Return("t3_abc", nil)
	mockTransport.On("Submit", mock.Anything, "webdev", mock.Anything, mock.Anything, mock.Anything).Return("t3_def", nil)

	service := newTestService(t, mockAnalyzer, mockTransport, stubChecker{})

	run, err := service.Execute(context.Background(), "https://example.com/python-tutorial", nil)
	require.NoError(t, err)

	assert.Equal(t, models.StageCompleted, run.Stage)
	assert.Len(t, run.Submissions, 2)
	assert.Equal(t, models.OutcomeSuccess, run.Submissions["Python"].Outcome)
	assert.Equal(t, "t3_abc", run.Submissions["Python"].PostID)
	assert.Equal(t, 1, run.Submissions["Python"].Attempts)
	mockTransport.AssertNumberOfCalls(t, "Submit", 2)
}

func TestService_AnalyzeIsIdempotent(t *testing.T) {
	mockAnalyzer := &MockAnalyzer{}
	mockAnalyzer.On("Analyze", mock.Anything, mock.Anything).Return(testProfile(), nil)

	service := newTestService(t, mockAnalyzer, &MockTransport{}, stubChecker{})
	run := service.NewRun("https://example.com/python-tutorial")

	require.NoError(t, service.Analyze(context.Background(), run.ID))
	require.NoError(t, service.Analyze(context.Background(), run.ID))

	// The article is fetched exactly once, re-entry reuses the profile.
	mockAnalyzer.AssertNumberOfCalls(t, "Analyze", 1)

	current, ok := service.Run(run.ID)
	require.True(t, ok)
	assert.Equal(t, models.StageAnalyzed, current.Stage)
	assert.NotNil(t, current.Profile)
}

func TestService_AnalyzeFetchFailureIsFatal(t *testing.T) {
	fetchErr := &analyzer.FetchError{URL: "https://example.com/gone", Err: errors.New("status 404")}
	mockAnalyzer := &MockAnalyzer{}
	mockAnalyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, fetchErr)

	service := newTestService(t, mockAnalyzer, &MockTransport{}, stubChecker{})
	run := service.NewRun("https://example.com/gone")

	err := service.Analyze(context.Background(), run.ID)
	require.Error(t, err)

	current, _ := service.Run(run.ID)
	assert.Equal(t, models.StageFailed, current.Stage)
	assert.NotEmpty(t, current.FailureReason)

	// A failed run is terminal; the next stage is rejected.
	assert.Error(t, service.Recommend(context.Background(), run.ID))
}

func TestService_SubmitRetriesTransientThenSucceeds(t *testing.T) {
	transient := &reddit.TransientError{Reason: "rate limited"}

	mockTransport := &MockTransport{}
	mockTransport.On("Submit", mock.Anything, "Python", mock.Anything, mock.Anything, mock.Anything).
		Return("", transient).Twice()
	mockTransport.On("Submit", mock.Anything, "Python", mock.Anything, mock.Anything, mock.Anything).
		Return("t3_abc", nil).Once()

	service := newTestService(t, analyzedAnalyzer(), mockTransport, stubChecker{})
	run := driveToChecking(t, service, []string{"Python"})

	require.NoError(t, service.Submit(context.Background(), run.ID))

	current, _ := service.Run(run.ID)
	assert.Equal(t, models.StageCompleted, current.Stage)

	result := current.Submissions["Python"]
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
	mockTransport.AssertNumberOfCalls(t, "Submit", 3)
}

func TestService_SubmitExhaustsRetries(t *testing.T) {
	transient := &reddit.TransientError{Reason: "reddit returned status 503"}

	mockTransport := &MockTransport{}
	mockTransport.On("Submit", mock.Anything, "Python", mock.Anything, mock.Anything, mock.Anything).
		Return("", transient)

	service := newTestService(t, analyzedAnalyzer(), mockTransport, stubChecker{})
	run := driveToChecking(t, service, []string{"Python"})

	require.NoError(t, service.Submit(context.Background(), run.ID))

	current, _ := service.Run(run.ID)
	assert.Equal(t, models.StageFailed, current.Stage)

	result := current.Submissions["Python"]
	assert.Equal(t, models.OutcomeRetriesExhausted, result.Outcome)
	assert.Equal(t, 3, result.Attempts)
	assert.Contains(t, result.Reason, "gave up after 3 attempts")

	// Exactly RetryCount attempts, never more.
	mockTransport.AssertNumberOfCalls(t, "Submit", 3)
}

func TestService_SubmitPermanentFailureIsNotRetried(t *testing.T) {
	permanent := &reddit.PermanentError{Reason: "USER_BANNED"}

	mockTransport := &MockTransport{}
	mockTransport.On("Submit", mock.Anything, "Python", mock.Anything, mock.Anything, mock.Anything).
		Return("", permanent)

	service := newTestService(t, analyzedAnalyzer(), mockTransport, stubChecker{})
	run := driveToChecking(t, service, []string{"Python"})

	require.NoError(t, service.Submit(context.Background(), run.ID))

	current, _ := service.Run(run.ID)
	result := current.Submissions["Python"]
	assert.Equal(t, models.OutcomePermanentFailure, result.Outcome)
	assert.Equal(t, 1, result.Attempts)
	mockTransport.AssertNumberOfCalls(t, "Submit", 1)
}

func TestService_PartialSuccess(t *testing.T) {
	mockTransport := &MockTransport{}
	mockTransport.On("Submit", mock.Anything, "Python", mock.Anything, mock.Anything, mock.Anything).
		Return("t3_abc", nil)
	mockTransport.On("Submit", mock.Anything, "webdev", mock.Anything, mock.Anything, mock.Anything).
		Return("", &reddit.PermanentError{Reason: "SUBREDDIT_NOTALLOWED"})

	service := newTestService(t, analyzedAnalyzer(), mockTransport, stubChecker{})
	run := driveToChecking(t, service, nil)

	require.NoError(t, service.Submit(context.Background(), run.ID))

	current, _ := service.Run(run.ID)
	assert.Equal(t, models.StagePartial, current.Stage)
	assert.Equal(t, models.OutcomeSuccess, current.Submissions["Python"].Outcome)
	assert.Equal(t, models.OutcomePermanentFailure, current.Submissions["webdev"].Outcome)
}

func TestService_MixedOutcomesAcrossThreeCommunities(t *testing.T) {
	cat, err := catalog.New([]models.CommunityProfile{
		{Name: "a", Members: 300}, {Name: "b", Members: 200}, {Name: "c", Members: 100},
	})
	require.NoError(t, err)
	recs := []models.Recommendation{{Community: "a"}, {Community: "b"}, {Community: "c"}}

	mockTransport := &MockTransport{}
	mockTransport.On("Submit", mock.Anything, "a", mock.Anything, mock.Anything, mock.Anything).
		Return("t3_a", nil)
	mockTransport.On("Submit", mock.Anything, "b", mock.Anything, mock.Anything, mock.Anything).
		Return("", &reddit.PermanentError{Reason: "USER_BANNED"})
	mockTransport.On("Submit", mock.Anything, "c", mock.Anything, mock.Anything, mock.Anything).
		Return("", &reddit.TransientError{Reason: "rate limited"}).Once()
	mockTransport.On("Submit", mock.Anything, "c", mock.Anything, mock.Anything, mock.Anything).
		Return("t3_c", nil).Once()

	service := NewService(analyzedAnalyzer(), stubRecommender{recs: recs},
		stubDrafter{}, stubChecker{}, mockTransport, cat, nil, testOptions())
	run := driveToChecking(t, service, nil)

	require.NoError(t, service.Submit(context.Background(), run.ID))

	current, _ := service.Run(run.ID)
	assert.Equal(t, models.StagePartial, current.Stage)
	assert.Equal(t, models.OutcomeSuccess, current.Submissions["a"].Outcome)
	assert.Equal(t, models.OutcomePermanentFailure, current.Submissions["b"].Outcome)

	// Success after a transient retry still counts as success.
	assert.Equal(t, models.OutcomeSuccess, current.Submissions["c"].Outcome)
	assert.Equal(t, 2, current.Submissions["c"].Attempts)
}

func TestService_BlockedDraftsAreNeverSubmitted(t *testing.T) {
	mockTransport := &MockTransport{}

	checker := stubChecker{blocked: map[string][]string{
		"Python": {"title-length"},
		"webdev": {"banned-keywords"},
	}}
	service := newTestService(t, analyzedAnalyzer(), mockTransport, checker)
	run := driveToChecking(t, service, nil)

	require.NoError(t, service.Submit(context.Background(), run.ID))

	current, _ := service.Run(run.ID)
	assert.Equal(t, models.StageFailed, current.Stage)
	assert.Contains(t, current.FailureReason, "blocked by compliance")
	assert.Equal(t, models.OutcomeBlocked, current.Submissions["Python"].Outcome)
	assert.Equal(t, models.OutcomeBlocked, current.Submissions["webdev"].Outcome)
	mockTransport.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CancelStopsNextStage(t *testing.T) {
	service := newTestService(t, analyzedAnalyzer(), &MockTransport{}, stubChecker{})
	run := service.NewRun("https://example.com/python-tutorial")

	require.NoError(t, service.Analyze(context.Background(), run.ID))
	require.NoError(t, service.Cancel(run.ID, "operator abort"))

	err := service.Recommend(context.Background(), run.ID)
	assert.Error(t, err)

	current, _ := service.Run(run.ID)
	assert.Equal(t, models.StageFailed, current.Stage)
	assert.Contains(t, current.FailureReason, "cancelled: operator abort")
}

func TestService_DraftTargetsMustBeRecommended(t *testing.T) {
	service := newTestService(t, analyzedAnalyzer(), &MockTransport{}, stubChecker{})
	run := service.NewRun("https://example.com/python-tutorial")

	require.NoError(t, service.Analyze(context.Background(), run.ID))
	require.NoError(t, service.Recommend(context.Background(), run.ID))

	err := service.DraftAndCheck(context.Background(), run.ID, []string{"entrepreneur"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "was not recommended")
}

func TestService_RedraftReplacesBlockedDraft(t *testing.T) {
	checker := &togglingChecker{failFirst: map[string]bool{"Python": true}}
	service := NewService(analyzedAnalyzer(), stubRecommender{recs: testRecommendations()},
		stubDrafter{}, checker, &MockTransport{}, testCatalog(t), nil, testOptions())

	run := service.NewRun("https://example.com/python-tutorial")
	require.NoError(t, service.Analyze(context.Background(), run.ID))
	require.NoError(t, service.Recommend(context.Background(), run.ID))
	require.NoError(t, service.DraftAndCheck(context.Background(), run.ID, []string{"Python"}))

	current, _ := service.Run(run.ID)
	assert.False(t, current.Drafts["Python"].Passed)

	require.NoError(t, service.Redraft(context.Background(), run.ID, "Python"))

	current, _ = service.Run(run.ID)
	assert.True(t, current.Drafts["Python"].Passed)
	assert.Empty(t, current.Drafts["Python"].Violations)
}

func TestService_SubmitAppendsHistory(t *testing.T) {
	mockTransport := &MockTransport{}
	mockTransport.On("Submit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("t3_abc", nil)

	recorded := &recordingStore{}
	service := NewService(analyzedAnalyzer(), stubRecommender{recs: testRecommendations()},
		stubDrafter{}, stubChecker{}, mockTransport, testCatalog(t), recorded, testOptions())

	run := driveToChecking(t, service, nil)
	require.NoError(t, service.Submit(context.Background(), run.ID))

	assert.Len(t, recorded.records, 2)
	for _, record := range recorded.records {
		assert.Equal(t, run.ID, record.RunID)
		assert.Equal(t, models.OutcomeSuccess, record.Outcome)
	}
}

func TestService_UnknownRun(t *testing.T) {
	service := newTestService(t, &MockAnalyzer{}, &MockTransport{}, stubChecker{})

	assert.Error(t, service.Analyze(context.Background(), "nope"))
	assert.Error(t, service.Cancel("nope", "reason"))
	_, ok := service.Run("nope")
	assert.False(t, ok)
}

// analyzedAnalyzer returns a mock that always yields the test profile.
func analyzedAnalyzer() *MockAnalyzer {
	m := &MockAnalyzer{}
	m.On("Analyze", mock.Anything, mock.Anything).Return(testProfile(), nil)
	return m
}

// driveToChecking walks a fresh run to the CHECKING stage.
func driveToChecking(t *testing.T, service *Service, targets []string) models.WorkflowRun {
	t.Helper()
	run := service.NewRun("https://example.com/python-tutorial")
	require.NoError(t, service.Analyze(context.Background(), run.ID))
	require.NoError(t, service.Recommend(context.Background(), run.ID))
	require.NoError(t, service.DraftAndCheck(context.Background(), run.ID, targets))
	return run
}

// togglingChecker fails a community's first check and passes afterwards.
type togglingChecker struct {
	failFirst map[string]bool
}

func (c *togglingChecker) Check(draft *models.DraftPost, community *models.CommunityProfile) (bool, []string) {
	if c.failFirst[community.Name] {
		c.failFirst[community.Name] = false
		return false, []string{"title-length"}
	}
	return true, nil
}

// recordingStore captures appended history records in memory.
type recordingStore struct {
	records []models.HistoryRecord
}

func (s *recordingStore) Append(_ context.Context, record models.HistoryRecord) error {
	s.records = append(s.records, record)
	return nil
}

func (s *recordingStore) Query(context.Context, history.Filter) ([]models.HistoryRecord, error) {
	return nil, nil
}

func (s *recordingStore) SoftDelete(context.Context, int64) error { return nil }

func (s *recordingStore) Close() error { return nil }
