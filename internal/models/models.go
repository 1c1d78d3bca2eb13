package models

import "time"

// ContentType classifies what kind of article was analyzed.
type ContentType string

const (
	ContentTutorial  ContentType = "tutorial"
	ContentOpinion   ContentType = "opinion"
	ContentCaseStudy ContentType = "case-study"
	ContentNews      ContentType = "news"
	ContentOther     ContentType = "other"
)

// AudienceLevel classifies who the article is written for.
type AudienceLevel string

const (
	AudienceBeginner     AudienceLevel = "beginner"
	AudienceIntermediate AudienceLevel = "intermediate"
	AudienceProfessional AudienceLevel = "professional"
)

// ArticleProfile is the analyzed form of one article URL. Immutable once
// produced; owned by the workflow run that created it.
type ArticleProfile struct {
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Excerpt      string        `json:"excerpt"`
	Keywords     []string      `json:"keywords"` // relevance-ranked, at most 10
	ContentType  ContentType   `json:"content_type"`
	Audience     AudienceLevel `json:"audience"`
	AIClassified bool          `json:"ai_classified"` // false when the heuristic fallback classified
}

// RiskTier is a coarse classification of how likely a post is to be
// removed or penalized in a community.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Escalate returns the next-worse tier.
func (r RiskTier) Escalate() RiskTier {
	switch r {
	case RiskLow:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RuleKind enumerates the rule predicate variants a community may carry.
type RuleKind string

const (
	RuleTitleLength       RuleKind = "title-length"
	RuleBodyLength        RuleKind = "body-length"
	RuleBannedKeywords    RuleKind = "banned-keywords"
	RuleRequiredFlair     RuleKind = "required-flair"
	RuleMaxSelfPromoRatio RuleKind = "max-self-promotion-ratio"
	RuleMinAccountAge     RuleKind = "min-account-age"
)

// Rule is one posting rule predicate. Only the fields relevant to its
// Kind are populated.
type Rule struct {
	Kind     RuleKind `yaml:"kind" json:"kind"`
	MinLen   int      `yaml:"min_len,omitempty" json:"min_len,omitempty"`
	MaxLen   int      `yaml:"max_len,omitempty" json:"max_len,omitempty"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Flair    string   `yaml:"flair,omitempty" json:"flair,omitempty"`
	MaxRatio float64  `yaml:"max_ratio,omitempty" json:"max_ratio,omitempty"`
	MinDays  int      `yaml:"min_days,omitempty" json:"min_days,omitempty"`
}

// CommunityProfile is one catalog entry. Static for the process lifetime
// and shared read-only across runs.
type CommunityProfile struct {
	Name          string        `yaml:"name" json:"name"`
	Members       int           `yaml:"members" json:"members"`
	Tags          []string      `yaml:"tags" json:"tags"`
	AcceptedTypes []ContentType `yaml:"accepted_types" json:"accepted_types"`
	Rules         []Rule        `yaml:"rules" json:"rules"`
	BaseRisk      RiskTier      `yaml:"base_risk" json:"base_risk"`
	Guidelines    string        `yaml:"guidelines,omitempty" json:"guidelines,omitempty"`
}

// RequiredFlair returns the flair demanded by the community's rule set,
// or "" when none is required.
func (c *CommunityProfile) RequiredFlair() string {
	for _, rule := range c.Rules {
		if rule.Kind == RuleRequiredFlair {
			return rule.Flair
		}
	}
	return ""
}

// AcceptsType reports whether the community's accepted content types
// include the given one. An empty list accepts everything.
func (c *CommunityProfile) AcceptsType(t ContentType) bool {
	if len(c.AcceptedTypes) == 0 {
		return true
	}
	for _, accepted := range c.AcceptedTypes {
		if accepted == t {
			return true
		}
	}
	return false
}

// Recommendation pairs an article with one candidate community.
type Recommendation struct {
	Community       string   `json:"community"`
	Members         int      `json:"members"`
	RelevanceScore  float64  `json:"relevance_score"`
	ComplianceScore float64  `json:"compliance_score"`
	OverallScore    float64  `json:"overall_score"`
	Risk            RiskTier `json:"risk"`
	Rationale       string   `json:"rationale"`
}

// GenerationSource tells how a draft was produced.
type GenerationSource string

const (
	SourceAI       GenerationSource = "ai-generated"
	SourceTemplate GenerationSource = "template-fallback"
)

// DraftPost is a generated post for exactly one recommendation.
// Regeneration replaces the whole value, it never patches fields.
type DraftPost struct {
	Community  string           `json:"community"`
	Title      string           `json:"title"`
	Body       string           `json:"body"`
	Flair      string           `json:"flair,omitempty"`
	Source     GenerationSource `json:"source"`
	Passed     bool             `json:"passed"`
	Violations []string         `json:"violations,omitempty"`
}

// Stage is the workflow state machine position.
type Stage string

const (
	StageCreated      Stage = "CREATED"
	StageAnalyzing    Stage = "ANALYZING"
	StageAnalyzed     Stage = "ANALYZED"
	StageRecommending Stage = "RECOMMENDING"
	StageRecommended  Stage = "RECOMMENDED"
	StageDrafting     Stage = "DRAFTING"
	StageChecking     Stage = "CHECKING"
	StageSubmitting   Stage = "SUBMITTING"
	StageCompleted    Stage = "COMPLETED"
	StagePartial      Stage = "PARTIAL"
	StageFailed       Stage = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StagePartial || s == StageFailed
}

// Outcome is the terminal result for one targeted community.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomePermanentFailure Outcome = "permanent-failure"
	OutcomeRetriesExhausted Outcome = "retries-exhausted"
	OutcomeBlocked          Outcome = "blocked" // compliance check failed, never submitted
)

// SubmissionResult records what happened when posting to one community.
type SubmissionResult struct {
	Community  string    `json:"community"`
	Outcome    Outcome   `json:"outcome"`
	PostID     string    `json:"post_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Attempts   int       `json:"attempts"`
	FinishedAt time.Time `json:"finished_at"`
}

// Succeeded reports whether this community ended in a posted submission.
func (s SubmissionResult) Succeeded() bool {
	return s.Outcome == OutcomeSuccess
}

// WorkflowRun is the unit of orchestration. Mutated exclusively by the
// workflow service.
type WorkflowRun struct {
	ID              string                      `json:"id"`
	ArticleURL      string                      `json:"article_url"`
	Stage           Stage                       `json:"stage"`
	Profile         *ArticleProfile             `json:"profile,omitempty"`
	Recommendations []Recommendation            `json:"recommendations,omitempty"`
	Drafts          map[string]*DraftPost       `json:"drafts,omitempty"`
	Submissions     map[string]SubmissionResult `json:"submissions,omitempty"`
	FailureReason   string                      `json:"failure_reason,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// HistoryRecord is the persisted projection of one submission attempt.
// Append-only; never mutated after write except soft delete.
type HistoryRecord struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	ArticleURL string    `json:"article_url"`
	Community  string    `json:"community"`
	Title      string    `json:"title"`
	Outcome    Outcome   `json:"outcome"`
	PostID     string    `json:"post_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
}

// RunReport is a run summary handed to the notification channels.
type RunReport struct {
	RunID       string             `json:"run_id"`
	ArticleURL  string             `json:"article_url"`
	Stage       Stage              `json:"stage"`
	GeneratedAt time.Time          `json:"generated_at"`
	Submissions []SubmissionResult `json:"submissions"`
}

// DigestReport is a periodic roll-up of history records.
type DigestReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Period      string          `json:"period"`
	Total       int             `json:"total"`
	ByOutcome   map[Outcome]int `json:"by_outcome"`
	ByCommunity map[string]int  `json:"by_community"`
	Records     []HistoryRecord `json:"records"`
}
