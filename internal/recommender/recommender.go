package recommender

import (
	"fmt"
	"sort"
	"strings"

	"github.com/contentpilot/reddit-autopost/internal/catalog"
	"github.com/contentpilot/reddit-autopost/internal/models"
)

// Match weights for keyword/tag overlap. An exact tag hit counts full, a
// partial (substring) hit counts half.
const (
	exactMatchWeight   = 1.0
	partialMatchWeight = 0.5
	typeAffinityBonus  = 0.33
)

// Compliance scoring: each rule a community enforces lowers the baseline
// likelihood that an arbitrary post satisfies it; an article whose type
// the community historically accepts earns some of it back.
const (
	complianceBaseline = 1.0
	rulePenalty        = 0.08
	complianceFloor    = 0.2
	typeFitBonus       = 0.2
)

// Options tune scoring and truncation.
type Options struct {
	MaxResults       int
	RelevanceFloor   float64
	RelevanceWeight  float64
	ComplianceWeight float64
}

// DefaultOptions mirror the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxResults:       8,
		RelevanceFloor:   0.30,
		RelevanceWeight:  0.6,
		ComplianceWeight: 0.4,
	}
}

// Recommender scores catalog communities against an article profile.
type Recommender struct {
	catalog *catalog.Catalog
	opts    Options
}

// New creates a recommender over a read-only catalog.
func New(cat *catalog.Catalog, opts Options) *Recommender {
	if opts.MaxResults <= 0 {
		opts = DefaultOptions()
	}
	return &Recommender{catalog: cat, opts: opts}
}

// Recommend scores every catalog entry, drops everything below the
// relevance floor, and returns at most MaxResults entries ordered by
// descending overall score. Ordering is fully deterministic: ties break
// on member count, then catalog insertion order. It never fails; an
// empty result just means nothing cleared the floor.
func (r *Recommender) Recommend(profile *models.ArticleProfile) []models.Recommendation {
	recs := make([]models.Recommendation, 0, r.catalog.Len())

	for _, community := range r.catalog.Communities() {
		community := community
		relevance := relevanceScore(profile, &community)
		if relevance < r.opts.RelevanceFloor {
			continue
		}

		compliance := complianceScore(profile, &community)
		overall := r.opts.RelevanceWeight*relevance + r.opts.ComplianceWeight*compliance

		recs = append(recs, models.Recommendation{
			Community:       community.Name,
			Members:         community.Members,
			RelevanceScore:  relevance,
			ComplianceScore: compliance,
			OverallScore:    overall,
			Risk:            riskTier(&community, compliance),
			Rationale:       rationale(&community, profile, relevance),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].OverallScore != recs[j].OverallScore {
			return recs[i].OverallScore > recs[j].OverallScore
		}
		if recs[i].Members != recs[j].Members {
			return recs[i].Members > recs[j].Members
		}
		return r.catalog.Position(recs[i].Community) < r.catalog.Position(recs[j].Community)
	})

	if len(recs) > r.opts.MaxResults {
		recs = recs[:r.opts.MaxResults]
	}
	return recs
}

// relevanceScore measures topical overlap between the article's keywords
// and the community's tags, plus a bonus when the community accepts the
// article's content type. Clamped to [0,1].
func relevanceScore(profile *models.ArticleProfile, community *models.CommunityProfile) float64 {
	if len(profile.Keywords) == 0 {
		return 0
	}

	var matched float64
	for _, keyword := range profile.Keywords {
		matched += matchWeight(keyword, community.Tags)
	}
	score := matched / float64(len(profile.Keywords))

	if score > 0 && len(community.AcceptedTypes) > 0 && community.AcceptsType(profile.ContentType) {
		score += typeAffinityBonus
	}

	return clamp01(score)
}

// matchWeight returns the best match of one keyword against the tag set.
func matchWeight(keyword string, tags []string) float64 {
	keyword = strings.ToLower(keyword)
	best := 0.0
	for _, tag := range tags {
		tag = strings.ToLower(tag)
		switch {
		case keyword == tag:
			return exactMatchWeight
		case strings.Contains(tag, keyword) || strings.Contains(keyword, tag):
			if partialMatchWeight > best {
				best = partialMatchWeight
			}
		}
	}
	return best
}

// complianceScore estimates how likely an arbitrary post is to satisfy
// the community's rule set: stricter rule sets score lower, and a
// content-type fit claws part of it back.
func complianceScore(profile *models.ArticleProfile, community *models.CommunityProfile) float64 {
	score := complianceBaseline - rulePenalty*float64(len(community.Rules))
	if score < complianceFloor {
		score = complianceFloor
	}
	if community.AcceptsType(profile.ContentType) {
		score += typeFitBonus
	}
	return clamp01(score)
}

// riskTier inherits the community's base tier and escalates it when the
// compliance estimate is poor.
func riskTier(community *models.CommunityProfile, compliance float64) models.RiskTier {
	tier := community.BaseRisk
	if tier == "" {
		tier = models.RiskMedium
	}
	if compliance < 0.5 {
		tier = tier.Escalate()
	}
	return tier
}

func rationale(community *models.CommunityProfile, profile *models.ArticleProfile, relevance float64) string {
	topic := "general"
	if len(profile.Keywords) > 0 {
		topic = profile.Keywords[0]
	}
	switch {
	case relevance >= 0.8:
		return fmt.Sprintf("Excellent match for %s content with high community engagement", topic)
	case relevance >= 0.6:
		return fmt.Sprintf("Good fit for %s discussions in r/%s", topic, community.Name)
	default:
		return fmt.Sprintf("Moderate relevance for %s topics", topic)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
