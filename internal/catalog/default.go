package catalog

import "github.com/contentpilot/reddit-autopost/internal/models"

// Default returns the built-in community registry used when no catalog
// file is configured. Subscriber counts are rough and only matter for
// ordering ties.
func Default() *Catalog {
	c, err := New(defaultCommunities())
	if err != nil {
		// The built-in list is validated by tests; a duplicate here is a
		// programming error.
		panic(err)
	}
	return c
}

func defaultCommunities() []models.CommunityProfile {
	return []models.CommunityProfile{
		{
			Name:          "programming",
			Members:       6778000,
			Tags:          []string{"programming", "coding", "development", "software"},
			AcceptedTypes: []models.ContentType{models.ContentTutorial, models.ContentOpinion, models.ContentNews},
			BaseRisk:      models.RiskMedium,
			Guidelines:    "Focus on programming concepts, avoid direct promotion",
			Rules: []models.Rule{
				{Kind: models.RuleTitleLength, MinLen: 15, MaxLen: 300},
				{Kind: models.RuleBannedKeywords, Keywords: []string{"check out my", "subscribe", "discount"}},
				{Kind: models.RuleMaxSelfPromoRatio, MaxRatio: 0.2},
			},
		},
		{
			Name:          "Python",
			Members:       1200000,
			Tags:          []string{"python", "programming", "data science", "machine learning"},
			AcceptedTypes: []models.ContentType{models.ContentTutorial, models.ContentCaseStudy},
			BaseRisk:      models.RiskLow,
			Guidelines:    "Python-focused, educational content preferred",
			Rules: []models.Rule{
				{Kind: models.RuleTitleLength, MinLen: 10, MaxLen: 300},
				{Kind: models.RuleBodyLength, MinLen: 80, MaxLen: 40000},
				{Kind: models.RuleBannedKeywords, Keywords: []string{"upvote", "follow me"}},
			},
		},
		{
			Name:          "MachineLearning",
			Members:       2800000,
			Tags:          []string{"machine learning", "ai", "data science", "research"},
			AcceptedTypes: []models.ContentType{models.ContentCaseStudy, models.ContentNews},
			BaseRisk:      models.RiskMedium,
			Guidelines:    "Academic approach, research-backed content",
			Rules: []models.Rule{
				{Kind: models.RuleRequiredFlair, Flair: "Discussion"},
				{Kind: models.RuleTitleLength, MinLen: 20, MaxLen: 300},
				{Kind: models.RuleMaxSelfPromoRatio, MaxRatio: 0.15},
				{Kind: models.RuleMinAccountAge, MinDays: 30},
			},
		},
		{
			Name:          "webdev",
			Members:       850000,
			Tags:          []string{"web development", "javascript", "react", "frontend", "backend"},
			AcceptedTypes: []models.ContentType{models.ContentTutorial, models.ContentCaseStudy, models.ContentOpinion},
			BaseRisk:      models.RiskLow,
			Guidelines:    "Practical web development content",
			Rules: []models.Rule{
				{Kind: models.RuleTitleLength, MinLen: 10, MaxLen: 300},
				{Kind: models.RuleBannedKeywords, Keywords: []string{"hire me", "freelance available"}},
			},
		},
		{
			Name:          "entrepreneur",
			Members:       1100000,
			Tags:          []string{"business", "startup", "entrepreneurship", "marketing"},
			AcceptedTypes: []models.ContentType{models.ContentCaseStudy, models.ContentOpinion},
			BaseRisk:      models.RiskHigh,
			Guidelines:    "Business insights, avoid promotional content",
			Rules: []models.Rule{
				{Kind: models.RuleTitleLength, MinLen: 15, MaxLen: 300},
				{Kind: models.RuleBodyLength, MinLen: 200, MaxLen: 40000},
				{Kind: models.RuleBannedKeywords, Keywords: []string{"buy now", "limited offer", "dm me"}},
				{Kind: models.RuleMaxSelfPromoRatio, MaxRatio: 0.1},
			},
		},
		{
			Name:          "datascience",
			Members:       650000,
			Tags:          []string{"data science", "analytics", "statistics", "visualization"},
			AcceptedTypes: []models.ContentType{models.ContentTutorial, models.ContentCaseStudy},
			BaseRisk:      models.RiskLow,
			Guidelines:    "Technical data science content with examples",
			Rules: []models.Rule{
				{Kind: models.RuleTitleLength, MinLen: 10, MaxLen: 300},
				{Kind: models.RuleMaxSelfPromoRatio, MaxRatio: 0.25},
			},
		},
	}
}
