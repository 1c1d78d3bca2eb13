package compliance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/contentpilot/reddit-autopost/internal/models"
)

// Checker validates drafted posts against community rule sets. It is a
// pure evaluator: no side effects and no mutation of inputs.
type Checker struct {
	// AccountAgeDays is the age of the posting account, evaluated by
	// min-account-age rules. Zero means unknown and fails those rules.
	AccountAgeDays int
}

// New creates a checker for the given posting account age.
func New(accountAgeDays int) *Checker {
	return &Checker{AccountAgeDays: accountAgeDays}
}

// Check evaluates every rule in the community's rule set against the
// draft. All rules are evaluated even after the first failure so the
// violations list is exhaustive, in rule-set order.
func (c *Checker) Check(draft *models.DraftPost, community *models.CommunityProfile) (bool, []string) {
	var violations []string

	for _, rule := range community.Rules {
		if code := c.evaluate(rule, draft); code != "" {
			violations = append(violations, code)
		}
	}

	return len(violations) == 0, violations
}

// evaluate returns the violation code for one failed rule, or "" when
// the rule passes. The switch is exhaustive over RuleKind.
func (c *Checker) evaluate(rule models.Rule, draft *models.DraftPost) string {
	switch rule.Kind {
	case models.RuleTitleLength:
		if !withinBounds(len(draft.Title), rule.MinLen, rule.MaxLen) {
			return string(models.RuleTitleLength)
		}

	case models.RuleBodyLength:
		if !withinBounds(len(draft.Body), rule.MinLen, rule.MaxLen) {
			return string(models.RuleBodyLength)
		}

	case models.RuleBannedKeywords:
		content := strings.ToLower(draft.Title + " " + draft.Body)
		for _, banned := range rule.Keywords {
			if strings.Contains(content, strings.ToLower(banned)) {
				return string(models.RuleBannedKeywords)
			}
		}

	case models.RuleRequiredFlair:
		if rule.Flair != "" && draft.Flair != rule.Flair {
			return string(models.RuleRequiredFlair)
		}

	case models.RuleMaxSelfPromoRatio:
		if selfPromotionRatio(draft.Body) > rule.MaxRatio {
			return string(models.RuleMaxSelfPromoRatio)
		}

	case models.RuleMinAccountAge:
		if c.AccountAgeDays < rule.MinDays {
			return string(models.RuleMinAccountAge)
		}

	default:
		// Unknown rule kinds fail closed so a misconfigured catalog
		// cannot silently wave posts through.
		return fmt.Sprintf("unknown-rule:%s", rule.Kind)
	}

	return ""
}

func withinBounds(length, min, max int) bool {
	if min > 0 && length < min {
		return false
	}
	if max > 0 && length > max {
		return false
	}
	return true
}

var linkExpr = regexp.MustCompile(`https?://[^\s)\]]+`)
var sentenceExpr = regexp.MustCompile(`[.!?]+(\s|$)`)

// selfPromotionRatio estimates how promotional a body is: linked-domain
// mentions over total sentence count.
func selfPromotionRatio(body string) float64 {
	links := len(linkExpr.FindAllString(body, -1))
	if links == 0 {
		return 0
	}

	sentences := len(sentenceExpr.FindAllString(body, -1))
	if sentences == 0 {
		sentences = 1
	}

	return float64(links) / float64(sentences)
}
