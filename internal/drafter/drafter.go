package drafter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/contentpilot/reddit-autopost/internal/ai"
	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	draftMaxTokens   = 1000
	draftTemperature = 0.7
)

// Drafter generates a title+body tailored to one community. The AI
// capability is tried first; any failure silently degrades to the
// deterministic template.
type Drafter struct {
	generator ai.Generator // may be nil
	fallback  TemplateDrafter
}

// New creates a drafter. generator may be nil to force template output.
func New(generator ai.Generator) *Drafter {
	return &Drafter{generator: generator}
}

// Draft produces a fresh DraftPost for the community. It never fails:
// when the AI capability is unavailable or returns garbage the template
// fallback is used instead.
func (d *Drafter) Draft(ctx context.Context, profile *models.ArticleProfile, community *models.CommunityProfile) *models.DraftPost {
	if d.generator != nil && d.generator.IsEnabled() {
		if draft, err := d.aiDraft(ctx, profile, community); err == nil {
			return draft
		} else {
			logrus.Debugf("AI drafting for r/%s fell back to template: %v", community.Name, err)
		}
	}
	return d.fallback.Draft(ctx, profile, community)
}

func (d *Drafter) aiDraft(ctx context.Context, profile *models.ArticleProfile, community *models.CommunityProfile) (*models.DraftPost, error) {
	text, err := d.generator.Generate(ctx, buildPrompt(profile, community), draftMaxTokens, draftTemperature)
	if err != nil {
		return nil, err
	}

	title, body, err := parseResponse(text)
	if err != nil {
		return nil, err
	}

	return &models.DraftPost{
		Community: community.Name,
		Title:     truncateTitle(title),
		Body:      body,
		Flair:     community.RequiredFlair(),
		Source:    models.SourceAI,
	}, nil
}

func buildPrompt(profile *models.ArticleProfile, community *models.CommunityProfile) string {
	var rules []string
	for _, rule := range community.Rules {
		rules = append(rules, string(rule.Kind))
	}

	return fmt.Sprintf(`Create a Reddit post for r/%s about this article: %s

Article analysis:
- Title: %s
- Content type: %s
- Audience: %s
- Key topics: %s

Community guidelines: %s
Rules in effect: %s

Make the post valuable to the community, discussion-focused and not
promotional. Follow all rules strictly.

Respond exactly in this format:
TITLE: [engaging, rule-compliant title under 300 characters]
BODY: [discussion post that follows the guidelines]`,
		community.Name,
		profile.URL,
		profile.Title,
		profile.ContentType,
		profile.Audience,
		strings.Join(profile.Keywords, ", "),
		community.Guidelines,
		strings.Join(rules, ", "),
	)
}

var (
	titleExpr = regexp.MustCompile(`(?m)^TITLE:\s*(.+)$`)
	bodyExpr  = regexp.MustCompile(`(?s)BODY:\s*(.+)$`)
)

func parseResponse(text string) (title, body string, err error) {
	titleMatch := titleExpr.FindStringSubmatch(text)
	bodyMatch := bodyExpr.FindStringSubmatch(text)
	if titleMatch == nil || bodyMatch == nil {
		return "", "", fmt.Errorf("response missing TITLE/BODY markers")
	}

	title = strings.TrimSpace(titleMatch[1])
	body = strings.TrimSpace(bodyMatch[1])
	if title == "" || body == "" {
		return "", "", fmt.Errorf("empty title or body in response")
	}
	return title, body, nil
}
