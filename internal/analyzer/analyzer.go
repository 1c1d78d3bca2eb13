package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/contentpilot/reddit-autopost/internal/ai"
	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/sirupsen/logrus"
)

const excerptLimit = 500

// Analyzer turns an article URL into an ArticleProfile.
type Analyzer struct {
	fetcher   Fetcher
	generator ai.Generator // optional; nil disables AI classification
}

// New creates an analyzer. generator may be nil, in which case the
// rule-based classifier is always used.
func New(fetcher Fetcher, generator ai.Generator) *Analyzer {
	return &Analyzer{fetcher: fetcher, generator: generator}
}

// Analyze fetches and parses the article, extracts keywords and
// classifies content type and audience level. It fails with FetchError
// or ParseError only; AI classification problems degrade to the
// heuristic fallback and never surface.
func (a *Analyzer) Analyze(ctx context.Context, articleURL string) (*models.ArticleProfile, error) {
	raw, err := a.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return nil, err
	}

	title, body, err := extractText(articleURL, raw)
	if err != nil {
		return nil, err
	}

	profile := &models.ArticleProfile{
		URL:      articleURL,
		Title:    title,
		Excerpt:  excerpt(body),
		Keywords: extractKeywords(title, body),
	}

	contentType, audience, fromAI := a.classify(ctx, title, body, profile.Keywords)
	profile.ContentType = contentType
	profile.Audience = audience
	profile.AIClassified = fromAI

	logrus.Debugf("Analyzed %s: type=%s audience=%s keywords=%v", articleURL, contentType, audience, profile.Keywords)
	return profile, nil
}

// extractText pulls the title and readable text out of an HTML payload.
func extractText(articleURL, raw string) (title, body string, err error) {
	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if parseErr != nil {
		return "", "", &ParseError{URL: articleURL, Reason: parseErr.Error()}
	}

	doc.Find("script, style, nav, footer, noscript").Remove()

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if og, exists := doc.Find(`meta[property="og:title"]`).Attr("content"); exists && og != "" {
		title = strings.TrimSpace(og)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	var parts []string
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	body = strings.Join(parts, "\n")
	if body == "" {
		body = strings.TrimSpace(doc.Find("body").Text())
	}

	if strings.TrimSpace(title+body) == "" {
		return "", "", &ParseError{URL: articleURL, Reason: "no extractable text"}
	}
	return title, body, nil
}

func excerpt(body string) string {
	flattened := strings.Join(strings.Fields(body), " ")
	if len(flattened) <= excerptLimit {
		return flattened
	}
	return flattened[:excerptLimit]
}

// classify prefers the AI capability when available and falls back to
// the keyword/heading heuristic on any failure.
func (a *Analyzer) classify(ctx context.Context, title, body string, keywords []string) (models.ContentType, models.AudienceLevel, bool) {
	if a.generator != nil && a.generator.IsEnabled() {
		if contentType, audience, err := a.aiClassify(ctx, title, keywords); err == nil {
			return contentType, audience, true
		} else {
			logrus.Debugf("AI classification unavailable, using heuristic: %v", err)
		}
	}
	contentType, audience := heuristicClassify(title, body)
	return contentType, audience, false
}

type aiClassification struct {
	ContentType string `json:"content_type"`
	Audience    string `json:"audience"`
}

func (a *Analyzer) aiClassify(ctx context.Context, title string, keywords []string) (models.ContentType, models.AudienceLevel, error) {
	prompt := fmt.Sprintf(`Classify this article.

Title: %s
Keywords: %s

Respond with JSON only:
{"content_type": "tutorial|opinion|case-study|news|other", "audience": "beginner|intermediate|professional"}`,
		title, strings.Join(keywords, ", "))

	text, err := a.generator.Generate(ctx, prompt, 200, 0.2)
	if err != nil {
		return "", "", err
	}

	var parsed aiClassification
	if err := json.Unmarshal([]byte(extractJSON(text)), &parsed); err != nil {
		return "", "", fmt.Errorf("unparseable classification: %w", err)
	}

	contentType, ok := validContentType(parsed.ContentType)
	if !ok {
		return "", "", fmt.Errorf("unknown content type %q", parsed.ContentType)
	}
	audience, ok := validAudience(parsed.Audience)
	if !ok {
		return "", "", fmt.Errorf("unknown audience %q", parsed.Audience)
	}
	return contentType, audience, nil
}

// extractJSON strips prose an LLM may wrap around a JSON object.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func validContentType(s string) (models.ContentType, bool) {
	switch models.ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case models.ContentTutorial:
		return models.ContentTutorial, true
	case models.ContentOpinion:
		return models.ContentOpinion, true
	case models.ContentCaseStudy:
		return models.ContentCaseStudy, true
	case models.ContentNews:
		return models.ContentNews, true
	case models.ContentOther:
		return models.ContentOther, true
	}
	return "", false
}

func validAudience(s string) (models.AudienceLevel, bool) {
	switch models.AudienceLevel(strings.ToLower(strings.TrimSpace(s))) {
	case models.AudienceBeginner:
		return models.AudienceBeginner, true
	case models.AudienceIntermediate:
		return models.AudienceIntermediate, true
	case models.AudienceProfessional:
		return models.AudienceProfessional, true
	}
	return "", false
}

// heuristicClassify is the deterministic fallback. It never fails.
func heuristicClassify(title, body string) (models.ContentType, models.AudienceLevel) {
	content := strings.ToLower(title + " " + body)

	contentType := models.ContentOther
	switch {
	case containsAny(content, "how to", "tutorial", "step by step", "step-by-step", "guide to", "getting started"):
		contentType = models.ContentTutorial
	case containsAny(content, "case study", "we built", "lessons learned", "postmortem", "how we"):
		contentType = models.ContentCaseStudy
	case containsAny(content, "announcing", "released", "launches", "launched", "now available", "this week"):
		contentType = models.ContentNews
	case containsAny(content, "opinion", "i think", "i believe", "why you should", "hot take", "my take"):
		contentType = models.ContentOpinion
	}

	audience := models.AudienceIntermediate
	switch {
	case containsAny(content, "beginner", "introduction", "intro to", "getting started", "from scratch", "basics"):
		audience = models.AudienceBeginner
	case containsAny(content, "advanced", "deep dive", "internals", "at scale", "production", "performance tuning"):
		audience = models.AudienceProfessional
	}

	return contentType, audience
}

func containsAny(content string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(content, needle) {
			return true
		}
	}
	return false
}
