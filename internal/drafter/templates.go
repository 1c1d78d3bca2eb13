package drafter

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/contentpilot/reddit-autopost/internal/models"
)

// Opening hooks and call-to-action lines used by the template fallback.
// Selection is keyed on the community name so regeneration is
// reproducible.
var openingHooks = []string{
	"Just published a new article:",
	"Thoughts on this topic I just wrote about:",
	"I recently explored this interesting concept:",
	"Here's something I've been thinking about lately:",
	"Wrote about this fascinating topic:",
	"Wanted to share some insights on:",
}

var callToActions = []string{
	"Would love to hear your thoughts!",
	"What's your experience with this?",
	"Curious about your perspective on this.",
	"What do you think about this approach?",
	"Open to discussion and different viewpoints.",
	"Looking forward to the discussion.",
}

// TemplateDrafter produces a deterministic draft without any external
// capability. It never fails.
type TemplateDrafter struct{}

// Draft renders the fallback template for one community.
func (TemplateDrafter) Draft(_ context.Context, profile *models.ArticleProfile, community *models.CommunityProfile) *models.DraftPost {
	seed := templateSeed(community.Name, profile.URL)
	hook := openingHooks[seed%uint32(len(openingHooks))]
	cta := callToActions[seed%uint32(len(callToActions))]

	title := profile.Title
	if title == "" {
		title = "An article worth discussing"
	}
	if len(profile.Keywords) > 0 {
		title = fmt.Sprintf("%s [%s]", title, profile.Keywords[0])
	}

	var b strings.Builder
	b.WriteString(hook)
	b.WriteString("\n\n")
	if profile.Excerpt != "" {
		b.WriteString(profile.Excerpt)
		b.WriteString("\n\n")
	}
	b.WriteString("Full article: ")
	b.WriteString(profile.URL)
	b.WriteString("\n\n")
	b.WriteString(cta)

	return &models.DraftPost{
		Community: community.Name,
		Title:     truncateTitle(title),
		Body:      b.String(),
		Flair:     community.RequiredFlair(),
		Source:    models.SourceTemplate,
	}
}

func templateSeed(community, url string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(community))
	h.Write([]byte(url))
	return h.Sum32()
}

// Reddit caps titles at 300 characters.
const maxTitleLen = 300

func truncateTitle(title string) string {
	if len(title) <= maxTitleLen {
		return title
	}
	return title[:maxTitleLen-3] + "..."
}
