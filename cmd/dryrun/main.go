package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/contentpilot/reddit-autopost/internal/ai"
	"github.com/contentpilot/reddit-autopost/internal/analyzer"
	"github.com/contentpilot/reddit-autopost/internal/catalog"
	"github.com/contentpilot/reddit-autopost/internal/compliance"
	"github.com/contentpilot/reddit-autopost/internal/config"
	"github.com/contentpilot/reddit-autopost/internal/drafter"
	"github.com/contentpilot/reddit-autopost/internal/recommender"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// dryrun walks an article through analysis, recommendation, drafting and
// compliance checking without touching Reddit, and prints everything it
// would have posted.
func main() {
	urlFlag := flag.String("url", "", "article URL to analyze")
	flag.Parse()

	if *urlFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: dryrun -url https://example.com/article")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}
	logrus.SetLevel(logrus.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to load catalog: %v", err)
		}
	}

	generator := ai.NewGroqClient(cfg.GroqEndpoint, cfg.GroqModel, cfg.GroqAPIKey, cfg.CallTimeout)
	fetcher := analyzer.NewHTTPFetcher(cfg.CallTimeout, cfg.AllowedDomains)
	an := analyzer.New(fetcher, generator)
	rec := recommender.New(cat, recommender.Options{
		MaxResults:       cfg.MaxRecommendations,
		RelevanceFloor:   cfg.RelevanceFloor,
		RelevanceWeight:  cfg.RelevanceWeight,
		ComplianceWeight: cfg.ComplianceWeight,
	})
	dr := drafter.New(generator)
	checker := compliance.New(cfg.AccountAgeDays)

	ctx := context.Background()

	fmt.Printf("Analyzing %s ...\n\n", *urlFlag)
	profile, err := an.Analyze(ctx, *urlFlag)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	fmt.Printf("Title:        %s\n", profile.Title)
	fmt.Printf("Content type: %s\n", profile.ContentType)
	fmt.Printf("Audience:     %s\n", profile.Audience)
	fmt.Printf("Keywords:     %s\n\n", strings.Join(profile.Keywords, ", "))

	recommendations := rec.Recommend(profile)
	if len(recommendations) == 0 {
		fmt.Println("No communities cleared the relevance floor.")
		return
	}

	fmt.Printf("%d recommended communities:\n", len(recommendations))
	for i, r := range recommendations {
		fmt.Printf("%2d. r/%-18s overall=%.2f relevance=%.2f compliance=%.2f risk=%s\n",
			i+1, r.Community, r.OverallScore, r.RelevanceScore, r.ComplianceScore, r.Risk)
		fmt.Printf("    %s\n", r.Rationale)
	}
	fmt.Println()

	for _, r := range recommendations {
		community, ok := cat.Get(r.Community)
		if !ok {
			continue
		}

		draft := dr.Draft(ctx, profile, community)
		passed, violations := checker.Check(draft, community)

		fmt.Printf("--- r/%s (%s) ---\n", community.Name, draft.Source)
		fmt.Printf("Title: %s\n", draft.Title)
		if draft.Flair != "" {
			fmt.Printf("Flair: %s\n", draft.Flair)
		}
		fmt.Printf("\n%s\n\n", draft.Body)
		if passed {
			fmt.Println("Compliance: PASSED")
		} else {
			fmt.Println("Compliance: BLOCKED")
			for _, v := range violations {
				fmt.Printf("  - %s\n", v)
			}
		}
		fmt.Println()
	}
}
