package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/ai"
	"github.com/contentpilot/reddit-autopost/internal/analyzer"
	"github.com/contentpilot/reddit-autopost/internal/catalog"
	"github.com/contentpilot/reddit-autopost/internal/compliance"
	"github.com/contentpilot/reddit-autopost/internal/config"
	"github.com/contentpilot/reddit-autopost/internal/drafter"
	"github.com/contentpilot/reddit-autopost/internal/history"
	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/contentpilot/reddit-autopost/internal/notifications"
	"github.com/contentpilot/reddit-autopost/internal/recommender"
	"github.com/contentpilot/reddit-autopost/internal/reddit"
	"github.com/contentpilot/reddit-autopost/internal/scheduler"
	"github.com/contentpilot/reddit-autopost/internal/workflow"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Reddit Autopost Bot")

	// Community catalog: file when configured, built-in otherwise
	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.LoadFile(cfg.CatalogPath)
		if err != nil {
			logrus.Fatalf("Failed to load catalog: %v", err)
		}
		logrus.Infof("Loaded %d communities from %s", cat.Len(), cfg.CatalogPath)
	}

	// History store
	store, err := history.NewSQLiteStore(cfg.HistoryDBPath)
	if err != nil {
		logrus.Fatalf("Failed to open history store: %v", err)
	}
	defer store.Close()

	// AI capability, shared by the analyzer and the drafter
	generator := ai.NewGroqClient(cfg.GroqEndpoint, cfg.GroqModel, cfg.GroqAPIKey, cfg.CallTimeout)
	if !generator.IsEnabled() {
		logrus.Info("Groq credentials missing, drafting will use the template fallback")
	}

	// Pipeline components
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
	transport := reddit.NewClient(cfg.RedditClientID, cfg.RedditClientSecret,
		cfg.RedditUsername, cfg.RedditPassword, cfg.RedditUserAgent, cfg.CallTimeout)
	if !transport.IsEnabled() {
		logrus.Warn("Reddit credentials missing, submissions will fail permanently")
	}

	svc := workflow.NewService(an, rec, dr, checker, transport, cat, store, workflow.Options{
		RetryCount:  cfg.RetryCount,
		BackoffBase: cfg.BackoffBase,
		CallTimeout: cfg.CallTimeout,
	})

	notificationService := notifications.NewService(cfg)

	// Digest scheduler
	schedulerService := scheduler.NewService(cfg, store, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// HTTP API
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/api/runs", createRunHandler(svc, notificationService)).Methods("POST")
	router.HandleFunc("/api/runs", listRunsHandler(svc)).Methods("GET")
	router.HandleFunc("/api/runs/{id}", getRunHandler(svc)).Methods("GET")
	router.HandleFunc("/api/runs/{id}/cancel", cancelRunHandler(svc)).Methods("POST")
	router.HandleFunc("/api/history", historyHandler(store)).Methods("GET")
	router.HandleFunc("/api/history/export", historyExportHandler(store)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

type createRunRequest struct {
	URL         string   `json:"url"`
	Communities []string `json:"communities,omitempty"`
}

func createRunHandler(svc *workflow.Service, n notifications.NotificationInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"url\": ...}"})
			return
		}

		run := svc.NewRun(req.URL)

		go func() {
			ctx := context.Background()
			if err := svc.Analyze(ctx, run.ID); err != nil {
				logrus.Errorf("Run %s analyze failed: %v", run.ID, err)
				return
			}
			if err := svc.Recommend(ctx, run.ID); err != nil {
				logrus.Errorf("Run %s recommend failed: %v", run.ID, err)
				return
			}
			if err := svc.DraftAndCheck(ctx, run.ID, req.Communities); err != nil {
				logrus.Errorf("Run %s draft failed: %v", run.ID, err)
				return
			}
			if err := svc.Submit(ctx, run.ID); err != nil {
				logrus.Errorf("Run %s submit failed: %v", run.ID, err)
				return
			}

			final, ok := svc.Run(run.ID)
			if !ok {
				return
			}
			report := &models.RunReport{
				RunID:       final.ID,
				ArticleURL:  final.ArticleURL,
				Stage:       final.Stage,
				GeneratedAt: time.Now().UTC(),
			}
			for _, sub := range final.Submissions {
				report.Submissions = append(report.Submissions, sub)
			}
			if err := n.SendRunReport(report); err != nil {
				logrus.Errorf("Run %s report delivery failed: %v", run.ID, err)
			}
		}()

		writeJSON(w, http.StatusAccepted, run)
	}
}

func listRunsHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Runs())
	}
}

func getRunHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, ok := svc.Run(mux.Vars(r)["id"])
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown run"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	}
}

func cancelRunHandler(svc *workflow.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		reason := r.URL.Query().Get("reason")
		if reason == "" {
			reason = "cancelled via API"
		}
		if err := svc.Cancel(id, reason); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
	}
}

func historyHandler(store history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := historyFilter(r)
		filter.Limit = 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				filter.Limit = parsed
			}
		}

		records, err := store.Query(r.Context(), filter)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func historyExportHandler(store history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := store.Query(r.Context(), historyFilter(r))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
		if err := history.WriteCSV(w, records); err != nil {
			logrus.Errorf("Failed to export history: %v", err)
		}
	}
}

func historyFilter(r *http.Request) history.Filter {
	filter := history.Filter{
		RunID:     r.URL.Query().Get("run_id"),
		Community: r.URL.Query().Get("community"),
		Outcome:   models.Outcome(r.URL.Query().Get("outcome")),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = parsed
		}
	}
	return filter
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}
