package scheduler

import (
	"context"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/config"
	"github.com/contentpilot/reddit-autopost/internal/history"
	"github.com/contentpilot/reddit-autopost/internal/models"
	"github.com/contentpilot/reddit-autopost/internal/notifications"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service periodically rolls submission history into a digest and sends
// it through the notification channels.
type Service struct {
	config        *config.Config
	store         history.Store
	notifications notifications.NotificationInterface
	cron          *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, store history.Store, n notifications.NotificationInterface) *Service {
	return &Service{
		config:        cfg,
		store:         store,
		notifications: n,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled digests
func (s *Service) Start() error {
	var cronExpression string
	switch s.config.DigestSchedule {
	case "daily":
		// Run daily at 9 AM UTC
		cronExpression = "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM UTC
		cronExpression = "0 0 9 * * MON"
	default:
		cronExpression = "0 0 9 * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled history digest")
		if err := s.SendDigest(context.Background()); err != nil {
			logrus.Errorf("Scheduled digest failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest schedule", s.config.DigestSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

// SendDigest builds and delivers the digest for the configured period.
func (s *Service) SendDigest(ctx context.Context) error {
	window := 24 * time.Hour
	if s.config.DigestSchedule == "weekly" {
		window = 7 * 24 * time.Hour
	}

	records, err := s.store.Query(ctx, history.Filter{From: time.Now().UTC().Add(-window)})
	if err != nil {
		return err
	}

	digest := BuildDigest(s.config.DigestSchedule, records)
	if digest.Total == 0 {
		logrus.Info("No submissions in digest window, skipping notification")
		return nil
	}

	return s.notifications.SendDigest(digest)
}

// BuildDigest aggregates history records into a digest report.
func BuildDigest(period string, records []models.HistoryRecord) *models.DigestReport {
	digest := &models.DigestReport{
		GeneratedAt: time.Now().UTC(),
		Period:      period,
		Total:       len(records),
		ByOutcome:   make(map[models.Outcome]int),
		ByCommunity: make(map[string]int),
		Records:     records,
	}
	for _, rec := range records {
		digest.ByOutcome[rec.Outcome]++
		digest.ByCommunity[rec.Community]++
	}
	return digest
}
