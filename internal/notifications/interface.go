package notifications

import "github.com/contentpilot/reddit-autopost/internal/models"

// NotificationInterface defines the contract for notification services
type NotificationInterface interface {
	SendRunReport(report *models.RunReport) error
	SendDigest(digest *models.DigestReport) error
}
