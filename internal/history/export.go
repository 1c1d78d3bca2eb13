package history

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/models"
)

var csvHeader = []string{
	"id", "run_id", "article_url", "community", "title",
	"outcome", "post_id", "reason", "attempts", "created_at",
}

// WriteCSV streams history records as CSV, header first.
func WriteCSV(w io.Writer, records []models.HistoryRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.RunID,
			r.ArticleURL,
			r.Community,
			r.Title,
			string(r.Outcome),
			r.PostID,
			r.Reason,
			strconv.Itoa(r.Attempts),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
