package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/contentpilot/reddit-autopost/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Writes are serialized per run so one run's records land in order,
	// while different runs may interleave freely.
	mu      sync.Mutex
	runLock map[string]*sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	article_url TEXT NOT NULL,
	community TEXT NOT NULL,
	title TEXT NOT NULL,
	outcome TEXT NOT NULL,
	post_id TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	attempts INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_submissions_run ON submissions(run_id);
CREATE INDEX IF NOT EXISTS idx_submissions_community ON submissions(community);
CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);
`

// NewSQLiteStore opens (and if needed initializes) the database at path.
// The caller should Close the store when done.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{
		db:      db,
		runLock: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) lockForRun(runID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, ok := s.runLock[runID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.runLock[runID] = lock
	return lock
}

// Append inserts one submission-attempt record.
func (s *SQLiteStore) Append(ctx context.Context, record models.HistoryRecord) error {
	lock := s.lockForRun(record.RunID)
	lock.Lock()
	defer lock.Unlock()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (run_id, article_url, community, title, outcome, post_id, reason, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.ArticleURL,
		record.Community,
		record.Title,
		string(record.Outcome),
		record.PostID,
		record.Reason,
		record.Attempts,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

// Query returns records matching the filter, newest first.
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]models.HistoryRecord, error) {
	var (
		conds = []string{"deleted = 0"}
		args  []any
	)

	if filter.RunID != "" {
		conds = append(conds, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Community != "" {
		conds = append(conds, "community = ?")
		args = append(args, filter.Community)
	}
	if filter.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, filter.To)
	}

	query := fmt.Sprintf(
		"SELECT id, run_id, article_url, community, title, outcome, post_id, reason, attempts, created_at FROM submissions WHERE %s ORDER BY created_at DESC, id DESC",
		strings.Join(conds, " AND "),
	)
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []models.HistoryRecord
	for rows.Next() {
		var r models.HistoryRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.RunID, &r.ArticleURL, &r.Community, &r.Title, &outcome, &r.PostID, &r.Reason, &r.Attempts, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		r.Outcome = models.Outcome(outcome)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history records: %w", err)
	}

	return records, nil
}

// SoftDelete hides a record from queries without destroying it.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE submissions SET deleted = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("soft delete record %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("record %d not found", id)
	}
	return nil
}
