package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tinypal/internal/model"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(filePath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filePath)
	if err != nil {
		return nil, err
	}
	st := &SQLiteStore{db: db}
	if err := st.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AddMessage(msg model.Message) error {
	_, err := s.db.Exec(`
		INSERT INTO messages
		(id, screen_id, child_id, role, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ScreenID,
		msg.ChildID,
		msg.Role,
		msg.Text,
		toTS(msg.CreatedAt),
	)
	return err
}

func (s *SQLiteStore) ListMessages(screenID string) ([]model.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, screen_id, child_id, role, text, created_at
		FROM messages
		WHERE screen_id = ?
		ORDER BY seq ASC`,
		screenID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Message, 0)
	for rows.Next() {
		var msg model.Message
		var createdAt string
		if err := rows.Scan(
			&msg.ID,
			&msg.ScreenID,
			&msg.ChildID,
			&msg.Role,
			&msg.Text,
			&createdAt,
		); err != nil {
			return nil, err
		}
		msg.CreatedAt = fromTS(createdAt)
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) DeleteMessages(screenID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE screen_id = ?`, screenID)
	return err
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA journal_mode=WAL;
		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			screen_id TEXT NOT NULL,
			child_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_screen ON messages(screen_id, seq);
	`)
	return err
}

func toTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fromTS(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
