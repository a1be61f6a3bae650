package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite journal: db_path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordMessage ignores a message whose millis is already stored, so a
// replayed batch never duplicates rows.
func (j *SQLite) RecordMessage(m MessageRecord) error {
	_, err := j.db.Exec(`
		INSERT OR IGNORE INTO messages
		(millis, time, type, message, error_type, description)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Millis, m.Time.UTC(), m.Type, m.Message, m.ErrorType, m.Description,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, equity, free_margin, open_orders)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Balance, e.Equity, e.FreeMargin, e.OpenOrders,
	)
	return err
}

func (j *SQLite) RecordCommand(c CommandRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO commands
		(id, time, name, payload, slot, attempts, elapsed_ms, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Time.UTC(), c.Name, c.Payload, c.Slot, c.Attempts,
		float64(c.Elapsed)/float64(time.Millisecond), c.Result, c.Error,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
