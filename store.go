package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Capture is one fixture write recorded in the capture index.
type Capture struct {
	ID         int64     `json:"id"`
	DeliveryID string    `json:"deliveryId"`
	EventType  string    `json:"eventType"`
	Action     string    `json:"action"`
	Path       string    `json:"path"`
	Size       int       `json:"size"`
	Recognized bool      `json:"recognized"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// captureIndex keeps a history of captures next to the fixture tree. The
// fixture files stay authoritative; the index only answers "what arrived".
type captureIndex struct {
	db  *sql.DB
	now func() time.Time
}

func openIndex(dsn string) (*captureIndex, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS captures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		delivery_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		recognized INTEGER NOT NULL DEFAULT 0,
		received_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &captureIndex{db: db, now: time.Now}, nil
}

func (c *captureIndex) Close() error {
	return c.db.Close()
}

// Record inserts c and returns its id. ReceivedAt defaults to the index clock.
func (c *captureIndex) Record(ctx context.Context, capture Capture) (int64, error) {
	if capture.ReceivedAt.IsZero() {
		capture.ReceivedAt = c.now()
	}

	res, err := c.db.ExecContext(ctx, `
		INSERT INTO captures (delivery_id, event_type, action, path, size, recognized, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, capture.DeliveryID, capture.EventType, capture.Action, capture.Path, capture.Size,
		capture.Recognized, capture.ReceivedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns up to limit captures, newest first. An empty eventType
// matches every event.
func (c *captureIndex) List(ctx context.Context, eventType string, limit int) ([]Capture, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, delivery_id, event_type, action, path, size, recognized, received_at
		FROM captures
		WHERE ? = '' OR event_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, eventType, eventType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	captures := []Capture{}
	for rows.Next() {
		var (
			capture    Capture
			receivedAt string
		)
		if err := rows.Scan(&capture.ID, &capture.DeliveryID, &capture.EventType, &capture.Action,
			&capture.Path, &capture.Size, &capture.Recognized, &receivedAt); err != nil {
			return nil, err
		}
		if capture.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt); err != nil {
			return nil, err
		}
		captures = append(captures, capture)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return captures, nil
}
