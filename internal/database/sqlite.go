package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dropscan-go/internal/database/migrations"
	"dropscan-go/internal/ds"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const timeLayout = time.RFC3339Nano

// Operation is one persisted command run.
type Operation struct {
	ID         int64
	RunID      string
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	EventCount int
}

// SQLiteJournal records operations and their sync events in SQLite.
type SQLiteJournal struct {
	db    *sql.DB
	path  string
	clock ds.Clock
}

// NewSQLiteJournal opens the journal at path and applies pending migrations.
// path can be a file path or ":memory:".
func NewSQLiteJournal(path string, clock ds.Clock) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}
	return &SQLiteJournal{db: db, path: path, clock: clock}, nil
}

// OpenConnection opens and configures a SQLite database connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

func (j *SQLiteJournal) Path() string {
	return j.path
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(j.db)
}

// CreateOperation inserts a running operation and returns its row id.
func (j *SQLiteJournal) CreateOperation(runID, operation, parameters string) (int64, error) {
	res, err := j.db.Exec(
		`INSERT INTO sync_operations (run_id, operation, parameters, started_at, status) VALUES (?, ?, ?, ?, 'running')`,
		runID, operation, parameters, formatTime(j.clock.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading operation id: %w", err)
	}
	return id, nil
}

// FinishOperation stamps the end time and final status of an operation.
func (j *SQLiteJournal) FinishOperation(id int64, status string) error {
	res, err := j.db.Exec(
		`UPDATE sync_operations SET finished_at = ?, status = ? WHERE id = ?`,
		formatTime(j.clock.Now()), status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing operation: no operation with id %d", id)
	}
	return nil
}

// FindOperation returns the operation with the given run id, or nil if none exists.
func (j *SQLiteJournal) FindOperation(runID string) (*Operation, error) {
	row := j.db.QueryRow(`
		SELECT o.id, o.run_id, o.operation, o.parameters, o.started_at, o.finished_at, o.status,
			(SELECT COUNT(*) FROM sync_events e WHERE e.operation_id = o.id)
		FROM sync_operations o WHERE o.run_id = ?`, runID)
	op, err := scanOperation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding operation: %w", err)
	}
	return op, nil
}

// ListOperations returns the most recent operations first. limit <= 0 means all.
func (j *SQLiteJournal) ListOperations(limit int) ([]*Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`
		SELECT o.id, o.run_id, o.operation, o.parameters, o.started_at, o.finished_at, o.status,
			(SELECT COUNT(*) FROM sync_events e WHERE e.operation_id = o.id)
		FROM sync_operations o
		ORDER BY o.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// RecordEvent stores one sync event under an operation.
func (j *SQLiteJournal) RecordEvent(operationID int64, e *ds.Event) error {
	at := e.At
	if at.IsZero() {
		at = j.clock.Now()
	}
	_, err := j.db.Exec(`
		INSERT INTO sync_events (operation_id, mailing_id, barcode, kind, action, path, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		operationID, e.MailingID, e.Barcode, e.Kind.String(), string(e.Action), e.Path, e.Detail, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// EventsForOperation returns the events of an operation in insertion order.
func (j *SQLiteJournal) EventsForOperation(operationID int64) ([]*ds.Event, error) {
	events, err := j.queryEvents(`
		SELECT mailing_id, barcode, kind, action, path, detail, created_at
		FROM sync_events WHERE operation_id = ? ORDER BY id`, operationID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// EventsForBarcode returns every recorded event of one mailing, oldest first.
func (j *SQLiteJournal) EventsForBarcode(barcode string) ([]*ds.Event, error) {
	events, err := j.queryEvents(`
		SELECT mailing_id, barcode, kind, action, path, detail, created_at
		FROM sync_events WHERE barcode = ? ORDER BY id`, barcode)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s: %w", barcode, err)
	}
	return events, nil
}

func (j *SQLiteJournal) queryEvents(query string, args ...any) ([]*ds.Event, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*ds.Event
	for rows.Next() {
		var (
			e            ds.Event
			kind, action string
			path, detail sql.NullString
			createdAt    string
		)
		if err := rows.Scan(&e.MailingID, &e.Barcode, &kind, &action, &path, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if e.Kind, err = ds.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Action = ds.Action(action)
		e.Path = path.String
		e.Detail = detail.String
		if e.At, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// ForOperation binds the journal to one operation so the sync engine can record into it.
func (j *SQLiteJournal) ForOperation(operationID int64) ds.Journal {
	return &operationJournal{journal: j, operationID: operationID}
}

type operationJournal struct {
	journal     *SQLiteJournal
	operationID int64
}

func (o *operationJournal) RecordEvent(e *ds.Event) error {
	return o.journal.RecordEvent(o.operationID, e)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row rowScanner) (*Operation, error) {
	var (
		op         Operation
		params     sql.NullString
		startedAt  string
		finishedAt sql.NullString
		err        error
	)
	if err = row.Scan(&op.ID, &op.RunID, &op.Operation, &params, &startedAt, &finishedAt, &op.Status, &op.EventCount); err != nil {
		return nil, err
	}
	op.Parameters = params.String
	if op.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid && finishedAt.String != "" {
		if op.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return nil, err
		}
	}
	return &op, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
