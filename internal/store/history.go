package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/dispatch"
)

// HistoryRepository stores dispatch records.
type HistoryRepository struct {
	db *sql.DB
}

// History returns the dispatch history repository for this store.
func (s *Store) History() *HistoryRepository {
	return &HistoryRepository{db: s.db}
}

// Create inserts a dispatch record.
func (r *HistoryRepository) Create(rec dispatch.Record) error {
	_, err := r.db.Exec(
		`INSERT INTO dispatches (id, source, trigger, kind, outcome, error, time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Source), rec.Trigger, string(rec.Kind), string(rec.Outcome), rec.Error, rec.Time.UnixMilli(),
	)
	return err
}

// Recent returns up to limit records, newest first.
func (r *HistoryRepository) Recent(limit int) ([]dispatch.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, source, trigger, kind, outcome, error, time_ms
		 FROM dispatches ORDER BY time_ms DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []dispatch.Record
	for rows.Next() {
		var rec dispatch.Record
		var source, kind, outcome string
		var ms int64
		if err := rows.Scan(&rec.ID, &source, &rec.Trigger, &kind, &outcome, &rec.Error, &ms); err != nil {
			return nil, err
		}
		rec.Source = action.Source(source)
		rec.Kind = action.Kind(kind)
		rec.Outcome = dispatch.Outcome(outcome)
		rec.Time = time.UnixMilli(ms)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Counts returns the number of stored records per outcome.
func (r *HistoryRepository) Counts() (map[dispatch.Outcome]int, error) {
	rows, err := r.db.Query(`SELECT outcome, COUNT(*) FROM dispatches GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[dispatch.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[dispatch.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// Prune keeps the newest keep records and deletes the rest.
func (r *HistoryRepository) Prune(keep int) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM dispatches WHERE id NOT IN (
			SELECT id FROM dispatches ORDER BY time_ms DESC, rowid DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
