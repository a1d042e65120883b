package store

import (
	"database/sql"
	"time"
)

// BatchRun records one batch invocation for auditing.
type BatchRun struct {
	ID             int64
	StartedAt      time.Time
	FinishedAt     sql.NullTime
	Source         string // "minio", "ftp", "api"
	ObjectKey      sql.NullString
	RecordsTotal   sql.NullInt64
	RecordsStored  sql.NullInt64
	RecordsSkipped sql.NullInt64
	RecordsFailed  sql.NullInt64
	Success        bool
	ErrorMessage   sql.NullString
}

// StartBatchRun creates a new batch run row and returns it.
func (s *Store) StartBatchRun(source string, objectKey *string) (*BatchRun, error) {
	run := &BatchRun{
		StartedAt: time.Now().UTC(),
		Source:    source,
	}
	if objectKey != nil {
		run.ObjectKey = sql.NullString{String: *objectKey, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO batch_runs (started_at, source, object_key, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.Source, run.ObjectKey)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return run, nil
}

// CompleteBatchRun updates the batch run with its outcome.
func (s *Store) CompleteBatchRun(run *BatchRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE batch_runs SET
			finished_at = ?,
			records_total = ?,
			records_stored = ?,
			records_skipped = ?,
			records_failed = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.RecordsTotal, run.RecordsStored, run.RecordsSkipped,
		run.RecordsFailed, run.Success, run.ErrorMessage, run.ID)
	return err
}

// BatchHealthSummary aggregates batch runs per day and source.
type BatchHealthSummary struct {
	Date          string `json:"date"`
	Source        string `json:"source"`
	TotalRuns     int    `json:"total_runs"`
	SuccessRuns   int    `json:"success_runs"`
	FailedRuns    int    `json:"failed_runs"`
	RecordsStored int64  `json:"records_stored"`
	RecordsFailed int64  `json:"records_failed"`
}

// GetBatchHealth returns batch run summaries for the last N days.
func (s *Store) GetBatchHealth(days int) ([]BatchHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			source,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			COALESCE(SUM(records_stored), 0) as records_stored,
			COALESCE(SUM(records_failed), 0) as records_failed
		FROM batch_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, source
		ORDER BY date DESC, source
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []BatchHealthSummary
	for rows.Next() {
		var h BatchHealthSummary
		if err := rows.Scan(&h.Date, &h.Source, &h.TotalRuns, &h.SuccessRuns,
			&h.FailedRuns, &h.RecordsStored, &h.RecordsFailed); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// MarkObjectProcessed records that a batch object has been handled.
func (s *Store) MarkObjectProcessed(source, objectKey string) error {
	_, err := s.db.Exec(`
		INSERT INTO processed_objects (source, object_key, processed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source, object_key) DO NOTHING
	`, source, objectKey, time.Now().UTC())
	return err
}

// ObjectProcessed reports whether a batch object has already been handled.
func (s *Store) ObjectProcessed(source, objectKey string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM processed_objects WHERE source = ? AND object_key = ?
	`, source, objectKey).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
