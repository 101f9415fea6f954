package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zujuan/internal/model"
)

// InsertIngestItem stores a newly queued upload.
func (s *Store) InsertIngestItem(item model.IngestItem) error {
	result, err := encodeResult(item.Result)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO ingest_items (id, file_name, mime_type, content, status,
		 result, question_id, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.FileName, item.MimeType, item.Content, item.Status,
		result, item.QuestionID, item.Error, now, now,
	)
	return err
}

// GetIngestItem returns a queued item by ID, or nil if not found.
func (s *Store) GetIngestItem(id string) (*model.IngestItem, error) {
	row := s.db.QueryRow(
		`SELECT id, file_name, mime_type, content, status, result, question_id, error, created_at, updated_at
		 FROM ingest_items WHERE id = ?`, id,
	)
	item, err := scanIngestItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListIngestItems returns all queued items in insertion order.
func (s *Store) ListIngestItems() ([]model.IngestItem, error) {
	rows, err := s.db.Query(
		`SELECT id, file_name, mime_type, content, status, result, question_id, error, created_at, updated_at
		 FROM ingest_items ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.IngestItem
	for rows.Next() {
		item, err := scanIngestItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// DeleteIngestItem removes a queued item unconditionally.
func (s *Store) DeleteIngestItem(id string) error {
	_, err := s.db.Exec(`DELETE FROM ingest_items WHERE id = ?`, id)
	return err
}

// TransitionIngestItem moves an item from one of the given statuses to the
// next one. It reports false when the item is gone or no longer in an
// expected status, which is how completions for removed or restarted items
// get discarded.
func (s *Store) TransitionIngestItem(id string, from []model.IngestStatus, to model.IngestStatus) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s: no source statuses", to)
	}
	args := []any{to, time.Now().UTC(), id}
	for _, st := range from {
		args = append(args, st)
	}
	res, err := s.db.Exec(
		`UPDATE ingest_items SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+
			placeholders(len(from))+`)`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SettleIngestItem finishes an in-flight operation: it writes the new
// status plus result, question ID, and error message, guarded by the status
// the operation claimed. Reports false when the claim no longer holds.
func (s *Store) SettleIngestItem(id string, from model.IngestStatus, item model.IngestItem) (bool, error) {
	result, err := encodeResult(item.Result)
	if err != nil {
		return false, err
	}
	res, err := s.db.Exec(
		`UPDATE ingest_items SET status = ?, result = ?, question_id = ?, error = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		item.Status, result, item.QuestionID, item.Error, time.Now().UTC(), id, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RestoreIngestQueue prepares the queue after a restart: saved items are
// dropped and in-flight statuses collapse back to pending, since the
// operations that claimed them did not survive the process.
func (s *Store) RestoreIngestQueue() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM ingest_items WHERE status = ?`, model.IngestSaved); err != nil {
		return fmt.Errorf("purge saved items: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE ingest_items SET status = ?, error = '', updated_at = ? WHERE status IN (?, ?)`,
		model.IngestPending, time.Now().UTC(), model.IngestProcessing, model.IngestIngesting,
	); err != nil {
		return fmt.Errorf("reset in-flight items: %w", err)
	}
	return tx.Commit()
}

func scanIngestItem(scan func(...any) error) (*model.IngestItem, error) {
	var item model.IngestItem
	var result string
	err := scan(&item.ID, &item.FileName, &item.MimeType, &item.Content, &item.Status,
		&result, &item.QuestionID, &item.Error, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if result != "" {
		item.Result = &model.AnalysisResult{}
		if err := json.Unmarshal([]byte(result), item.Result); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

func encodeResult(r *model.AnalysisResult) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
