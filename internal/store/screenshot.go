package store

import (
	"database/sql"
	"errors"
	"time"
)

// Screenshot records one saved output image.
type Screenshot struct {
	ID           string    `json:"id"`
	Path         string    `json:"path"`
	Sequence     int       `json:"sequence"`
	Threshold    float64   `json:"threshold"`
	HistoryDepth int       `json:"history_depth"`
	FlaggedRatio float64   `json:"flagged_ratio"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScreenshotRepository provides CRUD operations for screenshots.
type ScreenshotRepository struct {
	db *sql.DB
}

// Screenshots returns the screenshot repository for this store.
func (s *Store) Screenshots() *ScreenshotRepository {
	return &ScreenshotRepository{db: s.db}
}

// NextSequence returns the number to use for the next screenshot file,
// one past the highest recorded so far, starting at 0.
func (r *ScreenshotRepository) NextSequence() (int, error) {
	var next int
	err := r.db.QueryRow(`SELECT COALESCE(MAX(sequence) + 1, 0) FROM screenshots`).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Create inserts a new screenshot record.
func (r *ScreenshotRepository) Create(sc *Screenshot) error {
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO screenshots (id, path, sequence, threshold, history_depth, flagged_ratio, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.Path, sc.Sequence, sc.Threshold, sc.HistoryDepth, sc.FlaggedRatio, sc.CreatedAt,
	)
	return err
}

// GetByID retrieves a screenshot by its ID.
func (r *ScreenshotRepository) GetByID(id string) (*Screenshot, error) {
	sc := &Screenshot{}
	err := r.db.QueryRow(
		`SELECT id, path, sequence, threshold, history_depth, flagged_ratio, created_at
		 FROM screenshots WHERE id = ?`,
		id,
	).Scan(&sc.ID, &sc.Path, &sc.Sequence, &sc.Threshold, &sc.HistoryDepth, &sc.FlaggedRatio, &sc.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return sc, nil
}

// List retrieves all screenshots, newest first.
func (r *ScreenshotRepository) List() ([]*Screenshot, error) {
	rows, err := r.db.Query(
		`SELECT id, path, sequence, threshold, history_depth, flagged_ratio, created_at
		 FROM screenshots ORDER BY sequence DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shots []*Screenshot
	for rows.Next() {
		sc := &Screenshot{}
		if err := rows.Scan(&sc.ID, &sc.Path, &sc.Sequence, &sc.Threshold, &sc.HistoryDepth, &sc.FlaggedRatio, &sc.CreatedAt); err != nil {
			return nil, err
		}
		shots = append(shots, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shots, nil
}

// Delete removes a screenshot record by its ID. The image file is left to
// the caller.
func (r *ScreenshotRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM screenshots WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
