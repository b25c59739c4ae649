package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/trexvision/internal/config"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Setting keys for the persisted detector configuration.
const (
	KeyThreshold    = "detector.threshold"
	KeyHistoryDepth = "detector.history_depth"
)

// SettingsRepository reads and writes key-value settings.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Get returns the value stored under key.
func (r *SettingsRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// Delete removes key. Deleting a missing key returns ErrNotFound.
func (r *SettingsRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
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

// LoadDetector returns the persisted detector settings layered over the
// defaults. ok is false when nothing has been saved yet.
func (r *SettingsRepository) LoadDetector() (config.DetectorConfig, bool, error) {
	cfg := config.DefaultDetector()
	found := false

	if v, err := r.Get(KeyThreshold); err == nil {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, false, fmt.Errorf("parse %s: %w", KeyThreshold, err)
		}
		cfg.Threshold = threshold
		found = true
	} else if !errors.Is(err, ErrNotFound) {
		return cfg, false, err
	}

	if v, err := r.Get(KeyHistoryDepth); err == nil {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return cfg, false, fmt.Errorf("parse %s: %w", KeyHistoryDepth, err)
		}
		cfg.HistoryDepth = depth
		found = true
	} else if !errors.Is(err, ErrNotFound) {
		return cfg, false, err
	}

	if err := cfg.Validate(); err != nil {
		return config.DefaultDetector(), false, fmt.Errorf("stored detector settings: %w", err)
	}

	return cfg, found, nil
}

// SaveDetector persists both detector settings in one transaction.
func (r *SettingsRepository) SaveDetector(cfg config.DetectorConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(KeyThreshold, strconv.FormatFloat(cfg.Threshold, 'g', -1, 64)); err != nil {
		return err
	}
	if _, err := stmt.Exec(KeyHistoryDepth, strconv.Itoa(cfg.HistoryDepth)); err != nil {
		return err
	}

	return tx.Commit()
}
