package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"detectweb/internal/model"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a new run record to the database.
func (r *RunRepository) Insert(run *model.Run) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO runs (name, input_path, output_path, num_detections, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.Name, run.InputPath, run.OutputPath, run.NumDetections, run.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return result.LastInsertId()
}

// GetByName retrieves a run by its directory name. A missing run yields (nil, nil).
func (r *RunRepository) GetByName(name string) (*model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return scanRun(r.db.Conn().QueryRow(`
		SELECT id, name, input_path, output_path, num_detections, created_at
		FROM runs WHERE name = ?
	`, name))
}

// GetRecent returns up to limit runs, newest first.
func (r *RunRepository) GetRecent(limit int) ([]model.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, name, input_path, output_path, num_detections, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(&run.ID, &run.Name, &run.InputPath, &run.OutputPath, &run.NumDetections, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetTotalCount returns the number of recorded runs.
func (r *RunRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// Exists checks if a run with the given name is recorded.
func (r *RunRepository) Exists(name string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM runs WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check run existence: %w", err)
	}
	return count > 0, nil
}

func scanRun(row *sql.Row) (*model.Run, error) {
	var run model.Run
	err := row.Scan(&run.ID, &run.Name, &run.InputPath, &run.OutputPath, &run.NumDetections, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}
