package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"detectweb/internal/model"
	"detectweb/internal/repository"

	"github.com/stretchr/testify/require"
)

var (
	_ repository.RunRepository       = (*RunRepository)(nil)
	_ repository.DetectionRepository = (*DetectionRepository)(nil)
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertRun(t *testing.T, repo *RunRepository, name string, created time.Time, count int) int64 {
	t.Helper()

	id, err := repo.Insert(&model.Run{
		Name:          name,
		InputPath:     "static/uploads/road.jpg",
		OutputPath:    filepath.Join("static/results", name, "road.jpg"),
		NumDetections: count,
		CreatedAt:     created,
	})
	require.NoError(t, err)
	require.Positive(t, id)
	return id
}

func TestDatabase_CreatesFileAndDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "runs.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestRunRepository_InsertAndGet(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id := insertRun(t, repo, "pred_1740830400_a1b2c3d4", created, 3)

	byName, err := repo.GetByName("pred_1740830400_a1b2c3d4")
	require.NoError(t, err)
	require.NotNil(t, byName)
	require.Equal(t, id, byName.ID)
	require.Equal(t, "pred_1740830400_a1b2c3d4", byName.Name)
	require.Equal(t, 3, byName.NumDetections)
	require.True(t, created.Equal(byName.CreatedAt))
}

func TestRunRepository_NotFound(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	run, err := repo.GetByName("pred_missing")
	require.NoError(t, err)
	require.Nil(t, run)
}

func TestRunRepository_DuplicateName(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	insertRun(t, repo, "pred_1", time.Now(), 0)
	_, err := repo.Insert(&model.Run{Name: "pred_1", CreatedAt: time.Now()})
	require.Error(t, err)

	exists, err := repo.Exists("pred_1")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.Exists("pred_2")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRunRepository_GetRecent(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	insertRun(t, repo, "pred_a", base, 1)
	insertRun(t, repo, "pred_c", base.Add(2*time.Hour), 0)
	insertRun(t, repo, "pred_b", base.Add(time.Hour), 2)

	runs, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "pred_c", runs[0].Name)
	require.Equal(t, "pred_b", runs[1].Name)

	total, err := repo.GetTotalCount()
	require.NoError(t, err)
	require.Equal(t, 3, total)
}

func TestDetectionRepository_InsertBatchAndQuery(t *testing.T) {
	db := setupTestDB(t)
	runs := NewRunRepository(db)
	dets := NewDetectionRepository(db)

	runID := insertRun(t, runs, "pred_det", time.Now(), 2)

	require.NoError(t, dets.InsertBatch([]model.Detection{
		{RunID: runID, Label: "pothole", X: 10, Y: 20, Width: 30, Height: 40, Confidence: 0.41},
		{RunID: runID, Label: "crack", ClassID: 1, X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.87},
	}))

	got, err := dets.GetByRunID(runID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "crack", got[0].Label)
	require.Equal(t, 1, got[0].ClassID)
	require.Equal(t, 30, got[1].Width)

	labels, err := dets.GetAllLabels()
	require.NoError(t, err)
	require.Equal(t, []string{"crack", "pothole"}, labels)
}

func TestDetectionRepository_EmptyBatch(t *testing.T) {
	dets := NewDetectionRepository(setupTestDB(t))

	require.NoError(t, dets.InsertBatch(nil))

	got, err := dets.GetByRunID(1)
	require.NoError(t, err)
	require.Empty(t, got)
}
