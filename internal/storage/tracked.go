package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// TrackedJobDB persists the advisory set of jobs started through this
// dashboard plus metadata about exported artifacts. It is a cache hint:
// the backend's job list stays authoritative, and a failed write here
// is never fatal to the caller.
type TrackedJobDB struct {
	db *sql.DB
}

// NewTrackedJobDB opens (and if needed initializes) the local database
func NewTrackedJobDB(dbPath string) (*TrackedJobDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS tracked_jobs (
		job_id TEXT PRIMARY KEY,
		filename TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		filename TEXT NOT NULL,
		local_path TEXT NOT NULL,
		drive_url TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_job ON artifacts(job_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &TrackedJobDB{db: db}, nil
}

// Remember records a job id started through this dashboard
func (t *TrackedJobDB) Remember(jobID, filename string) error {
	query := `INSERT OR REPLACE INTO tracked_jobs (job_id, filename, created_at) VALUES (?, ?, ?)`
	if _, err := t.db.Exec(query, jobID, filename, time.Now()); err != nil {
		return fmt.Errorf("failed to remember job %s: %v", jobID, err)
	}
	return nil
}

// Forget drops a remembered job id. Missing rows are not an error.
func (t *TrackedJobDB) Forget(jobID string) error {
	if _, err := t.db.Exec(`DELETE FROM tracked_jobs WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to forget job %s: %v", jobID, err)
	}
	return nil
}

// RememberedIDs returns every tracked job id, newest first
func (t *TrackedJobDB) RememberedIDs() ([]string, error) {
	rows, err := t.db.Query(`SELECT job_id FROM tracked_jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked jobs: %v", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Artifact is one exported course-only file
type Artifact struct {
	ID        int64
	JobID     string
	Kind      string
	Filename  string
	LocalPath string
	DriveURL  string
	CreatedAt time.Time
}

// SaveArtifact records an exported artifact
func (t *TrackedJobDB) SaveArtifact(a Artifact) error {
	query := `
	INSERT INTO artifacts (job_id, kind, filename, local_path, drive_url, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := t.db.Exec(query, a.JobID, a.Kind, a.Filename, a.LocalPath, a.DriveURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save artifact metadata: %v", err)
	}
	return nil
}

// ListArtifacts returns the exported artifacts for one job, newest first
func (t *TrackedJobDB) ListArtifacts(jobID string) ([]Artifact, error) {
	query := `
	SELECT id, job_id, kind, filename, local_path, COALESCE(drive_url, ''), created_at
	FROM artifacts WHERE job_id = ? ORDER BY created_at DESC
	`
	rows, err := t.db.Query(query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %v", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.JobID, &a.Kind, &a.Filename, &a.LocalPath, &a.DriveURL, &a.CreatedAt); err != nil {
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// Close closes the database connection
func (t *TrackedJobDB) Close() error {
	return t.db.Close()
}
