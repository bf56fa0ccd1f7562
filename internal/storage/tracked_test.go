package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *TrackedJobDB {
	t.Helper()
	db, err := NewTrackedJobDB(filepath.Join(t.TempDir(), "dashboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRememberForgetRoundtrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Remember("job-a", "a.mp4"))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, db.Remember("job-b", "b.mp4"))

	ids, err := db.RememberedIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"job-b", "job-a"}, ids)

	// Re-remembering is an upsert, not a duplicate row.
	require.NoError(t, db.Remember("job-a", "a-renamed.mp4"))
	ids, err = db.RememberedIDs()
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	require.NoError(t, db.Forget("job-a"))
	require.NoError(t, db.Forget("job-a"))
	ids, err = db.RememberedIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"job-b"}, ids)
}

func TestArtifactRecords(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveArtifact(Artifact{
		JobID: "job-a", Kind: "srt", Filename: "x_course.srt", LocalPath: "/out/x_course.srt",
	}))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, db.SaveArtifact(Artifact{
		JobID: "job-a", Kind: "video", Filename: "x_course.mp4", LocalPath: "/out/x_course.mp4",
		DriveURL: "https://drive.google.com/file/d/abc/view",
	}))

	artifacts, err := db.ListArtifacts("job-a")
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "video", artifacts[0].Kind)
	assert.Equal(t, "https://drive.google.com/file/d/abc/view", artifacts[0].DriveURL)
	assert.Empty(t, artifacts[1].DriveURL)

	other, err := db.ListArtifacts("job-b")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLocalStoreWritesDatedPath(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root)

	path, err := store.SaveArtifact("lecture_course.srt", strings.NewReader("payload"))
	require.NoError(t, err)

	now := time.Now()
	expectedDir := filepath.Join(root, now.Format("2006"), now.Format("01"), now.Format("02"))
	assert.Equal(t, filepath.Join(expectedDir, "lecture_course.srt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}
