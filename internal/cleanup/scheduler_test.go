package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerDefaultsZeroConfig(t *testing.T) {
	// An omitted cleanup config section yields zeros; the ticker must
	// not be created with a zero interval.
	s := NewScheduler([]string{t.TempDir()}, 0, 0)
	assert.Equal(t, defaultIntervalMinutes, s.intervalMinutes)
	assert.Equal(t, defaultMaxAgeHours, s.maxAgeHours)

	s.Start()
	s.Stop()
}

func TestSweepRemovesExpiredFilesAndEmptyDirs(t *testing.T) {
	root := t.TempDir()
	datedDir := filepath.Join(root, "2025", "01", "02")
	require.NoError(t, os.MkdirAll(datedDir, 0755))

	expired := filepath.Join(datedDir, "old_course.srt")
	require.NoError(t, os.WriteFile(expired, []byte("stale"), 0644))
	past := time.Now().Add(-100 * time.Hour)
	require.NoError(t, os.Chtimes(expired, past, past))

	fresh := filepath.Join(root, "new_course.srt")
	require.NoError(t, os.WriteFile(fresh, []byte("recent"), 0644))

	s := NewScheduler([]string{root}, 60, 72)
	s.sweep()

	_, err := os.Stat(expired)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "2025"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
	_, err = os.Stat(root)
	assert.NoError(t, err)
}
