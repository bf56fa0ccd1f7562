package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"time"
)

// Scheduler periodically removes expired exported artifacts and upload
// staging files. Exports are re-derivable from the backend at any time,
// so local copies only need to live as long as a review session.
type Scheduler struct {
	dirs            []string
	intervalMinutes int
	maxAgeHours     int
	stopChan        chan struct{}
}

// Defaults applied when the config omits the cleanup section; a zero
// ticker interval would panic at startup.
const (
	defaultIntervalMinutes = 60
	defaultMaxAgeHours     = 72
)

// NewScheduler creates a cleanup scheduler over the given directories
func NewScheduler(dirs []string, intervalMinutes, maxAgeHours int) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = defaultIntervalMinutes
	}
	if maxAgeHours <= 0 {
		maxAgeHours = defaultMaxAgeHours
	}
	return &Scheduler{
		dirs:            dirs,
		intervalMinutes: intervalMinutes,
		maxAgeHours:     maxAgeHours,
		stopChan:        make(chan struct{}),
	}
}

// Start begins the cleanup scheduler
func (s *Scheduler) Start() {
	// Run initial cleanup on startup
	log.Println("Running initial artifact cleanup...")
	s.sweep()

	ticker := time.NewTicker(time.Duration(s.intervalMinutes) * time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %dm, max age: %dh)",
		s.intervalMinutes, s.maxAgeHours)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("Cleanup scheduler stopped")
}

// sweep removes files older than maxAgeHours from every watched
// directory, then prunes directories emptied by the pass.
func (s *Scheduler) sweep() {
	now := time.Now()
	maxAge := time.Duration(s.maxAgeHours) * time.Hour

	var deletedCount int
	var deletedSize int64

	for _, dir := range s.dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip files we can't access
			}
			if info.IsDir() {
				return nil
			}

			age := now.Sub(info.ModTime())
			if age > maxAge {
				size := info.Size()
				if err := os.Remove(path); err != nil {
					log.Printf("Failed to delete expired file %s: %v", path, err)
				} else {
					deletedCount++
					deletedSize += size
					log.Printf("Deleted expired artifact: %s (age: %s, size: %dKB)",
						filepath.Base(path), age.Round(time.Hour), size/1024)
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("Error during cleanup of %s: %v", dir, err)
		}
		s.pruneEmptyDirs(dir)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}

// pruneEmptyDirs removes empty dated subdirectories left after a sweep.
// The root itself is kept.
func (s *Scheduler) pruneEmptyDirs(root string) {
	var dirs []string
	filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})

	// Deepest first so emptied parents fall too.
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err == nil && len(entries) == 0 {
			os.Remove(dirs[i])
		}
	}
}

// EnsureDirsExist creates the watched directories if they don't exist
func EnsureDirsExist(dirs []string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		log.Printf("Directory ready: %s", dir)
	}
	return nil
}
