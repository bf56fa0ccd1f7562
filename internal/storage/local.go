package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes exported artifacts to the local filesystem
type LocalStore struct {
	outputDir string
}

// NewLocalStore creates a local artifact store rooted at outputDir
func NewLocalStore(outputDir string) *LocalStore {
	return &LocalStore{
		outputDir: outputDir,
	}
}

// SaveArtifact streams an artifact into a dated directory structure
// (outputs/2025/09/01/lecture_course.srt) and returns the final path.
func (ls *LocalStore) SaveArtifact(filename string, r io.Reader) (string, error) {
	now := time.Now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %v", err)
	}

	path := filepath.Join(dateDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %v", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write artifact: %v", err)
	}

	return path, nil
}
