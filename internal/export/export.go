// Package export turns a reviewed job into downloadable course-only
// artifacts: it requests the merge, pulls the produced file to local
// storage, and mirrors it to Drive when configured.
package export

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/storage"
)

// Kind selects which artifact a single export produces
type Kind string

const (
	KindSRT   Kind = "srt"
	KindVTT   Kind = "vtt"
	KindJSON  Kind = "json"
	KindVideo Kind = "video"
)

// Result describes one completed export
type Result struct {
	Kind          Kind    `json:"kind"`
	Filename      string  `json:"filename"`
	LocalPath     string  `json:"local_path"`
	DriveURL      string  `json:"drive_url,omitempty"`
	KeptSegments  int     `json:"kept_segments"`
	TotalDuration float64 `json:"total_duration"`
}

// Uploader mirrors a finished artifact to remote storage
type Uploader interface {
	UploadFile(name, localPath, mimeType string) (string, error)
}

// Orchestrator runs exports end to end. Drive and the artifact database
// are optional; a nil uploader skips mirroring and a nil database skips
// the metadata record. Neither ever fails an export.
type Orchestrator struct {
	client *api.Client
	store  *storage.LocalStore
	drive  Uploader
	db     *storage.TrackedJobDB
}

// NewOrchestrator wires an export pipeline
func NewOrchestrator(client *api.Client, store *storage.LocalStore, drive Uploader, db *storage.TrackedJobDB) *Orchestrator {
	return &Orchestrator{client: client, store: store, drive: drive, db: db}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	separatorRe  = regexp.MustCompile(`[\\/]+`)
	extensionRe  = regexp.MustCompile(`\.[A-Za-z0-9]{1,5}$`)
)

// SanitizeBaseName turns a recording name into a safe filename stem:
// whitespace collapses to underscores, path separators to hyphens, and
// a trailing extension is stripped. An empty result falls back.
func SanitizeBaseName(name, fallback string) string {
	base := strings.TrimSpace(name)
	base = extensionRe.ReplaceAllString(base, "")
	base = whitespaceRe.ReplaceAllString(base, "_")
	base = separatorRe.ReplaceAllString(base, "-")
	if base == "" || base == "_" {
		return fallback
	}
	return base
}

// Export requests a course-only merge for one artifact kind, downloads
// the result into local storage and mirrors it to Drive. One call per
// kind; the backend merge is idempotent for identical updates, so
// repeated exports re-derive the same artifact.
func (o *Orchestrator) Export(ctx context.Context, jobID, recordingName string, updates []api.SegmentUpdate, kind Kind) (Result, error) {
	req := api.MergeRequest{
		Updates:      updates,
		MakeVideo:    kind == KindVideo,
		MakeSubtitle: kind != KindVideo,
	}

	resp, err := o.client.MergeCourse(ctx, jobID, req)
	if err != nil {
		return Result{}, fmt.Errorf("merge failed: %w", err)
	}

	fileURL := artifactURL(resp, kind)
	if fileURL == "" {
		return Result{}, fmt.Errorf("merge produced no %s artifact", kind)
	}

	filename := exportFilename(recordingName, kind)

	body, err := o.client.DownloadFile(ctx, fileURL)
	if err != nil {
		return Result{}, fmt.Errorf("failed to download artifact: %w", err)
	}
	defer body.Close()

	localPath, err := o.store.SaveArtifact(filename, body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to store artifact: %w", err)
	}

	result := Result{
		Kind:          kind,
		Filename:      filename,
		LocalPath:     localPath,
		KeptSegments:  resp.KeptSegments,
		TotalDuration: resp.TotalDuration,
	}

	if o.drive != nil {
		result.DriveURL = o.uploadWithRetry(filename, localPath, mimeType(kind))
	}

	if o.db != nil {
		err := o.db.SaveArtifact(storage.Artifact{
			JobID:     jobID,
			Kind:      string(kind),
			Filename:  filename,
			LocalPath: localPath,
			DriveURL:  result.DriveURL,
		})
		if err != nil {
			log.Printf("Warning: failed to record artifact for job %s: %v", jobID, err)
		}
	}

	return result, nil
}

// uploadWithRetry mirrors the artifact to Drive, backing off between
// attempts. Mirroring is best effort: after the last attempt the export
// succeeds without a Drive URL.
func (o *Orchestrator) uploadWithRetry(filename, localPath, contentType string) string {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		url, err := o.drive.UploadFile(filename, localPath, contentType)
		if err == nil {
			return url
		}
		log.Printf("Drive upload attempt %d/%d failed for %s: %v", attempt, maxAttempts, filename, err)
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	return ""
}

func exportFilename(recordingName string, kind Kind) string {
	fallback := "subtitles"
	ext := string(kind)
	if kind == KindVideo {
		fallback = "video"
		ext = "mp4"
	}
	return SanitizeBaseName(recordingName, fallback) + "_course." + ext
}

// artifactURL picks the produced file for one kind. Only srt may fall
// back to the flat subtitle_url, which older backends populate with the
// SRT; handing that file out under a .vtt or .json name would lie about
// its contents.
func artifactURL(resp api.MergeResponse, kind Kind) string {
	switch kind {
	case KindVideo:
		return resp.VideoURL
	case KindSRT:
		if resp.SubtitleURLs != nil && resp.SubtitleURLs.SRT != "" {
			return resp.SubtitleURLs.SRT
		}
		return resp.SubtitleURL
	case KindVTT:
		if resp.SubtitleURLs != nil {
			return resp.SubtitleURLs.VTT
		}
	case KindJSON:
		if resp.SubtitleURLs != nil {
			return resp.SubtitleURLs.JSON
		}
	}
	return ""
}

func mimeType(kind Kind) string {
	switch kind {
	case KindVideo:
		return "video/mp4"
	case KindVTT:
		return "text/vtt"
	case KindJSON:
		return "application/json"
	default:
		return "application/x-subrip"
	}
}
