package export

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/storage"
)

type mergeBackend struct {
	mu       chan struct{}
	requests []api.MergeRequest
	server   *httptest.Server
}

func newMergeBackend(t *testing.T) *mergeBackend {
	t.Helper()
	b := &mergeBackend{mu: make(chan struct{}, 1)}
	b.mu <- struct{}{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs/job-1/merge/course", func(w http.ResponseWriter, r *http.Request) {
		var req api.MergeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		<-b.mu
		b.requests = append(b.requests, req)
		b.mu <- struct{}{}

		resp := api.MergeResponse{
			SubtitleURL:   "/files/merged.srt",
			SubtitleURLs:  &api.SubtitleURLs{SRT: "/files/merged.srt", VTT: "/files/merged.vtt"},
			KeptSegments:  2,
			TotalDuration: 42.5,
			Mapping: []api.MergeMapping{
				{SegmentID: 1, OldStart: 0, OldEnd: 10, NewStart: 0, NewEnd: 10},
				{SegmentID: 3, OldStart: 20, OldEnd: 30, NewStart: 10, NewEnd: 20},
			},
		}
		if req.MakeVideo {
			resp = api.MergeResponse{VideoURL: "/files/merged.mp4", KeptSegments: 2, TotalDuration: 42.5}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("artifact-bytes:" + filepath.Base(r.URL.Path)))
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

type fakeUploader struct {
	calls    int
	failFor  int
	lastName string
}

func (f *fakeUploader) UploadFile(name, localPath, mimeType string) (string, error) {
	f.calls++
	f.lastName = name
	if f.calls <= f.failFor {
		return "", errors.New("drive unavailable")
	}
	return "https://drive.google.com/file/d/fake/view", nil
}

func TestSanitizeBaseName(t *testing.T) {
	assert.Equal(t, "Lecture_01", SanitizeBaseName("Lecture 01.mp4", "subtitles"))
	assert.Equal(t, "a-b_c", SanitizeBaseName(`a/b c.srt`, "subtitles"))
	assert.Equal(t, "subtitles", SanitizeBaseName("   ", "subtitles"))
	assert.Equal(t, "video", SanitizeBaseName(".mp4", "video"))
	assert.Equal(t, "notes.2024_draft", SanitizeBaseName("notes.2024 draft.txt", "subtitles"))
}

func TestExportSubtitleEndToEnd(t *testing.T) {
	backend := newMergeBackend(t)
	client := api.NewClient(backend.server.URL)
	store := storage.NewLocalStore(t.TempDir())

	dbPath := filepath.Join(t.TempDir(), "tracked.db")
	db, err := storage.NewTrackedJobDB(dbPath)
	require.NoError(t, err)
	defer db.Close()

	orch := NewOrchestrator(client, store, nil, db)

	text := "kept"
	updates := []api.SegmentUpdate{{SegmentID: 1, Transcript: &text}}
	res, err := orch.Export(context.Background(), "job-1", "My Lecture.mp4", updates, KindSRT)
	require.NoError(t, err)

	assert.Equal(t, "My_Lecture_course.srt", res.Filename)
	assert.Equal(t, 2, res.KeptSegments)
	assert.InDelta(t, 42.5, res.TotalDuration, 1e-9)
	assert.Empty(t, res.DriveURL)

	data, err := os.ReadFile(res.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "artifact-bytes:merged.srt", string(data))

	require.Len(t, backend.requests, 1)
	assert.False(t, backend.requests[0].MakeVideo)
	assert.True(t, backend.requests[0].MakeSubtitle)

	artifacts, err := db.ListArtifacts("job-1")
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "srt", artifacts[0].Kind)
	assert.Equal(t, res.LocalPath, artifacts[0].LocalPath)
}

func TestExportVideoRequestsVideoOnly(t *testing.T) {
	backend := newMergeBackend(t)
	client := api.NewClient(backend.server.URL)
	store := storage.NewLocalStore(t.TempDir())

	orch := NewOrchestrator(client, store, nil, nil)

	res, err := orch.Export(context.Background(), "job-1", "My Lecture", nil, KindVideo)
	require.NoError(t, err)
	assert.Equal(t, "My_Lecture_course.mp4", res.Filename)

	require.Len(t, backend.requests, 1)
	assert.True(t, backend.requests[0].MakeVideo)
	assert.False(t, backend.requests[0].MakeSubtitle)
}

func TestExportIdempotentForIdenticalUpdates(t *testing.T) {
	backend := newMergeBackend(t)
	client := api.NewClient(backend.server.URL)
	store := storage.NewLocalStore(t.TempDir())

	orch := NewOrchestrator(client, store, nil, nil)

	text := "same"
	updates := []api.SegmentUpdate{{SegmentID: 1, Transcript: &text}}

	first, err := orch.Export(context.Background(), "job-1", "lecture", updates, KindSRT)
	require.NoError(t, err)
	second, err := orch.Export(context.Background(), "job-1", "lecture", updates, KindSRT)
	require.NoError(t, err)

	assert.Equal(t, first.KeptSegments, second.KeptSegments)
	assert.Equal(t, first.TotalDuration, second.TotalDuration)
	require.Len(t, backend.requests, 2)
	assert.Equal(t, backend.requests[0], backend.requests[1])
}

func TestExportDriveFailureIsNotFatal(t *testing.T) {
	backend := newMergeBackend(t)
	client := api.NewClient(backend.server.URL)
	store := storage.NewLocalStore(t.TempDir())

	drive := &fakeUploader{failFor: 99}
	orch := NewOrchestrator(client, store, drive, nil)

	res, err := orch.Export(context.Background(), "job-1", "lecture", nil, KindVTT)
	require.NoError(t, err)
	assert.Empty(t, res.DriveURL)
	assert.Equal(t, 3, drive.calls)

	// The local copy survives the failed mirror.
	_, err = os.Stat(res.LocalPath)
	assert.NoError(t, err)
}

func TestExportDriveRetrySucceeds(t *testing.T) {
	backend := newMergeBackend(t)
	client := api.NewClient(backend.server.URL)
	store := storage.NewLocalStore(t.TempDir())

	drive := &fakeUploader{failFor: 1}
	orch := NewOrchestrator(client, store, drive, nil)

	res, err := orch.Export(context.Background(), "job-1", "lecture", nil, KindSRT)
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/file/d/fake/view", res.DriveURL)
	assert.Equal(t, 2, drive.calls)
	assert.Equal(t, "lecture_course.srt", drive.lastName)
}

func TestExportMergeErrorSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "job not finished", http.StatusConflict)
	}))
	defer server.Close()

	orch := NewOrchestrator(api.NewClient(server.URL), storage.NewLocalStore(t.TempDir()), nil, nil)
	_, err := orch.Export(context.Background(), "job-1", "lecture", nil, KindSRT)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not finished")
}

func TestExportMissingSubtitleFormatIsAnError(t *testing.T) {
	backend := newMergeBackend(t)
	client := api.NewClient(backend.server.URL)
	store := storage.NewLocalStore(t.TempDir())

	orch := NewOrchestrator(client, store, nil, nil)

	// The backend produced srt and vtt only; json must not silently
	// fall back to the srt file under a .json name.
	_, err := orch.Export(context.Background(), "job-1", "lecture", nil, KindJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no json artifact")
}
