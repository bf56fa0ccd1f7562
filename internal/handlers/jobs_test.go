package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/registry"
)

func backendStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"queued":  []interface{}{},
			"started": []interface{}{},
			"finished": []map[string]interface{}{
				{
					"id":     "job-1",
					"status": "finished",
					"meta":   map[string]interface{}{"filename": "lecture.mp4"},
				},
			},
			"failed": []interface{}{},
		})
	})
	mux.HandleFunc("/api/jobs/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"jobs": []string{"up-1"}})
	})
	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"ok":true}`))
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestApp(t *testing.T) (*fiber.App, *registry.Registry) {
	return newTestAppWithLimit(t, 500)
}

func newTestAppWithLimit(t *testing.T, maxSizeMB int) (*fiber.App, *registry.Registry) {
	t.Helper()
	backend := backendStub(t)
	client := api.NewClient(backend.URL)
	reg := registry.New(client, nil, time.Hour)
	hub := NewHub(context.Background(), client, time.Hour)
	t.Cleanup(hub.Close)

	jobs := NewJobsHandler(reg, hub, maxSizeMB)

	app := fiber.New()
	app.Get("/api/dashboard/jobs", jobs.List)
	app.Post("/api/dashboard/jobs/refresh", jobs.Refresh)
	app.Post("/api/dashboard/jobs/upload", jobs.Upload)
	app.Delete("/api/dashboard/jobs/:id", jobs.Delete)
	app.Post("/api/dashboard/jobs/delete", jobs.DeleteMany)
	return app, reg
}

func multipartRequest(t *testing.T, url, field string, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestListServesEmptyBeforeFirstFetch(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/dashboard/jobs", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Jobs    []registry.Summary `json:"jobs"`
		Loading bool               `json:"loading"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Jobs)
	assert.True(t, body.Loading)
}

func TestRefreshReturnsSummaries(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/dashboard/jobs/refresh", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Jobs []registry.Summary `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "job-1", body.Jobs[0].ID)
	assert.Equal(t, "lecture.mp4", body.Jobs[0].DisplayName)
	assert.Equal(t, "Completed", body.Jobs[0].StatusLabel)
	assert.True(t, body.Jobs[0].CanView)
}

func TestDeleteJob(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/dashboard/jobs/job-1", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestDeleteManyRejectsEmptyBody(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/jobs/delete",
		bytes.NewReader([]byte(`{"ids":[]}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ERR_BAD_REQUEST")
}

func TestDeleteManyReportsPerID(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/jobs/delete",
		bytes.NewReader([]byte(`{"ids":["job-1","job-2"]}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var result registry.BulkResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, result.Failed)
}

func TestUploadForwardsFilesAndTracksJobs(t *testing.T) {
	app, reg := newTestApp(t)

	req := multipartRequest(t, "/api/dashboard/jobs/upload", "files",
		map[string]string{"lecture.mp4": "video-bytes"},
		map[string]string{"cut_clips": "true"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		JobIDs []string `json:"job_ids"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"up-1"}, body.JobIDs)
	assert.True(t, reg.Tracked("up-1"))
}

func TestUploadAcceptsSingularFileField(t *testing.T) {
	app, _ := newTestApp(t)

	req := multipartRequest(t, "/api/dashboard/jobs/upload", "file",
		map[string]string{"lecture.mp4": "video-bytes"}, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	app, reg := newTestAppWithLimit(t, 1)

	big := strings.Repeat("x", 1<<20+1)
	req := multipartRequest(t, "/api/dashboard/jobs/upload", "files",
		map[string]string{"huge.mp4": big}, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ERR_FILE_TOO_LARGE")
	assert.False(t, reg.Tracked("up-1"))
}

func TestUploadRejectsEmptyForm(t *testing.T) {
	app, _ := newTestApp(t)

	req := multipartRequest(t, "/api/dashboard/jobs/upload", "files", nil, nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 400, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ERR_NO_FILE")
}
