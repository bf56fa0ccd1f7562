package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receivedUpload struct {
	contentLength int64
	files         map[string]string
	fields        map[string]string
}

func uploadBackend(t *testing.T, status int, body string) (*httptest.Server, *receivedUpload) {
	t.Helper()
	got := &receivedUpload{
		files:  make(map[string]string),
		fields: make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs/upload", func(w http.ResponseWriter, r *http.Request) {
		got.contentLength = r.ContentLength

		reader, err := r.MultipartReader()
		require.NoError(t, err)
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, err := io.ReadAll(part)
			require.NoError(t, err)
			if part.FileName() != "" {
				got.files[part.FormName()+"/"+part.FileName()] = string(data)
			} else {
				got.fields[part.FormName()] = string(data)
			}
		}

		w.WriteHeader(status)
		w.Write([]byte(body))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, got
}

func TestUploadJobsSendsMultipartForm(t *testing.T) {
	server, got := uploadBackend(t, 200, `{"jobs":["J1","J2"]}`)
	client := NewClient(server.URL)

	files := []UploadFile{
		{Field: "files", Name: "lecture01.mp4", Reader: strings.NewReader("video-one")},
		{Name: "lecture02.mp4", Reader: strings.NewReader("video-two")}, // empty Field defaults
	}
	ids, err := client.UploadJobs(context.Background(), files, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"J1", "J2"}, ids)

	assert.Equal(t, "video-one", got.files["files/lecture01.mp4"])
	assert.Equal(t, "video-two", got.files["files/lecture02.mp4"])
	assert.Equal(t, "true", got.fields["cut_clips"])
}

func TestUploadJobsStreamsBody(t *testing.T) {
	server, got := uploadBackend(t, 200, `{"jobs":["J1"]}`)
	client := NewClient(server.URL)

	files := []UploadFile{{Name: "big.mp4", Reader: strings.NewReader(strings.Repeat("x", 1<<20))}}
	_, err := client.UploadJobs(context.Background(), files, false)
	require.NoError(t, err)

	// A piped body has no known length; a pre-buffered form would have
	// carried its full size here.
	assert.Less(t, got.contentLength, int64(0))
	assert.Equal(t, "false", got.fields["cut_clips"])
}

func TestUploadJobsErrorSurfacesBody(t *testing.T) {
	server, _ := uploadBackend(t, 415, "unsupported media type")
	client := NewClient(server.URL)

	files := []UploadFile{{Name: "notes.txt", Reader: strings.NewReader("hello")}}
	_, err := client.UploadJobs(context.Background(), files, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported media type")
}
