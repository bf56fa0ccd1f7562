package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// uploadTimeout is deliberately long; large recordings take minutes to transfer
const uploadTimeout = 10 * time.Minute

// Error carries a non-2xx response so callers can display the body verbatim
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsNotFound reports whether err is an API error with a 404 status
func IsNotFound(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client is a typed HTTP client for one upstream backend
type Client struct {
	baseURL string
	http    *http.Client
	upload  *http.Client
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		upload:  &http.Client{Timeout: uploadTimeout},
	}
}

// BaseURL returns the configured backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do issues a request and decodes a JSON response into out (if non-nil).
// Non-2xx responses become *Error carrying the raw body text.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %v", method, path, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) putJSON(ctx context.Context, path string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, path, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) delete(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, "", out)
}

// postMultipart sends form files and fields through the long-timeout
// client. The form is written through a pipe so file contents stream
// straight into the request; a multi-gigabyte recording is never held
// in memory whole.
func (c *Client) postMultipart(ctx context.Context, path string, files []UploadFile, fields map[string]string, out interface{}) error {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)

	go func() {
		for _, f := range files {
			part, err := w.CreateFormFile(f.Field, f.Name)
			if err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(part, f.Reader); err != nil {
				pw.CloseWithError(fmt.Errorf("read upload %s: %v", f.Name, err))
				return
			}
		}
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		pw.CloseWithError(w.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// DownloadFile fetches an artifact by server-relative or absolute URL.
// The caller must close the returned reader.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	target := fileURL
	if u, err := url.Parse(fileURL); err == nil && !u.IsAbs() {
		target = c.baseURL + fileURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	return resp.Body, nil
}
