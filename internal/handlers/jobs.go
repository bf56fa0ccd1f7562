package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/coursecut/dashboard/internal/api"
	"github.com/coursecut/dashboard/internal/registry"
)

// JobsHandler serves the job list and lifecycle operations
type JobsHandler struct {
	registry  *registry.Registry
	hub       *Hub
	maxSizeMB int
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(reg *registry.Registry, hub *Hub, maxSizeMB int) *JobsHandler {
	return &JobsHandler{
		registry:  reg,
		hub:       hub,
		maxSizeMB: maxSizeMB,
	}
}

// List returns the current job summaries. The list converges in the
// background; a stale snapshot plus the last error is still served so
// the page never blanks on a transient backend failure.
func (h *JobsHandler) List(c *fiber.Ctx) error {
	jobs, _ := h.registry.Jobs()
	if jobs == nil {
		jobs = []registry.Summary{}
	}
	return c.JSON(fiber.Map{
		"jobs":    jobs,
		"loading": h.registry.Loading(),
		"error":   h.registry.Err(),
	})
}

// Refresh forces an immediate job list fetch
func (h *JobsHandler) Refresh(c *fiber.Ctx) error {
	jobs, err := h.registry.Refresh(c.Context())
	if err != nil {
		return c.Status(502).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_BACKEND",
		})
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

// Upload forwards one or more files to the processing backend and
// tracks the created jobs.
func (h *JobsHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No files uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "No files uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	var files []api.UploadFile
	var closers []func() error
	defer func() {
		for _, closeFile := range closers {
			closeFile()
		}
	}()

	for _, header := range headers {
		if header.Size > maxSize {
			return c.Status(400).JSON(fiber.Map{
				"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
				"code":  "ERR_FILE_TOO_LARGE",
			})
		}
		f, err := header.Open()
		if err != nil {
			log.Printf("Failed to open uploaded file %s: %v", header.Filename, err)
			return c.Status(500).JSON(fiber.Map{
				"error": "Failed to read upload",
				"code":  "ERR_READ_FAILED",
			})
		}
		closers = append(closers, f.Close)
		files = append(files, api.UploadFile{
			Field:  "files",
			Name:   header.Filename,
			Reader: f,
		})
	}

	cutClips := c.FormValue("cut_clips") != "false"
	ids, err := h.registry.Upload(c.Context(), files, cutClips)
	if err != nil {
		return c.Status(502).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_UPLOAD_FAILED",
		})
	}

	return c.JSON(fiber.Map{
		"job_ids": ids,
		"status":  "queued",
	})
}

// Start enqueues processing for already-uploaded recordings
func (h *JobsHandler) Start(c *fiber.Ctx) error {
	var req api.StartJobsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_BAD_REQUEST",
		})
	}

	ids, err := h.registry.StartProcessing(c.Context(), req)
	if err != nil {
		return c.Status(502).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_BACKEND",
		})
	}
	return c.JSON(fiber.Map{"job_ids": ids})
}

// Delete removes one job
func (h *JobsHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	purge := c.QueryBool("purge", false)

	if err := h.registry.Delete(c.Context(), id, purge); err != nil {
		return c.Status(502).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_DELETE_FAILED",
		})
	}
	h.hub.Release(id)
	return c.JSON(fiber.Map{"deleted": id})
}

// DeleteMany removes a batch of jobs, one backend call each. Partial
// failure is reported per id, never as an all-or-nothing error.
func (h *JobsHandler) DeleteMany(c *fiber.Ctx) error {
	var req struct {
		IDs   []string `json:"ids"`
		Purge bool     `json:"purge"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "No job ids given",
			"code":  "ERR_BAD_REQUEST",
		})
	}

	result := h.registry.DeleteMany(c.Context(), req.IDs, req.Purge)
	for _, id := range req.IDs {
		h.hub.Release(id)
	}
	return c.JSON(result)
}

// Detail returns the live view of one job, including its segment and
// clip lists once the job has finished.
func (h *JobsHandler) Detail(c *fiber.Ctx) error {
	id := c.Params("id")
	view := h.hub.Open(id)

	snap, ok := view.Sync()
	mediaURL, urlVersion := view.Detail.MediaURL()

	resp := fiber.Map{
		"loading":     view.Detail.Loading(),
		"error":       view.Detail.Err(),
		"media_url":   mediaURL,
		"url_version": urlVersion,
	}
	if ok {
		resp["job"] = snap
	}
	return c.JSON(resp)
}

// Release closes one job's live view
func (h *JobsHandler) Release(c *fiber.Ctx) error {
	h.hub.Release(c.Params("id"))
	return c.JSON(fiber.Map{"released": c.Params("id")})
}
