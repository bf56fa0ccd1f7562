package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/coursecut/dashboard/internal/api"
)

// backendError maps an upstream failure onto the dashboard response,
// passing the backend's own message through verbatim.
func backendError(c *fiber.Ctx, err error) error {
	status := 502
	if apiErr, ok := err.(*api.Error); ok && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		status = apiErr.StatusCode
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  "ERR_BACKEND",
	})
}

// RecordingsHandler proxies recording management to the backend
type RecordingsHandler struct {
	client *api.Client
}

// NewRecordingsHandler creates a recordings handler
func NewRecordingsHandler(client *api.Client) *RecordingsHandler {
	return &RecordingsHandler{client: client}
}

// List returns all recordings known to the backend
func (h *RecordingsHandler) List(c *fiber.Ctx) error {
	recordings, err := h.client.ListRecordings(c.Context())
	if err != nil {
		return backendError(c, err)
	}
	if recordings == nil {
		recordings = []api.Recording{}
	}
	return c.JSON(fiber.Map{"recordings": recordings})
}

// Delete removes one recording, optionally cascading to its jobs
func (h *RecordingsHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	cascade := c.QueryBool("cascade", false)
	if err := h.client.DeleteRecording(c.Context(), id, cascade); err != nil {
		return backendError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// GlossaryHandler proxies glossary management to the backend
type GlossaryHandler struct {
	client *api.Client
}

// NewGlossaryHandler creates a glossary handler
func NewGlossaryHandler(client *api.Client) *GlossaryHandler {
	return &GlossaryHandler{client: client}
}

// Info returns glossary availability for a language
func (h *GlossaryHandler) Info(c *fiber.Ctx) error {
	resp, err := h.client.GetGlossaryInfo(c.Context(), c.Params("lang"))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(resp)
}

// Words returns the glossary word list for a language
func (h *GlossaryHandler) Words(c *fiber.Ctx) error {
	resp, err := h.client.GetGlossaryWords(c.Context(), c.Params("lang"))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(resp)
}

// AddWord appends one word to a language's glossary
func (h *GlossaryHandler) AddWord(c *fiber.Ctx) error {
	var req struct {
		Word string `json:"word"`
	}
	if err := c.BodyParser(&req); err != nil || req.Word == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "No word given",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	resp, err := h.client.AddGlossaryWord(c.Context(), c.Params("lang"), req.Word)
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(resp)
}

// DeleteWord removes one word from a language's glossary
func (h *GlossaryHandler) DeleteWord(c *fiber.Ctx) error {
	resp, err := h.client.DeleteGlossaryWord(c.Context(), c.Params("lang"), c.Params("word"))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(resp)
}

// DeleteAll clears a language's glossary
func (h *GlossaryHandler) DeleteAll(c *fiber.Ctx) error {
	resp, err := h.client.DeleteAllGlossaryWords(c.Context(), c.Params("lang"))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(resp)
}

// Upload replaces a language's glossary from an uploaded file
func (h *GlossaryHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}
	f, err := header.Open()
	if err != nil {
		log.Printf("Failed to open glossary upload %s: %v", header.Filename, err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read upload",
			"code":  "ERR_READ_FAILED",
		})
	}
	defer f.Close()

	resp, err := h.client.UploadGlossary(c.Context(), c.Params("lang"), api.UploadFile{
		Field:  "file",
		Name:   header.Filename,
		Reader: f,
	})
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(resp)
}

// RunsHandler proxies paper parse run review to the parser backend
type RunsHandler struct {
	client *api.Client
}

// NewRunsHandler creates a parse run handler
func NewRunsHandler(client *api.Client) *RunsHandler {
	return &RunsHandler{client: client}
}

func runsQuery(c *fiber.Ctx) api.RunsQuery {
	return api.RunsQuery{
		Status:    c.Query("status"),
		TaskState: c.Query("task_state"),
		Limit:     c.QueryInt("limit", 0),
		Offset:    c.QueryInt("offset", 0),
	}
}

// List returns parse runs matching the query filters
func (h *RunsHandler) List(c *fiber.Ctx) error {
	runs, err := h.client.ListRuns(c.Context(), runsQuery(c))
	if err != nil {
		return backendError(c, err)
	}
	if runs == nil {
		runs = []api.Run{}
	}
	return c.JSON(fiber.Map{"runs": runs})
}

// Count returns the number of parse runs matching the query filters
func (h *RunsHandler) Count(c *fiber.Ctx) error {
	count, err := h.client.CountRuns(c.Context(), runsQuery(c))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

// Get returns one parse run with its paper, metadata and elements
func (h *RunsHandler) Get(c *fiber.Ctx) error {
	run, err := h.client.GetRun(c.Context(), c.Params("id"))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(run)
}

// UpdateMetadata saves corrected metadata for a run, creating a new
// version upstream.
func (h *RunsHandler) UpdateMetadata(c *fiber.Ctx) error {
	var metadata map[string]interface{}
	if err := c.BodyParser(&metadata); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid metadata body",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	updated, err := h.client.UpdateRunMetadata(c.Context(), c.Params("id"), metadata)
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(updated)
}

// Versions lists the saved metadata versions of a run
func (h *RunsHandler) Versions(c *fiber.Ctx) error {
	versions, err := h.client.RunVersions(c.Context(), c.Params("id"))
	if err != nil {
		return backendError(c, err)
	}
	if versions == nil {
		versions = []api.MetadataVersion{}
	}
	return c.JSON(fiber.Map{"versions": versions})
}

// VersionContent returns the metadata stored in one version
func (h *RunsHandler) VersionContent(c *fiber.Ctx) error {
	content, err := h.client.RunVersionContent(c.Context(), c.Params("id"), c.Params("versionId"))
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(content)
}

// Retry re-enqueues one failed run
func (h *RunsHandler) Retry(c *fiber.Ctx) error {
	if err := h.client.RetryRun(c.Context(), c.Params("id")); err != nil {
		return backendError(c, err)
	}
	return c.JSON(fiber.Map{"retried": c.Params("id")})
}

// RetryAllFailed re-enqueues every failed run
func (h *RunsHandler) RetryAllFailed(c *fiber.Ctx) error {
	count, err := h.client.RetryAllFailed(c.Context())
	if err != nil {
		return backendError(c, err)
	}
	return c.JSON(fiber.Map{"retried": count})
}
