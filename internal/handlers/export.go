package handlers

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/coursecut/dashboard/internal/export"
	"github.com/coursecut/dashboard/internal/storage"
)

// ExportHandler runs course-only exports and serves the results
type ExportHandler struct {
	hub  *Hub
	orch *export.Orchestrator
	db   *storage.TrackedJobDB
}

// NewExportHandler creates an export handler
func NewExportHandler(hub *Hub, orch *export.Orchestrator, db *storage.TrackedJobDB) *ExportHandler {
	return &ExportHandler{hub: hub, orch: orch, db: db}
}

var validKinds = map[export.Kind]bool{
	export.KindSRT:   true,
	export.KindVTT:   true,
	export.KindJSON:  true,
	export.KindVideo: true,
}

// Export produces one course-only artifact for a finished job. The
// session's full current segment list, edits included, is sent as the
// merge payload; the session itself is never modified, so a failed
// export loses nothing.
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	jobID := c.Params("id")

	var req struct {
		Kind string `json:"kind"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_BAD_REQUEST",
		})
	}
	kind := export.Kind(req.Kind)
	if !validKinds[kind] {
		return c.Status(400).JSON(fiber.Map{
			"error": "Unknown export kind: " + req.Kind,
			"code":  "ERR_BAD_KIND",
		})
	}

	view := h.hub.Open(jobID)
	snap, ok := view.Sync()
	if !ok || !snap.Terminal() {
		return c.Status(409).JSON(fiber.Map{
			"error": "Job has not finished processing",
			"code":  "ERR_NOT_FINISHED",
		})
	}

	result, err := h.orch.Export(c.Context(), jobID, snap.RecordingName, view.Session.Updates(), kind)
	if err != nil {
		log.Printf("Export failed: job=%s kind=%s: %v", jobID, kind, err)
		return c.Status(502).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_EXPORT_FAILED",
		})
	}

	return c.JSON(result)
}

// Artifacts lists the recorded exports for one job, newest first
func (h *ExportHandler) Artifacts(c *fiber.Ctx) error {
	artifacts, err := h.db.ListArtifacts(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_DB",
		})
	}
	if artifacts == nil {
		artifacts = []storage.Artifact{}
	}
	return c.JSON(fiber.Map{"artifacts": artifacts})
}

// Download streams a recorded artifact as a browser file download
func (h *ExportHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("id")
	filename := c.Params("filename")

	artifacts, err := h.db.ListArtifacts(jobID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_DB",
		})
	}

	for _, a := range artifacts {
		if a.Filename != filename {
			continue
		}
		if _, err := os.Stat(a.LocalPath); err != nil {
			return c.Status(410).JSON(fiber.Map{
				"error": "Artifact expired from local storage; export again",
				"code":  "ERR_ARTIFACT_EXPIRED",
			})
		}
		return c.Download(a.LocalPath, a.Filename)
	}

	return c.Status(404).JSON(fiber.Map{
		"error": "No such artifact",
		"code":  "ERR_NOT_FOUND",
	})
}
