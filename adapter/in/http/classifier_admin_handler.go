package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"classifier_server/core/port/out"
	"classifier_server/pkg/apperr"
	"classifier_server/pkg/response"
)

// AdminHandler exposes vector index maintenance and the audit trail.
// Routes are expected to sit behind ServiceAuth.
type AdminHandler struct {
	index out.VectorIndex
	audit out.AuditStore
}

func NewAdminHandler(index out.VectorIndex, audit out.AuditStore) *AdminHandler {
	return &AdminHandler{
		index: index,
		audit: audit,
	}
}

func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/index/stats", h.IndexStats)
	router.Delete("/index/entries/:id", h.DeleteEntry)
	router.Post("/index/prune", h.PruneIndex)
	router.Get("/audit", h.ListAudit)
}

// IndexStats reports backend and entry count.
func (h *AdminHandler) IndexStats(c *fiber.Ctx) error {
	stats, err := h.index.Stats(c.UserContext())
	if err != nil {
		return apperr.DatabaseError("index stats", err)
	}
	return response.OK(c, stats)
}

// DeleteEntry removes one vector entry by ID.
func (h *AdminHandler) DeleteEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.index.Delete(c.UserContext(), id); err != nil {
		return apperr.DatabaseError("delete entry", err)
	}
	return response.NoContent(c)
}

type pruneRequest struct {
	OlderThanHours int `json:"older_than_hours"`
}

// PruneIndex drops entries older than the requested age.
func (h *AdminHandler) PruneIndex(c *fiber.Ctx) error {
	var req pruneRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if req.OlderThanHours <= 0 {
		return apperr.InvalidInput("older_than_hours", "must be positive")
	}

	cutoff := time.Now().Add(-time.Duration(req.OlderThanHours) * time.Hour)
	removed, err := h.index.Prune(c.UserContext(), cutoff)
	if err != nil {
		return apperr.DatabaseError("prune index", err)
	}

	return response.OK(c, fiber.Map{"removed": removed})
}

// ListAudit returns the most recent pipeline runs.
func (h *AdminHandler) ListAudit(c *fiber.Ctx) error {
	if h.audit == nil {
		return apperr.ConfigError("audit store not configured")
	}

	limit := c.QueryInt("limit", 50)
	records, err := h.audit.ListRecent(c.UserContext(), limit)
	if err != nil {
		return apperr.DatabaseError("list audit", err)
	}

	return response.OK(c, records)
}
