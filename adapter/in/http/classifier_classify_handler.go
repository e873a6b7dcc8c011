package http

import (
	"github.com/gofiber/fiber/v2"

	"classifier_server/core/domain"
	"classifier_server/core/port/in"
	"classifier_server/core/port/out"
	"classifier_server/internal/stream"
	"classifier_server/pkg/apperr"
	"classifier_server/pkg/response"
)

// ClassifyHandler exposes the classification pipeline over HTTP.
type ClassifyHandler struct {
	service  in.ClassifyService
	producer *stream.Producer
	store    out.ResultStore
}

func NewClassifyHandler(service in.ClassifyService, producer *stream.Producer, store out.ResultStore) *ClassifyHandler {
	return &ClassifyHandler{
		service:  service,
		producer: producer,
		store:    store,
	}
}

func (h *ClassifyHandler) Register(router fiber.Router) {
	router.Post("/classify", h.Classify)
	router.Post("/classify/async", h.ClassifyAsync)
	router.Post("/classify/batch", h.ClassifyBatch)
	router.Get("/results/:id", h.GetResult)
	router.Get("/results", h.QueryResults)
}

type classifyRequest struct {
	Sender   string `json:"sender"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	TextBody string `json:"text_body"`
}

func (r classifyRequest) toEmailInput() domain.EmailInput {
	return domain.EmailInput{
		Sender:   r.Sender,
		Subject:  r.Subject,
		HTMLBody: r.HTMLBody,
		TextBody: r.TextBody,
	}
}

func (r classifyRequest) validate() error {
	if r.Sender == "" {
		return apperr.MissingField("sender")
	}
	if r.HTMLBody == "" && r.TextBody == "" {
		return apperr.MissingField("html_body or text_body")
	}
	return nil
}

// Classify runs the pipeline synchronously and returns the result.
func (h *ClassifyHandler) Classify(c *fiber.Ctx) error {
	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	result, err := h.service.Classify(c.UserContext(), req.toEmailInput())
	if err != nil {
		return err
	}

	return response.OK(c, result)
}

// ClassifyAsync queues the email on the classify stream.
func (h *ClassifyHandler) ClassifyAsync(c *fiber.Ctx) error {
	if h.producer == nil {
		return apperr.ConfigError("async classification requires redis")
	}

	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}

	jobID, err := h.producer.PublishClassify(c.UserContext(), req.toEmailInput())
	if err != nil {
		return apperr.ExternalError("redis", err)
	}

	return response.Accepted(c, fiber.Map{"job_id": jobID})
}

type classifyBatchRequest struct {
	Emails []classifyRequest `json:"emails"`
}

// ClassifyBatch queues a batch, or runs it inline when no stream exists.
func (h *ClassifyHandler) ClassifyBatch(c *fiber.Ctx) error {
	var req classifyBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if len(req.Emails) == 0 {
		return apperr.MissingField("emails")
	}

	emails := make([]domain.EmailInput, len(req.Emails))
	for i, e := range req.Emails {
		if err := e.validate(); err != nil {
			return err
		}
		emails[i] = e.toEmailInput()
	}

	if h.producer != nil {
		jobID, err := h.producer.PublishClassifyBatch(c.UserContext(), emails)
		if err != nil {
			return apperr.ExternalError("redis", err)
		}
		return response.Accepted(c, fiber.Map{"job_id": jobID, "count": len(emails)})
	}

	results, err := h.service.ClassifyBatch(c.UserContext(), emails)
	if err != nil {
		return err
	}
	return response.OK(c, results)
}

// GetResult loads one stored result by ID.
func (h *ClassifyHandler) GetResult(c *fiber.Ctx) error {
	if h.store == nil {
		return apperr.ConfigError("result store not configured")
	}

	id := c.Params("id")
	result, err := h.store.Get(c.UserContext(), id)
	if err != nil {
		return apperr.DatabaseError("get result", err)
	}
	if result == nil {
		return apperr.NotFound("result")
	}

	return response.OK(c, result)
}

// QueryResults lists stored results for a sender domain.
func (h *ClassifyHandler) QueryResults(c *fiber.Ctx) error {
	if h.store == nil {
		return apperr.ConfigError("result store not configured")
	}

	senderDomain := c.Query("domain")
	if senderDomain == "" {
		return apperr.MissingField("domain")
	}

	pagination := response.GetPagination(c, 50, 200)

	filter := out.ResultFilter{
		Category: domain.Category(c.Query("category")),
		Limit:    pagination.Limit,
		Offset:   pagination.Offset,
	}

	results, err := h.store.QueryByDomain(c.UserContext(), senderDomain, filter)
	if err != nil {
		return apperr.DatabaseError("query results", err)
	}

	return response.OKWithMeta(c, results, &response.Meta{
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		Total:    len(results),
		HasMore:  len(results) == pagination.Limit,
	})
}
