package worker

import (
	"context"

	"classifier_server/core/domain"
	"classifier_server/core/port/in"
	"classifier_server/pkg/logger"
)

// ClassifyProcessor runs classification jobs pulled off the stream.
type ClassifyProcessor struct {
	service in.ClassifyService
	log     *logger.Logger
}

func NewClassifyProcessor(service in.ClassifyService, log *logger.Logger) *ClassifyProcessor {
	return &ClassifyProcessor{
		service: service,
		log:     log.WithField("component", "classify_processor"),
	}
}

func (p *ClassifyProcessor) ProcessClassify(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[ClassifyPayload](msg)
	if err != nil {
		return err
	}

	result, err := p.service.Classify(ctx, toEmailInput(*payload))
	if err != nil {
		return err
	}

	p.log.WithFields(map[string]any{
		"job_id":    msg.ID,
		"result_id": result.ID,
		"category":  result.Category,
	}).Debug("classify job done")
	return nil
}

func (p *ClassifyProcessor) ProcessClassifyBatch(ctx context.Context, msg *Message) error {
	payload, err := ParsePayload[ClassifyBatchPayload](msg)
	if err != nil {
		return err
	}

	emails := make([]domain.EmailInput, len(payload.Emails))
	for i, e := range payload.Emails {
		emails[i] = toEmailInput(e)
	}

	results, err := p.service.ClassifyBatch(ctx, emails)
	if err != nil {
		return err
	}

	p.log.WithFields(map[string]any{
		"job_id": msg.ID,
		"count":  len(results),
	}).Debug("classify batch done")
	return nil
}

func toEmailInput(p ClassifyPayload) domain.EmailInput {
	return domain.EmailInput{
		Sender:   p.Sender,
		Subject:  p.Subject,
		HTMLBody: p.HTMLBody,
		TextBody: p.TextBody,
	}
}
