package worker

import (
	"context"

	"github.com/goccy/go-json"

	"classifier_server/pkg/logger"
)

type Handler struct {
	classifyProcessor *ClassifyProcessor
}

func NewHandler(classifyProcessor *ClassifyProcessor) *Handler {
	return &Handler{
		classifyProcessor: classifyProcessor,
	}
}

func (h *Handler) Process(ctx context.Context, msg *Message) error {
	logger.Debug("Processing message: %s", msg.Type)

	switch msg.Type {
	case JobClassify:
		return h.classifyProcessor.ProcessClassify(ctx, msg)
	case JobClassifyBatch:
		return h.classifyProcessor.ProcessClassifyBatch(ctx, msg)

	default:
		logger.Warn("Unknown job type: %s", msg.Type)
		return nil
	}
}

func ParsePayload[T any](msg *Message) (*T, error) {
	var payload T
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
