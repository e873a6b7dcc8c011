package stream

import (
	"context"
	"time"

	"github.com/google/uuid"

	"classifier_server/core/domain"
)

type Producer struct {
	stream *RedisStream
}

func NewProducer(stream *RedisStream) *Producer {
	return &Producer{stream: stream}
}

type Job struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (p *Producer) PublishClassify(ctx context.Context, email domain.EmailInput) (string, error) {
	job := &Job{
		ID:   uuid.New().String(),
		Type: "email.classify",
		Payload: map[string]any{
			"sender":    email.Sender,
			"subject":   email.Subject,
			"html_body": email.HTMLBody,
			"text_body": email.TextBody,
		},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamClassify, job)
}

func (p *Producer) PublishClassifyBatch(ctx context.Context, emails []domain.EmailInput) (string, error) {
	items := make([]map[string]any, len(emails))
	for i, email := range emails {
		items[i] = map[string]any{
			"sender":    email.Sender,
			"subject":   email.Subject,
			"html_body": email.HTMLBody,
			"text_body": email.TextBody,
		}
	}

	job := &Job{
		ID:   uuid.New().String(),
		Type: "email.classify_batch",
		Payload: map[string]any{
			"emails": items,
		},
		CreatedAt: time.Now(),
	}
	return p.stream.Publish(ctx, StreamClassify, job)
}
