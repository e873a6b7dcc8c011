package worker

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of a job.
type JobType = string

const (
	JobClassify      JobType = "email.classify"
	JobClassifyBatch JobType = "email.classify_batch"
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

func NewMessage(jobType string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		CreatedAt: time.Now(),
		Retries:   0,
	}
}

// ClassifyPayload carries one email to classify.
type ClassifyPayload struct {
	Sender   string `json:"sender"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body,omitempty"`
	TextBody string `json:"text_body,omitempty"`
}

// ClassifyBatchPayload carries a batch of emails.
type ClassifyBatchPayload struct {
	Emails []ClassifyPayload `json:"emails"`
}
