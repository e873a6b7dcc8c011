package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"classifier_server/core/domain"
)

// ClassificationOutput is the JSON shape the model is asked to produce.
type ClassificationOutput struct {
	Category        string  `json:"category"`
	Confidence      float64 `json:"confidence"`
	BusinessName    string  `json:"business_name"`
	BusinessWebsite string  `json:"business_website"`
	Industry        string  `json:"industry"`
	Location        string  `json:"location"`
}

const classifySystemPrompt = `You are an email classification assistant.
Classify the email into exactly one category:
- marketing: promotions, newsletters, sales offers
- transactional: orders, receipts, invoices, account notices
- survey: feedback requests, questionnaires, review prompts
- personal: individual correspondence with no business intent
- customer_support: support tickets, help requests, issue follow-ups

Also identify the sending business if one exists.
Respond with a JSON object only:
{"category": "...", "confidence": 0.0-1.0, "business_name": "...", "business_website": "...", "industry": "...", "location": "..."}
Use empty strings for fields you cannot determine.`

// ClassifyEmail asks the model to classify anonymized email content.
func (c *Client) ClassifyEmail(ctx context.Context, content string, meta domain.EmailMetadata) (*ClassificationOutput, error) {
	var sb strings.Builder
	sb.WriteString("Email content:\n")
	sb.WriteString(content)
	sb.WriteString("\n\nSender domain: ")
	sb.WriteString(meta.SenderDomain)
	if meta.Footer != "" {
		sb.WriteString("\nFooter:\n")
		sb.WriteString(meta.Footer)
	}
	if len(meta.URLs) > 0 {
		sb.WriteString("\nURLs: ")
		sb.WriteString(strings.Join(meta.URLs, ", "))
	}

	raw, err := c.CompleteWithSystem(ctx, classifySystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	output, err := parseClassificationOutput(raw)
	if err != nil {
		return nil, fmt.Errorf("parse classification: %w", err)
	}

	return output, nil
}

func parseClassificationOutput(raw string) (*ClassificationOutput, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var output ClassificationOutput
	if err := json.Unmarshal([]byte(cleaned), &output); err != nil {
		return nil, err
	}

	if output.Confidence < 0 {
		output.Confidence = 0
	}
	if output.Confidence > 1 {
		output.Confidence = 1
	}

	return &output, nil
}
