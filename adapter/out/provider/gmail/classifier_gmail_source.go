// Package gmail provides the Gmail ingestion source. It polls a mailbox
// and publishes unread messages onto the classify stream.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"classifier_server/core/domain"
	"classifier_server/internal/stream"
	"classifier_server/pkg/logger"
)

// SourceConfig holds Gmail ingestion settings.
type SourceConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	PollInterval time.Duration
	Query        string
}

// Source polls Gmail and feeds the classify stream.
type Source struct {
	service  *gmail.Service
	producer *stream.Producer
	cfg      SourceConfig
	log      *logger.Logger
}

// NewSource creates a Gmail ingestion source from an offline refresh token.
func NewSource(ctx context.Context, cfg SourceConfig, producer *stream.Producer, log *logger.Logger) (*Source, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("gmail source requires client credentials and a refresh token")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.Query == "" {
		cfg.Query = "is:unread"
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailModifyScope},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	client := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Source{
		service:  service,
		producer: producer,
		cfg:      cfg,
		log:      log.WithField("component", "gmail_source"),
	}, nil
}

// Run polls until the context is cancelled.
func (s *Source) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.log.WithField("interval", s.cfg.PollInterval.String()).Info("gmail ingestion started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("gmail ingestion stopped")
			return
		case <-ticker.C:
			if err := s.poll(ctx); err != nil {
				s.log.WithError(err).Warn("gmail poll failed")
			}
		}
	}
}

func (s *Source) poll(ctx context.Context) error {
	list, err := s.service.Users.Messages.List("me").
		Q(s.cfg.Query).
		MaxResults(25).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	for _, ref := range list.Messages {
		msg, err := s.service.Users.Messages.Get("me", ref.Id).
			Format("full").
			Context(ctx).
			Do()
		if err != nil {
			s.log.WithError(err).WithField("message_id", ref.Id).Warn("fetch message failed")
			continue
		}

		email := toEmailInput(msg)
		if _, err := s.producer.PublishClassify(ctx, email); err != nil {
			s.log.WithError(err).WithField("message_id", ref.Id).Warn("publish failed")
			continue
		}

		// Mark processed so the next poll skips it.
		_, err = s.service.Users.Messages.Modify("me", ref.Id, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{"UNREAD"},
		}).Context(ctx).Do()
		if err != nil {
			s.log.WithError(err).WithField("message_id", ref.Id).Warn("mark read failed")
		}
	}

	return nil
}

// toEmailInput maps a Gmail message onto the pipeline's input shape.
func toEmailInput(msg *gmail.Message) domain.EmailInput {
	email := domain.EmailInput{}

	if msg.Payload == nil {
		return email
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			email.Sender = header.Value
		case "Subject":
			email.Subject = header.Value
		}
	}

	html, text := extractBodies(msg.Payload)
	email.HTMLBody = html
	email.TextBody = text
	if email.TextBody == "" && email.HTMLBody == "" {
		email.TextBody = msg.Snippet
	}

	return email
}

func extractBodies(part *gmail.MessagePart) (html, text string) {
	if part == nil {
		return "", ""
	}

	if part.Body != nil && part.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			switch {
			case strings.HasPrefix(part.MimeType, "text/html"):
				return string(decoded), ""
			case strings.HasPrefix(part.MimeType, "text/plain"):
				return "", string(decoded)
			}
		}
	}

	for _, child := range part.Parts {
		childHTML, childText := extractBodies(child)
		if html == "" {
			html = childHTML
		}
		if text == "" {
			text = childText
		}
		if html != "" && text != "" {
			break
		}
	}

	return html, text
}
