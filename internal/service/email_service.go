package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// PointsReceipt - данные письма о начислении баллов
type PointsReceipt struct {
	SurveyTitle  string
	PointsEarned int
	TotalPoints  int64
}

// EmailService sends transactional emails.
type EmailService interface {
	SendWelcome(ctx context.Context, toEmail, name, idempotencyKey string) error
	SendPointsReceipt(ctx context.Context, toEmail string, receipt PointsReceipt, idempotencyKey string) error
}

// NoopEmailService is used when email delivery is disabled.
type NoopEmailService struct{}

func (s *NoopEmailService) SendWelcome(ctx context.Context, toEmail, name, idempotencyKey string) error {
	log.Printf("[EmailService] noop welcome to=%s", toEmail)
	return nil
}

func (s *NoopEmailService) SendPointsReceipt(ctx context.Context, toEmail string, receipt PointsReceipt, idempotencyKey string) error {
	log.Printf("[EmailService] noop points receipt to=%s points=%d", toEmail, receipt.PointsEarned)
	return nil
}

// ResendEmailService sends emails via Resend REST API.
type ResendEmailService struct {
	from       string
	maxRetries int
	client     *resend.Client
}

func NewResendEmailService(apiKey, from string, maxRetries int) (*ResendEmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if from == "" {
		return nil, fmt.Errorf("email from is required")
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ResendEmailService{
		from:       from,
		maxRetries: maxRetries,
		client:     resend.NewClient(apiKey),
	}, nil
}

func (s *ResendEmailService) SendWelcome(ctx context.Context, toEmail, name, idempotencyKey string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: "Welcome to Survey Rewards",
		Text:    fmt.Sprintf("Hi %s, thanks for joining! Complete surveys to earn points.", name),
		Html:    fmt.Sprintf("<p>Hi %s, thanks for joining!</p><p>Complete surveys to earn points.</p>", html.EscapeString(name)),
	}
	return s.send(ctx, params, idempotencyKey)
}

func (s *ResendEmailService) SendPointsReceipt(ctx context.Context, toEmail string, receipt PointsReceipt, idempotencyKey string) error {
	if toEmail == "" {
		return fmt.Errorf("toEmail is required")
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{toEmail},
		Subject: fmt.Sprintf("You earned %d points", receipt.PointsEarned),
		Text: fmt.Sprintf("Thanks for completing \"%s\". You earned %d points, your balance is now %d.",
			receipt.SurveyTitle, receipt.PointsEarned, receipt.TotalPoints),
		Html: fmt.Sprintf("<p>Thanks for completing <strong>%s</strong>.</p><p>You earned %d points, your balance is now %d.</p>",
			html.EscapeString(receipt.SurveyTitle), receipt.PointsEarned, receipt.TotalPoints),
	}
	return s.send(ctx, params, idempotencyKey)
}

func (s *ResendEmailService) send(ctx context.Context, params *resend.SendEmailRequest, idempotencyKey string) error {
	options := &resend.SendEmailOptions{}
	if strings.TrimSpace(idempotencyKey) != "" {
		options.IdempotencyKey = strings.TrimSpace(idempotencyKey)
	}

	var lastErr error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		_, err := s.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := resendRetryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		return fmt.Errorf("resend send failed: %w", err)
	}

	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

func resendRetryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	return 0, false
}

// sendAsync выполняет отправку письма в фоне, ошибки только логируются
func sendAsync(name string, send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(ctx); err != nil {
			log.Printf("[EmailService] Ошибка отправки письма %s: %v", name, err)
		}
	}()
}
