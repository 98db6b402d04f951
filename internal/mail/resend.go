// Package mail provides the Resend transactional email API client.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
	"github.com/tkmserwis/inspektor/internal/models"
)

// ResendConfig holds Resend API connection configuration.
type ResendConfig struct {
	Endpoint string // https://api.resend.com/emails
	APIKey   string
	From     string // fixed sender, e.g. "Serwis <serwis@example.com>"
	Timeout  time.Duration
}

// ResendClient implements Sender against the Resend HTTP API.
type ResendClient struct {
	config     *ResendConfig
	httpClient *http.Client
}

// NewResendClient creates a new ResendClient.
func NewResendClient(config *ResendConfig) *ResendClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ResendClient{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
	}
}

// sendRequest mirrors the Resend /emails payload. Attachment content
// stays base64-encoded, exactly as stored in the queue.
type sendRequest struct {
	From        string              `json:"from"`
	To          []string            `json:"to"`
	Subject     string              `json:"subject"`
	HTML        string              `json:"html"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// Send posts the queued job to the Resend API. Any transport fault or
// non-2xx response is reported as REMOTE_SEND_FAILED; the caller
// decides whether to retry.
func (c *ResendClient) Send(ctx context.Context, item *models.QueueItem) error {
	payload := sendRequest{
		From:        c.config.From,
		To:          []string{item.Recipient},
		Subject:     item.Subject,
		HTML:        item.HTML,
		Attachments: item.Attachments,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteSendFailed, "failed to encode send request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteSendFailed, "failed to build send request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteSendFailed, "send request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The response body carries the provider's rejection reason;
		// cap it so a misbehaving proxy can't flood the log.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperrors.New(apperrors.ErrRemoteSendFailed,
			fmt.Sprintf("remote rejected send with status %d: %s", resp.StatusCode, string(detail)))
	}

	return nil
}
