package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultResendAPIURL = "https://api.resend.com"

var ErrAPIKeyRequired = errors.New("mail api key is required")

type ResendConfig struct {
	APIKey string
	APIURL string
	From   string
}

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	apiKey string
	apiURL string
	from   string
	client *http.Client
}

func NewResendSender(c ResendConfig, client *http.Client) *ResendSender {
	if c.APIURL == "" {
		c.APIURL = DefaultResendAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ResendSender{
		apiKey: c.APIKey,
		apiURL: strings.TrimRight(c.APIURL, "/"),
		from:   c.From,
		client: client,
	}
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if s.apiKey == "" {
		return ErrAPIKeyRequired
	}

	html, err := Render(msg)
	if err != nil {
		return err
	}

	body, err := json.Marshal(resendPayload{From: s.from, To: msg.To, Subject: msg.Subject, HTML: html})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}
