package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPMailer posts messages to a transactional mail provider's JSON API.
type HTTPMailer struct {
	url    string
	apiKey string
	from   string
	client *http.Client
}

func NewHTTPMailer(url, apiKey, from string, timeout time.Duration) *HTTPMailer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPMailer{url: url, apiKey: apiKey, from: from, client: &http.Client{Timeout: timeout}}
}

type mailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *HTTPMailer) Send(ctx context.Context, msg Message) Result {
	html, err := RenderBody(msg)
	if err != nil {
		return failed("render email: %v", err)
	}
	body, err := json.Marshal(mailPayload{From: m.from, To: []string{msg.To}, Subject: subject, HTML: html})
	if err != nil {
		return failed("encode email: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return failed("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return failed("mail provider unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return failed("mail provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return Result{Delivered: true}
}
