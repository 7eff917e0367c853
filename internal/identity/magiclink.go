package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/diewo77/portfolio-pilot/internal/apperr"
)

// MagicLinkClient asks the identity provider to email a one-time sign-in
// link that lands on redirectTo.
type MagicLinkClient struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// NewMagicLinkClient returns a client for the provider at baseURL.
// An empty baseURL yields a client whose calls fail with a dependency error.
func NewMagicLinkClient(baseURL, anonKey string, timeout time.Duration) *MagicLinkClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MagicLinkClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type otpRequest struct {
	Email      string `json:"email"`
	CreateUser bool   `json:"create_user"`
}

// SendMagicLink posts an OTP request for email.
func (c *MagicLinkClient) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	if c.baseURL == "" {
		return apperr.Dependency("identity_not_configured", fmt.Errorf("identity provider URL is not set"))
	}
	body, err := json.Marshal(otpRequest{Email: email, CreateUser: true})
	if err != nil {
		return apperr.Internal("internal_error", err)
	}

	endpoint := c.baseURL + "/auth/v1/otp"
	if redirectTo != "" {
		endpoint += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return apperr.Internal("internal_error", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.Dependency("dependency_failure", fmt.Errorf("identity provider: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Dependency("dependency_failure",
			fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	return nil
}
