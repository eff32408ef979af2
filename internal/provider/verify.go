package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"proxyline/internal/errors"
	"proxyline/internal/logger"
)

// VerificationClient sends one-time codes and checks them. Codes are issued
// and validated entirely by the hosted provider; this service never sees them
// except as opaque input to CheckCode.
type VerificationClient interface {
	SendCode(ctx context.Context, phone string) error
	CheckCode(ctx context.Context, phone, code string) (bool, error)
}

type verifyClient struct {
	baseURL string
	apiKey  string
	dryRun  bool
	http    *http.Client
}

// NewVerificationClient creates a verification provider client. With dryRun
// set (or no API key configured) calls are logged and succeed locally.
func NewVerificationClient(baseURL, apiKey string, dryRun bool) VerificationClient {
	return &verifyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		dryRun:  dryRun || apiKey == "",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyResponse struct {
	Status string `json:"status"`
	SID    string `json:"sid"`
}

func (c *verifyClient) SendCode(ctx context.Context, phone string) error {
	if c.dryRun {
		logger.Info("[verify][dry-run] send code", zap.String("phone", phone))
		return nil
	}

	form := url.Values{
		"To":      {phone},
		"Channel": {"sms"},
	}
	var out verifyResponse
	if err := c.postForm(ctx, "/verifications", form, &out); err != nil {
		return err
	}
	logger.Debug("verification started", zap.String("phone", phone), zap.String("sid", out.SID))
	return nil
}

func (c *verifyClient) CheckCode(ctx context.Context, phone, code string) (bool, error) {
	if c.dryRun {
		logger.Info("[verify][dry-run] check code", zap.String("phone", phone))
		return true, nil
	}

	form := url.Values{
		"To":   {phone},
		"Code": {code},
	}
	var out verifyResponse
	if err := c.postForm(ctx, "/verification_checks", form, &out); err != nil {
		return false, err
	}
	return out.Status == "approved", nil
}

func (c *verifyClient) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("verification provider unreachable", zap.String("path", path), zap.Error(err))
		return errors.ErrProviderUnavailable
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		logger.Error("verification provider error", zap.Int("status", resp.StatusCode))
		return errors.ErrProviderUnavailable
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("verification provider: status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
