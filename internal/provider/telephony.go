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

	"github.com/google/uuid"
	"go.uber.org/zap"

	"proxyline/internal/errors"
	"proxyline/internal/logger"
)

// TelephonyClient provisions forwarding numbers and delivers SMS.
type TelephonyClient interface {
	SearchNumbers(ctx context.Context, region string) ([]string, error)
	PurchaseNumber(ctx context.Context, number, voiceWebhookURL string) (string, error)
	SendMessage(ctx context.Context, to, body string) error
}

type telephonyClient struct {
	baseURL string
	apiKey  string
	dryRun  bool
	http    *http.Client
}

// NewTelephonyClient creates a telephony provider client. With dryRun set (or
// no API key configured) purchases and messages are logged and succeed with
// fabricated refs.
func NewTelephonyClient(baseURL, apiKey string, dryRun bool) TelephonyClient {
	return &telephonyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		dryRun:  dryRun || apiKey == "",
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type availableNumbersResponse struct {
	Numbers []struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"available_phone_numbers"`
}

type purchaseResponse struct {
	SID         string `json:"sid"`
	PhoneNumber string `json:"phone_number"`
}

func (c *telephonyClient) SearchNumbers(ctx context.Context, region string) ([]string, error) {
	if c.dryRun {
		logger.Info("[telephony][dry-run] search numbers", zap.String("region", region))
		return []string{"+15550100001"}, nil
	}

	endpoint := fmt.Sprintf("%s/available_numbers/%s/local", c.baseURL, url.PathEscape(region))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("telephony provider unreachable", zap.Error(err))
		return nil, errors.ErrProviderUnavailable
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		logger.Error("telephony search failed", zap.Int("status", resp.StatusCode))
		return nil, errors.ErrProviderUnavailable
	}

	var out availableNumbersResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	numbers := make([]string, 0, len(out.Numbers))
	for _, n := range out.Numbers {
		numbers = append(numbers, n.PhoneNumber)
	}
	if len(numbers) == 0 {
		return nil, errors.ErrNoNumbersAvailable
	}
	return numbers, nil
}

func (c *telephonyClient) PurchaseNumber(ctx context.Context, number, voiceWebhookURL string) (string, error) {
	if c.dryRun {
		ref := "PN" + uuid.NewString()
		logger.Info("[telephony][dry-run] purchase number",
			zap.String("number", number), zap.String("ref", ref))
		return ref, nil
	}

	form := url.Values{
		"PhoneNumber": {number},
		"VoiceUrl":    {voiceWebhookURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/incoming_phone_numbers", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("telephony provider unreachable", zap.Error(err))
		return "", errors.ErrProviderUnavailable
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		logger.Error("number purchase failed",
			zap.String("number", number), zap.Int("status", resp.StatusCode))
		return "", errors.ErrProviderUnavailable
	}

	var out purchaseResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse purchase response: %w", err)
	}
	return out.SID, nil
}

func (c *telephonyClient) SendMessage(ctx context.Context, to, body string) error {
	if c.dryRun {
		logger.Info("[telephony][dry-run] send message", zap.String("to", to), zap.String("body", body))
		return nil
	}

	form := url.Values{
		"To":   {to},
		"Body": {body},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("telephony provider unreachable", zap.Error(err))
		return errors.ErrProviderUnavailable
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain response: %w", err)
	}
	if resp.StatusCode >= 400 {
		logger.Error("message send failed", zap.String("to", to), zap.Int("status", resp.StatusCode))
		return errors.ErrProviderUnavailable
	}
	return nil
}
