package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"proxyline/internal/errors"
	"proxyline/internal/logger"
)

// BillingClient creates hosted checkout sessions with the payment provider.
type BillingClient interface {
	CreateCheckoutSession(ctx context.Context, priceRef, phone string) (string, error)
}

// CheckoutEvent is the completed-checkout callback payload. The phone the
// session was created for comes back as correlation metadata.
type CheckoutEvent struct {
	Type            string            `json:"type"`
	CustomerRef     string            `json:"customer"`
	SubscriptionRef string            `json:"subscription"`
	Metadata        map[string]string `json:"metadata"`
}

type billingClient struct {
	baseURL string
	apiKey  string
	dryRun  bool
	http    *http.Client
}

// NewBillingClient creates a payment provider client. With dryRun set (or no
// API key configured) session creation is logged and returns a fake URL.
func NewBillingClient(baseURL, apiKey string, dryRun bool) BillingClient {
	return &billingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		dryRun:  dryRun || apiKey == "",
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type checkoutSessionResponse struct {
	URL string `json:"url"`
}

func (c *billingClient) CreateCheckoutSession(ctx context.Context, priceRef, phone string) (string, error) {
	if c.dryRun {
		logger.Info("[billing][dry-run] create checkout session",
			zap.String("price", priceRef), zap.String("phone", phone))
		return "https://checkout.example.com/session/dry-run", nil
	}

	payload := map[string]interface{}{
		"price":    priceRef,
		"mode":     "subscription",
		"metadata": map[string]string{"phone": phone},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("billing provider unreachable", zap.Error(err))
		return "", errors.ErrProviderUnavailable
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		logger.Error("billing provider error", zap.Int("status", resp.StatusCode))
		return "", errors.ErrProviderUnavailable
	}

	var out checkoutSessionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("parse session response: %w", err)
	}
	return out.URL, nil
}

// WebhookVerifier authenticates completed-checkout callbacks. The signature
// header has the form "t=<unix>,v1=<hex>" where v1 is HMAC-SHA256 over
// "<unix>.<raw body>" keyed with the shared signing secret. The raw request
// bytes are the MAC input, so verification must run before JSON parsing.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier with the shared signing secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// VerifySignature checks the signature header against the raw payload.
func (v *WebhookVerifier) VerifySignature(payload []byte, header string) bool {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces a signature header for the payload. Used by tests and the
// dry-run tooling to fabricate authentic callbacks.
func (v *WebhookVerifier) Sign(payload []byte, at time.Time) string {
	timestamp := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// ParseEvent decodes a verified payload into a CheckoutEvent.
func ParseEvent(payload []byte) (*CheckoutEvent, error) {
	var event CheckoutEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("parse checkout event: %w", err)
	}
	return &event, nil
}
