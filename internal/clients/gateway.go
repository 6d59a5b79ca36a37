package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

// ErrMissingWebhookSecret is returned by NewGatewayClient when the webhook
// secret is absent. The webhook endpoint must not serve without it.
var ErrMissingWebhookSecret = errors.New("gateway webhook secret is not configured")

// CheckoutSession is the hosted payment session created for an order. The
// customer is redirected to URL; the order id travels in session metadata and
// comes back on webhook events.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type createSessionRequest struct {
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

// GatewayClient talks to the hosted payment gateway over HTTP and verifies
// its webhook signatures.
type GatewayClient struct {
	baseURL       string
	httpClient    *http.Client
	apiKey        string
	webhookSecret []byte
	successURL    string
	cancelURL     string
	logger        *logrus.Entry
}

// NewGatewayClient creates a new payment gateway client. A missing webhook
// secret is a startup-time configuration error.
func NewGatewayClient(cfg config.GatewayConfig, logger *logrus.Logger) (*GatewayClient, error) {
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	return &GatewayClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:        cfg.APIKey,
		webhookSecret: []byte(cfg.WebhookSecret),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		logger:        logger.WithField("component", "gateway-client"),
	}, nil
}

// CreateCheckoutSession creates a hosted payment session for the order.
func (c *GatewayClient) CreateCheckoutSession(ctx context.Context, order *models.Order) (*CheckoutSession, error) {
	c.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"amount":   order.Total.Amount,
	}).Debug("Creating checkout session")

	body, err := json.Marshal(createSessionRequest{
		Amount:     order.Total.Amount,
		Currency:   order.Total.Currency,
		SuccessURL: c.successURL,
		CancelURL:  c.cancelURL,
		Metadata:   map[string]string{"order_id": order.ID},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/checkout/sessions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("order_id", order.ID).Error("Checkout session request failed")
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"session_id": session.ID,
	}).Info("Checkout session created")

	return &session, nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA256 signature over the
// raw webhook body. Comparison is constant time.
func (c *GatewayClient) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, c.webhookSecret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
