package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/config"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

// NotificationSender delivers customer-facing order notifications.
type NotificationSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	SendOrderReady(ctx context.Context, order *models.Order) error
}

var _ NotificationSender = (*HTTPNotificationClient)(nil)

// HTTPNotificationClient implements NotificationSender against the
// notification service.
type HTTPNotificationClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logrus.Entry
}

// NewHTTPNotificationClient creates a new HTTP-based notification client.
func NewHTTPNotificationClient(cfg config.ServiceConfig, logger *logrus.Logger) *HTTPNotificationClient {
	return &HTTPNotificationClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger.WithField("component", "notification-client"),
	}
}

type notificationRequest struct {
	Template    string `json:"template"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	OrderNumber int64  `json:"order_number"`
	Total       string `json:"total,omitempty"`
}

// SendOrderConfirmation notifies the customer their order was received.
func (c *HTTPNotificationClient) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	return c.send(ctx, notificationRequest{
		Template:    "order_confirmation",
		Email:       order.CustomerEmail,
		Phone:       order.CustomerPhone,
		OrderNumber: order.Number,
		Total:       fmt.Sprintf("%.2f %s", order.Total.ToFloat(), order.Total.Currency),
	})
}

// SendOrderReady notifies the customer their order is ready for pickup.
func (c *HTTPNotificationClient) SendOrderReady(ctx context.Context, order *models.Order) error {
	return c.send(ctx, notificationRequest{
		Template:    "order_ready",
		Email:       order.CustomerEmail,
		Phone:       order.CustomerPhone,
		OrderNumber: order.Number,
	})
}

func (c *HTTPNotificationClient) send(ctx context.Context, notification notificationRequest) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/notifications", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("template", notification.Template).Error("Failed to send notification")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("notification service returned status %d", resp.StatusCode)
	}

	c.logger.WithFields(logrus.Fields{
		"template":     notification.Template,
		"order_number": notification.OrderNumber,
	}).Info("Notification sent")

	return nil
}
