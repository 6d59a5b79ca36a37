package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbite-kitchen/quickbite-orders-service/internal/apperrors"
	"github.com/quickbite-kitchen/quickbite-orders-service/internal/models"
)

func checkoutCompletedBody(t *testing.T, orderID string) []byte {
	t.Helper()
	body, err := json.Marshal(GatewayEvent{
		ID:   "evt_1",
		Type: EventCheckoutCompleted,
		Data: GatewayEventData{OrderID: orderID, PaymentRef: "ch_123"},
	})
	require.NoError(t, err)
	return body
}

func TestProcessWebhook_MarksOrderPaid(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)
	id := resp.Order.ID

	err = env.webhook.ProcessWebhook(ctx, checkoutCompletedBody(t, id), "sig")
	require.NoError(t, err)

	order, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, models.PaymentStatusSucceeded, order.PaymentStatus)
	assert.Equal(t, "ch_123", order.GatewayRef)
	assert.Contains(t, env.publisher.published(), "order.paid")
}

func TestProcessWebhook_DuplicateDeliveryIsNoop(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)
	id := resp.Order.ID
	body := checkoutCompletedBody(t, id)

	require.NoError(t, env.webhook.ProcessWebhook(ctx, body, "sig"))
	require.NoError(t, env.webhook.ProcessWebhook(ctx, body, "sig"))
	require.NoError(t, env.webhook.ProcessWebhook(ctx, body, "sig"))

	order, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	// Only the first delivery published an event.
	paid := 0
	for _, e := range env.publisher.published() {
		if e == "order.paid" {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

func TestProcessWebhook_StaleEventAfterProgress(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)
	id := resp.Order.ID

	require.NoError(t, env.webhook.ProcessWebhook(ctx, checkoutCompletedBody(t, id), "sig"))
	_, err = env.orders.AdvanceStatus(ctx, id, models.OrderStatusPreparing, "staff")
	require.NoError(t, err)

	// A redelivered payment confirmation must not drag the order back.
	require.NoError(t, env.webhook.ProcessWebhook(ctx, checkoutCompletedBody(t, id), "sig"))

	order, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPreparing, order.Status)
}

func TestProcessWebhook_InvalidSignature(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)
	id := resp.Order.ID

	env.webhook.verifier = rejectingVerifier{}
	err = env.webhook.ProcessWebhook(ctx, checkoutCompletedBody(t, id), "bad")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)

	// No state change happened.
	order, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
}

func TestProcessWebhook_UnparsableBody(t *testing.T) {
	env := newTestEnv()

	err := env.webhook.ProcessWebhook(context.Background(), []byte("{not json"), "sig")
	var vErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestApplyGatewayEvent_MissingOrderID(t *testing.T) {
	env := newTestEnv()

	err := env.webhook.ApplyGatewayEvent(context.Background(), &GatewayEvent{
		ID:   "evt_2",
		Type: EventCheckoutCompleted,
	})
	assert.NoError(t, err)
}

func TestApplyGatewayEvent_UnknownType(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)

	err = env.webhook.ApplyGatewayEvent(ctx, &GatewayEvent{
		ID:   "evt_3",
		Type: "customer.updated",
		Data: GatewayEventData{OrderID: resp.Order.ID},
	})
	assert.NoError(t, err)

	order, err := env.orderRepo.GetByID(ctx, resp.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestApplyGatewayEvent_PaymentFailed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)
	id := resp.Order.ID

	err = env.webhook.ApplyGatewayEvent(ctx, &GatewayEvent{
		ID:   "evt_4",
		Type: EventPaymentFailed,
		Data: GatewayEventData{OrderID: id},
	})
	require.NoError(t, err)

	order, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	// Payment failure does not touch the order workflow status.
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)
}

func TestApplyGatewayEvent_ChargeRefunded(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)
	id := resp.Order.ID

	require.NoError(t, env.webhook.ProcessWebhook(ctx, checkoutCompletedBody(t, id), "sig"))

	err = env.webhook.ApplyGatewayEvent(ctx, &GatewayEvent{
		ID:   "evt_5",
		Type: EventChargeRefunded,
		Data: GatewayEventData{OrderID: id},
	})
	require.NoError(t, err)

	order, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, models.PaymentStatusRefunded, order.PaymentStatus)
	assert.Contains(t, env.publisher.published(), "order.cancelled")
}

func TestApplyGatewayEvent_RefundOnTerminalOrderIsNoop(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	resp, err := env.orders.CreateOrder(ctx, validCreateRequest())
	require.NoError(t, err)
	id := resp.Order.ID

	require.NoError(t, env.webhook.ProcessWebhook(ctx, checkoutCompletedBody(t, id), "sig"))
	_, err = env.pickup.HandleScan(ctx, resp.PickupPayload, "staff")
	require.NoError(t, err)

	err = env.webhook.ApplyGatewayEvent(ctx, &GatewayEvent{
		ID:   "evt_6",
		Type: EventChargeRefunded,
		Data: GatewayEventData{OrderID: id},
	})
	require.NoError(t, err)

	order, err := env.orderRepo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
}

type rejectingVerifier struct{}

func (rejectingVerifier) VerifyWebhookSignature(payload []byte, signature string) bool {
	return false
}
