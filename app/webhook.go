package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BileulDevs/spotR-payement/app/stats"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	stripelib "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const webhookBodyLimit = 64 * 1024

// eventType is the closed set of provider events this service reconciles.
type eventType string

const (
	eventCheckoutCompleted   eventType = "checkout.session.completed"
	eventChargeUpdated       eventType = "charge.updated"
	eventInvoiceSucceeded    eventType = "invoice.payment_succeeded"
	eventInvoiceFailed       eventType = "invoice.payment_failed"
	eventSubscriptionDeleted eventType = "customer.subscription.deleted"
	eventSubscriptionUpdated eventType = "customer.subscription.updated"
)

// knownEventTypes pins the dispatch table; tests range over it to make sure
// every constant has a handler.
var knownEventTypes = []eventType{
	eventCheckoutCompleted,
	eventChargeUpdated,
	eventInvoiceSucceeded,
	eventInvoiceFailed,
	eventSubscriptionDeleted,
	eventSubscriptionUpdated,
}

// HandleWebhook verifies the provider signature and dispatches the event.
//
// The signature check is the hard boundary: everything before it works on
// raw bytes only, and a failure stops processing with a 400. Past it, the
// endpoint always acknowledges with 200 so that internal failures do not
// turn into provider redelivery storms; failed reconciliations are logged
// and pushed to the dead-letter queue instead.
func (h *PayHandler) HandleWebhook(c *gin.Context) {
	start := time.Now()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "corps de requête illisible"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		h.cfg.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		log.Error().Err(err).Msg("webhook: signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature invalide"})
		return
	}

	log.Info().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("webhook received")
	defer func() {
		stats.WebhookDuration.WithLabelValues(string(event.Type)).Observe(time.Since(start).Seconds())
	}()

	if err := h.dispatch(c, &event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("webhook reconciliation failed")
		stats.WebhookEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		if h.deadletter != nil {
			h.deadletter.Publish(c.Request.Context(), FailedEvent{
				EventID:    event.ID,
				EventType:  string(event.Type),
				Error:      err.Error(),
				ReceivedAt: start,
			})
		}
	} else {
		stats.WebhookEventsTotal.WithLabelValues(string(event.Type), "ok").Inc()
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *PayHandler) dispatch(c *gin.Context, event *stripelib.Event) error {
	ctx := c.Request.Context()

	switch eventType(event.Type) {
	case eventCheckoutCompleted:
		var sess webhookSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return h.reconcileCheckoutCompleted(ctx, sess)

	case eventChargeUpdated:
		var charge webhookCharge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return fmt.Errorf("decode charge: %w", err)
		}
		return h.reconcileChargeUpdated(ctx, charge)

	case eventInvoiceSucceeded:
		var invoice webhookInvoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return h.reconcileInvoiceSucceeded(ctx, invoice)

	case eventInvoiceFailed:
		var invoice webhookInvoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return h.reconcileInvoiceFailed(ctx, invoice)

	case eventSubscriptionDeleted:
		var sub webhookSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.reconcileSubscriptionDeleted(ctx, sub)

	case eventSubscriptionUpdated:
		var sub webhookSubscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return h.reconcileSubscriptionUpdated(ctx, sub)

	default:
		log.Info().Str("type", string(event.Type)).Str("event_id", event.ID).
			Msg("webhook ignored (unhandled type)")
		return nil
	}
}

// Minimal views of the provider event objects; only the fields the
// reconciliation handlers read.

type webhookSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

type webhookCharge struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	ReceiptURL    string `json:"receipt_url"`
	PaymentIntent string `json:"payment_intent"`
}

type webhookInvoice struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

type webhookSubscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
