package app

import (
	"context"
	"errors"
	"strconv"

	"github.com/BileulDevs/spotR-payement/app/bdd"
	"github.com/BileulDevs/spotR-payement/app/mailer"
	"github.com/BileulDevs/spotR-payement/app/models"
	"github.com/rs/zerolog/log"
)

const (
	defaultDurationDays = 30
	renewalDays         = 30
)

// reconcileCheckoutCompleted turns a completed checkout into the user's one
// subscription record: created if the user has none, replaced in place
// otherwise. The resulting subscription id is written back into the payment
// intent's metadata so the later charge.updated event can find it without a
// data-service round trip.
func (h *PayHandler) reconcileCheckoutCompleted(ctx context.Context, sess webhookSession) error {
	userID := sess.Metadata["userId"]
	premiumID := sess.Metadata["premiumId"]
	if userID == "" || premiumID == "" {
		log.Error().Str("session_id", sess.ID).Msg("checkout.session.completed: metadata missing userId/premiumId")
		return nil
	}

	if _, err := h.bdd.GetPremium(ctx, premiumID); err != nil {
		return err
	}

	duration := defaultDurationDays
	if d, err := strconv.Atoi(sess.Metadata["duration"]); err == nil && d > 0 {
		duration = d
	}

	transactionID := sess.PaymentIntent
	if transactionID == "" {
		transactionID = sess.ID
	}

	startDate := h.now()
	sub := models.Subscription{
		UserID:        userID,
		PremiumID:     premiumID,
		Status:        models.StatusActive,
		StartDate:     startDate,
		EndDate:       startDate.AddDate(0, 0, duration),
		Price:         sess.AmountTotal,
		AutoRenew:     true,
		PaymentMethod: "credit_card",
		TransactionID: transactionID,
		Duration:      duration,
	}

	user, err := h.bdd.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	var saved *models.Subscription
	if user.Subscription != nil && user.Subscription.ID != "" {
		sub.ID = user.Subscription.ID
		saved, err = h.bdd.UpdateSubscription(ctx, user.Subscription.ID, sub)
	} else {
		saved, err = h.bdd.CreateSubscription(ctx, sub)
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("user_id", userID).
		Str("subscription_id", saved.ID).
		Msg("subscription reconciled from checkout")

	if sess.PaymentIntent != "" {
		err := h.provider.UpdatePaymentIntentMetadata(ctx, sess.PaymentIntent, map[string]string{
			"subscriptionId":     saved.ID,
			"subscriptionStatus": string(saved.Status),
		})
		if err != nil {
			// The charge.updated handler still has its fallback chain.
			log.Warn().Err(err).Str("payment_intent", sess.PaymentIntent).
				Msg("could not tag payment intent with subscription id")
		}
	}
	return nil
}

// reconcileChargeUpdated reacts to a succeeded charge whose receipt URL is
// ready: it resolves the subscription through a three-step lookup chain
// (payment-intent metadata, then session list, then email + active
// subscription), sends the receipt email and persists the receipt URL.
func (h *PayHandler) reconcileChargeUpdated(ctx context.Context, charge webhookCharge) error {
	if charge.Status != "succeeded" || charge.ReceiptURL == "" {
		return nil
	}

	var (
		sub       *models.Subscription
		email     string
		username  string
		planTitle string
	)

	if charge.PaymentIntent != "" {
		md, err := h.provider.PaymentIntentMetadata(ctx, charge.PaymentIntent)
		if err != nil {
			log.Warn().Err(err).Str("payment_intent", charge.PaymentIntent).
				Msg("charge.updated: payment intent lookup failed")
		} else if id := md["subscriptionId"]; id != "" {
			if s, err := h.bdd.GetSubscription(ctx, id); err == nil {
				sub = s
			} else {
				log.Warn().Err(err).Str("subscription_id", id).
					Msg("charge.updated: tagged subscription not resolvable")
			}
		}
	}

	if sub == nil && charge.PaymentIntent != "" {
		sessions, err := h.provider.SessionsByPaymentIntent(ctx, charge.PaymentIntent)
		if err != nil {
			log.Warn().Err(err).Str("payment_intent", charge.PaymentIntent).
				Msg("charge.updated: session list failed")
		} else if len(sessions) > 0 {
			email = sessions[0].Metadata["userEmail"]
			if pid := sessions[0].Metadata["premiumId"]; pid != "" {
				if p, err := h.bdd.GetPremium(ctx, pid); err == nil {
					planTitle = p.Title
				}
			}
			if s, err := h.bdd.FindByTransactionID(ctx, charge.PaymentIntent); err == nil {
				sub = s
			}
		}
	}

	if sub == nil && email != "" {
		if s, err := h.bdd.FindActiveByEmail(ctx, email); err == nil {
			sub = s
		}
	}

	if sub == nil && email == "" {
		log.Warn().Str("charge_id", charge.ID).Msg("charge.updated: no subscription matched")
		return nil
	}

	if sub != nil && (email == "" || planTitle == "") {
		if user, err := h.bdd.GetUser(ctx, sub.UserID); err == nil {
			if email == "" {
				email = user.Email
			}
			username = user.Username
		}
		if planTitle == "" {
			if p, err := h.bdd.GetPremium(ctx, sub.PremiumID); err == nil {
				planTitle = p.Title
			}
		}
	}
	if planTitle == "" {
		planTitle = "Premium"
	}

	if email != "" {
		err := h.mailer.SendSubscriptionReceipt(ctx, mailer.ReceiptEmail{
			To:         email,
			ReceiptURL: charge.ReceiptURL,
			Username:   username,
			Plan:       planTitle,
		})
		if err != nil {
			return err
		}
		log.Info().Str("charge_id", charge.ID).Str("to", email).Msg("receipt email sent")
	}

	if sub != nil {
		receiptURL := charge.ReceiptURL
		if err := h.bdd.PatchSubscription(ctx, sub.ID, bdd.SubscriptionPatch{ReceiptURL: &receiptURL}); err != nil {
			return err
		}
	}
	return nil
}

// reconcileInvoiceSucceeded extends a renewed subscription by a fixed term.
func (h *PayHandler) reconcileInvoiceSucceeded(ctx context.Context, invoice webhookInvoice) error {
	if invoice.Subscription == "" {
		return nil
	}

	sub, err := h.bdd.FindByTransactionID(ctx, invoice.Subscription)
	if errors.Is(err, bdd.ErrNotFound) {
		log.Warn().Str("invoice_id", invoice.ID).Str("transaction_id", invoice.Subscription).
			Msg("invoice.payment_succeeded: no matching subscription")
		return nil
	}
	if err != nil {
		return err
	}

	if err := h.bdd.RenewSubscription(ctx, sub.ID, renewalDays); err != nil {
		return err
	}
	log.Info().Str("subscription_id", sub.ID).Str("user_id", sub.UserID).Msg("subscription renewed")
	return nil
}

// reconcileInvoiceFailed deactivates the subscription and stops auto-renew.
func (h *PayHandler) reconcileInvoiceFailed(ctx context.Context, invoice webhookInvoice) error {
	if invoice.Subscription == "" {
		return nil
	}

	sub, err := h.bdd.FindByTransactionID(ctx, invoice.Subscription)
	if errors.Is(err, bdd.ErrNotFound) {
		log.Warn().Str("invoice_id", invoice.ID).Str("transaction_id", invoice.Subscription).
			Msg("invoice.payment_failed: no matching subscription")
		return nil
	}
	if err != nil {
		return err
	}

	status := models.StatusInactive
	autoRenew := false
	if err := h.bdd.PatchSubscription(ctx, sub.ID, bdd.SubscriptionPatch{Status: &status, AutoRenew: &autoRenew}); err != nil {
		return err
	}
	log.Warn().Str("subscription_id", sub.ID).Str("user_id", sub.UserID).
		Msg("subscription deactivated after payment failure")
	return nil
}

// reconcileSubscriptionDeleted cancels the local subscription.
func (h *PayHandler) reconcileSubscriptionDeleted(ctx context.Context, provider webhookSubscription) error {
	sub, err := h.bdd.FindByTransactionID(ctx, provider.ID)
	if errors.Is(err, bdd.ErrNotFound) {
		log.Warn().Str("transaction_id", provider.ID).
			Msg("customer.subscription.deleted: no matching subscription")
		return nil
	}
	if err != nil {
		return err
	}

	if err := h.bdd.CancelSubscription(ctx, sub.ID); err != nil {
		return err
	}
	log.Info().Str("subscription_id", sub.ID).Str("user_id", sub.UserID).Msg("subscription cancelled")
	return nil
}

// reconcileSubscriptionUpdated maps the provider status onto the local one.
func (h *PayHandler) reconcileSubscriptionUpdated(ctx context.Context, provider webhookSubscription) error {
	sub, err := h.bdd.FindByTransactionID(ctx, provider.ID)
	if errors.Is(err, bdd.ErrNotFound) {
		log.Warn().Str("transaction_id", provider.ID).
			Msg("customer.subscription.updated: no matching subscription")
		return nil
	}
	if err != nil {
		return err
	}

	status := mapProviderStatus(provider.Status)
	if err := h.bdd.PatchSubscription(ctx, sub.ID, bdd.SubscriptionPatch{Status: &status}); err != nil {
		return err
	}
	log.Info().Str("subscription_id", sub.ID).Str("status", string(status)).Msg("subscription status updated")
	return nil
}

// mapProviderStatus translates a provider subscription status into the local
// status set. Anything not explicitly handled counts as active.
func mapProviderStatus(status string) models.SubscriptionStatus {
	switch status {
	case "canceled":
		return models.StatusCancelled
	case "past_due":
		return models.StatusInactive
	default:
		return models.StatusActive
	}
}
