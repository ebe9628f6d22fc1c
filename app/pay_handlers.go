package app

import (
	"net/http"
	"time"

	"github.com/BileulDevs/spotR-payement/app/bdd"
	"github.com/BileulDevs/spotR-payement/app/config"
	"github.com/BileulDevs/spotR-payement/app/mailer"
	"github.com/BileulDevs/spotR-payement/app/models"
	"github.com/BileulDevs/spotR-payement/app/stats"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const errMissingIDs = "userId et premiumId sont requis pour créer une session de paiement"

// PayHandler serves the checkout and webhook endpoints. All collaborators
// are injected at construction; the handler itself holds no mutable state.
type PayHandler struct {
	cfg        *config.Config
	provider   PaymentProvider
	bdd        *bdd.Client
	mailer     *mailer.Client
	deadletter DeadLetter
	now        func() time.Time
}

// NewPayHandler wires a PayHandler. deadletter may be nil when no queue is
// configured.
func NewPayHandler(cfg *config.Config, provider PaymentProvider, bddClient *bdd.Client, mailClient *mailer.Client, deadletter DeadLetter) *PayHandler {
	return &PayHandler{
		cfg:        cfg,
		provider:   provider,
		bdd:        bddClient,
		mailer:     mailClient,
		deadletter: deadletter,
		now:        time.Now,
	}
}

// CreateCheckoutSession validates the request, prices the purchase
// server-side and opens a provider checkout session. The client-supplied
// amount is never trusted.
func (h *PayHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Error: "corps de requête invalide"})
		return
	}

	log.Info().
		Str("user_id", req.UserID).
		Str("premium_id", req.PremiumID).
		Str("product", req.ProductName).
		Msg("checkout session requested")

	if req.UserID == "" || req.PremiumID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Success: false, Error: errMissingIDs})
		return
	}

	ctx := c.Request.Context()

	user, err := h.bdd.GetUser(ctx, req.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("checkout: user lookup failed")
		stats.CheckoutSessionsTotal.WithLabelValues("upstream_error").Inc()
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Success: false, Error: "service BDD indisponible"})
		return
	}

	premium, err := h.bdd.GetPremium(ctx, req.PremiumID)
	if err != nil {
		log.Error().Err(err).Str("premium_id", req.PremiumID).Msg("checkout: premium lookup failed")
		stats.CheckoutSessionsTotal.WithLabelValues("upstream_error").Inc()
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Success: false, Error: "service BDD indisponible"})
		return
	}

	amount := ComputePrice(user, premium, h.now())

	currency := req.Currency
	if currency == "" {
		currency = "eur"
	}
	productName := premium.Title
	if productName == "" {
		productName = req.ProductName
	}
	if productName == "" {
		productName = "Abonnement Premium"
	}
	duration := req.Duration
	if duration == "" {
		duration = "30"
	}

	sess, err := h.provider.CreateCheckoutSession(ctx, CheckoutParams{
		Currency:    currency,
		ProductName: productName,
		UnitAmount:  amount,
		SuccessURL:  h.cfg.Stripe.SuccessURL,
		CancelURL:   h.cfg.Stripe.CancelURL,
		Metadata: map[string]string{
			"userId":    req.UserID,
			"premiumId": req.PremiumID,
			"duration":  duration,
			"userEmail": req.UserEmail,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("checkout: session creation failed")
		stats.CheckoutSessionsTotal.WithLabelValues("provider_error").Inc()
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Success: false, Error: err.Error()})
		return
	}

	log.Info().
		Str("session_id", sess.ID).
		Str("user_id", req.UserID).
		Int64("amount", amount).
		Msg("checkout session created")
	stats.CheckoutSessionsTotal.WithLabelValues("created").Inc()

	c.JSON(http.StatusOK, models.CheckoutResponse{Success: true, URL: sess.URL, SessionID: sess.ID})
}
