// Package bdd is the HTTP client for the BDD data service, which owns the
// user, premium plan and subscription records this service reconciles.
package bdd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/BileulDevs/spotR-payement/app/models"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// ErrNotFound is returned when a lookup matches no record. Callers treat it
// as a logged no-op, never as a reason to fabricate a record.
var ErrNotFound = errors.New("bdd: not found")

type httpError struct {
	Status int
	Body   string
}

func (e httpError) Error() string { return fmt.Sprintf("bdd http %d: %s", e.Status, e.Body) }

type Client struct {
	baseURL string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewClient builds a client for the data service at baseURL. Every call has
// a 15s budget and goes through a circuit breaker so a dead data service
// fails fast instead of stalling webhook handlers.
func NewClient(baseURL string) *Client {
	settings := gobreaker.Settings{
		Name:     "bdd",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// 4xx means the service answered; only transport errors and
			// 5xx should trip the breaker.
			var he httpError
			return errors.As(err, &he) && he.Status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// GetUser fetches a user (with its current subscription, if any).
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), nil, &user); err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return &user, nil
}

// GetPremium fetches a premium plan.
func (c *Client) GetPremium(ctx context.Context, premiumID string) (*models.Premium, error) {
	var premium models.Premium
	if err := c.doJSON(ctx, http.MethodGet, "/api/premium/"+url.PathEscape(premiumID), nil, &premium); err != nil {
		return nil, fmt.Errorf("get premium %s: %w", premiumID, err)
	}
	return &premium, nil
}

// GetSubscription fetches a subscription by its BDD id.
func (c *Client) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := c.doJSON(ctx, http.MethodGet, "/api/subscription/"+url.PathEscape(id), nil, &sub); err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return &sub, nil
}

// CreateSubscription creates a fresh subscription record.
func (c *Client) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	var created models.Subscription
	if err := c.doJSON(ctx, http.MethodPost, "/api/subscription", sub, &created); err != nil {
		return nil, fmt.Errorf("create subscription for user %s: %w", sub.UserID, err)
	}
	return &created, nil
}

// UpdateSubscription replaces an existing subscription in place. One
// subscription per user: upgrades and renewals go through here, never
// through a second create.
func (c *Client) UpdateSubscription(ctx context.Context, id string, sub models.Subscription) (*models.Subscription, error) {
	var updated models.Subscription
	if err := c.doJSON(ctx, http.MethodPut, "/api/subscription/"+url.PathEscape(id), sub, &updated); err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", id, err)
	}
	return &updated, nil
}

// SubscriptionPatch is a partial update; nil fields are left untouched.
type SubscriptionPatch struct {
	Status     *models.SubscriptionStatus `json:"status,omitempty"`
	AutoRenew  *bool                      `json:"autoRenew,omitempty"`
	ReceiptURL *string                    `json:"receiptUrl,omitempty"`
}

// PatchSubscription applies a partial update. Repeating a patch with the
// same target state is a server-side no-op, which keeps webhook redelivery
// harmless.
func (c *Client) PatchSubscription(ctx context.Context, id string, patch SubscriptionPatch) error {
	if err := c.doJSON(ctx, http.MethodPatch, "/api/subscription/"+url.PathEscape(id), patch, nil); err != nil {
		return fmt.Errorf("patch subscription %s: %w", id, err)
	}
	return nil
}

// RenewSubscription extends the subscription term by the given number of days.
func (c *Client) RenewSubscription(ctx context.Context, id string, days int) error {
	body := map[string]int{"duration": days}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/subscription/"+url.PathEscape(id)+"/renew", body, nil); err != nil {
		return fmt.Errorf("renew subscription %s: %w", id, err)
	}
	return nil
}

// CancelSubscription marks the subscription cancelled.
func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodPatch, "/api/subscription/"+url.PathEscape(id)+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", id, err)
	}
	return nil
}

type searchResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Subscriptions []models.Subscription `json:"subscriptions"`
	} `json:"data"`
}

// FindByTransactionID resolves a subscription by the provider transaction id
// stored at checkout time. Returns ErrNotFound on a miss.
func (c *Client) FindByTransactionID(ctx context.Context, transactionID string) (*models.Subscription, error) {
	return c.search(ctx, url.Values{"transactionId": {transactionID}})
}

// FindActiveByEmail resolves the active subscription of the user owning the
// given email address. Last resort of the charge.updated lookup chain.
func (c *Client) FindActiveByEmail(ctx context.Context, email string) (*models.Subscription, error) {
	return c.search(ctx, url.Values{"userEmail": {email}, "status": {string(models.StatusActive)}})
}

func (c *Client) search(ctx context.Context, query url.Values) (*models.Subscription, error) {
	var res searchResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/subscription/search?"+query.Encode(), nil, &res); err != nil {
		return nil, fmt.Errorf("search subscriptions: %w", err)
	}
	if !res.Success || len(res.Data.Subscriptions) == 0 {
		return nil, ErrNotFound
	}
	return &res.Data.Subscriptions[0], nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.breaker.Execute(func() (*http.Response, error) {
		res, err := c.httpc.Do(req)
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= 400 {
			defer res.Body.Close()
			var msg struct {
				Message string `json:"message"`
			}
			_ = json.NewDecoder(res.Body).Decode(&msg)
			return nil, httpError{Status: res.StatusCode, Body: msg.Message}
		}
		return res, nil
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
