// Package models defines the payloads exchanged with the BDD data service
// and the request/response bodies of this service's own API.
package models

import "time"

// SubscriptionStatus is the lifecycle state of a subscription as stored by
// the BDD service.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription mirrors the BDD service's subscription record. This service
// never owns one; it only creates and patches them over HTTP.
type Subscription struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	PremiumID     string             `json:"premiumId"`
	Status        SubscriptionStatus `json:"status"`
	StartDate     time.Time          `json:"startDate"`
	EndDate       time.Time          `json:"endDate"`
	Price         int64              `json:"price"`
	AutoRenew     bool               `json:"autoRenew"`
	PaymentMethod string             `json:"paymentMethod"`
	TransactionID string             `json:"transactionId"`
	ReceiptURL    string             `json:"receiptUrl,omitempty"`
	Duration      int                `json:"duration,omitempty"`
}

// IsActive reports whether the subscription still covers the current date.
// A missing end date counts as expired.
func (s *Subscription) IsActive(now time.Time) bool {
	return !s.EndDate.IsZero() && s.EndDate.After(now)
}

// User is the slice of the BDD user record this service reads.
type User struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Email        string        `json:"email"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

// Premium is a purchasable plan. Tarif is in minor currency units.
type Premium struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tarif int64  `json:"tarif"`
}
