package models

// CheckoutRequest is the body of POST /api/pay/checkout.
//
// Amount is accepted for backward compatibility with older clients but the
// charged amount is always computed server-side from the user's current
// subscription and the requested plan.
type CheckoutRequest struct {
	Amount      int64  `json:"amount,omitempty"`
	Currency    string `json:"currency"`
	ProductName string `json:"productName"`
	UserID      string `json:"userId"`
	PremiumID   string `json:"premiumId"`
	Duration    string `json:"duration"`
	UserEmail   string `json:"userEmail"`
}

// CheckoutResponse is returned once a provider session has been created.
type CheckoutResponse struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// ErrorResponse is the JSON error body for checkout failures.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
